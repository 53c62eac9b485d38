package httpclient

import (
	"context"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

type Options struct {
	PreferIPv4 bool
	Timeout    time.Duration
	// RatePerMinute caps outgoing requests; zero disables the limiter.
	RatePerMinute int
}

func New(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	dialer := &net.Dialer{
		Timeout:   15 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if opts.PreferIPv4 {
				return dialer.DialContext(ctx, "tcp4", addr)
			}
			return dialer.DialContext(ctx, network, addr)
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 120 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: WithRateLimit(transport, opts.RatePerMinute),
	}
}

// WithRateLimit wraps next so that at most perMinute requests start per minute.
func WithRateLimit(next http.RoundTripper, perMinute int) http.RoundTripper {
	if perMinute <= 0 {
		return next
	}
	if next == nil {
		next = http.DefaultTransport
	}
	limit := rate.Every(time.Minute / time.Duration(perMinute))
	return &limitedTransport{
		next:    next,
		limiter: rate.NewLimiter(limit, 1),
	}
}

type limitedTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}
