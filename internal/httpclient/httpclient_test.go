package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRateLimitDisabled(t *testing.T) {
	base := http.DefaultTransport
	assert.Same(t, base, WithRateLimit(base, 0))
}

func TestWithRateLimitBlocksSecondRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := &http.Client{Transport: WithRateLimit(http.DefaultTransport, 1)}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	assert.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestNewAppliesTimeout(t *testing.T) {
	client := New(Options{Timeout: 5 * time.Second})
	assert.Equal(t, 5*time.Second, client.Timeout)

	client = New(Options{})
	assert.Equal(t, 180*time.Second, client.Timeout)
}
