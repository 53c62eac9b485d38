package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"product-page-studio/internal/product"
	"product-page-studio/internal/prompts"
	"product-page-studio/internal/refimage"
)

var (
	ErrNoReference = errors.New("no reference image selected")
	ErrInProgress  = errors.New("generation already in progress")
	ErrSuperseded  = errors.New("generation superseded by reset or new upload")
	ErrClosed      = errors.New("controller closed")
)

const subscriberBuffer = 8

// Generator is the remote side of a generation attempt.
type Generator interface {
	Analyze(ctx context.Context, ref refimage.Image) (product.Detail, error)
	GenerateImage(ctx context.Context, ref refimage.Image, prompt string) (string, error)
}

type Options struct {
	Generator Generator
	Logger    *slog.Logger
	Messages  Messages
	// MaxUploadBytes bounds SelectImage; zero uses refimage.DefaultMaxBytes.
	MaxUploadBytes int64
	// RequestTimeout bounds one whole attempt; zero means no extra deadline.
	RequestTimeout time.Duration
}

type Controller struct {
	gen       Generator
	logger    *slog.Logger
	messages  Messages
	maxUpload int64
	timeout   time.Duration

	mu      sync.Mutex
	snap    Snapshot
	epoch   uint64
	cancel  context.CancelFunc
	subs    map[int]chan Snapshot
	nextSub int
	closed  bool
}

func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	messages := opts.Messages
	if messages.Default == "" {
		messages = MessagesFor("ko")
	}

	return &Controller{
		gen:       opts.Generator,
		logger:    logger,
		messages:  messages,
		maxUpload: opts.MaxUploadBytes,
		timeout:   opts.RequestTimeout,
		snap:      Snapshot{Phase: PhaseIdle},
		subs:      make(map[int]chan Snapshot),
	}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

func (c *Controller) Messages() Messages {
	return c.messages
}

// SelectImage reads src as the new reference image. Any running attempt is
// abandoned. On a read failure the previous reference is kept and the
// controller moves to the error phase.
func (c *Controller) SelectImage(ctx context.Context, src io.Reader, filename, contentType string) error {
	img, readErr := refimage.Read(src, filename, contentType, c.maxUpload)
	if readErr == nil {
		readErr = ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.supersedeLocked()

	if readErr != nil {
		c.logger.Warn("reference image rejected", "file", filename, "content_type", contentType, "err", readErr)
		c.publishLocked(Snapshot{
			Phase:     PhaseError,
			Reference: c.snap.Reference,
			Error:     c.messages.For(readErr),
		})
		return readErr
	}

	c.logger.Info("reference image selected", "file", img.Name, "mime", img.MimeType, "width", img.Width, "height", img.Height, "bytes", img.Size())
	c.publishLocked(Snapshot{Phase: PhaseIdle, Reference: img})
	return nil
}

// Reset discards everything and returns to an empty idle state.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.supersedeLocked()
	c.publishLocked(Snapshot{Phase: PhaseIdle})
}

// RunGeneration analyses the reference image, renders the studio and
// lifestyle shots concurrently and commits them together. It blocks until the
// attempt ends; the returned error is already reflected in the snapshot.
func (c *Controller) RunGeneration(ctx context.Context) error {
	done, err := c.Start(ctx)
	if err != nil {
		return err
	}
	return <-done
}

// Start validates and begins an attempt, then runs it in the background. The
// returned channel yields the attempt's result once.
func (c *Controller) Start(ctx context.Context) (<-chan error, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return nil, ErrClosed
	case !c.snap.HasReference():
		return nil, ErrNoReference
	case c.snap.Busy():
		return nil, ErrInProgress
	case c.gen == nil:
		return nil, errors.New("workflow: generator is nil")
	}

	ref := c.snap.Reference
	c.epoch++
	epoch := c.epoch

	var cancel context.CancelFunc
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	c.cancel = cancel
	c.publishLocked(Snapshot{Phase: PhaseAnalyzing, Reference: ref})

	done := make(chan error, 1)
	go func() {
		defer cancel()
		done <- c.run(ctx, epoch, ref)
	}()
	return done, nil
}

// RejectImage records an upload that failed before its content could be read.
// The current reference is kept.
func (c *Controller) RejectImage(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.supersedeLocked()
	c.publishLocked(Snapshot{
		Phase:     PhaseError,
		Reference: c.snap.Reference,
		Error:     c.messages.For(err),
	})
}

func (c *Controller) run(ctx context.Context, epoch uint64, ref refimage.Image) error {
	started := time.Now()
	logger := c.logger.With("epoch", epoch)
	logger.Info("generation started", "mime", ref.MimeType, "bytes", ref.Size())

	detail, err := c.gen.Analyze(ctx, ref)
	if err != nil {
		return c.fail(epoch, ref, err, logger)
	}

	if !c.commit(epoch, Snapshot{Phase: PhaseGeneratingImages, Reference: ref}) {
		return ErrSuperseded
	}
	logger.Info("analysis done", "product", detail.ProductName, "elapsed", time.Since(started).String())

	var mainURL, lifestyleURL string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		url, err := c.gen.GenerateImage(gctx, ref, prompts.Build(prompts.Studio, detail.ProductName))
		mainURL = url
		return err
	})
	g.Go(func() error {
		url, err := c.gen.GenerateImage(gctx, ref, prompts.Build(prompts.Lifestyle, detail.ProductName))
		lifestyleURL = url
		return err
	})
	if err := g.Wait(); err != nil {
		return c.fail(epoch, ref, err, logger)
	}

	final := detail.WithImages(mainURL, lifestyleURL)
	if !c.commit(epoch, Snapshot{Phase: PhaseReady, Reference: ref, Product: &final}) {
		return ErrSuperseded
	}

	logger.Info("generation finished", "product", final.ProductName, "elapsed", time.Since(started).String())
	return nil
}

// Subscribe returns a channel receiving the current snapshot followed by every
// later one. Slow readers only miss intermediate snapshots, never the latest.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Snapshot, subscriberBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snap

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Close abandons any running attempt and ends all subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.supersedeLocked()
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Controller) fail(epoch uint64, ref refimage.Image, err error, logger *slog.Logger) error {
	msg := c.messages.For(err)
	if !c.commit(epoch, Snapshot{Phase: PhaseError, Reference: ref, Error: msg}) {
		logger.Info("stale generation failure dropped", "err", err)
		return ErrSuperseded
	}
	logger.Error("generation failed", "err", err)
	return err
}

// commit publishes snap only if no Reset, SelectImage or Close happened since
// the attempt identified by epoch started.
func (c *Controller) commit(epoch uint64, snap Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.epoch != epoch {
		return false
	}
	if !snap.Busy() {
		c.cancel = nil
	}
	c.publishLocked(snap)
	return true
}

func (c *Controller) supersedeLocked() {
	c.epoch++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) publishLocked(snap Snapshot) {
	if snap.sameState(c.snap) {
		return
	}
	snap.Version = c.snap.Version + 1
	c.snap = snap

	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
