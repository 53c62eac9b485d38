package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-page-studio/internal/gemini"
	"product-page-studio/internal/product"
	"product-page-studio/internal/refimage"
)

type fakeGenerator struct {
	analyze  func(ctx context.Context, ref refimage.Image) (product.Detail, error)
	generate func(ctx context.Context, ref refimage.Image, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (f *fakeGenerator) Analyze(ctx context.Context, ref refimage.Image) (product.Detail, error) {
	if f.analyze != nil {
		return f.analyze(ctx, ref)
	}
	return product.Detail{ProductName: "Aroma Candle", Tagline: "calm"}, nil
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, ref refimage.Image, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.generate != nil {
		return f.generate(ctx, ref, prompt)
	}
	if strings.Contains(prompt, "studio") {
		return "data:image/png;base64,TUFJTg==", nil
	}
	return "data:image/png;base64,TElGRQ==", nil
}

func pngReader(t *testing.T) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return bytes.NewReader(buf.Bytes())
}

func newController(t *testing.T, gen Generator) *Controller {
	t.Helper()
	c := New(Options{Generator: gen})
	t.Cleanup(c.Close)
	return c
}

func withImage(t *testing.T, gen Generator) *Controller {
	t.Helper()
	c := newController(t, gen)
	require.NoError(t, c.SelectImage(context.Background(), pngReader(t), "candle.png", "image/png"))
	return c
}

func collect(ch <-chan Snapshot, stop <-chan struct{}) <-chan []Phase {
	out := make(chan []Phase, 1)
	go func() {
		var phases []Phase
		for {
			select {
			case s, ok := <-ch:
				if !ok {
					out <- phases
					return
				}
				if len(phases) == 0 || phases[len(phases)-1] != s.Phase {
					phases = append(phases, s.Phase)
				}
			case <-stop:
				out <- phases
				return
			}
		}
	}()
	return out
}

func TestSuccessfulGeneration(t *testing.T) {
	gen := &fakeGenerator{}
	c := withImage(t, gen)
	ref := c.Snapshot().Reference

	require.NoError(t, c.RunGeneration(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, PhaseReady, snap.Phase)
	require.NotNil(t, snap.Product)
	assert.Equal(t, "Aroma Candle", snap.Product.ProductName)
	assert.Equal(t, "data:image/png;base64,TUFJTg==", snap.Product.GeneratedImageURL)
	assert.Equal(t, "data:image/png;base64,TElGRQ==", snap.Product.LifestyleImageURL)
	assert.Equal(t, ref, snap.Reference)
	assert.Empty(t, snap.Error)

	require.Len(t, gen.prompts, 2)
	for _, p := range gen.prompts {
		assert.Contains(t, p, "Aroma Candle")
	}
}

func TestPhasesInOrder(t *testing.T) {
	release := make(chan struct{})
	gen := &fakeGenerator{
		analyze: func(ctx context.Context, ref refimage.Image) (product.Detail, error) {
			<-release
			return product.Detail{ProductName: "Lamp"}, nil
		},
	}
	c := withImage(t, gen)

	ch, cancel := c.Subscribe()
	stop := make(chan struct{})
	phases := collect(ch, stop)

	done := make(chan error, 1)
	go func() { done <- c.RunGeneration(context.Background()) }()

	require.Eventually(t, func() bool { return c.Snapshot().Phase == PhaseAnalyzing }, time.Second, 5*time.Millisecond)
	close(release)
	require.NoError(t, <-done)

	cancel()
	got := <-phases
	close(stop)

	assert.Equal(t, []Phase{PhaseIdle, PhaseAnalyzing, PhaseGeneratingImages, PhaseReady}, got)
}

func TestAnalysisFailure(t *testing.T) {
	gen := &fakeGenerator{
		analyze: func(ctx context.Context, ref refimage.Image) (product.Detail, error) {
			return product.Detail{}, fmt.Errorf("%w: %w", gemini.ErrAnalysisFailed, gemini.ErrParseFailure)
		},
	}
	c := withImage(t, gen)
	ref := c.Snapshot().Reference

	err := c.RunGeneration(context.Background())
	assert.ErrorIs(t, err, gemini.ErrParseFailure)

	snap := c.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.Equal(t, MessagesFor("ko").Analysis, snap.Error)
	assert.Nil(t, snap.Product)
	assert.Equal(t, ref, snap.Reference)
	assert.Empty(t, gen.prompts)
}

func TestOneImageFailureCancelsSibling(t *testing.T) {
	siblingCancelled := make(chan struct{})
	gen := &fakeGenerator{
		generate: func(ctx context.Context, ref refimage.Image, prompt string) (string, error) {
			if strings.Contains(prompt, "lifestyle") {
				return "", fmt.Errorf("%w: %w", gemini.ErrImageGenerationFailed, gemini.ErrNoImageReturned)
			}
			<-ctx.Done()
			close(siblingCancelled)
			return "", ctx.Err()
		},
	}
	c := withImage(t, gen)

	err := c.RunGeneration(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, gemini.ErrImageGenerationFailed)

	select {
	case <-siblingCancelled:
	case <-time.After(time.Second):
		t.Fatal("sibling image call was not cancelled")
	}

	snap := c.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.Equal(t, MessagesFor("ko").ImageGeneration, snap.Error)
	assert.Nil(t, snap.Product)
	assert.True(t, snap.HasReference())
}

func TestRetryAfterFailure(t *testing.T) {
	fail := true
	gen := &fakeGenerator{
		analyze: func(ctx context.Context, ref refimage.Image) (product.Detail, error) {
			if fail {
				return product.Detail{}, errors.New("network down")
			}
			return product.Detail{ProductName: "Mug"}, nil
		},
	}
	c := withImage(t, gen)

	require.Error(t, c.RunGeneration(context.Background()))
	assert.Equal(t, MessagesFor("ko").Default, c.Snapshot().Error)
	assert.False(t, c.Snapshot().Busy())

	fail = false
	require.NoError(t, c.RunGeneration(context.Background()))
	assert.True(t, c.Snapshot().Ready())
}

func TestRunWithoutReference(t *testing.T) {
	c := newController(t, &fakeGenerator{})

	assert.ErrorIs(t, c.RunGeneration(context.Background()), ErrNoReference)
	assert.Equal(t, PhaseIdle, c.Snapshot().Phase)
}

func TestRunWhileBusy(t *testing.T) {
	release := make(chan struct{})
	gen := &fakeGenerator{
		analyze: func(ctx context.Context, ref refimage.Image) (product.Detail, error) {
			<-release
			return product.Detail{ProductName: "Lamp"}, nil
		},
	}
	c := withImage(t, gen)

	done := make(chan error, 1)
	go func() { done <- c.RunGeneration(context.Background()) }()
	require.Eventually(t, func() bool { return c.Snapshot().Busy() }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, c.RunGeneration(context.Background()), ErrInProgress)

	close(release)
	require.NoError(t, <-done)
}

func TestResetIsIdempotent(t *testing.T) {
	c := withImage(t, &fakeGenerator{})
	require.NoError(t, c.RunGeneration(context.Background()))

	c.Reset()
	first := c.Snapshot()
	c.Reset()
	second := c.Snapshot()

	assert.Equal(t, PhaseIdle, first.Phase)
	assert.False(t, first.HasReference())
	assert.Nil(t, first.Product)
	assert.Empty(t, first.Error)
	assert.Equal(t, first, second)
}

func TestReuploadClearsProduct(t *testing.T) {
	c := withImage(t, &fakeGenerator{})
	require.NoError(t, c.RunGeneration(context.Background()))
	require.True(t, c.Snapshot().Ready())

	require.NoError(t, c.SelectImage(context.Background(), pngReader(t), "other.png", "image/png"))

	snap := c.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Nil(t, snap.Product)
	assert.Empty(t, snap.Error)
	assert.Equal(t, "other.png", snap.Reference.Name)
}

func TestSelectImageFailureKeepsReference(t *testing.T) {
	c := withImage(t, &fakeGenerator{})
	ref := c.Snapshot().Reference

	err := c.SelectImage(context.Background(), strings.NewReader("not an image"), "notes.txt", "text/plain")
	assert.ErrorIs(t, err, refimage.ErrUnsupportedType)

	snap := c.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.Equal(t, MessagesFor("ko").ImageRead, snap.Error)
	assert.Equal(t, ref, snap.Reference)

	require.NoError(t, c.RunGeneration(context.Background()))
	assert.True(t, c.Snapshot().Ready())
}

func TestResetDiscardsLateResult(t *testing.T) {
	release := make(chan struct{})
	gen := &fakeGenerator{
		analyze: func(ctx context.Context, ref refimage.Image) (product.Detail, error) {
			<-release
			return product.Detail{ProductName: "Lamp"}, nil
		},
	}
	c := withImage(t, gen)

	done := make(chan error, 1)
	go func() { done <- c.RunGeneration(context.Background()) }()
	require.Eventually(t, func() bool { return c.Snapshot().Phase == PhaseAnalyzing }, time.Second, 5*time.Millisecond)

	c.Reset()
	close(release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	snap := c.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Nil(t, snap.Product)
	assert.False(t, snap.HasReference())
}

func TestResetCancelsInFlightCalls(t *testing.T) {
	gen := &fakeGenerator{
		generate: func(ctx context.Context, ref refimage.Image, prompt string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	c := withImage(t, gen)

	done := make(chan error, 1)
	go func() { done <- c.RunGeneration(context.Background()) }()
	require.Eventually(t, func() bool { return c.Snapshot().Phase == PhaseGeneratingImages }, time.Second, 5*time.Millisecond)

	c.Reset()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("generation did not stop after reset")
	}
	assert.Equal(t, PhaseIdle, c.Snapshot().Phase)
}

func TestRequestTimeout(t *testing.T) {
	gen := &fakeGenerator{
		analyze: func(ctx context.Context, ref refimage.Image) (product.Detail, error) {
			<-ctx.Done()
			return product.Detail{}, fmt.Errorf("%w: %w", gemini.ErrAnalysisFailed, ctx.Err())
		},
	}
	c := New(Options{Generator: gen, RequestTimeout: 20 * time.Millisecond})
	t.Cleanup(c.Close)
	require.NoError(t, c.SelectImage(context.Background(), pngReader(t), "a.png", "image/png"))

	err := c.RunGeneration(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, PhaseError, c.Snapshot().Phase)
}

func TestVersionIncreases(t *testing.T) {
	c := withImage(t, &fakeGenerator{})
	before := c.Snapshot().Version

	require.NoError(t, c.RunGeneration(context.Background()))
	assert.Equal(t, before+3, c.Snapshot().Version)
}

func TestCloseEndsSubscriptions(t *testing.T) {
	c := New(Options{Generator: &fakeGenerator{}})
	ch, cancel := c.Subscribe()
	defer cancel()

	first := <-ch
	assert.Equal(t, PhaseIdle, first.Phase)

	c.Close()
	_, ok := <-ch
	assert.False(t, ok)

	assert.ErrorIs(t, c.RunGeneration(context.Background()), ErrClosed)
}

func TestMessagesFor(t *testing.T) {
	en := MessagesFor("en")
	ko := MessagesFor("anything")

	assert.Equal(t, "AI 디자인 생성 중 오류가 발생했습니다. 다시 시도해 주세요.", ko.For(errors.New("x")))
	assert.Equal(t, en.ImageTooLarge, en.For(refimage.ErrTooLarge))
	assert.Equal(t, ko.ImageGeneration, ko.For(fmt.Errorf("%w: %w", gemini.ErrImageGenerationFailed, gemini.ErrNoImageReturned)))
	assert.Equal(t, ko.Analysis, ko.For(fmt.Errorf("%w: %w", gemini.ErrAnalysisFailed, gemini.ErrResponseEmpty)))
	assert.Equal(t, ko.Default, ko.For(gemini.ErrNoImageReturned))
	assert.Empty(t, ko.For(nil))
}

func TestRejectImageKeepsReference(t *testing.T) {
	c := withImage(t, &fakeGenerator{})
	ref := c.Snapshot().Reference

	c.RejectImage(refimage.ErrTooLarge)

	snap := c.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.Equal(t, MessagesFor("ko").ImageTooLarge, snap.Error)
	assert.Equal(t, ref, snap.Reference)
}

func TestStartReturnsBeforeCompletion(t *testing.T) {
	release := make(chan struct{})
	gen := &fakeGenerator{
		analyze: func(ctx context.Context, ref refimage.Image) (product.Detail, error) {
			<-release
			return product.Detail{ProductName: "Lamp"}, nil
		},
	}
	c := withImage(t, gen)

	done, err := c.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseAnalyzing, c.Snapshot().Phase)

	_, err = c.Start(context.Background())
	assert.ErrorIs(t, err, ErrInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.True(t, c.Snapshot().Ready())
}
