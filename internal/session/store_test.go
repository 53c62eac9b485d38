package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-page-studio/internal/workflow"
)

func TestGetCreatesOncePerKey(t *testing.T) {
	created := 0
	s := NewStore(Options{NewController: func() *workflow.Controller {
		created++
		return workflow.New(workflow.Options{})
	}})
	t.Cleanup(s.Close)

	a := s.Get("a")
	assert.Same(t, a, s.Get("a"))
	assert.NotSame(t, a, s.Get("b"))
	assert.Equal(t, 2, created)
	assert.Equal(t, 2, s.Len())
}

func TestLookupDoesNotCreate(t *testing.T) {
	s := NewStore(Options{})
	t.Cleanup(s.Close)

	_, ok := s.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestDropClosesController(t *testing.T) {
	s := NewStore(Options{})
	ctrl := s.Get("a")

	s.Drop("a")

	_, ok := s.Lookup("a")
	assert.False(t, ok)
	assert.ErrorIs(t, ctrl.RunGeneration(context.Background()), workflow.ErrClosed)
}

func TestExpiredSessionIsClosed(t *testing.T) {
	s := NewStore(Options{TTL: 50 * time.Millisecond})
	t.Cleanup(s.Close)
	ctrl := s.Get("a")

	require.Eventually(t, func() bool {
		return ctrl.RunGeneration(context.Background()) == workflow.ErrClosed
	}, 5*time.Second, 50*time.Millisecond)

	assert.NotSame(t, ctrl, s.Get("a"))
}
