package session

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"product-page-studio/internal/workflow"
)

type Options struct {
	// TTL is the idle time after which a session and its controller are dropped.
	TTL time.Duration
	// NewController builds the controller for a fresh session.
	NewController func() *workflow.Controller
	Logger        *slog.Logger
}

// Store maps session keys (browser cookies, chat IDs) to workflow controllers.
// Nothing is persisted; expired sessions are closed and forgotten.
type Store struct {
	mu      sync.Mutex
	items   *cache.Cache
	ttl     time.Duration
	factory func() *workflow.Controller
	logger  *slog.Logger
}

func NewStore(opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	factory := opts.NewController
	if factory == nil {
		factory = func() *workflow.Controller { return workflow.New(workflow.Options{}) }
	}

	cleanup := ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}

	s := &Store{
		items:   cache.New(ttl, cleanup),
		ttl:     ttl,
		factory: factory,
		logger:  logger,
	}
	s.items.OnEvicted(func(key string, v interface{}) {
		if ctrl, ok := v.(*workflow.Controller); ok {
			ctrl.Close()
		}
		s.logger.Debug("session evicted", "session", key)
	})
	return s
}

// Get returns the controller for key, creating it on first use. Each call
// extends the session's lifetime.
func (s *Store) Get(key string) *workflow.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.items.Get(key); ok {
		ctrl := v.(*workflow.Controller)
		s.items.Set(key, ctrl, s.ttl)
		return ctrl
	}

	ctrl := s.factory()
	s.items.Set(key, ctrl, s.ttl)
	s.logger.Debug("session created", "session", key)
	return ctrl
}

// Lookup returns the controller for key without creating one.
func (s *Store) Lookup(key string) (*workflow.Controller, bool) {
	v, ok := s.items.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*workflow.Controller), true
}

// Drop closes and removes the session.
func (s *Store) Drop(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Delete(key)
}

func (s *Store) Len() int {
	return s.items.ItemCount()
}

// Close drops every session.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.items.Items() {
		s.items.Delete(key)
	}
}
