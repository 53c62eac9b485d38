package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/sync/semaphore"

	"product-page-studio/internal/page"
	"product-page-studio/internal/product"
	"product-page-studio/internal/refimage"
	"product-page-studio/internal/session"
	"product-page-studio/internal/workflow"
)

const cookieName = "studio_session"

type Options struct {
	Sessions *session.Store
	Messages workflow.Messages
	Logger   *slog.Logger
	// MaxUploadBytes bounds the reference image size.
	MaxUploadBytes int64
	// MaxConcurrent caps generations running across all sessions.
	MaxConcurrent int
	SessionTTL    time.Duration
}

type Server struct {
	sessions   *session.Store
	messages   workflow.Messages
	logger     *slog.Logger
	maxUpload  int64
	sem        *semaphore.Weighted
	cookieTTL  time.Duration
	router     *mux.Router
	baseCtx    context.Context
	cancelBase context.CancelFunc
	running    sync.WaitGroup
}

type apiError struct {
	Error string `json:"error"`
}

type referenceInfo struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Bytes    int    `json:"bytes"`
}

type stateResponse struct {
	Phase     workflow.Phase  `json:"phase"`
	Version   uint64          `json:"version"`
	Busy      bool            `json:"busy"`
	Reference *referenceInfo  `json:"reference,omitempty"`
	Error     string          `json:"error,omitempty"`
	Product   *product.Detail `json:"product,omitempty"`
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewStore(session.Options{Logger: logger})
	}

	messages := opts.Messages
	if messages.Default == "" {
		messages = workflow.MessagesFor("ko")
	}

	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = refimage.DefaultMaxBytes
	}

	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	cookieTTL := opts.SessionTTL
	if cookieTTL <= 0 {
		cookieTTL = 2 * time.Hour
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		sessions:   sessions,
		messages:   messages,
		logger:     logger,
		maxUpload:  maxUpload,
		sem:        semaphore.NewWeighted(int64(maxConcurrent)),
		cookieTTL:  cookieTTL,
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/api/image", s.handleImage).Methods(http.MethodPost)
	r.HandleFunc("/api/generate", s.handleGenerate).Methods(http.MethodPost)
	r.HandleFunc("/api/reset", s.handleReset).Methods(http.MethodPost)
	r.HandleFunc("/api/state", s.handleState).Methods(http.MethodGet)

	r.HandleFunc("/ws", s.handleWS)
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(page.Static()))))

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
	})
	return r
}

func (s *Server) Handler() http.Handler {
	return withLogging(s.router, s.logger)
}

// Shutdown abandons running generations and waits for them to unwind.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelBase()

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// controller returns the caller's session controller, issuing a session
// cookie on first contact.
func (s *Server) controller(w http.ResponseWriter, r *http.Request) (*workflow.Controller, string) {
	id := ""
	if c, err := r.Cookie(cookieName); err == nil {
		if parsed, err := uuid.Parse(c.Value); err == nil {
			id = parsed.String()
		}
	}
	if id == "" {
		id = uuid.NewString()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.cookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return s.sessions.Get(id), id
}

func newState(snap workflow.Snapshot, withProduct bool) stateResponse {
	out := stateResponse{
		Phase:   snap.Phase,
		Version: snap.Version,
		Busy:    snap.Busy(),
		Error:   snap.Error,
	}
	if snap.HasReference() {
		out.Reference = &referenceInfo{
			Name:     snap.Reference.Name,
			MimeType: snap.Reference.MimeType,
			Width:    snap.Reference.Width,
			Height:   snap.Reference.Height,
			Bytes:    snap.Reference.Size(),
		}
	}
	if withProduct && snap.Ready() {
		out.Product = snap.Product
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "dur_ms", time.Since(start).Milliseconds())
	})
}
