package web

import (
	"bytes"
	"errors"
	"net/http"

	"product-page-studio/internal/page"
	"product-page-studio/internal/refimage"
	"product-page-studio/internal/workflow"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.controller(w, r)

	var buf bytes.Buffer
	if err := page.Render(&buf, page.NewView(ctrl.Snapshot(), s.messages, s.maxUpload)); err != nil {
		s.logger.Error("render page failed", "err", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.controller(w, r)

	snap := ctrl.Snapshot()
	if !snap.Ready() {
		writeJSON(w, http.StatusNotFound, apiError{Error: "no generated page yet"})
		return
	}

	var buf bytes.Buffer
	if err := page.RenderLanding(&buf, *snap.Product, s.messages.Lang); err != nil {
		s.logger.Error("render landing failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "render failed"})
		return
	}

	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.Header().Set("content-disposition", `attachment; filename="landing.html"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	ctrl, sessionID := s.controller(w, r)

	// Room for multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+(1<<20))

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ctrl.RejectImage(refimage.ErrTooLarge)
			writeJSON(w, http.StatusRequestEntityTooLarge, apiError{Error: s.messages.For(refimage.ErrTooLarge)})
			return
		}
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "missing image"})
		return
	}
	defer file.Close()

	err = ctrl.SelectImage(r.Context(), file, header.Filename, header.Header.Get("Content-Type"))
	switch {
	case errors.Is(err, workflow.ErrClosed):
		writeJSON(w, http.StatusGone, apiError{Error: "session expired"})
		return
	case errors.Is(err, refimage.ErrTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, apiError{Error: s.messages.For(err)})
		return
	case err != nil:
		s.logger.Info("upload rejected", "session", sessionID, "err", err)
		writeJSON(w, http.StatusBadRequest, apiError{Error: s.messages.For(err)})
		return
	}

	writeJSON(w, http.StatusOK, newState(ctrl.Snapshot(), false))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctrl, sessionID := s.controller(w, r)

	// Session conflicts are reported before the server-wide cap.
	switch snap := ctrl.Snapshot(); {
	case !snap.HasReference():
		s.writeStartError(w, workflow.ErrNoReference)
		return
	case snap.Busy():
		s.writeStartError(w, workflow.ErrInProgress)
		return
	}

	if !s.sem.TryAcquire(1) {
		writeJSON(w, http.StatusTooManyRequests, apiError{Error: "too many generations running, try again shortly"})
		return
	}

	done, err := ctrl.Start(s.baseCtx)
	if err != nil {
		s.sem.Release(1)
		s.writeStartError(w, err)
		return
	}

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		defer s.sem.Release(1)
		if err := <-done; err != nil && !errors.Is(err, workflow.ErrSuperseded) {
			s.logger.Warn("generation ended with error", "session", sessionID, "err", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, newState(ctrl.Snapshot(), false))
}

func (s *Server) writeStartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrNoReference):
		writeJSON(w, http.StatusConflict, apiError{Error: "upload a reference image first"})
	case errors.Is(err, workflow.ErrInProgress):
		writeJSON(w, http.StatusConflict, apiError{Error: "generation already running"})
	case errors.Is(err, workflow.ErrClosed):
		writeJSON(w, http.StatusGone, apiError{Error: "session expired"})
	default:
		writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.controller(w, r)
	ctrl.Reset()
	writeJSON(w, http.StatusOK, newState(ctrl.Snapshot(), false))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := s.controller(w, r)
	writeJSON(w, http.StatusOK, newState(ctrl.Snapshot(), true))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.sessions.Len()})
}
