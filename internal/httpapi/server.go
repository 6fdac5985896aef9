// Package httpapi serves the index over HTTP with a chi router.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	sderrors "github.com/Aman-CERP/segdex/internal/errors"
	"github.com/Aman-CERP/segdex/internal/index"
	"github.com/Aman-CERP/segdex/internal/metrics"
)

// maxBodyBytes bounds a single document request body.
const maxBodyBytes = 8 << 20

// shutdownTimeout bounds graceful shutdown in Serve.
const shutdownTimeout = 10 * time.Second

// Server exposes one index handle. All mutation handlers share one Writer,
// which serializes commits; searches only take the handle's read lock.
type Server struct {
	handle  *index.Handle
	writer  *index.Writer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewServer creates an HTTP API server. m may be nil, in which case
// /metrics is not mounted and requests are not measured.
func NewServer(h *index.Handle, w *index.Writer, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{handle: h, writer: w, metrics: m, logger: logger}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware())
	}

	r.Post("/documents", s.addDocument)
	r.Put("/documents/{id}", s.updateDocument)
	r.Delete("/documents/{id}", s.deleteDocument)
	r.Get("/search", s.search)
	r.Get("/stats", s.stats)
	r.Get("/healthz", s.healthz)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// Serve listens on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return sderrors.SetupError(sderrors.ErrCodeIndexUnavailable, "failed to listen", err).
			WithDetail("addr", addr)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("http_listening", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("http_stopped")
	return nil
}

type documentRequest struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type searchResponse struct {
	Query   string         `json:"query"`
	Results []index.Result `json:"results"`
	Total   int            `json:"total"`
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// addDocument handles POST /documents.
func (s *Server) addDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if !s.decode(w, r, &req) {
		return
	}

	doc := index.Document{ID: req.ID, Title: req.Title, Content: req.Content}
	if err := s.writer.Add(r.Context(), doc); err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// updateDocument handles PUT /documents/{id}.
func (s *Server) updateDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req documentRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ID != "" && req.ID != id {
		s.handleError(w, sderrors.ValidationError("body id does not match path id", nil).
			WithDetail("path_id", id).
			WithDetail("body_id", req.ID))
		return
	}

	doc := index.Document{ID: id, Title: req.Title, Content: req.Content}
	if err := s.writer.Update(r.Context(), doc); err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// deleteDocument handles DELETE /documents/{id}. Absent ids succeed.
func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.writer.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// search handles GET /search?q=&limit=.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	limit := index.MaxResults
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.handleError(w, sderrors.ValidationError("limit must be a positive integer", err).
				WithDetail("limit", raw))
			return
		}
		limit = n
	}

	results, err := s.handle.SearchN(r.Context(), q, limit)
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: q, Results: results, Total: len(results)})
}

// stats handles GET /stats.
func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	st, err := s.handle.Stats()
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// healthz handles GET /healthz.
func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	if _, err := s.handle.Stats(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.handleError(w, sderrors.ValidationError("invalid request body: "+err.Error(), err))
		return false
	}
	return true
}

// statusFor maps error codes to HTTP status codes.
func statusFor(err error) int {
	switch {
	case sderrors.HasCode(err, sderrors.ErrCodeWriterBusy):
		return http.StatusConflict
	case sderrors.GetCategory(err) == sderrors.CategoryValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := errorResponse{Code: sderrors.GetCode(err), Message: "internal error"}

	var e *sderrors.Error
	if status < http.StatusInternalServerError && errors.As(err, &e) {
		resp.Message = e.Message
		resp.Details = e.Details
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request_failed", slog.String("error", err.Error()))
	} else {
		s.logger.Debug("request_rejected", slog.String("error", err.Error()))
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
