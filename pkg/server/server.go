package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/elonfeng/dailygarden/internal/runner"
	"github.com/elonfeng/dailygarden/internal/store"
	"github.com/elonfeng/dailygarden/pkg/corpus"
	"github.com/elonfeng/dailygarden/pkg/source"
)

// Backend is what the API reads from and triggers. *runner.Runner
// implements it.
type Backend interface {
	Date(t time.Time) string
	Dates(ctx context.Context) ([]string, error)
	Corpus(ctx context.Context, date string) (*corpus.Corpus, error)
	Report(ctx context.Context, date string) (string, error)
	Summary(ctx context.Context, date string, n int) (string, error)
	Collect(ctx context.Context, now time.Time, only ...source.SourceType) (*runner.CollectResult, error)
}

// Server provides the HTTP API.
type Server struct {
	backend Backend
	port    int
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates a new HTTP server.
func New(b Backend, port int, logger zerolog.Logger) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{
		backend: b,
		port:    port,
		logger:  logger,
		now:     time.Now,
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/dates", s.handleDates)
	mux.HandleFunc("/api/v1/corpus", s.handleCorpus)
	mux.HandleFunc("/api/v1/summary", s.handleSummary)
	mux.HandleFunc("/api/v1/report", s.handleReport)
	mux.HandleFunc("/api/v1/collect", s.handleCollect)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("dailygarden server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	s.logger.Info().Msg("dailygarden server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	dates, err := s.backend.Dates(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if dates == nil {
		dates = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  dates,
		"count": len(dates),
	})
}

func (s *Server) handleCorpus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	date, ok := s.date(w, r)
	if !ok {
		return
	}

	c, err := s.backend.Corpus(r.Context(), date)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// Served in the same shape as the stored document.
	data, err := corpus.Encode(c)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	date, ok := s.date(w, r)
	if !ok {
		return
	}

	n := 0
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n must be a positive integer"})
			return
		}
		n = parsed
	}

	summary, err := s.backend.Summary(r.Context(), date, n)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"date": date, "summary": summary})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	date, ok := s.date(w, r)
	if !ok {
		return
	}

	md, err := s.backend.Report(r.Context(), date)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, md)
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var only []source.SourceType
	if v := r.URL.Query().Get("source"); v != "" {
		types, err := source.ParseSourceTypes(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		only = types
	}

	res, err := s.backend.Collect(r.Context(), s.now(), only...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// date reads ?date=, defaulting to today. It writes a 400 and returns false
// when the value is malformed.
func (s *Server) date(w http.ResponseWriter, r *http.Request) (string, bool) {
	date := r.URL.Query().Get("date")
	if date == "" {
		return s.backend.Date(s.now()), true
	}
	if _, err := time.Parse(corpus.DateLayout, date); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return "", false
	}
	return date, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, context.Canceled):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
