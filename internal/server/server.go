// Package server exposes the QA pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/matsen/qarag/internal/logger"
	"github.com/matsen/qarag/internal/qa"
	"github.com/matsen/qarag/internal/semantic"
)

const (
	// ShutdownTimeout bounds how long in-flight requests may drain.
	ShutdownTimeout = 5 * time.Second

	// MaxBodyBytes caps the /ask request body.
	MaxBodyBytes = 64 << 10
)

// Asker answers one question.
type Asker interface {
	Ask(ctx context.Context, req qa.Request) (*qa.Response, error)
}

// Server is the HTTP front end.
type Server struct {
	asker   Asker
	store   *semantic.Store
	origins []string
	addr    string
	now     func() time.Time
}

// New creates a server. store is read for /health only.
func New(asker Asker, store *semantic.Store, addr string, origins []string) *Server {
	return &Server{
		asker:   asker,
		store:   store,
		origins: origins,
		addr:    addr,
		now:     time.Now,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	return requestIDMiddleware(loggingMiddleware(corsMiddleware(s.origins, noStoreMiddleware(mux))))
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve handles connections on ln until ctx is cancelled, then drains
// in-flight requests for up to ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      120 * time.Second,
	}

	logger.Info("server listening on %s", ln.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	logger.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

// healthResponse times are unix ms. LoadedAt is omitted before the first snapshot.
type healthResponse struct {
	OK       bool  `json:"ok"`
	TS       int64 `json:"ts"`
	Entries  int   `json:"entries"`
	LoadedAt int64 `json:"loadedAt,omitempty"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req qa.Request
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	req.RequestID = RequestID(r.Context())

	resp, err := s.asker.Ask(r.Context(), req)
	switch {
	case errors.Is(err, qa.ErrQuestionRequired):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question required"})
	case err != nil:
		logger.Error("ask failed [%s]: %v", req.RequestID, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "server error"})
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		OK:      true,
		TS:      s.now().UnixMilli(),
		Entries: s.store.Current().Len(),
	}
	if at := s.store.LoadedAt(); !at.IsZero() {
		resp.LoadedAt = at.UnixMilli()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("writing response: %v", err)
	}
}
