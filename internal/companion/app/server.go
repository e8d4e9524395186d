package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/companion-labs/companion/common/trace"
	"github.com/companion-labs/companion/internal/companion/chat"
	"github.com/companion-labs/companion/internal/companion/memory"
	"github.com/companion-labs/companion/internal/companion/store"
)

// Server exposes the companion HTTP API.
type Server struct {
	addr      string
	service   *chat.Service
	store     *store.Store
	memory    *memory.Log
	apiKey    string // scrubbed from any upstream detail before it leaves the process
	startedAt time.Time
	server    *http.Server
	mux       *http.ServeMux
}

// NewServer creates and configures the HTTP server (does not start it).
func NewServer(addr string, service *chat.Service, st *store.Store, mem *memory.Log, apiKey string) *Server {
	mux := http.NewServeMux()
	s := &Server{
		addr:      addr,
		service:   service,
		store:     st,
		memory:    mem,
		apiKey:    apiKey,
		startedAt: time.Now(),
		mux:       mux,
	}

	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /message", s.handleMessage)
	mux.HandleFunc("GET /memory", s.handleMemoryGet)
	mux.HandleFunc("DELETE /memory", s.handleMemoryClear)
	mux.HandleFunc("GET /personalities", s.handlePersonalityList)
	mux.HandleFunc("POST /personalities", s.handlePersonalityCreate)
	mux.HandleFunc("GET /personalities/{id}", s.handlePersonalityGet)
	mux.HandleFunc("POST /users", s.handleUserCreate)
	mux.HandleFunc("GET /users/{id}", s.handleUserGet)
	mux.HandleFunc("PATCH /users/{id}", s.handleUserUpdate)
	mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler so the server can be tested without a
// live network listener (e.g. with httptest.NewRecorder). Every request is
// tagged with a trace ID before it reaches a handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := trace.WithTraceID(r.Context(), trace.GenerateID())
	s.mux.ServeHTTP(w, r.WithContext(ctx))
}

// Start begins listening in the background. Blocks until the listener is
// established so the caller knows the port is open before returning.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.addr, err)
	}

	s.server = &http.Server{
		Handler:      s,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("companion server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("companion server stopped", "err", err)
		}
	}()

	// Shutdown when ctx is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown error", "err", err)
		}
	}()

	return nil
}

// Stop shuts down the HTTP server.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}
}

// clientKey derives the admission-control identity of the caller: the first
// X-Forwarded-For hop when present, otherwise the remote address host.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeJSON serialises v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("server: failed to encode JSON response", "err", err)
	}
}

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
