// Package server is the front controller: it wires the auth filter,
// forwarding engine, and admin surface onto one HTTP mux, applies the
// gateway's middleware chain, serves static admin-UI assets, and owns the
// process's listen/graceful-shutdown lifecycle (SPEC_FULL.md §4.5).
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/procsl/llm-gateway/pkg/admin"
	"github.com/procsl/llm-gateway/pkg/auth"
	"github.com/procsl/llm-gateway/pkg/forwarding"
	"github.com/procsl/llm-gateway/pkg/gwerrors"
	"github.com/procsl/llm-gateway/pkg/metrics"
	"github.com/procsl/llm-gateway/pkg/model"
	"github.com/procsl/llm-gateway/pkg/server/middleware"
	"github.com/procsl/llm-gateway/pkg/store"
)

// maxBodyBytes is the inbound JSON body ceiling (SPEC_FULL.md §4.5, §6).
const maxBodyBytes = 10 << 20

const adminTimeout = 30 * time.Second

// Config holds the front controller's runtime-configurable surface.
type Config struct {
	Addr        string
	CORSEnabled bool
	StaticDir   string
	AdminCreds  auth.AdminCredentials
}

// Server owns the HTTP listener and the middleware-wrapped mux assembled
// from the auth filter, forwarding engine, and admin surface.
type Server struct {
	cfg     Config
	store   *store.Store
	engine  *forwarding.Engine
	admin   *admin.Surface
	metrics *metrics.Metrics
	log     *slog.Logger

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New builds a Server. metricsHandler may be nil, in which case
// /admin/api/metrics responds 404.
func New(cfg Config, st *store.Store, engine *forwarding.Engine, adminSurface *admin.Surface, m *metrics.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{cfg: cfg, store: st, engine: engine, admin: adminSurface, metrics: m, log: log}
}

// Start starts the HTTP server and blocks until the context is cancelled,
// a termination signal arrives, or the server fails to serve.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.routes(),
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("starting gateway", "address", s.cfg.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		s.log.Info("context cancelled, shutting down")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.log.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		running := s.isRunning
		s.mu.Unlock()
		if !running {
			return
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.log.Error("error during shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		s.log.Info("gateway stopped")
	})
	return shutdownErr
}

// Handler returns the fully assembled handler, useful for tests.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/chat/completions", s.handleInference(model.ProtocolOpenAI))
	mux.HandleFunc("POST /v1/messages", s.handleInference(model.ProtocolAnthropic))
	mux.HandleFunc("GET /v1/models", s.handleModels)

	adminMux := http.NewServeMux()
	s.admin.Register(adminMux)
	if s.metrics != nil {
		adminMux.Handle("GET /admin/api/metrics", s.metrics.Handler())
	}
	var adminHandler http.Handler = adminMux
	adminHandler = middleware.Timeout(adminTimeout)(adminHandler)
	adminHandler = s.requireBasicAuth(adminHandler)
	mux.Handle("/admin/api/", adminHandler)

	mux.Handle("/", s.staticHandler())

	var handler http.Handler = mux
	handler = middleware.CORS(s.cfg.CORSEnabled)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Logging(s.log)(handler)
	handler = middleware.Recovery(s.log)(handler)
	return handler
}

func (s *Server) staticHandler() http.Handler {
	if s.cfg.StaticDir == "" {
		return http.NotFoundHandler()
	}
	return http.FileServer(http.Dir(s.cfg.StaticDir))
}

func (s *Server) requireBasicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.AdminCreds.Check(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="gateway admin"`)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing or invalid admin credentials"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleInference(protocol model.Protocol) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keyName, err := auth.BearerAuthenticate(r, s.store)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			if isBodyTooLarge(err) {
				writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
					"error": (&gwerrors.RequestTooLargeError{LimitBytes: maxBodyBytes}).Error(),
				})
				return
			}
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		s.engine.Handle(w, r, protocol, keyName, body)
	}
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	groups := s.store.ListGroups()
	now := time.Now().Unix()
	data := make([]map[string]any, 0, len(groups))
	for _, g := range groups {
		data = append(data, map[string]any{"id": g.Name, "object": "model", "created": now, "owned_by": "gateway"})
	}
	writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": data})
}

func isBodyTooLarge(err error) bool {
	return strings.Contains(err.Error(), "too large")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
