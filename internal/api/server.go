package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"confluencekb/internal/domain/kb"
	applog "confluencekb/internal/platform/log"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	JWTSecret    string // empty disables auth
	JWTIssuer    string
}

// DefaultServerConfig returns sane defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}
}

// Server exposes the knowledge base over HTTP: querying, cache stats and
// reindexing. It serves exactly what Engine.Query returns.
type Server struct {
	config  *ServerConfig
	engine  *kb.Engine
	indexer *kb.Indexer
	httpSrv *http.Server
}

func NewServer(config *ServerConfig, engine *kb.Engine, indexer *kb.Indexer) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	return &Server{
		config:  config,
		engine:  engine,
		indexer: indexer,
	}
}

// Start blocks serving HTTP until Stop or a listener error.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.buildRouter(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	applog.Infof("Knowledge base API server starting on %s", addr)
	return s.httpSrv.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		if strings.TrimSpace(s.config.JWTSecret) != "" {
			r.Use(authMiddleware(&JWTConfig{
				Secret: s.config.JWTSecret,
				Issuer: s.config.JWTIssuer,
			}))
		}

		r.Post("/query", s.handleQuery)
		r.Get("/cache/stats", s.handleCacheStats)
		r.Post("/reindex", s.handleReindex)
	})

	return r
}

type queryRequest struct {
	Question string `json:"question"`
}

type queryResponse struct {
	Answer string `json:"answer"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer := s.engine.Query(r.Context(), req.Question)
	writeJSON(w, http.StatusOK, queryResponse{Answer: answer})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.Cache().Stats()
	stats.Available = s.engine.Cache().Available(r.Context())
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if s.indexer == nil {
		writeError(w, http.StatusServiceUnavailable, "Indexing is not configured")
		return
	}

	result, err := s.indexer.Reindex(r.Context())
	if err != nil {
		applog.Error("[API] Reindex failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Reindex failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"pages":             result.Pages,
		"chunks":            result.Chunks,
		"cache_invalidated": result.CacheInvalidated,
	})
}
