// Package api exposes the scrapers and diagnostics over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Server timeouts. Writes must outlast a full scrape including browser launch.
const (
	readTimeout  = 10 * time.Second
	writeTimeout = 4 * time.Minute
	idleTimeout  = 60 * time.Second
)

// Server represents an HTTP server with lifecycle management.
type Server struct {
	router *gin.Engine
	server *http.Server
}

// NewServer creates a server listening on addr. debug switches gin to
// debug mode.
func NewServer(addr string, h *Handlers, debug bool) *Server {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := NewRouter(h)

	return &Server{
		router: router,
		server: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
	}
}

// NewRouter builds the gin engine with middleware and routes
func NewRouter(h *Handlers) *gin.Engine {
	router := gin.New()

	// Recovery first so a panic anywhere still produces an envelope
	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(MetricsMiddleware())

	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/deviations", h.Deviations)
		api.GET("/metro-status", h.MetroStatus)
		api.GET("/tarifas", h.Tarifas)
		api.GET("/test", h.Test)
		api.GET("/debug", h.Debug)
	}

	return router
}

// Router returns the underlying Gin engine
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start serves HTTP until Shutdown is called
func (s *Server) Start() error {
	log.Info().
		Str("address", s.server.Addr).
		Dur("write_timeout", s.server.WriteTimeout).
		Msg("Starting HTTP server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx ends
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
