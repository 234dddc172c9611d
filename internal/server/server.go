// Package server implements the HTTP inspection API over the launch registry.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sevir/lanzadera/internal/launcher"
	"github.com/sevir/lanzadera/internal/registry"
)

// Config holds server configuration.
type Config struct {
	Addr     string
	Launcher *launcher.Launcher
	Registry *registry.Registry
	Version  string
}

// Server exposes launches over HTTP: create, list, inspect output and
// terminate.
type Server struct {
	launcher   *launcher.Launcher
	registry   *registry.Registry
	addr       string
	version    string
	httpServer *http.Server
}

// New creates a Server.
func New(cfg Config) *Server {
	return &Server{
		launcher: cfg.Launcher,
		registry: cfg.Registry,
		addr:     cfg.Addr,
		version:  cfg.Version,
	}
}

func (s *Server) newGinEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.GET("/version", s.handleVersion)
		api.GET("/launches", s.handleList)
		api.POST("/launches", s.handleCreate)
		api.GET("/launches/:id", s.handleGet)
		api.GET("/launches/:id/output", s.handleOutput)
		api.POST("/launches/:id/terminate", s.handleTerminate)
		api.DELETE("/launches/:id", s.handleRemove)
	}

	return r
}

// Start begins serving HTTP requests. It blocks until the server stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.newGinEngine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("server_event=started addr=%s version=%s", s.addr, s.version)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
