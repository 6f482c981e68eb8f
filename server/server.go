// Package server assembles the HTTP server around the API service.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	apiv1 "github.com/arcanaworks/grimoire/server/router/api/v1"
	"github.com/arcanaworks/grimoire/server/profile"
)

type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	httpServer *http.Server
}

func NewServer(prof *profile.Profile, api *apiv1.APIV1Service) *Server {
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/healthz", func(c *echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	api.RegisterRoutes(e)

	return &Server{
		Profile:    prof,
		echoServer: e,
		httpServer: &http.Server{
			Addr:    prof.ListenAddr(),
			Handler: e,
		},
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	slog.Info("server listening", "addr", s.httpServer.Addr, "mode", s.Profile.Mode)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, bounded by a grace period.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "err", err)
	}
}
