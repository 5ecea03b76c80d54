// Package api exposes the generation pipeline over HTTP: a synchronous
// generate endpoint, a streaming variant that forwards pipeline progress as
// server-sent events, the clarify pre-stage, and app retrieval.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/appforge/internal/api/auth"
	"github.com/appforge/internal/pipeline"
	"github.com/appforge/internal/store"
)

// DefaultRouteTimeout bounds the synchronous generate route.
const DefaultRouteTimeout = 300 * time.Second

// Server is the API server.
type Server struct {
	echo         *echo.Echo
	port         int
	orchestrator *pipeline.Orchestrator
	store        *store.AppStore
	routeTimeout time.Duration
}

// Options wires a Server.
type Options struct {
	Port         int
	Orchestrator *pipeline.Orchestrator
	Store        *store.AppStore
	JWTSecret    string
	RouteTimeout time.Duration
}

// NewServer creates the API server and registers its routes.
func NewServer(opts Options) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	routeTimeout := opts.RouteTimeout
	if routeTimeout <= 0 {
		routeTimeout = DefaultRouteTimeout
	}

	server := &Server{
		echo:         e,
		port:         opts.Port,
		orchestrator: opts.Orchestrator,
		store:        opts.Store,
		routeTimeout: routeTimeout,
	}

	server.setupRoutes(opts.JWTSecret)

	return server
}

func (s *Server) setupRoutes(jwtSecret string) {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	if jwtSecret != "" {
		v1.Use(auth.Middleware(jwtSecret))
	}

	v1.POST("/apps/generate", s.generateApp)
	v1.POST("/apps/generate/stream", s.generateAppStream)
	v1.POST("/apps/clarify", s.clarifyPrompt)
	v1.GET("/apps/:short_id", s.getApp)
}

// Start runs the server until an interrupt arrives, then shuts down
// gracefully.
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
