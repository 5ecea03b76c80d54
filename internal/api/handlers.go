package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/appforge/internal/pipeline"
	"github.com/appforge/internal/progress"
	"github.com/appforge/internal/store"
)

// GenerateRequest is the caller-facing generation request.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

// ClarifyRequest asks whether a prompt is specific enough to build from.
type ClarifyRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) generateApp(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	// the route timeout is the non-streaming caller's whole-request bound;
	// the pipeline's own stage timeouts are tighter
	ctx, cancel := context.WithTimeout(c.Request().Context(), s.routeTimeout)
	defer cancel()

	result, err := s.orchestrator.GenerateFromPrompt(ctx, req.Prompt, req.Model, nil)
	if err != nil {
		var rej *pipeline.RejectionError
		if errors.As(err, &rej) {
			return echo.NewHTTPError(http.StatusBadRequest, rej.Reason)
		}
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "timed out") {
			return echo.NewHTTPError(http.StatusGatewayTimeout, "generation timed out")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "generation failed")
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) generateAppStream(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	flusher, _ := resp.Writer.(http.Flusher)
	sink := newSSESink(resp, flusher)

	// a disconnect stops event delivery, not the generation itself: cost
	// committed to the provider is recorded whether or not anyone listens
	clientCtx := c.Request().Context()
	go func() {
		<-clientCtx.Done()
		sink.disconnect()
	}()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(clientCtx), s.routeTimeout)
	defer cancel()

	// GenerateFromPrompt terminates the stream with a done or error event
	s.orchestrator.GenerateFromPrompt(ctx, req.Prompt, req.Model, sink.emit)
	return nil
}

func (s *Server) clarifyPrompt(c echo.Context) error {
	var req ClarifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	result, err := s.orchestrator.Clarify(c.Request().Context(), req.Prompt)
	if err != nil {
		var rej *pipeline.RejectionError
		if errors.As(err, &rej) {
			return echo.NewHTTPError(http.StatusBadRequest, rej.Reason)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "clarification failed")
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) getApp(c echo.Context) error {
	if s.store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "persistence not configured")
	}
	app, err := s.store.GetAppByShortID(c.Request().Context(), c.Param("short_id"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "app not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load app")
	}
	return c.JSON(http.StatusOK, app)
}

// sseSink serializes progress events onto one SSE response. After a client
// disconnect it silently drops further events.
type sseSink struct {
	mu           sync.Mutex
	resp         *echo.Response
	flusher      http.Flusher
	disconnected bool
}

func newSSESink(resp *echo.Response, flusher http.Flusher) *sseSink {
	return &sseSink{resp: resp, flusher: flusher}
}

func (s *sseSink) emit(ev progress.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disconnected {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(s.resp, "event: %s\ndata: %s\n\n", ev.Type, payload)
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

func (s *sseSink) disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnected = true
}
