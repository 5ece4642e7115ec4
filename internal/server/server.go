// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the aggregator over HTTP: the streaming search
// endpoint, its synchronous projection, per-user history, health and
// metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pdiddy/jobstream/internal/auth"
	"github.com/pdiddy/jobstream/internal/history"
	"github.com/pdiddy/jobstream/internal/metrics"
	"github.com/pdiddy/jobstream/internal/search"
)

const recordTimeout = 5 * time.Second

// Options wires a Server. Only Aggregator is required.
type Options struct {
	Aggregator *search.Aggregator
	History    history.Store
	Metrics    *metrics.Collector
	JWTSecret  []byte
	Logger     *slog.Logger
}

// Server is the jobstream HTTP API.
type Server struct {
	echo    *echo.Echo
	agg     *search.Aggregator
	history history.Store
	metrics *metrics.Collector
	logger  *slog.Logger

	// pending tracks history writes that outlive their request.
	pending sync.WaitGroup
}

// New builds the router.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		echo:    echo.New(),
		agg:     opts.Aggregator,
		history: opts.History,
		metrics: opts.Metrics,
		logger:  logger,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "path", v.URIPath, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				attrs = append(attrs, "err", v.Error)
			}
			s.logger.Debug("http request", attrs...)
			return nil
		},
	}))
	e.HTTPErrorHandler = s.handleError

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	api := e.Group("/api", auth.Middleware(opts.JWTSecret))
	api.GET("/search/stream", s.streamSearch)
	api.GET("/search", s.search)
	api.GET("/history", s.listHistory)
	return s
}

// ServeHTTP lets the server be mounted directly or under httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving %s: %w", addr, err)
	}
	return nil
}

// Shutdown stops accepting requests, waits for open ones, then waits for
// pending history writes.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// handleError renders errors as {"error": msg}.
func (s *Server) handleError(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}
	req := c.Request()
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", code, "method", req.Method, "path", req.URL.Path, "err", err)
	}
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}

// record stores a completed run without holding up the response. The write
// is detached from the request so a client closing the connection right
// after complete does not lose it.
func (s *Server) record(ctx context.Context, q search.Query, total int) {
	if s.history == nil {
		return
	}
	user, _ := auth.CurrentUser(ctx)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()
		if err := s.history.RecordSearch(ctx, user, q, total); err != nil {
			s.logger.Warn("recording search history", "user", user, "err", err)
		}
	}()
}
