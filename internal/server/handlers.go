// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pdiddy/jobstream/internal/auth"
	"github.com/pdiddy/jobstream/internal/search"
	"github.com/pdiddy/jobstream/internal/stream"
)

// streamSearch runs one search and writes its events as SSE. Once the first
// event is written the response is committed; run failures then travel as
// the error event rather than an HTTP status.
func (s *Server) streamSearch(c echo.Context) error {
	q, err := parseQuery(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	em, err := stream.NewEmitter(c.Response(), cancel)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if s.metrics != nil {
		s.metrics.StreamOpened()
		defer s.metrics.StreamClosed()
	}

	sum, err := s.agg.Run(ctx, q, em)
	var re *search.RunError
	switch {
	case err == nil:
		s.record(ctx, q, sum.TotalJobs)
	case errors.As(err, &re):
		// Delivered to the client as the error event.
	default:
		// Client went away or the connection broke; nothing left to send.
		s.logger.Debug("stream ended early", "run_id", sum.RunID, "err", err)
	}
	return nil
}

// search runs one search to completion and returns the requested page.
func (s *Server) search(c echo.Context) error {
	q, err := parseQuery(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	res, err := search.Collect(ctx, s.agg, q)
	if err != nil {
		var re *search.RunError
		switch {
		case errors.Is(err, search.ErrQuotaExceeded):
			return echo.NewHTTPError(http.StatusTooManyRequests, err.Error())
		case errors.As(err, &re):
			return echo.NewHTTPError(http.StatusBadRequest, re.Error())
		}
		return err
	}
	s.record(ctx, q, res.Pagination.Total)
	return c.JSON(http.StatusOK, res)
}

// listHistory returns the caller's recent searches, newest first.
func (s *Server) listHistory(c echo.Context) error {
	ctx := c.Request().Context()
	user, ok := auth.CurrentUser(ctx)
	if !ok || s.history == nil {
		return c.JSON(http.StatusOK, []any{})
	}
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		limit = n
	}
	records, err := s.history.ListHistory(ctx, user, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}

// parseQuery reads the search parameters. Only malformed values are
// rejected here; semantic checks belong to the run so that a streaming
// client sees them as the error event.
func parseQuery(c echo.Context) (search.Query, error) {
	q := search.Query{
		Keywords:  c.QueryParam("keywords"),
		Location:  c.QueryParam("location"),
		Platforms: splitList(c.QueryParam("platforms")),
		Exclude:   splitList(c.QueryParam("exclude")),
	}
	if v := c.QueryParam("remote"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return q, echo.NewHTTPError(http.StatusBadRequest, "remote must be true or false")
		}
		q.Remote = b
	}
	var err error
	if q.Page, err = intParam(c, "page"); err != nil {
		return q, err
	}
	if q.PerPage, err = intParam(c, "per_page"); err != nil {
		return q, err
	}
	return q, nil
}

func intParam(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be an integer")
	}
	return n, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
