//-------------------------------------------------------------------------
//
// pgEdge Dummy Data Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package server exposes the dummy-data insertion service and the bounds
// tracker over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pgEdge/pgedge-dummydata/internal/dummydata"
	"github.com/pgEdge/pgedge-dummydata/internal/httpapi"
	"github.com/pgEdge/pgedge-dummydata/internal/logging"
	"github.com/pgEdge/pgedge-dummydata/internal/stats"
)

// Inserter is implemented by *dummydata.Service.
type Inserter interface {
	Insert(ctx context.Context, req dummydata.Request) (dummydata.Result, error)
}

// BoundsRefresher is implemented by *stats.Tracker. On error Refresh still
// returns the last known bounds.
type BoundsRefresher interface {
	Refresh(ctx context.Context) (stats.Bounds, error)
}

// Server routes dummy-data requests.
type Server struct {
	inserter Inserter
	bounds   BoundsRefresher
	maxRows  int
	router   chi.Router
}

// insertResponse is the body of a successful insertion.
type insertResponse struct {
	Message     string           `json:"message"`
	Processed   []string         `json:"processed"`
	Unsupported []string         `json:"unsupported"`
	Failed      []string         `json:"failed"`
	Rows        map[string]int64 `json:"rows"`
}

// New creates a server and registers its routes. maxRowsPerKind caps each
// requested count; see dummydata.ParseRequest.
func New(inserter Inserter, bounds BoundsRefresher, maxRowsPerKind int) *Server {
	s := &Server{
		inserter: inserter,
		bounds:   bounds,
		maxRows:  maxRowsPerKind,
		router:   httpapi.NewRouter(),
	}
	s.router.Get("/ping", s.handlePing)
	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Post("/dummy-data", s.handleDummyData)
	})
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	return httpapi.Serve(ctx, "dummydata", addr, s.router)
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	httpapi.WriteMessage(w, http.StatusOK, "pong")
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	b, err := s.bounds.Refresh(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("Serving last known bounds")
	}
	httpapi.WriteJSON(w, http.StatusOK, b)
}

func (s *Server) handleDummyData(w http.ResponseWriter, r *http.Request) {
	if !httpapi.IsJSON(r) {
		httpapi.WriteError(w, http.StatusBadRequest, "Request must be JSON")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, httpapi.MaxBodyBytes))
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req, err := dummydata.ParseRequest(body, s.maxRows)
	if err != nil {
		logging.Debug().Err(err).Msg("Rejected dummy-data request")
		httpapi.WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	res, err := s.inserter.Insert(r.Context(), req)
	if errors.Is(err, dummydata.ErrNothingInserted) {
		httpapi.WriteJSON(w, http.StatusInternalServerError, map[string]any{
			"error":       "Dummy data was not inserted",
			"unsupported": res.Unsupported,
			"failed":      res.Failed,
		})
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("Insert failed")
		httpapi.WriteError(w, http.StatusInternalServerError, "Dummy data was not inserted")
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, insertResponse{
		Message:     res.Message(),
		Processed:   res.Processed,
		Unsupported: res.Unsupported,
		Failed:      res.Failed,
		Rows:        res.Rows,
	})
}
