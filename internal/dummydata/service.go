//-------------------------------------------------------------------------
//
// pgEdge Dummy Data Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package dummydata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/pgEdge/pgedge-dummydata/internal/logging"
	"github.com/pgEdge/pgedge-dummydata/internal/stats"
)

var (
	// ErrInvalidRequest is returned when the request body is rejected as a whole.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNothingInserted is returned when no kind was processed.
	ErrNothingInserted = errors.New("dummy data was not inserted")
)

// DefaultMaxRowsPerKind caps the rows a single request may ask for per kind.
const DefaultMaxRowsPerKind = 100000

// Request is a validated insertion request.
type Request struct {
	// Counts holds the number of rows to generate per recognized kind.
	Counts map[Kind]int

	// Unsupported lists unrecognized keys in sorted order.
	Unsupported []string
}

// ParseRequest decodes a JSON object mapping kind names to row counts.
// Recognized keys must hold a positive JSON integer no greater than maxRows
// (DefaultMaxRowsPerKind when maxRows <= 0). Unrecognized keys are recorded
// without looking at their values.
func ParseRequest(body []byte, maxRows int) (Request, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRowsPerKind
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if raw == nil {
		return Request{}, fmt.Errorf("%w: body must be a JSON object", ErrInvalidRequest)
	}

	req := Request{Counts: make(map[Kind]int)}
	for key, value := range raw {
		kind, ok := ParseKind(key)
		if !ok {
			req.Unsupported = append(req.Unsupported, key)
			continue
		}
		n, err := parseCount(value, maxRows)
		if err != nil {
			return Request{}, fmt.Errorf("%w: %s %v", ErrInvalidRequest, key, err)
		}
		req.Counts[kind] = n
	}
	sort.Strings(req.Unsupported)
	return req, nil
}

func parseCount(value json.RawMessage, maxRows int) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, err
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("must be an integer")
	}
	n, err := num.Int64()
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	if n > int64(maxRows) {
		return 0, fmt.Errorf("must not exceed %d", maxRows)
	}
	return int(n), nil
}

// Result summarizes one insertion request.
type Result struct {
	Processed   []string         `json:"processed"`
	Unsupported []string         `json:"unsupported"`
	Failed      []string         `json:"failed"`
	Rows        map[string]int64 `json:"rows"`
}

// Complete reports whether every requested key was inserted.
func (r Result) Complete() bool {
	return len(r.Processed) > 0 && len(r.Unsupported) == 0 && len(r.Failed) == 0
}

// Message renders the summary line returned to clients.
func (r Result) Message() string {
	if r.Complete() {
		return "Dummy data inserted successfully"
	}
	parts := []string{"Inserted: " + strings.Join(r.Processed, ", ")}
	if len(r.Unsupported) > 0 {
		parts = append(parts, "Unsupported attributes: "+strings.Join(r.Unsupported, ", "))
	}
	if len(r.Failed) > 0 {
		parts = append(parts, "Failed: "+strings.Join(r.Failed, ", "))
	}
	return strings.Join(parts, ". ")
}

// Service generates and stores rows for insertion requests.
type Service struct {
	store        Store
	gen          *Generator
	tracker      *stats.Tracker
	refreshEvery int64

	calls atomic.Int64
}

// NewService creates a service. Bounds are refreshed on the first call and
// then on every refreshEvery-th call.
func NewService(store Store, gen *Generator, tracker *stats.Tracker, refreshEvery int) *Service {
	return &Service{
		store:        store,
		gen:          gen,
		tracker:      tracker,
		refreshEvery: int64(max(1, refreshEvery)),
	}
}

// Calls returns the number of Insert calls so far.
func (s *Service) Calls() int64 {
	return s.calls.Load()
}

// Insert processes every recognized kind of req in dependency order. A kind
// that fails is reported in Result.Failed without affecting the others.
// ErrNothingInserted is returned along with the result when no kind succeeded.
func (s *Service) Insert(ctx context.Context, req Request) (Result, error) {
	call := s.calls.Add(1) - 1
	if call%s.refreshEvery == 0 {
		if _, err := s.tracker.Refresh(ctx); err != nil {
			logging.Warn().
				Err(err).
				Time("refreshed_at", s.tracker.RefreshedAt()).
				Msg("Using stale bounds")
		}
	}
	bounds := s.tracker.Get()

	res := Result{
		Processed:   []string{},
		Unsupported: append([]string{}, req.Unsupported...),
		Failed:      []string{},
		Rows:        make(map[string]int64),
	}

	for _, kind := range Kinds {
		count, ok := req.Counts[kind]
		if !ok {
			continue
		}
		n, err := s.insertKind(ctx, kind, count, bounds)
		if err != nil {
			logging.Error().Err(err).Str("kind", kind.String()).Int("count", count).Msg("Insert failed")
			res.Failed = append(res.Failed, kind.String())
			continue
		}
		res.Processed = append(res.Processed, kind.String())
		res.Rows[kind.String()] = n
	}

	if len(res.Processed) == 0 {
		return res, ErrNothingInserted
	}

	logging.Debug().
		Strs("processed", res.Processed).
		Strs("unsupported", res.Unsupported).
		Strs("failed", res.Failed).
		Msg("Insert request complete")
	return res, nil
}

func (s *Service) insertKind(ctx context.Context, kind Kind, count int, b stats.Bounds) (int64, error) {
	switch kind {
	case Customers:
		return s.store.InsertCustomers(ctx, s.gen.Customers(count))
	case Merchants:
		return s.store.InsertMerchants(ctx, s.gen.Merchants(count))
	case Products:
		return s.store.InsertProducts(ctx, s.gen.Products(count, b))
	case CustomerOrders:
		return s.store.InsertCustomerOrders(ctx, s.gen.CustomerOrders(count, b))
	case ProductOrders:
		return s.store.InsertProductOrders(ctx, s.gen.ProductOrders(count, b))
	}
	return 0, fmt.Errorf("unsupported kind %d", kind)
}
