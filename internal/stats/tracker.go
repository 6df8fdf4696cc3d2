//-------------------------------------------------------------------------
//
// pgEdge Dummy Data Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package stats tracks the highest primary key of each table that other
// tables reference. Generated foreign keys are drawn from [1, bound].
package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/pgedge-dummydata/internal/logging"
)

// Bounds holds the known maximum id per referenced table. Every field is at
// least 1, even for an empty table.
type Bounds struct {
	MaxCustomer      int64 `json:"maxCustomer"`
	MaxMerchant      int64 `json:"maxMerchant"`
	MaxCustomerOrder int64 `json:"maxCo"`
	MaxProduct       int64 `json:"maxProduct"`
}

// InitialBounds returns the bounds used before the first refresh.
func InitialBounds() Bounds {
	return Bounds{MaxCustomer: 1, MaxMerchant: 1, MaxCustomerOrder: 1, MaxProduct: 1}
}

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// All four maxima come from one statement so a refresh sees a single snapshot.
const boundsSQL = `
SELECT
    COALESCE((SELECT MAX(id) FROM customer), 0),
    COALESCE((SELECT MAX(id) FROM merchant), 0),
    COALESCE((SELECT MAX(id) FROM customer_order), 0),
    COALESCE((SELECT MAX(id) FROM product), 0)
`

// Tracker owns the cached bounds. Reads never touch the database; the cache
// is only as fresh as the last Refresh.
type Tracker struct {
	q Querier

	mu          sync.RWMutex
	bounds      Bounds
	refreshedAt time.Time
}

// NewTracker creates a tracker with initial bounds.
func NewTracker(q Querier) *Tracker {
	return &Tracker{
		q:      q,
		bounds: InitialBounds(),
	}
}

// Get returns the current bounds without refreshing.
func (t *Tracker) Get() Bounds {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.bounds
}

// RefreshedAt returns when the bounds were last refreshed; zero if never.
func (t *Tracker) RefreshedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.refreshedAt
}

// Refresh reloads the bounds from the database. On failure the previous
// bounds are kept and returned along with the error.
func (t *Tracker) Refresh(ctx context.Context) (Bounds, error) {
	var b Bounds
	err := t.q.QueryRow(ctx, boundsSQL).Scan(
		&b.MaxCustomer,
		&b.MaxMerchant,
		&b.MaxCustomerOrder,
		&b.MaxProduct,
	)
	if err != nil {
		return t.Get(), fmt.Errorf("failed to refresh bounds: %w", err)
	}

	b.MaxCustomer = max(1, b.MaxCustomer)
	b.MaxMerchant = max(1, b.MaxMerchant)
	b.MaxCustomerOrder = max(1, b.MaxCustomerOrder)
	b.MaxProduct = max(1, b.MaxProduct)

	t.mu.Lock()
	t.bounds = b
	t.refreshedAt = time.Now()
	t.mu.Unlock()

	logging.Debug().
		Int64("max_customer", b.MaxCustomer).
		Int64("max_merchant", b.MaxMerchant).
		Int64("max_customer_order", b.MaxCustomerOrder).
		Int64("max_product", b.MaxProduct).
		Msg("Refreshed bounds")

	return b, nil
}
