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
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/pgedge-dummydata/internal/datagen"
	"github.com/pgEdge/pgedge-dummydata/internal/db"
)

// Store persists generated rows. Each call is all-or-nothing and returns the
// number of rows written.
type Store interface {
	InsertCustomers(ctx context.Context, rows []Customer) (int64, error)
	InsertMerchants(ctx context.Context, rows []Merchant) (int64, error)
	InsertProducts(ctx context.Context, rows []Product) (int64, error)
	InsertCustomerOrders(ctx context.Context, rows []CustomerOrder) (int64, error)
	InsertProductOrders(ctx context.Context, rows []ProductOrder) (int64, error)
}

// maxParams is the PostgreSQL limit on bind parameters per statement.
const maxParams = 65535

const productOrderColumns = 3

// PgStore writes rows to PostgreSQL. Plain tables are loaded with COPY; order
// lines go through INSERT so conflicts and dangling keys can be skipped.
type PgStore struct {
	db  db.DB
	cfg datagen.BatchInsertConfig
}

// NewPgStore creates a store on top of a pool or connection.
func NewPgStore(conn db.DB, cfg datagen.BatchInsertConfig) *PgStore {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = datagen.DefaultBatchConfig().BatchSize
	}
	cfg.BatchSize = min(cfg.BatchSize, maxParams/productOrderColumns)
	return &PgStore{db: conn, cfg: cfg}
}

// InsertCustomers implements Store.
func (s *PgStore) InsertCustomers(ctx context.Context, rows []Customer) (int64, error) {
	return s.copyRows(ctx, Customers, []string{"first_name", "last_name", "email"}, len(rows),
		func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.FirstName, r.LastName, r.Email}, nil
		})
}

// InsertMerchants implements Store.
func (s *PgStore) InsertMerchants(ctx context.Context, rows []Merchant) (int64, error) {
	return s.copyRows(ctx, Merchants, []string{"name"}, len(rows),
		func(i int) ([]any, error) {
			return []any{rows[i].Name}, nil
		})
}

// InsertProducts implements Store.
func (s *PgStore) InsertProducts(ctx context.Context, rows []Product) (int64, error) {
	return s.copyRows(ctx, Products, []string{"merchant_id", "price", "amount", "name"}, len(rows),
		func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.MerchantID, r.Price, r.Amount, r.Name}, nil
		})
}

// InsertCustomerOrders implements Store.
func (s *PgStore) InsertCustomerOrders(ctx context.Context, rows []CustomerOrder) (int64, error) {
	return s.copyRows(ctx, CustomerOrders, []string{"customer_id"}, len(rows),
		func(i int) ([]any, error) {
			return []any{rows[i].CustomerID}, nil
		})
}

func (s *PgStore) copyRows(ctx context.Context, kind Kind, columns []string, n int,
	next func(i int) ([]any, error)) (int64, error) {
	if n == 0 {
		return 0, nil
	}

	progress := datagen.NewProgressReporter(kind.Table(), int64(n), s.cfg.ProgressInterval)
	var copied int64
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		copied, err = tx.CopyFrom(ctx, pgx.Identifier{kind.Table()}, columns, pgx.CopyFromSlice(n, next))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s: %w", kind, err)
	}

	progress.Update(copied)
	progress.Done()
	return copied, nil
}

// InsertProductOrders implements Store. Lines whose order or product does not
// exist, or whose (order, product) pair is already taken, are skipped and not
// counted.
func (s *PgStore) InsertProductOrders(ctx context.Context, rows []ProductOrder) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	progress := datagen.NewProgressReporter(ProductOrders.Table(), int64(len(rows)), s.cfg.ProgressInterval)
	var inserted int64
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		for _, c := range datagen.Chunks(len(rows), s.cfg.BatchSize) {
			sql, args := productOrderInsert(rows[c[0]:c[1]])
			tag, err := tx.Exec(ctx, sql, args...)
			if err != nil {
				return err
			}
			inserted += tag.RowsAffected()
			progress.Update(int64(c[1] - c[0]))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s: %w", ProductOrders, err)
	}

	progress.Done()
	return inserted, nil
}

// productOrderInsert builds one INSERT for a batch of order lines.
func productOrderInsert(rows []ProductOrder) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, len(rows)*productOrderColumns)

	sb.WriteString(`INSERT INTO product_order (order_id, product_id, amount)
SELECT v.order_id, v.product_id, v.amount
FROM (VALUES `)
	for i, r := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		p := i * productOrderColumns
		fmt.Fprintf(&sb, "($%d::integer, $%d::integer, $%d::integer)", p+1, p+2, p+3)
		args = append(args, r.OrderID, r.ProductID, r.Amount)
	}
	sb.WriteString(`) AS v(order_id, product_id, amount)
JOIN customer_order co ON co.id = v.order_id
JOIN product p ON p.id = v.product_id
ON CONFLICT (order_id, product_id) DO NOTHING`)

	return sb.String(), args
}
