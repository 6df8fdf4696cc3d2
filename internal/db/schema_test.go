//-------------------------------------------------------------------------
//
// pgEdge Dummy Data Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRow returns err from Scan, or stores 1 in the first *int destination.
type fakeRow struct {
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) > 0 {
		if p, ok := dest[0].(*int); ok {
			*p = 1
		}
	}
	return nil
}

// fakeTx records statements. Methods not overridden panic via the nil
// embedded interface.
type fakeTx struct {
	pgx.Tx
	execErr    error
	execs      []string
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tx.execs = append(tx.execs, sql)
	return pgconn.CommandTag{}, tx.execErr
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	if tx.committed {
		return pgx.ErrTxClosed
	}
	tx.rolledBack = true
	return nil
}

type fakeDB struct {
	probeErr error
	tx       *fakeTx
	begins   int
}

func (d *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	d.begins++
	return d.tx, nil
}

func (d *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return d.tx.Exec(ctx, sql, args...)
}

func (d *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (d *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return fakeRow{err: d.probeErr}
}

func TestIsUndefinedTable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"undefined table", &pgconn.PgError{Code: "42P01"}, true},
		{"wrapped", fmt.Errorf("probe: %w", &pgconn.PgError{Code: "42P01"}), true},
		{"other sqlstate", &pgconn.PgError{Code: "28P01"}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUndefinedTable(tt.err); got != tt.want {
				t.Errorf("IsUndefinedTable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadSchema(t *testing.T) {
	ddl, err := LoadSchema("")
	if err != nil {
		t.Fatalf("LoadSchema(\"\") failed: %v", err)
	}
	for _, table := range []string{"customer", "merchant", "product", "customer_order", "product_order"} {
		if !strings.Contains(ddl, "CREATE TABLE IF NOT EXISTS "+table+" ") {
			t.Errorf("Embedded schema is missing table %s", table)
		}
	}

	path := filepath.Join(t.TempDir(), "custom.sql")
	if err := os.WriteFile(path, []byte("CREATE TABLE customer (id INT);"), 0644); err != nil {
		t.Fatalf("Failed to write schema file: %v", err)
	}
	ddl, err = LoadSchema(path)
	if err != nil {
		t.Fatalf("LoadSchema(path) failed: %v", err)
	}
	if ddl != "CREATE TABLE customer (id INT);" {
		t.Errorf("Unexpected schema contents: %q", ddl)
	}

	if _, err := LoadSchema(filepath.Join(t.TempDir(), "missing.sql")); err == nil {
		t.Error("Expected error for missing schema file, got nil")
	}
}

func TestEnsureSchemaCreatesMissingSchema(t *testing.T) {
	fdb := &fakeDB{
		probeErr: &pgconn.PgError{Code: "42P01", Message: `relation "customer" does not exist`},
		tx:       &fakeTx{},
	}

	created, err := EnsureSchema(context.Background(), fdb, "CREATE TABLE x ()")
	if err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	if !created {
		t.Error("Expected schema to be created")
	}
	if !fdb.tx.committed {
		t.Error("Expected transaction to be committed")
	}
	if len(fdb.tx.execs) == 0 || fdb.tx.execs[0] != "CREATE TABLE x ()" {
		t.Errorf("Expected DDL to run first, got %v", fdb.tx.execs)
	}
}

func TestEnsureSchemaExisting(t *testing.T) {
	fdb := &fakeDB{tx: &fakeTx{}}

	created, err := EnsureSchema(context.Background(), fdb, "CREATE TABLE x ()")
	if err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	if created {
		t.Error("Schema should not be recreated")
	}
	if fdb.begins != 0 {
		t.Errorf("Expected no transaction, got %d", fdb.begins)
	}
}

func TestEnsureSchemaEmptyTable(t *testing.T) {
	fdb := &fakeDB{probeErr: pgx.ErrNoRows, tx: &fakeTx{}}

	created, err := EnsureSchema(context.Background(), fdb, "CREATE TABLE x ()")
	if err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	if created {
		t.Error("An empty customer table means the schema exists")
	}
}

func TestEnsureSchemaProbeError(t *testing.T) {
	probeErr := &pgconn.PgError{Code: "28P01", Message: "password authentication failed"}
	fdb := &fakeDB{probeErr: probeErr, tx: &fakeTx{}}

	_, err := EnsureSchema(context.Background(), fdb, "CREATE TABLE x ()")
	if err == nil {
		t.Fatal("Expected probe error, got nil")
	}
	if !errors.Is(err, probeErr) {
		t.Errorf("Expected wrapped probe error, got %v", err)
	}
	if fdb.begins != 0 {
		t.Error("DDL must not run after an unexpected probe error")
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	fdb := &fakeDB{tx: &fakeTx{}}
	want := errors.New("insert failed")

	err := WithTx(context.Background(), fdb, func(tx pgx.Tx) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("Expected callback error, got %v", err)
	}
	if fdb.tx.committed {
		t.Error("Transaction should not be committed")
	}
	if !fdb.tx.rolledBack {
		t.Error("Transaction should be rolled back")
	}
}

func TestWithTxCommits(t *testing.T) {
	fdb := &fakeDB{tx: &fakeTx{}}

	err := WithTx(context.Background(), fdb, func(tx pgx.Tx) error {
		_, err := tx.Exec(context.Background(), "SELECT 1")
		return err
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}
	if !fdb.tx.committed {
		t.Error("Transaction should be committed")
	}
	if fdb.tx.rolledBack {
		t.Error("Committed transaction should not be rolled back")
	}
}
