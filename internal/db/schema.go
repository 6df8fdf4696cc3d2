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
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pgEdge/pgedge-dummydata/internal/logging"
)

// SchemaSQL is the DDL script that creates the order system tables.
//
//go:embed schema.sql
var SchemaSQL string

// undefinedTable is the SQLSTATE PostgreSQL reports for a missing relation.
const undefinedTable = "42P01"

const probeSchemaSQL = `SELECT 1 FROM customer LIMIT 1`

const dropSchemaSQL = `
DROP TABLE IF EXISTS product_order CASCADE;
DROP TABLE IF EXISTS customer_order CASCADE;
DROP TABLE IF EXISTS product CASCADE;
DROP TABLE IF EXISTS merchant CASCADE;
DROP TABLE IF EXISTS customer CASCADE;
`

// IsUndefinedTable reports whether err is PostgreSQL's undefined_table error.
func IsUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}

// SchemaExists probes the customer table. A missing table is reported as
// false; every other failure is returned.
func SchemaExists(ctx context.Context, db DB) (bool, error) {
	var one int
	err := db.QueryRow(ctx, probeSchemaSQL).Scan(&one)
	switch {
	case err == nil, errors.Is(err, pgx.ErrNoRows):
		return true, nil
	case IsUndefinedTable(err):
		return false, nil
	default:
		return false, fmt.Errorf("failed to probe schema: %w", err)
	}
}

// LoadSchema returns the DDL at path, or the embedded script when path is empty.
func LoadSchema(path string) (string, error) {
	if path == "" {
		return SchemaSQL, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read schema file: %w", err)
	}
	return string(data), nil
}

// EnsureSchema creates the schema from ddl unless the customer table already
// exists. It reports whether the DDL was executed. Safe to call on every
// startup.
func EnsureSchema(ctx context.Context, db DB, ddl string) (bool, error) {
	exists, err := SchemaExists(ctx, db)
	if err != nil {
		return false, err
	}
	if exists {
		logging.Info().Msg("Schema already exists")
		return false, nil
	}

	logging.Info().Msg("Creating schema")
	err = WithTx(ctx, db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return SaveMetadata(ctx, tx)
	})
	if err != nil {
		return false, err
	}

	logging.Info().Msg("Schema created")
	return true, nil
}

// DropSchema drops the order system tables and the metadata table.
func DropSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, dropSchemaSQL); err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}
	return DropMetadata(ctx, db)
}
