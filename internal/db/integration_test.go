//-------------------------------------------------------------------------
//
// pgEdge Dummy Data Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

//go:build integration
// +build integration

package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-dummydata/internal/db"
	"github.com/pgEdge/pgedge-dummydata/internal/testutil"
	"github.com/pgEdge/pgedge-dummydata/pkg/version"
)

func TestEnsureSchemaIdempotent(t *testing.T) {
	pool := testutil.SchemaDB(t)
	ctx := context.Background()

	created, err := db.EnsureSchema(ctx, pool, db.SchemaSQL)
	require.NoError(t, err)
	assert.False(t, created, "second run must not execute the DDL")

	exists, err := db.SchemaExists(ctx, pool)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMetadataRecorded(t *testing.T) {
	pool := testutil.SchemaDB(t)
	ctx := context.Background()

	v, err := db.GetMetadataValue(ctx, pool, "schema_version")
	require.NoError(t, err)
	assert.Equal(t, version.SchemaVersion, v)

	v, err = db.GetMetadataValue(ctx, pool, "version")
	require.NoError(t, err)
	assert.Equal(t, version.Version, v)

	_, err = db.GetMetadataValue(ctx, pool, "initialized_at")
	assert.NoError(t, err)
}

func TestDropAndRecreate(t *testing.T) {
	pool := testutil.SchemaDB(t)
	ctx := context.Background()

	require.NoError(t, db.DropSchema(ctx, pool))
	exists, err := db.SchemaExists(ctx, pool)
	require.NoError(t, err)
	assert.False(t, exists)

	created, err := db.EnsureSchema(ctx, pool, db.SchemaSQL)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestEnsureSchemaBadDDLRollsBack(t *testing.T) {
	pool := testutil.SchemaDB(t)
	ctx := context.Background()
	require.NoError(t, db.DropSchema(ctx, pool))

	_, err := db.EnsureSchema(ctx, pool, "CREATE TABLE customer (id SERIAL PRIMARY KEY); SELECT * FROM missing_table;")
	require.Error(t, err)

	exists, err := db.SchemaExists(ctx, pool)
	require.NoError(t, err)
	assert.False(t, exists, "a failed DDL script must leave nothing behind")
}
