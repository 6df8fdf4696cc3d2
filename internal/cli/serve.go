//-------------------------------------------------------------------------
//
// pgEdge Dummy Data Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-dummydata/internal/datagen"
	"github.com/pgEdge/pgedge-dummydata/internal/db"
	"github.com/pgEdge/pgedge-dummydata/internal/dummydata"
	"github.com/pgEdge/pgedge-dummydata/internal/logging"
	"github.com/pgEdge/pgedge-dummydata/internal/server"
	"github.com/pgEdge/pgedge-dummydata/internal/stats"
)

var (
	serveListen           string
	serveStatsRefresh     int
	serveEmailProbability float64
	serveBatchSize        int
	serveMaxRowsPerKind   int
	serveNoEnsureSchema   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dummy-data server",
	Long: `Run the HTTP server that inserts random rows on request.

Endpoints:
  GET  /ping            liveness check
  GET  /v1/stats        current maximum ids of the referenced tables
  POST /v1/dummy-data   insert rows, e.g. {"customers": 3, "productOrders": 10}

Example:
  pgedge-dummydata serve --listen :8082`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "",
		"listen address (default :8082)")
	serveCmd.Flags().IntVar(&serveStatsRefresh, "stats-refresh-every", 0,
		"refresh bounds on every Nth insertion request (default 5)")
	serveCmd.Flags().Float64Var(&serveEmailProbability, "email-probability", -1,
		"probability that a generated customer has an email (default 0.5)")
	serveCmd.Flags().IntVar(&serveBatchSize, "batch-size", 0,
		"order lines per INSERT statement (default 1000)")
	serveCmd.Flags().IntVar(&serveMaxRowsPerKind, "max-rows-per-kind", 0,
		"largest count accepted per kind in one request (default 100000)")
	serveCmd.Flags().BoolVar(&serveNoEnsureSchema, "no-ensure-schema", false,
		"do not create the schema on startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if serveListen != "" {
		cfg.Server.Listen = serveListen
	}
	if serveStatsRefresh > 0 {
		cfg.Server.StatsRefreshEvery = serveStatsRefresh
	}
	if serveEmailProbability >= 0 {
		cfg.Server.EmailProbability = serveEmailProbability
	}
	if serveBatchSize > 0 {
		cfg.Server.BatchSize = serveBatchSize
	}
	if serveMaxRowsPerKind > 0 {
		cfg.Server.MaxRowsPerKind = serveMaxRowsPerKind
	}
	if serveNoEnsureSchema {
		cfg.Server.EnsureSchema = false
	}

	// Validate configuration
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.ConnString(), int32(cfg.Database.MaxConns))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if cfg.Server.EnsureSchema {
		ddl, err := db.LoadSchema(cfg.Init.SchemaFile)
		if err != nil {
			return err
		}
		if _, err := db.EnsureSchema(ctx, pool, ddl); err != nil {
			return err
		}
	}

	tracker := stats.NewTracker(pool)
	if _, err := tracker.Refresh(ctx); err != nil {
		logging.Warn().Err(err).Msg("Starting with initial bounds")
	}

	batchCfg := datagen.DefaultBatchConfig()
	batchCfg.BatchSize = cfg.Server.BatchSize

	svc := dummydata.NewService(
		dummydata.NewPgStore(pool, batchCfg),
		dummydata.NewGenerator(datagen.NewFaker(), cfg.Server.EmailProbability),
		tracker,
		cfg.Server.StatsRefreshEvery,
	)

	logging.Info().
		Int("stats_refresh_every", cfg.Server.StatsRefreshEvery).
		Float64("email_probability", cfg.Server.EmailProbability).
		Int("batch_size", cfg.Server.BatchSize).
		Int("max_rows_per_kind", cfg.Server.MaxRowsPerKind).
		Msg("Starting dummy-data server")

	if err := server.New(svc, tracker, cfg.Server.MaxRowsPerKind).Run(ctx, cfg.Server.Listen); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logging.Info().
		Int64("insert_requests", svc.Calls()).
		Msg("Dummy-data server stopped")
	return nil
}
