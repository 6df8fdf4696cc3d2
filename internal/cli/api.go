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

	"github.com/pgEdge/pgedge-dummydata/internal/catalog"
	"github.com/pgEdge/pgedge-dummydata/internal/db"
	"github.com/pgEdge/pgedge-dummydata/internal/logging"
)

var (
	apiListen       string
	apiDefaultLimit int
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run the catalog API",
	Long: `Run the HTTP API that reads and maintains the order schema.

Endpoints:
  GET    /v1/products        list products (limit, offset)
  GET    /v1/products/{id}   get one product
  PATCH  /v1/products/{id}   set stock, body {"amount": 10}
  DELETE /v1/products/{id}   delete a product
  GET    /v1/orders          list orders with lines and checkout total
  DELETE /v1/orders/{id}     delete an order
  GET    /v1/restock         products whose orders exceed stock

Example:
  pgedge-dummydata api --listen :8081`,
	RunE: runAPI,
}

func init() {
	apiCmd.Flags().StringVar(&apiListen, "listen", "",
		"listen address (default :8081)")
	apiCmd.Flags().IntVar(&apiDefaultLimit, "default-limit", 0,
		"page size when a request has no usable limit (default 10)")
}

func runAPI(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if apiListen != "" {
		cfg.API.Listen = apiListen
	}
	if apiDefaultLimit > 0 {
		cfg.API.DefaultLimit = apiDefaultLimit
	}

	// Validate configuration
	if err := cfg.ValidateAPI(); err != nil {
		return err
	}

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.ConnString(), int32(cfg.Database.MaxConns))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	h := catalog.NewHandler(catalog.NewPgRepository(pool), cfg.API.DefaultLimit)

	logging.Info().
		Int("default_limit", cfg.API.DefaultLimit).
		Msg("Starting catalog API")

	if err := h.Run(ctx, cfg.API.Listen); err != nil {
		return fmt.Errorf("api error: %w", err)
	}
	return nil
}
