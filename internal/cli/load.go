//-------------------------------------------------------------------------
//
// pgEdge Dummy Data Generator
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-dummydata/internal/loadtest"
	"github.com/pgEdge/pgedge-dummydata/internal/logging"
)

var (
	loadGenURL         string
	loadAPIURL         string
	loadOrderReads     int
	loadMaxInFlight    int
	loadRequestTimeout int
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Drive the servers with waves of concurrent requests",
	Long: `Run one load scenario against the dummy-data server and the catalog API.

The scenario has three waves; each wave waits for all of its requests:
  1. insert random rows, list orders, read two products, read stats
  2. list products, list restock, read stats
  3. read every product up to the reported maximum id, plus --order-reads
     order listings

Failed requests are counted and do not stop the run.

Example:
  pgedge-dummydata load --gen-url http://localhost:8080/gen --api-url http://localhost:8080/api
  pgedge-dummydata load --max-in-flight 50 --request-timeout 10`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadGenURL, "gen-url", "",
		"base URL of the dummy-data server")
	loadCmd.Flags().StringVar(&loadAPIURL, "api-url", "",
		"base URL of the catalog API")
	loadCmd.Flags().IntVar(&loadOrderReads, "order-reads", 0,
		"order listings in the last wave (default 100)")
	loadCmd.Flags().IntVar(&loadMaxInFlight, "max-in-flight", 0,
		"concurrent requests per wave (0 = unbounded)")
	loadCmd.Flags().IntVar(&loadRequestTimeout, "request-timeout", 0,
		"per-request timeout in seconds (0 = none)")
}

func runLoad(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if loadGenURL != "" {
		cfg.Load.GenURL = loadGenURL
	}
	if loadAPIURL != "" {
		cfg.Load.APIURL = loadAPIURL
	}
	if cmd.Flags().Changed("order-reads") {
		cfg.Load.OrderReads = loadOrderReads
	}
	if cmd.Flags().Changed("max-in-flight") {
		cfg.Load.MaxInFlight = loadMaxInFlight
	}
	if cmd.Flags().Changed("request-timeout") {
		cfg.Load.RequestTimeout = loadRequestTimeout
	}

	// Validate configuration
	if err := cfg.ValidateLoad(); err != nil {
		return err
	}

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	client := loadtest.New(loadtest.Config{
		GenURL:         cfg.Load.GenURL,
		APIURL:         cfg.Load.APIURL,
		OrderReads:     cfg.Load.OrderReads,
		MaxInFlight:    cfg.Load.MaxInFlight,
		RequestTimeout: time.Duration(cfg.Load.RequestTimeout) * time.Second,
	})

	summary, err := client.Run(ctx)
	loadtest.PrintSummary(summary)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logging.Info().Msg("Load run stopped")
			return nil
		}
		return fmt.Errorf("load run failed: %w", err)
	}
	return nil
}
