//-------------------------------------------------------------------------
//
// pgEdge Dummy Data Generator
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package loadtest drives the dummy-data server and the catalog API with
// waves of concurrent requests.
package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pgEdge/pgedge-dummydata/internal/datagen"
	"github.com/pgEdge/pgedge-dummydata/internal/httpapi"
	"github.com/pgEdge/pgedge-dummydata/internal/logging"
)

// DefaultOrderReads is the number of order list reads in the last wave.
const DefaultOrderReads = 100

// Config configures a load run.
type Config struct {
	GenURL string // Base URL of the dummy-data server
	APIURL string // Base URL of the catalog API

	OrderReads     int           // Order list reads added to the last wave
	MaxInFlight    int           // Concurrent requests per wave (0 = unbounded)
	RequestTimeout time.Duration // Per-request timeout (0 = none)

	// HTTPClient replaces the default tuned client when set.
	HTTPClient *http.Client

	// Faker draws the insertion counts; a random one is used when nil.
	Faker *datagen.Faker
}

// Call is one HTTP request within a wave.
type Call struct {
	Endpoint string // Metric label, e.g. "GET /v1/products/{id}"
	Method   string
	URL      string
	Body     any
}

// Result is the decoded JSON object of a response. Failed calls and
// non-object bodies yield an empty Result.
type Result map[string]any

// Int returns the integer value stored under key, if any.
func (r Result) Int(key string) (int64, bool) {
	f, ok := r[key].(float64)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// Client runs load scenarios.
type Client struct {
	genURL      string
	apiURL      string
	orderReads  int
	maxInFlight int
	http        *http.Client
	faker       *datagen.Faker

	// Metrics
	totalCalls      atomic.Int64
	failedCalls     atomic.Int64
	totalDurationNs atomic.Int64
	endpointMetrics sync.Map // map[string]*endpointMetric
}

type endpointMetric struct {
	count      atomic.Int64
	durationNs atomic.Int64
	errors     atomic.Int64
}

// EndpointSummary holds the metrics of one endpoint.
type EndpointSummary struct {
	Endpoint     string
	Count        int64
	Errors       int64
	AvgLatencyMs float64
}

// Summary describes a finished run.
type Summary struct {
	Elapsed    time.Duration
	Waves      int
	Total      int64
	Failed     int64
	MaxProduct int64
	Endpoints  []EndpointSummary
}

// New creates a client.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        1000,
				MaxIdleConnsPerHost: 1000,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if cfg.RequestTimeout > 0 {
		c := *hc
		c.Timeout = cfg.RequestTimeout
		hc = &c
	}
	faker := cfg.Faker
	if faker == nil {
		faker = datagen.NewFaker()
	}
	return &Client{
		genURL:      strings.TrimRight(cfg.GenURL, "/"),
		apiURL:      strings.TrimRight(cfg.APIURL, "/"),
		orderReads:  cfg.OrderReads,
		maxInFlight: cfg.MaxInFlight,
		http:        hc,
		faker:       faker,
	}
}

// InsertCounts draws the row counts posted in the first wave.
func (c *Client) InsertCounts() map[string]int {
	return map[string]int{
		"customerOrders": c.faker.Int(1, 10),
		"productOrders":  c.faker.Int(1, 15),
		"customers":      c.faker.Int(1, 3),
		"merchants":      c.faker.Int(1, 3),
		"products":       c.faker.Int(1, 5),
	}
}

// Run executes three waves. The first inserts data and reads a few
// resources; the second lists products and restock and reads stats; the
// third reads every product up to the reported maximum id plus OrderReads
// order listings. Failed calls are counted and do not stop the run; only
// cancellation of ctx does.
func (c *Client) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	logging.Info().
		Str("gen_url", c.genURL).
		Str("api_url", c.apiURL).
		Int("max_in_flight", c.maxInFlight).
		Msg("Starting load run")

	statsCall := Call{Endpoint: "GET /v1/stats", Method: http.MethodGet, URL: c.genURL + "/v1/stats"}

	first := c.RunWave(ctx, 1, []Call{
		{Endpoint: "POST /v1/dummy-data", Method: http.MethodPost, URL: c.genURL + "/v1/dummy-data", Body: c.InsertCounts()},
		{Endpoint: "GET /v1/orders", Method: http.MethodGet, URL: c.apiURL + "/v1/orders"},
		{Endpoint: "GET /v1/products/{id}", Method: http.MethodGet, URL: c.apiURL + "/v1/products/3"},
		{Endpoint: "GET /v1/products/{id}", Method: http.MethodGet, URL: c.apiURL + "/v1/products/5"},
		statsCall,
	})
	if err := ctx.Err(); err != nil {
		return c.summary(start, 1, 0), err
	}

	second := c.RunWave(ctx, 2, []Call{
		{Endpoint: "GET /v1/products", Method: http.MethodGet, URL: c.apiURL + "/v1/products"},
		{Endpoint: "GET /v1/restock", Method: http.MethodGet, URL: c.apiURL + "/v1/restock"},
		statsCall,
	})
	if err := ctx.Err(); err != nil {
		return c.summary(start, 2, 0), err
	}

	maxProduct, ok := second[2].Int("maxProduct")
	if !ok {
		maxProduct, _ = first[4].Int("maxProduct")
	}
	maxProduct = max(0, maxProduct)

	c.RunWave(ctx, 3, c.readCalls(maxProduct))
	if err := ctx.Err(); err != nil {
		return c.summary(start, 3, maxProduct), err
	}

	return c.summary(start, 3, maxProduct), nil
}

func (c *Client) readCalls(maxProduct int64) []Call {
	calls := make([]Call, 0, int(maxProduct)+c.orderReads)
	for id := int64(1); id <= maxProduct; id++ {
		calls = append(calls, Call{
			Endpoint: "GET /v1/products/{id}",
			Method:   http.MethodGet,
			URL:      fmt.Sprintf("%s/v1/products/%d", c.apiURL, id),
		})
	}
	for i := 0; i < c.orderReads; i++ {
		calls = append(calls, Call{Endpoint: "GET /v1/orders", Method: http.MethodGet, URL: c.apiURL + "/v1/orders"})
	}
	return calls
}

// RunWave issues calls concurrently and waits for all of them. The result
// at index i belongs to calls[i].
func (c *Client) RunWave(ctx context.Context, wave int, calls []Call) []Result {
	results := make([]Result, len(calls))
	start := time.Now()

	var g errgroup.Group
	if c.maxInFlight > 0 {
		g.SetLimit(c.maxInFlight)
	}
	for i, call := range calls {
		g.Go(func() error {
			results[i] = c.Do(ctx, call)
			return nil
		})
	}
	_ = g.Wait()

	logging.Info().
		Int("wave", wave).
		Int("calls", len(calls)).
		Dur("elapsed", time.Since(start)).
		Msg("Wave complete")
	return results
}

// Do performs a single call and records its metrics. Transport errors,
// error statuses and undecodable bodies all yield an empty Result.
func (c *Client) Do(ctx context.Context, call Call) Result {
	start := time.Now()
	res, err := c.do(ctx, call)
	elapsed := time.Since(start)

	c.totalCalls.Add(1)
	c.totalDurationNs.Add(elapsed.Nanoseconds())
	m := c.getOrCreateEndpointMetric(call.Endpoint)
	m.count.Add(1)
	m.durationNs.Add(elapsed.Nanoseconds())

	if err != nil {
		c.failedCalls.Add(1)
		m.errors.Add(1)
		logging.Debug().
			Err(err).
			Str("endpoint", call.Endpoint).
			Str("url", call.URL).
			Msg("Call failed")
		return Result{}
	}
	return res
}

func (c *Client) do(ctx context.Context, call Call) (Result, error) {
	var body io.Reader
	if call.Body != nil {
		data, err := json.Marshal(call.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, call.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set(httpapi.RequestIDHeader, uuid.NewString())
	req.Header.Set("Accept", "application/json")
	if call.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	res := Result{}
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, nil
	}
	return res, nil
}

func (c *Client) getOrCreateEndpointMetric(name string) *endpointMetric {
	if m, ok := c.endpointMetrics.Load(name); ok {
		return m.(*endpointMetric)
	}

	m := &endpointMetric{}
	actual, _ := c.endpointMetrics.LoadOrStore(name, m)
	return actual.(*endpointMetric)
}

func (c *Client) summary(start time.Time, waves int, maxProduct int64) Summary {
	s := Summary{
		Elapsed:    time.Since(start),
		Waves:      waves,
		Total:      c.totalCalls.Load(),
		Failed:     c.failedCalls.Load(),
		MaxProduct: maxProduct,
	}
	c.endpointMetrics.Range(func(key, value any) bool {
		m := value.(*endpointMetric)
		es := EndpointSummary{
			Endpoint: key.(string),
			Count:    m.count.Load(),
			Errors:   m.errors.Load(),
		}
		if es.Count > 0 {
			es.AvgLatencyMs = float64(m.durationNs.Load()) / float64(es.Count) / 1e6
		}
		s.Endpoints = append(s.Endpoints, es)
		return true
	})
	sort.Slice(s.Endpoints, func(i, j int) bool {
		return s.Endpoints[i].Endpoint < s.Endpoints[j].Endpoint
	})
	return s
}

// PrintSummary logs the run totals and per-endpoint statistics.
func PrintSummary(s Summary) {
	var avgLatencyMs float64
	for _, e := range s.Endpoints {
		avgLatencyMs += e.AvgLatencyMs * float64(e.Count)
	}
	if s.Total > 0 {
		avgLatencyMs /= float64(s.Total)
	}

	logging.Info().
		Dur("elapsed", s.Elapsed).
		Int("waves", s.Waves).
		Int64("total_calls", s.Total).
		Int64("failed", s.Failed).
		Int64("max_product", s.MaxProduct).
		Float64("avg_latency_ms", avgLatencyMs).
		Msg("Final summary")

	logging.Info().Msg("Per-endpoint statistics:")
	for _, e := range s.Endpoints {
		logging.Info().
			Str("endpoint", e.Endpoint).
			Int64("count", e.Count).
			Int64("errors", e.Errors).
			Float64("avg_latency_ms", e.AvgLatencyMs).
			Msg("")
	}
}
