//-------------------------------------------------------------------------
//
// pgEdge Dummy Data Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package loadtest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-dummydata/internal/datagen"
	"github.com/pgEdge/pgedge-dummydata/internal/httpapi"
)

// fakeBackend serves both the gen and api prefixes and counts requests by
// path.
type fakeBackend struct {
	mu         sync.Mutex
	hits       map[string]int
	posted     []map[string]int
	maxProduct int
	statsDown  bool

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
	delay       time.Duration
}

func newFakeBackend(maxProduct int) *fakeBackend {
	return &fakeBackend{hits: make(map[string]int), maxProduct: maxProduct}
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		cur := b.maxInFlight.Load()
		if n <= cur || b.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if b.delay > 0 {
		time.Sleep(b.delay)
	}

	b.mu.Lock()
	b.hits[r.Method+" "+r.URL.Path]++
	b.mu.Unlock()

	if r.Header.Get(httpapi.RequestIDHeader) == "" {
		http.Error(w, "missing request id", http.StatusBadRequest)
		return
	}

	switch {
	case r.URL.Path == "/gen/v1/stats":
		if b.statsDown {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, map[string]int{
			"maxCustomer": 1, "maxMerchant": 1, "maxCo": 1, "maxProduct": b.maxProduct,
		})
	case r.URL.Path == "/gen/v1/dummy-data":
		var body map[string]int
		if !httpapi.IsJSON(r) || json.NewDecoder(r.Body).Decode(&body) != nil {
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.posted = append(b.posted, body)
		b.mu.Unlock()
		httpapi.WriteMessage(w, http.StatusOK, "ok")
	case strings.HasPrefix(r.URL.Path, "/api/"):
		httpapi.WriteJSON(w, http.StatusOK, map[string]any{"total": 0, "data": []any{}})
	default:
		http.NotFound(w, r)
	}
}

func (b *fakeBackend) count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[key]
}

func (b *fakeBackend) productReads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for k, v := range b.hits {
		if strings.HasPrefix(k, "GET /api/v1/products/") {
			n += v
		}
	}
	return n
}

func newTestClient(srv *httptest.Server, orderReads, maxInFlight int) *Client {
	return New(Config{
		GenURL:      srv.URL + "/gen/",
		APIURL:      srv.URL + "/api",
		OrderReads:  orderReads,
		MaxInFlight: maxInFlight,
		Faker:       datagen.NewFakerWithSeed(7),
	})
}

func TestRunScenario(t *testing.T) {
	backend := newFakeBackend(4)
	srv := httptest.NewServer(backend)
	defer srv.Close()

	c := newTestClient(srv, 10, 0)
	s, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, s.Waves)
	assert.Equal(t, int64(4), s.MaxProduct)
	assert.Equal(t, int64(0), s.Failed)

	// Wave 1: 5 calls, wave 2: 3 calls, wave 3: maxProduct + orderReads
	assert.Equal(t, int64(5+3+4+10), s.Total)
	assert.Equal(t, 1, backend.count("POST /gen/v1/dummy-data"))
	assert.Equal(t, 2, backend.count("GET /gen/v1/stats"))
	assert.Equal(t, 1+10, backend.count("GET /api/v1/orders"))
	assert.Equal(t, 1, backend.count("GET /api/v1/products"))
	assert.Equal(t, 1, backend.count("GET /api/v1/restock"))
	assert.Equal(t, 2+4, backend.productReads())
	for id := 1; id <= 4; id++ {
		assert.GreaterOrEqual(t, backend.count("GET /api/v1/products/"+strconv.Itoa(id)), 1)
	}
	assert.Positive(t, s.Elapsed)

	endpoints := make(map[string]int64)
	for _, e := range s.Endpoints {
		endpoints[e.Endpoint] = e.Count
	}
	assert.Equal(t, int64(11), endpoints["GET /v1/orders"])
	assert.Equal(t, int64(6), endpoints["GET /v1/products/{id}"])
	assert.Equal(t, int64(2), endpoints["GET /v1/stats"])
	PrintSummary(s)
}

func TestInsertCountsWithinRanges(t *testing.T) {
	c := New(Config{GenURL: "http://x", APIURL: "http://y"})
	ranges := map[string][2]int{
		"customerOrders": {1, 10},
		"productOrders":  {1, 15},
		"customers":      {1, 3},
		"merchants":      {1, 3},
		"products":       {1, 5},
	}
	for i := 0; i < 100; i++ {
		counts := c.InsertCounts()
		require.Len(t, counts, len(ranges))
		for k, r := range ranges {
			assert.GreaterOrEqual(t, counts[k], r[0], k)
			assert.LessOrEqual(t, counts[k], r[1], k)
		}
	}
}

func TestRunPostsJSONCounts(t *testing.T) {
	backend := newFakeBackend(0)
	srv := httptest.NewServer(backend)
	defer srv.Close()

	_, err := newTestClient(srv, 0, 0).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, backend.posted, 1)
	assert.Contains(t, backend.posted[0], "customers")
	assert.Contains(t, backend.posted[0], "productOrders")
}

func TestRunStatsUnavailable(t *testing.T) {
	backend := newFakeBackend(9)
	backend.statsDown = true
	srv := httptest.NewServer(backend)
	defer srv.Close()

	s, err := newTestClient(srv, 2, 0).Run(context.Background())
	require.NoError(t, err)

	// No bounds known: the last wave only reads orders
	assert.Equal(t, int64(0), s.MaxProduct)
	assert.Equal(t, int64(2), s.Failed)
	assert.Equal(t, 2, backend.productReads())
	assert.Equal(t, 1+2, backend.count("GET /api/v1/orders"))
}

func TestRunWaveFailedCallYieldsEmptyResult(t *testing.T) {
	backend := newFakeBackend(1)
	srv := httptest.NewServer(backend)
	defer srv.Close()

	c := newTestClient(srv, 0, 0)
	results := c.RunWave(context.Background(), 1, []Call{
		{Endpoint: "missing", Method: http.MethodGet, URL: srv.URL + "/nope"},
		{Endpoint: "GET /v1/stats", Method: http.MethodGet, URL: srv.URL + "/gen/v1/stats"},
		{Endpoint: "unreachable", Method: http.MethodGet, URL: "http://127.0.0.1:1/"},
	})

	require.Len(t, results, 3)
	assert.Empty(t, results[0])
	maxProduct, ok := results[1].Int("maxProduct")
	assert.True(t, ok)
	assert.Equal(t, int64(1), maxProduct)
	assert.Empty(t, results[2])
}

func TestRunWaveRespectsMaxInFlight(t *testing.T) {
	backend := newFakeBackend(0)
	backend.delay = 20 * time.Millisecond
	srv := httptest.NewServer(backend)
	defer srv.Close()

	c := newTestClient(srv, 0, 2)
	calls := make([]Call, 10)
	for i := range calls {
		calls[i] = Call{Endpoint: "GET /v1/orders", Method: http.MethodGet, URL: srv.URL + "/api/v1/orders"}
	}
	c.RunWave(context.Background(), 1, calls)

	assert.LessOrEqual(t, backend.maxInFlight.Load(), int64(2))
	assert.Equal(t, 10, backend.count("GET /api/v1/orders"))
}

func TestRequestTimeout(t *testing.T) {
	backend := newFakeBackend(0)
	backend.delay = 200 * time.Millisecond
	srv := httptest.NewServer(backend)
	defer srv.Close()

	c := New(Config{
		GenURL:         srv.URL + "/gen",
		APIURL:         srv.URL + "/api",
		RequestTimeout: 20 * time.Millisecond,
	})
	res := c.Do(context.Background(), Call{Endpoint: "slow", Method: http.MethodGet, URL: srv.URL + "/api/v1/orders"})
	assert.Empty(t, res)
	assert.Equal(t, int64(1), c.failedCalls.Load())
}

func TestRunCancelled(t *testing.T) {
	backend := newFakeBackend(3)
	srv := httptest.NewServer(backend)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := newTestClient(srv, 5, 0).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, s.Waves)
}

func TestResultInt(t *testing.T) {
	r := Result{"n": float64(12), "s": "x"}
	n, ok := r.Int("n")
	assert.True(t, ok)
	assert.Equal(t, int64(12), n)

	_, ok = r.Int("s")
	assert.False(t, ok)
	_, ok = r.Int("missing")
	assert.False(t, ok)
}
