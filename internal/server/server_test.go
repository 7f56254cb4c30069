package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tsp-router/internal/config"
	"tsp-router/internal/distance"
	"tsp-router/internal/export"
	"tsp-router/internal/logging"
	"tsp-router/internal/testutil"
	"tsp-router/internal/tour"
)

const testDepot = "4 N 2nd St Suite 150, San Jose, CA 95113"

// fixedProvider serves the same rows for every request.
type fixedProvider struct {
	rows [][]float64
}

func (p *fixedProvider) Name() string { return "fixed" }

func (p *fixedProvider) Matrix(ctx context.Context, locations []string) (*distance.Matrix, error) {
	dist, err := tour.NewDistanceMatrix(p.rows)
	if err != nil {
		return nil, err
	}
	return &distance.Matrix{Distances: dist, Durations: dist}, nil
}

func newTestServer(t *testing.T) (*Server, *testutil.MockDistanceCache) {
	t.Helper()
	cfg := config.Default()
	cfg.Cache.Backend = config.CacheNone
	cfg.Provider.Name = config.ProviderHaversine

	cache := testutil.NewMockDistanceCache()
	provider := &fixedProvider{rows: [][]float64{
		{0, 2, 9, 10},
		{2, 0, 6, 4},
		{9, 6, 0, 8},
		{10, 4, 8, 0},
	}}
	srv, err := NewWithDeps(cfg, cache, provider, logging.Discard())
	require.NoError(t, err)
	return srv, cache
}

func do(t *testing.T, srv *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func TestGreedyEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/greedy", `{"locations": ["A", "B", "C"]}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Success          bool     `json:"success"`
		OrderedLocations []string `json:"orderedLocations"`
		TotalDistance    float64  `json:"totalDistance"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, []string{testDepot, "A", "C", "B", testDepot}, body.OrderedLocations)
	assert.Equal(t, 23.0, body.TotalDistance)
}

func TestKruskalEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/kruskal", `{"locations": ["A", "B", "C"]}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []interface{}{testDepot, "A", "C", "B", testDepot}, body["orderedLocations"])
	assert.NotContains(t, body, "totalDistance")
}

func TestToursEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/v1/tours/greedy", `{"locations": ["A", "B", "C"]}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "greedy", body["algorithm"])
	assert.Equal(t, 23.0, body["totalDuration"])
	assert.Len(t, body["legs"], 4)

	rr = do(t, srv, http.MethodPost, "/api/v1/tours/christofides", `{"locations": ["A", "B"]}`, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), `"success":false`)
}

func TestInsufficientLocations(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/greedy", `{"locations": []}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":false,"message":"At least two locations are required"}`, rr.Body.String())
}

func TestExportEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/v1/tours/kruskal/export", `{"locations": ["A", "B", "C"]}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, export.ContentType, rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="tour-kruskal.xlsx"`, rr.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 6)
	assert.Equal(t, "C", rows[3][1])
}

func TestHealthAndCacheEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)

	rr = do(t, srv, http.MethodDelete, "/api/v1/cache", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, http.MethodGet, "/greedy", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestIndexAndStatic(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), testDepot)

	rr = do(t, srv, http.MethodGet, "/static/css/app.css", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequestID(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/v1/health", "", nil)
	assert.Len(t, rr.Header().Get(RequestIDHeader), 36)

	rr = do(t, srv, http.MethodGet, "/api/v1/health", "", map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", rr.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodOptions, "/greedy", "", map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))

	rr = do(t, srv, http.MethodPost, "/greedy", `{"locations": ["A", "B", "C"]}`, map[string]string{
		"Origin": "http://evil.example",
	})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestStartAndShutdown(t *testing.T) {
	srv, cache := newTestServer(t)
	srv.addr = "127.0.0.1:0"

	addr, err := srv.Start()
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr + "/api/v1/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.True(t, cache.Closed())
}

func TestOpenCache(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, backend := range []string{config.CacheSQLite, config.CacheFile, config.CacheNone} {
		t.Run(backend, func(t *testing.T) {
			cfg := config.CacheConfig{Backend: backend, Path: dir + "/cache-" + backend}
			cache, err := OpenCache(ctx, cfg, logging.Discard())
			require.NoError(t, err)
			defer cache.Close()

			_, err = cache.Count(ctx)
			assert.NoError(t, err)
		})
	}

	_, err := OpenCache(ctx, config.CacheConfig{Backend: "memcached"}, logging.Discard())
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	cfg := config.Default().Provider
	for name, want := range map[string]string{
		config.ProviderGoogle:    "Google Maps API",
		config.ProviderOSRM:      "OSRM",
		config.ProviderHaversine: "haversine",
	} {
		cfg.Name = name
		p, err := NewProvider(cfg, testutil.NewMockDistanceCache(), logging.Discard())
		require.NoError(t, err)
		assert.Equal(t, want, p.Name())
	}

	cfg.Name = "bing"
	_, err := NewProvider(cfg, nil, logging.Discard())
	assert.Error(t, err)
}
