package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"tsp-router/internal/database"
	"tsp-router/internal/geocoding"
	"tsp-router/internal/logging"
	"tsp-router/internal/models"
)

// DefaultOSRMBaseURL is the public OSRM demo server.
const DefaultOSRMBaseURL = "https://router.project-osrm.org"

// DefaultOSRMBatchDelay spaces batched requests to the public server.
const DefaultOSRMBatchDelay = 100 * time.Millisecond

// maxOSRMCoordinates is the maximum number of coordinates OSRM public API accepts
const maxOSRMCoordinates = 80

// OSRMOptions configures the OSRM table provider.
type OSRMOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Geocoder   geocoding.Geocoder
	Cache      database.DistanceCacheRepository
	Retries    int
	// BatchDelay spaces consecutive batched requests.
	BatchDelay time.Duration
	Logger     *log.Logger
}

type osrmProvider struct {
	baseURL    string
	httpClient *http.Client
	geocoder   geocoding.Geocoder
	cache      database.DistanceCacheRepository
	retries    int
	batchDelay time.Duration
	logger     *log.Logger
}

// osrmTableResponse uses pointers so unreachable pairs (null) are told
// apart from zero distances.
type osrmTableResponse struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// NewOSRMProvider creates an OSRM table provider. Addresses are resolved to
// coordinates with opts.Geocoder.
func NewOSRMProvider(opts OSRMOptions) Provider {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultOSRMBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := logging.OrDefault(opts.Logger)
	if opts.Geocoder == nil {
		opts.Geocoder = geocoding.NewNominatimGeocoder(geocoding.Options{Logger: logger})
	}
	return &osrmProvider{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		geocoder:   opts.Geocoder,
		cache:      opts.Cache,
		retries:    max(opts.Retries, 1),
		batchDelay: opts.BatchDelay,
		logger:     logger.WithPrefix("osrm"),
	}
}

func (p *osrmProvider) Name() string { return "OSRM" }

func (p *osrmProvider) Matrix(ctx context.Context, locations []string) (*Matrix, error) {
	g := newGrid(locations)
	n := len(locations)

	missing := g.fill(ctx, p.cache, p.logger)
	if missing == 0 {
		p.logger.Debug("Distance matrix all cached", "points", n)
		return p.finish(g)
	}
	p.logger.Info("Distance matrix request", "points", n, "cached", n*n-n-missing, "missing", missing)

	points, err := geocodeAll(ctx, p.geocoder, locations, p.retries)
	if err != nil {
		return nil, providerFailure(p.Name(), err)
	}

	if n <= maxOSRMCoordinates {
		err = p.fetchTable(ctx, g, points, nil, nil)
	} else {
		p.logger.Info("Using batched requests", "points", n)
		err = p.fetchBatched(ctx, g, points)
	}
	if err != nil {
		return nil, providerFailure(p.Name(), err)
	}

	g.store(ctx, p.cache, p.logger)
	return p.finish(g)
}

func (p *osrmProvider) finish(g *grid) (*Matrix, error) {
	m, err := g.matrix()
	if err != nil {
		return nil, providerFailure(p.Name(), err)
	}
	return m, nil
}

// fetchBatched covers the matrix with requests over pairs of index blocks.
// Each block holds half the coordinate limit so a pair fits in one request.
func (p *osrmProvider) fetchBatched(ctx context.Context, g *grid, points []models.Coordinates) error {
	n := len(points)
	size := maxOSRMCoordinates / 2

	var blocks [][]int
	for start := 0; start < n; start += size {
		block := make([]int, 0, size)
		for i := start; i < min(start+size, n); i++ {
			block = append(block, i)
		}
		blocks = append(blocks, block)
	}

	requests := 0
	for _, src := range blocks {
		for _, dst := range blocks {
			if requests > 0 && p.batchDelay > 0 {
				select {
				case <-time.After(p.batchDelay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if err := p.fetchTable(ctx, g, points, src, dst); err != nil {
				return err
			}
			requests++
		}
	}
	p.logger.Debug("Batched requests complete", "requests", requests)
	return nil
}

// fetchTable requests the table for sources x destinations. Nil slices mean
// every point.
func (p *osrmProvider) fetchTable(ctx context.Context, g *grid, points []models.Coordinates, sources, dests []int) error {
	if sources == nil {
		sources = allIndices(len(points))
	}
	if dests == nil {
		dests = allIndices(len(points))
	}

	// The request carries the union of both blocks in order
	var included []int
	local := make(map[int]int)
	for _, idx := range append(append([]int{}, sources...), dests...) {
		if _, ok := local[idx]; !ok {
			local[idx] = len(included)
			included = append(included, idx)
		}
	}

	coords := make([]string, len(included))
	for k, idx := range included {
		coords[k] = fmt.Sprintf("%.5f,%.5f", points[idx].Lng, points[idx].Lat)
	}
	queryURL := fmt.Sprintf("%s/table/v1/driving/%s?annotations=distance,duration", p.baseURL, strings.Join(coords, ";"))
	if len(included) != len(sources) || len(included) != len(dests) {
		queryURL += "&sources=" + joinLocal(sources, local) + "&destinations=" + joinLocal(dests, local)
	}

	var resp *osrmTableResponse
	err := retry(ctx, p.retries, time.Second, func() error {
		var err error
		resp, err = p.request(ctx, queryURL)
		return err
	})
	if err != nil {
		p.logger.Error("OSRM request failed", "points", len(included), "err", err)
		return err
	}

	if len(resp.Distances) != len(sources) || len(resp.Durations) != len(sources) {
		return &ErrDistanceCalculationFailed{Reason: fmt.Sprintf("expected %d rows, got %d", len(sources), len(resp.Distances))}
	}
	for si, i := range sources {
		if len(resp.Distances[si]) != len(dests) || len(resp.Durations[si]) != len(dests) {
			return &ErrDistanceCalculationFailed{Reason: fmt.Sprintf("expected %d columns, got %d", len(dests), len(resp.Distances[si]))}
		}
		for di, j := range dests {
			dist, dur := resp.Distances[si][di], resp.Durations[si][di]
			if i == j || dist == nil || dur == nil {
				continue
			}
			g.set(i, j, *dist, *dur)
		}
	}
	return nil
}

func (p *osrmProvider) request(ctx context.Context, queryURL string) (*osrmTableResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, &ErrDistanceCalculationFailed{Reason: err.Error()}
	}

	httpResp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RetryableError{Err: &ErrDistanceCalculationFailed{Reason: err.Error()}}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 1024))
		failure := &ErrDistanceCalculationFailed{
			Reason: fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body))),
		}
		if httpResp.StatusCode >= 500 || httpResp.StatusCode == http.StatusTooManyRequests {
			return nil, &RetryableError{Err: failure}
		}
		return nil, failure
	}

	var resp osrmTableResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, &ErrDistanceCalculationFailed{Reason: err.Error()}
	}
	if resp.Code != "Ok" {
		return nil, &ErrDistanceCalculationFailed{Reason: fmt.Sprintf("OSRM error: %s %s", resp.Code, resp.Message)}
	}
	return &resp, nil
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func joinLocal(indices []int, local map[int]int) string {
	parts := make([]string, len(indices))
	for k, idx := range indices {
		parts[k] = strconv.Itoa(local[idx])
	}
	return strings.Join(parts, ";")
}

// geocodeAll resolves every location, in order.
func geocodeAll(ctx context.Context, geocoder geocoding.Geocoder, locations []string, retries int) ([]models.Coordinates, error) {
	points := make([]models.Coordinates, len(locations))
	for i, loc := range locations {
		result, err := geocoder.GeocodeWithRetry(ctx, loc, retries)
		if err != nil {
			return nil, err
		}
		points[i] = result.Coords.Rounded()
	}
	return points, nil
}
