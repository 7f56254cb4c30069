package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"tsp-router/internal/database"
	"tsp-router/internal/logging"
)

// DefaultGoogleBaseURL is the Google Maps Platform endpoint host.
const DefaultGoogleBaseURL = "https://maps.googleapis.com"

// Distance Matrix API request limits
const (
	maxGoogleOrigins      = 25
	maxGoogleDestinations = 25
	maxGoogleElements     = 100
)

// GoogleOptions configures the Google Distance Matrix provider.
type GoogleOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Cache      database.DistanceCacheRepository
	// Retries is the total number of attempts per request.
	Retries int
	// Backoff is the delay before the first retry; it doubles each time.
	Backoff time.Duration
	Logger  *log.Logger
}

type googleProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      database.DistanceCacheRepository
	retries    int
	backoff    time.Duration
	logger     *log.Logger
}

type googleMatrixResponse struct {
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message"`
	Rows         []googleRow `json:"rows"`
}

type googleRow struct {
	Elements []googleElement `json:"elements"`
}

type googleElement struct {
	Status   string      `json:"status"`
	Distance googleValue `json:"distance"`
	Duration googleValue `json:"duration"`
}

type googleValue struct {
	Value float64 `json:"value"`
	Text  string  `json:"text"`
}

// NewGoogleProvider creates a Google Distance Matrix provider.
func NewGoogleProvider(opts GoogleOptions) Provider {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultGoogleBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	return &googleProvider{
		apiKey:     opts.APIKey,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		cache:      opts.Cache,
		retries:    max(opts.Retries, 1),
		backoff:    opts.Backoff,
		logger:     logging.OrDefault(opts.Logger).WithPrefix("google"),
	}
}

func (p *googleProvider) Name() string { return "Google Maps API" }

func (p *googleProvider) Matrix(ctx context.Context, locations []string) (*Matrix, error) {
	g := newGrid(locations)
	n := len(locations)

	missing := g.fill(ctx, p.cache, p.logger)
	if missing == 0 {
		p.logger.Debug("Distance matrix all cached", "points", n)
		return p.finish(g)
	}

	origins := g.missingOrigins()
	originBlock, destBlock := googleBlockSizes(n)
	p.logger.Info("Distance matrix request", "points", n, "cached", n*n-n-missing, "missing", missing)

	requests := 0
	for start := 0; start < len(origins); start += originBlock {
		end := min(start+originBlock, len(origins))
		for dstStart := 0; dstStart < n; dstStart += destBlock {
			dests := make([]int, 0, destBlock)
			for j := dstStart; j < min(dstStart+destBlock, n); j++ {
				dests = append(dests, j)
			}
			if err := p.fetchBlock(ctx, g, origins[start:end], dests); err != nil {
				return nil, providerFailure(p.Name(), err)
			}
			requests++
		}
	}
	p.logger.Debug("Distance matrix complete", "points", n, "requests", requests)

	g.store(ctx, p.cache, p.logger)
	return p.finish(g)
}

func (p *googleProvider) finish(g *grid) (*Matrix, error) {
	m, err := g.matrix()
	if err != nil {
		return nil, providerFailure(p.Name(), err)
	}
	return m, nil
}

// googleBlockSizes picks origin and destination block sizes within the
// per-request limits for n locations.
func googleBlockSizes(n int) (origins, destinations int) {
	destinations = min(n, maxGoogleDestinations)
	origins = min(maxGoogleOrigins, max(1, maxGoogleElements/destinations))
	return origins, destinations
}

func (p *googleProvider) fetchBlock(ctx context.Context, g *grid, origins, dests []int) error {
	var resp *googleMatrixResponse
	err := retry(ctx, p.retries, p.backoff, func() error {
		var err error
		resp, err = p.request(ctx, g, origins, dests)
		if err != nil {
			p.logger.Warn("Distance matrix request failed", "origins", len(origins), "destinations", len(dests), "err", err)
		}
		return err
	})
	if err != nil {
		return err
	}

	if len(resp.Rows) != len(origins) {
		return &ErrDistanceCalculationFailed{
			Reason: fmt.Sprintf("expected %d rows, got %d", len(origins), len(resp.Rows)),
		}
	}

	for r, row := range resp.Rows {
		i := origins[r]
		if len(row.Elements) != len(dests) {
			return &ErrDistanceCalculationFailed{
				Origin: g.locations[i],
				Reason: fmt.Sprintf("expected %d elements, got %d", len(dests), len(row.Elements)),
			}
		}
		for c, el := range row.Elements {
			j := dests[c]
			if i == j {
				continue
			}
			if el.Status != "OK" {
				return &ErrDistanceCalculationFailed{
					Origin: g.locations[i],
					Dest:   g.locations[j],
					Reason: el.Status,
				}
			}
			g.set(i, j, el.Distance.Value, el.Duration.Value)
		}
	}
	return nil
}

func (p *googleProvider) request(ctx context.Context, g *grid, origins, dests []int) (*googleMatrixResponse, error) {
	params := url.Values{}
	params.Set("origins", joinLocations(g.locations, origins))
	params.Set("destinations", joinLocations(g.locations, dests))
	params.Set("key", p.apiKey)
	queryURL := p.baseURL + "/maps/api/distancematrix/json?" + params.Encode()

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

	var resp googleMatrixResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, &ErrDistanceCalculationFailed{Reason: fmt.Sprintf("invalid response: %v", err)}
	}

	switch resp.Status {
	case "OK":
		return &resp, nil
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return nil, &RetryableError{Err: &ErrDistanceCalculationFailed{Reason: resp.Status}}
	default:
		reason := resp.Status
		if resp.ErrorMessage != "" {
			reason += ": " + resp.ErrorMessage
		}
		return nil, &ErrDistanceCalculationFailed{Reason: reason}
	}
}

func joinLocations(locations []string, indices []int) string {
	parts := make([]string, len(indices))
	for k, idx := range indices {
		parts[k] = locations[idx]
	}
	return strings.Join(parts, "|")
}
