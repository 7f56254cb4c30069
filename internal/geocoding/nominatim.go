package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"tsp-router/internal/logging"
	"tsp-router/internal/models"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

const userAgent = "tsp-router/1.0"

// GeocodingResult contains the result of a geocoding operation
type GeocodingResult struct {
	Coords      models.Coordinates
	DisplayName string
}

// Geocoder provides address-to-coordinates conversion
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*GeocodingResult, error)
	GeocodeWithRetry(ctx context.Context, address string, maxRetries int) (*GeocodingResult, error)
}

// ErrGeocodingFailed is returned when an address cannot be geocoded
type ErrGeocodingFailed struct {
	Address string
	Reason  string
}

func (e *ErrGeocodingFailed) Error() string {
	return fmt.Sprintf("geocoding failed for address: %s - %s", e.Address, e.Reason)
}

// Options configures a Nominatim geocoder. Zero values select defaults.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Interval is the minimum spacing between requests. Nominatim's usage
	// policy allows one request per second.
	Interval time.Duration
	Logger   *log.Logger
}

type nominatimGeocoder struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *time.Ticker
	logger      *log.Logger

	mu       sync.Mutex
	resolved map[string]*GeocodingResult
}

type nominatimResponse struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatimGeocoder creates a new Nominatim geocoder with rate limiting.
// Successful lookups are remembered for the lifetime of the geocoder.
func NewNominatimGeocoder(opts Options) Geocoder {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	return &nominatimGeocoder{
		baseURL:     opts.BaseURL,
		httpClient:  opts.HTTPClient,
		rateLimiter: time.NewTicker(opts.Interval),
		logger:      logging.OrDefault(opts.Logger).WithPrefix("geocoding"),
		resolved:    make(map[string]*GeocodingResult),
	}
}

func (g *nominatimGeocoder) lookup(address string) *GeocodingResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resolved[address]
}

func (g *nominatimGeocoder) Geocode(ctx context.Context, address string) (*GeocodingResult, error) {
	if cached := g.lookup(address); cached != nil {
		return cached, nil
	}

	select {
	case <-g.rateLimiter.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	queryURL := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", g.baseURL, url.QueryEscape(address))
	g.logger.Debug("Request", "address", address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, &ErrGeocodingFailed{Address: address, Reason: err.Error()}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.Error("Geocoding API request failed", "address", address, "err", err)
		return nil, &ErrGeocodingFailed{Address: address, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		g.logger.Error("Geocoding API error", "address", address, "status", resp.StatusCode)
		return nil, &ErrGeocodingFailed{
			Address: address,
			Reason:  fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	var results []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		g.logger.Error("Failed to decode geocoding response", "address", address, "err", err)
		return nil, &ErrGeocodingFailed{Address: address, Reason: err.Error()}
	}

	if len(results) == 0 {
		g.logger.Warn("No geocoding results found", "address", address)
		return nil, &ErrGeocodingFailed{Address: address, Reason: "no results found"}
	}

	first := results[0]
	lat, err := strconv.ParseFloat(first.Lat, 64)
	if err != nil {
		return nil, &ErrGeocodingFailed{Address: address, Reason: "invalid latitude"}
	}
	lng, err := strconv.ParseFloat(first.Lon, 64)
	if err != nil {
		return nil, &ErrGeocodingFailed{Address: address, Reason: "invalid longitude"}
	}

	result := &GeocodingResult{
		Coords:      models.Coordinates{Lat: lat, Lng: lng},
		DisplayName: first.DisplayName,
	}
	g.logger.Debug("Response", "address", address, "lat", lat, "lng", lng)

	g.mu.Lock()
	g.resolved[address] = result
	g.mu.Unlock()

	return result, nil
}

func (g *nominatimGeocoder) GeocodeWithRetry(ctx context.Context, address string, maxRetries int) (*GeocodingResult, error) {
	maxRetries = max(maxRetries, 1)
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		result, err := g.Geocode(ctx, address)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if i < maxRetries-1 {
			backoff := time.Duration(1<<uint(i)) * time.Second
			g.logger.Warn("Retrying", "attempt", i+1, "max", maxRetries, "address", address, "backoff", backoff, "err", err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	g.logger.Error("Geocoding failed", "retries", maxRetries, "address", address, "err", lastErr)
	return nil, lastErr
}
