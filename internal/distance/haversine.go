package distance

import (
	"context"
	"math"

	"github.com/charmbracelet/log"

	"tsp-router/internal/geocoding"
	"tsp-router/internal/logging"
	"tsp-router/internal/models"
)

const earthRadius = 6371000.0 // meters

// averageSpeed is the assumed travel speed for duration estimates, in m/s
// (50 km/h).
const averageSpeed = 50000.0 / 3600.0

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Haversine computes the great-circle distance between two points in meters
func Haversine(a, b models.Coordinates) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLon := toRadians(b.Lng) - toRadians(a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadius * c
}

type haversineProvider struct {
	geocoder geocoding.Geocoder
	retries  int
	logger   *log.Logger
}

// NewHaversineProvider creates an offline provider: straight-line distances
// between geocoded addresses, with durations estimated at 50 km/h.
func NewHaversineProvider(geocoder geocoding.Geocoder, retries int, logger *log.Logger) Provider {
	logger = logging.OrDefault(logger)
	if geocoder == nil {
		geocoder = geocoding.NewNominatimGeocoder(geocoding.Options{Logger: logger})
	}
	return &haversineProvider{
		geocoder: geocoder,
		retries:  max(retries, 1),
		logger:   logger.WithPrefix("haversine"),
	}
}

func (p *haversineProvider) Name() string { return "haversine" }

func (p *haversineProvider) Matrix(ctx context.Context, locations []string) (*Matrix, error) {
	points, err := geocodeAll(ctx, p.geocoder, locations, p.retries)
	if err != nil {
		return nil, providerFailure(p.Name(), err)
	}

	g := newGrid(locations)
	for i := range points {
		for j := range points {
			d := Haversine(points[i], points[j])
			g.set(i, j, d, d/averageSpeed)
		}
	}
	p.logger.Debug("Distance matrix computed", "points", len(points))

	m, err := g.matrix()
	if err != nil {
		return nil, providerFailure(p.Name(), err)
	}
	return m, nil
}
