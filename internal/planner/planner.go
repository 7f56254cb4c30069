// Package planner turns a list of addresses into an ordered tour: it
// normalizes the input, anchors the depot, fetches distances from the
// configured provider and runs the requested tour builder.
package planner

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"tsp-router/internal/apperr"
	"tsp-router/internal/distance"
	"tsp-router/internal/logging"
	"tsp-router/internal/models"
	"tsp-router/internal/tour"
)

// Options configures a Planner.
type Options struct {
	Provider distance.Provider
	// Depot is the address every tour starts and ends at.
	Depot string
	// Timeout bounds each provider call. Zero means no extra bound.
	Timeout time.Duration
	Logger  *log.Logger
}

// Planner plans tours over addresses. It is safe for concurrent use.
type Planner struct {
	provider distance.Provider
	depot    string
	timeout  time.Duration
	logger   *log.Logger
}

func New(opts Options) *Planner {
	return &Planner{
		provider: opts.Provider,
		depot:    strings.TrimSpace(opts.Depot),
		timeout:  opts.Timeout,
		logger:   logging.OrDefault(opts.Logger).WithPrefix("planner"),
	}
}

// Depot returns the configured depot address.
func (p *Planner) Depot() string { return p.depot }

// Plan normalizes locations, fetches their distance matrix and builds a tour
// with algorithm. The first and last stop of the result is the depot.
func (p *Planner) Plan(ctx context.Context, algorithm models.Algorithm, locations []string) (*models.TourResult, error) {
	if _, ok := models.ParseAlgorithm(string(algorithm)); !ok {
		return nil, apperr.New(apperr.CodeInvalidInput, "Unknown algorithm %q", algorithm)
	}

	stops, err := NormalizeLocations(locations, p.depot)
	if err != nil {
		return nil, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	matrix, err := p.provider.Matrix(ctx, stops)
	if err != nil {
		p.logger.Error("Distance matrix failed", "provider", p.provider.Name(), "points", len(stops), "err", err)
		return nil, err
	}

	result, err := Solve(algorithm, stops, matrix)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Tour planned",
		"algorithm", algorithm,
		"points", len(stops),
		"legs", len(result.Legs),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return result, nil
}

// NormalizeLocations trims every location, drops empty entries and exact
// duplicates (keeping the first), and moves depot to the front, inserting it
// when absent. An empty depot leaves the order untouched.
func NormalizeLocations(locations []string, depot string) ([]string, error) {
	depot = strings.TrimSpace(depot)

	stops := make([]string, 0, len(locations)+1)
	if depot != "" {
		stops = append(stops, depot)
	}
	seen := map[string]bool{depot: depot != ""}
	for _, loc := range locations {
		loc = strings.TrimSpace(loc)
		if loc == "" || seen[loc] {
			continue
		}
		seen[loc] = true
		stops = append(stops, loc)
	}

	if len(stops) < 2 {
		return nil, apperr.New(apperr.CodeInsufficientLocations, "At least two locations are required")
	}
	return stops, nil
}

// Solve builds a tour over stops from an already fetched matrix. Index 0 is
// the depot. Durations may be nil, in which case legs carry zero durations.
func Solve(algorithm models.Algorithm, stops []string, matrix *distance.Matrix) (*models.TourResult, error) {
	if matrix == nil || matrix.Distances == nil {
		return nil, apperr.New(apperr.CodeInvalidDistanceData, "Invalid data for TSP calculation")
	}
	n := len(stops)
	if matrix.Distances.Size() != n {
		return nil, apperr.New(apperr.CodeInvalidDistanceData,
			"distance matrix covers %d locations, expected %d", matrix.Distances.Size(), n)
	}
	if matrix.Durations != nil && matrix.Durations.Size() != n {
		return nil, apperr.New(apperr.CodeInvalidDistanceData,
			"duration matrix covers %d locations, expected %d", matrix.Durations.Size(), n)
	}
	if n < 2 {
		return nil, apperr.New(apperr.CodeInsufficientLocations, "At least two locations are required")
	}

	var (
		order []int
		total float64
		err   error
	)
	switch algorithm {
	case models.AlgorithmGreedy:
		order, total, err = tour.BuildGreedyTour(matrix.Distances)
	case models.AlgorithmKruskal:
		order, err = tour.BuildMSTTour(matrix.Distances)
	default:
		return nil, apperr.New(apperr.CodeInvalidInput, "Unknown algorithm %q", algorithm)
	}
	if err != nil {
		return nil, err
	}
	if err := tour.ValidateTour(order, n); err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidDistanceData, err, "Invalid data for TSP calculation")
	}

	result := &models.TourResult{
		Algorithm:        algorithm,
		OrderedLocations: make([]string, len(order)),
		Order:            order,
		Legs:             make([]models.TourLeg, 0, n),
	}
	for k, idx := range order {
		result.OrderedLocations[k] = stops[idx]
	}

	var duration float64
	for k := 0; k+1 < len(order); k++ {
		from, to := order[k], order[k+1]
		leg := models.TourLeg{
			From:           stops[from],
			To:             stops[to],
			DistanceMeters: matrix.Distances.Cost(from, to),
		}
		if matrix.Durations != nil {
			leg.DurationSecs = matrix.Durations.Cost(from, to)
		}
		duration += leg.DurationSecs
		result.Legs = append(result.Legs, leg)
	}

	if algorithm == models.AlgorithmGreedy {
		result.TotalDistanceMeters = &total
		if matrix.Durations != nil {
			result.TotalDurationSecs = &duration
		}
	}
	return result, nil
}
