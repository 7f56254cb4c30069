// Package distance fetches travel distance and duration matrices for a list
// of addresses from an external provider, consulting the distance cache first.
package distance

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"tsp-router/internal/apperr"
	"tsp-router/internal/database"
	"tsp-router/internal/models"
	"tsp-router/internal/tour"
)

// Matrix holds the provider's answer for n locations, in request order.
// Distances are meters and Durations are seconds.
type Matrix struct {
	Distances *tour.DistanceMatrix
	Durations *tour.DistanceMatrix
}

// Provider returns distance and duration matrices for a list of addresses.
// Failures are apperr errors with CodeProviderFailure.
type Provider interface {
	Name() string
	Matrix(ctx context.Context, locations []string) (*Matrix, error)
}

// ErrDistanceCalculationFailed describes why a provider response was unusable
type ErrDistanceCalculationFailed struct {
	Origin string
	Dest   string
	Reason string
}

func (e *ErrDistanceCalculationFailed) Error() string {
	if e.Origin != "" || e.Dest != "" {
		return fmt.Sprintf("distance calculation failed from %q to %q: %s", e.Origin, e.Dest, e.Reason)
	}
	return fmt.Sprintf("distance calculation failed: %s", e.Reason)
}

func providerFailure(provider string, err error) error {
	if apperr.GetCode(err) != apperr.CodeInternal {
		return err
	}
	return apperr.Wrap(apperr.CodeProviderFailure, err, "Failed to fetch distance matrix from %s", provider)
}

// grid collects a matrix cell by cell from the cache and the provider.
type grid struct {
	locations []string
	dist      [][]float64
	dur       [][]float64
	known     [][]bool
	fresh     []models.DistanceCacheEntry
}

func newGrid(locations []string) *grid {
	n := len(locations)
	g := &grid{
		locations: locations,
		dist:      make([][]float64, n),
		dur:       make([][]float64, n),
		known:     make([][]bool, n),
	}
	for i := range locations {
		g.dist[i] = make([]float64, n)
		g.dur[i] = make([]float64, n)
		g.known[i] = make([]bool, n)
		g.known[i][i] = true
	}
	return g
}

// fill loads every unknown off-diagonal pair from cache and returns how many
// pairs are still missing. Cache errors are logged and treated as misses.
func (g *grid) fill(ctx context.Context, cache database.DistanceCacheRepository, logger *log.Logger) int {
	var pairs []database.Pair
	for i, origin := range g.locations {
		for j, dest := range g.locations {
			if !g.known[i][j] {
				pairs = append(pairs, database.Pair{Origin: origin, Dest: dest})
			}
		}
	}
	if len(pairs) == 0 {
		return 0
	}

	if cache != nil {
		cached, err := cache.GetBatch(ctx, pairs)
		if err != nil {
			logger.Warn("Distance cache lookup failed", "err", err)
		}
		for i, origin := range g.locations {
			for j, dest := range g.locations {
				if g.known[i][j] {
					continue
				}
				if entry, ok := cached[database.Pair{Origin: origin, Dest: dest}]; ok {
					g.dist[i][j] = entry.DistanceMeters
					g.dur[i][j] = entry.DurationSecs
					g.known[i][j] = true
				}
			}
		}
	}
	return g.missing()
}

func (g *grid) missing() int {
	count := 0
	for i := range g.known {
		for j := range g.known[i] {
			if !g.known[i][j] {
				count++
			}
		}
	}
	return count
}

// missingOrigins lists origins with at least one unknown destination.
func (g *grid) missingOrigins() []int {
	var origins []int
	for i := range g.known {
		for j := range g.known[i] {
			if !g.known[i][j] {
				origins = append(origins, i)
				break
			}
		}
	}
	return origins
}

func (g *grid) set(i, j int, distanceMeters, durationSecs float64) {
	if i == j || g.known[i][j] {
		return
	}
	g.dist[i][j] = distanceMeters
	g.dur[i][j] = durationSecs
	g.known[i][j] = true
	g.fresh = append(g.fresh, models.DistanceCacheEntry{
		Origin:         g.locations[i],
		Destination:    g.locations[j],
		DistanceMeters: distanceMeters,
		DurationSecs:   durationSecs,
	})
}

// store writes newly fetched pairs back to cache.
func (g *grid) store(ctx context.Context, cache database.DistanceCacheRepository, logger *log.Logger) {
	if cache == nil || len(g.fresh) == 0 {
		return
	}
	if err := cache.SetBatch(ctx, g.fresh); err != nil {
		logger.Warn("Distance cache write failed", "entries", len(g.fresh), "err", err)
	}
}

func (g *grid) matrix() (*Matrix, error) {
	for i := range g.known {
		for j := range g.known[i] {
			if !g.known[i][j] {
				return nil, &ErrDistanceCalculationFailed{
					Origin: g.locations[i],
					Dest:   g.locations[j],
					Reason: "no distance returned",
				}
			}
		}
	}

	distances, err := tour.NewDistanceMatrix(g.dist)
	if err != nil {
		return nil, err
	}
	durations, err := tour.NewDistanceMatrix(g.dur)
	if err != nil {
		return nil, err
	}
	return &Matrix{Distances: distances, Durations: durations}, nil
}
