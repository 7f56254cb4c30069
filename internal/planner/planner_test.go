package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsp-router/internal/apperr"
	"tsp-router/internal/distance"
	"tsp-router/internal/logging"
	"tsp-router/internal/models"
	"tsp-router/internal/tour"
)

const depot = "4 N 2nd St Suite 150, San Jose, CA 95113"

var scenarioRows = [][]float64{
	{0, 2, 9, 10},
	{2, 0, 6, 4},
	{9, 6, 0, 8},
	{10, 4, 8, 0},
}

// mockProvider serves fixed rows and records what it was asked for.
type mockProvider struct {
	distances [][]float64
	durations [][]float64
	err       error
	delay     time.Duration
	requested [][]string
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Matrix(ctx context.Context, locations []string) (*distance.Matrix, error) {
	m.requested = append(m.requested, locations)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.CodeProviderFailure, ctx.Err(), "Failed to fetch distance matrix from mock")
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	dist, err := tour.NewDistanceMatrix(m.distances)
	if err != nil {
		return nil, err
	}
	result := &distance.Matrix{Distances: dist}
	if m.durations != nil {
		if result.Durations, err = tour.NewDistanceMatrix(m.durations); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func scaled(rows [][]float64, factor float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = v * factor
		}
	}
	return out
}

func newTestPlanner(p distance.Provider) *Planner {
	return New(Options{Provider: p, Depot: depot, Timeout: time.Second, Logger: logging.Discard()})
}

func TestNormalizeLocations(t *testing.T) {
	tests := []struct {
		name      string
		locations []string
		want      []string
	}{
		{"inserts depot", []string{"A", "B"}, []string{depot, "A", "B"}},
		{"moves depot to front", []string{"A", depot, "B"}, []string{depot, "A", "B"}},
		{"keeps depot in front", []string{depot, "A"}, []string{depot, "A"}},
		{"trims and drops empties", []string{"  A ", "", "   ", "B"}, []string{depot, "A", "B"}},
		{"drops duplicates", []string{"A", "B", "A", " B"}, []string{depot, "A", "B"}},
		{"depot with padding", []string{" " + depot + " ", "A"}, []string{depot, "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeLocations(tt.locations, depot)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeLocations_Insufficient(t *testing.T) {
	for _, locations := range [][]string{nil, {}, {"", "  "}, {depot}, {depot, depot}} {
		_, err := NormalizeLocations(locations, depot)
		require.Error(t, err, "%q", locations)
		assert.True(t, apperr.Is(err, apperr.CodeInsufficientLocations))
		assert.Equal(t, "At least two locations are required", apperr.UserMessage(err))
	}

	_, err := NormalizeLocations([]string{"A"}, "")
	assert.True(t, apperr.Is(err, apperr.CodeInsufficientLocations))

	got, err := NormalizeLocations([]string{"A", "B"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, got)
}

func TestPlan_Greedy(t *testing.T) {
	provider := &mockProvider{distances: scenarioRows, durations: scaled(scenarioRows, 60)}
	p := newTestPlanner(provider)

	result, err := p.Plan(context.Background(), models.AlgorithmGreedy, []string{"A", "B", "C"})
	require.NoError(t, err)

	require.Len(t, provider.requested, 1)
	assert.Equal(t, []string{depot, "A", "B", "C"}, provider.requested[0])

	assert.Equal(t, models.AlgorithmGreedy, result.Algorithm)
	assert.Equal(t, []int{0, 1, 3, 2, 0}, result.Order)
	assert.Equal(t, []string{depot, "A", "C", "B", depot}, result.OrderedLocations)
	require.NotNil(t, result.TotalDistanceMeters)
	assert.Equal(t, 23.0, *result.TotalDistanceMeters)
	require.NotNil(t, result.TotalDurationSecs)
	assert.Equal(t, 23.0*60, *result.TotalDurationSecs)

	require.Len(t, result.Legs, 4)
	assert.Equal(t, models.TourLeg{From: depot, To: "A", DistanceMeters: 2, DurationSecs: 120}, result.Legs[0])
	assert.Equal(t, models.TourLeg{From: "B", To: depot, DistanceMeters: 9, DurationSecs: 540}, result.Legs[3])
}

func TestPlan_Kruskal(t *testing.T) {
	provider := &mockProvider{distances: scenarioRows}
	p := newTestPlanner(provider)

	result, err := p.Plan(context.Background(), models.AlgorithmKruskal, []string{depot, "A", "B", "C"})
	require.NoError(t, err)

	assert.Equal(t, []string{depot, "A", "C", "B", depot}, result.OrderedLocations)
	assert.Nil(t, result.TotalDistanceMeters, "kruskal reports no total")
	assert.Nil(t, result.TotalDurationSecs)
	var legs []float64
	for _, leg := range result.Legs {
		legs = append(legs, leg.DistanceMeters)
	}
	assert.Equal(t, []float64{2, 4, 8, 9}, legs)
}

func TestPlan_TwoLocations(t *testing.T) {
	p := newTestPlanner(&mockProvider{distances: [][]float64{{0, 5}, {5, 0}}})

	result, err := p.Plan(context.Background(), models.AlgorithmGreedy, []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, []string{depot, "A", depot}, result.OrderedLocations)
	assert.Equal(t, 10.0, *result.TotalDistanceMeters)
}

func TestPlan_InsufficientLocationsSkipsProvider(t *testing.T) {
	provider := &mockProvider{distances: scenarioRows}
	p := newTestPlanner(provider)

	_, err := p.Plan(context.Background(), models.AlgorithmGreedy, []string{depot, " "})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInsufficientLocations))
	assert.Empty(t, provider.requested)
}

func TestPlan_UnknownAlgorithm(t *testing.T) {
	provider := &mockProvider{distances: scenarioRows}
	_, err := newTestPlanner(provider).Plan(context.Background(), "christofides", []string{"A", "B"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidInput))
	assert.Empty(t, provider.requested)
}

func TestPlan_ProviderFailure(t *testing.T) {
	failure := apperr.Wrap(apperr.CodeProviderFailure, errors.New("HTTP 500"), "Failed to fetch distance matrix from mock")
	_, err := newTestPlanner(&mockProvider{err: failure}).Plan(context.Background(), models.AlgorithmGreedy, []string{"A"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeProviderFailure))
	assert.Equal(t, "Failed to fetch distance matrix from mock", apperr.UserMessage(err))
}

func TestPlan_MatrixSizeMismatch(t *testing.T) {
	// Provider returns 4x4 for 3 locations
	_, err := newTestPlanner(&mockProvider{distances: scenarioRows}).
		Plan(context.Background(), models.AlgorithmKruskal, []string{"A", "B"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidDistanceData))
}

func TestPlan_Timeout(t *testing.T) {
	provider := &mockProvider{distances: scenarioRows, delay: time.Second}
	p := New(Options{Provider: provider, Depot: depot, Timeout: 10 * time.Millisecond, Logger: logging.Discard()})

	_, err := p.Plan(context.Background(), models.AlgorithmGreedy, []string{"A", "B", "C"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeProviderFailure))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSolve_WithoutDurations(t *testing.T) {
	dist, err := tour.NewDistanceMatrix(scenarioRows)
	require.NoError(t, err)

	result, err := Solve(models.AlgorithmGreedy, []string{"0", "1", "2", "3"}, &distance.Matrix{Distances: dist})
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "3", "2", "0"}, result.OrderedLocations)
	assert.Equal(t, 23.0, *result.TotalDistanceMeters)
	assert.Nil(t, result.TotalDurationSecs)
	for _, leg := range result.Legs {
		assert.Zero(t, leg.DurationSecs)
	}
}

func TestSolve_InvalidInput(t *testing.T) {
	_, err := Solve(models.AlgorithmGreedy, []string{"A", "B"}, nil)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidDistanceData))

	single, err := tour.NewDistanceMatrix([][]float64{{0}})
	require.NoError(t, err)
	_, err = Solve(models.AlgorithmKruskal, []string{"A"}, &distance.Matrix{Distances: single})
	assert.True(t, apperr.Is(err, apperr.CodeInsufficientLocations))

	dist, err := tour.NewDistanceMatrix(scenarioRows)
	require.NoError(t, err)
	durations, err := tour.NewDistanceMatrix([][]float64{{0, 1}, {1, 0}})
	require.NoError(t, err)
	_, err = Solve(models.AlgorithmGreedy, []string{"A", "B", "C", "D"}, &distance.Matrix{Distances: dist, Durations: durations})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidDistanceData))
}
