// Package tour builds approximate traveling-salesperson tours over a dense
// distance matrix. Index 0 of every matrix is the depot; every tour starts and
// ends there.
package tour

import (
	"math"

	"tsp-router/internal/apperr"
)

// DistanceMatrix is an immutable n×n table of non-negative travel costs.
type DistanceMatrix struct {
	n    int
	cost []float64
}

// NewDistanceMatrix validates rows and copies them into a DistanceMatrix.
// Rows must be non-empty, square, finite and non-negative.
func NewDistanceMatrix(rows [][]float64) (*DistanceMatrix, error) {
	n := len(rows)
	if n == 0 {
		return nil, apperr.New(apperr.CodeInvalidDistanceData, "distance matrix is empty")
	}

	cost := make([]float64, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, apperr.New(apperr.CodeInvalidDistanceData,
				"distance matrix row %d has %d elements, expected %d", i, len(row), n)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, apperr.New(apperr.CodeInvalidDistanceData,
					"distance from %d to %d is not a finite number", i, j)
			}
			if v < 0 {
				return nil, apperr.New(apperr.CodeInvalidDistanceData,
					"distance from %d to %d is negative", i, j)
			}
			cost[i*n+j] = v
		}
	}

	return &DistanceMatrix{n: n, cost: cost}, nil
}

// Size returns the number of locations.
func (m *DistanceMatrix) Size() int {
	return m.n
}

// Cost returns the travel cost from i to j.
func (m *DistanceMatrix) Cost(i, j int) float64 {
	return m.cost[i*m.n+j]
}

// Rows returns a copy of the matrix as nested slices.
func (m *DistanceMatrix) Rows() [][]float64 {
	rows := make([][]float64, m.n)
	for i := range rows {
		rows[i] = make([]float64, m.n)
		copy(rows[i], m.cost[i*m.n:(i+1)*m.n])
	}
	return rows
}

func checkMatrix(m *DistanceMatrix) error {
	if m == nil || m.n == 0 || len(m.cost) != m.n*m.n {
		return apperr.New(apperr.CodeInvalidDistanceData, "distance matrix is missing or malformed")
	}
	return nil
}

// PathCost sums Cost(path[k], path[k+1]) over consecutive pairs of path.
func PathCost(m *DistanceMatrix, path []int) (float64, error) {
	if err := checkMatrix(m); err != nil {
		return 0, err
	}
	if len(path) < 2 {
		return 0, apperr.New(apperr.CodeInvalidDistanceData, "path has %d elements, need at least 2", len(path))
	}

	var total float64
	for k := 0; k < len(path)-1; k++ {
		u, v := path[k], path[k+1]
		if u < 0 || u >= m.n || v < 0 || v >= m.n {
			return 0, apperr.New(apperr.CodeInvalidDistanceData, "path step %d->%d is out of range for %d locations", u, v, m.n)
		}
		total += m.Cost(u, v)
	}
	return total, nil
}

// ValidateTour checks that path is a closed tour over n locations: n+1
// elements, the last equal to the first, and positions [0, n) a permutation
// of [0, n).
func ValidateTour(path []int, n int) error {
	if len(path) != n+1 {
		return apperr.New(apperr.CodeInvalidDistanceData, "tour has %d stops, expected %d", len(path), n+1)
	}
	if path[0] != path[n] {
		return apperr.New(apperr.CodeInvalidDistanceData, "tour does not return to its start")
	}

	seen := make([]bool, n)
	for _, idx := range path[:n] {
		if idx < 0 || idx >= n {
			return apperr.New(apperr.CodeInvalidDistanceData, "tour index %d out of range", idx)
		}
		if seen[idx] {
			return apperr.New(apperr.CodeInvalidDistanceData, "tour visits %d more than once", idx)
		}
		seen[idx] = true
	}
	return nil
}
