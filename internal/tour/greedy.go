package tour

import "tsp-router/internal/apperr"

// BuildGreedyTour builds a nearest-neighbor tour starting and ending at the
// depot (index 0) and returns it with its total distance.
//
// At every step the unvisited location closest to the last stop is chosen;
// ties go to the lowest index.
func BuildGreedyTour(m *DistanceMatrix) ([]int, float64, error) {
	if err := checkMatrix(m); err != nil {
		return nil, 0, err
	}
	n := m.Size()
	if n < 2 {
		return nil, 0, apperr.New(apperr.CodeInsufficientLocations, "At least two locations are required")
	}

	visited := make([]bool, n)
	path := make([]int, 1, n+1)
	visited[0] = true

	for step := 1; step < n; step++ {
		last := path[len(path)-1]
		next := -1
		for i := 0; i < n; i++ {
			if visited[i] {
				continue
			}
			if next < 0 || m.Cost(last, i) < m.Cost(last, next) {
				next = i
			}
		}
		path = append(path, next)
		visited[next] = true
	}
	path = append(path, path[0])

	total, err := PathCost(m, path)
	if err != nil {
		return nil, 0, err
	}
	return path, total, nil
}
