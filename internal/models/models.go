package models

import (
	"math"
	"strconv"
)

// Coordinates represents a geographic point
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Rounded returns c with both components rounded to 5 decimal places (~1m),
// so repeated geocodes of one address produce identical requests.
func (c Coordinates) Rounded() Coordinates {
	return Coordinates{Lat: RoundCoordinate(c.Lat), Lng: RoundCoordinate(c.Lng)}
}

// RoundCoordinate rounds a latitude or longitude to 5 decimal places
func RoundCoordinate(v float64) float64 {
	return math.Round(v*100000) / 100000
}

// Algorithm names a tour construction strategy
type Algorithm string

const (
	AlgorithmGreedy  Algorithm = "greedy"  // nearest neighbor
	AlgorithmKruskal Algorithm = "kruskal" // minimum spanning tree preorder walk
)

// ParseAlgorithm validates an algorithm name
func ParseAlgorithm(s string) (Algorithm, bool) {
	switch Algorithm(s) {
	case AlgorithmGreedy, AlgorithmKruskal:
		return Algorithm(s), true
	}
	return "", false
}

// TourLeg is one step of a calculated tour
type TourLeg struct {
	From           string  `json:"from"`
	To             string  `json:"to"`
	DistanceMeters float64 `json:"distance_meters"`
	DurationSecs   float64 `json:"duration_secs"`
}

// TourResult contains the full result of a tour calculation
type TourResult struct {
	Algorithm        Algorithm `json:"algorithm"`
	OrderedLocations []string  `json:"ordered_locations"`
	Order            []int     `json:"order"`
	Legs             []TourLeg `json:"legs"`
	// TotalDistanceMeters and TotalDurationSecs are only set by algorithms
	// that report a total.
	TotalDistanceMeters *float64 `json:"total_distance_meters,omitempty"`
	TotalDurationSecs   *float64 `json:"total_duration_secs,omitempty"`
}

// DistanceCacheEntry represents a cached distance lookup between two locations
type DistanceCacheEntry struct {
	Origin         string  `json:"origin"`
	Destination    string  `json:"destination"`
	DistanceMeters float64 `json:"distance_meters"`
	DurationSecs   float64 `json:"duration_secs"`
}

// CacheKey returns the key used to store an origin/destination pair. Both
// addresses are quoted, so a separator inside an address cannot make two
// pairs collide.
func CacheKey(origin, dest string) string {
	return strconv.Quote(origin) + "->" + strconv.Quote(dest)
}
