package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tsp-router/internal/models"
)

func TestWriteTour(t *testing.T) {
	result := &models.TourResult{
		Algorithm:        models.AlgorithmGreedy,
		OrderedLocations: []string{"Depot", "A", "B", "Depot"},
		Order:            []int{0, 1, 2, 0},
		Legs: []models.TourLeg{
			{From: "Depot", To: "A", DistanceMeters: 1000, DurationSecs: 60},
			{From: "A", To: "B", DistanceMeters: 500, DurationSecs: 30},
			{From: "B", To: "Depot", DistanceMeters: 1200, DurationSecs: 90},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTour(&buf, result))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, []string{"Stop", "Address", "Leg Distance (m)", "Leg Duration (s)", "Cumulative Distance (m)"}, rows[0])
	assert.Equal(t, []string{"0", "Depot"}, rows[1])
	assert.Equal(t, []string{"1", "A", "1000", "60", "1000"}, rows[2])
	assert.Equal(t, []string{"2", "B", "500", "30", "1500"}, rows[3])
	assert.Equal(t, []string{"3", "Depot", "1200", "90", "2700"}, rows[4])
}

func TestWriteTour_NoLegs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTour(&buf, &models.TourResult{OrderedLocations: []string{"Depot", "A", "Depot"}}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"2", "Depot"}, rows[3])
}
