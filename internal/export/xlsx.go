// Package export writes planned tours as spreadsheets.
package export

import (
	"io"

	"github.com/xuri/excelize/v2"

	"tsp-router/internal/models"
)

// SheetName is the worksheet holding the tour.
const SheetName = "Tour"

// ContentType is the MIME type of the workbook written by WriteTour.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var headers = []interface{}{
	"Stop", "Address", "Leg Distance (m)", "Leg Duration (s)", "Cumulative Distance (m)",
}

// WriteTour writes result as an XLSX workbook to w. Row 2 is the depot with
// empty leg columns; every following row is reached by the leg before it.
func WriteTour(w io.Writer, result *models.TourResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(SheetName); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", headers); err != nil {
		return err
	}

	var cumulative float64
	for k, address := range result.OrderedLocations {
		cell, err := excelize.CoordinatesToCellName(1, k+2)
		if err != nil {
			return err
		}

		row := []interface{}{k, address}
		if k > 0 && k-1 < len(result.Legs) {
			leg := result.Legs[k-1]
			cumulative += leg.DistanceMeters
			row = append(row, leg.DistanceMeters, leg.DurationSecs, cumulative)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}

	f.DeleteSheet("Sheet1")
	if index, err := f.GetSheetIndex(SheetName); err == nil {
		f.SetActiveSheet(index)
	}

	_, err = f.WriteTo(w)
	return err
}
