package engine

import (
	"github.com/equipsight/equipsight-engine/internal/models"
)

// columnBounds holds the IQR fence for one numeric column.
type columnBounds struct {
	lower float64
	upper float64
}

// DetectOutliers applies the IQR rule per numeric column. Columns are
// scanned in the fixed order flowrate, pressure, temperature; the first
// violation for an equipment name opens its entry, subsequent ones append
// to its parameter list. Equipment names are matched by exact string
// equality.
func DetectOutliers(records []models.EquipmentRecord, multiplier float64) []models.OutlierEntry {
	if len(records) == 0 {
		return nil
	}

	entries := make([]models.OutlierEntry, 0)
	index := make(map[string]int)

	for _, col := range models.NumericColumns() {
		bounds := fence(columnValues(records, col), multiplier)
		for _, record := range records {
			value := record.Value(col)
			if value >= bounds.lower && value <= bounds.upper {
				continue
			}
			status := models.BoundLow
			if value > bounds.upper {
				status = models.BoundHigh
			}
			param := models.OutlierParameter{
				Parameter:  col,
				Value:      value,
				LowerBound: bounds.lower,
				UpperBound: bounds.upper,
				Status:     status,
			}
			if i, ok := index[record.EquipmentName]; ok {
				entries[i].Parameters = append(entries[i].Parameters, param)
				continue
			}
			index[record.EquipmentName] = len(entries)
			entries = append(entries, models.OutlierEntry{
				EquipmentName: record.EquipmentName,
				Parameters:    []models.OutlierParameter{param},
			})
		}
	}

	if len(entries) == 0 {
		return nil
	}
	return entries
}

func fence(values []float64, multiplier float64) columnBounds {
	q1, q3 := quartiles(values)
	iqr := q3 - q1
	return columnBounds{
		lower: q1 - multiplier*iqr,
		upper: q3 + multiplier*iqr,
	}
}
