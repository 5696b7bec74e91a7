package engine

import (
	"github.com/equipsight/equipsight-engine/internal/models"
)

// ClassifyHealth assigns each record a status and colour, evaluated in
// fixed priority order: equipment named in outliers is critical; otherwise
// any column above its warning-percentile cutoff (computed over the full
// record set) is warning; otherwise normal. The input slice is not
// modified; classified copies are returned in source order.
func ClassifyHealth(records []models.EquipmentRecord, outliers []models.OutlierEntry, warningPercentile float64) []models.EquipmentRecord {
	if len(records) == 0 {
		return nil
	}

	critical := make(map[string]struct{}, len(outliers))
	for _, entry := range outliers {
		critical[entry.EquipmentName] = struct{}{}
	}

	cutoffs := make(map[models.Column]float64, 3)
	for _, col := range models.NumericColumns() {
		cutoffs[col] = percentile(columnValues(records, col), warningPercentile)
	}

	classified := make([]models.EquipmentRecord, len(records))
	for i, record := range records {
		status := models.HealthNormal
		if _, ok := critical[record.EquipmentName]; ok {
			status = models.HealthCritical
		} else {
			for _, col := range models.NumericColumns() {
				if record.Value(col) > cutoffs[col] {
					status = models.HealthWarning
					break
				}
			}
		}
		record.HealthStatus = status
		record.HealthColor = models.HealthColor(status)
		classified[i] = record
	}
	return classified
}
