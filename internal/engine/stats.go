package engine

import (
	"math"

	"github.com/equipsight/equipsight-engine/internal/models"
)

// Summarize computes the frozen numeric portion of an analysis summary:
// per-column descriptive statistics, type distribution and comparison, and
// the Pearson correlation matrix across the three numeric columns. Outliers
// are attached separately by the caller. Degenerate input (a single row)
// yields NaN sample deviations, which are propagated rather than zeroed.
func Summarize(records []models.EquipmentRecord) models.AnalysisSummary {
	summary := models.AnalysisSummary{
		TotalCount:        len(records),
		Columns:           make(map[models.Column]models.ColumnStats, 3),
		TypeDistribution:  make(map[string]int),
		TypeComparison:    make(map[string]models.TypeStats),
		CorrelationMatrix: make(map[models.Column]map[models.Column]models.Metric, 3),
	}

	columns := make(map[models.Column][]float64, 3)
	for _, col := range models.NumericColumns() {
		values := columnValues(records, col)
		columns[col] = values
		summary.Columns[col] = models.ColumnStats{
			Avg: models.Metric(mean(values)),
			Min: models.Metric(minOf(values)),
			Max: models.Metric(maxOf(values)),
			Std: models.Metric(sampleStd(values)),
		}
	}

	for _, record := range records {
		summary.TypeDistribution[record.Type]++
	}
	for typ := range summary.TypeDistribution {
		group := make([]models.EquipmentRecord, 0)
		for _, record := range records {
			if record.Type == typ {
				group = append(group, record)
			}
		}
		summary.TypeComparison[typ] = models.TypeStats{
			Count:          len(group),
			AvgFlowrate:    models.Metric(mean(columnValues(group, models.ColumnFlowrate))),
			AvgPressure:    models.Metric(mean(columnValues(group, models.ColumnPressure))),
			AvgTemperature: models.Metric(mean(columnValues(group, models.ColumnTemperature))),
		}
	}

	// Compute each pair once and mirror, so symmetry holds by construction.
	cols := models.NumericColumns()
	for _, col := range cols {
		summary.CorrelationMatrix[col] = make(map[models.Column]models.Metric, len(cols))
	}
	for i, a := range cols {
		for j := i; j < len(cols); j++ {
			b := cols[j]
			r := models.Metric(pearson(columns[a], columns[b]))
			summary.CorrelationMatrix[a][b] = r
			summary.CorrelationMatrix[b][a] = r
		}
	}

	return summary
}

func columnValues(records []models.EquipmentRecord, col models.Column) []float64 {
	values := make([]float64, len(records))
	for i, record := range records {
		values[i] = record.Value(col)
	}
	return values
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStd is the Bessel-corrected standard deviation. NaN when n <= 1.
func sampleStd(values []float64) float64 {
	if len(values) <= 1 {
		return math.NaN()
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// pearson computes the correlation of two equal-length series. A constant
// series produces NaN (zero variance), which callers serialise as null.
func pearson(x, y []float64) float64 {
	if len(x) != len(y) || len(x) == 0 {
		return math.NaN()
	}
	mx := mean(x)
	my := mean(y)
	var num, vx, vy float64
	for i := range x {
		dx := x[i] - mx
		dy := y[i] - my
		num += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	return num / math.Sqrt(vx*vy)
}
