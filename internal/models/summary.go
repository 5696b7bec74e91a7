package models

// ColumnStats holds the descriptive statistics for one numeric column.
type ColumnStats struct {
	Avg Metric `json:"avg"`
	Min Metric `json:"min"`
	Max Metric `json:"max"`
	Std Metric `json:"std"`
}

// TypeStats compares equipment of one type against the numeric columns.
type TypeStats struct {
	Count          int    `json:"count"`
	AvgFlowrate    Metric `json:"avg_flowrate"`
	AvgPressure    Metric `json:"avg_pressure"`
	AvgTemperature Metric `json:"avg_temperature"`
}

// BoundStatus marks which IQR bound a value violated.
type BoundStatus string

const (
	BoundHigh BoundStatus = "high"
	BoundLow  BoundStatus = "low"
)

// OutlierParameter describes one violated column for an equipment.
type OutlierParameter struct {
	Parameter  Column      `json:"parameter"`
	Value      float64     `json:"value"`
	LowerBound float64     `json:"lower_bound"`
	UpperBound float64     `json:"upper_bound"`
	Status     BoundStatus `json:"status"`
}

// OutlierEntry groups every violated column for one equipment. Parameters
// follow the fixed column scan order; entries follow first-violation order.
type OutlierEntry struct {
	EquipmentName string             `json:"equipment_name"`
	Parameters    []OutlierParameter `json:"parameters"`
}

// AnalysisSummary is the derived portion of a snapshot. Every field except
// Outliers is frozen at upload time; Outliers is re-derived on read.
type AnalysisSummary struct {
	TotalCount        int                          `json:"total_count"`
	Columns           map[Column]ColumnStats       `json:"columns"`
	TypeDistribution  map[string]int               `json:"type_distribution"`
	TypeComparison    map[string]TypeStats         `json:"type_comparison"`
	CorrelationMatrix map[Column]map[Column]Metric `json:"correlation_matrix"`
	Outliers          []OutlierEntry               `json:"outliers"`
}
