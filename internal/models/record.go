package models

import (
	"encoding/json"
	"math"
)

// Column identifies one of the three numeric parameter columns.
type Column string

const (
	ColumnFlowrate    Column = "flowrate"
	ColumnPressure    Column = "pressure"
	ColumnTemperature Column = "temperature"
)

// NumericColumns returns the numeric columns in their fixed scan order.
func NumericColumns() []Column {
	return []Column{ColumnFlowrate, ColumnPressure, ColumnTemperature}
}

// HealthStatus is the three-level per-record classification.
type HealthStatus string

const (
	HealthNormal   HealthStatus = "normal"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// HealthColor maps a status to its display colour.
func HealthColor(status HealthStatus) string {
	switch status {
	case HealthCritical:
		return "#ef4444"
	case HealthWarning:
		return "#f59e0b"
	default:
		return "#10b981"
	}
}

// EquipmentRecord is one row of the source table. The raw fields are
// immutable once read; the health fields are derived and re-attached on read.
type EquipmentRecord struct {
	EquipmentName string  `json:"equipment_name"`
	Type          string  `json:"type"`
	Flowrate      float64 `json:"flowrate"`
	Pressure      float64 `json:"pressure"`
	Temperature   float64 `json:"temperature"`

	HealthStatus HealthStatus `json:"health_status,omitempty"`
	HealthColor  string       `json:"health_color,omitempty"`
}

// Value returns the record's value for a numeric column.
func (r EquipmentRecord) Value(col Column) float64 {
	switch col {
	case ColumnFlowrate:
		return r.Flowrate
	case ColumnPressure:
		return r.Pressure
	default:
		return r.Temperature
	}
}

// Metric is a float64 that serialises NaN as JSON null, so degenerate
// statistics (sample std over a single row, correlation of a constant
// column) survive the JSONB round trip instead of breaking encoding.
type Metric float64

// MarshalJSON emits null for NaN values.
func (m Metric) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(m)) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(m))
}

// UnmarshalJSON reads null back as NaN.
func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Metric(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Metric(v)
	return nil
}
