// Package ingest reads and validates the tabular equipment source.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/equipsight/equipsight-engine/internal/models"
)

// Required source columns, case- and spelling-exact.
const (
	HeaderEquipmentName = "Equipment Name"
	HeaderType          = "Type"
	HeaderFlowrate      = "Flowrate"
	HeaderPressure      = "Pressure"
	HeaderTemperature   = "Temperature"
)

func requiredHeaders() []string {
	return []string{HeaderEquipmentName, HeaderType, HeaderFlowrate, HeaderPressure, HeaderTemperature}
}

// ValidationError reports every missing column and unparsable numeric cell
// in one message, so a malformed table can be corrected in a single pass.
type ValidationError struct {
	MissingColumns []string      `json:"missing_columns,omitempty"`
	InvalidCells   []InvalidCell `json:"invalid_cells,omitempty"`
}

// InvalidCell names one numeric cell that failed to parse.
type InvalidCell struct {
	Row    int    `json:"row"` // 1-based data row number, excluding the header
	Column string `json:"column"`
	Value  string `json:"value"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.MissingColumns) > 0 {
		parts = append(parts, fmt.Sprintf("missing required columns: %s", strings.Join(e.MissingColumns, ", ")))
	}
	if len(e.InvalidCells) > 0 {
		cells := make([]string, 0, len(e.InvalidCells))
		for _, cell := range e.InvalidCells {
			cells = append(cells, fmt.Sprintf("%s (row %d: %q)", cell.Column, cell.Row, cell.Value))
		}
		parts = append(parts, fmt.Sprintf("invalid numeric cells: %s", strings.Join(cells, ", ")))
	}
	if len(parts) == 0 {
		return "invalid table"
	}
	return strings.Join(parts, "; ")
}

// ReadTable parses a CSV source into equipment records. The header row must
// contain exactly the five required columns; extra columns are ignored.
// Column and cell problems are gathered into a single ValidationError.
func ReadTable(r io.Reader) ([]models.EquipmentRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, &ValidationError{MissingColumns: requiredHeaders()}
		}
		return nil, fmt.Errorf("read header row: %w", err)
	}

	index := make(map[string]int, len(headers))
	for i, header := range headers {
		if _, ok := index[header]; !ok {
			index[header] = i
		}
	}

	verr := &ValidationError{}
	for _, required := range requiredHeaders() {
		if _, ok := index[required]; !ok {
			verr.MissingColumns = append(verr.MissingColumns, required)
		}
	}
	if len(verr.MissingColumns) > 0 {
		return nil, verr
	}

	var records []models.EquipmentRecord
	row := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}
		row++

		record := models.EquipmentRecord{
			EquipmentName: fieldAt(fields, index[HeaderEquipmentName]),
			Type:          fieldAt(fields, index[HeaderType]),
		}
		record.Flowrate = parseCell(fields, index[HeaderFlowrate], HeaderFlowrate, row, verr)
		record.Pressure = parseCell(fields, index[HeaderPressure], HeaderPressure, row, verr)
		record.Temperature = parseCell(fields, index[HeaderTemperature], HeaderTemperature, row, verr)
		records = append(records, record)
	}

	if len(verr.InvalidCells) > 0 {
		sort.SliceStable(verr.InvalidCells, func(i, j int) bool {
			return verr.InvalidCells[i].Row < verr.InvalidCells[j].Row
		})
		return nil, verr
	}
	return records, nil
}

func fieldAt(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

func parseCell(fields []string, i int, column string, row int, verr *ValidationError) float64 {
	raw := fieldAt(fields, i)
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		verr.InvalidCells = append(verr.InvalidCells, InvalidCell{Row: row, Column: column, Value: raw})
		return 0
	}
	return value
}
