package engine

import (
	"testing"

	"github.com/equipsight/equipsight-engine/internal/models"
)

func baseRecords() []models.EquipmentRecord {
	records := make([]models.EquipmentRecord, 0, 10)
	flows := []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 100}
	names := []string{"E1", "E2", "E3", "E4", "E5", "E6", "E7", "E8", "E9", "E10"}
	for i := range flows {
		records = append(records, models.EquipmentRecord{
			EquipmentName: names[i],
			Type:          "Pump",
			Flowrate:      flows[i],
			Pressure:      5,
			Temperature:   100,
		})
	}
	return records
}

func TestDetectOutliersSingleExtreme(t *testing.T) {
	entries := DetectOutliers(baseRecords(), 1.5)

	if len(entries) != 1 {
		t.Fatalf("expected 1 outlier entry, got %d: %+v", len(entries), entries)
	}
	entry := entries[0]
	if entry.EquipmentName != "E10" {
		t.Fatalf("expected E10, got %s", entry.EquipmentName)
	}
	if len(entry.Parameters) != 1 || entry.Parameters[0].Parameter != models.ColumnFlowrate {
		t.Fatalf("unexpected parameters: %+v", entry.Parameters)
	}
	if entry.Parameters[0].Status != models.BoundHigh {
		t.Fatalf("expected high bound violation, got %s", entry.Parameters[0].Status)
	}
	if entry.Parameters[0].Value != 100 {
		t.Fatalf("expected violating value 100, got %f", entry.Parameters[0].Value)
	}
}

func TestDetectOutliersGroupsByEquipment(t *testing.T) {
	records := baseRecords()
	// E10 extreme on every column: one entry, three parameters in scan order.
	records[9].Pressure = 500
	records[9].Temperature = 900

	entries := DetectOutliers(records, 1.5)

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	params := entries[0].Parameters
	if len(params) != 3 {
		t.Fatalf("expected 3 parameters, got %+v", params)
	}
	want := models.NumericColumns()
	for i, param := range params {
		if param.Parameter != want[i] {
			t.Fatalf("parameter %d: got %s, want %s", i, param.Parameter, want[i])
		}
	}
}

func TestDetectOutliersEntryOrderFollowsFirstViolation(t *testing.T) {
	records := baseRecords()
	// E3 violates only pressure; E10 violates flowrate. Flowrate is scanned
	// first, so E10's entry must precede E3's.
	records[2].Pressure = 500

	entries := DetectOutliers(records, 1.5)

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].EquipmentName != "E10" || entries[1].EquipmentName != "E3" {
		t.Fatalf("unexpected entry order: %s, %s", entries[0].EquipmentName, entries[1].EquipmentName)
	}
}

func TestDetectOutliersMonotoneInMultiplier(t *testing.T) {
	records := baseRecords()
	records[0].Pressure = 0.1
	records[9].Temperature = 400

	multipliers := []float64{0.5, 1.0, 1.5, 2.0, 3.0}
	previous := -1
	for i := len(multipliers) - 1; i >= 0; i-- {
		count := violationCount(DetectOutliers(records, multipliers[i]))
		if previous >= 0 && count < previous {
			t.Fatalf("multiplier %f produced %d violations, smaller multiplier must not produce fewer than %d",
				multipliers[i], count, previous)
		}
		previous = count
	}
}

func TestDetectOutliersExactNameMatching(t *testing.T) {
	records := baseRecords()
	// Same label with different whitespace is a distinct equipment.
	records[9].EquipmentName = "E10 "
	records[8].EquipmentName = "E10"
	records[8].Pressure = 500

	entries := DetectOutliers(records, 1.5)

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for distinct names, got %+v", entries)
	}
}

func TestDetectOutliersEmptyInput(t *testing.T) {
	if entries := DetectOutliers(nil, 1.5); entries != nil {
		t.Fatalf("expected nil for empty input, got %+v", entries)
	}
}

func violationCount(entries []models.OutlierEntry) int {
	count := 0
	for _, entry := range entries {
		count += len(entry.Parameters)
	}
	return count
}
