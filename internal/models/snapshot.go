package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SnapshotStatus tracks the snapshot write lifecycle. Provisional rows are
// invisible to listing and retention until completed.
type SnapshotStatus string

const (
	SnapshotProcessing SnapshotStatus = "processing"
	SnapshotComplete   SnapshotStatus = "complete"
)

// AnalysisSnapshot is the persisted result of one upload. Raw fields are
// immutable after completion; derived classification is recomputed on read.
type AnalysisSnapshot struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID       uuid.UUID      `gorm:"type:uuid;index;uniqueIndex:idx_snapshot_owner_seq" json:"owner_id"`
	SequenceIndex int64          `gorm:"uniqueIndex:idx_snapshot_owner_seq" json:"sequence_index"`
	Status        SnapshotStatus `gorm:"type:text" json:"-"`
	UploadedAt    time.Time      `json:"uploaded_at"`
	Records       datatypes.JSON `gorm:"type:jsonb" json:"-"`
	Summary       datatypes.JSON `gorm:"type:jsonb" json:"-"`
}

// TableName pins the storage table name.
func (AnalysisSnapshot) TableName() string { return "analysis_snapshots" }

// DecodeRecords unmarshals the stored record rows.
func (s *AnalysisSnapshot) DecodeRecords() ([]EquipmentRecord, error) {
	var records []EquipmentRecord
	if len(s.Records) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(s.Records, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// DecodeSummary unmarshals the stored summary.
func (s *AnalysisSnapshot) DecodeSummary() (AnalysisSummary, error) {
	var summary AnalysisSummary
	if len(s.Summary) == 0 {
		return summary, nil
	}
	if err := json.Unmarshal(s.Summary, &summary); err != nil {
		return AnalysisSummary{}, err
	}
	return summary, nil
}

// SnapshotView is the effective representation served to reporting
// consumers: stored numeric summary plus freshly classified records.
type SnapshotView struct {
	ID            uuid.UUID         `json:"id"`
	SequenceIndex int64             `json:"sequence_index"`
	UploadedAt    time.Time         `json:"uploaded_at"`
	Summary       AnalysisSummary   `json:"summary"`
	Records       []EquipmentRecord `json:"records"`
}
