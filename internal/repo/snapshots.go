package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/equipsight/equipsight-engine/internal/models"
)

// ErrSnapshotNotFound is returned when a snapshot id does not exist for
// the requesting owner.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshots owns the snapshot write lifecycle: provisional create with
// atomic per-owner sequence assignment, completion, rollback deletion, and
// retention enforcement.
type Snapshots struct {
	db *gorm.DB
}

// NewSnapshots constructs the snapshot store.
func NewSnapshots(db *gorm.DB) *Snapshots {
	return &Snapshots{db: db}
}

// CreateProvisional inserts a processing-state snapshot and assigns the
// owner's next sequence_index inside one transaction, so two concurrent
// uploads by the same owner can never share an index.
func (s *Snapshots) CreateProvisional(ctx context.Context, ownerID uuid.UUID) (*models.AnalysisSnapshot, error) {
	snapshot := &models.AnalysisSnapshot{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Status:  models.SnapshotProcessing,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOwner(tx, ownerID); err != nil {
			return fmt.Errorf("lock owner: %w", err)
		}
		var maxIndex int64
		if err := tx.Model(&models.AnalysisSnapshot{}).
			Where("owner_id = ?", ownerID).
			Select("COALESCE(MAX(sequence_index), 0)").
			Scan(&maxIndex).Error; err != nil {
			return fmt.Errorf("current max sequence index: %w", err)
		}
		snapshot.SequenceIndex = maxIndex + 1
		snapshot.UploadedAt = time.Now().UTC()
		return tx.Create(snapshot).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create provisional snapshot: %w", err)
	}
	return snapshot, nil
}

// Complete stores the analysed records and summary and marks the snapshot
// visible.
func (s *Snapshots) Complete(ctx context.Context, id uuid.UUID, records []models.EquipmentRecord, summary models.AnalysisSummary) (*models.AnalysisSnapshot, error) {
	recordsJSON, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}

	result := s.db.WithContext(ctx).
		Model(&models.AnalysisSnapshot{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"records": recordsJSON,
			"summary": summaryJSON,
			"status":  models.SnapshotComplete,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("complete snapshot: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrSnapshotNotFound
	}

	var snapshot models.AnalysisSnapshot
	if err := s.db.WithContext(ctx).First(&snapshot, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("reload snapshot: %w", err)
	}
	return &snapshot, nil
}

// Delete removes a snapshot row. Used to roll back a provisional snapshot
// whose ingestion failed; the row never becomes visible.
func (s *Snapshots) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Delete(&models.AnalysisSnapshot{}, "id = ?", id).Error
}

// GetByID fetches one completed snapshot scoped to its owner.
func (s *Snapshots) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*models.AnalysisSnapshot, error) {
	var snapshot models.AnalysisSnapshot
	err := s.db.WithContext(ctx).
		First(&snapshot, "id = ? AND owner_id = ? AND status = ?", id, ownerID, models.SnapshotComplete).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return &snapshot, nil
}

// ListRecent returns the owner's newest completed snapshots, most recent
// upload first.
func (s *Snapshots) ListRecent(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.AnalysisSnapshot, error) {
	var snapshots []models.AnalysisSnapshot
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND status = ?", ownerID, models.SnapshotComplete).
		Order("uploaded_at DESC").
		Order("sequence_index DESC").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snapshots, nil
}

// EnforceRetention keeps the owner's `keep` most recently uploaded
// completed snapshots and deletes the remainder in one batch. Calling it
// again with no new snapshot is a no-op. Sequence indices are never
// renumbered. Returns the number of evicted snapshots.
func (s *Snapshots) EnforceRetention(ctx context.Context, ownerID uuid.UUID, keep int) (int64, error) {
	if keep <= 0 {
		return 0, fmt.Errorf("retention keep must be positive, got %d", keep)
	}

	var evicted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOwner(tx, ownerID); err != nil {
			return fmt.Errorf("lock owner: %w", err)
		}

		var keepIDs []uuid.UUID
		if err := tx.Model(&models.AnalysisSnapshot{}).
			Where("owner_id = ? AND status = ?", ownerID, models.SnapshotComplete).
			Order("uploaded_at DESC").
			Order("sequence_index DESC").
			Limit(keep).
			Pluck("id", &keepIDs).Error; err != nil {
			return fmt.Errorf("select retained snapshots: %w", err)
		}
		if len(keepIDs) < keep {
			return nil
		}

		result := tx.
			Where("owner_id = ? AND status = ? AND id NOT IN ?", ownerID, models.SnapshotComplete, keepIDs).
			Delete(&models.AnalysisSnapshot{})
		if result.Error != nil {
			return fmt.Errorf("evict snapshots: %w", result.Error)
		}
		evicted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return evicted, nil
}
