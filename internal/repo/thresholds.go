package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/equipsight/equipsight-engine/internal/models"
)

// Thresholds persists per-user threshold override rows.
type Thresholds struct {
	db *gorm.DB
}

// NewThresholds constructs the threshold settings store.
func NewThresholds(db *gorm.DB) *Thresholds {
	return &Thresholds{db: db}
}

// Get returns the user's override row, or nil when the user has none.
func (t *Thresholds) Get(ctx context.Context, userID uuid.UUID) (*models.ThresholdSettings, error) {
	var row models.ThresholdSettings
	err := t.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load threshold settings: %w", err)
	}
	return &row, nil
}

// Upsert inserts the row on first save. On conflict it updates only the
// columns the user actually submitted, so a concurrent save of the other
// field is never clobbered.
func (t *Thresholds) Upsert(ctx context.Context, row models.ThresholdSettings, update models.ThresholdUpdate) (models.ThresholdSettings, error) {
	columns := make([]string, 0, 3)
	if update.WarningPercentile != nil {
		columns = append(columns, "warning_percentile")
	}
	if update.OutlierIQRMultiplier != nil {
		columns = append(columns, "outlier_iqr_multiplier")
	}

	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: len(columns) == 0,
	}
	if len(columns) > 0 {
		onConflict.DoUpdates = clause.AssignmentColumns(append(columns, "updated_at"))
	}

	if err := t.db.WithContext(ctx).Clauses(onConflict).Create(&row).Error; err != nil {
		return models.ThresholdSettings{}, fmt.Errorf("upsert threshold settings: %w", err)
	}

	saved, err := t.Get(ctx, row.UserID)
	if err != nil {
		return models.ThresholdSettings{}, err
	}
	if saved == nil {
		return models.ThresholdSettings{}, errors.New("threshold settings disappeared after upsert")
	}
	return *saved, nil
}

// Delete removes the user's override row. Deleting an absent row is a
// no-op.
func (t *Thresholds) Delete(ctx context.Context, userID uuid.UUID) error {
	return t.db.WithContext(ctx).Delete(&models.ThresholdSettings{}, "user_id = ?", userID).Error
}
