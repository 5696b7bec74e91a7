package models

import (
	"time"

	"github.com/google/uuid"
)

// Classification threshold bounds and hardcoded defaults. The defaults are
// the last tier of the resolution chain and are always in range.
const (
	WarningPercentileMin = 0.50
	WarningPercentileMax = 0.95
	IQRMultiplierMin     = 0.5
	IQRMultiplierMax     = 3.0

	DefaultWarningPercentile = 0.75
	DefaultIQRMultiplier     = 1.5
)

// ThresholdSettings is the per-user override row. Absent row = fallback.
type ThresholdSettings struct {
	UserID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	WarningPercentile    float64   `json:"warning_percentile"`
	OutlierIQRMultiplier float64   `json:"outlier_iqr_multiplier"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TableName pins the storage table name.
func (ThresholdSettings) TableName() string { return "threshold_settings" }

// ResolvedThresholds is the always-valid pair produced by the resolver.
type ResolvedThresholds struct {
	WarningPercentile    float64 `json:"warning_percentile"`
	OutlierIQRMultiplier float64 `json:"outlier_iqr_multiplier"`
}

// ThresholdUpdate carries a user-submitted save. Nil fields were omitted
// and leave the stored value unchanged.
type ThresholdUpdate struct {
	WarningPercentile    *float64 `json:"warning_percentile"`
	OutlierIQRMultiplier *float64 `json:"outlier_iqr_multiplier"`
}
