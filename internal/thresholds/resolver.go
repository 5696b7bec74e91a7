// Package thresholds resolves and manages the two classification
// parameters: warning percentile and outlier IQR multiplier.
package thresholds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/equipsight/equipsight-engine/internal/cache"
	"github.com/equipsight/equipsight-engine/internal/models"
)

// Store defines the persistence operations the resolver needs. A nil
// settings pointer from Get means the user has no override row.
type Store interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.ThresholdSettings, error)
	Upsert(ctx context.Context, row models.ThresholdSettings, update models.ThresholdUpdate) (models.ThresholdSettings, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

// FallbackConfig carries the process-wide fallback tier as raw strings.
// Each field is parsed and range-checked independently; a bad value falls
// through to the hardcoded default for that field alone.
type FallbackConfig struct {
	WarningPercentile    string
	OutlierIQRMultiplier string
}

// FieldErrors maps a submitted field name to its validation message, so
// multiple errors can be corrected in one round trip.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, field := range []string{"warning_percentile", "outlier_iqr_multiplier"} {
		if msg, ok := e[field]; ok {
			parts = append(parts, field+": "+msg)
		}
	}
	msg := "invalid threshold settings"
	for _, part := range parts {
		msg += "; " + part
	}
	return msg
}

// Resolver implements the three-tier resolution chain: user override,
// process-wide fallback, hardcoded default. Resolve never fails.
type Resolver struct {
	store    Store
	fallback models.ResolvedThresholds
	cache    cache.Provider
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewResolver constructs a Resolver. The fallback tier is parsed once at
// construction; the cache may be nil.
func NewResolver(store Store, fallbackCfg FallbackConfig, provider cache.Provider, cacheTTL time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	return &Resolver{
		store:    store,
		fallback: ResolveFallback(fallbackCfg, logger),
		cache:    provider,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// ResolveFallback merges the configured fallback tier with the hardcoded
// defaults, field by field. Unparsable or out-of-range values are discarded.
func ResolveFallback(cfg FallbackConfig, logger *slog.Logger) models.ResolvedThresholds {
	resolved := models.ResolvedThresholds{
		WarningPercentile:    models.DefaultWarningPercentile,
		OutlierIQRMultiplier: models.DefaultIQRMultiplier,
	}
	if cfg.WarningPercentile != "" {
		if v, err := strconv.ParseFloat(cfg.WarningPercentile, 64); err == nil && warningInRange(v) {
			resolved.WarningPercentile = v
		} else if logger != nil {
			logger.Warn("ignoring configured warning percentile", slog.String("value", cfg.WarningPercentile))
		}
	}
	if cfg.OutlierIQRMultiplier != "" {
		if v, err := strconv.ParseFloat(cfg.OutlierIQRMultiplier, 64); err == nil && multiplierInRange(v) {
			resolved.OutlierIQRMultiplier = v
		} else if logger != nil {
			logger.Warn("ignoring configured IQR multiplier", slog.String("value", cfg.OutlierIQRMultiplier))
		}
	}
	return resolved
}

// Resolve returns the effective threshold pair for a user. It never errors:
// storage failures fall back to the process-wide tier.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) models.ResolvedThresholds {
	key := cacheKey(userID)
	if payload, err := r.cache.Get(ctx, key); err == nil {
		var cached models.ResolvedThresholds
		if json.Unmarshal(payload, &cached) == nil && warningInRange(cached.WarningPercentile) && multiplierInRange(cached.OutlierIQRMultiplier) {
			return cached
		}
	}

	resolved := r.fallback
	if r.store != nil {
		row, err := r.store.Get(ctx, userID)
		switch {
		case err != nil:
			r.logger.Warn("threshold lookup failed, using fallback", slog.String("user_id", userID.String()), slog.Any("error", err))
		case row != nil:
			resolved = models.ResolvedThresholds{
				WarningPercentile:    row.WarningPercentile,
				OutlierIQRMultiplier: row.OutlierIQRMultiplier,
			}
		}
	}

	if payload, err := json.Marshal(resolved); err == nil {
		if err := r.cache.Set(ctx, key, payload, r.cacheTTL); err != nil {
			r.logger.Debug("threshold cache set failed", slog.Any("error", err))
		}
	}
	return resolved
}

// Save validates and persists a user-submitted update. Out-of-range fields
// are rejected with FieldErrors and nothing is written; omitted fields keep
// their stored value. A first-time save seeds omitted fields from the
// currently resolved pair.
func (r *Resolver) Save(ctx context.Context, userID uuid.UUID, update models.ThresholdUpdate) (models.ThresholdSettings, error) {
	fieldErrs := FieldErrors{}
	if update.WarningPercentile != nil && !warningInRange(*update.WarningPercentile) {
		fieldErrs["warning_percentile"] = fmt.Sprintf("must be between %.2f and %.2f", models.WarningPercentileMin, models.WarningPercentileMax)
	}
	if update.OutlierIQRMultiplier != nil && !multiplierInRange(*update.OutlierIQRMultiplier) {
		fieldErrs["outlier_iqr_multiplier"] = fmt.Sprintf("must be between %.1f and %.1f", models.IQRMultiplierMin, models.IQRMultiplierMax)
	}
	if len(fieldErrs) > 0 {
		return models.ThresholdSettings{}, fieldErrs
	}
	if r.store == nil {
		return models.ThresholdSettings{}, errors.New("threshold store not configured")
	}

	base := r.Resolve(ctx, userID)
	row := models.ThresholdSettings{
		UserID:               userID,
		WarningPercentile:    base.WarningPercentile,
		OutlierIQRMultiplier: base.OutlierIQRMultiplier,
	}
	if update.WarningPercentile != nil {
		row.WarningPercentile = *update.WarningPercentile
	}
	if update.OutlierIQRMultiplier != nil {
		row.OutlierIQRMultiplier = *update.OutlierIQRMultiplier
	}

	saved, err := r.store.Upsert(ctx, row, update)
	if err != nil {
		return models.ThresholdSettings{}, fmt.Errorf("save thresholds: %w", err)
	}
	r.invalidate(ctx, userID)
	return saved, nil
}

// Reset deletes the user's override row, reverting to fallback behaviour.
func (r *Resolver) Reset(ctx context.Context, userID uuid.UUID) error {
	if r.store == nil {
		return errors.New("threshold store not configured")
	}
	if err := r.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("reset thresholds: %w", err)
	}
	r.invalidate(ctx, userID)
	return nil
}

// Settings returns the user's stored override row, if any.
func (r *Resolver) Settings(ctx context.Context, userID uuid.UUID) (*models.ThresholdSettings, error) {
	if r.store == nil {
		return nil, errors.New("threshold store not configured")
	}
	return r.store.Get(ctx, userID)
}

// Fallback exposes the resolved process-wide tier.
func (r *Resolver) Fallback() models.ResolvedThresholds {
	return r.fallback
}

func (r *Resolver) invalidate(ctx context.Context, userID uuid.UUID) {
	if err := r.cache.Del(ctx, cacheKey(userID)); err != nil {
		r.logger.Debug("threshold cache invalidation failed", slog.Any("error", err))
	}
}

func cacheKey(userID uuid.UUID) string {
	return "thresholds:" + userID.String()
}

func warningInRange(v float64) bool {
	return v >= models.WarningPercentileMin && v <= models.WarningPercentileMax
}

func multiplierInRange(v float64) bool {
	return v >= models.IQRMultiplierMin && v <= models.IQRMultiplierMax
}
