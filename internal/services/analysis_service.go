// Package services orchestrates ingestion, analysis, persistence, and
// retrieval of equipment analysis snapshots.
package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/equipsight/equipsight-engine/internal/engine"
	"github.com/equipsight/equipsight-engine/internal/ingest"
	"github.com/equipsight/equipsight-engine/internal/metrics"
	"github.com/equipsight/equipsight-engine/internal/models"
	"github.com/equipsight/equipsight-engine/internal/utils"
)

// SnapshotStore defines the snapshot persistence behaviour used by the
// services.
type SnapshotStore interface {
	CreateProvisional(ctx context.Context, ownerID uuid.UUID) (*models.AnalysisSnapshot, error)
	Complete(ctx context.Context, id uuid.UUID, records []models.EquipmentRecord, summary models.AnalysisSummary) (*models.AnalysisSnapshot, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*models.AnalysisSnapshot, error)
	ListRecent(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.AnalysisSnapshot, error)
	EnforceRetention(ctx context.Context, ownerID uuid.UUID, keep int) (int64, error)
}

// ThresholdResolver yields the effective classification parameters for a
// user. Implementations never fail; they fall back to defaults.
type ThresholdResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) models.ResolvedThresholds
}

// AnalysisService runs the upload pipeline: parse, validate, summarise,
// detect outliers, classify, persist, and enforce retention.
type AnalysisService struct {
	logger    *slog.Logger
	snapshots SnapshotStore
	resolver  ThresholdResolver
	keep      int
	latencies *utils.LatencyTracker
}

// NewAnalysisService constructs the upload pipeline service. keep is the
// per-owner snapshot retention cap.
func NewAnalysisService(logger *slog.Logger, snapshots SnapshotStore, resolver ThresholdResolver, keep int) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	if keep <= 0 {
		keep = 5
	}
	return &AnalysisService{
		logger:    logger,
		snapshots: snapshots,
		resolver:  resolver,
		keep:      keep,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// AnalyzeUpload consumes a CSV source and returns the completed snapshot
// view. A provisional snapshot is written first so the owner's sequence
// index is claimed atomically; any failure afterwards deletes it, so a
// rejected table never becomes visible or counts toward retention.
func (s *AnalysisService) AnalyzeUpload(ctx context.Context, ownerID uuid.UUID, source io.Reader) (*models.SnapshotView, error) {
	start := time.Now()

	provisional, err := s.snapshots.CreateProvisional(ctx, ownerID)
	if err != nil {
		metrics.ObserveUpload(time.Since(start), metrics.OutcomeError)
		return nil, utils.NewAppError("analyze", "claim snapshot slot", err)
	}

	records, err := ingest.ReadTable(source)
	if err != nil {
		s.rollback(ctx, provisional.ID)
		outcome := metrics.OutcomeError
		var verr *ingest.ValidationError
		if errors.As(err, &verr) {
			outcome = metrics.OutcomeInvalid
			s.logger.Info("upload rejected",
				slog.String("owner_id", ownerID.String()),
				slog.String("reason", verr.Error()))
		}
		metrics.ObserveUpload(time.Since(start), outcome)
		return nil, err
	}

	resolved := s.resolver.Resolve(ctx, ownerID)
	summary := engine.Summarize(records)
	summary.Outliers = engine.DetectOutliers(records, resolved.OutlierIQRMultiplier)
	classified := engine.ClassifyHealth(records, summary.Outliers, resolved.WarningPercentile)

	snapshot, err := s.snapshots.Complete(ctx, provisional.ID, classified, summary)
	if err != nil {
		s.rollback(ctx, provisional.ID)
		metrics.ObserveUpload(time.Since(start), metrics.OutcomeError)
		return nil, utils.NewAppError("analyze", "persist snapshot", err)
	}

	if evicted, err := s.snapshots.EnforceRetention(ctx, ownerID, s.keep); err != nil {
		// The upload itself succeeded; eviction is retried on the next one.
		s.logger.Warn("retention enforcement failed",
			slog.String("owner_id", ownerID.String()), slog.Any("error", err))
	} else if evicted > 0 {
		s.logger.Info("evicted old snapshots",
			slog.String("owner_id", ownerID.String()), slog.Int64("evicted", evicted))
	}

	duration := time.Since(start)
	s.latencies.Observe(duration)
	metrics.ObserveUpload(duration, metrics.OutcomeSuccess)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("upload analysis latency",
			slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}

	return &models.SnapshotView{
		ID:            snapshot.ID,
		SequenceIndex: snapshot.SequenceIndex,
		UploadedAt:    snapshot.UploadedAt,
		Summary:       summary,
		Records:       classified,
	}, nil
}

// LatencyP95 returns the current p95 upload analysis latency.
func (s *AnalysisService) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}

func (s *AnalysisService) rollback(ctx context.Context, id uuid.UUID) {
	if err := s.snapshots.Delete(ctx, id); err != nil {
		s.logger.Error("provisional snapshot rollback failed",
			slog.String("snapshot_id", id.String()), slog.Any("error", err))
	}
}
