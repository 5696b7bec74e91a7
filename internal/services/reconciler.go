package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/equipsight/equipsight-engine/internal/engine"
	"github.com/equipsight/equipsight-engine/internal/metrics"
	"github.com/equipsight/equipsight-engine/internal/models"
	"github.com/equipsight/equipsight-engine/internal/utils"
)

// Reconciler serves snapshot reads. The stored numeric summary is frozen
// at upload time, but outliers and per-record health are re-derived on
// every read against the requesting user's current thresholds. If the
// re-derivation cannot run, the stored classification is served instead
// of failing the read.
type Reconciler struct {
	logger    *slog.Logger
	snapshots SnapshotStore
	resolver  ThresholdResolver
}

// NewReconciler constructs the read-side reconciler.
func NewReconciler(logger *slog.Logger, snapshots SnapshotStore, resolver ThresholdResolver) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{logger: logger, snapshots: snapshots, resolver: resolver}
}

// View returns the effective representation of one snapshot for the
// requesting user.
func (r *Reconciler) View(ctx context.Context, requesterID, snapshotID uuid.UUID) (*models.SnapshotView, error) {
	snapshot, err := r.snapshots.GetByID(ctx, requesterID, snapshotID)
	if err != nil {
		return nil, err
	}
	view, err := r.reconcile(ctx, requesterID, snapshot)
	if err != nil {
		return nil, err
	}
	return view, nil
}

// History returns the requester's recent snapshots, newest first, each
// reconciled against current thresholds.
func (r *Reconciler) History(ctx context.Context, requesterID uuid.UUID, limit int) ([]models.SnapshotView, error) {
	snapshots, err := r.snapshots.ListRecent(ctx, requesterID, limit)
	if err != nil {
		return nil, err
	}
	views := make([]models.SnapshotView, 0, len(snapshots))
	for i := range snapshots {
		view, err := r.reconcile(ctx, requesterID, &snapshots[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

// errEmptySnapshot marks a snapshot whose stored record set cannot support
// recomputation; the stored classification is served as-is.
var errEmptySnapshot = errors.New("snapshot has no records to reclassify")

func (r *Reconciler) reconcile(ctx context.Context, requesterID uuid.UUID, snapshot *models.AnalysisSnapshot) (*models.SnapshotView, error) {
	records, err := snapshot.DecodeRecords()
	if err != nil {
		return nil, utils.NewAppError("view", "decode stored records", err)
	}
	summary, err := snapshot.DecodeSummary()
	if err != nil {
		return nil, utils.NewAppError("view", "decode stored summary", err)
	}

	view := &models.SnapshotView{
		ID:            snapshot.ID,
		SequenceIndex: snapshot.SequenceIndex,
		UploadedAt:    snapshot.UploadedAt,
		Summary:       summary,
		Records:       records,
	}

	outliers, classified, err := r.recompute(ctx, requesterID, records)
	if err != nil {
		// Serve the stored, possibly stale classification rather than
		// failing the read.
		r.logger.Warn("classification recompute failed, serving stored",
			slog.String("snapshot_id", snapshot.ID.String()), slog.Any("error", err))
		metrics.ObserveSnapshotView(metrics.ClassificationStale)
		return view, nil
	}

	view.Summary.Outliers = outliers
	view.Records = classified
	metrics.ObserveSnapshotView(metrics.ClassificationFresh)
	return view, nil
}

func (r *Reconciler) recompute(ctx context.Context, requesterID uuid.UUID, records []models.EquipmentRecord) ([]models.OutlierEntry, []models.EquipmentRecord, error) {
	if len(records) == 0 {
		return nil, nil, errEmptySnapshot
	}
	resolved := r.resolver.Resolve(ctx, requesterID)
	outliers := engine.DetectOutliers(records, resolved.OutlierIQRMultiplier)
	classified := engine.ClassifyHealth(records, outliers, resolved.WarningPercentile)
	return outliers, classified, nil
}
