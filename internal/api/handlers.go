package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/equipsight/equipsight-engine/internal/ingest"
	"github.com/equipsight/equipsight-engine/internal/models"
	"github.com/equipsight/equipsight-engine/internal/repo"
	"github.com/equipsight/equipsight-engine/internal/services"
	"github.com/equipsight/equipsight-engine/internal/thresholds"
)

// Handlers binds the HTTP surface to the service layer.
type Handlers struct {
	logger         *slog.Logger
	analysis       *services.AnalysisService
	reconciler     *services.Reconciler
	thresholds     *thresholds.Resolver
	maxUploadBytes int64
}

// NewHandlers constructs the HTTP handler set.
func NewHandlers(logger *slog.Logger, analysis *services.AnalysisService, reconciler *services.Reconciler, resolver *thresholds.Resolver, maxUploadBytes int64) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Handlers{
		logger:         logger,
		analysis:       analysis,
		reconciler:     reconciler,
		thresholds:     resolver,
		maxUploadBytes: maxUploadBytes,
	}
}

func errorBody(message string) gin.H {
	return gin.H{"error": message}
}

// Upload accepts a CSV table as the multipart form field "file" and
// returns the completed snapshot.
func (h *Handlers) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("multipart field \"file\" is required"))
		return
	}
	source, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("unreadable upload"))
		return
	}
	defer source.Close()

	reader := http.MaxBytesReader(c.Writer, source, h.maxUploadBytes)
	view, err := h.analysis.AnalyzeUpload(c.Request.Context(), userID(c), reader)
	if err != nil {
		var verr *ingest.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":           verr.Error(),
				"missing_columns": verr.MissingColumns,
				"invalid_cells":   verr.InvalidCells,
			})
			return
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, errorBody("upload exceeds size limit"))
			return
		}
		h.logger.Error("upload failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, errorBody("analysis failed"))
		return
	}

	c.JSON(http.StatusCreated, view)
}

// History lists the requester's retained snapshots, newest first.
func (h *Handlers) History(c *gin.Context) {
	limit := 5
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, errorBody("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	views, err := h.reconciler.History(c.Request.Context(), userID(c), limit)
	if err != nil {
		h.logger.Error("history read failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, errorBody("history unavailable"))
		return
	}
	if views == nil {
		views = []models.SnapshotView{}
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": views})
}

// Snapshot returns one retained snapshot, reclassified against the
// requester's current thresholds.
func (h *Handlers) Snapshot(c *gin.Context) {
	snapshotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid snapshot id"))
		return
	}

	view, err := h.reconciler.View(c.Request.Context(), userID(c), snapshotID)
	if err != nil {
		if errors.Is(err, repo.ErrSnapshotNotFound) {
			c.JSON(http.StatusNotFound, errorBody("snapshot not found"))
			return
		}
		h.logger.Error("snapshot read failed",
			slog.String("snapshot_id", snapshotID.String()), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, errorBody("snapshot unavailable"))
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetSettings returns the requester's effective thresholds and whether a
// personal override row exists.
func (h *Handlers) GetSettings(c *gin.Context) {
	requesterID := userID(c)
	resolved := h.thresholds.Resolve(c.Request.Context(), requesterID)

	overridden := false
	if row, err := h.thresholds.Settings(c.Request.Context(), requesterID); err != nil {
		h.logger.Warn("settings lookup failed",
			slog.String("user_id", requesterID.String()), slog.Any("error", err))
	} else if row != nil {
		overridden = true
	}

	c.JSON(http.StatusOK, gin.H{
		"warning_percentile":     resolved.WarningPercentile,
		"outlier_iqr_multiplier": resolved.OutlierIQRMultiplier,
		"overridden":             overridden,
	})
}

// PutSettings updates the submitted threshold fields, leaving omitted
// ones untouched.
func (h *Handlers) PutSettings(c *gin.Context) {
	var update models.ThresholdUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("malformed settings body"))
		return
	}

	saved, err := h.thresholds.Save(c.Request.Context(), userID(c), update)
	if err != nil {
		var fieldErrs thresholds.FieldErrors
		if errors.As(err, &fieldErrs) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": fieldErrs})
			return
		}
		h.logger.Error("settings save failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, errorBody("settings not saved"))
		return
	}

	c.JSON(http.StatusOK, saved)
}

// DeleteSettings removes the requester's override row, reverting them to
// the deployment fallback.
func (h *Handlers) DeleteSettings(c *gin.Context) {
	if err := h.thresholds.Reset(c.Request.Context(), userID(c)); err != nil {
		h.logger.Error("settings reset failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, errorBody("settings not reset"))
		return
	}
	c.Status(http.StatusNoContent)
}

// Healthz is the liveness probe.
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
