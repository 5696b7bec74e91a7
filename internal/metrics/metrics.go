package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful operations.
	OutcomeSuccess = "success"
	// OutcomeInvalid labels uploads rejected by table validation.
	OutcomeInvalid = "invalid"
	// OutcomeError labels failed operations (storage or dependency issues).
	OutcomeError = "error"

	// ClassificationFresh labels snapshot reads served with freshly
	// recomputed classification.
	ClassificationFresh = "fresh"
	// ClassificationStale labels reads that fell back to the stored
	// classification.
	ClassificationStale = "stale"
)

var (
	uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "equipsight",
			Name:      "uploads_total",
			Help:      "Total number of upload analyses handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	uploadDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "equipsight",
			Name:      "upload_seconds",
			Help:      "Upload analysis latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 10},
		},
	)

	snapshotViewsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "equipsight",
			Name:      "snapshot_views_total",
			Help:      "Total snapshot reads, partitioned by classification freshness.",
		},
		[]string{"classification"},
	)
)

// Register attaches equipsight collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		uploadsTotal,
		uploadDurationSeconds,
		snapshotViewsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveUpload records an upload analysis duration and outcome label.
func ObserveUpload(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeInvalid, OutcomeError:
	default:
		outcome = OutcomeSuccess
	}
	uploadsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	uploadDurationSeconds.Observe(duration.Seconds())
}

// ObserveSnapshotView counts a snapshot read and whether its
// classification was recomputed or served stale.
func ObserveSnapshotView(classification string) {
	if classification != ClassificationStale {
		classification = ClassificationFresh
	}
	snapshotViewsTotal.WithLabelValues(classification).Inc()
}
