// Package metrics exposes Prometheus instruments for the review engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Review outcomes used as the "result" label of srs_reviews_total.
const (
	ResultApplied          = "applied"
	ResultInvalidGrade     = "invalid_grade"
	ResultNotFound         = "not_found"
	ResultInvalidState     = "invalid_state"
	ResultConflict         = "conflict"
	ResultStoreUnavailable = "store_unavailable"
	ResultDeadline         = "deadline"
	ResultError            = "error"
)

// Recorder holds the review engine's instruments. All methods are safe on a
// nil *Recorder, which records nothing.
type Recorder struct {
	reviews     *prometheus.CounterVec
	conflicts   prometheus.Counter
	logFailures prometheus.Counter
	duration    prometheus.Histogram
	dueServed   prometheus.Counter
}

// New registers the instruments with reg. Passing prometheus.DefaultRegisterer
// exposes them on the default /metrics handler.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		reviews: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "srs_reviews_total",
			Help: "Review submissions by outcome.",
		}, []string{"result"}),
		conflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "srs_review_conflicts_total",
			Help: "Version conflicts observed while committing reviews, including retried ones.",
		}),
		logFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "srs_review_log_failures_total",
			Help: "Applied reviews whose review log entry could not be written.",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "srs_review_duration_seconds",
			Help:    "Latency of review submissions.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}),
		dueServed: factory.NewCounter(prometheus.CounterOpts{
			Name: "srs_due_cards_served_total",
			Help: "Cards returned by due-set queries.",
		}),
	}
}

// ReviewCompleted records one review submission with its outcome and latency.
func (r *Recorder) ReviewCompleted(result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.reviews.WithLabelValues(result).Inc()
	r.duration.Observe(elapsed.Seconds())
}

// VersionConflict records one lost compare-and-swap.
func (r *Recorder) VersionConflict() {
	if r == nil {
		return
	}
	r.conflicts.Inc()
}

// LogFailure records a review that was applied without its log entry.
func (r *Recorder) LogFailure() {
	if r == nil {
		return
	}
	r.logFailures.Inc()
}

// DueCardsServed adds n to the count of due cards returned to callers.
func (r *Recorder) DueCardsServed(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.dueServed.Add(float64(n))
}
