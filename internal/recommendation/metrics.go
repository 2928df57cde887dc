package recommendation

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/onnwee/singme/internal/ranking"
)

// Metrics names as constants for consistency.
const (
	MetricVotesTotal       = "recommendation_votes_total"
	MetricCulledTotal      = "recommendation_culled_total"
	MetricSubmissionsTotal = "recommendation_submissions_total"
	MetricRandomDrawsTotal = "recommendation_random_draws_total"
	MetricVoteLockWaitSecs = "recommendation_vote_lock_wait_seconds"
)

// Submission results.
const (
	SubmissionCreated  = "created"
	SubmissionInvalid  = "invalid"
	SubmissionConflict = "conflict"
)

// Metrics contains Prometheus metrics for recommendation operations.
// All operations are thread-safe. A nil *Metrics is a valid no-op.
type Metrics struct {
	votes       *prometheus.CounterVec
	culled      prometheus.Counter
	submissions *prometheus.CounterVec
	draws       *prometheus.CounterVec
	lockWait    prometheus.Histogram
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricVotesTotal,
			Help: "Total number of applied votes by direction",
		}, []string{"direction"}),
		culled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCulledTotal,
			Help: "Total number of recommendations deleted after falling below the score floor",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSubmissionsTotal,
			Help: "Total number of submissions by result",
		}, []string{"result"}),
		draws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRandomDrawsTotal,
			Help: "Total number of weighted random draws by selected band",
		}, []string{"band"}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricVoteLockWaitSecs,
			Help:    "Time spent waiting for the per-recommendation vote lock",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 3.0},
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.votes,
		m.culled,
		m.submissions,
		m.draws,
		m.lockWait,
	}
}

// ObserveVote records an applied vote.
func (m *Metrics) ObserveVote(dir ranking.Direction) {
	if m == nil {
		return
	}
	m.votes.WithLabelValues(dir.String()).Inc()
}

// IncCulled records a recommendation removed by a downvote.
func (m *Metrics) IncCulled() {
	if m == nil {
		return
	}
	m.culled.Inc()
}

// ObserveSubmission records a submission outcome.
func (m *Metrics) ObserveSubmission(result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result).Inc()
}

// ObserveDraw records which band a random draw selected from.
func (m *Metrics) ObserveDraw(band ranking.Band) {
	if m == nil {
		return
	}
	m.draws.WithLabelValues(string(band)).Inc()
}

// ObserveLockWait records lock acquisition latency in seconds.
func (m *Metrics) ObserveLockWait(seconds float64) {
	if m == nil {
		return
	}
	m.lockWait.Observe(seconds)
}
