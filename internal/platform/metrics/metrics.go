// Package metrics registers the Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RegistrationsTotal  prometheus.Counter
	ProfileSubmissions  prometheus.Counter
	Verifications       *prometheus.CounterVec
	BallotsCastTotal    prometheus.Counter
	VoteRejectionsTotal *prometheus.CounterVec
	CastDurationMs      prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RegistrationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ballotbox_registrations_total",
			Help: "Total number of accounts registered",
		}),
		ProfileSubmissions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ballotbox_profile_submissions_total",
			Help: "Total number of profile completion submissions",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ballotbox_verifications_total",
			Help: "Admin verification decisions by outcome",
		}, []string{"decision"}),
		BallotsCastTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ballotbox_ballots_cast_total",
			Help: "Total number of ballots durably recorded",
		}),
		VoteRejectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ballotbox_vote_rejections_total",
			Help: "Vote attempts rejected by the eligibility gate, by reason",
		}, []string{"reason"}),
		CastDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ballotbox_cast_duration_ms",
			Help:    "Latency of the vote-cast decision in milliseconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		}),
	}
}

// The increment helpers are nil-safe so services constructed without metrics
// (unit tests) skip recording instead of panicking.

// IncrementRegistrations records a successful account registration.
func (m *Metrics) IncrementRegistrations() {
	if m == nil {
		return
	}
	m.RegistrationsTotal.Inc()
}

// IncrementProfileSubmissions records a profile completion submission.
func (m *Metrics) IncrementProfileSubmissions() {
	if m == nil {
		return
	}
	m.ProfileSubmissions.Inc()
}

// IncrementVerification records an admin verification decision.
func (m *Metrics) IncrementVerification(decision string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(decision).Inc()
}

// IncrementBallotsCast records a durably recorded ballot.
func (m *Metrics) IncrementBallotsCast() {
	if m == nil {
		return
	}
	m.BallotsCastTotal.Inc()
}

// IncrementVoteRejection records a gate rejection by reason code.
func (m *Metrics) IncrementVoteRejection(reason string) {
	if m == nil {
		return
	}
	m.VoteRejectionsTotal.WithLabelValues(reason).Inc()
}

// ObserveCastDuration records the latency of one vote-cast decision.
func (m *Metrics) ObserveCastDuration(ms float64) {
	if m == nil {
		return
	}
	m.CastDurationMs.Observe(ms)
}
