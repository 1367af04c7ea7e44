package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by the counters below.
const (
	OutcomeSuccess          = "success"
	OutcomeStateMismatch    = "state_mismatch"
	OutcomeProviderFailed   = "provider_failed"
	OutcomeIdentityMissing  = "identity_missing"
	OutcomeNoProfile        = "no_profile"
	OutcomeAssignmentFailed = "assignment_failed"
	OutcomeError            = "error"
)

// Metrics is safe to use as a nil pointer; every recorder becomes a no-op.
type Metrics struct {
	AuthAttempts          *prometheus.CounterVec
	ProviderLatency       *prometheus.HistogramVec
	ProfileSaves          prometheus.Counter
	RoleAssignments       *prometheus.CounterVec
	RoleAssignmentLatency prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AuthAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verifydn_auth_completions_total",
			Help: "OAuth callback completions by outcome",
		}, []string{"outcome"}),
		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "verifydn_provider_request_duration_seconds",
			Help:    "Latency of OAuth provider round trips",
			Buckets: prometheus.DefBuckets,
		}, []string{"call"}),
		ProfileSaves: f.NewCounter(prometheus.CounterOpts{
			Name: "verifydn_profile_saves_total",
			Help: "Total number of merged profile saves",
		}),
		RoleAssignments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verifydn_role_assignments_total",
			Help: "Role assignment requests by outcome",
		}, []string{"outcome"}),
		RoleAssignmentLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "verifydn_role_assignment_duration_seconds",
			Help:    "Latency of the external role assignment capability",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) AuthCompleted(outcome string) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveProvider(call string, since time.Time) {
	if m == nil {
		return
	}
	m.ProviderLatency.WithLabelValues(call).Observe(time.Since(since).Seconds())
}

func (m *Metrics) ProfileSaved() {
	if m == nil {
		return
	}
	m.ProfileSaves.Inc()
}

func (m *Metrics) RoleAssignment(outcome string, since time.Time) {
	if m == nil {
		return
	}
	m.RoleAssignments.WithLabelValues(outcome).Inc()
	if !since.IsZero() {
		m.RoleAssignmentLatency.Observe(time.Since(since).Seconds())
	}
}
