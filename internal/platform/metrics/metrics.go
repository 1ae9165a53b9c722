package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the credential integrity core.
type Metrics struct {
	// Operation outcomes by operation and result
	OperationOutcome *prometheus.CounterVec

	// Verification latency including fingerprint recomputation
	VerifyLatency prometheus.Histogram

	// Issuance latency including proof generation and persistence
	IssueLatency prometheus.Histogram

	// Audit entries that could not be appended to the sink
	AuditAppendFailures prometheus.Counter

	// Sharing grant redemptions by decision
	GrantRedemption *prometheus.CounterVec
}

// New creates a Metrics instance with all core metrics registered against
// reg. A nil reg gets a private registry, so independently constructed
// instances never collide on registration.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		OperationOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credtrust_operation_outcomes_total",
			Help: "Total operation outcomes by operation type and result",
		}, []string{"operation", "result"}),

		VerifyLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "credtrust_verify_duration_seconds",
			Help:    "Duration of credential verification including hash recomputation",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		IssueLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "credtrust_issue_duration_seconds",
			Help:    "Duration of credential issuance including proof generation",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),

		AuditAppendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "credtrust_audit_append_failures_total",
			Help: "Total audit entries that could not be appended to the sink",
		}),

		GrantRedemption: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credtrust_grant_redemptions_total",
			Help: "Total sharing grant redemption attempts by decision",
		}, []string{"decision"}),
	}
}

// IncrementOutcome records an operation outcome.
func (m *Metrics) IncrementOutcome(operation, result string) {
	if m != nil {
		m.OperationOutcome.WithLabelValues(operation, result).Inc()
	}
}

// ObserveVerifyLatency records the duration of a verification.
func (m *Metrics) ObserveVerifyLatency(d time.Duration) {
	if m != nil {
		m.VerifyLatency.Observe(d.Seconds())
	}
}

// ObserveIssueLatency records the duration of an issuance.
func (m *Metrics) ObserveIssueLatency(d time.Duration) {
	if m != nil {
		m.IssueLatency.Observe(d.Seconds())
	}
}

// IncAuditAppendFailure records a dropped audit entry.
func (m *Metrics) IncAuditAppendFailure() {
	if m != nil {
		m.AuditAppendFailures.Inc()
	}
}

// IncrementRedemption records a grant redemption decision ("granted"/"denied").
func (m *Metrics) IncrementRedemption(decision string) {
	if m != nil {
		m.GrantRedemption.WithLabelValues(decision).Inc()
	}
}
