package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsReinstantiable(t *testing.T) {
	// Collectors live on the instance's registry, so constructing twice in
	// one process must not panic on duplicate registration.
	first := New(nil)
	second := New(nil)

	first.IncrementOutcome("issue", "success")
	second.IncrementOutcome("issue", "success")
	first.ObserveIssueLatency(5 * time.Millisecond)
	second.IncAuditAppendFailure()
}

func TestNewRegistersAgainstProvidedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncrementOutcome("verify", "success")
	m.IncrementRedemption("granted")
	m.ObserveVerifyLatency(2 * time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["credtrust_operation_outcomes_total"])
	assert.True(t, names["credtrust_grant_redemptions_total"])
	assert.True(t, names["credtrust_verify_duration_seconds"])
}

func TestNilReceiverIsNoOp(t *testing.T) {
	var m *Metrics
	m.IncrementOutcome("issue", "failure")
	m.ObserveVerifyLatency(time.Millisecond)
	m.ObserveIssueLatency(time.Millisecond)
	m.IncAuditAppendFailure()
	m.IncrementRedemption("denied")
}
