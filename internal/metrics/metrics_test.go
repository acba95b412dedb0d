package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersUnderNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("inventory", reg)

	m.NLURequests.WithLabelValues("gemini", "ok").Inc()
	m.LedgerMutation.WithLabelValues("sell", "insufficient_stock").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.NLURequests.WithLabelValues("gemini", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LedgerMutation.WithLabelValues("sell", "insufficient_stock")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["inventory_nlu_requests_total"])
	assert.True(t, names["inventory_ledger_mutations_total"])
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New("inventory", reg)
	assert.Panics(t, func() { New("inventory", reg) })
}

func TestNewNop(t *testing.T) {
	m := NewNop()
	assert.NotPanics(t, func() {
		m.Errors.WithLabelValues("nlu").Inc()
		NewNop()
	})
}
