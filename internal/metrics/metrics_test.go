package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestRegistry_RegistersAndCounts(t *testing.T) {
	r := NewRegistry()
	reg := prometheus.NewRegistry()
	r.Register(reg)

	r.ObserveRun("bid", time.Now().Add(-time.Second), 42, nil)
	r.ObserveRun("bid", time.Now(), 0, errors.New("boom"))
	r.Decisions.WithLabelValues("bid", "STRONG_UP").Inc()

	records := gather(t, reg, "adpilot_run_records_total")
	require.NotNil(t, records)
	assert.InDelta(t, 42.0, records.GetMetric()[0].GetCounter().GetValue(), 1e-9)

	durations := gather(t, reg, "adpilot_run_duration_seconds")
	require.NotNil(t, durations)
	assert.Len(t, durations.GetMetric(), 2, "ok and error series")

	decisions := gather(t, reg, "adpilot_decisions_total")
	require.NotNil(t, decisions)
	names := map[string]string{}
	for _, l := range decisions.GetMetric()[0].GetLabel() {
		names[l.GetName()] = l.GetValue()
	}
	assert.Equal(t, "bid", names["engine"])
	assert.Equal(t, "STRONG_UP", names["action"])
}
