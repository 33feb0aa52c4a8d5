package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveMessageSent()
	m.ObserveMessageSent()
	m.ObserveSendFailure()
	m.ObserveRun("ok")
	m.ObserveRun("failed")
	m.ObserveRun("failed")
	m.ObservePushEvent("qr")
	m.SetSessionState(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.messagesSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sendFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.blastRuns.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.blastRuns.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pushEvents.WithLabelValues("qr")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sessionState))
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveMessageSent()
		m.ObserveSendFailure()
		m.ObserveRun("ok")
		m.ObservePushEvent("ready")
		m.SetSessionState(0)
	})
}
