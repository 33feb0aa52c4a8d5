// Package metrics exposes the server's Prometheus collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the collectors the server updates at runtime. A nil
// *Metrics is valid and records nothing, which keeps wiring optional in
// tests.
type Metrics struct {
	messagesSent prometheus.Counter
	sendFailures prometheus.Counter
	blastRuns    *prometheus.CounterVec
	pushEvents   *prometheus.CounterVec
	sessionState prometheus.Gauge
}

// New registers the collectors with reg (the default registerer when reg
// is nil) and returns the recording handle.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "whatsapp",
			Subsystem: "blast",
			Name:      "messages_sent_total",
			Help:      "Messages accepted by the WhatsApp backend",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "whatsapp",
			Subsystem: "blast",
			Name:      "send_failures_total",
			Help:      "Sends rejected by the WhatsApp backend",
		}),
		blastRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whatsapp",
			Subsystem: "blast",
			Name:      "runs_total",
			Help:      "Finished blast runs by outcome",
		}, []string{"outcome"}),
		pushEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whatsapp",
			Subsystem: "push",
			Name:      "events_total",
			Help:      "Lifecycle events broadcast to Socket.IO clients",
		}, []string{"event"}),
		sessionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "whatsapp",
			Subsystem: "session",
			Name:      "state",
			Help:      "Current session state (0 absent, 1 initializing, 2 awaiting scan, 3 ready)",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesSent, m.sendFailures, m.blastRuns, m.pushEvents, m.sessionState)
	return m
}

// ObserveMessageSent counts one delivered message.
func (m *Metrics) ObserveMessageSent() {
	if m == nil {
		return
	}
	m.messagesSent.Inc()
}

// ObserveSendFailure counts one rejected send.
func (m *Metrics) ObserveSendFailure() {
	if m == nil {
		return
	}
	m.sendFailures.Inc()
}

// ObserveRun counts one finished blast run by outcome.
func (m *Metrics) ObserveRun(outcome string) {
	if m == nil {
		return
	}
	m.blastRuns.WithLabelValues(outcome).Inc()
}

// ObservePushEvent counts one broadcast lifecycle event.
func (m *Metrics) ObservePushEvent(event string) {
	if m == nil {
		return
	}
	m.pushEvents.WithLabelValues(event).Inc()
}

// SetSessionState records the session state gauge.
func (m *Metrics) SetSessionState(state int) {
	if m == nil {
		return
	}
	m.sessionState.Set(float64(state))
}
