// Package metrics exposes Prometheus collectors for the compliance gate.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/listingwire/scrapegate/pkg/gate"
)

// Metrics holds the collectors updated by the daemon as decisions are made
// and outcomes reported.
type Metrics struct {
	DecisionsTotal  *prometheus.CounterVec
	RequestsTotal   *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	CooldownSeconds *prometheus.GaugeVec
	WindowUsage     *prometheus.GaugeVec
}

// New registers and returns the scrapegate collectors.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrapegate_decisions_total",
				Help: "Admission decisions by source and reason",
			},
			[]string{"source", "reason"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrapegate_requests_recorded_total",
				Help: "Successful requests recorded against the windows",
			},
			[]string{"source"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrapegate_errors_recorded_total",
				Help: "Failed requests reported to the backoff tracker",
			},
			[]string{"source"},
		),
		CooldownSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scrapegate_cooldown_remaining_seconds",
				Help: "Seconds until the source's error cooldown expires",
			},
			[]string{"source"},
		),
		WindowUsage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scrapegate_window_usage_ratio",
				Help: "Fraction of the window limit consumed",
			},
			[]string{"scope", "window"},
		),
	}

	reg.MustRegister(m.DecisionsTotal, m.RequestsTotal, m.ErrorsTotal, m.CooldownSeconds, m.WindowUsage)
	return m
}

// ObserveDecision counts one admission decision.
func (m *Metrics) ObserveDecision(sourceID string, d gate.Decision) {
	m.DecisionsTotal.WithLabelValues(sourceID, d.Reason.String()).Inc()
}

// ObserveOutcome counts one reported request outcome.
func (m *Metrics) ObserveOutcome(sourceID string, success bool) {
	if success {
		m.RequestsTotal.WithLabelValues(sourceID).Inc()
	} else {
		m.ErrorsTotal.WithLabelValues(sourceID).Inc()
	}
}

// UpdateFromSnapshot refreshes the gauges from an engine status snapshot.
func (m *Metrics) UpdateFromSnapshot(snap gate.StatusSnapshot) {
	m.setWindowUsage("global", snap.Global.Minute, snap.Global.Hour, snap.Global.Day)
	for _, src := range snap.Sources {
		m.setWindowUsage(src.ID, src.Minute, src.Hour, src.Day)

		remaining := 0.0
		if src.CooldownUntil != nil {
			if d := src.CooldownUntil.Sub(snap.TakenAt); d > 0 {
				remaining = d.Seconds()
			}
		}
		m.CooldownSeconds.WithLabelValues(src.ID).Set(remaining)
	}
}

func (m *Metrics) setWindowUsage(scope string, minute, hour, day gate.WindowStatus) {
	m.WindowUsage.WithLabelValues(scope, "minute").Set(usage(minute))
	m.WindowUsage.WithLabelValues(scope, "hour").Set(usage(hour))
	m.WindowUsage.WithLabelValues(scope, "day").Set(usage(day))
}

func usage(w gate.WindowStatus) float64 {
	if w.Limit <= 0 {
		return 0
	}
	return float64(w.Count) / float64(w.Limit)
}
