// Package metrics exposes detection-cycle counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromObserver records cycle outcomes as Prometheus metrics.
type PromObserver struct {
	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	lastCycle     prometheus.Gauge
	flights       *prometheus.CounterVec
	verdicts      *prometheus.CounterVec
	recorded      *prometheus.CounterVec
}

// NewPromObserver creates the collectors and registers them on reg.
// Pass prometheus.DefaultRegisterer to serve them from promhttp.Handler.
func NewPromObserver(reg prometheus.Registerer) *PromObserver {
	p := &PromObserver{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loiter_cycles_total",
			Help: "Detection cycles run, by result (ok, error).",
		}, []string{"result"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "loiter_cycle_duration_seconds",
			Help:    "Wall time of one detection cycle.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loiter_last_cycle_timestamp_seconds",
			Help: "Unix time the last cycle finished.",
		}),
		flights: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loiter_flights_total",
			Help: "Flights seen by the collector, by stage (found, excluded, skipped).",
		}, []string{"stage"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loiter_verdicts_total",
			Help: "Detector decisions, by reason.",
		}, []string{"reason"}),
		recorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loiter_recorded_total",
			Help: "Verdicts newly written, by sink.",
		}, []string{"sink"}),
	}

	reg.MustRegister(p.cycles, p.cycleDuration, p.lastCycle, p.flights, p.verdicts, p.recorded)
	return p
}

// CycleFinished records one cycle's duration and result.
func (p *PromObserver) CycleFinished(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.cycles.WithLabelValues(result).Inc()
	p.cycleDuration.Observe(d.Seconds())
	p.lastCycle.SetToCurrentTime()
}

// FlightsCollected adds the collector's counts for one cycle.
func (p *PromObserver) FlightsCollected(found, excluded, skipped int) {
	p.flights.WithLabelValues("found").Add(float64(found))
	p.flights.WithLabelValues("excluded").Add(float64(excluded))
	p.flights.WithLabelValues("skipped").Add(float64(skipped))
}

// VerdictReached counts one detector decision.
func (p *PromObserver) VerdictReached(reason string) {
	p.verdicts.WithLabelValues(reason).Inc()
}

// Recorded counts verdicts newly written to a sink.
func (p *PromObserver) Recorded(sink string, n int) {
	p.recorded.WithLabelValues(sink).Add(float64(n))
}
