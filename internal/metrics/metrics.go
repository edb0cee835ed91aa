// Package metrics exposes delivery and scheduling counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the scheduler and services report to.
type Recorder interface {
	RecordScheduled()
	RecordSchedulingFailure()
	RecordDelivered(source string)
	RecordTriggerFired()
	RecordReconcile(delivered int, err error)
}

// Collector is the Prometheus Recorder.
type Collector struct {
	scheduled       prometheus.Counter
	schedulingFails prometheus.Counter
	delivered       *prometheus.CounterVec
	triggersFired   prometheus.Counter
	reconcileRuns   prometheus.Counter
	reconcileErrors prometheus.Counter
	lastReconcile   prometheus.Gauge
}

// NewCollector registers the mindmail metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		scheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mindmail_letters_scheduled_total",
			Help: "Delivery triggers registered.",
		}),
		schedulingFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mindmail_scheduling_failures_total",
			Help: "Delivery triggers that could not be registered.",
		}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mindmail_letters_delivered_total",
			Help: "Letters marked delivered, by what noticed them.",
		}, []string{"source"}),
		triggersFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mindmail_triggers_fired_total",
			Help: "Delivery triggers that fired.",
		}),
		reconcileRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mindmail_reconcile_runs_total",
			Help: "Reconciliation passes.",
		}),
		reconcileErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mindmail_reconcile_errors_total",
			Help: "Reconciliation passes that returned an error.",
		}),
		lastReconcile: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mindmail_reconcile_last_delivered",
			Help: "Letters delivered by the most recent reconciliation pass.",
		}),
	}

	reg.MustRegister(
		c.scheduled,
		c.schedulingFails,
		c.delivered,
		c.triggersFired,
		c.reconcileRuns,
		c.reconcileErrors,
		c.lastReconcile,
	)
	return c
}

func (c *Collector) RecordScheduled()         { c.scheduled.Inc() }
func (c *Collector) RecordSchedulingFailure() { c.schedulingFails.Inc() }
func (c *Collector) RecordTriggerFired()      { c.triggersFired.Inc() }

func (c *Collector) RecordDelivered(source string) {
	c.delivered.WithLabelValues(source).Inc()
}

func (c *Collector) RecordReconcile(delivered int, err error) {
	c.reconcileRuns.Inc()
	if err != nil {
		c.reconcileErrors.Inc()
	}
	c.lastReconcile.Set(float64(delivered))
}

// RegisterDroppedEvents exposes dropped, a running count of delivery events
// that a full in-process subscriber missed.
func RegisterDroppedEvents(reg prometheus.Registerer, dropped func() int64) {
	reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "mindmail_delivery_events_dropped_total",
		Help: "Delivery events missed by a subscriber whose buffer was full.",
	}, func() float64 { return float64(dropped()) }))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordScheduled()           {}
func (Nop) RecordSchedulingFailure()   {}
func (Nop) RecordDelivered(string)     {}
func (Nop) RecordTriggerFired()        {}
func (Nop) RecordReconcile(int, error) {}
