package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector aggregates the pipeline's Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	sessionsOpened    prometheus.Counter
	sessionsDiscarded prometheus.Counter
	eventsReceived    prometheus.Counter
	eventsDropped     prometheus.Counter

	extractionsDispatched prometheus.Counter
	extractionsCompleted  *prometheus.CounterVec
	spawnFailures         prometheus.Counter

	queuePending  prometheus.Gauge
	queueInFlight prometheus.Gauge
}

// NewCollector creates and registers the pipeline metrics on a private
// registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		sessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rtcstats_sessions_opened_total",
			Help: "Total number of client sessions opened",
		}),
		sessionsDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rtcstats_sessions_discarded_total",
			Help: "Total number of sessions discarded for having no events",
		}),
		eventsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rtcstats_events_received_total",
			Help: "Total number of inbound events received",
		}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rtcstats_events_dropped_total",
			Help: "Total number of inbound events dropped (malformed or filtered)",
		}),
		extractionsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rtcstats_extractions_dispatched_total",
			Help: "Total number of extraction workers spawned",
		}),
		extractionsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtcstats_extractions_completed_total",
			Help: "Total number of extraction workers exited, by status",
		}, []string{"status"}),
		spawnFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rtcstats_extraction_spawn_failures_total",
			Help: "Total number of extraction worker spawn failures",
		}),
		queuePending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rtcstats_extraction_pending",
			Help: "Current number of sessions awaiting a worker slot",
		}),
		queueInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rtcstats_extraction_in_flight",
			Help: "Current number of running extraction workers",
		}),
	}

	c.registry.MustRegister(
		c.sessionsOpened,
		c.sessionsDiscarded,
		c.eventsReceived,
		c.eventsDropped,
		c.extractionsDispatched,
		c.extractionsCompleted,
		c.spawnFailures,
		c.queuePending,
		c.queueInFlight,
	)
	return c
}

// SessionOpened records a new client session.
func (c *Collector) SessionOpened() { c.sessionsOpened.Inc() }

// SessionDiscarded records an empty session dropped at close.
func (c *Collector) SessionDiscarded() { c.sessionsDiscarded.Inc() }

// EventReceived records one inbound event.
func (c *Collector) EventReceived() { c.eventsReceived.Inc() }

// EventDropped records one malformed or filtered event.
func (c *Collector) EventDropped() { c.eventsDropped.Inc() }

// ExtractionDispatched records a worker spawn attempt.
func (c *Collector) ExtractionDispatched() { c.extractionsDispatched.Inc() }

// ExtractionCompleted records a worker exit keyed on its status.
func (c *Collector) ExtractionCompleted(ok bool) {
	status := "success"
	if !ok {
		status = "error"
	}
	c.extractionsCompleted.WithLabelValues(status).Inc()
}

// SpawnFailure records a failed worker spawn.
func (c *Collector) SpawnFailure() { c.spawnFailures.Inc() }

// SetQueueDepth updates the pending and in-flight gauges.
func (c *Collector) SetQueueDepth(pending, inFlight int) {
	c.queuePending.Set(float64(pending))
	c.queueInFlight.Set(float64(inFlight))
}

// Handler serves the exposition format for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
