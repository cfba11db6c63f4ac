// Package metrics exposes coordinator activity as Prometheus metrics.
//
// Collectors are registered on a private registry so tests and multiple
// coordinators in one process do not collide with the global one.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smartlock"

// Collector records coordinator activity.
//
// Thread Safety: All methods are safe for concurrent use.
type Collector struct {
	registry *prometheus.Registry

	transitions *prometheus.CounterVec
	suppressed  *prometheus.CounterVec
	malformed   *prometheus.CounterVec
	relocks     prometheus.Counter
	attendance  prometheus.Counter
	locked      prometheus.Gauge
	emergency   prometheus.Gauge
	busUp       prometheus.GaugeFunc
}

// New creates a Collector. busConnected, if non-nil, backs the
// smartlock_bus_connected gauge.
func New(busConnected func() bool) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Applied coordinator events by kind.",
		}, []string{"kind"}),
		suppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_lines_suppressed_total",
			Help:      "Access log lines dropped by the rate limiter, by category.",
		}, []string{"category"}),
		malformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_messages_total",
			Help:      "Bus messages dropped because they could not be decoded, by topic.",
		}, []string{"topic"}),
		relocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relocks_total",
			Help:      "Auto-relock timers that fired.",
		}),
		attendance: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_marks_total",
			Help:      "New attendance records written.",
		}),
		locked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "locked",
			Help:      "1 when the door is locked.",
		}),
		emergency: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "emergency",
			Help:      "1 while in lockdown.",
		}),
	}
	c.locked.Set(1)

	c.registry.MustRegister(
		c.transitions, c.suppressed, c.malformed,
		c.relocks, c.attendance, c.locked, c.emergency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if busConnected != nil {
		c.busUp = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bus_connected",
			Help:      "1 while the MQTT connection is up.",
		}, func() float64 { return boolToFloat(busConnected()) })
		c.registry.MustRegister(c.busUp)
	}
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) ObserveTransition(kind string) { c.transitions.WithLabelValues(kind).Inc() }
func (c *Collector) ObserveMalformed(topic string) { c.malformed.WithLabelValues(topic).Inc() }
func (c *Collector) ObserveSuppressed(cat string)  { c.suppressed.WithLabelValues(cat).Inc() }
func (c *Collector) ObserveRelock()                { c.relocks.Inc() }
func (c *Collector) ObserveAttendance()            { c.attendance.Inc() }

// SetLockState updates the lock gauges.
func (c *Collector) SetLockState(locked, emergency bool) {
	c.locked.Set(boolToFloat(locked))
	c.emergency.Set(boolToFloat(emergency))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
