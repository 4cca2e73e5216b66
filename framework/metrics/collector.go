// Package metrics exports container activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-containers/framework/container"
)

const namespace = "container"

// Collector turns container observer events into Prometheus series.
type Collector struct {
	registry *prometheus.Registry

	resolutions   *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	registrations *prometheus.CounterVec
	evictions     prometheus.Counter
	openScopes    *prometheus.GaugeVec
	disposals     *prometheus.CounterVec
}

// NewCollector creates a Collector backed by its own registry. Go runtime and
// process collectors are registered alongside the container series.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Resolutions by abstraction, lifetime and result.",
		}, []string{"abstraction", "lifetime", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "Time spent resolving a registration, including its dependencies.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
		}, []string{"lifetime"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registrations added, by lifetime and implementation kind.",
		}, []string{"lifetime", "kind"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_replaced_total",
			Help:      "Registrations evicted by a later registration.",
		}),
		openScopes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_scopes",
			Help:      "Scopes currently open, by kind.",
		}, []string{"kind"}),
		disposals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scope_disposals_total",
			Help:      "Instances disposed when scopes close, by result.",
		}, []string{"result"}),
	}

	c.registry.MustRegister(
		c.resolutions,
		c.duration,
		c.registrations,
		c.evictions,
		c.openScopes,
		c.disposals,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// export a zero baseline before the first scope opens
	for _, kind := range []container.ScopeKind{container.LocalScope, container.RequestScope} {
		c.openScopes.WithLabelValues(kind.String())
	}
	return c
}

// Options returns the container observers that feed this collector.
func (c *Collector) Options() []container.Option {
	return []container.Option{
		container.WithResolveObserver(c.ObserveResolve),
		container.WithRegisterObserver(c.ObserveRegister),
		container.WithScopeObserver(c.ObserveScope),
	}
}

func (c *Collector) ObserveResolve(ev container.ResolveEvent) {
	abstraction := "<nil>"
	if ev.Abstraction != nil {
		abstraction = ev.Abstraction.String()
	}
	c.resolutions.WithLabelValues(abstraction, ev.Lifetime.String(), result(ev.Err)).Inc()
	c.duration.WithLabelValues(ev.Lifetime.String()).Observe(ev.Duration.Seconds())
}

func (c *Collector) ObserveRegister(reg container.Registration, evicted []container.Registration) {
	c.registrations.WithLabelValues(reg.Lifetime.String(), reg.Kind.String()).Inc()
	c.evictions.Add(float64(len(evicted)))
}

func (c *Collector) ObserveScope(ev container.ScopeEvent) {
	gauge := c.openScopes.WithLabelValues(ev.Kind.String())
	if ev.Opened {
		gauge.Inc()
		return
	}
	gauge.Dec()
	if ev.Disposed > 0 {
		c.disposals.WithLabelValues(result(ev.Err)).Add(float64(ev.Disposed))
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case container.IsNotRegistered(err):
		return "not_registered"
	case container.IsAmbiguousRegistration(err):
		return "ambiguous"
	case container.IsCyclicResolution(err):
		return "cyclic"
	case container.IsScopeMisuse(err):
		return "scope_misuse"
	case container.IsContainerDisposed(err):
		return "disposed"
	case container.IsConstructionFailed(err):
		return "construction_failed"
	default:
		return "error"
	}
}
