// Package telemetry exports runtime events as Prometheus metrics.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skekre98/edgeagent/core"
	"github.com/skekre98/edgeagent/web"
)

const namespace = "edgeagent"

// Collector implements core.Observer on a private registry.
type Collector struct {
	registry *prometheus.Registry

	loaded   prometheus.Counter
	started  prometheus.Counter
	failed   *prometheus.CounterVec
	up       *prometheus.GaugeVec
	exported prometheus.Counter
	dropped  *prometheus.CounterVec
	halted   prometheus.Counter

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var _ core.Observer = (*Collector)(nil)

// New returns a Collector with Go runtime and process metrics included.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		loaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modules_loaded_total",
			Help:      "Modules registered with the runtime.",
		}),
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modules_started_total",
			Help:      "Modules whose start operation succeeded.",
		}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "module_failures_total",
			Help:      "Module failures by lifecycle stage.",
		}, []string{"stage"}),
		up: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "module_up",
			Help:      "1 if the module is started, 0 otherwise.",
		}, []string{"module"}),
		exported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capabilities_exported_total",
			Help:      "Capabilities published by modules.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dependencies_dropped_total",
			Help:      "Imports bound to nil, by reason.",
		}, []string{"reason"}),
		halted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assembly_halts_total",
			Help:      "Assembly passes stopped by a dependency cycle.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method, route and status code.",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.loaded, c.started, c.failed, c.up, c.exported, c.dropped, c.halted,
		c.requests, c.latency,
	)
	return c
}

// Registry returns the registry the metrics live on.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Middleware records every request served by the web module. Requests that
// match no route are labelled "unmatched".
func (c *Collector) Middleware() web.Handler {
	return func(ctx *gin.Context) {
		begin := time.Now()
		ctx.Next()
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.requests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.latency.WithLabelValues(method, route).Observe(time.Since(begin).Seconds())
	}
}

func (c *Collector) ModuleLoaded(module string) {
	c.loaded.Inc()
	c.up.WithLabelValues(module).Set(0)
}

func (c *Collector) ModuleStarted(module string) {
	c.started.Inc()
	c.up.WithLabelValues(module).Set(1)
}

func (c *Collector) ModuleStopped(module string) {
	c.up.WithLabelValues(module).Set(0)
}

// ModuleFailed counts the failure. Only load and start failures concern a
// registered module, so only they touch module_up.
func (c *Collector) ModuleFailed(module, stage string) {
	c.failed.WithLabelValues(stage).Inc()
	if stage == "load" || stage == "start" {
		c.up.WithLabelValues(module).Set(0)
	}
}

func (c *Collector) CapabilityExported(string, string) { c.exported.Inc() }

func (c *Collector) DependencyDropped(_, _, reason string) {
	c.dropped.WithLabelValues(reason).Inc()
}

func (c *Collector) PassHalted(string) { c.halted.Inc() }
