package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wafbench/wbt/pkg/traffic"
)

// Namespace prefixes every exported metric name.
const Namespace = "wbt"

// Collector holds the live Prometheus metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	responseSeconds *prometheus.HistogramVec
	runsTotal       *prometheus.CounterVec
	runActive       prometheus.Gauge
	runDuration     prometheus.Gauge
	score           prometheus.Gauge
}

// NewCollector creates and registers all collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "requests_total",
			Help:      "Benchmark requests answered by the target",
		}, []string{"kind", "verdict"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "transport_errors_total",
			Help:      "Benchmark requests that failed before a response arrived",
		}, []string{"kind"}),
		responseSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "response_time_seconds",
			Help:      "Response time distribution in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"kind"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "runs_total",
			Help:      "Benchmark runs by final status",
		}, []string{"status"}),
		runActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "run_active",
			Help:      "1 while a benchmark run is in progress",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the most recent run",
		}),
		score: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_score",
			Help:      "Effectiveness score of the most recent successful run",
		}),
	}

	c.registry.MustRegister(
		c.requestsTotal,
		c.errorsTotal,
		c.responseSeconds,
		c.runsTotal,
		c.runActive,
		c.runDuration,
		c.score,
	)
	return c
}

// Registry exposes the underlying registry, e.g. for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// ObserveOutcome records one exchange.
func (c *Collector) ObserveOutcome(o traffic.Outcome) {
	kind := string(o.Kind)
	if o.IsError() {
		c.errorsTotal.WithLabelValues(kind).Inc()
		return
	}
	verdict := "passed"
	if o.Blocked() {
		verdict = "blocked"
	}
	c.requestsTotal.WithLabelValues(kind, verdict).Inc()
	if o.LatencyMs > 0 {
		c.responseSeconds.WithLabelValues(kind).Observe(o.LatencyMs / 1000)
	}
}

// RunStarted marks a run as active.
func (c *Collector) RunStarted() {
	c.runActive.Set(1)
}

// RunFinished records the end of a run. score is ignored unless the run
// succeeded.
func (c *Collector) RunFinished(status string, elapsed time.Duration, score int) {
	c.runActive.Set(0)
	c.runsTotal.WithLabelValues(status).Inc()
	c.runDuration.Set(elapsed.Seconds())
	if status == "success" {
		c.score.Set(float64(score))
	}
}
