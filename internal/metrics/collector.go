// Package metrics exposes Prometheus instruments for the control panel.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "browser_agent"

// Run outcomes.
const (
	OutcomeSuccess    = "success"
	OutcomeFailure    = "failure"
	OutcomeMissingKey = "missing_key"
	OutcomeRejected   = "rejected"
)

// Collector is safe to use as a nil pointer; every method is then a no-op.
type Collector struct {
	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	running         prometheus.Gauge
	stepsTotal      prometheus.Counter
	actionsTotal    *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpRequestTime *prometheus.HistogramVec
	llmRequests     *prometheus.CounterVec
	llmRequestTime  *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Automation runs by outcome",
		}, []string{"outcome"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of automation runs",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		running: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running",
			Help:      "1 while the run flag is set",
		}),
		stepsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_steps_total",
			Help:      "Agent steps executed",
		}),
		actionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_actions_total",
			Help:      "Browser actions executed by type",
		}, []string{"type"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served by the panel",
		}, []string{"method", "path", "status"}),
		httpRequestTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		llmRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "LLM completion requests by operation and outcome",
		}, []string{"op", "outcome"}),
		llmRequestTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM completion latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"op"}),
	}
}

func (c *Collector) RunFinished(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.runsTotal.WithLabelValues(outcome).Inc()
	if d > 0 {
		c.runDuration.Observe(d.Seconds())
	}
}

func (c *Collector) SetRunning(running bool) {
	if c == nil {
		return
	}
	if running {
		c.running.Set(1)
	} else {
		c.running.Set(0)
	}
}

func (c *Collector) Steps(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.stepsTotal.Add(float64(n))
}

func (c *Collector) Action(actionType string) {
	if c == nil {
		return
	}
	c.actionsTotal.WithLabelValues(actionType).Inc()
}

func (c *Collector) ObserveHTTP(method, path string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestTime.WithLabelValues(method, path).Observe(d.Seconds())
}

// LLMRequest records one completion request.
func (c *Collector) LLMRequest(op, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.llmRequests.WithLabelValues(op, outcome).Inc()
	c.llmRequestTime.WithLabelValues(op).Observe(d.Seconds())
}
