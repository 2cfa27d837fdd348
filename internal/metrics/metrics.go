// Package metrics provides Prometheus collectors for propagation, flow
// commits and scenario runs.
package metrics

import (
	"io"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "flowgraph").
	Namespace string

	// Registry receives the collectors.
	// Default: a fresh prometheus.Registry.
	Registry *prometheus.Registry
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithRegistry sets the registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// Metrics holds the flowgraph collectors.
type Metrics struct {
	registry *prometheus.Registry

	SignalsDropped  prometheus.Counter
	PropagationPeak prometheus.Gauge
	FlowCommits     *prometheus.CounterVec
	CommitDuration  prometheus.Histogram
	DiffEntries     *prometheus.CounterVec
	ScenarioSteps   *prometheus.CounterVec
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns the process-wide collectors, creating them on first use.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

// New creates collectors registered on their own registry.
func New(opts ...Option) *Metrics {
	cfg := Config{Namespace: "flowgraph"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	factory := promauto.With(cfg.Registry)

	return &Metrics{
		registry: cfg.Registry,

		SignalsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "signals_dropped_total",
			Help:      "Signals dropped because the propagation depth budget was exhausted",
		}),

		PropagationPeak: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "propagation_depth_peak",
			Help:      "Deepest nested signal propagation observed",
		}),

		FlowCommits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "flow_commits_total",
			Help:      "Flow diff commits by result",
		}, []string{"result"}),

		CommitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "flow_commit_duration_seconds",
			Help:      "Flow commit duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		DiffEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "flow_diff_entries_total",
			Help:      "Committed flow diff entries by kind",
		}, []string{"kind"}),

		ScenarioSteps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "scenario_steps_total",
			Help:      "Executed scenario steps by action",
		}, []string{"action"}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteText writes every gathered family in the text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
