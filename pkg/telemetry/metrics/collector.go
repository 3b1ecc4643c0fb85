package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config contains metrics configuration.
type Config struct {
	// Enabled enables metric recording. A disabled collector still
	// registers its families so scrapes see stable output.
	Enabled bool `yaml:"enabled"`

	// Namespace and Subsystem prefix every metric name.
	// Defaults: "kronos", "cerberus".
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets are histogram buckets for end-to-end request
	// latency in seconds.
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`

	// PlanFetchBuckets are histogram buckets for plan-source latency in
	// seconds. EXPLAIN is fast; PROFILE runs the query, so the range is
	// wide.
	PlanFetchBuckets []float64 `yaml:"plan_fetch_buckets"`
}

// DefaultConfig returns the metrics defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Namespace: "kronos",
		Subsystem: "cerberus",
	}
}

// Collector owns the registry and all gateway metric families.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	sanitizerVerdicts *prometheus.CounterVec

	admissionDecisions *prometheus.CounterVec

	analysisTotal      *prometheus.CounterVec
	planFetchDuration  *prometheus.HistogramVec
	complexityScores   prometheus.Histogram
	bottlenecksByKind  *prometheus.CounterVec
}

// NewCollector builds a Collector over the given registry. A nil
// registry gets a fresh one.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "kronos"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "cerberus"
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0}
	}
	if len(cfg.PlanFetchBuckets) == 0 {
		cfg.PlanFetchBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 15.0, 30.0}
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}

	c.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "requests_total",
		Help:      "Gateway requests by operation and outcome.",
	}, []string{"operation", "outcome"})

	c.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "request_duration_seconds",
		Help:      "End-to-end gateway request latency.",
		Buckets:   cfg.RequestDurationBuckets,
	}, []string{"operation"})

	c.sanitizerVerdicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "sanitizer_verdicts_total",
		Help:      "Sanitizer verdicts by outcome and reason code.",
	}, []string{"outcome", "reason_code"})

	c.admissionDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "admission_decisions_total",
		Help:      "Admission decisions by operation.",
	}, []string{"operation", "decision"})

	c.analysisTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "analysis_total",
		Help:      "Completed plan analyses by mode and risk tier.",
	}, []string{"mode", "risk_tier"})

	c.planFetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "plan_fetch_duration_seconds",
		Help:      "Plan source latency by analysis mode.",
		Buckets:   cfg.PlanFetchBuckets,
	}, []string{"mode"})

	c.complexityScores = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "complexity_score",
		Help:      "Syntactic complexity scores of submitted queries.",
		Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	})

	c.bottlenecksByKind = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "bottlenecks_total",
		Help:      "Detected plan bottlenecks by kind.",
	}, []string{"kind"})

	registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.sanitizerVerdicts,
		c.admissionDecisions,
		c.analysisTotal,
		c.planFetchDuration,
		c.complexityScores,
		c.bottlenecksByKind,
	)
	return c
}

// RecordRequest records one finished gateway request.
func (c *Collector) RecordRequest(operation, outcome string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.requestsTotal.WithLabelValues(operation, outcome).Inc()
	c.requestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordVerdict records one sanitizer verdict. reasonCode is empty on
// allowed queries; it is normalized to "none" to keep the label closed.
func (c *Collector) RecordVerdict(allowed bool, reasonCode string) {
	if !c.config.Enabled {
		return
	}
	outcome := "allowed"
	if !allowed {
		outcome = "rejected"
	}
	if reasonCode == "" {
		reasonCode = "none"
	}
	c.sanitizerVerdicts.WithLabelValues(outcome, reasonCode).Inc()
}

// RecordAdmission records one admission decision.
func (c *Collector) RecordAdmission(operation string, allowed bool) {
	if !c.config.Enabled {
		return
	}
	decision := "allowed"
	if !allowed {
		decision = "denied"
	}
	c.admissionDecisions.WithLabelValues(operation, decision).Inc()
}

// RecordAnalysis records one completed plan analysis.
func (c *Collector) RecordAnalysis(mode, riskTier string, planFetch time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.analysisTotal.WithLabelValues(mode, riskTier).Inc()
	c.planFetchDuration.WithLabelValues(mode).Observe(planFetch.Seconds())
}

// RecordBottleneck records one detected bottleneck.
func (c *Collector) RecordBottleneck(kind string) {
	if !c.config.Enabled {
		return
	}
	c.bottlenecksByKind.WithLabelValues(kind).Inc()
}

// RecordComplexity records a query's complexity score.
func (c *Collector) RecordComplexity(score int) {
	if !c.config.Enabled {
		return
	}
	c.complexityScores.Observe(float64(score))
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
