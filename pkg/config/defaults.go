package config

import (
	"time"

	"kronos-hq/cerberus/pkg/admission"
	"kronos-hq/cerberus/pkg/analyzer"
	"kronos-hq/cerberus/pkg/audit/recorder"
	"kronos-hq/cerberus/pkg/audit/retention"
	"kronos-hq/cerberus/pkg/sanitizer"
	"kronos-hq/cerberus/pkg/telemetry/logging"
)

// Default values for configuration fields.
const (
	// Gateway defaults
	DefaultListenAddress   = ":9834"
	DefaultAnalysisTimeout = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	// Admission snapshot defaults
	DefaultSnapshotBackend    = "memory"
	DefaultSnapshotSQLitePath = "data/admission.db"
	DefaultSnapshotInterval   = 30 * time.Second

	// Audit defaults
	DefaultAuditBackend    = "sqlite"
	DefaultAuditSQLitePath = "data/audit.db"
)

// ApplyDefaults fills zero-valued fields with defaults. An entirely
// omitted section gets its package's default configuration, so a config
// file that never mentions the sanitizer still runs with sanitization
// on. This function is idempotent.
func ApplyDefaults(cfg *Config) {
	// Gateway defaults
	if cfg.Gateway.ListenAddress == "" {
		cfg.Gateway.ListenAddress = DefaultListenAddress
	}
	if cfg.Gateway.AnalysisTimeout == 0 {
		cfg.Gateway.AnalysisTimeout = DefaultAnalysisTimeout
	}
	if cfg.Gateway.ShutdownTimeout == 0 {
		cfg.Gateway.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Sanitizer defaults. Enabled is a bool, so a zero Policy is
	// indistinguishable from one explicitly disabled; treat a fully zero
	// section as omitted.
	if cfg.Sanitizer == (sanitizer.Policy{}) {
		cfg.Sanitizer = sanitizer.DefaultPolicy()
	}
	if cfg.Sanitizer.MaxQueryLength == 0 {
		cfg.Sanitizer.MaxQueryLength = sanitizer.DefaultPolicy().MaxQueryLength
	}
	if cfg.Sanitizer.NormalizationShrinkage == 0 {
		cfg.Sanitizer.NormalizationShrinkage = sanitizer.DefaultPolicy().NormalizationShrinkage
	}

	// Analyzer defaults. Partially specified sections are completed by
	// the analyzer itself at construction time.
	if analyzerSectionOmitted(&cfg.Analyzer) {
		cfg.Analyzer = analyzer.DefaultConfig()
	}

	// Admission defaults
	if admissionSectionOmitted(&cfg.Admission.Config) {
		cfg.Admission.Config = admission.DefaultConfig()
	}
	if cfg.Admission.Snapshot.Backend == "" {
		cfg.Admission.Snapshot.Backend = DefaultSnapshotBackend
	}
	if cfg.Admission.Snapshot.SQLitePath == "" {
		cfg.Admission.Snapshot.SQLitePath = DefaultSnapshotSQLitePath
	}
	if cfg.Admission.Snapshot.Interval == 0 {
		cfg.Admission.Snapshot.Interval = DefaultSnapshotInterval
	}

	// Audit defaults
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.SQLitePath == "" {
		cfg.Audit.SQLitePath = DefaultAuditSQLitePath
	}
	if cfg.Audit.Recorder == (recorder.Config{}) {
		cfg.Audit.Recorder = recorder.DefaultConfig()
	}
	if cfg.Audit.Retention == (retention.Config{}) {
		cfg.Audit.Retention = retention.DefaultConfig()
	}

	// Telemetry defaults
	if loggingSectionOmitted(cfg) {
		cfg.Telemetry.Logging = logging.DefaultConfig()
	}
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if metricsSectionOmitted(cfg) {
		cfg.Telemetry.Metrics.Enabled = true
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "kronos"
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = "cerberus"
	}
}

// analyzerSectionOmitted reports whether the analyzer section was left
// out of the config file entirely.
func analyzerSectionOmitted(c *analyzer.Config) bool {
	return c.MaxExpansionDepth == 0 &&
		c.UnboundedRowThreshold == 0 &&
		c.ExpensiveProcedures == nil &&
		c.CartesianSeverity == 0 &&
		c.MissingIndexSeverity == 0 &&
		c.UnboundedExpansionSeverity == 0 &&
		c.UnboundedResultSeverity == 0 &&
		c.ExpensiveProcSeverity == 0
}

// admissionSectionOmitted reports whether the admission section was
// left out of the config file entirely.
func admissionSectionOmitted(c *admission.Config) bool {
	return !c.Enabled && c.Default == (admission.Rule{}) && c.Operations == nil
}

// loggingSectionOmitted reports whether the logging section was left
// out of the config file entirely.
func loggingSectionOmitted(cfg *Config) bool {
	l := &cfg.Telemetry.Logging
	return l.Level == "" && l.Format == "" && !l.AddSource && !l.Redact &&
		l.RedactPatterns == nil && l.Writer == nil
}

// metricsSectionOmitted reports whether the metrics section was left
// out of the config file entirely.
func metricsSectionOmitted(cfg *Config) bool {
	m := &cfg.Telemetry.Metrics
	return !m.Enabled && m.Namespace == "" && m.Subsystem == "" &&
		m.RequestDurationBuckets == nil && m.PlanFetchBuckets == nil
}
