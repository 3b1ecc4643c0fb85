package config

import (
	"time"

	"kronos-hq/cerberus/pkg/admission"
	"kronos-hq/cerberus/pkg/analyzer"
	"kronos-hq/cerberus/pkg/audit/recorder"
	"kronos-hq/cerberus/pkg/audit/retention"
	"kronos-hq/cerberus/pkg/sanitizer"
	"kronos-hq/cerberus/pkg/telemetry/logging"
	"kronos-hq/cerberus/pkg/telemetry/metrics"
)

// Config is the root gateway configuration.
type Config struct {
	Gateway   GatewayConfig    `yaml:"gateway"`
	Sanitizer sanitizer.Policy `yaml:"sanitizer"`
	Analyzer  analyzer.Config  `yaml:"analyzer"`
	Admission AdmissionConfig  `yaml:"admission"`
	Audit     AuditConfig      `yaml:"audit"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`
}

// GatewayConfig holds orchestration settings.
type GatewayConfig struct {
	// ListenAddress is the admin HTTP server address serving /metrics
	// and the health probes. Default: ":9834".
	ListenAddress string `yaml:"listen_address"`

	// AnalysisTimeout bounds each plan-source call. Default: 30s.
	AnalysisTimeout time.Duration `yaml:"analysis_timeout"`

	// AnalyzeBeforeExecute runs an EXPLAIN analysis before executing a
	// query and attaches the result to the response. Default: false.
	AnalyzeBeforeExecute bool `yaml:"analyze_before_execute"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AdmissionConfig extends the admission budgets with snapshot
// persistence settings.
type AdmissionConfig struct {
	admission.Config `yaml:",inline"`

	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// SnapshotConfig controls admission window persistence.
type SnapshotConfig struct {
	// Backend is "memory" or "sqlite". Default: "memory".
	Backend string `yaml:"backend"`

	// SQLitePath is the database path for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`

	// Interval is how often windows are persisted. Default: 30s.
	Interval time.Duration `yaml:"interval"`
}

// AuditConfig composes the audit trail settings.
type AuditConfig struct {
	// Backend is "memory" or "sqlite". Default: "sqlite".
	Backend string `yaml:"backend"`

	// SQLitePath is the database path for the sqlite backend.
	// Default: "data/audit.db".
	SQLitePath string `yaml:"sqlite_path"`

	Recorder  recorder.Config  `yaml:"recorder"`
	Retention retention.Config `yaml:"retention"`
}

// TelemetryConfig composes the observability settings.
type TelemetryConfig struct {
	Logging logging.Config `yaml:"logging"`
	Metrics metrics.Config `yaml:"metrics"`
}
