package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration
// field.
type FieldError struct {
	// Field is the dotted path to the field (e.g. "gateway.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. All field errors are collected and returned together.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration. It returns nil if the
// configuration is valid.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateGateway(&cfg.Gateway)...)
	errs = append(errs, validateSanitizer(cfg)...)
	errs = append(errs, validateAnalyzer(cfg)...)
	errs = append(errs, validateAdmission(&cfg.Admission)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateGateway(cfg *GatewayConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "gateway.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.AnalysisTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "gateway.analysis_timeout",
			Message: "analysis timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "gateway.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	return errs
}

func validateSanitizer(cfg *Config) []FieldError {
	var errs []FieldError

	if cfg.Sanitizer.MaxQueryLength < 0 {
		errs = append(errs, FieldError{
			Field:   "sanitizer.max_query_length",
			Message: "max query length must be non-negative",
		})
	}
	if cfg.Sanitizer.NormalizationShrinkage < 0 || cfg.Sanitizer.NormalizationShrinkage >= 1.0 {
		errs = append(errs, FieldError{
			Field:   "sanitizer.normalization_shrinkage",
			Message: "normalization shrinkage must be in [0.0, 1.0)",
		})
	}

	return errs
}

func validateAnalyzer(cfg *Config) []FieldError {
	var errs []FieldError

	if cfg.Analyzer.MaxExpansionDepth < 0 {
		errs = append(errs, FieldError{
			Field:   "analyzer.max_expansion_depth",
			Message: "max expansion depth must be non-negative",
		})
	}
	if cfg.Analyzer.UnboundedRowThreshold < 0 {
		errs = append(errs, FieldError{
			Field:   "analyzer.unbounded_row_threshold",
			Message: "unbounded row threshold must be non-negative",
		})
	}
	for name, sev := range map[string]int{
		"analyzer.cartesian_severity":           cfg.Analyzer.CartesianSeverity,
		"analyzer.missing_index_severity":       cfg.Analyzer.MissingIndexSeverity,
		"analyzer.unbounded_expansion_severity": cfg.Analyzer.UnboundedExpansionSeverity,
		"analyzer.unbounded_result_severity":    cfg.Analyzer.UnboundedResultSeverity,
		"analyzer.expensive_proc_severity":      cfg.Analyzer.ExpensiveProcSeverity,
	} {
		if sev < 0 || sev > 10 {
			errs = append(errs, FieldError{
				Field:   name,
				Message: "severity must be between 0 and 10",
			})
		}
	}

	return errs
}

func validateAdmission(cfg *AdmissionConfig) []FieldError {
	var errs []FieldError

	if err := cfg.Config.Validate(); err != nil {
		errs = append(errs, FieldError{
			Field:   "admission",
			Message: err.Error(),
		})
	}

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if !validBackends[cfg.Snapshot.Backend] {
		errs = append(errs, FieldError{
			Field:   "admission.snapshot.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Snapshot.Backend),
		})
	}
	if cfg.Snapshot.Backend == "sqlite" && cfg.Snapshot.SQLitePath == "" {
		errs = append(errs, FieldError{
			Field:   "admission.snapshot.sqlite_path",
			Message: "SQLite path is required when backend is 'sqlite'",
		})
	}
	if cfg.Snapshot.Interval < 0 {
		errs = append(errs, FieldError{
			Field:   "admission.snapshot.interval",
			Message: "snapshot interval must be positive",
		})
	}

	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "audit.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}
	if cfg.Backend == "sqlite" && cfg.SQLitePath == "" {
		errs = append(errs, FieldError{
			Field:   "audit.sqlite_path",
			Message: "SQLite path is required when backend is 'sqlite'",
		})
	}
	if cfg.Recorder.AsyncBuffer < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.recorder.async_buffer",
			Message: "async buffer must be non-negative",
		})
	}
	if cfg.Retention.RetentionDays < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.retention.retention_days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.Retention.RetentionDays > 3650 {
		errs = append(errs, FieldError{
			Field:   "audit.retention.retention_days",
			Message: "retention days exceeds reasonable limit (3650 days / 10 years)",
		})
	}
	if cfg.Retention.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "audit.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Namespace == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.namespace",
			Message: "namespace is required when metrics are enabled",
		})
	}

	return errs
}
