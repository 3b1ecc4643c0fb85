package config

import (
	"strings"
	"testing"
)

// validConfig returns a fully defaulted configuration that passes
// validation.
func validConfig() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// ============================================================================
// Validation
// ============================================================================

func TestValidate_DefaultsAreValid(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Errorf("Expected defaulted config to validate, got %v", err)
	}
}

func TestValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty listen address",
			mutate:  func(c *Config) { c.Gateway.ListenAddress = "" },
			wantErr: "gateway.listen_address",
		},
		{
			name:    "negative analysis timeout",
			mutate:  func(c *Config) { c.Gateway.AnalysisTimeout = -1 },
			wantErr: "gateway.analysis_timeout",
		},
		{
			name:    "shrinkage out of range",
			mutate:  func(c *Config) { c.Sanitizer.NormalizationShrinkage = 1.5 },
			wantErr: "sanitizer.normalization_shrinkage",
		},
		{
			name:    "severity out of range",
			mutate:  func(c *Config) { c.Analyzer.CartesianSeverity = 11 },
			wantErr: "analyzer.cartesian_severity",
		},
		{
			name:    "negative admission limit",
			mutate:  func(c *Config) { c.Admission.Default.Limit = -1 },
			wantErr: "admission",
		},
		{
			name: "sqlite snapshot without path",
			mutate: func(c *Config) {
				c.Admission.Snapshot.Backend = "sqlite"
				c.Admission.Snapshot.SQLitePath = ""
			},
			wantErr: "admission.snapshot.sqlite_path",
		},
		{
			name:    "unknown snapshot backend",
			mutate:  func(c *Config) { c.Admission.Snapshot.Backend = "redis" },
			wantErr: "admission.snapshot.backend",
		},
		{
			name:    "unknown audit backend",
			mutate:  func(c *Config) { c.Audit.Backend = "postgres" },
			wantErr: "audit.backend",
		},
		{
			name:    "excessive retention",
			mutate:  func(c *Config) { c.Audit.Retention.RetentionDays = 4000 },
			wantErr: "audit.retention.retention_days",
		},
		{
			name:    "invalid cron expression",
			mutate:  func(c *Config) { c.Audit.Retention.PruneSchedule = "every day at 3" },
			wantErr: "audit.retention.prune_schedule",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Telemetry.Logging.Level = "trace" },
			wantErr: "telemetry.logging.level",
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Telemetry.Logging.Format = "xml" },
			wantErr: "telemetry.logging.format",
		},
		{
			name:    "metrics without namespace",
			mutate:  func(c *Config) { c.Telemetry.Metrics.Namespace = "" },
			wantErr: "telemetry.metrics.namespace",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_CollectsMultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Gateway.ListenAddress = ""
	cfg.Telemetry.Logging.Level = "trace"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error")
	}

	var verr ValidationError
	if !strings.Contains(err.Error(), "2 errors") {
		t.Errorf("Expected both errors reported, got %v", err)
	}
	if ve, ok := err.(ValidationError); ok {
		verr = ve
	} else {
		t.Fatalf("Expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 2 {
		t.Errorf("Expected 2 field errors, got %d", len(verr.Errors))
	}
}
