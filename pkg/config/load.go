package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults,
// and validates the result. Environment variables are not consulted;
// use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention CERBERUS_SECTION_FIELD (e.g. CERBERUS_GATEWAY_LISTEN_ADDRESS)
// and always take precedence over file values.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate the final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies CERBERUS_SECTION_FIELD environment variable
// overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Gateway overrides
	if val := os.Getenv("CERBERUS_GATEWAY_LISTEN_ADDRESS"); val != "" {
		cfg.Gateway.ListenAddress = val
	}
	if val := os.Getenv("CERBERUS_GATEWAY_ANALYSIS_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Gateway.AnalysisTimeout = d
		}
	}
	if val := os.Getenv("CERBERUS_GATEWAY_ANALYZE_BEFORE_EXECUTE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Gateway.AnalyzeBeforeExecute = b
		}
	}
	if val := os.Getenv("CERBERUS_GATEWAY_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Gateway.ShutdownTimeout = d
		}
	}

	// Sanitizer overrides
	if val := os.Getenv("CERBERUS_SANITIZER_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Sanitizer.Enabled = b
		}
	}
	if val := os.Getenv("CERBERUS_SANITIZER_STRICT_MODE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Sanitizer.StrictMode = b
		}
	}
	if val := os.Getenv("CERBERUS_SANITIZER_READ_ONLY_MODE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Sanitizer.ReadOnlyMode = b
		}
	}
	if val := os.Getenv("CERBERUS_SANITIZER_BLOCK_NON_ASCII"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Sanitizer.BlockNonASCII = b
		}
	}
	if val := os.Getenv("CERBERUS_SANITIZER_MAX_QUERY_LENGTH"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Sanitizer.MaxQueryLength = i
		}
	}

	// Analyzer overrides
	if val := os.Getenv("CERBERUS_ANALYZER_MAX_EXPANSION_DEPTH"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Analyzer.MaxExpansionDepth = i
		}
	}
	if val := os.Getenv("CERBERUS_ANALYZER_UNBOUNDED_ROW_THRESHOLD"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Analyzer.UnboundedRowThreshold = i
		}
	}

	// Admission overrides
	if val := os.Getenv("CERBERUS_ADMISSION_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Admission.Enabled = b
		}
	}
	if val := os.Getenv("CERBERUS_ADMISSION_DEFAULT_LIMIT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Admission.Default.Limit = i
		}
	}
	if val := os.Getenv("CERBERUS_ADMISSION_DEFAULT_WINDOW"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Admission.Default.Window = d
		}
	}
	if val := os.Getenv("CERBERUS_ADMISSION_SNAPSHOT_BACKEND"); val != "" {
		cfg.Admission.Snapshot.Backend = val
	}
	if val := os.Getenv("CERBERUS_ADMISSION_SNAPSHOT_SQLITE_PATH"); val != "" {
		cfg.Admission.Snapshot.SQLitePath = val
	}
	if val := os.Getenv("CERBERUS_ADMISSION_SNAPSHOT_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Admission.Snapshot.Interval = d
		}
	}

	// Audit overrides
	if val := os.Getenv("CERBERUS_AUDIT_BACKEND"); val != "" {
		cfg.Audit.Backend = val
	}
	if val := os.Getenv("CERBERUS_AUDIT_SQLITE_PATH"); val != "" {
		cfg.Audit.SQLitePath = val
	}
	if val := os.Getenv("CERBERUS_AUDIT_RECORDER_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Audit.Recorder.Enabled = b
		}
	}
	if val := os.Getenv("CERBERUS_AUDIT_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Audit.Retention.RetentionDays = i
		}
	}
	if val := os.Getenv("CERBERUS_AUDIT_PRUNE_SCHEDULE"); val != "" {
		cfg.Audit.Retention.PruneSchedule = val
	}

	// Telemetry overrides
	if val := os.Getenv("CERBERUS_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("CERBERUS_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("CERBERUS_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
}
