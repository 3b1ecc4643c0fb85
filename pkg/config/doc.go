// Package config loads, defaults, validates, and watches the gateway
// configuration.
//
// Configuration is one YAML file composing the per-package config
// structs: gateway orchestration settings, the sanitizer policy, the
// analyzer tuning, admission budgets, audit storage and retention, and
// telemetry. Loading applies defaults, then optional CERBERUS_*
// environment overrides, then validation; a Config that survives
// LoadConfig is safe to hand to every component.
//
// The Watcher reloads the file on change (fsnotify, debounced) and
// hands the new validated Config to a callback. A reload that fails to
// parse or validate keeps the previous configuration.
package config
