package admission

import (
	"fmt"
	"time"
)

// Rule is one admission budget: at most Limit admitted requests per
// sliding Window.
type Rule struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// Config declares the admission budgets. Operations without an explicit
// rule fall back to Default. A zero Default with no operation rules
// admits everything, which matches a disabled controller.
type Config struct {
	Enabled    bool            `yaml:"enabled"`
	Default    Rule            `yaml:"default"`
	Operations map[string]Rule `yaml:"operations"`
}

// DefaultConfig returns the admission defaults: enabled, 60 requests per
// minute per (operation, client) unless an operation overrides it.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Default: Rule{Limit: 60, Window: time.Minute},
	}
}

// Validate checks that every declared rule is usable.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := c.Default.validate("default"); err != nil {
		return err
	}
	for op, rule := range c.Operations {
		if err := rule.validate(op); err != nil {
			return err
		}
	}
	return nil
}

func (r Rule) validate(name string) error {
	if r.Limit < 0 {
		return fmt.Errorf("admission rule %q: limit must not be negative", name)
	}
	if r.Limit > 0 && r.Window <= 0 {
		return fmt.Errorf("admission rule %q: window must be positive", name)
	}
	return nil
}

// rule resolves the budget for an operation.
func (c *Config) rule(operation string) Rule {
	if r, ok := c.Operations[operation]; ok {
		return r
	}
	return c.Default
}

// Decision is the outcome of one admission check.
//
// Remaining counts the slots left in the window after this request.
// ResetIn is the time until the oldest recorded request leaves the
// window, freeing one slot. RetryAfter is zero when admitted; when
// denied it tells the caller how long to wait before the next attempt
// can succeed.
type Decision struct {
	Allowed    bool
	Remaining  int
	ResetIn    time.Duration
	RetryAfter time.Duration
}
