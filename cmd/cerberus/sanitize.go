package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"kronos-hq/cerberus/pkg/cli"
	"kronos-hq/cerberus/pkg/config"
	"kronos-hq/cerberus/pkg/sanitizer"
)

var sanitizeFlags struct {
	readOnly bool
	strict   bool
	params   string
	format   string
}

// sanitizeReport is the printable outcome of a sanitize run.
type sanitizeReport struct {
	Allowed         bool     `json:"allowed"`
	Code            string   `json:"code,omitempty"`
	Reason          string   `json:"reason,omitempty"`
	NormalizedQuery string   `json:"normalized_query,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	ComplexityScore int      `json:"complexity_score"`
	ComplexityTier  string   `json:"complexity_tier"`
	Triggers        []string `json:"triggers,omitempty"`
}

var sanitizeCmd = &cobra.Command{
	Use:   "sanitize [query]",
	Short: "Check a query against the sanitizer without executing it",
	Long: `Run the full sanitization pipeline against a single query and print
the verdict and complexity score. The query is never sent anywhere.

The policy comes from the configuration file when one is present,
otherwise the built-in defaults apply.

Examples:
  # Check a read query
  cerberus sanitize "MATCH (n:Person) RETURN n LIMIT 10"

  # Enforce read-only mode regardless of config
  cerberus sanitize --read-only "CREATE (n:Person) RETURN n"

  # Include parameters in the check
  cerberus sanitize --params '{"name": "alice"}' 'MATCH (n {name: $name}) RETURN n'

  # Read the query from stdin
  cat query.cypher | cerberus sanitize

  # JSON output
  cerberus sanitize --format json "MATCH (n) RETURN n"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSanitize,
}

func init() {
	rootCmd.AddCommand(sanitizeCmd)

	sanitizeCmd.Flags().BoolVar(&sanitizeFlags.readOnly, "read-only", false, "enforce read-only mode")
	sanitizeCmd.Flags().BoolVar(&sanitizeFlags.strict, "strict", false, "promote warnings to rejections")
	sanitizeCmd.Flags().StringVar(&sanitizeFlags.params, "params", "", "query parameters as a JSON object")
	sanitizeCmd.Flags().StringVarP(&sanitizeFlags.format, "format", "f", "text", "output format (text, json)")
}

func runSanitize(cmd *cobra.Command, args []string) error {
	query, err := readQueryArg(args)
	if err != nil {
		return cli.NewCommandError("sanitize", err)
	}

	policy := loadPolicy()

	if sanitizeFlags.readOnly {
		policy.ReadOnlyMode = true
	}
	if sanitizeFlags.strict {
		policy.StrictMode = true
	}

	var params map[string]any
	if sanitizeFlags.params != "" {
		if err := json.Unmarshal([]byte(sanitizeFlags.params), &params); err != nil {
			return cli.NewCommandError("sanitize", fmt.Errorf("invalid --params: %w", err))
		}
	}

	s := sanitizer.New()
	verdict := s.Sanitize(query, &policy, params)
	complexity := sanitizer.Complexity(query)

	report := sanitizeReport{
		Allowed:         verdict.Allowed,
		Code:            string(verdict.Code),
		Reason:          verdict.Reason,
		NormalizedQuery: verdict.NormalizedQuery,
		Warnings:        verdict.Warnings,
		ComplexityScore: complexity.Score,
		ComplexityTier:  string(complexity.Tier),
		Triggers:        complexity.Triggers,
	}

	if sanitizeFlags.format == "json" {
		formatter := cli.NewFormatter(cli.FormatJSON)
		if err := formatter.FormatTo(os.Stdout, report); err != nil {
			return cli.NewCommandError("sanitize", err)
		}
	} else {
		printSanitizeReport(report)
	}

	if !verdict.Allowed {
		os.Exit(1)
	}
	return nil
}

func printSanitizeReport(r sanitizeReport) {
	if r.Allowed {
		fmt.Println("✓ Query allowed")
	} else {
		fmt.Println("✗ Query rejected")
		fmt.Printf("  Code:   %s\n", r.Code)
		fmt.Printf("  Reason: %s\n", r.Reason)
	}
	for _, w := range r.Warnings {
		fmt.Printf("  Warning: %s\n", w)
	}
	fmt.Printf("  Complexity: %d (%s)\n", r.ComplexityScore, r.ComplexityTier)
	for _, trig := range r.Triggers {
		fmt.Printf("    - %s\n", trig)
	}
}

// readQueryArg returns the query from argv, or stdin when no argument
// (or "-") is given.
func readQueryArg(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read query from stdin: %w", err)
	}
	return string(data), nil
}

// loadPolicy reads the sanitizer policy from the config file, falling
// back to defaults when the file is absent or invalid.
func loadPolicy() sanitizer.Policy {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		if verbose {
			slog.Warn("using default policy", "error", err)
		}
		return sanitizer.DefaultPolicy()
	}
	return cfg.Sanitizer
}
