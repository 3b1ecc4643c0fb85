package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"kronos-hq/cerberus/pkg/analyzer"
	"kronos-hq/cerberus/pkg/cli"
	"kronos-hq/cerberus/pkg/config"
)

var analyzeFlags struct {
	planPath    string
	mode        string
	allowWrites bool
	format      string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <query>",
	Short: "Analyze a query plan for performance bottlenecks",
	Long: `Analyze a query plan and report bottlenecks, cost estimates, and
an overall risk tier.

Plans are read from a JSON plan document produced by the database's
EXPLAIN or PROFILE output (--plan). The query itself is only used for
procedure detection; it is never executed by this command.

Examples:
  # Analyze a saved EXPLAIN plan
  cerberus analyze --plan plan.json "MATCH (a)-[*]->(b) RETURN b"

  # Analyze a PROFILE plan with runtime statistics
  cerberus analyze --plan plan.json --mode profile "MATCH (n) RETURN n"

  # JSON output
  cerberus analyze --plan plan.json --format json "MATCH (n) RETURN n"`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeFlags.planPath, "plan", "p", "", "path to a JSON plan document (required)")
	analyzeCmd.Flags().StringVarP(&analyzeFlags.mode, "mode", "m", "explain", "analysis mode (explain, profile)")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.allowWrites, "allow-writes", false, "permit profile analysis of write queries")
	analyzeCmd.Flags().StringVarP(&analyzeFlags.format, "format", "f", "text", "output format (text, json)")
	_ = analyzeCmd.MarkFlagRequired("plan")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	var mode analyzer.Mode
	switch analyzeFlags.mode {
	case "explain":
		mode = analyzer.ModeExplain
	case "profile":
		mode = analyzer.ModeProfile
	default:
		return cli.NewCommandError("analyze", fmt.Errorf("invalid mode %q, want explain or profile", analyzeFlags.mode))
	}

	analyzerCfg := analyzer.DefaultConfig()
	if cfg, err := config.LoadConfig(cfgFile); err == nil {
		analyzerCfg = cfg.Analyzer
	} else if verbose {
		slog.Warn("using default analyzer config", "error", err)
	}

	source := analyzer.NewFilePlanSource(analyzeFlags.planPath)
	a := analyzer.New(analyzerCfg, source, nil, slog.Default())

	result, err := a.Analyze(cmd.Context(), args[0], mode, analyzer.Options{
		AllowWriteQueries: analyzeFlags.allowWrites,
	})
	if err != nil {
		return cli.NewCommandError("analyze", err)
	}

	if analyzeFlags.format == "json" {
		formatter := cli.NewFormatter(cli.FormatJSON)
		if err := formatter.FormatTo(os.Stdout, result); err != nil {
			return cli.NewCommandError("analyze", err)
		}
		return nil
	}

	printAnalysis(result)
	return nil
}

func printAnalysis(r *analyzer.Result) {
	fmt.Printf("Risk tier: %s (severity %d)\n", r.RiskTier, r.OverallSeverity)
	fmt.Printf("Estimated cost: %d (%s, max operator %d)\n", r.Cost.Aggregate, r.Cost.Basis, r.Cost.MaxSingleOperator)

	if len(r.Bottlenecks) == 0 {
		fmt.Println("No bottlenecks detected")
		return
	}

	fmt.Printf("\nBottlenecks (%d):\n", len(r.Bottlenecks))
	for _, b := range r.Bottlenecks {
		fmt.Printf("  [%d] %s at %v\n", b.Severity, b.Kind, b.OperatorPath)
		if len(b.Evidence) > 0 {
			fmt.Printf("      %s\n", b.Evidence)
		}
	}

	if len(r.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, rec := range r.Recommendations {
			fmt.Printf("  - %s\n", rec.Message)
		}
	}
}
