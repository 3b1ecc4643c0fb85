package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "cerberus",
	Short: "Cerberus - safety gateway for graph database queries",
	Long: `Cerberus is a safety gateway that sits between agent query interfaces
and a Cypher-style graph database.

Every query passes through:
  - Injection and Unicode-smuggling sanitization
  - Per-operation, per-client admission control
  - Optional query plan analysis with bottleneck detection
  - A persistent audit trail of every outcome

For more information, visit: https://github.com/kronos-hq/cerberus`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "cerberus.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
