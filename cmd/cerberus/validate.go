package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"kronos-hq/cerberus/pkg/cli"
	"kronos-hq/cerberus/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate the configuration file without starting the server.

Defaults are applied before validation, so a file that omits optional
sections still validates. Field-level problems are listed one per line.

Examples:
  # Validate the default config file
  cerberus validate

  # Validate a specific file
  cerberus validate --config /etc/cerberus/cerberus.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("✗ Configuration invalid (%d problems)\n", len(verr.Errors))
			for _, fe := range verr.Errors {
				fmt.Printf("  - %s: %s\n", fe.Field, fe.Message)
			}
			return cli.NewConfigError("", "validation failed")
		}
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	fmt.Println("✓ Configuration valid")
	fmt.Printf("  Listen address: %s\n", cfg.Gateway.ListenAddress)
	fmt.Printf("  Sanitizer: enabled=%t read_only=%t strict=%t\n",
		cfg.Sanitizer.Enabled, cfg.Sanitizer.ReadOnlyMode, cfg.Sanitizer.StrictMode)
	fmt.Printf("  Admission: enabled=%t default=%d/%s\n",
		cfg.Admission.Enabled, cfg.Admission.Default.Limit, cfg.Admission.Default.Window)
	fmt.Printf("  Audit: backend=%s retention_days=%d\n",
		cfg.Audit.Backend, cfg.Audit.Retention.RetentionDays)
	return nil
}
