package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"kronos-hq/cerberus/pkg/audit"
	auditstorage "kronos-hq/cerberus/pkg/audit/storage"
	"kronos-hq/cerberus/pkg/cli"
	"kronos-hq/cerberus/pkg/config"
)

var auditFlags struct {
	backend  string
	clientID string
	kind     string
	since    string
	until    string
	limit    int
	format   string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail",
	Long: `Query and inspect the audit trail.

Every gateway outcome is recorded: executed queries, sanitizer
rejections, admission denials, completed analyses, schema refreshes,
and internal errors. Events carry reason codes and metadata but never
raw query text.

Subcommands:
  query  - Query audit events with filters
  stats  - Print event counts

Examples:
  # Last 50 events for one client
  cerberus audit query --client-id agent-7 --limit 50

  # All sanitizer rejections since a point in time
  cerberus audit query --kind query_rejected --since 2026-08-01T00:00:00Z`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit events",
	Long: `Query audit events with filters.

Timestamps use RFC3339, e.g. 2026-08-01T00:00:00Z.

Examples:
  # Filter by client
  cerberus audit query --client-id agent-7

  # Filter by kind and time window
  cerberus audit query --kind admission_denied --since 2026-08-01T00:00:00Z --until 2026-08-02T00:00:00Z

  # JSON output
  cerberus audit query --format json`,
	RunE: queryAudit,
}

var auditStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print audit event counts",
	RunE:  auditStats,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd, auditStatsCmd)

	auditCmd.PersistentFlags().StringVar(&auditFlags.backend, "backend", "", "backend: sqlite, memory (uses config if not specified)")

	auditQueryCmd.Flags().StringVar(&auditFlags.clientID, "client-id", "", "filter by client ID")
	auditQueryCmd.Flags().StringVar(&auditFlags.kind, "kind", "", "filter by event kind")
	auditQueryCmd.Flags().StringVar(&auditFlags.since, "since", "", "events recorded at or after this time (RFC3339)")
	auditQueryCmd.Flags().StringVar(&auditFlags.until, "until", "", "events recorded before this time (RFC3339)")
	auditQueryCmd.Flags().IntVar(&auditFlags.limit, "limit", 100, "max results")
	auditQueryCmd.Flags().StringVarP(&auditFlags.format, "format", "f", "text", "output format (text, json)")
}

func queryAudit(cmd *cobra.Command, args []string) error {
	store, err := openAuditStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	filter := audit.Filter{
		ClientID: auditFlags.clientID,
		Kind:     audit.EventKind(auditFlags.kind),
		Limit:    auditFlags.limit,
	}

	if auditFlags.since != "" {
		since, err := time.Parse(time.RFC3339, auditFlags.since)
		if err != nil {
			return cli.NewCommandError("audit", fmt.Errorf("invalid --since: %w", err))
		}
		filter.Since = since
	}
	if auditFlags.until != "" {
		until, err := time.Parse(time.RFC3339, auditFlags.until)
		if err != nil {
			return cli.NewCommandError("audit", fmt.Errorf("invalid --until: %w", err))
		}
		filter.Until = until
	}

	events, err := store.Query(cmd.Context(), filter)
	if err != nil {
		return cli.NewCommandError("audit", fmt.Errorf("query failed: %w", err))
	}

	if auditFlags.format == "json" {
		formatter := cli.NewFormatter(cli.FormatJSON)
		if err := formatter.FormatTo(os.Stdout, events); err != nil {
			return cli.NewCommandError("audit", err)
		}
		return nil
	}

	if len(events) == 0 {
		fmt.Println("No events found")
		return nil
	}

	for _, e := range events {
		printAuditEvent(e)
	}
	fmt.Printf("\n%d event(s)\n", len(events))
	return nil
}

func auditStats(cmd *cobra.Command, args []string) error {
	store, err := openAuditStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	total, err := store.Count(ctx)
	if err != nil {
		return cli.NewCommandError("audit", fmt.Errorf("count failed: %w", err))
	}
	fmt.Printf("Total events: %d\n", total)

	kinds := []audit.EventKind{
		audit.KindQueryExecuted,
		audit.KindQueryRejected,
		audit.KindAdmissionDenied,
		audit.KindAnalysisCompleted,
		audit.KindSchemaRefreshed,
		audit.KindInternalError,
	}
	for _, kind := range kinds {
		events, err := store.Query(ctx, audit.Filter{Kind: kind})
		if err != nil {
			return cli.NewCommandError("audit", fmt.Errorf("query failed: %w", err))
		}
		if len(events) > 0 {
			fmt.Printf("  %-20s %d\n", kind, len(events))
		}
	}
	return nil
}

func printAuditEvent(e *audit.Event) {
	fmt.Printf("%s  %-20s client=%s op=%s", e.RecordedAt.Format(time.RFC3339), e.Kind, e.ClientID, e.Operation)
	if e.ReasonCode != "" {
		fmt.Printf(" reason=%s", e.ReasonCode)
	}
	if e.RiskTier != "" {
		fmt.Printf(" risk=%s severity=%d", e.RiskTier, e.Severity)
	}
	if e.DurationMillis > 0 {
		fmt.Printf(" duration=%dms", e.DurationMillis)
	}
	fmt.Println()
}

// openAuditStorage opens the audit backend named by the --backend flag,
// falling back to the configured backend.
func openAuditStorage() (audit.Storage, error) {
	var (
		backendType = auditFlags.backend
		sqlitePath  = config.DefaultAuditSQLitePath
	)

	cfg, err := config.LoadConfig(cfgFile)
	if err == nil {
		if backendType == "" {
			backendType = cfg.Audit.Backend
		}
		sqlitePath = cfg.Audit.SQLitePath
	} else if backendType == "" {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	switch backendType {
	case "sqlite":
		sqliteConfig := auditstorage.DefaultSQLiteConfig()
		sqliteConfig.Path = sqlitePath
		store, err := auditstorage.NewSQLiteStorage(sqliteConfig)
		if err != nil {
			return nil, cli.NewCommandError("audit", fmt.Errorf("failed to open audit storage: %w", err))
		}
		return store, nil
	case "memory":
		return auditstorage.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s (supported: sqlite, memory)", backendType)
	}
}
