package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kronos-hq/cerberus/pkg/sanitizer"
	"kronos-hq/cerberus/pkg/schema"
)

// Analyzer runs plan analysis against one PlanSource. The struct holds
// only configuration and collaborators; every Analyze call derives its own
// plan tree, so one Analyzer serves any number of concurrent callers.
type Analyzer struct {
	cfg     Config
	source  PlanSource
	catalog *schema.Catalog
	logger  *slog.Logger
}

// New constructs an Analyzer. catalog may be nil, which disables
// missing-index detection; logger may be nil.
func New(cfg Config, source PlanSource, catalog *schema.Catalog, logger *slog.Logger) *Analyzer {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		cfg:     cfg,
		source:  source,
		catalog: catalog,
		logger:  logger.With("component", "analyzer"),
	}
}

// Analyze obtains a plan for the query and diagnoses it.
//
// In ModeProfile the query executes on the database to collect runtime
// statistics, so a query classified as a write is refused with
// ErrProfileWriteBlocked before the PlanSource is invoked, unless
// opts.AllowWriteQueries is set. ModeExplain never executes anything and
// carries no such gate.
//
// The PlanSource call is bounded by ctx. On deadline expiry the analyzer
// returns ErrAnalysisTimeout and does not retry: a timed-out PROFILE may
// already have executed its side effects.
func (a *Analyzer) Analyze(ctx context.Context, query string, mode Mode, opts Options) (*Result, error) {
	if mode != ModeExplain && mode != ModeProfile {
		return nil, fmt.Errorf("unknown analysis mode %q", mode)
	}

	execute := mode == ModeProfile
	if execute {
		if wc := sanitizer.ClassifyWrite(query); wc.IsWrite && !opts.AllowWriteQueries {
			return nil, fmt.Errorf("%w (found %s)", ErrProfileWriteBlocked, wc.Keyword)
		}
	}

	raw, err := a.source.Plan(ctx, query, execute)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrAnalysisTimeout, err)
		}
		return nil, fmt.Errorf("plan source: %w", err)
	}
	if raw == nil {
		return nil, errors.New("plan source returned no plan")
	}

	plan := buildPlan(raw)
	bottlenecks := newDetector(&a.cfg, a.catalog).detect(plan)
	recs := recommend(bottlenecks)

	overall := 0
	for _, b := range bottlenecks {
		if b.Severity > overall {
			overall = b.Severity
		}
	}

	result := &Result{
		Mode:            mode,
		OverallSeverity: overall,
		RiskTier:        tierFor(overall),
		Bottlenecks:     bottlenecks,
		Recommendations: recs,
		Cost:            estimateCost(plan),
	}

	a.logger.Debug("analysis complete",
		"mode", string(mode),
		"overall_severity", overall,
		"risk_tier", string(result.RiskTier),
		"bottlenecks", len(bottlenecks),
		"cost_basis", string(result.Cost.Basis),
	)

	return result, nil
}
