package analyzer

import (
	"context"
	"errors"
)

// Mode selects how the plan is obtained.
type Mode string

const (
	// ModeExplain requests a plan without executing the query. Always
	// permitted: nothing runs.
	ModeExplain Mode = "explain"

	// ModeProfile requests a plan with runtime statistics, which requires
	// executing the query.
	ModeProfile Mode = "profile"
)

// Sentinel errors. Both are fatal: the caller decides what to do, the
// analyzer never retries.
var (
	// ErrProfileWriteBlocked is returned when a PROFILE is requested for a
	// write query without the explicit override.
	ErrProfileWriteBlocked = errors.New("profile would execute a write query; use explain, or set the allow-write-queries override")

	// ErrAnalysisTimeout is returned when the plan source call exceeds the
	// caller's deadline.
	ErrAnalysisTimeout = errors.New("analysis timed out")
)

// RawPlan is the stable shape a PlanSource returns: the database's native
// plan representation reduced to operator kind, row statistics, bound
// identifiers, and children. Rows and DBHits are present only for plans
// obtained by a profiling execution.
type RawPlan struct {
	OperatorType  string            `json:"operatorType"`
	EstimatedRows float64           `json:"estimatedRows"`
	Rows          *int64            `json:"rows,omitempty"`
	DBHits        *int64            `json:"dbHits,omitempty"`
	Identifiers   []string          `json:"identifiers,omitempty"`
	Arguments     map[string]string `json:"arguments,omitempty"`
	Children      []RawPlan         `json:"children,omitempty"`
}

// PlanSource produces a raw plan for a query. execute reports whether the
// source is permitted to run the query (PROFILE); when false the source
// must not execute it (EXPLAIN).
//
// The source is an external collaborator, typically a closure over a
// database session. The analyzer has no knowledge of the transport or
// driver behind it.
type PlanSource interface {
	Plan(ctx context.Context, query string, execute bool) (*RawPlan, error)
}

// PlanFunc adapts a function to the PlanSource interface.
type PlanFunc func(ctx context.Context, query string, execute bool) (*RawPlan, error)

// Plan implements PlanSource.
func (f PlanFunc) Plan(ctx context.Context, query string, execute bool) (*RawPlan, error) {
	return f(ctx, query, execute)
}

// PlanOperator is one node of the analyzed execution plan. The tree is
// owned exclusively by the analysis call that built it; plans are never
// cached across requests because schema and plan shapes change.
type PlanOperator struct {
	Kind          string
	EstimatedRows float64
	ActualRows    *int64
	DBHits        *int64
	Identifiers   []string
	Arguments     map[string]string
	Children      []*PlanOperator
}

// BottleneckKind enumerates the structural problems the detector flags.
type BottleneckKind string

const (
	KindCartesianProduct   BottleneckKind = "cartesian_product"
	KindMissingIndex       BottleneckKind = "missing_index"
	KindUnboundedExpansion BottleneckKind = "unbounded_expansion"
	KindUnboundedResultSet BottleneckKind = "unbounded_result_set"
	KindExpensiveProcedure BottleneckKind = "expensive_procedure"
)

// Bottleneck is one detected structural problem. OperatorPath addresses
// the offending operator as child indexes from the root; Evidence carries
// the operator details the recommendation templates draw from.
type Bottleneck struct {
	Kind         BottleneckKind
	Severity     int
	OperatorPath []int
	Evidence     map[string]string
}

// Recommendation is one ranked, actionable finding derived from a
// bottleneck.
type Recommendation struct {
	Category   string
	Severity   int
	Message    string
	ExampleFix string
	Bottleneck *Bottleneck
}

// CostBasis names which per-operator statistic the cost estimate summed.
type CostBasis string

const (
	// BasisDBHits means actual database hits from a profiling run.
	BasisDBHits CostBasis = "db_hits"

	// BasisEstimatedRows means planner estimates; the fallback when no
	// runtime statistics are present.
	BasisEstimatedRows CostBasis = "estimated_rows"
)

// CostEstimate separates total work from the single heaviest step, so many
// cheap operators and one expensive operator read differently even when
// the totals match.
type CostEstimate struct {
	Aggregate         int64
	MaxSingleOperator int64
	Basis             CostBasis
}

// RiskTier buckets the overall severity for callers that gate on a label.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// Tier thresholds over overall severity. Monotonic by construction.
const (
	riskMediumFloor = 4
	riskHighFloor   = 7
)

func tierFor(severity int) RiskTier {
	switch {
	case severity >= riskHighFloor:
		return RiskHigh
	case severity >= riskMediumFloor:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Result is the outcome of one analysis call.
type Result struct {
	Mode            Mode
	OverallSeverity int
	RiskTier        RiskTier
	Bottlenecks     []Bottleneck
	Recommendations []Recommendation
	Cost            CostEstimate
}

// Options are per-call knobs.
type Options struct {
	// AllowWriteQueries permits PROFILE of a query classified as a write.
	// Off by default; the caller must opt in explicitly.
	AllowWriteQueries bool
}

// Config tunes the bottleneck detector. The severity numbers and
// thresholds are heuristic constants carried from operational experience;
// they are configurable precisely because nobody has demonstrated they are
// optimal.
type Config struct {
	// MaxExpansionDepth is the widest variable-length expansion bound
	// accepted before the expansion is flagged. Default: 5.
	MaxExpansionDepth int `yaml:"max_expansion_depth"`

	// UnboundedRowThreshold is the root row count above which a plan with
	// no limiting operator is flagged. Default: 10000.
	UnboundedRowThreshold int64 `yaml:"unbounded_row_threshold"`

	// ExpensiveProcedures lists procedure name prefixes that are flagged
	// when called.
	ExpensiveProcedures []string `yaml:"expensive_procedures"`

	// Severity overrides per bottleneck kind. Zero means the default for
	// that kind.
	CartesianSeverity          int `yaml:"cartesian_severity"`
	MissingIndexSeverity       int `yaml:"missing_index_severity"`
	UnboundedExpansionSeverity int `yaml:"unbounded_expansion_severity"`
	UnboundedResultSeverity    int `yaml:"unbounded_result_severity"`
	ExpensiveProcSeverity      int `yaml:"expensive_proc_severity"`
}

// Default severities per bottleneck kind.
const (
	defaultCartesianSeverity          = 9
	defaultMissingIndexSeverity       = 8
	defaultUnboundedExpansionSeverity = 7
	defaultUnboundedResultSeverity    = 4
	defaultExpensiveProcSeverity      = 5
)

// DefaultConfig returns the default detector configuration.
func DefaultConfig() Config {
	return Config{
		MaxExpansionDepth:     5,
		UnboundedRowThreshold: 10000,
		ExpensiveProcedures: []string{
			"apoc.algo",
			"apoc.path.expand",
			"gds.",
		},
		CartesianSeverity:          defaultCartesianSeverity,
		MissingIndexSeverity:       defaultMissingIndexSeverity,
		UnboundedExpansionSeverity: defaultUnboundedExpansionSeverity,
		UnboundedResultSeverity:    defaultUnboundedResultSeverity,
		ExpensiveProcSeverity:      defaultExpensiveProcSeverity,
	}
}

// applyDefaults fills zero values so a partially specified Config behaves.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.MaxExpansionDepth <= 0 {
		c.MaxExpansionDepth = d.MaxExpansionDepth
	}
	if c.UnboundedRowThreshold <= 0 {
		c.UnboundedRowThreshold = d.UnboundedRowThreshold
	}
	if c.ExpensiveProcedures == nil {
		c.ExpensiveProcedures = d.ExpensiveProcedures
	}
	if c.CartesianSeverity <= 0 {
		c.CartesianSeverity = d.CartesianSeverity
	}
	if c.MissingIndexSeverity <= 0 {
		c.MissingIndexSeverity = d.MissingIndexSeverity
	}
	if c.UnboundedExpansionSeverity <= 0 {
		c.UnboundedExpansionSeverity = d.UnboundedExpansionSeverity
	}
	if c.UnboundedResultSeverity <= 0 {
		c.UnboundedResultSeverity = d.UnboundedResultSeverity
	}
	if c.ExpensiveProcSeverity <= 0 {
		c.ExpensiveProcSeverity = d.ExpensiveProcSeverity
	}
}
