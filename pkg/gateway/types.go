package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kronos-hq/cerberus/pkg/analyzer"
	"kronos-hq/cerberus/pkg/sanitizer"
)

// Guarded operation names. Each carries its own admission budget and
// its own per-client window log.
const (
	OpExecuteQuery  = "execute_query"
	OpAnalyzeQuery  = "analyze_query"
	OpRefreshSchema = "refresh_schema"
)

// Executor runs an approved, normalized query against the database.
// Implementations are external collaborators; the gateway never opens a
// connection itself.
type Executor interface {
	Execute(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	return f(ctx, query, params)
}

// QueryRequest is one inbound query submission.
type QueryRequest struct {
	// RequestID correlates logs, audit events, and the response. Assigned
	// if empty.
	RequestID string

	// ClientID identifies the caller for admission accounting.
	ClientID string

	Query  string
	Params map[string]any
}

// QueryResponse is the outcome of an admitted, sanitized, executed query.
type QueryResponse struct {
	RequestID string

	// NormalizedQuery is the form that actually executed.
	NormalizedQuery string

	// Complexity is the syntactic score of the normalized query.
	Complexity sanitizer.ComplexityScore

	// Warnings carries borderline sanitizer findings that did not reject.
	Warnings []string

	// Analysis is present when the gateway is configured to analyze
	// before executing.
	Analysis *analyzer.Result

	Records []map[string]any

	Duration time.Duration
}

// AnalyzeRequest asks for an on-demand plan analysis.
type AnalyzeRequest struct {
	RequestID string
	ClientID  string
	Query     string

	// Mode selects explain or profile semantics.
	Mode analyzer.Mode

	// AllowWriteQueries permits PROFILE of a write query. Off by default.
	AllowWriteQueries bool
}

// Rejection stages.
const (
	StageAdmission = "admission"
	StageSanitizer = "sanitizer"
)

// RejectionError is the expected "no" outcome: the admission controller
// or the sanitizer refused the request. It carries a machine-readable
// code and never the raw rejected query text.
type RejectionError struct {
	Stage  string
	Code   string
	Reason string

	// RetryAfter is set on admission denials.
	RetryAfter time.Duration
}

// Error returns the rejection message.
func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s rejected request (%s): %s", e.Stage, e.Code, e.Reason)
}

// AsRejection unwraps err into a RejectionError, if it is one.
func AsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// ErrNoExecutor is returned by ExecuteQuery when the gateway was built
// without an Executor.
var ErrNoExecutor = errors.New("no query executor configured")

// ErrNoAnalyzer is returned by AnalyzeQuery when the gateway was built
// without an analyzer.
var ErrNoAnalyzer = errors.New("no plan analyzer configured")

// ErrNoSchemaSource is returned by RefreshSchema when no schema source
// was configured.
var ErrNoSchemaSource = errors.New("no schema source configured")

// Config holds the orchestration knobs.
type Config struct {
	// AnalysisTimeout bounds each plan-source call. Default: 30s.
	AnalysisTimeout time.Duration `yaml:"analysis_timeout"`

	// AnalyzeBeforeExecute runs an EXPLAIN analysis before executing and
	// attaches the result to the response. The analysis never blocks
	// execution; it informs the caller.
	AnalyzeBeforeExecute bool `yaml:"analyze_before_execute"`
}

func (c *Config) applyDefaults() {
	if c.AnalysisTimeout <= 0 {
		c.AnalysisTimeout = 30 * time.Second
	}
}
