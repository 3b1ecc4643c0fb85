package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"kronos-hq/cerberus/pkg/admission"
	"kronos-hq/cerberus/pkg/analyzer"
	"kronos-hq/cerberus/pkg/audit"
	"kronos-hq/cerberus/pkg/sanitizer"
	"kronos-hq/cerberus/pkg/schema"
	"kronos-hq/cerberus/pkg/telemetry/metrics"
)

// Request outcome labels for metrics.
const (
	outcomeCompleted = "completed"
	outcomeRejected  = "rejected"
	outcomeDenied    = "denied"
	outcomeError     = "error"
)

// Gateway sequences admission, sanitization, execution, and analysis.
// All collaborators are injected; the zero-dependency ones (sink,
// metrics, catalog) may be nil and are skipped.
type Gateway struct {
	cfg       Config
	policy    sanitizer.Policy
	sanitizer *sanitizer.Sanitizer
	admission *admission.Controller
	analyzer  *analyzer.Analyzer
	executor  Executor

	catalog      *schema.Catalog
	schemaSource schema.Source

	sink    audit.Sink
	metrics *metrics.Collector
	logger  *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithExecutor sets the query executor.
func WithExecutor(e Executor) Option {
	return func(g *Gateway) { g.executor = e }
}

// WithAnalyzer sets the plan analyzer.
func WithAnalyzer(a *analyzer.Analyzer) Option {
	return func(g *Gateway) { g.analyzer = a }
}

// WithSchema sets the catalog and the source RefreshSchema pulls from.
func WithSchema(catalog *schema.Catalog, source schema.Source) Option {
	return func(g *Gateway) {
		g.catalog = catalog
		g.schemaSource = source
	}
}

// WithAuditSink sets the audit event sink.
func WithAuditSink(sink audit.Sink) Option {
	return func(g *Gateway) { g.sink = sink }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(g *Gateway) { g.metrics = m }
}

// New builds a Gateway. admissionCtl and logger may be nil; a nil
// admission controller admits everything.
func New(cfg Config, policy sanitizer.Policy, admissionCtl *admission.Controller, logger *slog.Logger, opts ...Option) *Gateway {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	g := &Gateway{
		cfg:       cfg,
		policy:    policy,
		sanitizer: sanitizer.New(),
		admission: admissionCtl,
		logger:    logger.With("component", "gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ExecuteQuery runs the full pipeline for one inbound query: admission,
// sanitization, optional pre-execution analysis, then execution.
func (g *Gateway) ExecuteQuery(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	start := time.Now()
	requestID := g.ensureRequestID(req.RequestID)

	if rej := g.admit(OpExecuteQuery, requestID, req.ClientID); rej != nil {
		g.recordRequest(OpExecuteQuery, outcomeDenied, start)
		return nil, rej
	}

	verdict := g.sanitizer.Sanitize(req.Query, &g.policy, req.Params)
	g.recordVerdict(verdict)
	if !verdict.Allowed {
		g.recordRequest(OpExecuteQuery, outcomeRejected, start)
		g.emit(&audit.Event{
			RequestID:  requestID,
			ClientID:   req.ClientID,
			Operation:  OpExecuteQuery,
			Kind:       audit.KindQueryRejected,
			ReasonCode: string(verdict.Code),
		})
		g.logger.Warn("query rejected",
			"request_id", requestID,
			"client_id", req.ClientID,
			"reason_code", string(verdict.Code),
		)
		return nil, &RejectionError{
			Stage:  StageSanitizer,
			Code:   string(verdict.Code),
			Reason: verdict.Reason,
		}
	}

	complexity := sanitizer.Complexity(verdict.NormalizedQuery)
	g.recordComplexity(complexity)

	var analysis *analyzer.Result
	if g.cfg.AnalyzeBeforeExecute && g.analyzer != nil {
		res, err := g.runAnalysis(ctx, verdict.NormalizedQuery, analyzer.ModeExplain, analyzer.Options{})
		if err != nil {
			// Pre-execution analysis is advisory. The query still runs; the
			// failure is logged and audited.
			g.logger.Warn("pre-execution analysis failed",
				"request_id", requestID,
				"error", err,
			)
		} else {
			analysis = res
		}
	}

	if g.executor == nil {
		g.recordRequest(OpExecuteQuery, outcomeError, start)
		return nil, ErrNoExecutor
	}

	records, err := g.executor.Execute(ctx, verdict.NormalizedQuery, req.Params)
	if err != nil {
		g.recordRequest(OpExecuteQuery, outcomeError, start)
		g.emit(&audit.Event{
			RequestID:      requestID,
			ClientID:       req.ClientID,
			Operation:      OpExecuteQuery,
			Kind:           audit.KindInternalError,
			ReasonCode:     "executor_failure",
			DurationMillis: time.Since(start).Milliseconds(),
		})
		g.logger.Error("query execution failed",
			"request_id", requestID,
			"client_id", req.ClientID,
			"error", err,
		)
		return nil, fmt.Errorf("execute query: %w", err)
	}

	duration := time.Since(start)
	g.recordRequest(OpExecuteQuery, outcomeCompleted, start)
	g.emit(&audit.Event{
		RequestID:       requestID,
		ClientID:        req.ClientID,
		Operation:       OpExecuteQuery,
		Kind:            audit.KindQueryExecuted,
		ComplexityScore: complexity.Score,
		DurationMillis:  duration.Milliseconds(),
		Details: map[string]string{
			"complexity_tier": string(complexity.Tier),
			"records":         fmt.Sprintf("%d", len(records)),
		},
	})
	g.logger.Info("query executed",
		"request_id", requestID,
		"client_id", req.ClientID,
		"complexity", complexity.Score,
		"records", len(records),
		"duration_ms", duration.Milliseconds(),
	)

	return &QueryResponse{
		RequestID:       requestID,
		NormalizedQuery: verdict.NormalizedQuery,
		Complexity:      complexity,
		Warnings:        verdict.Warnings,
		Analysis:        analysis,
		Records:         records,
		Duration:        duration,
	}, nil
}

// AnalyzeQuery runs an on-demand plan analysis. The query is sanitized
// first; a query the gateway would not execute is not analyzed either,
// since PROFILE mode executes it.
func (g *Gateway) AnalyzeQuery(ctx context.Context, req AnalyzeRequest) (*analyzer.Result, error) {
	start := time.Now()
	requestID := g.ensureRequestID(req.RequestID)

	if g.analyzer == nil {
		return nil, ErrNoAnalyzer
	}

	if rej := g.admit(OpAnalyzeQuery, requestID, req.ClientID); rej != nil {
		g.recordRequest(OpAnalyzeQuery, outcomeDenied, start)
		return nil, rej
	}

	verdict := g.sanitizer.Sanitize(req.Query, &g.policy, nil)
	g.recordVerdict(verdict)
	if !verdict.Allowed {
		g.recordRequest(OpAnalyzeQuery, outcomeRejected, start)
		g.emit(&audit.Event{
			RequestID:  requestID,
			ClientID:   req.ClientID,
			Operation:  OpAnalyzeQuery,
			Kind:       audit.KindQueryRejected,
			ReasonCode: string(verdict.Code),
		})
		return nil, &RejectionError{
			Stage:  StageSanitizer,
			Code:   string(verdict.Code),
			Reason: verdict.Reason,
		}
	}

	result, err := g.runAnalysis(ctx, verdict.NormalizedQuery, req.Mode,
		analyzer.Options{AllowWriteQueries: req.AllowWriteQueries})
	if err != nil {
		g.recordRequest(OpAnalyzeQuery, outcomeError, start)
		g.emit(&audit.Event{
			RequestID:  requestID,
			ClientID:   req.ClientID,
			Operation:  OpAnalyzeQuery,
			Kind:       audit.KindInternalError,
			ReasonCode: "analysis_failure",
		})
		return nil, err
	}

	duration := time.Since(start)
	g.recordRequest(OpAnalyzeQuery, outcomeCompleted, start)
	if g.metrics != nil {
		for _, b := range result.Bottlenecks {
			g.metrics.RecordBottleneck(string(b.Kind))
		}
	}
	g.emit(&audit.Event{
		RequestID:      requestID,
		ClientID:       req.ClientID,
		Operation:      OpAnalyzeQuery,
		Kind:           audit.KindAnalysisCompleted,
		RiskTier:       string(result.RiskTier),
		Severity:       result.OverallSeverity,
		DurationMillis: duration.Milliseconds(),
		Details: map[string]string{
			"mode":        string(result.Mode),
			"bottlenecks": fmt.Sprintf("%d", len(result.Bottlenecks)),
		},
	})
	g.logger.Info("analysis completed",
		"request_id", requestID,
		"client_id", req.ClientID,
		"mode", string(result.Mode),
		"risk_tier", string(result.RiskTier),
		"bottlenecks", len(result.Bottlenecks),
	)

	return result, nil
}

// RefreshSchema re-fetches the schema catalog from the configured
// source. Guarded by its own admission budget: schema refreshes hit the
// database's system catalog and are expected to be rare.
func (g *Gateway) RefreshSchema(ctx context.Context, clientID string) error {
	start := time.Now()
	requestID := g.ensureRequestID("")

	if g.catalog == nil || g.schemaSource == nil {
		return ErrNoSchemaSource
	}

	if rej := g.admit(OpRefreshSchema, requestID, clientID); rej != nil {
		g.recordRequest(OpRefreshSchema, outcomeDenied, start)
		return rej
	}

	if err := g.catalog.Refresh(ctx, g.schemaSource); err != nil {
		g.recordRequest(OpRefreshSchema, outcomeError, start)
		g.emit(&audit.Event{
			RequestID:  requestID,
			ClientID:   clientID,
			Operation:  OpRefreshSchema,
			Kind:       audit.KindInternalError,
			ReasonCode: "schema_refresh_failure",
		})
		return fmt.Errorf("refresh schema: %w", err)
	}

	g.recordRequest(OpRefreshSchema, outcomeCompleted, start)
	g.emit(&audit.Event{
		RequestID:      requestID,
		ClientID:       clientID,
		Operation:      OpRefreshSchema,
		Kind:           audit.KindSchemaRefreshed,
		DurationMillis: time.Since(start).Milliseconds(),
		Details: map[string]string{
			"labels": fmt.Sprintf("%d", len(g.catalog.Labels())),
		},
	})
	g.logger.Info("schema refreshed",
		"request_id", requestID,
		"client_id", clientID,
		"labels", len(g.catalog.Labels()),
	)
	return nil
}

// admit runs the admission check for one operation. It returns a
// RejectionError on denial, nil otherwise.
func (g *Gateway) admit(operation, requestID, clientID string) *RejectionError {
	if g.admission == nil {
		return nil
	}

	decision := g.admission.Admit(operation, clientID)
	if g.metrics != nil {
		g.metrics.RecordAdmission(operation, decision.Allowed)
	}
	if decision.Allowed {
		return nil
	}

	g.emit(&audit.Event{
		RequestID:  requestID,
		ClientID:   clientID,
		Operation:  operation,
		Kind:       audit.KindAdmissionDenied,
		ReasonCode: "rate_limited",
		Details: map[string]string{
			"retry_after_ms": fmt.Sprintf("%d", decision.RetryAfter.Milliseconds()),
		},
	})
	g.logger.Warn("admission denied",
		"request_id", requestID,
		"client_id", clientID,
		"operation", operation,
		"retry_after_ms", decision.RetryAfter.Milliseconds(),
	)
	return &RejectionError{
		Stage:      StageAdmission,
		Code:       "rate_limited",
		Reason:     fmt.Sprintf("rate limit exceeded for %s", operation),
		RetryAfter: decision.RetryAfter,
	}
}

// runAnalysis bounds one analyzer call with the configured timeout and
// records its plan-fetch latency.
func (g *Gateway) runAnalysis(ctx context.Context, query string, mode analyzer.Mode, opts analyzer.Options) (*analyzer.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.AnalysisTimeout)
	defer cancel()

	fetchStart := time.Now()
	result, err := g.analyzer.Analyze(ctx, query, mode, opts)
	if err != nil {
		return nil, err
	}
	if g.metrics != nil {
		g.metrics.RecordAnalysis(string(mode), string(result.RiskTier), time.Since(fetchStart))
	}
	return result, nil
}

func (g *Gateway) ensureRequestID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func (g *Gateway) emit(event *audit.Event) {
	if g.sink == nil {
		return
	}
	g.sink.Record(event)
}

func (g *Gateway) recordRequest(operation, outcome string, start time.Time) {
	if g.metrics == nil {
		return
	}
	g.metrics.RecordRequest(operation, outcome, time.Since(start))
}

func (g *Gateway) recordVerdict(v sanitizer.Verdict) {
	if g.metrics == nil {
		return
	}
	g.metrics.RecordVerdict(v.Allowed, string(v.Code))
}

func (g *Gateway) recordComplexity(score sanitizer.ComplexityScore) {
	if g.metrics == nil {
		return
	}
	g.metrics.RecordComplexity(score.Score)
}
