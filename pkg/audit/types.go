package audit

import (
	"context"
	"time"
)

// EventKind classifies an audit event.
type EventKind string

const (
	// KindAdmissionDenied records a rate-admission denial.
	KindAdmissionDenied EventKind = "admission_denied"

	// KindQueryRejected records a sanitizer rejection.
	KindQueryRejected EventKind = "query_rejected"

	// KindQueryExecuted records a query that passed the gateway and ran.
	KindQueryExecuted EventKind = "query_executed"

	// KindAnalysisCompleted records a finished plan analysis.
	KindAnalysisCompleted EventKind = "analysis_completed"

	// KindSchemaRefreshed records a schema catalog refresh.
	KindSchemaRefreshed EventKind = "schema_refreshed"

	// KindInternalError records a fatal gateway-side failure.
	KindInternalError EventKind = "internal_error"
)

// Event is one audit record.
type Event struct {
	// ID is assigned by the recorder (UUID v4).
	ID string `json:"id"`

	// RequestID correlates the event with one gateway request.
	RequestID string `json:"request_id"`

	ClientID  string    `json:"client_id"`
	Operation string    `json:"operation"`
	Kind      EventKind `json:"kind"`

	// ReasonCode is set on rejections and denials. Machine-readable.
	ReasonCode string `json:"reason_code,omitempty"`

	// RiskTier and Severity are set on analysis events.
	RiskTier string `json:"risk_tier,omitempty"`
	Severity int    `json:"severity,omitempty"`

	// ComplexityScore is the syntactic score of the submitted query.
	ComplexityScore int `json:"complexity_score,omitempty"`

	DurationMillis int64             `json:"duration_ms"`
	Details        map[string]string `json:"details,omitempty"`

	RecordedAt time.Time `json:"recorded_at"`
}

// Filter narrows a storage query. Zero fields match everything.
type Filter struct {
	ClientID  string
	Operation string
	Kind      EventKind
	Since     time.Time
	Until     time.Time
	Limit     int
}

// Sink receives outcome events. The gateway depends on this interface
// only; the recorder subpackage provides the reference implementation.
// Record must not block the caller.
type Sink interface {
	Record(event *Event)
}

// Storage persists audit events. Implementations live in the storage
// subpackage.
type Storage interface {
	Store(ctx context.Context, event *Event) error
	Query(ctx context.Context, filter Filter) ([]*Event, error)
	Count(ctx context.Context) (int64, error)

	// DeleteBefore removes events recorded before the cutoff and reports
	// how many were deleted. Retention pruning uses this.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
