package sanitizer

// ReasonCode is a machine-readable rejection category. Codes are stable and
// safe to log; they never contain query text.
type ReasonCode string

const (
	// ReasonEmptyQuery indicates an empty or whitespace-only query.
	ReasonEmptyQuery ReasonCode = "empty_query"

	// ReasonQueryTooLong indicates the query exceeded Policy.MaxQueryLength.
	ReasonQueryTooLong ReasonCode = "query_too_long"

	// ReasonInvisibleCharacter indicates a zero-width, byte-order-mark,
	// directional-override, or other format/control character.
	ReasonInvisibleCharacter ReasonCode = "invisible_character"

	// ReasonNormalizationShrinkage indicates the query shrank by more than
	// the configured threshold under Unicode normalization.
	ReasonNormalizationShrinkage ReasonCode = "normalization_shrinkage"

	// ReasonForbiddenRange indicates a combining diacritical mark or a
	// mathematical alphanumeric symbol.
	ReasonForbiddenRange ReasonCode = "forbidden_unicode_range"

	// ReasonNonASCII indicates a non-ASCII character while the policy
	// requires ASCII-only queries.
	ReasonNonASCII ReasonCode = "non_ascii"

	// ReasonHomoglyph indicates a character confusable with an ASCII
	// keyword character from another script.
	ReasonHomoglyph ReasonCode = "homoglyph"

	// ReasonMixedScript indicates a single token spelled from two or more
	// scripts.
	ReasonMixedScript ReasonCode = "mixed_script"

	// ReasonStatementChaining indicates a statement separator followed by
	// another clause keyword.
	ReasonStatementChaining ReasonCode = "statement_chaining"

	// ReasonBlockComment indicates a block-style comment that could hide a
	// second statement.
	ReasonBlockComment ReasonCode = "block_comment"

	// ReasonDynamicProcedure indicates a meta-procedure that runs a query
	// string constructed at runtime.
	ReasonDynamicProcedure ReasonCode = "dynamic_procedure"

	// ReasonBulkDataProcedure indicates a bulk import/export procedure.
	ReasonBulkDataProcedure ReasonCode = "bulk_data_procedure"

	// ReasonBatchIteration indicates a batch/parallel-iteration procedure
	// usable for resource exhaustion.
	ReasonBatchIteration ReasonCode = "batch_iteration"

	// ReasonSchemaMutation indicates index/constraint DDL while the policy
	// forbids schema mutation.
	ReasonSchemaMutation ReasonCode = "schema_mutation"

	// ReasonWriteInReadOnly indicates a write-introducing clause or
	// procedure while the policy is in read-only mode.
	ReasonWriteInReadOnly ReasonCode = "write_in_read_only"

	// ReasonBadParameterName indicates a parameter key that is not a valid
	// identifier.
	ReasonBadParameterName ReasonCode = "bad_parameter_name"

	// ReasonBadParameterValue indicates a parameter value of an unsupported
	// (non-scalar) type.
	ReasonBadParameterValue ReasonCode = "bad_parameter_value"

	// ReasonStrictFinding indicates a borderline finding promoted to a
	// rejection by Policy.StrictMode.
	ReasonStrictFinding ReasonCode = "strict_finding"
)

// Policy is the immutable sanitization policy. It is constructed once at
// startup and shared read-only across all calls; the sanitizer never
// mutates it.
type Policy struct {
	// Enabled bypasses sanitization entirely when false. Disabled policies
	// still return the normalized query so downstream stages see a stable
	// form.
	Enabled bool `yaml:"enabled"`

	// StrictMode promotes borderline findings (line comments, trailing
	// separators) from warning to rejection.
	StrictMode bool `yaml:"strict_mode"`

	// AllowDynamicProcedures permits meta-procedures that execute a query
	// string built at runtime.
	AllowDynamicProcedures bool `yaml:"allow_dynamic_procedures"`

	// AllowSchemaMutation permits index and constraint DDL.
	AllowSchemaMutation bool `yaml:"allow_schema_mutation"`

	// BlockNonASCII rejects any character outside the ASCII range.
	BlockNonASCII bool `yaml:"block_non_ascii"`

	// MaxQueryLength is the maximum accepted query length in runes.
	// Default: 4096.
	MaxQueryLength int `yaml:"max_query_length"`

	// ReadOnlyMode rejects any query classified as a write, including
	// writes hidden behind WITH/UNWIND pipeline stages.
	ReadOnlyMode bool `yaml:"read_only_mode"`

	// NormalizationShrinkage is the fraction by which a query may shrink
	// under Unicode normalization before it is rejected. This is a
	// heuristic constant carried from operational experience, not a tuned
	// value. Default: 0.10.
	NormalizationShrinkage float64 `yaml:"normalization_shrinkage"`
}

// DefaultPolicy returns a Policy with conservative defaults.
func DefaultPolicy() Policy {
	return Policy{
		Enabled:                true,
		StrictMode:             false,
		AllowDynamicProcedures: false,
		AllowSchemaMutation:    false,
		BlockNonASCII:          false,
		MaxQueryLength:         4096,
		ReadOnlyMode:           false,
		NormalizationShrinkage: 0.10,
	}
}

// Verdict is the outcome of a sanitization call. It is created fresh per
// call and never persisted.
type Verdict struct {
	// Allowed reports whether the query may proceed.
	Allowed bool

	// Code is the machine-readable rejection category. Empty when allowed.
	Code ReasonCode

	// Reason is a short human-readable message. Set whenever Allowed is
	// false. It never contains the offending raw substring.
	Reason string

	// NormalizedQuery is the query after Unicode normalization. Stable and
	// idempotent: sanitizing a normalized query returns it unchanged.
	NormalizedQuery string

	// Warnings lists borderline findings that did not reject the query.
	// Under StrictMode these become rejections instead.
	Warnings []string
}

// reject builds a rejecting verdict.
func reject(code ReasonCode, reason string) Verdict {
	return Verdict{Allowed: false, Code: code, Reason: reason}
}
