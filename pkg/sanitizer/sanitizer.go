package sanitizer

import "strings"

// Sanitizer runs the verdict pipeline. It holds only immutable tables and
// is safe for use by any number of concurrent callers.
type Sanitizer struct {
	detector HomoglyphDetector
}

// Option configures a Sanitizer.
type Option func(*Sanitizer)

// WithHomoglyphDetector overrides the confusable detector. Used to select
// degraded mode when the full table is unavailable, and by tests.
func WithHomoglyphDetector(d HomoglyphDetector) Option {
	return func(s *Sanitizer) { s.detector = d }
}

// New constructs a Sanitizer with the full homoglyph table.
func New(opts ...Option) *Sanitizer {
	s := &Sanitizer{detector: NewHomoglyphDetector()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DetectorMode reports which confusable table this sanitizer carries.
func (s *Sanitizer) DetectorMode() DetectorMode {
	return s.detector.Mode()
}

// Sanitize runs the full pipeline over a query. Each stage short-circuits
// on rejection. On success the verdict carries the normalized query;
// re-sanitizing that normalized query yields it unchanged.
func (s *Sanitizer) Sanitize(query string, policy *Policy, params map[string]any) Verdict {
	if policy == nil {
		p := DefaultPolicy()
		policy = &p
	}

	// A disabled policy bypasses every stage, size guard included.
	if !policy.Enabled {
		return Verdict{Allowed: true, NormalizedQuery: Normalize(query)}
	}

	// Stage 1: size and emptiness.
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return reject(ReasonEmptyQuery, "empty query")
	}
	if policy.MaxQueryLength > 0 && len([]rune(query)) > policy.MaxQueryLength {
		return reject(ReasonQueryTooLong, "query exceeds maximum length")
	}

	// Stage 2: Unicode normalization.
	var normalized string
	if v := checkUnicode(query, policy, &normalized); v != nil {
		return *v
	}

	// Stage 3: homoglyphs and mixed scripts. Runs on the normalized form
	// so fullwidth and mathematical variants have already folded to ASCII
	// and cannot mask a confusable.
	if findings := s.detector.Scan(normalized); len(findings) > 0 {
		f := findings[0]
		return reject(f.Code, f.Message)
	}

	// Stage 4: structural dangerous patterns.
	var warnings []string
	if v := checkPatterns(normalized, policy, &warnings); v != nil {
		return *v
	}

	// Stage 5: read-only enforcement.
	if policy.ReadOnlyMode {
		if wc := ClassifyWrite(normalized); wc.IsWrite {
			return reject(ReasonWriteInReadOnly,
				"write operation ("+wc.Keyword+") is not permitted in read-only mode")
		}
	}

	// Stage 6: parameter validation.
	if v := checkParams(params); v != nil {
		return *v
	}

	return Verdict{
		Allowed:         true,
		NormalizedQuery: normalized,
		Warnings:        warnings,
	}
}
