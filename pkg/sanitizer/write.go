package sanitizer

import "regexp"

// WriteClassification is the result of classifying a query as read or
// write. The same classification gates read-only mode here and the PROFILE
// execution path in the plan analyzer.
type WriteClassification struct {
	// IsWrite reports whether the query introduces any data or schema
	// mutation, anywhere in its clause sequence.
	IsWrite bool

	// Keyword is the first write-introducing keyword or procedure found.
	// Keyword names are structural and safe to log.
	Keyword string
}

// writeClauseRE matches write-introducing clause keywords. The match is
// position-independent: a CREATE after a WITH or UNWIND pipeline stage is
// still a write. MATCH-qualified forms (OPTIONAL MATCH, DETACH DELETE) are
// covered by their head keyword.
var writeClauseRE = regexp.MustCompile(`(?i)\b(CREATE|MERGE|DELETE|DETACH|SET|REMOVE|DROP|FOREACH)\b`)

// writeProcedureRE matches procedure namespaces that mutate data even
// though no write keyword appears in the clause text.
var writeProcedureRE = regexp.MustCompile(`(?i)\b(apoc\.create|apoc\.merge|apoc\.refactor|apoc\.nodes\.delete|apoc\.atomic|apoc\.trigger|db\.createLabel|db\.createProperty|db\.createRelationshipType|dbms\.setConfigValue)\b`)

// ClassifyWrite reports whether a query writes data. Classification is
// keyword-based over the full clause sequence; it does not parse the query
// and therefore errs toward classifying as write on ambiguity.
func ClassifyWrite(query string) WriteClassification {
	if m := writeClauseRE.FindString(query); m != "" {
		return WriteClassification{IsWrite: true, Keyword: m}
	}
	if m := writeProcedureRE.FindString(query); m != "" {
		return WriteClassification{IsWrite: true, Keyword: m}
	}
	return WriteClassification{}
}
