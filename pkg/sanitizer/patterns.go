package sanitizer

import "regexp"

// dangerousPattern is one entry in the curated structural pattern list.
// enabled decides whether the pattern applies under the given policy, so
// policies can open individual categories (e.g. dynamic procedures for a
// trusted migration tool) without touching the rest of the list.
type dangerousPattern struct {
	code    ReasonCode
	message string
	re      *regexp.Regexp
	enabled func(p *Policy) bool
}

func always(*Policy) bool { return true }

// clauseKeywords are the keywords that can open a new statement after a
// separator. A bare trailing semicolon is only a warning; a semicolon
// followed by one of these is chaining.
const clauseKeywords = `MATCH|OPTIONAL|CREATE|MERGE|DELETE|DETACH|DROP|CALL|WITH|UNWIND|SET|REMOVE|FOREACH|LOAD|RETURN|USE|SHOW`

var dangerousPatterns = []dangerousPattern{
	{
		code:    ReasonStatementChaining,
		message: "statement chaining: separator followed by another clause",
		re:      regexp.MustCompile(`(?is);\s*(?:` + clauseKeywords + `)\b`),
		enabled: always,
	},
	{
		code:    ReasonBlockComment,
		message: "block comment can hide a second statement",
		re:      regexp.MustCompile(`/\*`),
		enabled: always,
	},
	{
		code:    ReasonDynamicProcedure,
		message: "dynamic procedure executes a query string built at runtime",
		re: regexp.MustCompile(`(?i)\bapoc\.cypher\.(?:run|runMany|runSchema|runTimeboxed|doIt|mapParallel|parallel)\b`),
		enabled: func(p *Policy) bool { return !p.AllowDynamicProcedures },
	},
	{
		code:    ReasonBulkDataProcedure,
		message: "bulk import/export procedure",
		re: regexp.MustCompile(`(?i)(?:\bapoc\.(?:load|import|export)\.\w|\bLOAD\s+CSV\b)`),
		enabled: always,
	},
	{
		code:    ReasonBatchIteration,
		message: "batch/parallel iteration procedure",
		re:      regexp.MustCompile(`(?i)\bapoc\.periodic\.(?:iterate|commit|repeat|submit|schedule)\b`),
		enabled: always,
	},
	{
		code:    ReasonSchemaMutation,
		message: "schema mutation is not permitted by policy",
		re: regexp.MustCompile(`(?i)(?:\b(?:CREATE|DROP)\s+(?:INDEX|CONSTRAINT|DATABASE)\b|\bapoc\.schema\.assert\b)`),
		enabled: func(p *Policy) bool { return !p.AllowSchemaMutation },
	},
}

// borderlinePattern is a finding that warns by default and rejects under
// StrictMode.
type borderlinePattern struct {
	message string
	re      *regexp.Regexp
}

var borderlinePatterns = []borderlinePattern{
	{
		message: "trailing statement separator",
		re:      regexp.MustCompile(`;\s*$`),
	},
	{
		message: "line comment",
		re:      regexp.MustCompile(`//`),
	},
}

// checkPatterns runs the structural dangerous-pattern stage. It returns a
// rejecting verdict, or nil with any borderline warnings appended.
func checkPatterns(query string, policy *Policy, warnings *[]string) *Verdict {
	for _, p := range dangerousPatterns {
		if !p.enabled(policy) {
			continue
		}
		if p.re.MatchString(query) {
			v := reject(p.code, p.message)
			return &v
		}
	}

	for _, p := range borderlinePatterns {
		if p.re.MatchString(query) {
			if policy.StrictMode {
				v := reject(ReasonStrictFinding, p.message+" (rejected by strict mode)")
				return &v
			}
			*warnings = append(*warnings, p.message)
		}
	}

	return nil
}
