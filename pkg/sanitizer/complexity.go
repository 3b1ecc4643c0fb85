package sanitizer

import "regexp"

// ComplexityTier buckets a complexity score for callers that gate on a
// single label instead of the numeric score.
type ComplexityTier string

const (
	TierLow    ComplexityTier = "low"
	TierMedium ComplexityTier = "medium"
	TierHigh   ComplexityTier = "high"
)

// Tier thresholds. The tier is a monotonic function of the score.
const (
	tierMediumFloor = 4
	tierHighFloor   = 7
)

// ComplexityScore is a purely syntactic estimate of how expensive a query
// is likely to be. It never executes anything; the plan analyzer gives the
// execution-informed view.
type ComplexityScore struct {
	// Score is the clamped 0..10 numeric score.
	Score int

	// Tier is derived from Score by fixed thresholds.
	Tier ComplexityTier

	// Triggers lists, in detection order, the syntactic features that
	// contributed to the score.
	Triggers []string
}

// complexityRule adds weight when its pattern matches. perMatch rules add
// weight for every occurrence, capped at cap. Rules whose condition cannot
// be expressed as a single RE2 pattern set match instead of re.
type complexityRule struct {
	trigger  string
	weight   int
	perMatch bool
	cap      int
	re       *regexp.Regexp
	match    func(query string) bool
}

var complexityRules = []complexityRule{
	{
		trigger: "variable-length expansion",
		weight:  2,
		re:      regexp.MustCompile(`\[[^\]]*\*[^\]]*\]`),
	},
	{
		trigger: "unbounded variable-length expansion",
		weight:  2,
		re:      regexp.MustCompile(`\[[^\]]*\*(?:\d*\.\.)?\s*\]`),
	},
	{
		trigger:  "multiple MATCH clauses",
		weight:   1,
		perMatch: true,
		cap:      3,
		re:       regexp.MustCompile(`(?i)\bMATCH\b`),
	},
	{
		trigger: "OPTIONAL MATCH",
		weight:  1,
		re:      regexp.MustCompile(`(?i)\bOPTIONAL\s+MATCH\b`),
	},
	{
		trigger: "disconnected patterns in one MATCH",
		weight:  2,
		re:      regexp.MustCompile(`(?i)\bMATCH\s+\([^)]*\)\s*,\s*\(`),
	},
	{
		trigger: "UNWIND",
		weight:  1,
		re:      regexp.MustCompile(`(?i)\bUNWIND\b`),
	},
	{
		trigger: "procedure call",
		weight:  1,
		re:      regexp.MustCompile(`(?i)\bCALL\s+[\w.]+`),
	},
	{
		trigger: "subquery",
		weight:  2,
		re:      regexp.MustCompile(`(?i)\bCALL\s*\{`),
	},
	{
		trigger: "shortest path search",
		weight:  1,
		re:      regexp.MustCompile(`(?i)\b(?:all)?shortestPath\b`),
	},
	{
		trigger: "aggregation",
		weight:  1,
		re:      regexp.MustCompile(`(?i)\b(?:count|collect|sum|avg|min|max|percentileCont|percentileDisc)\s*\(`),
	},
	{
		trigger: "RETURN without LIMIT",
		weight:  1,
		match:   returnWithoutLimit,
	},
}

var (
	returnClauseRE = regexp.MustCompile(`(?i)\bRETURN\b`)
	limitClauseRE  = regexp.MustCompile(`(?i)\bLIMIT\b`)
)

// returnWithoutLimit reports a RETURN clause with no LIMIT after it. RE2
// has no lookahead, so the check is split: find the last RETURN, then test
// the remainder for LIMIT.
func returnWithoutLimit(query string) bool {
	locs := returnClauseRE.FindAllStringIndex(query, -1)
	if len(locs) == 0 {
		return false
	}
	tail := query[locs[len(locs)-1][1]:]
	return !limitClauseRE.MatchString(tail)
}

// Complexity scores a query's syntactic structure. The first MATCH clause
// is free; each extra one adds weight up to the cap.
func Complexity(query string) ComplexityScore {
	score := 0
	var triggers []string

	for _, rule := range complexityRules {
		if rule.perMatch {
			n := len(rule.re.FindAllStringIndex(query, -1))
			if n > 1 {
				add := (n - 1) * rule.weight
				if add > rule.cap {
					add = rule.cap
				}
				score += add
				triggers = append(triggers, rule.trigger)
			}
			continue
		}
		matched := false
		if rule.match != nil {
			matched = rule.match(query)
		} else {
			matched = rule.re.MatchString(query)
		}
		if matched {
			score += rule.weight
			triggers = append(triggers, rule.trigger)
		}
	}

	if score > 10 {
		score = 10
	}

	return ComplexityScore{
		Score:    score,
		Tier:     tierFor(score),
		Triggers: triggers,
	}
}

func tierFor(score int) ComplexityTier {
	switch {
	case score >= tierHighFloor:
		return TierHigh
	case score >= tierMediumFloor:
		return TierMedium
	default:
		return TierLow
	}
}
