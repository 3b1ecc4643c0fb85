package analyzer

import (
	"fmt"
	"sort"
)

// recommend derives one recommendation per bottleneck from the fixed
// per-kind templates, then orders them by severity descending. Ties keep
// detection order; the sort is stable for exactly that reason.
func recommend(bottlenecks []Bottleneck) []Recommendation {
	recs := make([]Recommendation, 0, len(bottlenecks))
	for i := range bottlenecks {
		b := &bottlenecks[i]
		msg, fix := template(b)
		recs = append(recs, Recommendation{
			Category:   string(b.Kind),
			Severity:   b.Severity,
			Message:    msg,
			ExampleFix: fix,
			Bottleneck: b,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Severity > recs[j].Severity
	})
	return recs
}

func template(b *Bottleneck) (message, exampleFix string) {
	switch b.Kind {
	case KindCartesianProduct:
		return "cartesian product: the plan combines two patterns that share no variable, producing their full pairwise product",
			"connect the patterns through a relationship or shared variable, e.g. MATCH (a)-[:REL]->(b) instead of MATCH (a), (b)"

	case KindMissingIndex:
		label := b.Evidence["label"]
		property := b.Evidence["property"]
		return fmt.Sprintf("full scan of label %s filters on property %s, which has no index", label, property),
			fmt.Sprintf("CREATE INDEX FOR (n:%s) ON (n.%s)", label, property)

	case KindUnboundedExpansion:
		return fmt.Sprintf("variable-length expansion has no safe upper bound (max %s, safe maximum %s)",
				b.Evidence["max_bound"], b.Evidence["safe_max"]),
			fmt.Sprintf("bound the expansion depth, e.g. -[:REL*1..%s]->", b.Evidence["safe_max"])

	case KindUnboundedResultSet:
		return fmt.Sprintf("the query returns about %s rows with no limiting operator", b.Evidence["rows"]),
			"append LIMIT (and ORDER BY if ranking matters) to cap the result set"

	case KindExpensiveProcedure:
		return fmt.Sprintf("procedure %s is on the expensive list", b.Evidence["procedure"]),
			"narrow the procedure's input, or move the call to a background job"

	default:
		return string(b.Kind), ""
	}
}
