package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"kronos-hq/cerberus/pkg/schema"
)

func i64(v int64) *int64 { return &v }

// recordingSource remembers how it was called and returns a fixed plan.
type recordingSource struct {
	plan    *RawPlan
	err     error
	calls   int
	execute bool
}

func (r *recordingSource) Plan(_ context.Context, _ string, execute bool) (*RawPlan, error) {
	r.calls++
	r.execute = execute
	if r.err != nil {
		return nil, r.err
	}
	return r.plan, nil
}

func simplePlan() *RawPlan {
	return &RawPlan{
		OperatorType:  "ProduceResults",
		EstimatedRows: 10,
		Identifiers:   []string{"n"},
		Children: []RawPlan{{
			OperatorType:  "NodeByLabelScan",
			EstimatedRows: 10,
			Identifiers:   []string{"n"},
			Arguments:     map[string]string{"label": "Person"},
		}},
	}
}

func newTestAnalyzer(plan *RawPlan, catalog *schema.Catalog) (*Analyzer, *recordingSource) {
	src := &recordingSource{plan: plan}
	return New(DefaultConfig(), src, catalog, nil), src
}

// ============================================================================
// Mode semantics and the PROFILE write gate
// ============================================================================

func TestAnalyze_ExplainNeverExecutes(t *testing.T) {
	a, src := newTestAnalyzer(simplePlan(), nil)

	_, err := a.Analyze(context.Background(), "CREATE (n) RETURN n", ModeExplain, Options{})
	if err != nil {
		t.Fatalf("Expected explain of a write query to succeed, got: %v", err)
	}
	if src.execute {
		t.Error("Expected explain to call the plan source with execute=false")
	}
}

func TestAnalyze_ProfileWriteGuard(t *testing.T) {
	a, src := newTestAnalyzer(simplePlan(), nil)

	_, err := a.Analyze(context.Background(), "CREATE (n) RETURN n", ModeProfile, Options{})
	if !errors.Is(err, ErrProfileWriteBlocked) {
		t.Fatalf("Expected ErrProfileWriteBlocked, got: %v", err)
	}
	if src.calls != 0 {
		t.Error("Expected the plan source to never be invoked when the gate trips")
	}

	_, err = a.Analyze(context.Background(), "CREATE (n) RETURN n", ModeProfile,
		Options{AllowWriteQueries: true})
	if err != nil {
		t.Fatalf("Expected override to permit profile, got: %v", err)
	}
	if src.calls != 1 || !src.execute {
		t.Errorf("Expected one call with execute=true, got calls=%d execute=%v", src.calls, src.execute)
	}
}

func TestAnalyze_ProfileReadQueryNeedsNoOverride(t *testing.T) {
	a, src := newTestAnalyzer(simplePlan(), nil)

	_, err := a.Analyze(context.Background(), "MATCH (n) RETURN n LIMIT 5", ModeProfile, Options{})
	if err != nil {
		t.Fatalf("Expected profile of a read query to succeed, got: %v", err)
	}
	if !src.execute {
		t.Error("Expected profile to call the plan source with execute=true")
	}
}

func TestAnalyze_Timeout(t *testing.T) {
	src := &recordingSource{err: context.DeadlineExceeded}
	a := New(DefaultConfig(), src, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	time.Sleep(5 * time.Millisecond)

	_, err := a.Analyze(ctx, "MATCH (n) RETURN n", ModeExplain, Options{})
	if !errors.Is(err, ErrAnalysisTimeout) {
		t.Fatalf("Expected ErrAnalysisTimeout, got: %v", err)
	}
}

func TestAnalyze_PlanSourceFailure(t *testing.T) {
	src := &recordingSource{err: errors.New("connection refused")}
	a := New(DefaultConfig(), src, nil, nil)

	_, err := a.Analyze(context.Background(), "MATCH (n) RETURN n", ModeExplain, Options{})
	if err == nil {
		t.Fatal("Expected plan source failure to surface")
	}
	if errors.Is(err, ErrAnalysisTimeout) {
		t.Error("Expected a non-timeout failure not to be reported as timeout")
	}
}

// ============================================================================
// Bottleneck detection
// ============================================================================

func TestDetect_CartesianProduct(t *testing.T) {
	plan := &RawPlan{
		OperatorType:  "CartesianProduct",
		EstimatedRows: 10000,
		Identifiers:   []string{"a", "b"},
		Children: []RawPlan{
			{OperatorType: "NodeByLabelScan", EstimatedRows: 100, Identifiers: []string{"a"}},
			{OperatorType: "NodeByLabelScan", EstimatedRows: 100, Identifiers: []string{"b"}},
		},
	}
	a, _ := newTestAnalyzer(plan, nil)

	result, err := a.Analyze(context.Background(), "MATCH (a), (b) RETURN a, b", ModeExplain, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Bottlenecks) != 1 {
		t.Fatalf("Expected exactly one bottleneck, got %d: %+v", len(result.Bottlenecks), result.Bottlenecks)
	}
	b := result.Bottlenecks[0]
	if b.Kind != KindCartesianProduct {
		t.Errorf("Expected cartesian_product, got %s", b.Kind)
	}
	if b.Severity != 9 {
		t.Errorf("Expected severity 9, got %d", b.Severity)
	}
	if result.OverallSeverity != 9 || result.RiskTier != RiskHigh {
		t.Errorf("Expected overall 9/high, got %d/%s", result.OverallSeverity, result.RiskTier)
	}
}

func TestDetect_JoinWithSharedVariableIsNotCartesian(t *testing.T) {
	plan := &RawPlan{
		OperatorType: "NodeHashJoin",
		Identifiers:  []string{"a", "b"},
		Children: []RawPlan{
			{OperatorType: "Expand(All)", Identifiers: []string{"a", "b"}},
			{OperatorType: "NodeByLabelScan", Identifiers: []string{"b"}},
		},
	}
	a, _ := newTestAnalyzer(plan, nil)

	result, err := a.Analyze(context.Background(), "MATCH (a)-->(b:Label) RETURN a", ModeExplain, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range result.Bottlenecks {
		if b.Kind == KindCartesianProduct {
			t.Error("Expected no cartesian finding for a join with a shared variable")
		}
	}
}

func TestDetect_MissingIndex(t *testing.T) {
	catalog := schema.NewCatalog()
	catalog.Apply(&schema.Snapshot{Labels: []schema.Label{
		{Name: "Person", Properties: []string{"email", "name"}, Indexes: []string{"name"}},
	}})

	plan := &RawPlan{
		OperatorType:  "ProduceResults",
		EstimatedRows: 5,
		Children: []RawPlan{{
			OperatorType: "Filter",
			Arguments:    map[string]string{"details": "p.email = $email"},
			Children: []RawPlan{{
				OperatorType:  "NodeByLabelScan",
				EstimatedRows: 100000,
				Identifiers:   []string{"p"},
				Arguments:     map[string]string{"label": "Person"},
			}},
		}},
	}
	a, _ := newTestAnalyzer(plan, catalog)

	result, err := a.Analyze(context.Background(),
		"MATCH (p:Person) WHERE p.email = $email RETURN p LIMIT 1", ModeExplain, Options{})
	if err != nil {
		t.Fatal(err)
	}

	var found *Bottleneck
	for i := range result.Bottlenecks {
		if result.Bottlenecks[i].Kind == KindMissingIndex {
			found = &result.Bottlenecks[i]
		}
	}
	if found == nil {
		t.Fatalf("Expected a missing_index bottleneck, got %+v", result.Bottlenecks)
	}
	if found.Severity != 8 {
		t.Errorf("Expected severity 8, got %d", found.Severity)
	}
	if found.Evidence["label"] != "Person" || found.Evidence["property"] != "email" {
		t.Errorf("Expected Person/email evidence, got %v", found.Evidence)
	}

	// The scan operator sits under the filter under the root.
	if op := operatorAt(buildPlan(plan), found.OperatorPath); op == nil || op.Kind != "NodeByLabelScan" {
		t.Errorf("Expected operator path to resolve to the scan, got %v", found.OperatorPath)
	}
}

func TestDetect_IndexedPropertyIsNotFlagged(t *testing.T) {
	catalog := schema.NewCatalog()
	catalog.Apply(&schema.Snapshot{Labels: []schema.Label{
		{Name: "Person", Properties: []string{"name"}, Indexes: []string{"name"}},
	}})

	plan := &RawPlan{
		OperatorType: "Filter",
		Arguments:    map[string]string{"details": "p.name = $name"},
		Children: []RawPlan{{
			OperatorType: "NodeByLabelScan",
			Identifiers:  []string{"p"},
			Arguments:    map[string]string{"label": "Person"},
		}},
	}
	a, _ := newTestAnalyzer(plan, catalog)

	result, err := a.Analyze(context.Background(), "MATCH (p:Person) WHERE p.name = $name RETURN p LIMIT 1",
		ModeExplain, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range result.Bottlenecks {
		if b.Kind == KindMissingIndex {
			t.Error("Expected no missing_index finding when the index exists")
		}
	}
}

func TestDetect_UnboundedExpansion(t *testing.T) {
	cases := []struct {
		name    string
		expr    string
		flagged bool
	}{
		{"bare star", "(a)-[:KNOWS*]->(b)", true},
		{"open upper bound", "(a)-[:KNOWS*1..]->(b)", true},
		{"wide bound", "(a)-[:KNOWS*1..8]->(b)", true},
		{"safe bound", "(a)-[:KNOWS*1..3]->(b)", false},
		{"exact safe depth", "(a)-[:KNOWS*2]->(b)", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan := &RawPlan{
				OperatorType: "VarLengthExpand(All)",
				Arguments:    map[string]string{"expandExpression": tc.expr},
			}
			a, _ := newTestAnalyzer(plan, nil)
			result, err := a.Analyze(context.Background(), "MATCH p RETURN p LIMIT 1", ModeExplain, Options{})
			if err != nil {
				t.Fatal(err)
			}

			flagged := false
			for _, b := range result.Bottlenecks {
				if b.Kind == KindUnboundedExpansion {
					flagged = true
					if b.Severity != 7 {
						t.Errorf("Expected severity 7, got %d", b.Severity)
					}
				}
			}
			if flagged != tc.flagged {
				t.Errorf("Expected flagged=%v for %q, got %v", tc.flagged, tc.expr, flagged)
			}
		})
	}
}

func TestDetect_UnboundedResultSet(t *testing.T) {
	plan := &RawPlan{
		OperatorType:  "ProduceResults",
		EstimatedRows: 50000,
		Children: []RawPlan{{
			OperatorType:  "AllNodesScan",
			EstimatedRows: 50000,
		}},
	}
	a, _ := newTestAnalyzer(plan, nil)

	result, err := a.Analyze(context.Background(), "MATCH (n) RETURN n", ModeExplain, Options{})
	if err != nil {
		t.Fatal(err)
	}

	var found *Bottleneck
	for i := range result.Bottlenecks {
		if result.Bottlenecks[i].Kind == KindUnboundedResultSet {
			found = &result.Bottlenecks[i]
		}
	}
	if found == nil {
		t.Fatal("Expected unbounded_result_set bottleneck")
	}
	if found.Severity != 4 || len(found.OperatorPath) != 0 {
		t.Errorf("Expected severity 4 at root, got %+v", found)
	}
}

func TestDetect_LimitSuppressesUnboundedResult(t *testing.T) {
	plan := &RawPlan{
		OperatorType:  "ProduceResults",
		EstimatedRows: 50000,
		Children: []RawPlan{{
			OperatorType:  "Limit",
			EstimatedRows: 25,
			Children: []RawPlan{{
				OperatorType:  "AllNodesScan",
				EstimatedRows: 50000,
			}},
		}},
	}
	a, _ := newTestAnalyzer(plan, nil)

	result, err := a.Analyze(context.Background(), "MATCH (n) RETURN n LIMIT 25", ModeExplain, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range result.Bottlenecks {
		if b.Kind == KindUnboundedResultSet {
			t.Error("Expected Limit to suppress the unbounded result finding")
		}
	}
}

func TestDetect_ExpensiveProcedure(t *testing.T) {
	plan := &RawPlan{
		OperatorType: "ProcedureCall",
		Arguments:    map[string]string{"name": "gds.pageRank.stream"},
	}
	a, _ := newTestAnalyzer(plan, nil)

	result, err := a.Analyze(context.Background(), "CALL gds.pageRank.stream('g')", ModeExplain, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Bottlenecks) != 1 || result.Bottlenecks[0].Kind != KindExpensiveProcedure {
		t.Fatalf("Expected one expensive_procedure bottleneck, got %+v", result.Bottlenecks)
	}
	if result.Bottlenecks[0].Severity != 5 {
		t.Errorf("Expected severity 5, got %d", result.Bottlenecks[0].Severity)
	}
}

// ============================================================================
// Cost estimation
// ============================================================================

func TestCost_ProfileSumsDBHits(t *testing.T) {
	plan := &RawPlan{
		OperatorType:  "ProduceResults",
		EstimatedRows: 10,
		Rows:          i64(10),
		DBHits:        i64(0),
		Children: []RawPlan{{
			OperatorType:  "Expand(All)",
			EstimatedRows: 10,
			Rows:          i64(10),
			DBHits:        i64(120),
			Children: []RawPlan{{
				OperatorType:  "NodeByLabelScan",
				EstimatedRows: 40,
				Rows:          i64(40),
				DBHits:        i64(41),
			}},
		}},
	}
	a, _ := newTestAnalyzer(plan, nil)

	result, err := a.Analyze(context.Background(), "MATCH (n)-->(m) RETURN m LIMIT 10", ModeProfile, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Cost.Basis != BasisDBHits {
		t.Errorf("Expected db_hits basis, got %s", result.Cost.Basis)
	}
	if result.Cost.Aggregate != 161 {
		t.Errorf("Expected aggregate 161, got %d", result.Cost.Aggregate)
	}
	if result.Cost.MaxSingleOperator != 120 {
		t.Errorf("Expected max single operator 120, got %d", result.Cost.MaxSingleOperator)
	}
}

func TestCost_ExplainFallsBackToEstimates(t *testing.T) {
	a, _ := newTestAnalyzer(simplePlan(), nil)

	result, err := a.Analyze(context.Background(), "MATCH (n) RETURN n LIMIT 10", ModeExplain, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Cost.Basis != BasisEstimatedRows {
		t.Errorf("Expected estimated_rows basis, got %s", result.Cost.Basis)
	}
	if result.Cost.Aggregate != 20 || result.Cost.MaxSingleOperator != 10 {
		t.Errorf("Expected aggregate 20 / max 10, got %d / %d",
			result.Cost.Aggregate, result.Cost.MaxSingleOperator)
	}
}

// ============================================================================
// Recommendations
// ============================================================================

func TestRecommendations_OrderedBySeverity(t *testing.T) {
	// A plan with an expensive procedure (5), an unbounded expansion (7),
	// and an oversized unlimited result (4).
	plan := &RawPlan{
		OperatorType:  "ProduceResults",
		EstimatedRows: 50000,
		Children: []RawPlan{{
			OperatorType: "VarLengthExpand(All)",
			Arguments:    map[string]string{"expandExpression": "(a)-[:KNOWS*]->(b)"},
			Children: []RawPlan{{
				OperatorType: "ProcedureCall",
				Arguments:    map[string]string{"name": "gds.wcc.stream"},
			}},
		}},
	}
	a, _ := newTestAnalyzer(plan, nil)

	result, err := a.Analyze(context.Background(), "CALL gds.wcc.stream('g')", ModeExplain, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Recommendations) != 3 {
		t.Fatalf("Expected 3 recommendations, got %d", len(result.Recommendations))
	}
	for i := 1; i < len(result.Recommendations); i++ {
		if result.Recommendations[i].Severity > result.Recommendations[i-1].Severity {
			t.Errorf("Recommendations not sorted by severity: %d before %d",
				result.Recommendations[i-1].Severity, result.Recommendations[i].Severity)
		}
	}
	if result.Recommendations[0].Category != string(KindUnboundedExpansion) {
		t.Errorf("Expected unbounded_expansion first, got %s", result.Recommendations[0].Category)
	}
}

func TestRecommendation_MissingIndexExampleFix(t *testing.T) {
	b := Bottleneck{
		Kind:     KindMissingIndex,
		Severity: 8,
		Evidence: map[string]string{"label": "Person", "property": "email"},
	}
	recs := recommend([]Bottleneck{b})
	if len(recs) != 1 {
		t.Fatal("Expected one recommendation")
	}
	want := "CREATE INDEX FOR (n:Person) ON (n.email)"
	if recs[0].ExampleFix != want {
		t.Errorf("Expected example fix %q, got %q", want, recs[0].ExampleFix)
	}
}

// ============================================================================
// Risk tiers
// ============================================================================

func TestRiskTiers(t *testing.T) {
	cases := []struct {
		severity int
		tier     RiskTier
	}{
		{0, RiskLow}, {3, RiskLow},
		{4, RiskMedium}, {6, RiskMedium},
		{7, RiskHigh}, {10, RiskHigh},
	}
	for _, tc := range cases {
		if got := tierFor(tc.severity); got != tc.tier {
			t.Errorf("tierFor(%d) = %s, want %s", tc.severity, got, tc.tier)
		}
	}
}

func TestAnalyze_CleanPlanIsLowRisk(t *testing.T) {
	a, _ := newTestAnalyzer(simplePlan(), nil)

	result, err := a.Analyze(context.Background(), "MATCH (n) RETURN n LIMIT 10", ModeExplain, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if result.OverallSeverity != 0 || result.RiskTier != RiskLow {
		t.Errorf("Expected 0/low for a clean plan, got %d/%s", result.OverallSeverity, result.RiskTier)
	}
	if len(result.Bottlenecks) != 0 || len(result.Recommendations) != 0 {
		t.Errorf("Expected no findings, got %+v", result.Bottlenecks)
	}
}
