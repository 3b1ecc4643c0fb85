package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	cfg := DefaultConfig()
	return NewCollector(cfg, prometheus.NewRegistry())
}

func counterValue(t *testing.T, c *Collector, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			if labelsMatch(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	got := make(map[string]string)
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range labels {
		if got[k] != v {
			return false
		}
	}
	return true
}

// ============================================================================
// Recording
// ============================================================================

func TestCollector_RecordsRequestOutcomes(t *testing.T) {
	c := newTestCollector(t)

	c.RecordRequest("execute_query", "completed", 10*time.Millisecond)
	c.RecordRequest("execute_query", "rejected", time.Millisecond)
	c.RecordRequest("execute_query", "completed", 20*time.Millisecond)

	got := counterValue(t, c, "kronos_cerberus_requests_total",
		map[string]string{"operation": "execute_query", "outcome": "completed"})
	if got != 2 {
		t.Errorf("Expected 2 completed requests, got %v", got)
	}
}

func TestCollector_RecordsVerdicts(t *testing.T) {
	c := newTestCollector(t)

	c.RecordVerdict(false, "invisible_character")
	c.RecordVerdict(true, "")

	rejected := counterValue(t, c, "kronos_cerberus_sanitizer_verdicts_total",
		map[string]string{"outcome": "rejected", "reason_code": "invisible_character"})
	if rejected != 1 {
		t.Errorf("Expected 1 rejection, got %v", rejected)
	}
	allowed := counterValue(t, c, "kronos_cerberus_sanitizer_verdicts_total",
		map[string]string{"outcome": "allowed", "reason_code": "none"})
	if allowed != 1 {
		t.Errorf("Expected empty reason to normalize to none, got %v", allowed)
	}
}

func TestCollector_RecordsAdmissionAndAnalysis(t *testing.T) {
	c := newTestCollector(t)

	c.RecordAdmission("execute_query", false)
	c.RecordAnalysis("explain", "high", 40*time.Millisecond)
	c.RecordBottleneck("cartesian_product")

	denied := counterValue(t, c, "kronos_cerberus_admission_decisions_total",
		map[string]string{"operation": "execute_query", "decision": "denied"})
	if denied != 1 {
		t.Errorf("Expected 1 denial, got %v", denied)
	}
	analyses := counterValue(t, c, "kronos_cerberus_analysis_total",
		map[string]string{"mode": "explain", "risk_tier": "high"})
	if analyses != 1 {
		t.Errorf("Expected 1 analysis, got %v", analyses)
	}
}

func TestCollector_DisabledRecordsNothing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	c := NewCollector(cfg, prometheus.NewRegistry())

	c.RecordRequest("execute_query", "completed", time.Millisecond)
	got := counterValue(t, c, "kronos_cerberus_requests_total",
		map[string]string{"operation": "execute_query", "outcome": "completed"})
	if got != 0 {
		t.Errorf("Expected no recording when disabled, got %v", got)
	}
}

// ============================================================================
// Scrape handler
// ============================================================================

func TestCollector_HandlerServesMetrics(t *testing.T) {
	c := newTestCollector(t)
	c.RecordRequest("execute_query", "completed", time.Millisecond)
	c.RecordComplexity(7)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("Expected 200 from the metrics handler, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "kronos_cerberus_requests_total") {
		t.Error("Expected the request counter in scrape output")
	}
	if !strings.Contains(body, "kronos_cerberus_complexity_score") {
		t.Error("Expected the complexity histogram in scrape output")
	}
}
