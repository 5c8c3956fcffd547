package calculator

import (
	"errors"
	"testing"

	"rfm-segments/pkg/models"
)

func defaultClassifier(t *testing.T, records ...models.RFMRecord) *Classifier {
	t.Helper()
	th, err := ComputeThresholds(records, []float64{0.25, 0.5, 0.75}, models.Linear)
	if err != nil {
		t.Fatalf("thresholds: %v", err)
	}
	c, err := NewClassifier(models.DefaultRules(), th)
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	return c
}

func TestClassify_HighValueScenario(t *testing.T) {
	top := rfm("C", 10, 6, "900")
	c := defaultClassifier(t, rfm("A", 100, 1, "100"), rfm("B", 50, 2, "500"), top)
	if !c.Thresholds().MonetaryQ75().Equal(dec("700")) {
		t.Fatalf("Q75 = %s, want 700", c.Thresholds().MonetaryQ75())
	}
	if got := c.Classify(top); got != models.HighValue {
		t.Fatalf("got %q, want %q", got, models.HighValue)
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	// Satisfies both High Value and Medium Value predicates.
	both := rfm("X", 5, 10, "1000")
	c := defaultClassifier(t, rfm("A", 1, 1, "10"), rfm("B", 1, 1, "20"), both)
	if got := c.Classify(both); got != models.HighValue {
		t.Fatalf("got %q, want %q (priority order)", got, models.HighValue)
	}
}

func TestClassify_MediumAndLow(t *testing.T) {
	pop := []models.RFMRecord{
		rfm("A", 200, 1, "10"),
		rfm("B", 45, 4, "600"),
		rfm("C", 20, 2, "300"),
		rfm("D", 10, 8, "900"),
	}
	c := defaultClassifier(t, pop...)
	if got := c.Classify(pop[1]); got != models.MediumValue {
		t.Fatalf("B: got %q, want %q", got, models.MediumValue)
	}
	if got := c.Classify(pop[0]); got != models.LowValue {
		t.Fatalf("A: got %q, want %q", got, models.LowValue)
	}
}

func TestClassify_FallbackRegular(t *testing.T) {
	// Recent but infrequent: no rule matches.
	r := rfm("A", 5, 1, "500")
	c := defaultClassifier(t, r, rfm("B", 5, 1, "400"))
	if got := c.Classify(r); got != models.Regular {
		t.Fatalf("got %q, want %q", got, models.Regular)
	}
}

func TestClassify_SingleCustomerTies(t *testing.T) {
	r := rfm("A", 10, 6, "900")
	c := defaultClassifier(t, r)
	// Monetary equals every percentile, so the strict "> Q75" cannot hold.
	if got := c.Classify(r); got != models.Regular {
		t.Fatalf("got %q, want %q", got, models.Regular)
	}
}

func TestNewClassifier_MissingPercentile(t *testing.T) {
	th, _ := ComputeThresholds([]models.RFMRecord{rfm("A", 1, 1, "1")}, []float64{0.5}, models.Linear)
	rules := []models.Rule{{Segment: models.HighValue, Conditions: []models.Condition{
		models.Quant(models.Monetary, models.Greater, 0.9),
	}}}
	_, err := NewClassifier(rules, th)
	var cfgErr *models.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestNewClassifier_InvalidRule(t *testing.T) {
	rules := []models.Rule{{Segment: "VIP", Conditions: []models.Condition{models.Abs(models.Recency, models.Less, 1)}}}
	if _, err := NewClassifier(rules, models.SegmentThresholds{}); err == nil {
		t.Fatal("expected error for unknown segment label")
	}
	rules = []models.Rule{{Segment: models.HighValue, Conditions: []models.Condition{{Metric: "age", Op: models.Less}}}}
	if _, err := NewClassifier(rules, models.SegmentThresholds{}); err == nil {
		t.Fatal("expected error for unknown metric")
	}
}

func TestIsChurn(t *testing.T) {
	if IsChurn(rfm("A", 90, 1, "1"), 90) {
		t.Fatal("recency equal to the window is not churn")
	}
	if !IsChurn(rfm("A", 91, 1, "1"), 90) {
		t.Fatal("recency beyond the window is churn")
	}
}
