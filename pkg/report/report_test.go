package report

import (
	"errors"
	"strings"
	"testing"
)

func TestParseFullReport(t *testing.T) {
	raw := []byte(`{
		"overall_risk_level": "High",
		"impact_report": {"impact_score": 0.82},
		"quality_report": {"overall_score": 61.5},
		"recommendations": ["add tests", "document columns"]
	}`)
	rep, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rep.RiskLevel != "High" {
		t.Errorf("risk = %q, want High", rep.RiskLevel)
	}
	if rep.ImpactScore != 0.82 {
		t.Errorf("impact = %v, want 0.82", rep.ImpactScore)
	}
	if rep.QualityScore != 61.5 {
		t.Errorf("quality = %v, want 61.5", rep.QualityScore)
	}
	if len(rep.Recommendations) != 2 {
		t.Errorf("recommendations = %v", rep.Recommendations)
	}
}

func TestParseDefaults(t *testing.T) {
	rep, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rep.RiskLevel != RiskUnknown {
		t.Errorf("risk = %q, want %q", rep.RiskLevel, RiskUnknown)
	}
	if rep.ImpactScore != 0 || rep.QualityScore != 0 {
		t.Errorf("scores = %v/%v, want 0/0", rep.ImpactScore, rep.QualityScore)
	}
	if rep.Recommendations == nil || len(rep.Recommendations) != 0 {
		t.Errorf("recommendations = %#v, want empty non-nil slice", rep.Recommendations)
	}
}

func TestParseMissingRecommendationsIsEmptySequence(t *testing.T) {
	rep, err := Parse([]byte(`{"overall_risk_level": "Low"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rep.Recommendations == nil {
		t.Fatal("recommendations must default to an empty sequence")
	}
	if len(rep.Recommendations) != 0 {
		t.Errorf("recommendations = %v, want empty", rep.Recommendations)
	}
}

func TestParsePartialNesting(t *testing.T) {
	// impact_report present but wrong shape; quality_report absent.
	rep, err := Parse([]byte(`{"impact_report": "broken"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rep.ImpactScore != 0 {
		t.Errorf("impact = %v, want 0", rep.ImpactScore)
	}
}

func TestParseInvalidJSON(t *testing.T) {
	raw := []byte("Compiling dbt-pr-agent v0.1.0\nnot json at all")
	_, err := Parse(raw)
	if err == nil {
		t.Fatal("expected parse error")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if !strings.Contains(pe.Excerpt, "not json") {
		t.Errorf("excerpt %q should carry raw output", pe.Excerpt)
	}
}

func TestParseWrongTopLevelType(t *testing.T) {
	_, err := Parse([]byte(`["High"]`))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError for array output, got %v", err)
	}
}

func TestParseErrorExcerptTruncated(t *testing.T) {
	raw := []byte("x" + strings.Repeat("y", 2000))
	_, err := Parse(raw)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if len(pe.Excerpt) != 500 {
		t.Errorf("excerpt len = %d, want 500", len(pe.Excerpt))
	}
}

func TestKnownRiskLevel(t *testing.T) {
	for _, level := range RiskLevels {
		if !KnownRiskLevel(level) {
			t.Errorf("%q should be known", level)
		}
	}
	for _, level := range []string{"high", "Unknown", "", "Severe"} {
		if KnownRiskLevel(level) {
			t.Errorf("%q should not be known", level)
		}
	}
}
