// Package report parses and validates the JSON analysis report emitted
// by dbt-pr-agent. The agent's scoring is opaque; this package only
// enforces the output contract and compares risk levels.
package report

import (
	"encoding/json"
	"fmt"
)

// Known risk levels, as emitted by the agent.
const (
	RiskLow      = "Low"
	RiskMedium   = "Medium"
	RiskHigh     = "High"
	RiskCritical = "Critical"

	// RiskUnknown is substituted when the report omits the field.
	RiskUnknown = "Unknown"
)

// RiskLevels lists the four classifications a scenario may expect.
var RiskLevels = []string{RiskLow, RiskMedium, RiskHigh, RiskCritical}

// KnownRiskLevel reports whether level is one of the four classifications.
func KnownRiskLevel(level string) bool {
	for _, l := range RiskLevels {
		if l == level {
			return true
		}
	}
	return false
}

// Report is the extracted view of one agent analysis.
// Optional fields carry their stated defaults when absent.
type Report struct {
	RiskLevel       string   `json:"risk_level"`      // default "Unknown"
	ImpactScore     float64  `json:"impact_score"`    // default 0
	QualityScore    float64  `json:"quality_score"`   // default 0
	Recommendations []string `json:"recommendations"` // default empty
}

// excerptLen bounds the raw-output excerpt attached to parse errors.
const excerptLen = 500

// ParseError reports unparsable agent output together with a truncated
// excerpt of the raw text for diagnosis.
type ParseError struct {
	Err     error
	Excerpt string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse analysis output: %v (raw output: %s)", e.Err, e.Excerpt)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse extracts a Report from the agent's stdout. Missing optional
// keys default rather than fail; anything that is not a JSON object is
// a *ParseError carrying a raw excerpt.
func Parse(raw []byte) (*Report, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ParseError{Err: err, Excerpt: excerpt(raw)}
	}
	obj, ok := doc.(map[string]interface{})
	if !ok {
		return nil, &ParseError{
			Err:     fmt.Errorf("expected JSON object, got %T", doc),
			Excerpt: excerpt(raw),
		}
	}

	return &Report{
		RiskLevel:       stringField(obj, "overall_risk_level", RiskUnknown),
		ImpactScore:     nestedScore(obj, "impact_report", "impact_score"),
		QualityScore:    nestedScore(obj, "quality_report", "overall_score"),
		Recommendations: stringList(obj, "recommendations"),
	}, nil
}

// excerpt returns the first excerptLen characters of raw output.
func excerpt(raw []byte) string {
	if len(raw) > excerptLen {
		return string(raw[:excerptLen])
	}
	return string(raw)
}

func stringField(obj map[string]interface{}, key, def string) string {
	if v, ok := obj[key].(string); ok {
		return v
	}
	return def
}

// nestedScore reads obj[outer][inner] as a number, defaulting to 0 when
// either level is absent or not the expected shape.
func nestedScore(obj map[string]interface{}, outer, inner string) float64 {
	nested, ok := obj[outer].(map[string]interface{})
	if !ok {
		return 0
	}
	v, ok := nested[inner].(float64)
	if !ok {
		return 0
	}
	return v
}

func stringList(obj map[string]interface{}, key string) []string {
	items, ok := obj[key].([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
