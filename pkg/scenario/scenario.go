// Package scenario defines the harness test scenarios: which fixture
// files to analyze and which risk classification the agent is expected
// to return for them.
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"dbt-review-harness/pkg/report"
)

// Scenario is one analysis case: a set of changed model files and the
// risk classification the agent should assign to them. Immutable once
// defined.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description" json:"description"`

	// Files lists the model files passed to the agent, in order.
	// All files ride in a single invocation.
	Files []string `yaml:"files" json:"files"`

	// ExpectedRisk is the classification the agent must return for the
	// scenario to pass. One of Low, Medium, High, Critical.
	ExpectedRisk string `yaml:"expected_risk" json:"expected_risk"`

	// Checks holds optional boolean expressions evaluated against the
	// parsed report (risk_level, impact_score, quality_score,
	// recommendations). Every check must hold for the scenario to pass.
	Checks []string `yaml:"checks,omitempty" json:"checks,omitempty"`
}

// Suite is the top-level structure of a scenario YAML file.
type Suite struct {
	Scenarios []Scenario `yaml:"scenarios" json:"scenarios"`
}

// Defaults returns the fixed ordered scenario set over the fixtures in
// dir: four single-file cases plus one multi-file case.
func Defaults(dir string) []Scenario {
	return []Scenario{
		{
			Name:         "Breaking Schema Change",
			Description:  "Model changes column names that downstream models depend on",
			Files:        []string{filepath.Join(dir, "breaking_change.sql")},
			ExpectedRisk: report.RiskHigh,
		},
		{
			Name:         "Performance Regression",
			Description:  "Model introduces cartesian join and removes incremental logic",
			Files:        []string{filepath.Join(dir, "performance_issue.sql")},
			ExpectedRisk: report.RiskCritical,
		},
		{
			Name:         "Quality Issues",
			Description:  "Model lacks documentation and tests",
			Files:        []string{filepath.Join(dir, "undocumented_model.sql")},
			ExpectedRisk: report.RiskMedium,
		},
		{
			Name:         "Well Structured Model",
			Description:  "Model follows best practices",
			Files:        []string{filepath.Join(dir, "well_structured.sql")},
			ExpectedRisk: report.RiskLow,
		},
		{
			Name:        "Multiple Changes",
			Description: "Analyzing multiple files at once",
			Files: []string{
				filepath.Join(dir, "breaking_change.sql"),
				filepath.Join(dir, "performance_issue.sql"),
			},
			ExpectedRisk: report.RiskCritical,
		},
	}
}

// LoadFile reads a scenario suite from a YAML file. Decoding is strict:
// unknown fields are typos, not data.
func LoadFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	var suite Suite
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&suite); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}
	return &suite, nil
}
