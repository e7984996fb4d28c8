package harness

import (
	"fmt"
	"strings"

	"dbt-review-harness/pkg/report"
	"dbt-review-harness/pkg/scenario"
)

// Verdict captures the outcome of running one scenario. Never mutated
// after creation; the final list holds one verdict per defined
// scenario, in definition order.
type Verdict struct {
	Scenario     string                 `json:"scenario"`
	Passed       bool                   `json:"passed"`
	ExpectedRisk string                 `json:"expected_risk"`
	ActualRisk   string                 `json:"actual_risk,omitempty"`
	DurationMs   int64                  `json:"duration_ms"`
	Reason       string                 `json:"reason,omitempty"`
	Report       *report.Report         `json:"report,omitempty"`
	Checks       []scenario.CheckResult `json:"checks,omitempty"`
}

// Summary aggregates verdicts across scenarios.
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Output is the top-level structure for a whole harness run, emitted
// as-is by run --json.
type Output struct {
	Agent     string    `json:"agent"`
	Provider  string    `json:"provider,omitempty"` // detected LLM credential provider
	Scenarios []Verdict `json:"scenarios"`
	Summary   Summary   `json:"summary"`
}

// AllPassed reports whether every scenario passed.
func (o *Output) AllPassed() bool {
	return o.Summary.Failed == 0 && o.Summary.Total > 0
}

// ExitCode derives the process exit status: 0 iff every scenario
// passed, 1 otherwise.
func (o *Output) ExitCode() int {
	if o.AllPassed() {
		return 0
	}
	return 1
}

// Markdown renders the run as a markdown summary, suitable for glamour
// or for pasting into a PR comment.
func (o *Output) Markdown() string {
	var b strings.Builder
	b.WriteString("# dbt PR Review Harness\n\n")
	fmt.Fprintf(&b, "Agent: `%s`\n\n", o.Agent)
	b.WriteString("| Scenario | Expected | Actual | Result |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, v := range o.Scenarios {
		result := "PASS"
		if !v.Passed {
			result = "FAIL"
		}
		actual := v.ActualRisk
		if actual == "" {
			actual = "n/a"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", v.Scenario, v.ExpectedRisk, actual, result)
	}
	fmt.Fprintf(&b, "\n**%d/%d passed**\n", o.Summary.Passed, o.Summary.Total)
	for _, v := range o.Scenarios {
		if !v.Passed && v.Reason != "" {
			fmt.Fprintf(&b, "\n- `%s`: %s\n", v.Scenario, v.Reason)
		}
	}
	return b.String()
}
