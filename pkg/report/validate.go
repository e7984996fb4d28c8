package report

import (
	"fmt"
	"strings"

	"dbt-review-harness/pkg/agent"
)

// Validation is the outcome of checking one agent run against an
// expected risk classification.
type Validation struct {
	Passed       bool    `json:"passed"`
	ExpectedRisk string  `json:"expected_risk"`
	ActualRisk   string  `json:"actual_risk,omitempty"`
	Report       *Report `json:"report,omitempty"`
	// Reason explains a failure: agent stderr for non-zero exits, the
	// parse error for malformed output, or the risk mismatch.
	Reason string `json:"reason,omitempty"`
}

// Validate checks an execution result against the expected risk level.
//
// Order matters: a non-zero exit fails immediately with the agent's
// stderr and no parse attempt; unparsable output fails with a raw
// excerpt; a parsed report passes iff the risk level matches exactly
// (case-sensitive, no normalization).
func Validate(res *agent.CommandResult, expectedRisk string) *Validation {
	v := &Validation{ExpectedRisk: expectedRisk}

	if res.ExitCode != 0 {
		v.Reason = fmt.Sprintf("agent exited with code %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr)))
		return v
	}

	rep, err := Parse(res.Stdout)
	if err != nil {
		v.Reason = err.Error()
		return v
	}
	v.Report = rep
	v.ActualRisk = rep.RiskLevel

	if rep.RiskLevel != expectedRisk {
		v.Reason = fmt.Sprintf("expected risk %q, got %q", expectedRisk, rep.RiskLevel)
		return v
	}

	v.Passed = true
	return v
}
