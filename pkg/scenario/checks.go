package scenario

import (
	"fmt"

	"github.com/expr-lang/expr"

	"dbt-review-harness/pkg/report"
)

// CheckResult is the outcome of evaluating a single check expression
// against a parsed report.
type CheckResult struct {
	Expr    string `json:"expr"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// checkEnv builds the expression environment exposed to checks.
func checkEnv(rep *report.Report) map[string]interface{} {
	return map[string]interface{}{
		"risk_level":      rep.RiskLevel,
		"impact_score":    rep.ImpactScore,
		"quality_score":   rep.QualityScore,
		"recommendations": rep.Recommendations,
	}
}

// CompileCheck verifies that a check expression compiles against the
// report environment and yields a boolean. Used during validation so
// broken expressions surface before any scenario runs.
func CompileCheck(check string) error {
	env := checkEnv(&report.Report{Recommendations: []string{}})
	if _, err := expr.Compile(check, expr.Env(env), expr.AsBool()); err != nil {
		return fmt.Errorf("compile check %q: %w", check, err)
	}
	return nil
}

// EvaluateChecks runs every check expression against the parsed report.
// Checks are diagnostic extras on top of the risk-level equality rule;
// a failing check fails the scenario with the expression named.
func EvaluateChecks(checks []string, rep *report.Report) []CheckResult {
	env := checkEnv(rep)
	results := make([]CheckResult, 0, len(checks))
	for _, check := range checks {
		program, err := expr.Compile(check, expr.Env(env), expr.AsBool())
		if err != nil {
			results = append(results, CheckResult{
				Expr:    check,
				Message: fmt.Sprintf("compile: %v", err),
			})
			continue
		}
		output, err := expr.Run(program, env)
		if err != nil {
			results = append(results, CheckResult{
				Expr:    check,
				Message: fmt.Sprintf("eval: %v", err),
			})
			continue
		}
		passed, ok := output.(bool)
		if !ok {
			results = append(results, CheckResult{
				Expr:    check,
				Message: fmt.Sprintf("check did not return bool (got %T)", output),
			})
			continue
		}
		r := CheckResult{Expr: check, Passed: passed}
		if !passed {
			r.Message = fmt.Sprintf("check %q is false for this report", check)
		}
		results = append(results, r)
	}
	return results
}

// ChecksFailed returns true if any check in the slice did not pass.
func ChecksFailed(results []CheckResult) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
