// Package harness orchestrates the scenario pipeline: fixture
// creation, one agent invocation per scenario, result validation, and
// pass/fail aggregation with guaranteed fixture cleanup.
package harness

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"dbt-review-harness/pkg/agent"
	"dbt-review-harness/pkg/console"
	"dbt-review-harness/pkg/fixtures"
	"dbt-review-harness/pkg/report"
	"dbt-review-harness/pkg/scenario"
)

// topRecommendations bounds how many recommendations are echoed per
// scenario.
const topRecommendations = 3

// Runner drives the scenario set through the agent, strictly
// sequentially. Scenarios are independent: a failure never blocks the
// ones after it.
type Runner struct {
	Client    *agent.Client
	Scenarios []scenario.Scenario

	// FixtureDir is the scoped directory fixtures live in for the
	// duration of the run. Defaults to fixtures.DefaultDir.
	FixtureDir string

	// SkipPreflight bypasses the binary-existence check. Set for
	// replay runs, where no binary is needed.
	SkipPreflight bool

	// Out receives progress and summary text. Defaults to os.Stdout.
	// Console output is human-oriented; the machine contract is the
	// Output struct and the exit code.
	Out io.Writer
}

func (r *Runner) out() io.Writer {
	if r.Out != nil {
		return r.Out
	}
	return os.Stdout
}

// RunAll executes the whole pipeline and returns the aggregated output.
//
// Preflight failure aborts before any fixture exists: nothing is
// created, nothing is cleaned. Once fixtures are on disk, teardown runs
// on every exit path; a teardown failure is reported only after all
// scenario processing is complete, never silently swallowed.
func (r *Runner) RunAll(ctx context.Context) (output *Output, retErr error) {
	w := r.out()

	fmt.Fprintf(w, "%s\n\n", console.Header("=== dbt PR Review Agent - Integration Harness ==="))

	// Diagnostic only: which LLM credentials are visible. No effect on
	// control flow or verdicts.
	provider, found := agent.DetectCredentials()
	if found {
		fmt.Fprintf(w, "%s LLM API key found! Provider: %s\n\n", console.Passed(console.GlyphPassed), provider)
	} else {
		fmt.Fprintf(w, "%s No LLM API keys found — set %s or %s to enable AI analysis.\n",
			console.Warn(console.GlyphWarning), agent.EnvOpenAIKey, agent.EnvAnthropicKey)
		fmt.Fprintf(w, "  The agent will run in deterministic mode only.\n\n")
	}

	if !r.SkipPreflight {
		if err := r.Client.Preflight(); err != nil {
			return nil, err
		}
	}

	fmt.Fprintf(w, "Creating test SQL files...\n")
	dir, err := fixtures.Prepare(r.FixtureDir)
	if err != nil {
		if dir != "" {
			// Partial fixture state exists; best-effort cleanup, the
			// prepare error stays the primary failure.
			if terr := fixtures.Teardown(dir); terr != nil {
				fmt.Fprintf(w, "%s cleanup after failed prepare: %v\n", console.Failed(console.GlyphFailed), terr)
			}
		}
		return nil, err
	}
	defer func() {
		fmt.Fprintf(w, "\nCleaning up test files...\n")
		if terr := fixtures.Teardown(dir); terr != nil && retErr == nil {
			retErr = fmt.Errorf("fixture cleanup: %w", terr)
		}
	}()

	output = &Output{
		Agent:    r.Client.BinaryPath,
		Provider: provider,
	}

	for _, s := range r.Scenarios {
		verdict := r.runScenario(ctx, s)
		output.Scenarios = append(output.Scenarios, verdict)
		output.Summary.Total++
		if verdict.Passed {
			output.Summary.Passed++
		} else {
			output.Summary.Failed++
		}
	}

	r.printSummary(output)
	return output, nil
}

// runScenario executes one scenario: exactly one agent invocation,
// validated against the expected classification and any extra checks.
func (r *Runner) runScenario(ctx context.Context, s scenario.Scenario) Verdict {
	w := r.out()
	start := time.Now()

	banner := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\n", console.Header(banner))
	fmt.Fprintf(w, "%s\n", console.Scenario("Scenario: "+s.Name))
	fmt.Fprintf(w, "Description: %s\n", s.Description)
	fmt.Fprintf(w, "Files: %s\n", strings.Join(s.Files, ", "))
	fmt.Fprintf(w, "Expected Risk: %s\n", s.ExpectedRisk)
	fmt.Fprintf(w, "%s\n\n", console.Header(banner))

	verdict := Verdict{
		Scenario:     s.Name,
		ExpectedRisk: s.ExpectedRisk,
	}

	argv := append([]string{r.Client.BinaryPath}, r.Client.Args(s.Files, s.Name)...)
	fmt.Fprintf(w, "%s\n", console.Command("Running: "+strings.Join(argv, " ")))

	res, err := r.Client.Analyze(ctx, s.Files, s.Name)
	if err != nil {
		// The process could not run at all (or replay had no match).
		// A failed scenario, not a harness crash.
		verdict.Reason = err.Error()
		verdict.DurationMs = time.Since(start).Milliseconds()
		fmt.Fprintf(w, "%s %s\n", console.Failed(console.GlyphFailed), verdict.Reason)
		return verdict
	}

	v := report.Validate(res, s.ExpectedRisk)
	verdict.ActualRisk = v.ActualRisk
	verdict.Report = v.Report
	verdict.Reason = v.Reason

	if v.Report != nil {
		r.printReport(v.Report)
	}

	if !v.Passed {
		verdict.DurationMs = time.Since(start).Milliseconds()
		fmt.Fprintf(w, "\n%s %s\n", console.Failed(console.GlyphFailed), v.Reason)
		return verdict
	}

	// Extra checks run only once the risk level matched.
	if len(s.Checks) > 0 {
		verdict.Checks = scenario.EvaluateChecks(s.Checks, v.Report)
		if scenario.ChecksFailed(verdict.Checks) {
			for _, c := range verdict.Checks {
				if !c.Passed {
					fmt.Fprintf(w, "%s check failed: %s\n", console.Failed(console.GlyphFailed), c.Message)
					if verdict.Reason == "" {
						verdict.Reason = c.Message
					}
				}
			}
			verdict.DurationMs = time.Since(start).Milliseconds()
			return verdict
		}
	}

	verdict.Passed = true
	verdict.DurationMs = time.Since(start).Milliseconds()
	fmt.Fprintf(w, "\n%s Risk assessment matches expected: %s\n",
		console.Passed(console.GlyphPassed), v.ActualRisk)
	return verdict
}

// printReport echoes the extracted report fields. Diagnostic only —
// not part of the pass/fail contract.
func (r *Runner) printReport(rep *report.Report) {
	w := r.out()
	fmt.Fprintf(w, "Risk Level: %s\n", rep.RiskLevel)
	fmt.Fprintf(w, "Impact Score: %.2f\n", rep.ImpactScore)
	fmt.Fprintf(w, "Quality Score: %.1f%%\n", rep.QualityScore)
	fmt.Fprintf(w, "Recommendations: %d\n", len(rep.Recommendations))

	if len(rep.Recommendations) > 0 {
		fmt.Fprintf(w, "\n%s\n", console.Scenario("Top Recommendations:"))
		for i, rec := range rep.Recommendations {
			if i == topRecommendations {
				break
			}
			fmt.Fprintf(w, "%d. %s\n", i+1, rec)
		}
	}
}

func (r *Runner) printSummary(output *Output) {
	w := r.out()
	banner := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\n", console.Header(banner))
	fmt.Fprintf(w, "%s\n", console.Scenario("Test Summary"))
	fmt.Fprintf(w, "%s\n\n", console.Header(banner))

	for _, v := range output.Scenarios {
		if v.Passed {
			fmt.Fprintf(w, "%s - %s\n", console.Passed(console.GlyphPassed+" PASS"), v.Scenario)
		} else {
			fmt.Fprintf(w, "%s - %s\n", console.Failed(console.GlyphFailed+" FAIL"), v.Scenario)
			if v.Reason != "" {
				fmt.Fprintf(w, "      %s\n", console.Dim(v.Reason))
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", console.Scenario(
		fmt.Sprintf("Total: %d/%d passed", output.Summary.Passed, output.Summary.Total)))
}
