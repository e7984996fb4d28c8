package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dbt-review-harness/pkg/agent"
	"dbt-review-harness/pkg/scenario"
)

// scriptedExecutor returns canned results in call order and records
// every argv it receives.
type scriptedExecutor struct {
	results []*agent.CommandResult
	calls   [][]string
}

func (s *scriptedExecutor) Execute(ctx context.Context, command string, args []string, env []string) (*agent.CommandResult, error) {
	s.calls = append(s.calls, append([]string{command}, args...))
	if len(s.calls) > len(s.results) {
		return nil, fmt.Errorf("no scripted result for call %d", len(s.calls))
	}
	return s.results[len(s.calls)-1], nil
}

func jsonResult(risk string) *agent.CommandResult {
	return &agent.CommandResult{
		Stdout: []byte(fmt.Sprintf(`{"overall_risk_level": %q, "recommendations": []}`, risk)),
	}
}

func newRunner(t *testing.T, exec agent.CommandExecutor, scenarios []scenario.Scenario) (*Runner, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "test_models")
	return &Runner{
		Client:        &agent.Client{BinaryPath: "./agent", Executor: exec},
		Scenarios:     scenarios,
		FixtureDir:    dir,
		SkipPreflight: true,
		Out:           &bytes.Buffer{},
	}, dir
}

func TestRunAllVerdictPerScenarioInOrder(t *testing.T) {
	exec := &scriptedExecutor{results: []*agent.CommandResult{
		jsonResult("High"),
		jsonResult("Critical"),
		jsonResult("Medium"),
		jsonResult("Low"),
		jsonResult("Critical"),
	}}
	r, dir := newRunner(t, exec, scenario.Defaults("test_models"))

	output, err := r.RunAll(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(output.Scenarios) != 5 {
		t.Fatalf("verdicts = %d, want 5", len(output.Scenarios))
	}
	for i, s := range scenario.Defaults("test_models") {
		if output.Scenarios[i].Scenario != s.Name {
			t.Errorf("verdict %d = %q, want %q", i, output.Scenarios[i].Scenario, s.Name)
		}
		if !output.Scenarios[i].Passed {
			t.Errorf("scenario %q failed: %s", s.Name, output.Scenarios[i].Reason)
		}
	}
	if output.ExitCode() != 0 {
		t.Errorf("exit code = %d, want 0", output.ExitCode())
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("fixture directory left behind after run")
	}
}

func TestRunAllSingleFailureFailsRun(t *testing.T) {
	exec := &scriptedExecutor{results: []*agent.CommandResult{
		jsonResult("High"),
		jsonResult("Medium"), // expected Critical — fail
		jsonResult("Medium"),
		jsonResult("Low"),
		jsonResult("Critical"),
	}}
	r, _ := newRunner(t, exec, scenario.Defaults("test_models"))

	output, err := r.RunAll(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if output.Summary.Passed != 4 || output.Summary.Failed != 1 {
		t.Errorf("summary = %+v, want 4 passed / 1 failed", output.Summary)
	}
	if output.ExitCode() != 1 {
		t.Errorf("exit code = %d, want 1 even with four of five passing", output.ExitCode())
	}

	failed := output.Scenarios[1]
	if failed.Passed {
		t.Fatal("mismatched scenario must fail")
	}
	if !strings.Contains(failed.Reason, "Critical") || !strings.Contains(failed.Reason, "Medium") {
		t.Errorf("reason %q should show both expected and actual", failed.Reason)
	}
	// No short-circuit: all five scenarios ran.
	if len(exec.calls) != 5 {
		t.Errorf("agent invoked %d times, want 5", len(exec.calls))
	}
}

func TestRunAllMultiFileScenarioSingleInvocation(t *testing.T) {
	exec := &scriptedExecutor{results: []*agent.CommandResult{jsonResult("Critical")}}
	multi := scenario.Defaults("test_models")[4]
	r, _ := newRunner(t, exec, []scenario.Scenario{multi})

	if _, err := r.RunAll(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("agent invoked %d times, want exactly 1", len(exec.calls))
	}
	argv := strings.Join(exec.calls[0], " ")
	if !strings.Contains(argv, "breaking_change.sql") || !strings.Contains(argv, "performance_issue.sql") {
		t.Errorf("argv %q should carry both paths in one --files flag", argv)
	}
}

func TestRunAllExecutorErrorIsFailedScenarioNotCrash(t *testing.T) {
	exec := &scriptedExecutor{} // no results: every call errors
	r, dir := newRunner(t, exec, scenario.Defaults("test_models")[:2])

	output, err := r.RunAll(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if output.Summary.Failed != 2 {
		t.Errorf("failed = %d, want 2", output.Summary.Failed)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("cleanup must run even when every scenario fails")
	}
}

func TestRunAllPreflightAbortCreatesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "test_models")
	r := &Runner{
		Client:     agent.NewClient(filepath.Join(t.TempDir(), "missing-binary")),
		Scenarios:  scenario.Defaults(dir),
		FixtureDir: dir,
		Out:        &bytes.Buffer{},
	}
	_, err := r.RunAll(context.Background())
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	if !strings.Contains(err.Error(), "cargo build --release") {
		t.Errorf("error %q missing build instruction", err)
	}
	if _, serr := os.Stat(dir); !os.IsNotExist(serr) {
		t.Error("preflight abort must not create fixtures")
	}
}

func TestRunAllIsIdempotent(t *testing.T) {
	scenarios := scenario.Defaults("test_models")[:1]
	for i := 0; i < 2; i++ {
		exec := &scriptedExecutor{results: []*agent.CommandResult{jsonResult("High")}}
		r, dir := newRunner(t, exec, scenarios)
		if _, err := r.RunAll(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("run %d left fixture directory behind", i)
		}
	}
}

func TestRunScenarioNonZeroExitSurfacesStderr(t *testing.T) {
	exec := &scriptedExecutor{results: []*agent.CommandResult{
		{Stderr: []byte("model file not found"), ExitCode: 2},
	}}
	r, _ := newRunner(t, exec, scenario.Defaults("test_models")[:1])

	output, err := r.RunAll(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	v := output.Scenarios[0]
	if v.Passed {
		t.Fatal("non-zero exit must fail")
	}
	if v.Report != nil {
		t.Error("stdout must not be parsed on non-zero exit")
	}
	if !strings.Contains(v.Reason, "model file not found") {
		t.Errorf("reason %q should surface stderr", v.Reason)
	}
}

func TestRunScenarioChecksGateThePass(t *testing.T) {
	exec := &scriptedExecutor{results: []*agent.CommandResult{
		{Stdout: []byte(`{"overall_risk_level": "High", "impact_report": {"impact_score": 0.2}}`)},
	}}
	s := scenario.Scenario{
		Name:         "checked",
		Description:  "risk matches but impact too low",
		Files:        []string{"test_models/breaking_change.sql"},
		ExpectedRisk: "High",
		Checks:       []string{"impact_score >= 0.5"},
	}
	r, _ := newRunner(t, exec, []scenario.Scenario{s})

	output, err := r.RunAll(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	v := output.Scenarios[0]
	if v.Passed {
		t.Fatal("failing check must fail the scenario")
	}
	if len(v.Checks) != 1 || v.Checks[0].Passed {
		t.Errorf("checks = %+v", v.Checks)
	}
}

func TestOutputMarkdown(t *testing.T) {
	output := &Output{
		Agent: "./agent",
		Scenarios: []Verdict{
			{Scenario: "a", Passed: true, ExpectedRisk: "Low", ActualRisk: "Low"},
			{Scenario: "b", ExpectedRisk: "High", ActualRisk: "Medium", Reason: `expected risk "High", got "Medium"`},
		},
		Summary: Summary{Total: 2, Passed: 1, Failed: 1},
	}
	md := output.Markdown()
	for _, want := range []string{"| a | Low | Low | PASS |", "| b | High | Medium | FAIL |", "**1/2 passed**"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestOutputExitCodeEmptyRun(t *testing.T) {
	output := &Output{}
	if output.ExitCode() != 1 {
		t.Error("a run with zero scenarios must not report success")
	}
}
