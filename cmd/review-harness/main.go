package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dbt-review-harness/pkg/agent"
	"dbt-review-harness/pkg/console"
	"dbt-review-harness/pkg/fixtures"
	"dbt-review-harness/pkg/harness"
	"dbt-review-harness/pkg/scenario"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	loadDotEnv() // load .env file if present (gitignored)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadDotEnv reads a .env file from the working directory and sets
// any variables that aren't already set in the environment.
// Lines are KEY=VALUE (or KEY="VALUE"). Comments (#) and blanks are skipped.
// The .env file is gitignored so API keys never end up in source control.
func loadDotEnv() {
	f, err := os.Open(".env")
	if err != nil {
		return // no .env file — that's fine
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		val = strings.Trim(val, `"'`)
		// Don't overwrite existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

var rootCmd = &cobra.Command{
	Use:     "review-harness",
	Short:   "Integration test harness for the dbt PR review agent",
	Long:    "review-harness — runs fixture-backed analysis scenarios against the dbt-pr-agent binary and verifies its risk classifications.",
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

// --- run ---

var (
	runScenarioFile string
	runAgentPath    string
	runFixtureDir   string
	runJSON         bool
	runMarkdown     bool
	runReplay       string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run all scenarios against the agent and report pass/fail",
	Long: `Run the scenario suite: write the SQL fixtures, invoke the agent once
per scenario, validate each JSON report against the expected risk
classification, and print a summary.

Exit codes: 0 all scenarios passed, 1 any failure (or the agent binary
is missing), 2 the scenario file failed validation.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	scenarios, err := resolveScenarios()
	if err != nil {
		fmt.Fprintf(os.Stderr, "  %s %v\n", console.Failed(console.GlyphFailed), err)
		os.Exit(2)
	}

	client := agent.NewClient(runAgentPath)
	runner := &harness.Runner{
		Client:     client,
		Scenarios:  scenarios,
		FixtureDir: runFixtureDir,
	}
	if runJSON {
		// Keep stdout clean for the JSON document.
		runner.Out = os.Stderr
	}

	if runReplay != "" {
		rec, err := agent.LoadRecording(runReplay)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", console.Failed(console.GlyphFailed), err)
			os.Exit(2)
		}
		client.Executor = agent.NewReplayExecutor(rec)
		runner.SkipPreflight = true // replay needs no binary
	}

	output, err := runner.RunAll(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "  %s %v\n", console.Failed(console.GlyphFailed), err)
		os.Exit(1)
	}

	if runJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(output)
	}
	if runMarkdown {
		fmt.Println(console.RenderMarkdown(output.Markdown()))
	}

	if code := output.ExitCode(); code != 0 {
		os.Exit(code)
	}
	return nil
}

// resolveScenarios returns the suite to run: the built-in default set,
// or a validated scenario file when --scenarios is given.
func resolveScenarios() ([]scenario.Scenario, error) {
	dir := runFixtureDir
	if dir == "" {
		dir = fixtures.DefaultDir
	}
	if runScenarioFile == "" {
		return scenario.Defaults(dir), nil
	}

	suite, errs := scenario.ValidateFile(runScenarioFile)
	if scenario.HasErrors(errs) {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  [%s] %s: %s\n", e.Phase, e.Path, e.Message)
		}
		return nil, fmt.Errorf("scenario file validation failed with %d error(s)", len(errs))
	}
	return suite.Scenarios, nil
}

// --- list ---

var listScenarioFile string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the scenarios that run would execute",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	var scenarios []scenario.Scenario
	if listScenarioFile != "" {
		suite, errs := scenario.ValidateFile(listScenarioFile)
		if scenario.HasErrors(errs) {
			return fmt.Errorf("scenario file validation failed: %s", errs[0].Message)
		}
		scenarios = suite.Scenarios
	} else {
		scenarios = scenario.Defaults(fixtures.DefaultDir)
	}

	w := cmd.OutOrStdout()
	for i, s := range scenarios {
		fmt.Fprintf(w, "%d. %s (expected: %s)\n", i+1, s.Name, s.ExpectedRisk)
		fmt.Fprintf(w, "   %s\n", s.Description)
		fmt.Fprintf(w, "   files: %s\n", strings.Join(s.Files, ", "))
	}
	return nil
}

// --- schema ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema for scenario YAML files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := scenario.GenerateJSONSchema()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(schemaCmd)

	runCmd.Flags().StringVar(&runScenarioFile, "scenarios", "", "Scenario YAML file (default: built-in five-scenario set)")
	runCmd.Flags().StringVar(&runAgentPath, "agent", "", "Path to the dbt-pr-agent binary (default: $DBT_PR_AGENT or "+agent.DefaultBinaryPath+")")
	runCmd.Flags().StringVar(&runFixtureDir, "dir", fixtures.DefaultDir, "Directory to write SQL fixtures into")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Emit results as structured JSON on stdout")
	runCmd.Flags().BoolVar(&runMarkdown, "markdown", false, "Render a markdown summary after the run")
	runCmd.Flags().StringVar(&runReplay, "replay", "", "Replay recorded agent responses from a YAML file instead of invoking the binary")

	listCmd.Flags().StringVar(&listScenarioFile, "scenarios", "", "Scenario YAML file (default: built-in set)")
}
