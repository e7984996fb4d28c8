// Package agent wraps the dbt-pr-agent binary behind a narrow
// invocation contract: build an argument vector, run one child process,
// capture stdout/stderr/exit code. The agent's risk scoring is opaque;
// only its CLI and JSON output contract matter here.
package agent

import (
	"context"
	"fmt"
	"os"
)

// DefaultBinaryPath is where a release build of the agent lands,
// relative to the working directory.
const DefaultBinaryPath = "./target/release/dbt-pr-agent"

// Author is the synthetic PR author passed on every invocation.
const Author = "test-bot"

// Client invokes the dbt-pr-agent binary.
type Client struct {
	// BinaryPath is the agent executable. Resolution order:
	// explicit value → DBT_PR_AGENT env → DefaultBinaryPath.
	BinaryPath string

	// Executor runs the child process. Swap for a ReplayExecutor to
	// drive the harness without the binary.
	Executor CommandExecutor
}

// NewClient builds a client with the given binary path, falling back to
// the DBT_PR_AGENT environment variable and then the default path.
func NewClient(binaryPath string) *Client {
	path := firstOf(binaryPath, os.Getenv("DBT_PR_AGENT"), DefaultBinaryPath)
	return &Client{
		BinaryPath: path,
		Executor:   &RealExecutor{},
	}
}

// firstOf returns the first non-empty string from the arguments.
func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Args builds the analyze-local argument vector for one invocation.
// All file paths ride in a single --files flag, ahead of the fixed
// trailing flags.
func (c *Client) Args(files []string, title string) []string {
	args := []string{"analyze-local", "--files"}
	args = append(args, files...)
	args = append(args,
		"--output", "json",
		"--author", Author,
		"--title", fmt.Sprintf("Test: %s", title),
	)
	return args
}

// Preflight verifies the agent binary exists before any scenario runs.
// The returned error carries the build instruction.
func (c *Client) Preflight() error {
	if _, err := os.Stat(c.BinaryPath); err != nil {
		return fmt.Errorf("dbt-pr-agent binary not found at %s (run: cargo build --release)", c.BinaryPath)
	}
	return nil
}

// Analyze runs the agent once over the given files. Exactly one child
// process is spawned per call; a non-zero exit status comes back in the
// result, not as an error.
func (c *Client) Analyze(ctx context.Context, files []string, title string) (*CommandResult, error) {
	return c.Executor.Execute(ctx, c.BinaryPath, c.Args(files, title), nil)
}

// Credential environment variables checked by DetectCredentials.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
)

// DetectCredentials reports which LLM provider keys are present in the
// environment. Diagnostic only: the agent decides on its own whether to
// use them, the harness just adjusts its banner.
func DetectCredentials() (provider string, found bool) {
	if os.Getenv(EnvOpenAIKey) != "" {
		return "OpenAI", true
	}
	if os.Getenv(EnvAnthropicKey) != "" {
		return "Anthropic", true
	}
	return "", false
}
