package agent

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RecordedCommand is one pre-recorded agent response.
type RecordedCommand struct {
	// Argv is the full command line to match, executable included.
	// An empty Argv matches any invocation (wildcard entry).
	Argv     []string `yaml:"argv,omitempty"`
	Stdout   string   `yaml:"stdout"`
	Stderr   string   `yaml:"stderr,omitempty"`
	ExitCode int      `yaml:"exit_code,omitempty"`
}

// Recording holds pre-recorded agent responses for replay runs.
type Recording struct {
	Commands []RecordedCommand `yaml:"commands"`
}

// LoadRecording reads and strictly parses a replay recording YAML file.
func LoadRecording(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recording file: %w", err)
	}
	var rec Recording
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&rec); err != nil {
		return nil, fmt.Errorf("parse recording YAML: %w", err)
	}
	if len(rec.Commands) == 0 {
		return nil, fmt.Errorf("recording has no commands")
	}
	return &rec, nil
}

// ReplayExecutor implements CommandExecutor by matching commands against
// pre-recorded entries. Fail-closed: returns an error if no match.
type ReplayExecutor struct {
	recording *Recording
	used      []bool
}

// NewReplayExecutor creates a ReplayExecutor from a loaded recording.
func NewReplayExecutor(rec *Recording) *ReplayExecutor {
	return &ReplayExecutor{
		recording: rec,
		used:      make([]bool, len(rec.Commands)),
	}
}

// Execute matches command+args against recorded entries and returns the
// pre-recorded response. Each entry is consumed at most once.
func (r *ReplayExecutor) Execute(ctx context.Context, command string, args []string, env []string) (*CommandResult, error) {
	fullArgv := append([]string{command}, args...)

	for i, rc := range r.recording.Commands {
		if r.used[i] {
			continue
		}
		if len(rc.Argv) != 0 && !argvMatch(fullArgv, rc.Argv) {
			continue
		}
		r.used[i] = true
		return &CommandResult{
			Stdout:   []byte(rc.Stdout),
			Stderr:   []byte(rc.Stderr),
			ExitCode: rc.ExitCode,
		}, nil
	}

	return nil, fmt.Errorf("replay: no matching entry for command: %s", strings.Join(fullArgv, " "))
}

// argvMatch returns true if the two argv slices are identical.
func argvMatch(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i := range actual {
		if actual[i] != expected[i] {
			return false
		}
	}
	return true
}
