// Package advisor asks the claude CLI for an advisory suitability hint on a
// work item. Hints only nudge the risk score within the policy's bound; the
// planner works the same without them.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"text/template"
	"time"

	"github.com/Iron-Ham/workplan/internal/risk"
	"github.com/Iron-Ham/workplan/internal/workitem"
)

// DefaultTimeout bounds a single hint request.
const DefaultTimeout = 60 * time.Second

// HintPrompt is the prompt sent for each item.
const HintPrompt = `You are reviewing a backlog work item before it is handed to an autonomous coding agent.

## Work Item {{.ID}}: {{.Title}}

Type: {{.Type}}
State: {{.State}}
{{- if .Tags}}
Tags: {{join .Tags ", "}}
{{- end}}

### Description
{{if .Description}}{{.Description}}{{else}}(none){{end}}

### Acceptance Criteria
{{if .AcceptanceCriteria}}{{.AcceptanceCriteria}}{{else}}(none){{end}}

## Instructions

Judge how risky it would be for an agent to complete this item without human guidance.
Respond with a JSON object:
- "delta": integer from -15 (clearly safe) to 15 (clearly risky)
- "note": one sentence explaining the judgement

Respond ONLY with valid JSON. Do not include any text before or after the JSON object.
`

var promptTemplate = template.Must(template.New("hint").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(HintPrompt))

// CommandExecutor runs a command and returns its standard output.
type CommandExecutor func(ctx context.Context, name string, args ...string) ([]byte, error)

// commandWaitDelay caps how long a canceled claude run may keep its pipes open.
const commandWaitDelay = 5 * time.Second

var defaultExecutor CommandExecutor = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return newCommand(ctx, name, args...).Output()
}

func newCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = commandWaitDelay
	return cmd
}

// Advisor implements risk.HintProvider with the claude CLI.
type Advisor struct {
	command  string
	timeout  time.Duration
	executor CommandExecutor
}

// New creates an Advisor running command (default "claude").
func New(command string, timeout time.Duration) *Advisor {
	return NewWithExecutor(command, timeout, defaultExecutor)
}

// NewWithExecutor creates an Advisor with a custom executor for testing.
func NewWithExecutor(command string, timeout time.Duration, executor CommandExecutor) *Advisor {
	if command == "" {
		command = "claude"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Advisor{command: command, timeout: timeout, executor: executor}
}

// Hint asks for an opinion on item.
func (a *Advisor) Hint(ctx context.Context, item workitem.WorkItem) (risk.Hint, error) {
	prompt, err := BuildPrompt(item)
	if err != nil {
		return risk.Hint{}, fmt.Errorf("failed to build hint prompt: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	output, err := a.executor(ctx, a.command, "--print", prompt)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return risk.Hint{}, fmt.Errorf("claude command failed: %w\nstderr: %s", err, string(exitErr.Stderr))
		}
		return risk.Hint{}, fmt.Errorf("failed to run claude: %w", err)
	}
	return ParseHint(string(output))
}

// BuildPrompt renders HintPrompt for item.
func BuildPrompt(item workitem.WorkItem) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, item); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ParseHint extracts the JSON hint from model output, tolerating code fences
// and surrounding prose.
func ParseHint(output string) (risk.Hint, error) {
	output = strings.TrimSpace(output)
	output = strings.TrimPrefix(output, "```json")
	output = strings.TrimPrefix(output, "```")
	output = strings.TrimSuffix(output, "```")
	output = strings.TrimSpace(output)

	start := strings.Index(output, "{")
	end := strings.LastIndex(output, "}")
	if start == -1 || end == -1 || end <= start {
		return risk.Hint{}, fmt.Errorf("no JSON object found in output")
	}

	var raw struct {
		Delta *int   `json:"delta"`
		Note  string `json:"note"`
	}
	if err := json.Unmarshal([]byte(output[start:end+1]), &raw); err != nil {
		return risk.Hint{}, fmt.Errorf("failed to parse hint JSON: %w", err)
	}
	if raw.Delta == nil {
		return risk.Hint{}, fmt.Errorf("hint has no delta")
	}
	return risk.Hint{Delta: *raw.Delta, Note: strings.TrimSpace(raw.Note)}, nil
}

var _ risk.HintProvider = (*Advisor)(nil)
