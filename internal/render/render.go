// Package render writes execution plans for people and tools.
//
// Markdown is meant for tracker comments, JSON and YAML for tooling, and the
// terminal format for interactive use. None of the formats add anything that
// varies between runs, so re-rendering an unchanged plan is byte-identical.
package render

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/workplan/internal/planner"
)

// Format names an output format.
type Format string

// Supported formats.
const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatTerminal Format = "terminal"
)

// Formats returns the supported formats.
func Formats() []Format {
	return []Format{FormatMarkdown, FormatJSON, FormatYAML, FormatTerminal}
}

// Render writes plan to w in format.
func Render(w io.Writer, plan *planner.ExecutionPlan, format Format) error {
	switch format {
	case FormatMarkdown, "":
		return Markdown(w, plan)
	case FormatJSON:
		return JSON(w, plan)
	case FormatYAML:
		return YAML(w, plan)
	case FormatTerminal:
		_, err := io.WriteString(w, Terminal(plan))
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// JSON writes plan as indented JSON.
func JSON(w io.Writer, plan *planner.ExecutionPlan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}

// YAML writes plan as YAML.
func YAML(w io.Writer, plan *planner.ExecutionPlan) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(plan); err != nil {
		return err
	}
	return enc.Close()
}
