package render

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/Iron-Ham/workplan/internal/planner"
	"github.com/Iron-Ham/workplan/internal/risk"
)

// blockRow is one item line in a rendered block.
type blockRow struct {
	ID        string
	Title     string
	Decision  risk.Decision
	Score     int
	SpotCheck bool
	Rationale string
}

type blockData struct {
	Number int
	Note   string
	Rows   []blockRow
}

type planData struct {
	ParentID      string
	PolicyVersion string
	Summary       planner.Summary
	Blocks        []blockData
	Ready         []string
	Unscheduled   []planner.UnscheduledItem
	Warnings      []string
}

const planTemplate = `# Parallel Execution Plan for {{.ParentID}}

Policy: ` + "`{{.PolicyVersion}}`" + `

## Summary

| Metric | Value |
|---|---|
| Active items | {{.Summary.Total}} |
| Scheduled | {{.Summary.Scheduled}} in {{.Summary.BlockCount}} blocks |
| Unscheduled | {{.Summary.Unscheduled}} |
| AI suitable | {{.Summary.AISuitable}} ({{.Summary.SpotCheck}} spot-check) |
| Human required | {{.Summary.HumanRequired}} |
| Hybrid | {{.Summary.Hybrid}} |
| Degraded | {{.Summary.Degraded}} |
| Max parallelism | {{.Summary.MaxParallelism}} |
| Average parallelism | {{printf "%.2f" .Summary.AverageParallelism}} |
| Single-item blocks | {{.Summary.SingleItemBlocks}} |
{{range .Blocks}}
## Block {{.Number}}
{{if .Note}}
> {{.Note}}
{{end}}
| Item | Title | Decision | Score | Rationale |
|---|---|---|---|---|
{{range .Rows}}| {{.ID}} | {{cell .Title}} | {{.Decision}}{{if .SpotCheck}} (spot-check){{end}} | {{.Score}} | {{cell .Rationale}} |
{{end}}{{end}}
{{- if .Ready}}
## Ready for Agent Assignment

{{range .Ready}}- {{.}}
{{end}}{{end}}
{{- if .Unscheduled}}
## Unscheduled

{{range .Unscheduled}}- {{.ID}}: {{.Reason}}
{{end}}{{end}}
{{- if .Warnings}}
## Warnings

{{range .Warnings}}- {{.}}
{{end}}{{end}}`

var markdownTemplate = template.Must(template.New("plan").
	Funcs(template.FuncMap{"cell": tableCell}).
	Parse(planTemplate))

// Markdown writes plan as a markdown report.
func Markdown(w io.Writer, plan *planner.ExecutionPlan) error {
	if err := markdownTemplate.Execute(w, newPlanData(plan)); err != nil {
		return fmt.Errorf("failed to render plan template: %w", err)
	}
	return nil
}

func newPlanData(plan *planner.ExecutionPlan) planData {
	data := planData{
		ParentID:      plan.ParentID,
		PolicyVersion: plan.PolicyVersion,
		Summary:       plan.Summary,
		Ready:         plan.ReadyForAgent(),
		Unscheduled:   plan.Unscheduled,
	}

	for _, b := range plan.Blocks {
		bd := blockData{Number: b.Index + 1, Note: b.Note}
		for i, id := range b.Items {
			row := blockRow{ID: id, Title: id}
			if it := plan.Item(id); it != nil {
				row.Title = it.Title
			}
			if i < len(b.Assessments) && b.Assessments[i] != nil {
				a := b.Assessments[i]
				row.Decision = a.Decision
				row.Score = a.Score
				row.SpotCheck = a.SpotCheck
				row.Rationale = a.Rationale
			}
			bd.Rows = append(bd.Rows, row)
		}
		data.Blocks = append(data.Blocks, bd)
	}

	for _, w := range plan.Warnings {
		data.Warnings = append(data.Warnings, warningLine(w.ItemID, string(w.Kind), w.Message))
	}
	return data
}

func warningLine(id, kind, msg string) string {
	if id == "" {
		return fmt.Sprintf("[%s] %s", kind, msg)
	}
	return fmt.Sprintf("%s [%s] %s", id, kind, msg)
}

// tableCell keeps a value on one markdown table row.
func tableCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
