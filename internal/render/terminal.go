package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/Iron-Ham/workplan/internal/planner"
	"github.com/Iron-Ham/workplan/internal/risk"
)

var (
	primaryColor = lipgloss.Color("#A78BFA") // Purple
	aiColor      = lipgloss.Color("#10B981") // Green
	humanColor   = lipgloss.Color("#F87171") // Red
	hybridColor  = lipgloss.Color("#60A5FA") // Blue
	warningColor = lipgloss.Color("#F59E0B") // Amber
	mutedColor   = lipgloss.Color("#9CA3AF") // Gray
	borderColor  = lipgloss.Color("#6B7280") // Gray

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)

	blockStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)

	badgeStyle = lipgloss.NewStyle().Bold(true).Width(8)
)

// maxTitleWidth is the widest title shown in a block line, in columns.
const maxTitleWidth = 60

// Terminal renders plan with colors for an interactive terminal. Styling
// degrades to plain text when the output has no color support.
func Terminal(plan *planner.ExecutionPlan) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Execution plan for " + plan.ParentID))
	sb.WriteString("\n")
	s := plan.Summary
	sb.WriteString(mutedStyle.Render(fmt.Sprintf(
		"%d active, %d scheduled in %d blocks, %d unscheduled | AI %d, Human %d, Hybrid %d | max parallel %d",
		s.Total, s.Scheduled, s.BlockCount, s.Unscheduled, s.AISuitable, s.HumanRequired, s.Hybrid, s.MaxParallelism,
	)))
	sb.WriteString("\n\n")

	for _, b := range plan.Blocks {
		var lines []string
		lines = append(lines, lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Block %d", b.Index+1)))
		for i, id := range b.Items {
			title := id
			if it := plan.Item(id); it != nil {
				title = it.Title
			}
			var a *risk.Assessment
			if i < len(b.Assessments) {
				a = b.Assessments[i]
			}
			lines = append(lines, itemLine(id, title, a))
		}
		if b.Note != "" {
			lines = append(lines, warningStyle.Render("! "+b.Note))
		}
		sb.WriteString(blockStyle.Render(strings.Join(lines, "\n")))
		sb.WriteString("\n")
	}

	if len(plan.Unscheduled) > 0 {
		sb.WriteString("\n")
		sb.WriteString(lipgloss.NewStyle().Bold(true).Render("Unscheduled"))
		sb.WriteString("\n")
		for _, u := range plan.Unscheduled {
			sb.WriteString(mutedStyle.Render(fmt.Sprintf("  %s: %s", u.ID, u.Reason)))
			sb.WriteString("\n")
		}
	}

	if len(plan.Warnings) > 0 {
		sb.WriteString("\n")
		for _, w := range plan.Warnings {
			sb.WriteString(warningStyle.Render(warningLine(w.ItemID, string(w.Kind), w.Message)))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func itemLine(id, title string, a *risk.Assessment) string {
	title = truncateTitle(title, maxTitleWidth)
	if a == nil {
		return fmt.Sprintf("%s %s", id, title)
	}
	label := string(a.Decision)
	if a.SpotCheck {
		label += "*"
	}
	badge := badgeStyle.Foreground(decisionColor(a.Decision)).Render(label)
	return fmt.Sprintf("%s %-6s %s %s", badge, id, title, mutedStyle.Render(fmt.Sprintf("(%d)", a.Score)))
}

func decisionColor(d risk.Decision) lipgloss.Color {
	switch d {
	case risk.DecisionAI:
		return aiColor
	case risk.DecisionHuman:
		return humanColor
	default:
		return hybridColor
	}
}

// truncateTitle shortens s to maxWidth visual columns, ending in "...".
func truncateTitle(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, "...")
}
