package planner

import (
	"fmt"
	"math"
	"strings"

	perrors "github.com/Iron-Ham/workplan/internal/errors"
	"github.com/Iron-Ham/workplan/internal/graph"
	"github.com/Iron-Ham/workplan/internal/risk"
	"github.com/Iron-Ham/workplan/internal/workitem"
)

// Assemble joins a leveling with the per-item assessments into a plan.
// assessments must be in the graph's discovery order, one per node.
func Assemble(parentID string, g *graph.Graph, lv Leveling, assessments []risk.Assessment, warnings []workitem.Warning) *ExecutionPlan {
	plan := &ExecutionPlan{
		ParentID:      parentID,
		PolicyVersion: risk.PolicyVersion,
		Blocks:        make([]ExecutionBlock, 0, len(lv.Levels)),
		Unscheduled:   make([]UnscheduledItem, 0, len(lv.Unscheduled)),
		Warnings:      make([]workitem.Warning, 0, len(warnings)),
		Assessments:   assessments,
		Items:         make([]workitem.WorkItem, 0, g.Len()),
	}
	plan.Unscheduled = append(plan.Unscheduled, lv.Unscheduled...)
	plan.Warnings = append(plan.Warnings, warnings...)

	byID := make(map[string]*risk.Assessment, len(assessments))
	for i := range plan.Assessments {
		byID[plan.Assessments[i].ItemID] = &plan.Assessments[i]
	}
	for _, n := range g.Nodes() {
		plan.Items = append(plan.Items, n.Item)
	}

	for i, ids := range lv.Levels {
		block := ExecutionBlock{
			Index:       i,
			Items:       ids,
			Assessments: make([]*risk.Assessment, len(ids)),
		}
		for j, id := range ids {
			block.Assessments[j] = byID[id]
		}
		block.Note = blockNote(g, ids)
		plan.Blocks = append(plan.Blocks, block)
	}

	plan.Summary = summarize(plan, g)
	return plan
}

// blockNote describes the members of a block that cannot be handed out as-is.
func blockNote(g *graph.Graph, ids []string) string {
	var compound, degraded, external []string
	for _, id := range ids {
		n := g.Node(id)
		if n.Compound {
			compound = append(compound, id)
		}
		if n.Item.IsDegraded() {
			degraded = append(degraded, id)
		}
		if len(n.ExternalDeps) > 0 {
			external = append(external, id)
		}
	}

	var parts []string
	if len(compound) > 0 {
		parts = append(parts, "decompose before execution: "+strings.Join(compound, ", "))
	}
	if len(degraded) > 0 {
		parts = append(parts, "details unavailable: "+strings.Join(degraded, ", "))
	}
	if len(external) > 0 {
		parts = append(parts, "unresolved external dependencies: "+strings.Join(external, ", "))
	}
	return strings.Join(parts, "; ")
}

func summarize(plan *ExecutionPlan, g *graph.Graph) Summary {
	s := Summary{
		Total:       len(plan.Assessments),
		Unscheduled: len(plan.Unscheduled),
		BlockCount:  len(plan.Blocks),
	}

	for _, a := range plan.Assessments {
		switch a.Decision {
		case risk.DecisionAI:
			s.AISuitable++
			if a.SpotCheck {
				s.SpotCheck++
			}
		case risk.DecisionHuman:
			s.HumanRequired++
		case risk.DecisionHybrid:
			s.Hybrid++
		}
	}
	for _, n := range g.Nodes() {
		if n.Item.IsDegraded() {
			s.Degraded++
		}
	}

	for _, b := range plan.Blocks {
		s.Scheduled += len(b.Items)
		s.MaxParallelism = max(s.MaxParallelism, len(b.Items))
		if len(b.Items) == 1 {
			s.SingleItemBlocks++
		}
	}
	if s.BlockCount > 0 {
		avg := float64(s.Scheduled) / float64(s.BlockCount)
		s.AverageParallelism = math.Round(avg*100) / 100
	}
	return s
}

// Verify checks the ordering invariants of an assembled plan: every graph
// node appears exactly once across blocks and unscheduled, and every
// explicit edge between scheduled items points to a later block.
func Verify(plan *ExecutionPlan, g *graph.Graph) error {
	seen := make(map[string]int, g.Len())
	for _, b := range plan.Blocks {
		for _, id := range b.Items {
			seen[id]++
		}
	}
	for _, u := range plan.Unscheduled {
		seen[u.ID]++
	}

	fail := func(format string, args ...any) error {
		return perrors.NewPlanningError(fmt.Sprintf(format, args...), perrors.ErrPlanInvalid).
			WithParentID(plan.ParentID).
			WithPhase("level")
	}

	for _, n := range g.Nodes() {
		if c := seen[n.Item.ID]; c != 1 {
			return fail("item %s placed %d times", n.Item.ID, c)
		}
	}
	if len(seen) != g.Len() {
		return fail("plan holds %d items, graph has %d", len(seen), g.Len())
	}

	for _, e := range g.Edges() {
		if e.Kind != graph.EdgeExplicit {
			continue
		}
		from, to := plan.BlockOf(e.From), plan.BlockOf(e.To)
		if from < 0 || to < 0 {
			continue
		}
		if from >= to {
			return fail("%s in block %d does not follow its dependency %s in block %d", e.To, to, e.From, from)
		}
	}
	return nil
}
