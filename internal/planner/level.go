package planner

import (
	"fmt"

	"github.com/Iron-Ham/workplan/internal/graph"
	"github.com/Iron-Ham/workplan/internal/workitem"
)

// Leveling is the block structure computed from a graph, before assessments
// are attached.
type Leveling struct {
	// Levels holds item ids per level in discovery order.
	Levels [][]string
	// Unscheduled lists held items and their dependents in discovery order.
	Unscheduled []UnscheduledItem
}

// Level assigns every node of g either a level or an unscheduled reason.
//
// A node in one of holdStates is unscheduled, as is every node with an
// explicit predecessor that is unscheduled. Every other node sits at level 0
// when it has no explicit predecessors and at 1 + the highest predecessor
// level otherwise. External dependencies never affect the level.
func Level(g *graph.Graph, holdStates []string) Leveling {
	level := make(map[string]int, g.Len())
	reason := make(map[string]string)
	depth := 0

	for _, id := range g.TopologicalOrder() {
		n := g.Node(id)
		if workitem.IsHold(n.Item.State, holdStates) {
			reason[id] = fmt.Sprintf("state %s is on hold", n.Item.State)
			continue
		}

		lvl := 0
		for _, p := range g.Predecessors(id) {
			if _, held := reason[p]; held {
				reason[id] = "depends on unscheduled item " + p
				break
			}
			lvl = max(lvl, level[p]+1)
		}
		if _, held := reason[id]; held {
			continue
		}
		level[id] = lvl
		depth = max(depth, lvl+1)
	}

	out := Leveling{Levels: make([][]string, depth)}
	for _, n := range g.Nodes() {
		id := n.Item.ID
		if r, held := reason[id]; held {
			out.Unscheduled = append(out.Unscheduled, UnscheduledItem{ID: id, Reason: r})
			continue
		}
		out.Levels[level[id]] = append(out.Levels[level[id]], id)
	}
	return out
}
