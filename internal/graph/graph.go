// Package graph builds the dependency graph over a normalized work item set.
//
// Only explicit blocked-by links constrain scheduling. Parent links inside
// the set are kept as informational structural edges, and soft signals such
// as linked pull requests or related items never create edges: absence of an
// explicit dependency is read as independence.
package graph

import (
	"container/heap"
	"fmt"

	"github.com/Iron-Ham/workplan/internal/errors"
	"github.com/Iron-Ham/workplan/internal/workitem"
)

// EdgeKind distinguishes scheduling edges from informational ones.
type EdgeKind string

const (
	// EdgeExplicit is a blocked-by link; it constrains block order.
	EdgeExplicit EdgeKind = "explicit"
	// EdgeStructuralParent links an in-set parent to its child.
	EdgeStructuralParent EdgeKind = "structural-parent"
)

// Edge is a directed dependency. To depends on From.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// Node is a work item positioned in the graph.
type Node struct {
	Item workitem.WorkItem
	// Index is the item's discovery position.
	Index int
	// ExternalDeps lists blocked-by targets outside the discovered set.
	ExternalDeps []string
	// Compound marks items with children that need decomposition.
	Compound bool
}

// Graph is an acyclic dependency graph in discovery order.
type Graph struct {
	nodes    []*Node
	index    map[string]int
	edges    []Edge
	preds    map[string][]string
	succs    map[string][]string
	warnings []workitem.Warning
}

// Build constructs the graph for items, which must already be normalized.
// terminal holds ids of finished items; a dependency on one is satisfied and
// dropped. Any explicit cycle, including a self-dependency, fails the build
// with an *errors.GraphError naming every item on every cycle.
func Build(items []workitem.WorkItem, terminal map[string]bool) (*Graph, error) {
	g := &Graph{
		nodes: make([]*Node, len(items)),
		index: make(map[string]int, len(items)),
		preds: make(map[string][]string),
		succs: make(map[string][]string),
	}

	for i, it := range items {
		g.nodes[i] = &Node{Item: it, Index: i, Compound: it.IsCompound()}
		g.index[it.ID] = i
	}

	for _, n := range g.nodes {
		g.addExplicitEdges(n, terminal)
		if p := n.Item.ParentID; p != "" && p != n.Item.ID && g.Has(p) {
			g.edges = append(g.edges, Edge{From: p, To: n.Item.ID, Kind: EdgeStructuralParent})
		}
	}

	if hasCycle(g) {
		return nil, errors.NewGraphError(cycleMembers(g))
	}
	return g, nil
}

func (g *Graph) addExplicitEdges(n *Node, terminal map[string]bool) {
	id := n.Item.ID
	seen := make(map[string]bool, len(n.Item.BlockedBy))

	for _, dep := range n.Item.BlockedBy {
		if dep == "" || seen[dep] {
			continue
		}
		seen[dep] = true

		switch {
		case g.Has(dep):
			g.edges = append(g.edges, Edge{From: dep, To: id, Kind: EdgeExplicit})
			g.preds[id] = append(g.preds[id], dep)
			g.succs[dep] = append(g.succs[dep], id)
		case terminal[dep]:
			// Already finished; nothing to wait for.
		default:
			n.ExternalDeps = append(n.ExternalDeps, dep)
			g.warnings = append(g.warnings, workitem.Warning{
				ItemID:  id,
				Kind:    workitem.WarnExternalDependency,
				Message: fmt.Sprintf("unresolved external dependency on %s", dep),
			})
		}
	}
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Has reports whether id is a node.
func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Nodes returns the nodes in discovery order.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Node returns the node for id, or nil.
func (g *Graph) Node(id string) *Node {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.nodes[i]
}

// Edges returns all edges, explicit and structural.
func (g *Graph) Edges() []Edge { return g.edges }

// Predecessors returns the explicit dependencies of id.
func (g *Graph) Predecessors(id string) []string { return g.preds[id] }

// Successors returns the items explicitly blocked by id.
func (g *Graph) Successors(id string) []string { return g.succs[id] }

// Warnings returns the unresolved-external-dependency warnings in discovery order.
func (g *Graph) Warnings() []workitem.Warning { return g.warnings }

// TopologicalOrder returns node ids so that every explicit predecessor comes
// first. Ties are broken by discovery order.
func (g *Graph) TopologicalOrder() []string {
	indeg := make([]int, len(g.nodes))
	for i, n := range g.nodes {
		indeg[i] = len(g.preds[n.Item.ID])
	}

	ready := make(readyQueue, 0, len(g.nodes))
	for i, d := range indeg {
		if d == 0 {
			ready = append(ready, i)
		}
	}
	heap.Init(&ready)

	order := make([]string, 0, len(g.nodes))
	for ready.Len() > 0 {
		i := heap.Pop(&ready).(int)
		id := g.nodes[i].Item.ID
		order = append(order, id)
		for _, s := range g.succs[id] {
			j := g.index[s]
			indeg[j]--
			if indeg[j] == 0 {
				heap.Push(&ready, j)
			}
		}
	}
	return order
}

// readyQueue is a min-heap of node discovery indexes.
type readyQueue []int

func (q readyQueue) Len() int           { return len(q) }
func (q readyQueue) Less(i, j int) bool { return q[i] < q[j] }
func (q readyQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *readyQueue) Push(x any) { *q = append(*q, x.(int)) }

func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}
