package graph

type color uint8

const (
	white color = iota
	gray
	black
)

// hasCycle runs a depth-first coloring over explicit edges and reports
// whether any back edge exists.
func hasCycle(g *Graph) bool {
	colors := make(map[string]color, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = gray
		for _, next := range g.succs[id] {
			switch colors[next] {
			case gray:
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		colors[id] = black
		return false
	}

	for _, n := range g.nodes {
		if colors[n.Item.ID] == white && visit(n.Item.ID) {
			return true
		}
	}
	return false
}

// cycleMembers returns every node that lies on some explicit cycle, in
// discovery order: members of strongly connected components with more than
// one node, plus self-dependent nodes.
func cycleMembers(g *Graph) []string {
	var (
		counter int
		stack   []string
		onStack = make(map[string]bool)
		index   = make(map[string]int)
		low     = make(map[string]int)
		member  = make(map[string]bool)
	)

	var strongConnect func(id string)
	strongConnect = func(id string) {
		index[id] = counter
		low[id] = counter
		counter++
		stack = append(stack, id)
		onStack[id] = true

		for _, next := range g.succs[id] {
			if _, seen := index[next]; !seen {
				strongConnect(next)
				low[id] = min(low[id], low[next])
			} else if onStack[next] {
				low[id] = min(low[id], index[next])
			}
			if next == id {
				member[id] = true
			}
		}

		if low[id] != index[id] {
			return
		}
		var component []string
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			component = append(component, top)
			if top == id {
				break
			}
		}
		if len(component) > 1 {
			for _, c := range component {
				member[c] = true
			}
		}
	}

	for _, n := range g.nodes {
		if _, seen := index[n.Item.ID]; !seen {
			strongConnect(n.Item.ID)
		}
	}

	members := make([]string, 0, len(member))
	for _, n := range g.nodes {
		if member[n.Item.ID] {
			members = append(members, n.Item.ID)
		}
	}
	return members
}
