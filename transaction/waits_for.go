package transaction

// waitsFor is the directed graph of blocked transactions: an edge a → b means
// a is waiting for a page b holds in a conflicting mode.
type waitsFor struct {
	edges map[ID]map[ID]struct{}
}

func newWaitsFor() *waitsFor {
	return &waitsFor{edges: make(map[ID]map[ID]struct{})}
}

// set replaces the outgoing edges of from.
func (g *waitsFor) set(from ID, to []ID) {
	if len(to) == 0 {
		delete(g.edges, from)
		return
	}
	out := make(map[ID]struct{}, len(to))
	for _, t := range to {
		if t != from {
			out[t] = struct{}{}
		}
	}
	g.edges[from] = out
}

func (g *waitsFor) clear(from ID) {
	delete(g.edges, from)
}

// remove drops id and every edge pointing at it.
func (g *waitsFor) remove(id ID) {
	delete(g.edges, id)
	for _, out := range g.edges {
		delete(out, id)
	}
}

// cyclic reports whether start can reach itself, using an iterative
// depth-first search.
func (g *waitsFor) cyclic(start ID) bool {
	visited := make(map[ID]struct{})
	stack := make([]ID, 0, len(g.edges[start]))
	for next := range g.edges[start] {
		stack = append(stack, next)
	}

	for len(stack) > 0 {
		n := len(stack) - 1
		cur := stack[n]
		stack = stack[:n]

		if cur == start {
			return true
		}
		if _, seen := visited[cur]; seen {
			continue
		}
		visited[cur] = struct{}{}

		for next := range g.edges[cur] {
			if _, seen := visited[next]; !seen {
				stack = append(stack, next)
			}
		}
	}
	return false
}
