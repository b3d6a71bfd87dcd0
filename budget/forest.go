package budget

// =============================================================================
// FOREST - Valued roots returned by Build
// =============================================================================

// Forest is the valued tree of one project, roots in sort order.
type Forest struct {
	Roots []*Node
}

// Walk visits every node depth-first, parents before children.
// Returning false from fn skips that node's children.
func (f Forest) Walk(fn func(n *Node, depth int) bool) {
	var walk func(nodes []*Node, depth int)
	walk = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			if fn(n, depth) {
				walk(n.Children, depth+1)
			}
		}
	}
	walk(f.Roots, 0)
}

// Find returns the node for id, or nil.
func (f Forest) Find(id LineID) *Node {
	var found *Node
	f.Walk(func(n *Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.Line.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Totals sums the computed fields of the roots.
func (f Forest) Totals() Totals {
	var t Totals
	for _, r := range f.Roots {
		t = t.Add(r.Computed)
	}
	return t
}

// Row is one entry of a flattened forest.
type Row struct {
	Depth int
	Node  *Node
}

// Flatten lists every node depth-first with its depth in the forest.
func (f Forest) Flatten() []Row {
	var rows []Row
	f.Walk(func(n *Node, depth int) bool {
		rows = append(rows, Row{Depth: depth, Node: n})
		return true
	})
	return rows
}

// Len returns the number of nodes.
func (f Forest) Len() int {
	count := 0
	f.Walk(func(*Node, int) bool {
		count++
		return true
	})
	return count
}
