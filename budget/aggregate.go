/*
aggregate.go - Flat lines to a valued forest

ALGORITHM:
  1. Index lines by id, keeping input order.
  2. Partition by parent id. A line whose parent id is unknown is an orphan
     and becomes a root. Children and roots are stably sorted by sort order,
     so ties keep input order.
  3. Post-order from every root: value the line, recurse into children, then
     for GROUP nodes replace the six totals with the children's sum.
     ITEM and SPREAD_ITEM keep their own figures even if they have children.
  4. Lines never reached from a root sit on a parent cycle (or below one)
     and are reported as unreachable.

FAILURES:
  A line whose scheme is missing or whose rates are invalid keeps the error
  on its node and contributes zero. Every ancestor is marked Partial. The
  rest of the forest is valued normally.

Build is pure: the same input yields the same forest and totals.
*/
package budget

import (
	"sort"

	"github.com/yomi/budget-engine/tax"
)

// ComponentResolver resolves the tax components for a line.
// *tax.Resolver satisfies it.
type ComponentResolver interface {
	Resolve(s tax.Subject) ([]tax.Component, error)
}

// SchemeResolver is implemented by resolvers that can also name the
// effective scheme. Build uses it to fill Node.Scheme when available.
type SchemeResolver interface {
	Effective(s tax.Subject) (tax.SchemeID, bool)
}

// Report collects data-quality findings from one Build.
type Report struct {
	// Orphans reference a parent id that is not in the input.
	Orphans []LineID
	// Failed could not be valued.
	Failed []LineFailure
	// Unreachable sit on or under a parent cycle and are not in the forest.
	Unreachable []LineID
}

// Clean reports whether Build found nothing to warn about.
func (r Report) Clean() bool {
	return len(r.Orphans) == 0 && len(r.Failed) == 0 && len(r.Unreachable) == 0
}

// Build assembles and values the forest for one project snapshot.
func Build(lines []Line, resolver ComponentResolver) (Forest, Report) {
	var report Report

	byID := make(map[LineID]int, len(lines))
	for i, l := range lines {
		byID[l.ID] = i
	}

	children := make(map[LineID][]int)
	var roots []int
	for i, l := range lines {
		if l.IsRoot() {
			roots = append(roots, i)
			continue
		}
		if _, ok := byID[l.ParentID]; !ok {
			report.Orphans = append(report.Orphans, l.ID)
			roots = append(roots, i)
			continue
		}
		children[l.ParentID] = append(children[l.ParentID], i)
	}

	bySortOrder := func(idx []int) {
		sort.SliceStable(idx, func(a, b int) bool {
			return lines[idx[a]].SortOrder < lines[idx[b]].SortOrder
		})
	}
	bySortOrder(roots)
	for _, idx := range children {
		bySortOrder(idx)
	}

	b := &builder{
		lines:    lines,
		children: children,
		resolver: resolver,
		visited:  make([]bool, len(lines)),
		report:   &report,
	}
	if sr, ok := resolver.(SchemeResolver); ok {
		b.schemes = sr
	}

	forest := Forest{Roots: make([]*Node, 0, len(roots))}
	for _, i := range roots {
		forest.Roots = append(forest.Roots, b.build(i))
	}

	for i, l := range lines {
		if !b.visited[i] {
			report.Unreachable = append(report.Unreachable, l.ID)
		}
	}
	return forest, report
}

type builder struct {
	lines    []Line
	children map[LineID][]int
	resolver ComponentResolver
	schemes  SchemeResolver
	visited  []bool
	report   *Report
}

func (b *builder) build(i int) *Node {
	b.visited[i] = true
	n := &Node{Line: b.lines[i]}
	b.value(n)

	kids := b.children[n.Line.ID]
	if len(kids) > 0 {
		n.Children = make([]*Node, 0, len(kids))
	}
	var sum Totals
	for _, k := range kids {
		if b.visited[k] {
			continue
		}
		child := b.build(k)
		n.Children = append(n.Children, child)
		sum = sum.Add(child.Computed)
		if child.Err != nil || child.Partial {
			n.Partial = true
		}
	}

	if n.Line.Kind.IsGroup() {
		n.Computed = sum
	}
	return n
}

// value fills the node's own figures. GROUP nodes are left at zero.
func (b *builder) value(n *Node) {
	if n.Line.Kind.IsGroup() {
		return
	}
	l := n.Line
	n.Computed.Accrued = l.Accrued
	n.Computed.Paid = l.Paid
	n.Computed.Closed = l.Closed

	if b.schemes != nil {
		n.Scheme, _ = b.schemes.Effective(l)
	}

	var components []tax.Component
	if b.resolver != nil {
		var err error
		components, err = b.resolver.Resolve(l)
		if err != nil {
			b.fail(n, err)
			return
		}
	}

	res, err := tax.Calc(l.Rate, l.Quantity, components)
	if err != nil {
		b.fail(n, err)
		return
	}
	n.Computed.Subtotal = res.Subtotal
	n.Computed.TaxAmount = res.TaxAmount
	n.Computed.Total = res.Total
	n.Breakdown = res.Breakdown
}

func (b *builder) fail(n *Node, err error) {
	n.Err = err
	b.report.Failed = append(b.report.Failed, LineFailure{ID: n.Line.ID, Err: err})
}
