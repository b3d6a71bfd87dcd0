/*
tree.go - Mutable arena for structural writes

PURPOSE:
  Holds one project's lines by id with a children-by-parent index so that
  structural writes can check and keep the tree invariants:

    level = parent.level + 1, or 0 for roots
    no line is its own ancestor

OPERATIONS:
  Insert:        add a line under a parent at a sort position
  Move:          re-parent and reposition; cascades level to the subtree
  DeleteSubtree: remove a line and everything under it

  Every failing operation leaves the arena unchanged. Successful operations
  return the lines they changed so callers can persist exactly those rows.

  Sibling sort orders are stored as given. Gaps and ties are allowed;
  ties resolve by insertion order when the forest is built.

SEE ALSO:
  - aggregate.go: Values the lines this arena produces
  - service.go: Loads an arena per write inside a store transaction
*/
package budget

import "fmt"

// Tree is an arena of one project's lines.
// It is not safe for concurrent use.
type Tree struct {
	lines    map[LineID]*Line
	order    []LineID
	children map[LineID][]LineID
}

// NewTree indexes the given lines. Stored levels are kept as-is.
func NewTree(lines []Line) (*Tree, error) {
	t := &Tree{
		lines:    make(map[LineID]*Line, len(lines)),
		order:    make([]LineID, 0, len(lines)),
		children: make(map[LineID][]LineID),
	}
	for _, l := range lines {
		if _, dup := t.lines[l.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLine, l.ID)
		}
		line := l
		t.lines[l.ID] = &line
		t.order = append(t.order, l.ID)
	}
	for _, id := range t.order {
		l := t.lines[id]
		if !l.IsRoot() {
			t.children[l.ParentID] = append(t.children[l.ParentID], id)
		}
	}
	return t, nil
}

// Len returns the number of lines.
func (t *Tree) Len() int { return len(t.order) }

// Get returns a copy of the line.
func (t *Tree) Get(id LineID) (Line, bool) {
	l, ok := t.lines[id]
	if !ok {
		return Line{}, false
	}
	return *l, true
}

// Lines returns copies of all lines in insertion order.
func (t *Tree) Lines() []Line {
	out := make([]Line, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.lines[id])
	}
	return out
}

// Children returns the ids directly under parent in insertion order.
// Roots are not indexed.
func (t *Tree) Children(parent LineID) []LineID {
	return append([]LineID(nil), t.children[parent]...)
}

// NextSortOrder returns one past the highest sort order under parent.
func (t *Tree) NextSortOrder(parent LineID) int {
	next := 0
	consider := func(l *Line) {
		if l.SortOrder >= next {
			next = l.SortOrder + 1
		}
	}
	if parent == "" {
		for _, id := range t.order {
			if l := t.lines[id]; l.IsRoot() {
				consider(l)
			}
		}
		return next
	}
	for _, id := range t.children[parent] {
		consider(t.lines[id])
	}
	return next
}

// Descendants returns every line under id, parents before children.
func (t *Tree) Descendants(id LineID) []LineID {
	var out []LineID
	seen := map[LineID]bool{id: true}
	var walk func(LineID)
	walk = func(p LineID) {
		for _, c := range t.children[p] {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)
	return out
}

// IsDescendant reports whether candidate sits somewhere under id.
func (t *Tree) IsDescendant(id, candidate LineID) bool {
	for _, d := range t.Descendants(id) {
		if d == candidate {
			return true
		}
	}
	return false
}

// =============================================================================
// STRUCTURAL WRITES
// =============================================================================

// Insert adds line under parentID (empty for root) at sortOrder and sets its
// level. It returns the stored copy.
func (t *Tree) Insert(line Line, parentID LineID, sortOrder int) (Line, error) {
	if line.ID == "" {
		return Line{}, fmt.Errorf("%w: missing id", ErrInvalidLine)
	}
	if _, dup := t.lines[line.ID]; dup {
		return Line{}, fmt.Errorf("%w: %s", ErrDuplicateLine, line.ID)
	}
	level, err := t.levelUnder(parentID)
	if err != nil {
		return Line{}, err
	}

	line.ParentID = parentID
	line.SortOrder = sortOrder
	line.Level = level

	t.lines[line.ID] = &line
	t.order = append(t.order, line.ID)
	if parentID != "" {
		t.children[parentID] = append(t.children[parentID], line.ID)
	}
	return line, nil
}

// Move re-parents id under newParentID (empty for root) at newSortOrder.
// Moving under itself or a descendant fails with a *CycleError and leaves
// the tree unchanged. On success it returns the moved line followed by
// every descendant, each with its recomputed level.
func (t *Tree) Move(id, newParentID LineID, newSortOrder int) ([]Line, error) {
	line, ok := t.lines[id]
	if !ok {
		return nil, &LineNotFoundError{ID: id}
	}
	if newParentID == id || (newParentID != "" && t.IsDescendant(id, newParentID)) {
		return nil, &CycleError{Line: id, NewParent: newParentID}
	}
	level, err := t.levelUnder(newParentID)
	if err != nil {
		return nil, err
	}

	if line.ParentID != newParentID {
		t.detach(id, line.ParentID)
		if newParentID != "" {
			t.children[newParentID] = append(t.children[newParentID], id)
		}
		line.ParentID = newParentID
	}
	line.SortOrder = newSortOrder
	line.Level = level

	changed := []Line{*line}
	for _, d := range t.Descendants(id) {
		dl := t.lines[d]
		dl.Level = t.lines[dl.ParentID].Level + 1
		changed = append(changed, *dl)
	}
	return changed, nil
}

// DeleteSubtree removes id and every line under it. It returns the removed
// ids, the subtree root first.
func (t *Tree) DeleteSubtree(id LineID) ([]LineID, error) {
	line, ok := t.lines[id]
	if !ok {
		return nil, &LineNotFoundError{ID: id}
	}
	removed := append([]LineID{id}, t.Descendants(id)...)

	t.detach(id, line.ParentID)
	gone := make(map[LineID]bool, len(removed))
	for _, r := range removed {
		gone[r] = true
		delete(t.lines, r)
		delete(t.children, r)
	}
	kept := t.order[:0]
	for _, o := range t.order {
		if !gone[o] {
			kept = append(kept, o)
		}
	}
	t.order = kept
	return removed, nil
}

func (t *Tree) levelUnder(parentID LineID) (int, error) {
	if parentID == "" {
		return 0, nil
	}
	p, ok := t.lines[parentID]
	if !ok {
		return 0, &LineNotFoundError{ID: parentID}
	}
	return p.Level + 1, nil
}

func (t *Tree) detach(id, parentID LineID) {
	if parentID == "" {
		return
	}
	siblings := t.children[parentID]
	for i, s := range siblings {
		if s == id {
			t.children[parentID] = append(siblings[:i:i], siblings[i+1:]...)
			return
		}
	}
}
