package budget_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yomi/budget-engine/budget"
)

// chain builds r -> a -> b -> c plus a second root s -> s1, with
// consistent levels.
func chain(t *testing.T) *budget.Tree {
	t.Helper()
	lines := []budget.Line{
		withLevel(group("r", "", 0), 0),
		withLevel(group("a", "r", 0), 1),
		withLevel(group("b", "a", 0), 2),
		withLevel(item("c", "b", 0, "10", "1"), 3),
		withLevel(group("s", "", 1), 0),
		withLevel(group("s1", "s", 0), 1),
	}
	tree, err := budget.NewTree(lines)
	require.NoError(t, err)
	return tree
}

func withLevel(l budget.Line, level int) budget.Line {
	l.Level = level
	return l
}

func levels(tree *budget.Tree) map[budget.LineID]int {
	out := make(map[budget.LineID]int)
	for _, l := range tree.Lines() {
		out[l.ID] = l.Level
	}
	return out
}

// =============================================================================
// MOVE
// =============================================================================

func TestMove_CascadesLevelToSubtree(t *testing.T) {
	// GIVEN: r(0) > a(1) > b(2) > c(3), s(0) > s1(1)
	tree := chain(t)

	// WHEN: a moves under s1
	changed, err := tree.Move("a", "s1", 4)
	require.NoError(t, err)

	// THEN: a and every descendant shift by the same depth
	assert.Equal(t, map[budget.LineID]int{"r": 0, "a": 2, "b": 3, "c": 4, "s": 0, "s1": 1}, levels(tree))

	var changedIDs []budget.LineID
	for _, l := range changed {
		changedIDs = append(changedIDs, l.ID)
	}
	assert.Equal(t, []budget.LineID{"a", "b", "c"}, changedIDs)

	a, _ := tree.Get("a")
	assert.Equal(t, budget.LineID("s1"), a.ParentID)
	assert.Equal(t, 4, a.SortOrder)
	assert.Equal(t, []budget.LineID{"a"}, tree.Children("s1"))
	assert.Empty(t, tree.Children("r"))
}

func TestMove_ToRoot(t *testing.T) {
	tree := chain(t)

	_, err := tree.Move("b", "", 2)
	require.NoError(t, err)

	b, _ := tree.Get("b")
	assert.True(t, b.IsRoot())
	assert.Equal(t, 0, b.Level)
	c, _ := tree.Get("c")
	assert.Equal(t, 1, c.Level)
}

func TestMove_RepairsStaleLevels(t *testing.T) {
	// GIVEN: stored levels that drifted from the parent chain
	tree, err := budget.NewTree([]budget.Line{
		withLevel(group("r", "", 0), 0),
		withLevel(group("x", "", 1), 0),
		withLevel(group("child", "x", 0), 7),
		withLevel(item("leaf", "child", 0, "1", "1"), 2),
	})
	require.NoError(t, err)

	// WHEN
	_, err = tree.Move("x", "r", 0)
	require.NoError(t, err)

	// THEN: levels follow the parent chain again
	assert.Equal(t, map[budget.LineID]int{"r": 0, "x": 1, "child": 2, "leaf": 3}, levels(tree))
}

func TestMove_SameParentRepositions(t *testing.T) {
	tree := chain(t)

	changed, err := tree.Move("s1", "s", 9)
	require.NoError(t, err)

	require.Len(t, changed, 1)
	assert.Equal(t, 9, changed[0].SortOrder)
	assert.Equal(t, 1, changed[0].Level)
	assert.Equal(t, []budget.LineID{"s1"}, tree.Children("s"))
}

func TestMove_CycleRejected(t *testing.T) {
	for _, target := range []budget.LineID{"a", "b", "c"} {
		t.Run(string(target), func(t *testing.T) {
			// GIVEN
			tree := chain(t)
			before := tree.Lines()

			// WHEN: a moves under itself or a descendant
			_, err := tree.Move("a", target, 0)

			// THEN: rejected, tree unchanged
			require.Error(t, err)
			assert.ErrorIs(t, err, budget.ErrCycleRejected)
			var cycleErr *budget.CycleError
			require.ErrorAs(t, err, &cycleErr)
			assert.Equal(t, budget.LineID("a"), cycleErr.Line)
			assert.Equal(t, target, cycleErr.NewParent)
			assert.True(t, budget.IsConflict(err))
			assert.Equal(t, before, tree.Lines())
		})
	}
}

func TestMove_UnknownLines(t *testing.T) {
	tree := chain(t)
	before := tree.Lines()

	_, err := tree.Move("nope", "", 0)
	assert.ErrorIs(t, err, budget.ErrLineNotFound)

	_, err = tree.Move("a", "nope", 0)
	assert.ErrorIs(t, err, budget.ErrLineNotFound)
	assert.True(t, budget.IsNotFound(err))

	assert.Equal(t, before, tree.Lines())
}

func TestMove_GroupSumsHoldAfterMove(t *testing.T) {
	// GIVEN: two groups with priced lines
	lines := []budget.Line{
		group("g1", "", 0),
		group("g2", "", 1),
		group("sub", "g1", 0),
		item("x", "sub", 0, "100", "2"),
		item("y", "g1", 1, "30", "1"),
		item("z", "g2", 0, "5", "1"),
	}
	tree, err := budget.NewTree(lines)
	require.NoError(t, err)

	// WHEN: the subgroup moves from g1 to g2
	_, err = tree.Move("sub", "g2", 1)
	require.NoError(t, err)
	forest, report := budget.Build(tree.Lines(), nil)

	// THEN
	assert.True(t, report.Clean())
	assertGroupSums(t, forest)
	assertDec(t, "30", forest.Find("g1").Computed.Total)
	assertDec(t, "205", forest.Find("g2").Computed.Total)
	assertDec(t, "235", forest.Totals().Total)
}

// =============================================================================
// INSERT / DELETE
// =============================================================================

func TestInsert_SetsParentOrderAndLevel(t *testing.T) {
	tree := chain(t)

	got, err := tree.Insert(item("new", "ignored", 0, "1", "1"), "b", tree.NextSortOrder("b"))
	require.NoError(t, err)

	assert.Equal(t, budget.LineID("b"), got.ParentID)
	assert.Equal(t, 3, got.Level)
	assert.Equal(t, 1, got.SortOrder)
	assert.Equal(t, []budget.LineID{"c", "new"}, tree.Children("b"))
	assert.Equal(t, 2, tree.NextSortOrder(""))
	assert.Equal(t, 7, tree.Len())
}

func TestInsert_Errors(t *testing.T) {
	tree := chain(t)

	_, err := tree.Insert(item("a", "", 0, "1", "1"), "", 0)
	assert.ErrorIs(t, err, budget.ErrDuplicateLine)

	_, err = tree.Insert(item("new", "", 0, "1", "1"), "missing", 0)
	assert.ErrorIs(t, err, budget.ErrLineNotFound)

	_, err = tree.Insert(budget.Line{Name: "no id"}, "", 0)
	assert.ErrorIs(t, err, budget.ErrInvalidLine)

	assert.Equal(t, 6, tree.Len())
}

func TestDeleteSubtree(t *testing.T) {
	tree := chain(t)

	removed, err := tree.DeleteSubtree("a")
	require.NoError(t, err)

	assert.Equal(t, []budget.LineID{"a", "b", "c"}, removed)
	assert.Equal(t, 3, tree.Len())
	_, ok := tree.Get("c")
	assert.False(t, ok)
	assert.Empty(t, tree.Children("r"))

	_, err = tree.DeleteSubtree("a")
	assert.ErrorIs(t, err, budget.ErrLineNotFound)
}

func TestNewTree_RejectsDuplicates(t *testing.T) {
	_, err := budget.NewTree([]budget.Line{group("g", "", 0), group("g", "", 1)})
	assert.ErrorIs(t, err, budget.ErrDuplicateLine)
}

func TestDescendants_Order(t *testing.T) {
	tree := chain(t)
	assert.Equal(t, []budget.LineID{"a", "b", "c"}, tree.Descendants("r"))
	assert.True(t, tree.IsDescendant("r", "c"))
	assert.False(t, tree.IsDescendant("c", "r"))
	assert.Empty(t, tree.Descendants("c"))
}
