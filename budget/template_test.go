package budget_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yomi/budget-engine/budget"
)

func TestTemplateToLines_CodesLevelsAndOrder(t *testing.T) {
	// GIVEN: a three-level template
	items := []budget.TemplateItem{
		{Name: "Crew", Kind: budget.KindGroup, Children: []budget.TemplateItem{
			{Name: "Camera", Kind: budget.KindGroup, Children: []budget.TemplateItem{
				{Name: "DOP", Unit: "shift", Rate: d("30000"), Quantity: d("20")},
			}},
			{Name: "Driver", Unit: "shift"},
		}},
		{Name: "Reserve"},
	}
	n := 0
	newID := func() budget.LineID {
		n++
		return budget.LineID(fmt.Sprintf("id%d", n))
	}

	// WHEN
	lines := budget.TemplateToLines("p1", items, newID)

	// THEN
	require.Len(t, lines, budget.Count(items))
	got := make([]string, len(lines))
	for i, l := range lines {
		got[i] = fmt.Sprintf("%s|%s|%d|%d|%s", l.Code, l.ParentID, l.Level, l.SortOrder, l.Kind)
	}
	assert.Equal(t, []string{
		"1||0|0|GROUP",
		"1.1|id1|1|0|GROUP",
		"1.1.1|id2|2|0|ITEM",
		"1.2|id1|1|1|ITEM",
		"2||0|1|ITEM",
	}, got)
	assert.Equal(t, budget.ProjectID("p1"), lines[2].ProjectID)

	forest, report := budget.Build(lines, nil)
	assert.True(t, report.Clean())
	assertDec(t, "600000", forest.Totals().Total)
}

func TestDefaultTemplate_Valid(t *testing.T) {
	lines := budget.TemplateToLines("p1", budget.DefaultTemplate(), nil)

	codes := make(map[string]bool)
	seen := make(map[budget.LineID]bool)
	roots := 0
	for _, l := range lines {
		assert.False(t, codes[l.Code], "duplicate code %s", l.Code)
		codes[l.Code] = true
		seen[l.ID] = true
		assert.True(t, l.Kind.Valid())
		assert.NotEmpty(t, l.Name)
		if l.IsRoot() {
			roots++
		}
	}
	assert.Len(t, seen, len(lines))
	assert.Equal(t, 16, roots)

	tree, err := budget.NewTree(lines)
	require.NoError(t, err)
	for _, l := range lines {
		if l.ParentID != "" {
			p, ok := tree.Get(l.ParentID)
			require.True(t, ok)
			assert.Equal(t, p.Level+1, l.Level)
		}
	}
}
