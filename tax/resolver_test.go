package tax_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yomi/budget-engine/tax"
)

type subject struct {
	assignment tax.Assignment
	contractor tax.ContractorID
}

func (s subject) TaxAssignment() tax.Assignment  { return s.assignment }
func (s subject) TaxContractor() tax.ContractorID { return s.contractor }

func boolPtr(b bool) *bool { return &b }

func newCatalog() *tax.Catalog {
	c := tax.NewSystemCatalog()
	second := external("second", "0.10")
	second.Order = 1
	c.AddScheme(tax.Scheme{
		ID:         "custom",
		Name:       "Custom",
		Components: []tax.Component{second, internal("first", "0.06")},
	})

	c.SetContractorScheme("ctr-sz", tax.SchemeSZ)
	c.SetContractorScheme("ctr-nds", tax.SchemeNDS)
	return c
}

func names(cs []tax.Component) []string {
	var out []string
	for _, c := range cs {
		out = append(out, c.Name)
	}
	return out
}

// =============================================================================
// READ PATH
// =============================================================================

func TestResolve_ExplicitWinsOverContractor(t *testing.T) {
	r := newCatalog().Resolver()

	comps, err := r.Resolve(subject{assignment: tax.Explicit(tax.SchemeNDS), contractor: "ctr-sz"})
	require.NoError(t, err)
	assert.Equal(t, []string{"НДС"}, names(comps))
}

func TestResolve_InheritsContractorDefault(t *testing.T) {
	r := newCatalog().Resolver()

	comps, err := r.Resolve(subject{assignment: tax.Inherited(), contractor: "ctr-sz"})
	require.NoError(t, err)
	assert.Equal(t, []string{"НПД"}, names(comps))
}

func TestResolve_NothingApplies_NoTax(t *testing.T) {
	r := newCatalog().Resolver()

	for _, s := range []subject{
		{assignment: tax.Inherited()},
		{assignment: tax.Inherited(), contractor: "ctr-without-default"},
	} {
		comps, err := r.Resolve(s)
		require.NoError(t, err)
		assert.Empty(t, comps)
	}
}

func TestResolve_ComponentsOrderedByStoredOrder(t *testing.T) {
	r := newCatalog().Resolver()

	comps, err := r.Resolve(subject{assignment: tax.Explicit("custom")})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, names(comps))
}

func TestResolve_MissingScheme(t *testing.T) {
	c := newCatalog()
	c.SetContractorScheme("ctr-dangling", "deleted")
	r := c.Resolver()

	_, err := r.Resolve(subject{assignment: tax.Explicit("nope")})
	assert.ErrorIs(t, err, tax.ErrSchemeNotFound)
	assert.True(t, tax.IsNotFound(err))

	_, err = r.Resolve(subject{assignment: tax.Inherited(), contractor: "ctr-dangling"})
	var nf *tax.SchemeNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, tax.SchemeID("deleted"), nf.ID)
}

func TestResolve_ContractorChangeRederives(t *testing.T) {
	// GIVEN: a line inheriting from a self-employed contractor
	// WHEN: it is relinked to a VAT payer without an override
	// THEN: the new contractor's scheme applies on the same write
	c := newCatalog()
	r := c.Resolver()
	s := subject{assignment: tax.Inherited(), contractor: "ctr-sz"}

	id, ok := r.Effective(s)
	require.True(t, ok)
	assert.Equal(t, tax.SchemeSZ, id)

	next, err := tax.ApplyWrite(s.assignment, tax.AssignmentWrite{}, tax.SchemeNDS)
	require.NoError(t, err)
	s = subject{assignment: next, contractor: "ctr-nds"}

	id, ok = r.Effective(s)
	require.True(t, ok)
	assert.Equal(t, tax.SchemeNDS, id)
}

// =============================================================================
// WRITE PATH
// =============================================================================

func TestApplyWrite(t *testing.T) {
	explicitSZ := tax.Explicit(tax.SchemeSZ)

	tests := []struct {
		name       string
		current    tax.Assignment
		write      tax.AssignmentWrite
		contractor tax.SchemeID
		want       tax.Assignment
		wantErr    error
	}{
		{
			name:    "set scheme forces override",
			current: tax.Inherited(),
			write:   tax.AssignmentWrite{SchemeSet: true, SchemeID: tax.SchemeNDS},
			want:    tax.Explicit(tax.SchemeNDS),
		},
		{
			name:    "set scheme with explicit override true",
			current: tax.Inherited(),
			write:   tax.AssignmentWrite{SchemeSet: true, SchemeID: tax.SchemeNDS, Override: boolPtr(true)},
			want:    tax.Explicit(tax.SchemeNDS),
		},
		{
			name:       "set scheme with override false keeps the scheme",
			current:    tax.Inherited(),
			write:      tax.AssignmentWrite{SchemeSet: true, SchemeID: "user-x", Override: boolPtr(false)},
			contractor: tax.SchemeSZ,
			want:       tax.Explicit("user-x"),
		},
		{
			name:    "clear scheme re-enables inheritance",
			current: explicitSZ,
			write:   tax.AssignmentWrite{SchemeSet: true},
			want:    tax.Inherited(),
		},
		{
			name:    "clear scheme with override true is rejected",
			current: explicitSZ,
			write:   tax.AssignmentWrite{SchemeSet: true, Override: boolPtr(true)},
			want:    explicitSZ,
			wantErr: tax.ErrOverrideWithoutScheme,
		},
		{
			name:       "override on inherited pins contractor default",
			current:    tax.Inherited(),
			write:      tax.AssignmentWrite{Override: boolPtr(true)},
			contractor: tax.SchemeIP,
			want:       tax.Explicit(tax.SchemeIP),
		},
		{
			name:    "override on inherited without contractor default",
			current: tax.Inherited(),
			write:   tax.AssignmentWrite{Override: boolPtr(true)},
			want:    tax.Inherited(),
			wantErr: tax.ErrOverrideWithoutScheme,
		},
		{
			name:       "override on explicit is a no-op",
			current:    explicitSZ,
			write:      tax.AssignmentWrite{Override: boolPtr(true)},
			contractor: tax.SchemeIP,
			want:       explicitSZ,
		},
		{
			name:    "override false drops explicit scheme",
			current: explicitSZ,
			write:   tax.AssignmentWrite{Override: boolPtr(false)},
			want:    tax.Inherited(),
		},
		{
			name:       "untouched keeps current",
			current:    explicitSZ,
			write:      tax.AssignmentWrite{},
			contractor: tax.SchemeNDS,
			want:       explicitSZ,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tax.ApplyWrite(tt.current, tt.write, tt.contractor)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssignment_RowMapping(t *testing.T) {
	id, override := tax.Explicit("s1").Row()
	assert.Equal(t, "s1", id)
	assert.True(t, override)

	id, override = tax.Inherited().Row()
	assert.Empty(t, id)
	assert.False(t, override)

	assert.Equal(t, tax.Explicit("s1"), tax.AssignmentFromRow("s1"))
	assert.Equal(t, tax.Inherited(), tax.AssignmentFromRow(""))
	assert.Equal(t, tax.Inherited(), tax.Explicit(""))
	assert.Equal(t, "inherited", tax.Inherited().String())
}

func TestCatalog_SchemesSystemFirst(t *testing.T) {
	c := newCatalog()
	all := c.Schemes()
	require.Len(t, all, 7)
	assert.True(t, all[0].IsSystem)
	assert.Equal(t, tax.SchemeID("custom"), all[len(all)-1].ID)
}
