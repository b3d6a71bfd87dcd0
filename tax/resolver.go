/*
resolver.go - Which tax scheme applies to a line, contract or report entry

PURPOSE:
  A budget line (or contract, or production report entry) either owns its
  tax scheme choice or inherits the default scheme of its contractor. The
  choice is modelled as a two-variant Assignment:

    Inherited         - follow the contractor's default scheme (if any)
    Explicit(scheme)  - use this scheme regardless of the contractor

  The storage layer keeps the legacy pair (tax_scheme_id, tax_override);
  AssignmentFromRow and Row translate between the two. The state
  "override=true with no scheme" cannot be represented.

READ PATH (Resolve):
  Explicit           -> scheme components, ordered
  Inherited          -> contractor default scheme components, ordered
  nothing applies    -> empty list (no tax)
  missing scheme id  -> ErrSchemeNotFound

WRITE PATH (ApplyWrite):
  set scheme X                     -> Explicit(X)
  set scheme X, override=false     -> Explicit(X)
  clear scheme                     -> Inherited
  clear scheme, override=true      -> ErrOverrideWithoutScheme
  override=true on Inherited       -> Explicit(current contractor default)
  override=false                   -> Inherited
  contractor change                -> Inherited stays Inherited; the new
                                      contractor's default is what resolves

SEE ALSO:
  - calculator.go: Consumes the resolved component list
  - budget/tree.go: Resolves per line during aggregation
*/
package tax

import "sort"

// =============================================================================
// ASSIGNMENT
// =============================================================================

// Assignment is either Inherited (zero value) or Explicit(scheme).
type Assignment struct {
	scheme SchemeID
}

// Inherited follows the contractor's default scheme.
func Inherited() Assignment { return Assignment{} }

// Explicit pins a scheme. An empty id yields Inherited.
func Explicit(id SchemeID) Assignment { return Assignment{scheme: id} }

func (a Assignment) IsExplicit() bool { return a.scheme != "" }

// SchemeID returns the pinned scheme, if any.
func (a Assignment) SchemeID() (SchemeID, bool) { return a.scheme, a.scheme != "" }

func (a Assignment) String() string {
	if a.scheme == "" {
		return "inherited"
	}
	return "explicit(" + string(a.scheme) + ")"
}

// AssignmentFromRow maps a stored tax_scheme_id. A stored scheme id always
// wins over the stored override flag; no scheme means inheritance.
func AssignmentFromRow(schemeID string) Assignment {
	return Explicit(SchemeID(schemeID))
}

// Row returns the (tax_scheme_id, tax_override) pair to persist.
func (a Assignment) Row() (schemeID string, override bool) {
	return string(a.scheme), a.scheme != ""
}

// AssignmentWrite describes which tax fields a write touches.
type AssignmentWrite struct {
	// SchemeSet is true when the write sets or clears tax_scheme_id.
	SchemeSet bool
	// SchemeID is the new scheme; empty with SchemeSet clears it.
	SchemeID SchemeID
	// Override is nil when the write does not mention tax_override.
	Override *bool
}

// ApplyWrite computes the assignment after a write.
// contractorDefault is the default scheme of the contractor the subject is
// linked to after the write (empty if none).
func ApplyWrite(current Assignment, w AssignmentWrite, contractorDefault SchemeID) (Assignment, error) {
	switch {
	case w.SchemeSet && w.SchemeID != "":
		// A named scheme is explicit whatever the override flag says.
		return Explicit(w.SchemeID), nil

	case w.SchemeSet:
		if w.Override != nil && *w.Override {
			return current, ErrOverrideWithoutScheme
		}
		return Inherited(), nil

	case w.Override != nil && *w.Override:
		if current.IsExplicit() {
			return current, nil
		}
		if contractorDefault == "" {
			return current, ErrOverrideWithoutScheme
		}
		return Explicit(contractorDefault), nil

	case w.Override != nil:
		return Inherited(), nil
	}
	return current, nil
}

// =============================================================================
// LOOKUPS
// =============================================================================

// Subject is anything a scheme can be resolved for.
type Subject interface {
	TaxAssignment() Assignment
	TaxContractor() ContractorID
}

// SchemeLookup finds schemes by id.
type SchemeLookup interface {
	LookupScheme(id SchemeID) (Scheme, bool)
}

// ContractorLookup finds a contractor's default scheme.
type ContractorLookup interface {
	ContractorScheme(id ContractorID) (SchemeID, bool)
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver decides which ordered components apply to a subject.
type Resolver struct {
	Schemes     SchemeLookup
	Contractors ContractorLookup
}

func NewResolver(schemes SchemeLookup, contractors ContractorLookup) *Resolver {
	return &Resolver{Schemes: schemes, Contractors: contractors}
}

// Effective returns the scheme that applies to the subject, if any.
func (r *Resolver) Effective(s Subject) (SchemeID, bool) {
	if id, ok := s.TaxAssignment().SchemeID(); ok {
		return id, true
	}
	cid := s.TaxContractor()
	if cid == "" || r.Contractors == nil {
		return "", false
	}
	id, ok := r.Contractors.ContractorScheme(cid)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Resolve returns the ordered components for the subject.
func (r *Resolver) Resolve(s Subject) ([]Component, error) {
	id, ok := r.Effective(s)
	if !ok {
		return nil, nil
	}
	if r.Schemes == nil {
		return nil, &SchemeNotFoundError{ID: id}
	}
	scheme, found := r.Schemes.LookupScheme(id)
	if !found {
		return nil, &SchemeNotFoundError{ID: id}
	}
	return scheme.Ordered(), nil
}

// =============================================================================
// CATALOG - In-memory lookups built from a storage snapshot
// =============================================================================

// Catalog implements SchemeLookup and ContractorLookup over a snapshot.
// It is not safe for concurrent mutation; build one per snapshot.
type Catalog struct {
	schemes     map[SchemeID]Scheme
	contractors map[ContractorID]SchemeID
}

func NewCatalog(schemes ...Scheme) *Catalog {
	c := &Catalog{
		schemes:     make(map[SchemeID]Scheme, len(schemes)),
		contractors: make(map[ContractorID]SchemeID),
	}
	for _, s := range schemes {
		c.schemes[s.ID] = s
	}
	return c
}

func (c *Catalog) AddScheme(s Scheme) { c.schemes[s.ID] = s }

// SetContractorScheme records a contractor's default scheme ("" for none).
func (c *Catalog) SetContractorScheme(id ContractorID, scheme SchemeID) {
	if scheme == "" {
		delete(c.contractors, id)
		return
	}
	c.contractors[id] = scheme
}

func (c *Catalog) LookupScheme(id SchemeID) (Scheme, bool) {
	s, ok := c.schemes[id]
	return s, ok
}

func (c *Catalog) ContractorScheme(id ContractorID) (SchemeID, bool) {
	s, ok := c.contractors[id]
	return s, ok
}

// Schemes returns all schemes, system schemes first, then by name.
func (c *Catalog) Schemes() []Scheme {
	out := make([]Scheme, 0, len(c.schemes))
	for _, s := range c.schemes {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsSystem != out[j].IsSystem {
			return out[i].IsSystem
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Resolver returns a resolver backed by this catalog.
func (c *Catalog) Resolver() *Resolver {
	return NewResolver(c, c)
}
