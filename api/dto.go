/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model (budget, tax, contract, production) from the external
  API contract. Money and quantities are decimals encoded as JSON strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Tax:
    SchemeDTO (factory.SchemeJSON), CalcRequest, CalcResultDTO

  Contractors:
    ContractorDTO

  Budget:
    ProjectDTO, NodeDTO, BudgetResponse, CreateLineRequest,
    UpdateLineRequest, MoveLineRequest

  Contracts:
    ContractDTO, CreateContractRequest, UpdateContractRequest

  Production:
    ReportDTO, EntryDTO, CreateReportRequest, AddEntryRequest,
    OvertimeRequest

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

PATCH SEMANTICS:
  Pointer fields are "absent means unchanged". Fields that can also be
  cleared use Nullable, which tells an absent key from an explicit null.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/scheme.go: SchemeJSON type
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yomi/budget-engine/budget"
	"github.com/yomi/budget-engine/contract"
	"github.com/yomi/budget-engine/factory"
	"github.com/yomi/budget-engine/production"
	"github.com/yomi/budget-engine/store/sqlite"
	"github.com/yomi/budget-engine/tax"
)

const dateLayout = "2006-01-02"

// Nullable is a string field that distinguishes "key absent" (Set false)
// from "key present", where null and "" both mean clear.
type Nullable struct {
	Set   bool
	Value string
}

func (n *Nullable) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = ""
		return nil
	}
	return json.Unmarshal(b, &n.Value)
}

// =============================================================================
// TAX
// =============================================================================

// CalcRequest values rate x quantity under either a stored scheme or an
// inline component list. Components win when both are given.
type CalcRequest struct {
	Rate       decimal.Decimal         `json:"rate"`
	Quantity   decimal.Decimal         `json:"quantity"`
	SchemeID   string                  `json:"scheme_id,omitempty"`
	Components []factory.ComponentJSON `json:"components,omitempty"`
}

type BreakdownDTO struct {
	Name          string          `json:"name"`
	Rate          decimal.Decimal `json:"rate"`
	Mode          string          `json:"mode"`
	Recipient     string          `json:"recipient"`
	AmountPerUnit decimal.Decimal `json:"amount_per_unit"`
	AmountTotal   decimal.Decimal `json:"amount_total"`
}

type PerUnitDTO struct {
	Net   decimal.Decimal `json:"net"`
	Tax   decimal.Decimal `json:"tax"`
	Gross decimal.Decimal `json:"gross"`
}

// CalcResultDTO is the calculator output.
type CalcResultDTO struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Total         decimal.Decimal `json:"total"`
	TaxContractor decimal.Decimal `json:"tax_contractor"`
	TaxBudget     decimal.Decimal `json:"tax_budget"`
	PerUnit       PerUnitDTO      `json:"per_unit"`
	Breakdown     []BreakdownDTO  `json:"breakdown"`
}

func toBreakdownDTOs(items []tax.BreakdownItem) []BreakdownDTO {
	dtos := make([]BreakdownDTO, len(items))
	for i, b := range items {
		dtos[i] = BreakdownDTO{
			Name:          b.Name,
			Rate:          b.Rate,
			Mode:          string(b.Mode),
			Recipient:     string(b.Recipient),
			AmountPerUnit: b.AmountPerUnit,
			AmountTotal:   b.AmountTotal,
		}
	}
	return dtos
}

func toCalcResultDTO(res tax.Result) CalcResultDTO {
	return CalcResultDTO{
		Subtotal:      res.Subtotal,
		TaxAmount:     res.TaxAmount,
		Total:         res.Total,
		TaxContractor: res.TaxFor(tax.RecipientContractor),
		TaxBudget:     res.TaxFor(tax.RecipientBudget),
		PerUnit: PerUnitDTO{
			Net:   res.PerUnit.Net,
			Tax:   res.PerUnit.Tax,
			Gross: res.PerUnit.Gross,
		},
		Breakdown: toBreakdownDTOs(res.Breakdown),
	}
}

// =============================================================================
// CONTRACTORS
// =============================================================================

type ContractorDTO struct {
	ID                string `json:"id"`
	FullName          string `json:"full_name"`
	Type              string `json:"type"`
	TaxSchemeID       string `json:"tax_scheme_id,omitempty"`
	SuggestedSchemeID string `json:"suggested_tax_scheme_id,omitempty"`
	Phone             string `json:"phone,omitempty"`
	Email             string `json:"email,omitempty"`
	Notes             string `json:"notes,omitempty"`
	CreatedAt         string `json:"created_at,omitempty"`
}

// UpdateContractorRequest patches a contractor. tax_scheme_id null clears
// the default scheme.
type UpdateContractorRequest struct {
	FullName    *string  `json:"full_name,omitempty"`
	Type        *string  `json:"type,omitempty"`
	TaxSchemeID Nullable `json:"tax_scheme_id"`
	Phone       *string  `json:"phone,omitempty"`
	Email       *string  `json:"email,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

func (req UpdateContractorRequest) apply(c contract.Contractor) contract.Contractor {
	if req.FullName != nil {
		c.FullName = *req.FullName
	}
	if req.Type != nil {
		c.Type = contract.ContractorType(*req.Type)
	}
	if req.TaxSchemeID.Set {
		c.TaxSchemeID = tax.SchemeID(req.TaxSchemeID.Value)
	}
	if req.Phone != nil {
		c.Phone = *req.Phone
	}
	if req.Email != nil {
		c.Email = *req.Email
	}
	if req.Notes != nil {
		c.Notes = *req.Notes
	}
	return c
}

func toContractorDTO(c contract.Contractor) ContractorDTO {
	dto := ContractorDTO{
		ID:                string(c.ID),
		FullName:          c.FullName,
		Type:              string(c.Type),
		TaxSchemeID:       string(c.TaxSchemeID),
		SuggestedSchemeID: string(c.Type.SuggestedScheme()),
		Phone:             c.Phone,
		Email:             c.Email,
		Notes:             c.Notes,
	}
	if !c.CreatedAt.IsZero() {
		dto.CreatedAt = c.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// BUDGET
// =============================================================================

type ProjectDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreateProjectRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// UpdateProjectRequest patches a project. Omitted fields are unchanged.
type UpdateProjectRequest struct {
	Name   *string `json:"name,omitempty"`
	Status *string `json:"status,omitempty"`
}

func toProjectDTO(p sqlite.Project) ProjectDTO {
	dto := ProjectDTO{ID: string(p.ID), Name: p.Name, Status: p.Status}
	if !p.CreatedAt.IsZero() {
		dto.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// LineDTO is a stored line without valuation.
type LineDTO struct {
	ID           string          `json:"id"`
	ParentID     string          `json:"parent_id,omitempty"`
	SortOrder    int             `json:"sort_order"`
	Level        int             `json:"level"`
	Code         string          `json:"code,omitempty"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Unit         string          `json:"unit,omitempty"`
	Rate         decimal.Decimal `json:"rate"`
	Quantity     decimal.Decimal `json:"quantity"`
	TaxSchemeID  string          `json:"tax_scheme_id,omitempty"`
	TaxOverride  bool            `json:"tax_override"`
	ContractorID string          `json:"contractor_id,omitempty"`
	LimitAmount  decimal.Decimal `json:"limit_amount"`
	Notes        string          `json:"notes,omitempty"`
}

func toLineDTO(l budget.Line) LineDTO {
	schemeID, override := l.Tax.Row()
	return LineDTO{
		ID:           string(l.ID),
		ParentID:     string(l.ParentID),
		SortOrder:    l.SortOrder,
		Level:        l.Level,
		Code:         l.Code,
		Name:         l.Name,
		Type:         string(l.Kind),
		Unit:         l.Unit,
		Rate:         l.Rate,
		Quantity:     l.Quantity,
		TaxSchemeID:  schemeID,
		TaxOverride:  override,
		ContractorID: string(l.ContractorID),
		LimitAmount:  l.LimitAmount,
		Notes:        l.Notes,
	}
}

func toLineDTOs(lines []budget.Line) []LineDTO {
	dtos := make([]LineDTO, len(lines))
	for i, l := range lines {
		dtos[i] = toLineDTO(l)
	}
	return dtos
}

// TotalsDTO carries the valuation and execution figures of a node.
type TotalsDTO struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
	Total     decimal.Decimal `json:"total"`
	Accrued   decimal.Decimal `json:"accrued"`
	Paid      decimal.Decimal `json:"paid"`
	Closed    decimal.Decimal `json:"closed"`
}

func toTotalsDTO(t budget.Totals) TotalsDTO {
	return TotalsDTO{
		Subtotal:  t.Subtotal,
		TaxAmount: t.TaxAmount,
		Total:     t.Total,
		Accrued:   t.Accrued,
		Paid:      t.Paid,
		Closed:    t.Closed,
	}
}

// NodeDTO is a valued line with its children.
type NodeDTO struct {
	LineDTO
	TotalsDTO
	EffectiveTaxSchemeID string         `json:"effective_tax_scheme_id,omitempty"`
	Breakdown            []BreakdownDTO `json:"breakdown,omitempty"`
	Error                string         `json:"error,omitempty"`
	Partial              bool           `json:"partial,omitempty"`
	Children             []NodeDTO      `json:"children"`
}

func toNodeDTO(n *budget.Node) NodeDTO {
	dto := NodeDTO{
		LineDTO:              toLineDTO(n.Line),
		TotalsDTO:            toTotalsDTO(n.Computed),
		EffectiveTaxSchemeID: string(n.Scheme),
		Breakdown:            toBreakdownDTOs(n.Breakdown),
		Partial:              n.Partial,
		Children:             make([]NodeDTO, len(n.Children)),
	}
	if n.Err != nil {
		dto.Error = n.Err.Error()
	}
	for i, c := range n.Children {
		dto.Children[i] = toNodeDTO(c)
	}
	return dto
}

type LineFailureDTO struct {
	LineID string `json:"line_id"`
	Error  string `json:"error"`
}

// BudgetResponse is the valued tree of a project plus build findings.
type BudgetResponse struct {
	ProjectID   string           `json:"project_id"`
	Lines       []NodeDTO        `json:"lines"`
	Totals      TotalsDTO        `json:"totals"`
	Orphans     []string         `json:"orphans,omitempty"`
	Unreachable []string         `json:"unreachable,omitempty"`
	Failed      []LineFailureDTO `json:"failed,omitempty"`
}

func toBudgetResponse(projectID budget.ProjectID, f budget.Forest, rep budget.Report) BudgetResponse {
	resp := BudgetResponse{
		ProjectID: string(projectID),
		Lines:     make([]NodeDTO, len(f.Roots)),
		Totals:    toTotalsDTO(f.Totals()),
	}
	for i, root := range f.Roots {
		resp.Lines[i] = toNodeDTO(root)
	}
	for _, id := range rep.Orphans {
		resp.Orphans = append(resp.Orphans, string(id))
	}
	for _, id := range rep.Unreachable {
		resp.Unreachable = append(resp.Unreachable, string(id))
	}
	for _, fail := range rep.Failed {
		resp.Failed = append(resp.Failed, LineFailureDTO{LineID: string(fail.ID), Error: fail.Err.Error()})
	}
	return resp
}

// CreateLineRequest adds a line. An omitted sort_order appends.
type CreateLineRequest struct {
	ParentID     string          `json:"parent_id,omitempty"`
	SortOrder    *int            `json:"sort_order,omitempty"`
	Code         string          `json:"code,omitempty"`
	Name         string          `json:"name"`
	Type         string          `json:"type,omitempty"`
	Unit         string          `json:"unit,omitempty"`
	Rate         decimal.Decimal `json:"rate"`
	Quantity     decimal.Decimal `json:"quantity"`
	TaxSchemeID  string          `json:"tax_scheme_id,omitempty"`
	ContractorID string          `json:"contractor_id,omitempty"`
	Accrued      decimal.Decimal `json:"accrued"`
	Paid         decimal.Decimal `json:"paid"`
	Closed       decimal.Decimal `json:"closed"`
	Notes        string          `json:"notes,omitempty"`
}

func (req CreateLineRequest) toInput() budget.LineInput {
	return budget.LineInput{
		ParentID:     budget.LineID(req.ParentID),
		SortOrder:    req.SortOrder,
		Code:         req.Code,
		Name:         req.Name,
		Kind:         budget.Kind(req.Type),
		Unit:         req.Unit,
		Rate:         req.Rate,
		Quantity:     req.Quantity,
		TaxSchemeID:  tax.SchemeID(req.TaxSchemeID),
		ContractorID: tax.ContractorID(req.ContractorID),
		Accrued:      req.Accrued,
		Paid:         req.Paid,
		Closed:       req.Closed,
		Notes:        req.Notes,
	}
}

// UpdateLineRequest patches a line. tax_scheme_id and tax_override go
// through the tax write path together.
type UpdateLineRequest struct {
	Code         *string          `json:"code,omitempty"`
	Name         *string          `json:"name,omitempty"`
	Type         *string          `json:"type,omitempty"`
	Unit         *string          `json:"unit,omitempty"`
	Rate         *decimal.Decimal `json:"rate,omitempty"`
	Quantity     *decimal.Decimal `json:"quantity,omitempty"`
	TaxSchemeID  Nullable         `json:"tax_scheme_id"`
	TaxOverride  *bool            `json:"tax_override,omitempty"`
	ContractorID Nullable         `json:"contractor_id"`
	Accrued      *decimal.Decimal `json:"accrued,omitempty"`
	Paid         *decimal.Decimal `json:"paid,omitempty"`
	Closed       *decimal.Decimal `json:"closed,omitempty"`
	Notes        *string          `json:"notes,omitempty"`
}

func (req UpdateLineRequest) toPatch() budget.LinePatch {
	p := budget.LinePatch{
		Code:     req.Code,
		Name:     req.Name,
		Unit:     req.Unit,
		Rate:     req.Rate,
		Quantity: req.Quantity,
		Tax:      taxWrite(req.TaxSchemeID, req.TaxOverride),
		Accrued:  req.Accrued,
		Paid:     req.Paid,
		Closed:   req.Closed,
		Notes:    req.Notes,
	}
	if req.Type != nil {
		kind := budget.Kind(*req.Type)
		p.Kind = &kind
	}
	if req.ContractorID.Set {
		id := tax.ContractorID(req.ContractorID.Value)
		p.ContractorID = &id
	}
	return p
}

func taxWrite(scheme Nullable, override *bool) tax.AssignmentWrite {
	return tax.AssignmentWrite{
		SchemeSet: scheme.Set,
		SchemeID:  tax.SchemeID(scheme.Value),
		Override:  override,
	}
}

type MoveLineRequest struct {
	NewParentID string `json:"new_parent_id,omitempty"`
	SortOrder   int    `json:"sort_order"`
}

// =============================================================================
// CONTRACTS
// =============================================================================

type ContractDTO struct {
	ID            string    `json:"id"`
	Number        string    `json:"number"`
	ProjectID     string    `json:"project_id"`
	ContractorID  string    `json:"contractor_id"`
	PaymentType   string    `json:"payment_type"`
	PaymentPeriod string    `json:"payment_period,omitempty"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	SignedAt      string    `json:"signed_at,omitempty"`
	ValidFrom     string    `json:"valid_from,omitempty"`
	ValidTo       string    `json:"valid_to,omitempty"`
	TaxSchemeID   string    `json:"tax_scheme_id,omitempty"`
	TaxOverride   bool      `json:"tax_override"`
	Notes         string    `json:"notes,omitempty"`
	BudgetLineIDs []string  `json:"budget_line_ids"`
	Linked        TotalsDTO `json:"linked_totals"`
	MissingLines  []string  `json:"missing_budget_line_ids,omitempty"`
}

func toContractDTO(c contract.Contract, f budget.Forest) ContractDTO {
	schemeID, override := c.Tax.Row()
	linked, missing := c.LinkedTotals(f)
	dto := ContractDTO{
		ID:            string(c.ID),
		Number:        c.Number,
		ProjectID:     string(c.ProjectID),
		ContractorID:  string(c.ContractorID),
		PaymentType:   string(c.PaymentType),
		PaymentPeriod: c.PaymentPeriod,
		Currency:      c.Currency,
		Status:        string(c.Status),
		SignedAt:      formatDate(c.SignedAt),
		ValidFrom:     formatDate(c.ValidFrom),
		ValidTo:       formatDate(c.ValidTo),
		TaxSchemeID:   schemeID,
		TaxOverride:   override,
		Notes:         c.Notes,
		BudgetLineIDs: make([]string, len(c.BudgetLineIDs)),
		Linked:        toTotalsDTO(linked),
	}
	for i, id := range c.BudgetLineIDs {
		dto.BudgetLineIDs[i] = string(id)
	}
	for _, id := range missing {
		dto.MissingLines = append(dto.MissingLines, string(id))
	}
	return dto
}

// CreateContractRequest creates a contract. Dates use YYYY-MM-DD.
type CreateContractRequest struct {
	Number        string   `json:"number"`
	ProjectID     string   `json:"project_id"`
	ContractorID  string   `json:"contractor_id"`
	PaymentType   string   `json:"payment_type"`
	PaymentPeriod string   `json:"payment_period,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	Status        string   `json:"status,omitempty"`
	SignedAt      string   `json:"signed_at,omitempty"`
	ValidFrom     string   `json:"valid_from,omitempty"`
	ValidTo       string   `json:"valid_to,omitempty"`
	TaxSchemeID   string   `json:"tax_scheme_id,omitempty"`
	TaxOverride   bool     `json:"tax_override,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	BudgetLineIDs []string `json:"budget_line_ids,omitempty"`
}

func (req CreateContractRequest) toInput() (contract.Input, error) {
	in := contract.Input{
		Number:        req.Number,
		ProjectID:     budget.ProjectID(req.ProjectID),
		ContractorID:  tax.ContractorID(req.ContractorID),
		PaymentType:   contract.PaymentType(req.PaymentType),
		PaymentPeriod: req.PaymentPeriod,
		Currency:      req.Currency,
		Status:        contract.Status(req.Status),
		TaxSchemeID:   tax.SchemeID(req.TaxSchemeID),
		TaxOverride:   req.TaxOverride,
		Notes:         req.Notes,
		BudgetLineIDs: toLineIDs(req.BudgetLineIDs),
	}
	var err error
	if in.SignedAt, err = parseDate(req.SignedAt); err != nil {
		return in, err
	}
	if in.ValidFrom, err = parseDate(req.ValidFrom); err != nil {
		return in, err
	}
	if in.ValidTo, err = parseDate(req.ValidTo); err != nil {
		return in, err
	}
	return in, nil
}

// UpdateContractRequest patches a contract.
type UpdateContractRequest struct {
	Number        *string   `json:"number,omitempty"`
	ContractorID  *string   `json:"contractor_id,omitempty"`
	PaymentType   *string   `json:"payment_type,omitempty"`
	PaymentPeriod *string   `json:"payment_period,omitempty"`
	Currency      *string   `json:"currency,omitempty"`
	Status        *string   `json:"status,omitempty"`
	SignedAt      *string   `json:"signed_at,omitempty"`
	ValidFrom     *string   `json:"valid_from,omitempty"`
	ValidTo       *string   `json:"valid_to,omitempty"`
	TaxSchemeID   Nullable  `json:"tax_scheme_id"`
	TaxOverride   *bool     `json:"tax_override,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
	BudgetLineIDs *[]string `json:"budget_line_ids,omitempty"`
}

func (req UpdateContractRequest) toPatch() (contract.Patch, error) {
	p := contract.Patch{
		Number:        req.Number,
		PaymentPeriod: req.PaymentPeriod,
		Currency:      req.Currency,
		Tax:           taxWrite(req.TaxSchemeID, req.TaxOverride),
		Notes:         req.Notes,
	}
	if req.ContractorID != nil {
		id := tax.ContractorID(*req.ContractorID)
		p.ContractorID = &id
	}
	if req.PaymentType != nil {
		pt := contract.PaymentType(*req.PaymentType)
		p.PaymentType = &pt
	}
	if req.Status != nil {
		st := contract.Status(*req.Status)
		p.Status = &st
	}
	if req.BudgetLineIDs != nil {
		ids := toLineIDs(*req.BudgetLineIDs)
		p.BudgetLineIDs = &ids
	}
	for _, d := range []struct {
		in  *string
		out **time.Time
	}{
		{req.SignedAt, &p.SignedAt},
		{req.ValidFrom, &p.ValidFrom},
		{req.ValidTo, &p.ValidTo},
	} {
		if d.in == nil {
			continue
		}
		t, err := parseDate(*d.in)
		if err != nil {
			return p, err
		}
		*d.out = t
	}
	return p, nil
}

// =============================================================================
// PRODUCTION
// =============================================================================

type EntryDTO struct {
	ID                string          `json:"id"`
	ReportID          string          `json:"report_id"`
	ContractorID      string          `json:"contractor_id"`
	BudgetLineID      string          `json:"budget_line_id,omitempty"`
	ContractID        string          `json:"contract_id,omitempty"`
	Source            string          `json:"source"`
	ShiftStart        string          `json:"shift_start,omitempty"`
	ShiftEnd          string          `json:"shift_end,omitempty"`
	LunchBreakMinutes int             `json:"lunch_break_minutes"`
	GapMinutes        int             `json:"gap_minutes"`
	OvertimeHours     decimal.Decimal `json:"overtime_hours"`
	Equipment         string          `json:"equipment,omitempty"`
	Unit              string          `json:"unit"`
	Quantity          decimal.Decimal `json:"quantity"`
	Rate              decimal.Decimal `json:"rate"`
	TaxSchemeID       string          `json:"tax_scheme_id,omitempty"`
	AmountNet         decimal.Decimal `json:"amount_net"`
	AmountGross       decimal.Decimal `json:"amount_gross"`
	Status            string          `json:"status"`
}

func toEntryDTO(e production.Entry) EntryDTO {
	schemeID, _ := e.Tax.SchemeID()
	return EntryDTO{
		ID:                e.ID,
		ReportID:          e.ReportID,
		ContractorID:      string(e.ContractorID),
		BudgetLineID:      string(e.BudgetLineID),
		ContractID:        e.ContractID,
		Source:            string(e.Source),
		ShiftStart:        e.ShiftStart.String(),
		ShiftEnd:          e.ShiftEnd.String(),
		LunchBreakMinutes: e.LunchBreakMinutes,
		GapMinutes:        e.GapMinutes,
		OvertimeHours:     e.OvertimeHours,
		Equipment:         e.Equipment,
		Unit:              e.Unit,
		Quantity:          e.Quantity,
		Rate:              e.Rate,
		TaxSchemeID:       string(schemeID),
		AmountNet:         e.AmountNet,
		AmountGross:       e.AmountGross,
		Status:            string(e.Status),
	}
}

type ReportDTO struct {
	ID             string          `json:"id"`
	ProjectID      string          `json:"project_id"`
	ShootDayNumber int             `json:"shoot_day_number"`
	Date           string          `json:"date"`
	Location       string          `json:"location,omitempty"`
	ShootingGroup  string          `json:"shooting_group,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Status         string          `json:"status"`
	TotalNet       decimal.Decimal `json:"total_net"`
	TotalGross     decimal.Decimal `json:"total_gross"`
	OvertimeHours  decimal.Decimal `json:"overtime_hours"`
	Entries        []EntryDTO      `json:"entries"`
}

func toReportDTO(r production.Report) ReportDTO {
	net, gross := r.Totals()
	dto := ReportDTO{
		ID:             r.ID,
		ProjectID:      string(r.ProjectID),
		ShootDayNumber: r.ShootDayNumber,
		Date:           r.Date.Format(dateLayout),
		Location:       r.Location,
		ShootingGroup:  r.ShootingGroup,
		Notes:          r.Notes,
		Status:         string(r.Status),
		TotalNet:       net,
		TotalGross:     gross,
		OvertimeHours:  r.OvertimeHours(),
		Entries:        make([]EntryDTO, len(r.Entries)),
	}
	for i, e := range r.Entries {
		dto.Entries[i] = toEntryDTO(e)
	}
	return dto
}

type CreateReportRequest struct {
	ShootDayNumber int    `json:"shoot_day_number"`
	Date           string `json:"date"`
	Location       string `json:"location,omitempty"`
	ShootingGroup  string `json:"shooting_group,omitempty"`
	Notes          string `json:"notes,omitempty"`
	Status         string `json:"status,omitempty"`
}

// AddEntryRequest adds a shift. Shift times use HH:MM.
type AddEntryRequest struct {
	ContractorID      string               `json:"contractor_id"`
	BudgetLineID      string               `json:"budget_line_id,omitempty"`
	ContractID        string               `json:"contract_id,omitempty"`
	Source            string               `json:"source,omitempty"`
	ShiftStart        production.ClockTime `json:"shift_start"`
	ShiftEnd          production.ClockTime `json:"shift_end"`
	LunchBreakMinutes *int                 `json:"lunch_break_minutes,omitempty"`
	GapMinutes        int                  `json:"gap_minutes,omitempty"`
	Equipment         string               `json:"equipment,omitempty"`
	Unit              string               `json:"unit,omitempty"`
	Quantity          *decimal.Decimal     `json:"quantity,omitempty"`
	Rate              decimal.Decimal      `json:"rate"`
	TaxSchemeID       string               `json:"tax_scheme_id,omitempty"`
}

func (req AddEntryRequest) toInput() production.EntryInput {
	return production.EntryInput{
		ContractorID:      tax.ContractorID(req.ContractorID),
		BudgetLineID:      budget.LineID(req.BudgetLineID),
		ContractID:        req.ContractID,
		Source:            production.Source(req.Source),
		ShiftStart:        req.ShiftStart,
		ShiftEnd:          req.ShiftEnd,
		LunchBreakMinutes: req.LunchBreakMinutes,
		GapMinutes:        req.GapMinutes,
		Equipment:         req.Equipment,
		Unit:              req.Unit,
		Quantity:          req.Quantity,
		Rate:              req.Rate,
		TaxSchemeID:       tax.SchemeID(req.TaxSchemeID),
	}
}

// UpdateReportRequest patches a report header.
type UpdateReportRequest struct {
	ShootDayNumber *int    `json:"shoot_day_number,omitempty"`
	Date           *string `json:"date,omitempty"`
	Location       *string `json:"location,omitempty"`
	ShootingGroup  *string `json:"shooting_group,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	Status         *string `json:"status,omitempty"`
}

func (req UpdateReportRequest) toPatch() (production.ReportPatch, error) {
	p := production.ReportPatch{
		ShootDayNumber: req.ShootDayNumber,
		Location:       req.Location,
		ShootingGroup:  req.ShootingGroup,
		Notes:          req.Notes,
	}
	if req.Status != nil {
		st := production.ReportStatus(*req.Status)
		p.Status = &st
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return p, err
		}
		p.Date = date
	}
	return p, nil
}

// UpdateEntryRequest patches an entry. tax_scheme_id null makes the entry
// inherit its contractor's scheme.
type UpdateEntryRequest struct {
	ContractorID      *string               `json:"contractor_id,omitempty"`
	BudgetLineID      *string               `json:"budget_line_id,omitempty"`
	ContractID        *string               `json:"contract_id,omitempty"`
	ShiftStart        *production.ClockTime `json:"shift_start,omitempty"`
	ShiftEnd          *production.ClockTime `json:"shift_end,omitempty"`
	LunchBreakMinutes *int                  `json:"lunch_break_minutes,omitempty"`
	GapMinutes        *int                  `json:"gap_minutes,omitempty"`
	Equipment         *string               `json:"equipment,omitempty"`
	Unit              *string               `json:"unit,omitempty"`
	Quantity          *decimal.Decimal      `json:"quantity,omitempty"`
	Rate              *decimal.Decimal      `json:"rate,omitempty"`
	TaxSchemeID       Nullable              `json:"tax_scheme_id"`
	Status            *string               `json:"status,omitempty"`
}

func (req UpdateEntryRequest) toPatch() production.EntryPatch {
	p := production.EntryPatch{
		ContractID:        req.ContractID,
		ShiftStart:        req.ShiftStart,
		ShiftEnd:          req.ShiftEnd,
		LunchBreakMinutes: req.LunchBreakMinutes,
		GapMinutes:        req.GapMinutes,
		Equipment:         req.Equipment,
		Unit:              req.Unit,
		Quantity:          req.Quantity,
		Rate:              req.Rate,
	}
	if req.ContractorID != nil {
		id := tax.ContractorID(*req.ContractorID)
		p.ContractorID = &id
	}
	if req.BudgetLineID != nil {
		id := budget.LineID(*req.BudgetLineID)
		p.BudgetLineID = &id
	}
	if req.TaxSchemeID.Set {
		id := tax.SchemeID(req.TaxSchemeID.Value)
		p.TaxSchemeID = &id
	}
	if req.Status != nil {
		st := production.EntryStatus(*req.Status)
		p.Status = &st
	}
	return p
}

// OvertimeRequest asks for the overtime of a single shift. A missing
// base_shift_hours uses the server setting.
type OvertimeRequest struct {
	ShiftStart        production.ClockTime `json:"shift_start"`
	ShiftEnd          production.ClockTime `json:"shift_end"`
	LunchBreakMinutes *int                 `json:"lunch_break_minutes,omitempty"`
	GapMinutes        int                  `json:"gap_minutes,omitempty"`
	BaseShiftHours    *decimal.Decimal     `json:"base_shift_hours,omitempty"`
}

type OvertimeResponse struct {
	OvertimeHours decimal.Decimal `json:"overtime_hours"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// HELPERS
// =============================================================================

func toLineIDs(ids []string) []budget.LineID {
	out := make([]budget.LineID, len(ids))
	for i, id := range ids {
		out[i] = budget.LineID(id)
	}
	return out
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, &badRequestError{msg: "invalid date (use YYYY-MM-DD)", err: err}
	}
	return &t, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
