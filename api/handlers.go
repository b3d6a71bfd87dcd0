/*
handlers.go - HTTP API handlers for the budget engine

PURPOSE:
  Exposes tax calculation, the budget tree, contracts and shoot-day reports
  via REST API. Handles HTTP request/response, JSON serialization, and
  delegates to the domain services.

ENDPOINTS:
  Tax:
    GET    /api/tax-schemes                      List schemes (system first)
    POST   /api/tax-schemes                      Create or replace a custom scheme
    GET    /api/tax-schemes/{id}                 Get one scheme
    DELETE /api/tax-schemes/{id}                 Delete a custom scheme
    POST   /api/tax/calc                         Value rate x quantity

  Contractors:
    GET    /api/contractors                      List contractors
    POST   /api/contractors                      Create or replace a contractor
    GET    /api/contractors/{id}                 Get one contractor
    PATCH  /api/contractors/{id}                 Update a contractor

  Budget:
    GET    /api/projects                         List projects
    POST   /api/projects                         Create a project
    GET    /api/projects/{id}                    Get a project
    PATCH  /api/projects/{id}                    Rename or change status
    DELETE /api/projects/{id}                    Delete with budget, contracts, reports
    GET    /api/projects/{id}/budget             Valued tree with totals
    POST   /api/projects/{id}/budget/lines       Add a line
    PATCH  /api/projects/{id}/budget/lines/{lid} Update a line
    DELETE /api/projects/{id}/budget/lines/{lid} Delete a line and its subtree
    POST   /api/projects/{id}/budget/lines/{lid}/move
    POST   /api/projects/{id}/budget/from-template
    POST   /api/projects/{id}/budget/save-limit  Freeze totals as limits

  Contracts:
    GET    /api/projects/{id}/contracts          List contracts of a project
    POST   /api/contracts                        Create a contract
    GET    /api/contracts/{id}                   Get a contract
    PATCH  /api/contracts/{id}                   Update a contract
    DELETE /api/contracts/{id}                   Delete a contract

  Production:
    POST   /api/production/overtime              Overtime of one shift
    GET    /api/projects/{id}/reports            List shoot-day reports
    POST   /api/projects/{id}/reports            Create a report
    GET    /api/reports/{id}                     Report with entries
    PATCH  /api/reports/{id}                     Update the report header
    DELETE /api/reports/{id}                     Delete a report and its entries
    POST   /api/reports/{id}/entries             Add a valued entry
    PATCH  /api/entries/{id}                     Update and revalue an entry
    DELETE /api/entries/{id}                     Delete an entry

  Scenarios:
    GET    /api/scenarios                        List demo scenarios
    POST   /api/scenarios/load                   Load a demo scenario
    POST   /api/scenarios/reset                  Clear all data

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found, including an unknown tax scheme on write
  - 409: Rejected structural change (cycle), system scheme write
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yomi/budget-engine/budget"
	"github.com/yomi/budget-engine/contract"
	"github.com/yomi/budget-engine/factory"
	"github.com/yomi/budget-engine/production"
	"github.com/yomi/budget-engine/store/sqlite"
	"github.com/yomi/budget-engine/tax"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Factory    *factory.Factory
	Budget     *budget.Service
	Contracts  *contract.Service
	Production *production.Service

	logger *zap.Logger
}

// NewHandler wires the services on top of store. A non-positive
// baseShiftHours uses the production default.
func NewHandler(store *sqlite.Store, logger *zap.Logger, baseShiftHours decimal.Decimal) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:      store,
		Factory:    factory.New(),
		Budget:     budget.NewService(store, store, logger),
		Contracts:  contract.NewService(store, store, logger),
		Production: production.NewService(store, store, logger, baseShiftHours),
		logger:     logger,
	}
}

// =============================================================================
// TAX HANDLERS
// =============================================================================

// ListSchemes returns every scheme, system schemes first.
func (h *Handler) ListSchemes(w http.ResponseWriter, r *http.Request) {
	schemes, err := h.Store.ListSchemes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tax schemes", err)
		return
	}

	dtos := make([]factory.SchemeJSON, len(schemes))
	for i, s := range schemes {
		dtos[i] = factory.SchemeToJSON(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetScheme returns a single scheme.
func (h *Handler) GetScheme(w http.ResponseWriter, r *http.Request) {
	scheme, err := h.Store.GetScheme(r.Context(), tax.SchemeID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get tax scheme", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.SchemeToJSON(scheme))
}

// CreateScheme stores a custom scheme parsed from the request body.
func (h *Handler) CreateScheme(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	scheme, err := h.Factory.ParseScheme(body)
	if err != nil {
		writeDomainError(w, "Invalid tax scheme", err)
		return
	}
	if err := h.Store.SaveScheme(r.Context(), scheme); err != nil {
		writeDomainError(w, "Failed to save tax scheme", err)
		return
	}

	h.logger.Info("tax scheme saved",
		zap.String("scheme_id", string(scheme.ID)),
		zap.Int("components", len(scheme.Components)))
	writeJSON(w, http.StatusCreated, factory.SchemeToJSON(scheme))
}

// DeleteScheme removes a custom scheme. System schemes answer 409.
func (h *Handler) DeleteScheme(w http.ResponseWriter, r *http.Request) {
	id := tax.SchemeID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteScheme(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete tax scheme", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// CalcTax values rate x quantity.
// POST /api/tax/calc
func (h *Handler) CalcTax(w http.ResponseWriter, r *http.Request) {
	var req CalcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var components []tax.Component
	switch {
	case len(req.Components) > 0:
		scheme, err := h.Factory.SchemeFromJSON(factory.SchemeJSON{Name: "inline", Components: req.Components})
		if err != nil {
			writeDomainError(w, "Invalid tax components", err)
			return
		}
		components = scheme.Ordered()
	case req.SchemeID != "":
		scheme, err := h.Store.GetScheme(r.Context(), tax.SchemeID(req.SchemeID))
		if err != nil {
			writeDomainError(w, "Failed to load tax scheme", err)
			return
		}
		components = scheme.Ordered()
	}

	res, err := tax.Calc(req.Rate, req.Quantity, components)
	if err != nil {
		writeDomainError(w, "Calculation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toCalcResultDTO(res))
}

// =============================================================================
// CONTRACTOR HANDLERS
// =============================================================================

// ListContractors returns all contractors ordered by name.
func (h *Handler) ListContractors(w http.ResponseWriter, r *http.Request) {
	contractors, err := h.Store.ListContractors(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list contractors", err)
		return
	}

	dtos := make([]ContractorDTO, len(contractors))
	for i, c := range contractors {
		dtos[i] = toContractorDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetContractor returns a single contractor.
func (h *Handler) GetContractor(w http.ResponseWriter, r *http.Request) {
	c, err := h.Store.GetContractor(r.Context(), tax.ContractorID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get contractor", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractorDTO(c))
}

// CreateContractor stores a contractor. A missing id is generated.
func (h *Handler) CreateContractor(w http.ResponseWriter, r *http.Request) {
	var req ContractorDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	c := contract.Contractor{
		ID:          tax.ContractorID(req.ID),
		FullName:    req.FullName,
		Type:        contract.ContractorType(req.Type),
		TaxSchemeID: tax.SchemeID(req.TaxSchemeID),
		Phone:       req.Phone,
		Email:       req.Email,
		Notes:       req.Notes,
	}
	if c.ID == "" {
		c.ID = tax.ContractorID(newID())
	}
	if err := c.Validate(); err != nil {
		writeDomainError(w, "Invalid contractor", err)
		return
	}
	if err := h.Store.SaveContractor(r.Context(), c); err != nil {
		writeDomainError(w, "Failed to save contractor", err)
		return
	}
	writeJSON(w, http.StatusCreated, toContractorDTO(c))
}

// UpdateContractor patches a contractor. Lines and entries inheriting its
// default scheme pick up the change on their next valuation.
func (h *Handler) UpdateContractor(w http.ResponseWriter, r *http.Request) {
	var req UpdateContractorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	c, err := h.Store.GetContractor(r.Context(), tax.ContractorID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get contractor", err)
		return
	}
	c = req.apply(c)
	if err := c.Validate(); err != nil {
		writeDomainError(w, "Invalid contractor", err)
		return
	}
	if err := h.Store.SaveContractor(r.Context(), c); err != nil {
		writeDomainError(w, "Failed to save contractor", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractorDTO(c))
}

// =============================================================================
// PROJECT / BUDGET HANDLERS
// =============================================================================

// ListProjects returns all projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list projects", err)
		return
	}

	dtos := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		dtos[i] = toProjectDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProject creates a project. A missing id is generated.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Project name is required", nil)
		return
	}

	p := sqlite.Project{ID: budget.ProjectID(req.ID), Name: req.Name}
	if p.ID == "" {
		p.ID = budget.ProjectID(newID())
	}
	if err := h.Store.SaveProject(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create project", err)
		return
	}

	saved, err := h.Store.GetProject(r.Context(), p.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load project", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectDTO(saved))
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetProject(r.Context(), budget.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get project", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(p))
}

// UpdateProject renames a project or changes its status.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := h.Store.GetProject(r.Context(), budget.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get project", err)
		return
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			writeError(w, http.StatusBadRequest, "Project name is required", nil)
			return
		}
		p.Name = *req.Name
	}
	if req.Status != nil {
		p.Status = *req.Status
	}
	if err := h.Store.SaveProject(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update project", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(p))
}

// DeleteProject removes a project with its budget, contracts and reports.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id := budget.ProjectID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteProject(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete project", err)
		return
	}
	h.logger.Info("project deleted", zap.String("project_id", string(id)))
	w.WriteHeader(http.StatusNoContent)
}

// GetBudget returns the valued tree of a project.
// GET /api/projects/{id}/budget
func (h *Handler) GetBudget(w http.ResponseWriter, r *http.Request) {
	projectID := budget.ProjectID(chi.URLParam(r, "id"))

	forest, report, err := h.Budget.Tree(r.Context(), projectID)
	if err != nil {
		writeDomainError(w, "Failed to build budget", err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(projectID, forest, report))
}

// CreateLine adds a budget line.
func (h *Handler) CreateLine(w http.ResponseWriter, r *http.Request) {
	projectID := budget.ProjectID(chi.URLParam(r, "id"))

	var req CreateLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	line, err := h.Budget.CreateLine(r.Context(), projectID, req.toInput())
	if err != nil {
		writeDomainError(w, "Failed to create line", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLineDTO(line))
}

// UpdateLine patches a budget line.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	projectID := budget.ProjectID(chi.URLParam(r, "id"))
	lineID := budget.LineID(chi.URLParam(r, "lineID"))

	var req UpdateLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	line, err := h.Budget.UpdateLine(r.Context(), projectID, lineID, req.toPatch())
	if err != nil {
		writeDomainError(w, "Failed to update line", err)
		return
	}
	writeJSON(w, http.StatusOK, toLineDTO(line))
}

// MoveLine re-parents a line and sets its sort order.
func (h *Handler) MoveLine(w http.ResponseWriter, r *http.Request) {
	projectID := budget.ProjectID(chi.URLParam(r, "id"))
	lineID := budget.LineID(chi.URLParam(r, "lineID"))

	var req MoveLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	moved, err := h.Budget.MoveLine(r.Context(), projectID, lineID, budget.LineID(req.NewParentID), req.SortOrder)
	if err != nil {
		writeDomainError(w, "Failed to move line", err)
		return
	}
	writeJSON(w, http.StatusOK, toLineDTOs(moved))
}

// DeleteLine removes a line and its descendants.
func (h *Handler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	projectID := budget.ProjectID(chi.URLParam(r, "id"))
	lineID := budget.LineID(chi.URLParam(r, "lineID"))

	deleted, err := h.Budget.DeleteLine(r.Context(), projectID, lineID)
	if err != nil {
		writeDomainError(w, "Failed to delete line", err)
		return
	}

	ids := make([]string, len(deleted))
	for i, id := range deleted {
		ids[i] = string(id)
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": ids})
}

// LoadTemplate replaces the project's lines with a template. An empty
// body loads the default film template.
// POST /api/projects/{id}/budget/from-template
func (h *Handler) LoadTemplate(w http.ResponseWriter, r *http.Request) {
	projectID := budget.ProjectID(chi.URLParam(r, "id"))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	items := budget.DefaultTemplate()
	if len(strings.TrimSpace(string(body))) > 0 {
		if items, err = h.Factory.ParseTemplate(body); err != nil {
			writeDomainError(w, "Invalid template", err)
			return
		}
	}

	lines, err := h.Budget.LoadTemplate(r.Context(), projectID, items)
	if err != nil {
		writeDomainError(w, "Failed to load template", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLineDTOs(lines))
}

// SaveLimits copies each node's current total into its limit amount.
// POST /api/projects/{id}/budget/save-limit
func (h *Handler) SaveLimits(w http.ResponseWriter, r *http.Request) {
	projectID := budget.ProjectID(chi.URLParam(r, "id"))

	n, err := h.Budget.SaveLimits(r.Context(), projectID)
	if err != nil {
		writeDomainError(w, "Failed to save limits", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"saved": n})
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// ListContracts returns the contracts of a project.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	projectID := budget.ProjectID(chi.URLParam(r, "id"))

	contracts, err := h.Contracts.List(r.Context(), contract.Filter{
		ProjectID:    projectID,
		ContractorID: tax.ContractorID(r.URL.Query().Get("contractor_id")),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list contracts", err)
		return
	}
	forest, _, err := h.Budget.Tree(r.Context(), projectID)
	if err != nil {
		writeDomainError(w, "Failed to build budget", err)
		return
	}

	dtos := make([]ContractDTO, len(contracts))
	for i, c := range contracts {
		dtos[i] = toContractDTO(c, forest)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetContract returns one contract with the totals of its linked lines.
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	c, err := h.Contracts.Get(r.Context(), contract.ID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get contract", err)
		return
	}
	h.writeContract(w, r, http.StatusOK, c)
}

// CreateContract creates a contract.
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var req CreateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeDomainError(w, "Invalid contract", err)
		return
	}

	c, err := h.Contracts.Create(r.Context(), in)
	if err != nil {
		writeDomainError(w, "Failed to create contract", err)
		return
	}
	h.writeContract(w, r, http.StatusCreated, c)
}

// UpdateContract patches a contract.
func (h *Handler) UpdateContract(w http.ResponseWriter, r *http.Request) {
	var req UpdateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeDomainError(w, "Invalid contract", err)
		return
	}

	c, err := h.Contracts.Update(r.Context(), contract.ID(chi.URLParam(r, "id")), patch)
	if err != nil {
		writeDomainError(w, "Failed to update contract", err)
		return
	}
	h.writeContract(w, r, http.StatusOK, c)
}

// DeleteContract removes a contract and its line links.
func (h *Handler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	if err := h.Contracts.Delete(r.Context(), contract.ID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete contract", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) writeContract(w http.ResponseWriter, r *http.Request, status int, c contract.Contract) {
	forest, _, err := h.Budget.Tree(r.Context(), c.ProjectID)
	if err != nil {
		writeDomainError(w, "Failed to build budget", err)
		return
	}
	writeJSON(w, status, toContractDTO(c, forest))
}

// =============================================================================
// PRODUCTION HANDLERS
// =============================================================================

// Overtime returns the overtime hours of one shift.
// POST /api/production/overtime
func (h *Handler) Overtime(w http.ResponseWriter, r *http.Request) {
	var req OvertimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	lunch := production.DefaultLunchMinutes
	if req.LunchBreakMinutes != nil {
		lunch = *req.LunchBreakMinutes
	}
	base := h.Production.BaseShiftHours()
	if req.BaseShiftHours != nil {
		base = *req.BaseShiftHours
	}
	if lunch < 0 || req.GapMinutes < 0 || !base.IsPositive() {
		writeError(w, http.StatusBadRequest, "Breaks must be non-negative and the base shift positive", nil)
		return
	}

	writeJSON(w, http.StatusOK, OvertimeResponse{
		OvertimeHours: production.Overtime(req.ShiftStart, req.ShiftEnd, lunch, req.GapMinutes, base),
	})
}

// ListReports returns the shoot-day reports of a project.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.Production.ListReports(r.Context(), budget.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reports", err)
		return
	}

	dtos := make([]ReportDTO, len(reports))
	for i, rep := range reports {
		dtos[i] = toReportDTO(rep)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateReport opens a shoot-day report.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeDomainError(w, "Invalid report", err)
		return
	}

	in := production.ReportInput{
		ProjectID:      budget.ProjectID(chi.URLParam(r, "id")),
		ShootDayNumber: req.ShootDayNumber,
		Location:       req.Location,
		ShootingGroup:  req.ShootingGroup,
		Notes:          req.Notes,
		Status:         production.ReportStatus(req.Status),
	}
	if date != nil {
		in.Date = *date
	}

	rep, err := h.Production.CreateReport(r.Context(), in)
	if err != nil {
		writeDomainError(w, "Failed to create report", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReportDTO(rep))
}

// GetReport returns a report with its entries and totals.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Production.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get report", err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(rep))
}

// UpdateReport patches the header of a report.
func (h *Handler) UpdateReport(w http.ResponseWriter, r *http.Request) {
	var req UpdateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeDomainError(w, "Invalid report", err)
		return
	}

	rep, err := h.Production.UpdateReport(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeDomainError(w, "Failed to update report", err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(rep))
}

// DeleteReport removes a report and its entries.
func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	if err := h.Production.DeleteReport(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete report", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddEntry values a shift and appends it to a report.
func (h *Handler) AddEntry(w http.ResponseWriter, r *http.Request) {
	var req AddEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDomainError(w, "Invalid request body", &badRequestError{msg: "malformed JSON", err: err})
		return
	}

	entry, err := h.Production.AddEntry(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		writeDomainError(w, "Failed to add entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(entry))
}

// UpdateEntry patches an entry and revalues it when its rate, quantity,
// scheme or contractor change.
// PATCH /api/entries/{id}
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDomainError(w, "Invalid request body", &badRequestError{msg: "malformed JSON", err: err})
		return
	}

	entry, err := h.Production.UpdateEntry(r.Context(), chi.URLParam(r, "id"), req.toPatch())
	if err != nil {
		writeDomainError(w, "Failed to update entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.Production.DeleteEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetDatabase clears all data except the system schemes.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func newID() string { return uuid.NewString() }

// badRequestError marks malformed input detected in the API layer.
type badRequestError struct {
	msg string
	err error
}

func (e *badRequestError) Error() string { return e.msg + ": " + e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

// writeDomainError maps domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	var bad *badRequestError
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case budget.IsConflict(err), errors.Is(err, tax.ErrSystemScheme):
		return http.StatusConflict
	case budget.IsNotFound(err),
		errors.Is(err, sqlite.ErrNotFound),
		errors.Is(err, contract.ErrContractNotFound),
		errors.Is(err, contract.ErrContractorNotFound),
		errors.Is(err, production.ErrReportNotFound),
		errors.Is(err, production.ErrEntryNotFound):
		return http.StatusNotFound
	case budget.IsClientError(err),
		errors.Is(err, factory.ErrInvalidTemplate),
		errors.Is(err, contract.ErrInvalidContract),
		errors.Is(err, contract.ErrInvalidContractor),
		errors.Is(err, production.ErrInvalidReport),
		errors.Is(err, production.ErrInvalidEntry),
		errors.Is(err, production.ErrInvalidClock):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
