/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos. Each scenario creates contractors, a project budget and,
	for the larger ones, contracts and shoot-day reports.

AVAILABLE SCENARIOS:

	feature-film:     Default chart priced for a 30-day shoot, one contract,
	                  one shoot day with overtime
	tax-inheritance:  Custom scheme, contractor defaults, line overrides
	blank-template:   Default chart, every rate zero

HOW SCENARIOS WORK:
 1. Reset database (clear all data, keep system schemes)
 2. Create contractors with the scheme suggested by their legal form
 3. Create the project and load the default chart
 4. Price lines through the budget service (tax write path included)
 5. Optionally add contracts and shoot-day reports

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "feature-film"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ResetDatabase handler
  - budget/template.go: Default chart
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yomi/budget-engine/budget"
	"github.com/yomi/budget-engine/contract"
	"github.com/yomi/budget-engine/production"
	"github.com/yomi/budget-engine/store/sqlite"
	"github.com/yomi/budget-engine/tax"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "feature-film",
		Name:        "Feature Film",
		Description: "Default chart priced for a 30-day shoot, a camera contract and one shoot day with overtime",
	},
	{
		ID:          "tax-inheritance",
		Name:        "Tax Inheritance",
		Description: "Custom scheme, contractor defaults and per-line overrides",
	},
	{
		ID:          "blank-template",
		Name:        "Blank Template",
		Description: "Default film chart with every rate at zero",
	},
}

var scenarioLoaders = map[string]func(context.Context, *Handler) (budget.ProjectID, error){
	"feature-film":    loadFeatureFilmScenario,
	"tax-inheritance": loadTaxInheritanceScenario,
	"blank-template":  loadBlankTemplateScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario resets the database and loads a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	projectID, err := load(ctx, h)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.logger.Info("scenario loaded",
		zap.String("scenario_id", req.ScenarioID),
		zap.String("project_id", string(projectID)))
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "loaded",
		"scenario_id": req.ScenarioID,
		"project_id":  string(projectID),
	})
}

// =============================================================================
// SCENARIO: FEATURE FILM
// =============================================================================

func loadFeatureFilmScenario(ctx context.Context, h *Handler) (budget.ProjectID, error) {
	if err := seedContractors(ctx, h.Store); err != nil {
		return "", err
	}
	projectID, lines, err := seedProject(ctx, h, "p-feature", "Полный метр")
	if err != nil {
		return "", err
	}

	priced := []linePrice{
		{"Режиссёр-постановщик", "1500000", "1", "c-director"},
		{"Оператор-постановщик", "45000", "30", "c-dop"},
		{"Ассистент режиссёра", "6000", "30", "c-assistant"},
		{"Аренда света", "120000", "30", "c-light"},
		{"Генератор", "25000", "30", "c-light"},
	}
	if err := priceLines(ctx, h, projectID, lines, priced); err != nil {
		return "", err
	}
	if _, err := h.Budget.SaveLimits(ctx, projectID); err != nil {
		return "", err
	}

	signed := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	dop, err := h.Contracts.Create(ctx, contract.Input{
		Number:        "ДГ-001",
		ProjectID:     projectID,
		ContractorID:  "c-dop",
		PaymentType:   contract.PaymentPerShift,
		Status:        contract.StatusActive,
		SignedAt:      &signed,
		BudgetLineIDs: []budget.LineID{lines["Оператор-постановщик"]},
	})
	if err != nil {
		return "", fmt.Errorf("create contract: %w", err)
	}

	report, err := h.Production.CreateReport(ctx, production.ReportInput{
		ProjectID:      projectID,
		ShootDayNumber: 1,
		Date:           time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Location:       "Павильон 3",
		ShootingGroup:  "Основная",
	})
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}

	entries := []production.EntryInput{
		{
			ContractorID: "c-dop",
			BudgetLineID: lines["Оператор-постановщик"],
			ContractID:   string(dop.ID),
			ShiftStart:   production.Clock(8, 0),
			ShiftEnd:     production.Clock(23, 0),
			Rate:         decimal.NewFromInt(45000),
		},
		{
			ContractorID: "c-assistant",
			BudgetLineID: lines["Ассистент режиссёра"],
			ShiftStart:   production.Clock(7, 0),
			ShiftEnd:     production.Clock(20, 0),
			Rate:         decimal.NewFromInt(6000),
		},
	}
	for _, in := range entries {
		if _, err := h.Production.AddEntry(ctx, report.ID, in); err != nil {
			return "", fmt.Errorf("add entry for %s: %w", in.ContractorID, err)
		}
	}
	return projectID, nil
}

// =============================================================================
// SCENARIO: TAX INHERITANCE
// =============================================================================

const usnSchemeJSON = `{
	"id": "usn-income",
	"name": "УСН доходы 6% + взносы 1%",
	"components": [
		{"name": "УСН", "rate": "0.06", "mode": "INTERNAL", "recipient": "CONTRACTOR"},
		{"name": "Взносы", "rate": "0.01", "mode": "EXTERNAL", "recipient": "BUDGET"}
	]
}`

func loadTaxInheritanceScenario(ctx context.Context, h *Handler) (budget.ProjectID, error) {
	scheme, err := h.Factory.ParseScheme([]byte(usnSchemeJSON))
	if err != nil {
		return "", err
	}
	if err := h.Store.SaveScheme(ctx, scheme); err != nil {
		return "", err
	}
	if err := seedContractors(ctx, h.Store); err != nil {
		return "", err
	}
	projectID, lines, err := seedProject(ctx, h, "p-tax", "Налоговые схемы")
	if err != nil {
		return "", err
	}

	// Same contractor and rate on every line, different assignments.
	priced := []linePrice{
		{"Оператор-постановщик", "50000", "10", "c-dop"},
		{"Фокус-пуллер", "50000", "10", "c-dop"},
		{"Кран", "50000", "10", "c-dop"},
		{"Стедикам", "50000", "10", ""},
	}
	if err := priceLines(ctx, h, projectID, lines, priced); err != nil {
		return "", err
	}

	pinned := true
	writes := []struct {
		name  string
		write tax.AssignmentWrite
	}{
		// Explicit custom scheme.
		{"Фокус-пуллер", tax.AssignmentWrite{SchemeSet: true, SchemeID: scheme.ID, Override: &pinned}},
		// Pinned to the contractor's current default.
		{"Кран", tax.AssignmentWrite{Override: &pinned}},
		// No contractor, explicit VAT.
		{"Стедикам", tax.AssignmentWrite{SchemeSet: true, SchemeID: tax.SchemeNDS, Override: &pinned}},
	}
	for _, wr := range writes {
		if _, err := h.Budget.UpdateLine(ctx, projectID, lines[wr.name], budget.LinePatch{Tax: wr.write}); err != nil {
			return "", fmt.Errorf("assign tax to %s: %w", wr.name, err)
		}
	}
	return projectID, nil
}

// =============================================================================
// SCENARIO: BLANK TEMPLATE
// =============================================================================

func loadBlankTemplateScenario(ctx context.Context, h *Handler) (budget.ProjectID, error) {
	projectID, _, err := seedProject(ctx, h, "p-blank", "Новый проект")
	return projectID, err
}

// =============================================================================
// HELPERS
// =============================================================================

type linePrice struct {
	name       string
	rate       string
	quantity   string
	contractor tax.ContractorID
}

var demoContractors = []contract.Contractor{
	{ID: "c-director", FullName: "Иванов Иван Иванович", Type: contract.ContractorSZ},
	{ID: "c-dop", FullName: "Петров Пётр Петрович", Type: contract.ContractorIP},
	{ID: "c-light", FullName: "ООО «СветПрокат»", Type: contract.ContractorOOO},
	{ID: "c-assistant", FullName: "Сидорова Анна Сергеевна", Type: contract.ContractorFL},
}

func seedContractors(ctx context.Context, store *sqlite.Store) error {
	for _, c := range demoContractors {
		c.TaxSchemeID = c.Type.SuggestedScheme()
		if err := store.SaveContractor(ctx, c); err != nil {
			return fmt.Errorf("save contractor %s: %w", c.ID, err)
		}
	}
	return nil
}

// seedProject creates a project with the default chart and returns the
// line ids keyed by name.
func seedProject(ctx context.Context, h *Handler, id budget.ProjectID, name string) (budget.ProjectID, map[string]budget.LineID, error) {
	if err := h.Store.SaveProject(ctx, sqlite.Project{ID: id, Name: name}); err != nil {
		return "", nil, err
	}
	lines, err := h.Budget.LoadTemplate(ctx, id, budget.DefaultTemplate())
	if err != nil {
		return "", nil, err
	}

	byName := make(map[string]budget.LineID, len(lines))
	for _, l := range lines {
		byName[l.Name] = l.ID
	}
	return id, byName, nil
}

func priceLines(ctx context.Context, h *Handler, projectID budget.ProjectID, lines map[string]budget.LineID, prices []linePrice) error {
	for _, p := range prices {
		id, ok := lines[p.name]
		if !ok {
			return fmt.Errorf("template has no line %q", p.name)
		}
		rate := decimal.RequireFromString(p.rate)
		qty := decimal.RequireFromString(p.quantity)
		patch := budget.LinePatch{Rate: &rate, Quantity: &qty}
		if p.contractor != "" {
			contractor := p.contractor
			patch.ContractorID = &contractor
		}
		if _, err := h.Budget.UpdateLine(ctx, projectID, id, patch); err != nil {
			return fmt.Errorf("price %s: %w", p.name, err)
		}
	}
	return nil
}
