/*
handlers_test.go - HTTP tests for API handlers

Tests for:
- Tax calculator and scheme catalog endpoints
- Budget tree writes and the valued tree response
- Contracts, shoot-day reports and overtime
- Error status mapping
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yomi/budget-engine/budget"
	"github.com/yomi/budget-engine/store/sqlite"
)

func newTestServer(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, zap.NewNop(), decimal.Zero)
	return h, NewRouter(h, []string{"http://localhost:5173"})
}

// call sends body (a string is sent as is, anything else as JSON).
func call(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msg ...any) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), append([]any{"want %s, got %s", want, got}, msg...)...)
}

func findNode(nodes []NodeDTO, name string) *NodeDTO {
	for i := range nodes {
		if nodes[i].Name == name {
			return &nodes[i]
		}
		if n := findNode(nodes[i].Children, name); n != nil {
			return n
		}
	}
	return nil
}

// =============================================================================
// TAX
// =============================================================================

func TestCalcTax_StoredScheme(t *testing.T) {
	_, srv := newTestServer(t)

	rec := call(t, srv, http.MethodPost, "/api/tax/calc", `{"rate":"500","quantity":"1","scheme_id":"sys-nds"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[CalcResultDTO](t, rec)
	assertDecimal(t, "500", res.Subtotal)
	assertDecimal(t, "100", res.TaxAmount)
	assertDecimal(t, "600", res.Total)
	assertDecimal(t, "100", res.TaxBudget)
	assertDecimal(t, "0", res.TaxContractor)
	require.Len(t, res.Breakdown, 1)
	assert.Equal(t, "НДС", res.Breakdown[0].Name)
}

func TestCalcTax_InlineComponents(t *testing.T) {
	_, srv := newTestServer(t)

	rec := call(t, srv, http.MethodPost, "/api/tax/calc", `{
		"rate": "100", "quantity": "2",
		"components": [{"name": "VAT", "rate": "0.2", "mode": "EXTERNAL"}]
	}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[CalcResultDTO](t, rec)
	assertDecimal(t, "200", res.Subtotal)
	assertDecimal(t, "240", res.Total)
	assertDecimal(t, "120", res.PerUnit.Gross)
}

func TestCalcTax_NoScheme(t *testing.T) {
	_, srv := newTestServer(t)

	rec := call(t, srv, http.MethodPost, "/api/tax/calc", `{"rate":"333.335","quantity":"3"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeBody[CalcResultDTO](t, rec)
	assertDecimal(t, "0", res.TaxAmount)
	assert.True(t, res.Subtotal.Equal(res.Total))
}

func TestCalcTax_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{"rate":`, http.StatusBadRequest},
		{"unknown scheme", `{"rate":"1","quantity":"1","scheme_id":"nope"}`, http.StatusNotFound},
		{"bad component", `{"rate":"1","quantity":"1","components":[{"name":"x","rate":"1.5","mode":"EXTERNAL"}]}`, http.StatusBadRequest},
		{"missing mode", `{"rate":"1","quantity":"1","components":[{"name":"x","rate":"0.1"}]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newTestServer(t)
			rec := call(t, srv, http.MethodPost, "/api/tax/calc", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeBody[ErrorResponse](t, rec).Error)
		})
	}
}

func TestSchemes_Lifecycle(t *testing.T) {
	_, srv := newTestServer(t)

	// GIVEN: a custom scheme
	rec := call(t, srv, http.MethodPost, "/api/tax-schemes", `{
		"id": "usn", "name": "УСН 6%",
		"components": [{"name": "УСН", "rate": "0.06", "mode": "INTERNAL", "recipient": "CONTRACTOR"}]
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN: listing
	rec = call(t, srv, http.MethodGet, "/api/tax-schemes", nil)

	// THEN: system schemes come first, the custom one last
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]map[string]any](t, rec)
	require.NotEmpty(t, list)
	assert.Equal(t, true, list[0]["is_system"])
	assert.Equal(t, "usn", list[len(list)-1]["id"])

	rec = call(t, srv, http.MethodGet, "/api/tax-schemes/usn", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, srv, http.MethodDelete, "/api/tax-schemes/usn", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = call(t, srv, http.MethodGet, "/api/tax-schemes/usn", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSchemes_SystemIsReadOnly(t *testing.T) {
	_, srv := newTestServer(t)

	rec := call(t, srv, http.MethodDelete, "/api/tax-schemes/sys-nds", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(t, srv, http.MethodPost, "/api/tax-schemes", `{
		"id": "sys-nds", "name": "НДС 10%",
		"components": [{"name": "НДС", "rate": "0.10", "mode": "EXTERNAL"}]
	}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(t, srv, http.MethodDelete, "/api/tax-schemes/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// BUDGET
// =============================================================================

func createLine(t *testing.T, srv http.Handler, projectID string, req CreateLineRequest) LineDTO {
	t.Helper()
	rec := call(t, srv, http.MethodPost, "/api/projects/"+projectID+"/budget/lines", req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[LineDTO](t, rec)
}

func TestBudget_TreeAndTotals(t *testing.T) {
	_, srv := newTestServer(t)

	// GIVEN: a group with a taxed and an untaxed item
	rec := call(t, srv, http.MethodPost, "/api/projects", CreateProjectRequest{ID: "p1", Name: "Film"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	group := createLine(t, srv, "p1", CreateLineRequest{Name: "Camera", Type: "GROUP"})
	taxed := createLine(t, srv, "p1", CreateLineRequest{
		ParentID: group.ID, Name: "DOP", Type: "ITEM",
		Rate: decimal.NewFromInt(500), Quantity: decimal.NewFromInt(2), TaxSchemeID: "sys-nds",
	})
	createLine(t, srv, "p1", CreateLineRequest{
		ParentID: group.ID, Name: "Crane", Type: "ITEM",
		Rate: decimal.NewFromInt(300), Quantity: decimal.NewFromInt(1),
	})
	assert.Equal(t, 1, taxed.Level)
	assert.True(t, taxed.TaxOverride)

	// WHEN
	rec = call(t, srv, http.MethodGet, "/api/projects/p1/budget", nil)

	// THEN: the group rolls up both children
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[BudgetResponse](t, rec)
	require.Len(t, resp.Lines, 1)
	assertDecimal(t, "1300", resp.Totals.Subtotal)
	assertDecimal(t, "200", resp.Totals.TaxAmount)
	assertDecimal(t, "1500", resp.Totals.Total)

	camera := resp.Lines[0]
	assertDecimal(t, "1500", camera.Total)
	require.Len(t, camera.Children, 2)
	dop := findNode(resp.Lines, "DOP")
	require.NotNil(t, dop)
	assert.Equal(t, "sys-nds", dop.EffectiveTaxSchemeID)
	assert.Len(t, dop.Breakdown, 1)
	assert.Empty(t, resp.Failed)
}

func TestBudget_UpdateClearsTax(t *testing.T) {
	_, srv := newTestServer(t)
	line := createLine(t, srv, "p1", CreateLineRequest{
		Name: "DOP", Rate: decimal.NewFromInt(500), Quantity: decimal.NewFromInt(2), TaxSchemeID: "sys-nds",
	})

	// WHEN: the scheme is cleared with an explicit null
	rec := call(t, srv, http.MethodPatch, "/api/projects/p1/budget/lines/"+line.ID, `{"tax_scheme_id": null}`)

	// THEN: the line inherits again, and with no contractor has no tax
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[LineDTO](t, rec)
	assert.Empty(t, updated.TaxSchemeID)
	assert.False(t, updated.TaxOverride)

	resp := decodeBody[BudgetResponse](t, call(t, srv, http.MethodGet, "/api/projects/p1/budget", nil))
	assertDecimal(t, "1000", resp.Totals.Total)
}

func TestBudget_UpdateKeepsAbsentFields(t *testing.T) {
	_, srv := newTestServer(t)
	line := createLine(t, srv, "p1", CreateLineRequest{
		Name: "DOP", Rate: decimal.NewFromInt(500), Quantity: decimal.NewFromInt(2), TaxSchemeID: "sys-nds",
	})

	rec := call(t, srv, http.MethodPatch, "/api/projects/p1/budget/lines/"+line.ID, `{"quantity": "3"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[LineDTO](t, rec)
	assertDecimal(t, "3", updated.Quantity)
	assertDecimal(t, "500", updated.Rate)
	assert.Equal(t, "sys-nds", updated.TaxSchemeID)
}

func TestBudget_ContractorDefault(t *testing.T) {
	_, srv := newTestServer(t)

	// GIVEN: a self-employed contractor with a default scheme
	rec := call(t, srv, http.MethodPost, "/api/contractors", ContractorDTO{
		ID: "c-sz", FullName: "Иванов", Type: "SZ", TaxSchemeID: "sys-sz",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN: a line names the contractor without a scheme
	createLine(t, srv, "p1", CreateLineRequest{
		Name: "Director", Rate: decimal.NewFromInt(1000), Quantity: decimal.NewFromInt(1), ContractorID: "c-sz",
	})

	// THEN: the contractor default applies
	resp := decodeBody[BudgetResponse](t, call(t, srv, http.MethodGet, "/api/projects/p1/budget", nil))
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "sys-sz", resp.Lines[0].EffectiveTaxSchemeID)
	assert.Empty(t, resp.Lines[0].TaxSchemeID)
	assertDecimal(t, "1063", resp.Totals.Total)
}

func TestContractors_Update(t *testing.T) {
	_, srv := newTestServer(t)

	// GIVEN: a self-employed contractor whose default prices a line
	rec := call(t, srv, http.MethodPost, "/api/contractors", ContractorDTO{
		ID: "c-sz", FullName: "Иванов", Type: "SZ", TaxSchemeID: "sys-sz", Phone: "+7 900",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	createLine(t, srv, "p1", CreateLineRequest{
		Name: "Director", Rate: decimal.NewFromInt(1000), Quantity: decimal.NewFromInt(1), ContractorID: "c-sz",
	})

	// WHEN: the default scheme is cleared
	rec = call(t, srv, http.MethodPatch, "/api/contractors/c-sz", `{"tax_scheme_id":null,"full_name":"Иванов И."}`)

	// THEN: absent fields are kept and the line loses its tax
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[ContractorDTO](t, rec)
	assert.Equal(t, "Иванов И.", got.FullName)
	assert.Equal(t, "+7 900", got.Phone)
	assert.Empty(t, got.TaxSchemeID)
	resp := decodeBody[BudgetResponse](t, call(t, srv, http.MethodGet, "/api/projects/p1/budget", nil))
	assertDecimal(t, "1000", resp.Totals.Total)

	// AND: bad patches are rejected
	rec = call(t, srv, http.MethodPatch, "/api/contractors/c-sz", `{"tax_scheme_id":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = call(t, srv, http.MethodPatch, "/api/contractors/c-sz", `{"full_name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(t, srv, http.MethodPatch, "/api/contractors/missing", `{"phone":"1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProjects_Lifecycle(t *testing.T) {
	_, srv := newTestServer(t)

	// GIVEN: a project with a line, a contract and a report
	rec := call(t, srv, http.MethodPost, "/api/projects", CreateProjectRequest{ID: "p1", Name: "Фильм"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	line := createLine(t, srv, "p1", CreateLineRequest{
		Name: "Camera", Rate: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1),
	})
	rec = call(t, srv, http.MethodPost, "/api/contractors", ContractorDTO{ID: "c1", FullName: "Петров", Type: "OOO"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = call(t, srv, http.MethodPost, "/api/contracts", CreateContractRequest{
		Number: "ДГ-1", ProjectID: "p1", ContractorID: "c1", PaymentType: "PER_SHIFT",
		BudgetLineIDs: []string{line.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = call(t, srv, http.MethodPost, "/api/projects/p1/reports", CreateReportRequest{ShootDayNumber: 1, Date: "2026-03-02"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN: it is renamed
	rec = call(t, srv, http.MethodPatch, "/api/projects/p1", `{"name":"Фильм 2","status":"ARCHIVED"}`)

	// THEN
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[ProjectDTO](t, call(t, srv, http.MethodGet, "/api/projects/p1", nil))
	assert.Equal(t, "Фильм 2", got.Name)
	assert.Equal(t, "ARCHIVED", got.Status)
	rec = call(t, srv, http.MethodPatch, "/api/projects/p1", `{"name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// WHEN: it is deleted
	rec = call(t, srv, http.MethodDelete, "/api/projects/p1", nil)

	// THEN: everything under it is gone
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodGet, "/api/projects/p1", nil).Code)
	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodDelete, "/api/projects/p1", nil).Code)
	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodPatch, "/api/projects/p1", `{"name":"x"}`).Code)
	resp := decodeBody[BudgetResponse](t, call(t, srv, http.MethodGet, "/api/projects/p1/budget", nil))
	assert.Empty(t, resp.Lines)
	assert.Empty(t, decodeBody[[]ContractDTO](t, call(t, srv, http.MethodGet, "/api/projects/p1/contracts", nil)))
	assert.Empty(t, decodeBody[[]ReportDTO](t, call(t, srv, http.MethodGet, "/api/projects/p1/reports", nil)))
}

func TestBudget_MoveAndDelete(t *testing.T) {
	_, srv := newTestServer(t)
	group := createLine(t, srv, "p1", CreateLineRequest{Name: "Group", Type: "GROUP"})
	child := createLine(t, srv, "p1", CreateLineRequest{ParentID: group.ID, Name: "Child"})

	// Moving a group under its own child is a cycle.
	rec := call(t, srv, http.MethodPost, "/api/projects/p1/budget/lines/"+group.ID+"/move",
		MoveLineRequest{NewParentID: child.ID})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = call(t, srv, http.MethodPost, "/api/projects/p1/budget/lines/"+child.ID+"/move",
		MoveLineRequest{SortOrder: 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	moved := decodeBody[[]LineDTO](t, rec)
	require.NotEmpty(t, moved)
	assert.Equal(t, 0, moved[0].Level)
	assert.Equal(t, 5, moved[0].SortOrder)

	resp := decodeBody[BudgetResponse](t, call(t, srv, http.MethodGet, "/api/projects/p1/budget", nil))
	assert.Len(t, resp.Lines, 2)

	rec = call(t, srv, http.MethodDelete, "/api/projects/p1/budget/lines/"+group.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{group.ID}, decodeBody[map[string]any](t, rec)["deleted"])

	rec = call(t, srv, http.MethodDelete, "/api/projects/p1/budget/lines/"+group.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBudget_LineErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing name", `{"type":"ITEM"}`, http.StatusBadRequest},
		{"unknown type", `{"name":"x","type":"FOLDER"}`, http.StatusBadRequest},
		{"unknown scheme", `{"name":"x","tax_scheme_id":"nope"}`, http.StatusNotFound},
		{"unknown parent", `{"name":"x","parent_id":"nope"}`, http.StatusNotFound},
		{"malformed", `{"name":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newTestServer(t)
			rec := call(t, srv, http.MethodPost, "/api/projects/p1/budget/lines", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestBudget_TemplateAndLimits(t *testing.T) {
	_, srv := newTestServer(t)

	// GIVEN: the default chart
	rec := call(t, srv, http.MethodPost, "/api/projects/p1/budget/from-template", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	lines := decodeBody[[]LineDTO](t, rec)
	assert.Len(t, lines, budget.Count(budget.DefaultTemplate()))

	// WHEN: limits are frozen
	rec = call(t, srv, http.MethodPost, "/api/projects/p1/budget/save-limit", nil)

	// THEN: every node was saved
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(len(lines)), decodeBody[map[string]any](t, rec)["saved"])
}

func TestBudget_CustomTemplate(t *testing.T) {
	_, srv := newTestServer(t)

	rec := call(t, srv, http.MethodPost, "/api/projects/p1/budget/from-template", `{"items": [
		{"name": "Cast", "children": [{"name": "Lead", "rate": "1000"}]}
	]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeBody[BudgetResponse](t, call(t, srv, http.MethodGet, "/api/projects/p1/budget", nil))
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "GROUP", resp.Lines[0].Type)
	assertDecimal(t, "1000", resp.Totals.Total)

	rec = call(t, srv, http.MethodPost, "/api/projects/p1/budget/from-template", `{"items": [{"type": "ITEM"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// CONTRACTS
// =============================================================================

func TestContracts_CreateAndPin(t *testing.T) {
	_, srv := newTestServer(t)
	rec := call(t, srv, http.MethodPost, "/api/contractors", ContractorDTO{
		ID: "c-ip", FullName: "Петров", Type: "IP", TaxSchemeID: "sys-ip",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	line := createLine(t, srv, "p1", CreateLineRequest{
		Name: "DOP", Rate: decimal.NewFromInt(500), Quantity: decimal.NewFromInt(2), TaxSchemeID: "sys-nds",
	})

	// GIVEN: a contract linked to one line
	rec = call(t, srv, http.MethodPost, "/api/contracts", CreateContractRequest{
		Number: "ДГ-1", ProjectID: "p1", ContractorID: "c-ip", PaymentType: "PER_SHIFT",
		ValidFrom: "2026-01-01", ValidTo: "2026-06-30",
		BudgetLineIDs: []string{line.ID, "gone"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[ContractDTO](t, rec)
	assert.Equal(t, "DRAFT", created.Status)
	assert.Equal(t, "RUB", created.Currency)
	assert.Empty(t, created.TaxSchemeID)
	assertDecimal(t, "1200", created.Linked.Total)
	assert.Equal(t, []string{"gone"}, created.MissingLines)

	// WHEN: the contractor default is pinned
	rec = call(t, srv, http.MethodPatch, "/api/contracts/"+created.ID, `{"tax_override": true, "status": "ACTIVE"}`)

	// THEN
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[ContractDTO](t, rec)
	assert.Equal(t, "sys-ip", updated.TaxSchemeID)
	assert.True(t, updated.TaxOverride)
	assert.Equal(t, "ACTIVE", updated.Status)

	list := decodeBody[[]ContractDTO](t, call(t, srv, http.MethodGet, "/api/projects/p1/contracts", nil))
	require.Len(t, list, 1)
	assert.Equal(t, "2026-06-30", list[0].ValidTo)

	rec = call(t, srv, http.MethodDelete, "/api/contracts/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = call(t, srv, http.MethodGet, "/api/contracts/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContracts_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad date", `{"number":"1","project_id":"p1","contractor_id":"c","payment_type":"SALARY","signed_at":"01.02.2026"}`, http.StatusBadRequest},
		{"bad payment type", `{"number":"1","project_id":"p1","contractor_id":"c","payment_type":"BARTER"}`, http.StatusBadRequest},
		{"override without scheme", `{"number":"1","project_id":"p1","contractor_id":"c","payment_type":"SALARY","tax_override":true}`, http.StatusBadRequest},
		{"reversed period", `{"number":"1","project_id":"p1","contractor_id":"c","payment_type":"SALARY","valid_from":"2026-02-01","valid_to":"2026-01-01"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newTestServer(t)
			rec := call(t, srv, http.MethodPost, "/api/contracts", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

// =============================================================================
// PRODUCTION
// =============================================================================

func TestOvertime(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"default lunch", `{"shift_start":"08:00","shift_end":"23:00"}`, "2"},
		{"no lunch", `{"shift_start":"08:00","shift_end":"21:00","lunch_break_minutes":0}`, "1"},
		{"overnight", `{"shift_start":"20:00","shift_end":"10:00"}`, "1"},
		{"custom base", `{"shift_start":"08:00","shift_end":"19:00","base_shift_hours":"8"}`, "2"},
		{"missing end", `{"shift_start":"08:00"}`, "0"},
	}
	_, srv := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, srv, http.MethodPost, "/api/production/overtime", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assertDecimal(t, tt.want, decodeBody[OvertimeResponse](t, rec).OvertimeHours)
		})
	}

	rec := call(t, srv, http.MethodPost, "/api/production/overtime", `{"shift_start":"25:00","shift_end":"10:00"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(t, srv, http.MethodPost, "/api/production/overtime", `{"shift_start":"08:00","shift_end":"10:00","gap_minutes":-5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReports_Flow(t *testing.T) {
	_, srv := newTestServer(t)
	rec := call(t, srv, http.MethodPost, "/api/contractors", ContractorDTO{
		ID: "c-sz", FullName: "Иванов", Type: "SZ", TaxSchemeID: "sys-sz",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// GIVEN: a shoot day
	rec = call(t, srv, http.MethodPost, "/api/projects/p1/reports", CreateReportRequest{
		ShootDayNumber: 1, Date: "2026-03-02", Location: "Павильон",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	report := decodeBody[ReportDTO](t, rec)
	assert.Equal(t, "DRAFT", report.Status)

	// WHEN: a long shift is logged
	rec = call(t, srv, http.MethodPost, "/api/reports/"+report.ID+"/entries", `{
		"contractor_id": "c-sz", "shift_start": "08:00", "shift_end": "23:30", "rate": "1000"
	}`)

	// THEN: the entry is valued with the contractor scheme and overtime
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decodeBody[EntryDTO](t, rec)
	assertDecimal(t, "1000", entry.AmountNet)
	assertDecimal(t, "1063", entry.AmountGross)
	assertDecimal(t, "2.5", entry.OvertimeHours)
	assert.Equal(t, "08:00", entry.ShiftStart)
	assert.Equal(t, "PENDING", entry.Status)

	rec = call(t, srv, http.MethodGet, "/api/reports/"+report.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[ReportDTO](t, rec)
	require.Len(t, got.Entries, 1)
	assertDecimal(t, "1063", got.TotalGross)
	assertDecimal(t, "2.5", got.OvertimeHours)

	list := decodeBody[[]ReportDTO](t, call(t, srv, http.MethodGet, "/api/projects/p1/reports", nil))
	assert.Len(t, list, 1)
}

func TestReports_Errors(t *testing.T) {
	_, srv := newTestServer(t)

	rec := call(t, srv, http.MethodGet, "/api/reports/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, srv, http.MethodPost, "/api/reports/missing/entries", `{"contractor_id":"c","rate":"1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, srv, http.MethodPost, "/api/projects/p1/reports", `{"shoot_day_number":0,"date":"2026-03-02"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, srv, http.MethodPost, "/api/projects/p1/reports", `{"shoot_day_number":1,"date":"March 2"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	report := decodeBody[ReportDTO](t, call(t, srv, http.MethodPost, "/api/projects/p1/reports", `{"shoot_day_number":1,"date":"2026-03-02"}`))
	rec = call(t, srv, http.MethodPost, "/api/reports/"+report.ID+"/entries", `{"contractor_id":"c","shift_start":"8h"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(t, srv, http.MethodPost, "/api/reports/"+report.ID+"/entries", `{"rate":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReports_UpdateAndDelete(t *testing.T) {
	_, srv := newTestServer(t)

	// GIVEN: a shoot day with one entry
	report := decodeBody[ReportDTO](t, call(t, srv, http.MethodPost, "/api/projects/p1/reports", CreateReportRequest{
		ShootDayNumber: 1, Date: "2026-03-02",
	}))
	rec := call(t, srv, http.MethodPost, "/api/reports/"+report.ID+"/entries", `{"contractor_id":"c1","rate":"500"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN: the header is patched
	rec = call(t, srv, http.MethodPatch, "/api/reports/"+report.ID, `{"status":"SUBMITTED","date":"2026-03-03"}`)

	// THEN: the named fields change and entries stay
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[ReportDTO](t, rec)
	assert.Equal(t, "SUBMITTED", got.Status)
	assert.Equal(t, "2026-03-03", got.Date)
	assert.Equal(t, 1, got.ShootDayNumber)
	assert.Len(t, got.Entries, 1)

	// AND: bad patches are rejected
	rec = call(t, srv, http.MethodPatch, "/api/reports/"+report.ID, `{"status":"LOST"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(t, srv, http.MethodPatch, "/api/reports/"+report.ID, `{"date":"March 3"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(t, srv, http.MethodPatch, "/api/reports/missing", `{"notes":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// WHEN: the report is deleted
	rec = call(t, srv, http.MethodDelete, "/api/reports/"+report.ID, nil)

	// THEN: it is gone
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodGet, "/api/reports/"+report.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodDelete, "/api/reports/"+report.ID, nil).Code)
}

func TestEntries_UpdateRevalues(t *testing.T) {
	_, srv := newTestServer(t)
	rec := call(t, srv, http.MethodPost, "/api/contractors", ContractorDTO{
		ID: "c-sz", FullName: "Иванов", Type: "SZ", TaxSchemeID: "sys-sz",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// GIVEN: a long self-employed shift
	report := decodeBody[ReportDTO](t, call(t, srv, http.MethodPost, "/api/projects/p1/reports", CreateReportRequest{
		ShootDayNumber: 1, Date: "2026-03-02",
	}))
	entry := decodeBody[EntryDTO](t, call(t, srv, http.MethodPost, "/api/reports/"+report.ID+"/entries", `{
		"contractor_id": "c-sz", "shift_start": "08:00", "shift_end": "23:30", "rate": "1000"
	}`))
	assertDecimal(t, "1063", entry.AmountGross)
	assertDecimal(t, "2.5", entry.OvertimeHours)

	tests := []struct {
		name      string
		body      string
		wantNet   string
		wantGross string
		wantOT    string
		wantID    string
	}{
		{"rate", `{"rate":"2000"}`, "2000", "2127", "2.5", ""},
		{"pin scheme", `{"tax_scheme_id":"sys-nds"}`, "2000", "2400", "2.5", "sys-nds"},
		{"clear scheme", `{"tax_scheme_id":null}`, "2000", "2127", "2.5", ""},
		{"shorter shift", `{"shift_end":"21:00"}`, "2000", "2127", "0", ""},
		{"quantity", `{"quantity":"2"}`, "4000", "4254", "0", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// WHEN
			rec := call(t, srv, http.MethodPatch, "/api/entries/"+entry.ID, tt.body)

			// THEN
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			got := decodeBody[EntryDTO](t, rec)
			assertDecimal(t, tt.wantNet, got.AmountNet)
			assertDecimal(t, tt.wantGross, got.AmountGross)
			assertDecimal(t, tt.wantOT, got.OvertimeHours)
			assert.Equal(t, tt.wantID, got.TaxSchemeID)
		})
	}

	// AND: the report totals follow
	got := decodeBody[ReportDTO](t, call(t, srv, http.MethodGet, "/api/reports/"+report.ID, nil))
	assertDecimal(t, "4254", got.TotalGross)

	// AND: bad patches are rejected
	rec = call(t, srv, http.MethodPatch, "/api/entries/"+entry.ID, `{"tax_scheme_id":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = call(t, srv, http.MethodPatch, "/api/entries/"+entry.ID, `{"rate":"-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(t, srv, http.MethodPatch, "/api/entries/"+entry.ID, `{"shift_end":"9pm"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(t, srv, http.MethodPatch, "/api/entries/missing", `{"rate":"1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// WHEN: the entry is deleted
	rec = call(t, srv, http.MethodDelete, "/api/entries/"+entry.ID, nil)

	// THEN
	assert.Equal(t, http.StatusNoContent, rec.Code)
	got = decodeBody[ReportDTO](t, call(t, srv, http.MethodGet, "/api/reports/"+report.ID, nil))
	assert.Empty(t, got.Entries)
	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodDelete, "/api/entries/"+entry.ID, nil).Code)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestRouter_CORSAndHealth(t *testing.T) {
	_, srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/tax-schemes", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = call(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ok"))
}
