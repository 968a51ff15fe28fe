package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/elegance-atelier/sales-api/internal/auth"
	"github.com/elegance-atelier/sales-api/internal/checkout"
	"github.com/elegance-atelier/sales-api/internal/sales"
)

// fakeLedger enforces the same ownership masking as the SQL repo.
type fakeLedger struct {
	byOwner map[string][]sales.Sale
}

func (f *fakeLedger) ListByOwner(_ context.Context, ownerID string) ([]sales.Sale, error) {
	return f.byOwner[ownerID], nil
}

func (f *fakeLedger) find(ownerID, saleID string) *sales.Sale {
	for i := range f.byOwner[ownerID] {
		if f.byOwner[ownerID][i].ID == saleID {
			return &f.byOwner[ownerID][i]
		}
	}
	return nil
}

func (f *fakeLedger) UpdateInstallment(_ context.Context, ownerID, saleID string, field sales.InstallmentField, status sales.Status) error {
	s := f.find(ownerID, saleID)
	if s == nil {
		return sales.ErrNotFoundOrForbidden
	}
	if field == sales.Installment1 {
		s.Status1 = status
	} else {
		s.Status2 = &status
	}
	return nil
}

func (f *fakeLedger) Delete(_ context.Context, ownerID, saleID string) error {
	if f.find(ownerID, saleID) == nil {
		return sales.ErrNotFoundOrForbidden
	}
	out := f.byOwner[ownerID][:0]
	for _, s := range f.byOwner[ownerID] {
		if s.ID != saleID {
			out = append(out, s)
		}
	}
	f.byOwner[ownerID] = out
	return nil
}

type fakeCatalogReader struct{}

func (fakeCatalogReader) ListProducts(context.Context) ([]sales.Product, error) {
	return []sales.Product{{Name: "Brinco", PriceCents: 5000}}, nil
}

type fakeCheckout struct {
	lastPrincipal auth.Principal
}

func (f *fakeCheckout) CreateSale(_ context.Context, p auth.Principal, req checkout.CreateSaleRequest, _ string) (*checkout.Result, error) {
	f.lastPrincipal = p
	if len(req.Items) == 0 {
		return nil, checkout.ErrEmptyCart
	}
	return &checkout.Result{Sale: &sales.Sale{ID: "sale-new", UserID: p.UserID, TotalCents: 5000, Status1: sales.StatusPending}}, nil
}

func (f *fakeCheckout) Subscribe(_ context.Context, p auth.Principal, _ checkout.SubscribeRequest) (string, error) {
	return "https://gateway.test/sub", nil
}

func testRouter(t *testing.T, ledger *fakeLedger, co *fakeCheckout, authSvc AuthService) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	verifier := &fakeVerifier{tokens: map[string]auth.Principal{
		"tok-a": {UserID: "user-a", Username: "alice"},
		"tok-b": {UserID: "user-b", Username: "bob"},
	}}
	if authSvc == nil {
		authSvc = &fakeAuthService{}
	}
	router := NewRouter("http://localhost:5500", logger)
	api := &API{
		Auth:  &AuthHandler{Auth: authSvc, Logger: logger},
		Sales: &SalesHandler{Ledger: ledger, Catalog: fakeCatalogReader{}, Checkout: co, Logger: logger},
		Webhook: &WebhookHandler{
			Reconciler: &fakeReconciler{}, WebhookSecret: "s", Logger: logger,
		},
		Verifier: verifier,
	}
	api.Register(router)
	return router
}

func seededLedger() *fakeLedger {
	return &fakeLedger{byOwner: map[string][]sales.Sale{
		"user-a": {{ID: "sale-a1", UserID: "user-a", Status1: sales.StatusPending}},
		"user-b": {{ID: "sale-b1", UserID: "user-b", Status1: sales.StatusPending}},
	}}
}

func doJSON(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	r.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestListSalesIsOwnerScoped(t *testing.T) {
	router := testRouter(t, seededLedger(), &fakeCheckout{}, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/sales", "tok-a", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []sales.Sale
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "sale-a1", got[0].ID)
}

func TestUpdateForeignSaleIsMasked(t *testing.T) {
	ledger := seededLedger()
	router := testRouter(t, ledger, &fakeCheckout{}, nil)

	// alice pokes at bob's sale: same answer as a nonexistent one
	rec := doJSON(t, router, http.MethodPatch, "/api/sales/sale-b1", "tok-a",
		`{"field":"status1","value":"PAID"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, sales.StatusPending, ledger.byOwner["user-b"][0].Status1)

	rec = doJSON(t, router, http.MethodPatch, "/api/sales/no-such-sale", "tok-a",
		`{"field":"status1","value":"PAID"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteForeignSaleIsMasked(t *testing.T) {
	ledger := seededLedger()
	router := testRouter(t, ledger, &fakeCheckout{}, nil)

	rec := doJSON(t, router, http.MethodDelete, "/api/sales/sale-b1", "tok-a", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, ledger.byOwner["user-b"], 1)
}

func TestUpdateInstallmentClosedFieldSet(t *testing.T) {
	router := testRouter(t, seededLedger(), &fakeCheckout{}, nil)

	// arbitrary column names are refused before touching the ledger
	for _, field := range []string{"total_cents", "user_id", "customer"} {
		rec := doJSON(t, router, http.MethodPatch, "/api/sales/sale-a1", "tok-a",
			fmt.Sprintf(`{"field":"%s","value":"PAID"}`, field))
		assert.Equal(t, http.StatusBadRequest, rec.Code, field)
	}

	rec := doJSON(t, router, http.MethodPatch, "/api/sales/sale-a1", "tok-a",
		`{"field":"status1","value":"nonsense"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, "/api/sales/sale-a1", "tok-a",
		`{"field":"status1","value":"paid"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateSaleRequiresToken(t *testing.T) {
	router := testRouter(t, seededLedger(), &fakeCheckout{}, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/sales", "",
		`{"customer":"Maria","items":["Brinco"],"payment_method":"cash","installments":1}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateSaleBindsPrincipal(t *testing.T) {
	co := &fakeCheckout{}
	router := testRouter(t, seededLedger(), co, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/sales", "tok-a",
		`{"customer":"Maria","items":["Brinco"],"payment_method":"cash","installments":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "user-a", co.lastPrincipal.UserID)
}

func TestCreateSaleEmptyCart(t *testing.T) {
	router := testRouter(t, seededLedger(), &fakeCheckout{}, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/sales", "tok-a",
		`{"customer":"Maria","items":[],"payment_method":"cash","installments":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListProducts(t *testing.T) {
	router := testRouter(t, seededLedger(), &fakeCheckout{}, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/products", "tok-a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Brinco")
}
