package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/elegance-atelier/sales-api/internal/auth"
	"github.com/elegance-atelier/sales-api/internal/checkout"
	kafkax "github.com/elegance-atelier/sales-api/internal/kafka"
	"github.com/elegance-atelier/sales-api/internal/metrics"
	"github.com/elegance-atelier/sales-api/internal/sales"
)

// Ledger is the owner-scoped slice of the sale repository.
type Ledger interface {
	ListByOwner(ctx context.Context, ownerID string) ([]sales.Sale, error)
	UpdateInstallment(ctx context.Context, ownerID, saleID string, field sales.InstallmentField, status sales.Status) error
	Delete(ctx context.Context, ownerID, saleID string) error
}

type CatalogReader interface {
	ListProducts(ctx context.Context) ([]sales.Product, error)
}

type CheckoutService interface {
	CreateSale(ctx context.Context, p auth.Principal, req checkout.CreateSaleRequest, traceID string) (*checkout.Result, error)
	Subscribe(ctx context.Context, p auth.Principal, req checkout.SubscribeRequest) (string, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type SalesHandler struct {
	Ledger    Ledger
	Catalog   CatalogReader
	Checkout  CheckoutService
	Publisher Publisher
	Service   string
	Logger    *zap.Logger
}

func (h *SalesHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/sales", h.listSales)
	r.Post("/sales", h.createSale)
	r.Patch("/sales/{id}", h.updateInstallment)
	r.Delete("/sales/{id}", h.deleteSale)
	r.Post("/subscribe", h.subscribe)
}

func (h *SalesHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.ListProducts(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "catalog unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *SalesHandler) listSales(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing token"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out, err := h.Ledger.ListByOwner(ctx, p.UserID)
	if err != nil {
		h.Logger.Error("list sales failed", zap.String("user_id", p.UserID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not load sales"})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type createSaleResp struct {
	Sale          *sales.Sale `json:"sale"`
	CheckoutURL   string      `json:"checkout_url,omitempty"`
	CheckoutError string      `json:"checkout_error,omitempty"`
}

func (h *SalesHandler) createSale(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing token"})
		return
	}
	var req checkout.CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Checkout.CreateSale(ctx, p, req, chimw.GetReqID(r.Context()))
	switch {
	case err == nil:
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidInstallments),
		errors.Is(err, checkout.ErrInvalidProduct):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not create sale"})
		return
	}

	metrics.SalesCreated.Inc()
	resp := createSaleResp{Sale: res.Sale, CheckoutURL: res.RedirectURL}
	if res.GatewayErr != nil {
		// sale stored; payment link just could not be opened
		resp.CheckoutError = "payment gateway unavailable"
	}
	writeJSON(w, http.StatusCreated, resp)
}

type updateReq struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (h *SalesHandler) updateInstallment(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing token"})
		return
	}
	saleID := chi.URLParam(r, "id")

	var req updateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	field, ok := sales.ParseInstallmentField(req.Field)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown field"})
		return
	}
	status := sales.Status(strings.ToUpper(req.Value))
	if !sales.ValidStatus(status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := h.Ledger.UpdateInstallment(ctx, p.UserID, saleID, field, status)
	if errors.Is(err, sales.ErrNotFoundOrForbidden) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "sale not found"})
		return
	}
	if err != nil {
		h.Logger.Error("update installment failed", zap.String("sale_id", saleID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not update sale"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *SalesHandler) deleteSale(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing token"})
		return
	}
	saleID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := h.Ledger.Delete(ctx, p.UserID, saleID)
	if errors.Is(err, sales.ErrNotFoundOrForbidden) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "sale not found"})
		return
	}
	if err != nil {
		h.Logger.Error("delete sale failed", zap.String("sale_id", saleID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not delete sale"})
		return
	}

	if h.Publisher != nil {
		ev := sales.Envelope{
			EventID:       uuid.NewString(),
			EventType:     sales.EventSaleDeleted,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      h.Service,
			TraceID:       chimw.GetReqID(r.Context()),
			CorrelationID: saleID,
			Payload:       kafkax.MustMarshal(sales.SaleDeletedPayload{SaleID: saleID, UserID: p.UserID}),
		}
		h.Publisher.Publish(sales.PartitionKey(saleID), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(sales.EventSaleDeleted)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *SalesHandler) subscribe(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing token"})
		return
	}
	var req checkout.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	url, err := h.Checkout.Subscribe(ctx, p, req)
	if errors.Is(err, checkout.ErrInvalidPlan) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "payment gateway unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"checkout_url": url})
}
