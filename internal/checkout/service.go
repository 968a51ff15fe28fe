// Package checkout turns a cart of product names into a persisted sale. The
// total is recomputed from the catalog on every call; client-sent prices or
// totals never reach storage.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/elegance-atelier/sales-api/internal/auth"
	"github.com/elegance-atelier/sales-api/internal/gateway"
	kafkax "github.com/elegance-atelier/sales-api/internal/kafka"
	"github.com/elegance-atelier/sales-api/internal/sales"
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInvalidInstallments = errors.New("installments must be 1 or 2")
	ErrInvalidProduct      = errors.New("invalid product")
	ErrInvalidPlan         = errors.New("unknown subscription plan")
)

// Catalog is the authoritative price source.
type Catalog interface {
	Prices(ctx context.Context, names []string) (map[string]int, error)
}

// Ledger is the slice of the sale repository the orchestrator writes to.
type Ledger interface {
	Insert(ctx context.Context, s *sales.Sale) error
}

// Gateway creates hosted checkout sessions.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, items []gateway.CheckoutItem, saleID string, urls gateway.RedirectURLs) (*gateway.CheckoutSession, error)
	CreateSubscription(ctx context.Context, plan gateway.SubscriptionPlan) (*gateway.CheckoutSession, error)
}

// Publisher emits ledger events; satisfied by the kafka producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Payment methods settled through the hosted gateway. Cash sales stay
// entirely local.
var hostedMethods = map[string]bool{"pix": true, "card": true}

type CreateSaleRequest struct {
	Customer      string   `json:"customer"`
	Items         []string `json:"items"`
	PaymentMethod string   `json:"payment_method"`
	Installments  int      `json:"installments"`
}

type SubscribeRequest struct {
	Plan       string `json:"plan"`
	PayerEmail string `json:"payer_email"`
}

// Result carries the persisted sale plus, for hosted methods, the gateway
// redirect. GatewayErr is set when the sale was stored but the checkout
// session could not be opened; the sale stays pending and payable otherwise.
type Result struct {
	Sale        *sales.Sale
	RedirectURL string
	GatewayErr  error
}

type Service struct {
	catalog   Catalog
	ledger    Ledger
	gateway   Gateway
	publisher Publisher
	redirects gateway.RedirectURLs
	plans     map[string]gateway.SubscriptionPlan
	service   string
	logger    *zap.Logger
}

func NewService(catalog Catalog, ledger Ledger, gw Gateway, pub Publisher,
	redirects gateway.RedirectURLs, plans map[string]gateway.SubscriptionPlan,
	serviceName string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		catalog:   catalog,
		ledger:    ledger,
		gateway:   gw,
		publisher: pub,
		redirects: redirects,
		plans:     plans,
		service:   serviceName,
		logger:    logger,
	}
}

// CreateSale validates the cart, derives the total from the catalog, persists
// the sale under the principal's ownership and, for hosted payment methods,
// opens a gateway checkout session correlated by sale id.
func (s *Service) CreateSale(ctx context.Context, p auth.Principal, req CreateSaleRequest, traceID string) (*Result, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if req.Installments != 1 && req.Installments != 2 {
		return nil, ErrInvalidInstallments
	}

	prices, err := s.catalog.Prices(ctx, req.Items)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}

	total := 0
	items := make([]sales.SaleItem, 0, len(req.Items))
	for _, name := range req.Items {
		price, ok := prices[name]
		if !ok {
			// one unknown name aborts everything; no partial sale
			return nil, fmt.Errorf("%w: %s", ErrInvalidProduct, name)
		}
		total += price
		items = append(items, sales.SaleItem{ProductName: name, PriceCents: price})
	}

	sale := &sales.Sale{
		ID:            uuid.NewString(),
		UserID:        p.UserID,
		Customer:      req.Customer,
		Items:         items,
		TotalCents:    total,
		PaymentMethod: req.PaymentMethod,
		Installments:  req.Installments,
		Status1:       sales.StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	if req.Installments == 2 {
		st := sales.StatusPending
		sale.Status2 = &st
	}

	if err := s.ledger.Insert(ctx, sale); err != nil {
		s.logger.Error("sale insert failed", zap.String("user_id", p.UserID), zap.Error(err))
		return nil, err
	}
	s.logger.Info("sale created",
		zap.String("sale_id", sale.ID),
		zap.String("user_id", p.UserID),
		zap.Int("total_cents", total))

	s.publishCreated(sale, traceID)

	res := &Result{Sale: sale}
	if hostedMethods[req.PaymentMethod] {
		gwItems := make([]gateway.CheckoutItem, 0, len(items))
		for _, it := range items {
			gwItems = append(gwItems, gateway.CheckoutItem{Title: it.ProductName, Quantity: 1, UnitPriceCents: it.PriceCents})
		}
		session, err := s.gateway.CreateCheckoutSession(ctx, gwItems, sale.ID, s.redirects)
		if err != nil {
			// the sale is already stored and stays pending; payable by other means
			s.logger.Warn("checkout session failed", zap.String("sale_id", sale.ID), zap.Error(err))
			res.GatewayErr = err
			return res, nil
		}
		res.RedirectURL = session.RedirectURL
	}
	return res, nil
}

// Subscribe opens a recurring-charge checkout session for a server-defined
// plan. Plan pricing lives in configuration, never in the request.
func (s *Service) Subscribe(ctx context.Context, p auth.Principal, req SubscribeRequest) (string, error) {
	plan, ok := s.plans[req.Plan]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidPlan, req.Plan)
	}
	plan.PayerEmail = req.PayerEmail
	session, err := s.gateway.CreateSubscription(ctx, plan)
	if err != nil {
		s.logger.Warn("subscription session failed",
			zap.String("user_id", p.UserID), zap.String("plan", req.Plan), zap.Error(err))
		return "", err
	}
	return session.RedirectURL, nil
}

func (s *Service) publishCreated(sale *sales.Sale, traceID string) {
	if s.publisher == nil {
		return
	}
	ev := sales.Envelope{
		EventID:       uuid.NewString(),
		EventType:     sales.EventSaleCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.service,
		TraceID:       traceID,
		CorrelationID: sale.ID,
		Payload: kafkax.MustMarshal(sales.SaleCreatedPayload{
			SaleID:        sale.ID,
			UserID:        sale.UserID,
			Items:         sale.Items,
			TotalCents:    sale.TotalCents,
			PaymentMethod: sale.PaymentMethod,
			Installments:  sale.Installments,
		}),
	}
	s.publisher.Publish(sales.PartitionKey(sale.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(sales.EventSaleCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
