// Package reconcile applies verified gateway payment confirmations to the
// sale ledger. Nothing from the inbound notification is trusted beyond the
// opaque payment id; the authoritative record is re-fetched from the gateway
// before any write.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/elegance-atelier/sales-api/internal/gateway"
	kafkax "github.com/elegance-atelier/sales-api/internal/kafka"
	"github.com/elegance-atelier/sales-api/internal/metrics"
	"github.com/elegance-atelier/sales-api/internal/redisx"
	"github.com/elegance-atelier/sales-api/internal/sales"
)

// PaymentFetcher is the gateway's authoritative query endpoint.
type PaymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*gateway.Payment, error)
}

// Settler is the ledger write used for settlement.
type Settler interface {
	Settle(ctx context.Context, saleID string, field sales.InstallmentField) (bool, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Handler struct {
	Gateway   PaymentFetcher
	Ledger    Settler
	Redis     *redis.Client
	Publisher Publisher
	Service   string
	Logger    *zap.Logger
}

// Handle processes one gateway notification. Verification and correlation
// failures are logged and dropped; only a storage failure is returned, and
// even then the HTTP layer still acks the gateway to stop redelivery storms.
func (h *Handler) Handle(ctx context.Context, paymentID, traceID string) error {
	log := h.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if paymentID == "" {
		metrics.WebhooksRejected.WithLabelValues("missing_payment_id").Inc()
		log.Warn("notification without payment id")
		return nil
	}

	// fast path for storms: already settled this payment
	dkey := fmt.Sprintf(redisx.KeyDedupPayment, paymentID)
	if h.Redis != nil {
		if seen, _ := redisx.Exists(ctx, h.Redis, dkey); seen {
			log.Debug("duplicate notification", zap.String("payment_id", paymentID))
			return nil
		}
	}

	payment, err := h.Gateway.GetPayment(ctx, paymentID)
	if err != nil {
		// covers forged ids: no verifiable payment, no mutation
		metrics.WebhooksRejected.WithLabelValues("unverifiable").Inc()
		log.Warn("payment verification failed", zap.String("payment_id", paymentID), zap.Error(err))
		return nil
	}
	if payment.Status != gateway.StatusApproved {
		metrics.WebhooksRejected.WithLabelValues("not_approved").Inc()
		log.Info("payment not approved, ignoring",
			zap.String("payment_id", paymentID), zap.String("status", payment.Status))
		return nil
	}

	// correlation comes from the verified record, never the inbound request
	saleID := payment.ExternalReference
	if saleID == "" {
		metrics.WebhooksRejected.WithLabelValues("no_correlation").Inc()
		log.Warn("approved payment without sale correlation", zap.String("payment_id", paymentID))
		return nil
	}

	changed, err := h.Ledger.Settle(ctx, saleID, sales.Installment1)
	if err != nil {
		log.Error("settlement write failed",
			zap.String("payment_id", paymentID), zap.String("sale_id", saleID), zap.Error(err))
		return err
	}

	if h.Redis != nil {
		// claim only after the outcome is final so transient failures stay retryable
		_, _ = redisx.ClaimOnce(ctx, h.Redis, dkey, redisx.TTLDedupPayment)
	}

	if !changed {
		// replay or manual edit already paid it; a no-op, not an error
		log.Info("installment already settled",
			zap.String("payment_id", paymentID), zap.String("sale_id", saleID))
		return nil
	}

	metrics.SettlementsApplied.Inc()
	log.Info("installment settled",
		zap.String("payment_id", paymentID), zap.String("sale_id", saleID))
	h.publishSettled(saleID, paymentID, traceID)
	return nil
}

func (h *Handler) publishSettled(saleID, paymentID, traceID string) {
	if h.Publisher == nil {
		return
	}
	ev := sales.Envelope{
		EventID:       uuid.NewString(),
		EventType:     sales.EventInstallmentSettled,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       traceID,
		CorrelationID: saleID,
		Payload: kafkax.MustMarshal(sales.InstallmentSettledPayload{
			SaleID:      saleID,
			Installment: int(sales.Installment1),
			PaymentID:   paymentID,
		}),
	}
	h.Publisher.Publish(sales.PartitionKey(saleID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(sales.EventInstallmentSettled)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
