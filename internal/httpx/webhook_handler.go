package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/elegance-atelier/sales-api/internal/gateway"
	"github.com/elegance-atelier/sales-api/internal/metrics"
)

// Reconciler applies a verified payment confirmation to the ledger.
type Reconciler interface {
	Handle(ctx context.Context, paymentID, traceID string) error
}

// WebhookHandler receives gateway notifications. The endpoint is
// unauthenticated; trust is established by the signature check and by
// re-fetching the payment from the gateway, never by the request body.
type WebhookHandler struct {
	Reconciler    Reconciler
	WebhookSecret string
	Logger        *zap.Logger
}

func (h *WebhookHandler) Register(r chi.Router) {
	r.Post("/webhooks/payment-gateway", h.handle)
}

type notificationBody struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// handle always acks 200 once the request is read: a non-2xx answer only
// triggers redelivery storms, and every failure path has already refused to
// touch the ledger.
func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	ack := func() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}

	var body notificationBody
	_ = json.NewDecoder(r.Body).Decode(&body)

	// the gateway sends the id via query or body depending on version
	paymentID := r.URL.Query().Get("id")
	topic := r.URL.Query().Get("topic")
	if paymentID == "" {
		paymentID = body.Data.ID
	}
	if topic != "payment" && body.Type != "payment" {
		ack()
		return
	}

	if err := gateway.VerifySignature(
		r.Header.Get("x-signature"),
		r.Header.Get("x-request-id"),
		paymentID,
		h.WebhookSecret,
	); err != nil {
		metrics.WebhooksRejected.WithLabelValues("bad_signature").Inc()
		h.Logger.Warn("webhook signature rejected",
			zap.String("payment_id", paymentID),
			zap.String("remote", r.RemoteAddr))
		ack()
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.Reconciler.Handle(ctx, paymentID, chimw.GetReqID(r.Context())); err != nil {
		// storage hiccup: logged inside the handler; still ack so the
		// gateway does not hammer us, operators see it in the logs
		h.Logger.Error("reconciliation failed", zap.String("payment_id", paymentID), zap.Error(err))
	}
	ack()
}
