package sales

import (
	"encoding/json"
	"time"
)

const (
	EventSaleCreated        = "SaleCreated"
	EventInstallmentSettled = "InstallmentSettled"
	EventSaleDeleted        = "SaleDeleted"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // sale_id
	Payload       json.RawMessage `json:"payload"`
}

type SaleCreatedPayload struct {
	SaleID        string     `json:"sale_id"`
	UserID        string     `json:"user_id"`
	Items         []SaleItem `json:"items"`
	TotalCents    int        `json:"total_cents"`
	PaymentMethod string     `json:"payment_method"`
	Installments  int        `json:"installments"`
}

type InstallmentSettledPayload struct {
	SaleID      string `json:"sale_id"`
	Installment int    `json:"installment"`
	PaymentID   string `json:"payment_id"`
}

type SaleDeletedPayload struct {
	SaleID string `json:"sale_id"`
	UserID string `json:"user_id"`
}
