package sales

import "time"

type Product struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PriceCents int       `json:"price_cents"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Sale is a ledger record. TotalCents is derived from the catalog at creation
// time and never taken from a caller. Status2 is nil unless Installments == 2.
type Sale struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Customer      string     `json:"customer"`
	Items         []SaleItem `json:"items"`
	TotalCents    int        `json:"total_cents"`
	PaymentMethod string     `json:"payment_method"`
	Installments  int        `json:"installments"`
	Status1       Status     `json:"status1"`
	Status2       *Status    `json:"status2,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// SaleItem snapshots the catalog price the moment the sale was created.
type SaleItem struct {
	ProductName string `json:"name"`
	PriceCents  int    `json:"price_cents"`
}
