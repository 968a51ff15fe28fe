// Package gateway adapts the hosted payment provider: outbound checkout
// session creation and the authoritative payment lookup used to verify
// inbound webhook notifications.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	ErrUnavailable     = errors.New("payment gateway unavailable")
	ErrPaymentNotFound = errors.New("payment not found at gateway")
)

const StatusApproved = "approved"

// CheckoutItem is one line of a hosted checkout session.
type CheckoutItem struct {
	Title          string
	Quantity       int
	UnitPriceCents int
}

// CheckoutSession holds the opaque gateway reference plus the redirect URL
// the buyer is sent to. Its internal state lives at the gateway.
type CheckoutSession struct {
	ID          string
	RedirectURL string
}

// Payment is the authoritative record fetched back from the gateway. The
// ExternalReference carries the sale id we attached when the session was
// created; it is the only trusted correlation back to the ledger.
type Payment struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
}

// RedirectURLs are where the gateway sends the buyer after checkout.
type RedirectURLs struct {
	Success string
	Failure string
	Pending string
}

type Client struct {
	http *resty.Client
}

func NewClient(baseURL, accessToken string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(accessToken).
		SetTimeout(10 * time.Second)
	return &Client{http: c}
}

type preferenceItem struct {
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type preferenceReq struct {
	Items             []preferenceItem  `json:"items"`
	ExternalReference string            `json:"external_reference"`
	BackURLs          map[string]string `json:"back_urls"`
	AutoReturn        string            `json:"auto_return"`
}

type preferenceResp struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// CreateCheckoutSession opens a hosted checkout for the given items, tagged
// with the sale id so the eventual payment record can be correlated back.
func (c *Client) CreateCheckoutSession(ctx context.Context, items []CheckoutItem, saleID string, urls RedirectURLs) (*CheckoutSession, error) {
	req := preferenceReq{
		ExternalReference: saleID,
		BackURLs: map[string]string{
			"success": urls.Success,
			"failure": urls.Failure,
			"pending": urls.Pending,
		},
		AutoReturn: "approved",
	}
	for _, it := range items {
		req.Items = append(req.Items, preferenceItem{
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: float64(it.UnitPriceCents) / 100,
		})
	}

	var out preferenceResp
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/checkout/preferences")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode())
	}
	return &CheckoutSession{ID: out.ID, RedirectURL: out.InitPoint}, nil
}

// SubscriptionPlan describes a recurring charge.
type SubscriptionPlan struct {
	Reason          string
	AmountCents     int
	FrequencyMonths int
	PayerEmail      string
	BackURL         string
}

type preapprovalReq struct {
	Reason        string `json:"reason"`
	PayerEmail    string `json:"payer_email"`
	BackURL       string `json:"back_url"`
	AutoRecurring struct {
		Frequency         int     `json:"frequency"`
		FrequencyType     string  `json:"frequency_type"`
		TransactionAmount float64 `json:"transaction_amount"`
		CurrencyID        string  `json:"currency_id"`
	} `json:"auto_recurring"`
}

// CreateSubscription opens a recurring-charge checkout session.
func (c *Client) CreateSubscription(ctx context.Context, plan SubscriptionPlan) (*CheckoutSession, error) {
	req := preapprovalReq{
		Reason:     plan.Reason,
		PayerEmail: plan.PayerEmail,
		BackURL:    plan.BackURL,
	}
	req.AutoRecurring.Frequency = plan.FrequencyMonths
	req.AutoRecurring.FrequencyType = "months"
	req.AutoRecurring.TransactionAmount = float64(plan.AmountCents) / 100
	req.AutoRecurring.CurrencyID = "BRL"

	var out preferenceResp
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/preapproval")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode())
	}
	return &CheckoutSession{ID: out.ID, RedirectURL: out.InitPoint}, nil
}

// GetPayment fetches the true payment record by id. Webhook bodies are never
// trusted; this call is the source of truth for settlement.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var out Payment
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v1/payments/" + paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode() == 404 {
		return nil, ErrPaymentNotFound
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode())
	}
	out.ID = paymentID
	return &out, nil
}
