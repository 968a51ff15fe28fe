package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/payments/pay-1":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":             "approved",
				"external_reference": "sale-42",
			})
		case "/v1/payments/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	ctx := context.Background()

	p, err := c.GetPayment(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, "pay-1", p.ID)
	assert.Equal(t, StatusApproved, p.Status)
	assert.Equal(t, "sale-42", p.ExternalReference)

	_, err = c.GetPayment(ctx, "missing")
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	_, err = c.GetPayment(ctx, "boom")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCreateCheckoutSessionCarriesCorrelation(t *testing.T) {
	var got preferenceReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/checkout/preferences", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":         "pref-1",
			"init_point": "https://gateway.test/checkout/pref-1",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	items := []CheckoutItem{{Title: "Brinco", Quantity: 1, UnitPriceCents: 5000}}
	urls := RedirectURLs{Success: "s", Failure: "f", Pending: "p"}

	session, err := c.CreateCheckoutSession(context.Background(), items, "sale-42", urls)
	require.NoError(t, err)
	assert.Equal(t, "pref-1", session.ID)
	assert.Equal(t, "https://gateway.test/checkout/pref-1", session.RedirectURL)

	// sale id rides along as the gateway's external reference
	assert.Equal(t, "sale-42", got.ExternalReference)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 50.0, got.Items[0].UnitPrice)
	assert.Equal(t, "s", got.BackURLs["success"])
}

func TestCreateSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/preapproval", r.URL.Path)
		var req preapprovalReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 49.0, req.AutoRecurring.TransactionAmount)
		assert.Equal(t, "months", req.AutoRecurring.FrequencyType)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "sub-1", "init_point": "https://gateway.test/sub-1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	session, err := c.CreateSubscription(context.Background(), SubscriptionPlan{
		Reason: "VIP", AmountCents: 4900, FrequencyMonths: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.test/sub-1", session.RedirectURL)
}
