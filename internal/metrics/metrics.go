package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_created_total",
		Help: "Sales persisted by the checkout orchestrator.",
	})

	SettlementsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlements_applied_total",
		Help: "Installments transitioned to PAID from verified gateway confirmations.",
	})

	WebhooksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhooks_rejected_total",
		Help: "Gateway notifications dropped before settlement.",
	}, []string{"reason"})
)
