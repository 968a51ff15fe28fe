package redisx

import "time"

const (
	// Catalog price cache: catalog:prices -> {"Brinco":5000,...}
	KeyCatalogPrices = "catalog:prices"

	// Webhook payment dedup: dedup:payment:{payment_id}
	KeyDedupPayment = "dedup:payment:%s"

	// Consumer event dedup: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLCatalogCache = 5 * time.Minute
	TTLDedupPayment = 48 * time.Hour
	TTLDedup        = 48 * time.Hour
)
