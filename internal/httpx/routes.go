package httpx

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// Rate-limit windows: a strict one for credential guessing, a looser one for
// the authenticated API. Exceeding either yields 429 before any handler runs.
const (
	authLimit       = 10
	authLimitWindow = 15 * time.Minute
	apiLimit        = 60
	apiLimitWindow  = time.Minute
)

// API wires the handler set onto a router.
type API struct {
	Auth     *AuthHandler
	Sales    *SalesHandler
	Webhook  *WebhookHandler
	Verifier TokenVerifier
}

func (a *API) Register(r *chi.Mux) {
	r.Route("/api", func(api chi.Router) {
		api.Group(func(g chi.Router) {
			g.Use(httprate.LimitByIP(authLimit, authLimitWindow))
			a.Auth.Register(g)
		})

		// gateway traffic is not per-IP limited; it authenticates by signature
		a.Webhook.Register(api)

		api.Group(func(g chi.Router) {
			g.Use(httprate.LimitByIP(apiLimit, apiLimitWindow))
			g.Use(RequireAuth(a.Verifier))
			a.Sales.Register(g)
		})
	})
}
