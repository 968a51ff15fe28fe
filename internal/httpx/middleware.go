package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/elegance-atelier/sales-api/internal/auth"
)

type ctxKey int

const principalKey ctxKey = 0

// TokenVerifier checks a bearer token and yields the request principal.
type TokenVerifier interface {
	Verify(token string) (auth.Principal, error)
}

// RequireAuth rejects requests without a valid bearer token. A missing token
// is 401, a bad or expired one is 403, matching how clients tell "log in"
// apart from "session dead".
func RequireAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing token"})
				return
			}
			token := strings.TrimPrefix(header, "Bearer ")
			p, err := v.Verify(token)
			if err != nil {
				code := http.StatusForbidden
				if errors.Is(err, auth.ErrMissingToken) {
					code = http.StatusUnauthorized
				}
				writeJSON(w, code, map[string]string{"error": "invalid token"})
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
		})
	}
}

// PrincipalFrom returns the verified principal stored by RequireAuth.
func PrincipalFrom(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(auth.Principal)
	return p, ok
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
