package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/agenda-ai/agenda-backend/libs/httpx"
)

// RequireBusiness verifies the bearer token and stashes the caller's business
// id in the request context for tenant-scoped handlers.
func RequireBusiness(v *Verifier) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, "missing bearer token")
				return
			}
			claims, err := v.Verify(token)
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}
			ctx := httpx.ContextWithBusinessID(r.Context(), claims.BusinessID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
