package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/seatwise/reservations/internal/http/response"
	"github.com/seatwise/reservations/pkg/auth"
)

type ctxKey string

const CtxClaims ctxKey = "claims"

// RequireJWT rejects requests without a valid bearer token. When roles are
// given, the token's role must be one of them.
func RequireJWT(secret string, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := auth.Parse(bearerToken(r), secret)
			if err != nil {
				response.Unauthorized(w, "invalid authorization token")
				return
			}
			if len(roles) > 0 && !roleAllowed(claims.Role, roles) {
				response.Forbidden(w, "insufficient role")
				return
			}
			ctx := context.WithValue(r.Context(), CtxClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalSession attaches claims when a valid guest token is present and
// passes the request through untouched otherwise. Handlers that accept a
// manage token instead use this.
func OptionalSession(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := bearerToken(r); tok != "" {
				if claims, err := auth.Parse(tok, secret); err == nil {
					ctx := context.WithValue(r.Context(), CtxClaims, claims)
					r = r.WithContext(ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func Claims(r *http.Request) *auth.Claims {
	if v := r.Context().Value(CtxClaims); v != nil {
		if c, ok := v.(*auth.Claims); ok {
			return c
		}
	}
	return nil
}

func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	// Session tokens may also arrive as a query parameter, e.g. from
	// emailed manage links.
	return r.URL.Query().Get("session_token")
}

func roleAllowed(role string, allowed []string) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}
