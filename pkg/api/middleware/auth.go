// Package middleware provides HTTP middleware for the remote filesystem's
// API: Authorization-header extraction with verified claims stashed in the
// request context.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/marmos91/remotefs/pkg/token"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// Claims carries the verified identity of the caller.
type Claims struct {
	Username string
	UserID   uint32
}

// FromContext retrieves the Claims stashed by BearerAuth. Only valid inside
// handlers mounted behind BearerAuth.
func FromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsContextKey).(*Claims)
	return c
}

func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// BearerAuth verifies the Authorization: Bearer <token> header with the
// given token.Service and, on success, stashes Claims in the request
// context; on failure it writes a 401 problem+json body and stops the chain.
func BearerAuth(svc *token.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := extractBearerToken(r)
			if !ok {
				writeUnauthorized(w, "missing bearer token")
				return
			}

			username, userID, err := svc.Verify(tok)
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, &Claims{Username: username, UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"title":"unauthenticated","status":401,"detail":"` + detail + `"}`))
}
