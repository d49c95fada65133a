// Package middleware provides the HTTP middleware stack: bearer-token
// identity extraction and per-client rate limiting.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/johnamet/faithvibe/internal/auth"
	"github.com/johnamet/faithvibe/internal/logging"
)

type identityKey struct{}

// Verifier validates a bearer token and returns the identity it carries.
type Verifier interface {
	Verify(token string) (*auth.Identity, error)
}

// Authenticate extracts a Bearer token, verifies it and stores the
// identity in the request context. Requests without a token pass through
// anonymously; the authorization gate decides per endpoint whether an
// identity is required. An invalid token is rejected outright.
func Authenticate(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				http.Error(w, `{"error":"malformed authorization header"}`, http.StatusUnauthorized)
				return
			}
			id, err := v.Verify(token)
			if err != nil {
				logging.FromContext(r.Context()).WarnContext(r.Context(),
					"token rejected", "error", err)
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithIdentity returns a context carrying the verified identity.
func WithIdentity(ctx context.Context, id *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the verified identity carried by ctx, or nil for
// anonymous requests.
func IdentityFrom(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(identityKey{}).(*auth.Identity)
	return id
}
