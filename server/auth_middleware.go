package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/entragate/funcgateway/identity"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyIdentity stores the validated identity for the request
	ContextKeyIdentity ContextKey = "identity"
)

// notAuthenticatedBody is the only thing a rejected request learns. Validation
// detail stays in the server log.
var notAuthenticatedBody = map[string]string{"message": "Not authenticated"}

// RequireAuth gates a route behind bearer-token validation. Every request is
// validated independently against the provider's signing keys; no server-side
// session is consulted or created. On success the resolved identity rides the
// request context; on any failure the request terminates with 401 before the
// handler runs.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeJSON(w, http.StatusUnauthorized, notAuthenticatedBody)
				return
			}

			ident, err := s.verifier.Verify(r.Context(), raw)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("bearer validation failed")
				writeJSON(w, http.StatusUnauthorized, notAuthenticatedBody)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyIdentity, ident)
			next(w, r.WithContext(ctx))
		}
	}
}

// bearerToken extracts the credential from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// IdentityFromContext returns the validated identity injected by RequireAuth.
func IdentityFromContext(ctx context.Context) (*identity.Identity, bool) {
	ident, ok := ctx.Value(ContextKeyIdentity).(*identity.Identity)
	return ident, ok
}
