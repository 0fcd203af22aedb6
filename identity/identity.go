// Package identity validates bearer access tokens issued by the configured
// identity provider and resolves the claims the gateway cares about. Validation
// is stateless: every request is verified independently against the provider's
// published signing keys, with no server-side session involved.
package identity

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Identity holds the claims extracted from a successfully validated token. It
// is constructed fresh per request and discarded when the request completes.
type Identity struct {
	Subject  string   `json:"sub"`
	Email    string   `json:"email"`
	Name     string   `json:"name,omitempty"`
	TenantID string   `json:"tenant_id,omitempty"`
	Scopes   []string `json:"scopes,omitempty"`
}

// identityFromClaims maps provider claims onto an Identity. Entra ID puts the
// human-readable account name in preferred_username for v2.0 tokens and in upn
// for v1.0 tokens; plain email is used as the last fallback.
func identityFromClaims(claims jwt.MapClaims) *Identity {
	sub, _ := claims["sub"].(string)
	name, _ := claims["name"].(string)
	tid, _ := claims["tid"].(string)

	email, _ := claims["preferred_username"].(string)
	if email == "" {
		email, _ = claims["email"].(string)
	}
	if email == "" {
		email, _ = claims["upn"].(string)
	}

	var scopes []string
	if scp, _ := claims["scp"].(string); scp != "" {
		scopes = strings.Fields(scp)
	}

	return &Identity{
		Subject:  sub,
		Email:    email,
		Name:     name,
		TenantID: tid,
		Scopes:   scopes,
	}
}
