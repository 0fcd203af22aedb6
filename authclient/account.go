package authclient

import "time"

// Account is the authenticated identity as the client knows it. There is at
// most one active Account per client at any time.
type Account struct {
	// ID is the provider-issued unique identifier (the sub claim)
	ID string
	// Username is the preferred username / email claim
	Username string
	// Name is the display name
	Name string
	// TenantID is the home tenant identifier
	TenantID string
}

// Token is a time-bounded bearer credential scoped to an audience and a scope
// set. The value is opaque to the client; only the provider and the resource
// interpret it.
type Token struct {
	AccessToken string
	Expiry      time.Time
	Scopes      []string
	Account     *Account
}

// Valid reports whether the token can still be presented at the given instant.
// A token must never be used past its expiry.
func (t *Token) Valid(now time.Time) bool {
	return t != nil && t.AccessToken != "" && now.Before(t.Expiry)
}
