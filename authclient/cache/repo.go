// Package cache holds the client-side credential cache. Entries are keyed by
// account, authority and scope set, mirroring how the provider scopes the
// tokens it issues. Nothing in here is ever persisted server-side.
package cache

import (
	"sort"
	"strings"

	"golang.org/x/oauth2"
)

// Credential is one cached token grant together with the account it belongs
// to. The account fields are flattened in so the cache stays self-contained.
type Credential struct {
	AccountID string
	Username  string
	Name      string
	TenantID  string
	Authority string
	Scopes    []string
	Token     *oauth2.Token
}

type Repo interface {
	Upsert(key string, cred *Credential) error
	Get(key string) (*Credential, error)
	Delete(key string) error
	DeleteAccount(accountID string) error

	// SetActive records which account is currently signed in; GetActive returns
	// the most recent credential for it, or ErrNotFound when nobody is.
	SetActive(accountID string) error
	GetActive() (*Credential, error)
}

// Key derives the cache key for an account + authority + scope set. Scopes are
// sorted so the key is insensitive to request ordering.
func Key(accountID, authority string, scopes []string) string {
	sorted := append([]string(nil), scopes...)
	sort.Strings(sorted)
	return accountID + "|" + authority + "|" + strings.Join(sorted, " ")
}
