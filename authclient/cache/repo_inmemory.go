package cache

import (
	"sync"

	apperrors "github.com/entragate/funcgateway/internal/errors"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu       sync.RWMutex
	creds    map[string]*Credential
	activeID string
}

// NewInMemoryRepo creates a new in-memory credential cache
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		creds: make(map[string]*Credential),
	}
}

var _ Repo = (*InMemoryRepo)(nil)

// Upsert stores or updates a credential
func (r *InMemoryRepo) Upsert(key string, cred *Credential) error {
	if key == "" {
		return apperrors.Wrapf(apperrors.ErrInternal, "key cannot be empty")
	}
	if cred == nil {
		return apperrors.Wrapf(apperrors.ErrInternal, "credential cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.creds[key] = copyCredential(cred)
	return nil
}

// Get retrieves a credential by cache key
func (r *InMemoryRepo) Get(key string) (*Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cred, exists := r.creds[key]
	if !exists {
		return nil, apperrors.ErrNotFound
	}
	return copyCredential(cred), nil
}

// Delete removes a credential
func (r *InMemoryRepo) Delete(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.creds, key)
	return nil
}

// DeleteAccount removes every credential belonging to an account and clears
// the active marker if it pointed at that account
func (r *InMemoryRepo) DeleteAccount(accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, cred := range r.creds {
		if cred.AccountID == accountID {
			delete(r.creds, key)
		}
	}
	if r.activeID == accountID {
		r.activeID = ""
	}
	return nil
}

// SetActive marks the account the client is currently signed in as
func (r *InMemoryRepo) SetActive(accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activeID = accountID
	return nil
}

// GetActive returns a credential for the active account, preferring the one
// with the latest expiry
func (r *InMemoryRepo) GetActive() (*Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.activeID == "" {
		return nil, apperrors.ErrNotFound
	}

	var best *Credential
	for _, cred := range r.creds {
		if cred.AccountID != r.activeID {
			continue
		}
		if best == nil || (cred.Token != nil && best.Token != nil && cred.Token.Expiry.After(best.Token.Expiry)) {
			best = cred
		}
	}
	if best == nil {
		return nil, apperrors.ErrNotFound
	}
	return copyCredential(best), nil
}

// copyCredential prevents callers from mutating cached state
func copyCredential(cred *Credential) *Credential {
	cp := *cred
	cp.Scopes = append([]string(nil), cred.Scopes...)
	if cred.Token != nil {
		tok := *cred.Token
		cp.Token = &tok
	}
	return &cp
}
