package authstate

import (
	"sync"

	apperrors "github.com/entragate/funcgateway/internal/errors"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu      sync.RWMutex
	pending map[string]*PendingAuth
}

// NewInMemoryRepo creates a new in-memory pending-auth repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		pending: make(map[string]*PendingAuth),
	}
}

var _ Repo = (*InMemoryRepo)(nil)

// Upsert stores or updates a pending authorization
func (r *InMemoryRepo) Upsert(state string, pending *PendingAuth) error {
	if state == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidAuthState, "state cannot be empty")
	}
	if pending == nil {
		return apperrors.Wrapf(apperrors.ErrInvalidAuthState, "pending auth cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Copy to prevent external modification
	r.pending[state] = &PendingAuth{
		CodeVerifier: pending.CodeVerifier,
		Nonce:        pending.Nonce,
		ReturnURL:    pending.ReturnURL,
		CreatedAt:    pending.CreatedAt,
	}
	return nil
}

// Get retrieves a pending authorization by state parameter
func (r *InMemoryRepo) Get(state string) (*PendingAuth, error) {
	if state == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidAuthState, "state cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	pending, exists := r.pending[state]
	if !exists {
		return nil, apperrors.ErrInvalidAuthState
	}

	return &PendingAuth{
		CodeVerifier: pending.CodeVerifier,
		Nonce:        pending.Nonce,
		ReturnURL:    pending.ReturnURL,
		CreatedAt:    pending.CreatedAt,
	}, nil
}

// Delete removes a pending authorization
func (r *InMemoryRepo) Delete(state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, state)
	return nil
}
