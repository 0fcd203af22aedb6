package repofake

import (
	"sync"

	"github.com/entragate/funcgateway/authclient/cache"
	apperrors "github.com/entragate/funcgateway/internal/errors"
)

var _ cache.Repo = (*FakeCacheRepo)(nil)

// FakeCacheRepo is a test double that records calls and can be primed to fail
type FakeCacheRepo struct {
	lock     sync.RWMutex
	creds    map[string]*cache.Credential
	activeID string

	UpsertCalls int
	GetCalls    int
	FailUpsert  bool
}

func NewFakeCacheRepo() *FakeCacheRepo {
	return &FakeCacheRepo{creds: make(map[string]*cache.Credential)}
}

func (r *FakeCacheRepo) Upsert(key string, cred *cache.Credential) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.UpsertCalls++
	if r.FailUpsert {
		return apperrors.ErrInternal
	}
	r.creds[key] = cred
	return nil
}

func (r *FakeCacheRepo) Get(key string) (*cache.Credential, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	r.GetCalls++
	cred, ok := r.creds[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cred, nil
}

func (r *FakeCacheRepo) Delete(key string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.creds, key)
	return nil
}

func (r *FakeCacheRepo) DeleteAccount(accountID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
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

func (r *FakeCacheRepo) SetActive(accountID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.activeID = accountID
	return nil
}

func (r *FakeCacheRepo) GetActive() (*cache.Credential, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.activeID == "" {
		return nil, apperrors.ErrNotFound
	}
	for _, cred := range r.creds {
		if cred.AccountID == r.activeID {
			return cred, nil
		}
	}
	return nil, apperrors.ErrNotFound
}
