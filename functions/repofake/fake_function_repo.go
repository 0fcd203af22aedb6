package repofake

import (
	"sync"

	"github.com/entragate/funcgateway/functions"
	apperrors "github.com/entragate/funcgateway/internal/errors"
)

var _ functions.Repo = (*FakeFunctionRepo)(nil)

type FakeFunctionRepo struct {
	lock  sync.RWMutex
	funcs map[string]*functions.Function
}

func NewFakeFunctionRepo(fns ...*functions.Function) *FakeFunctionRepo {
	repo := &FakeFunctionRepo{funcs: make(map[string]*functions.Function)}
	for _, fn := range fns {
		repo.funcs[fn.Name] = fn
	}
	return repo
}

func (r *FakeFunctionRepo) Add(fn *functions.Function) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.funcs[fn.Name] = fn
}

func (r *FakeFunctionRepo) List() ([]*functions.Function, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	list := make([]*functions.Function, 0, len(r.funcs))
	for _, fn := range r.funcs {
		list = append(list, fn)
	}
	return list, nil
}

func (r *FakeFunctionRepo) Get(name string) (*functions.Function, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	fn, ok := r.funcs[name]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return fn, nil
}
