package functions

import (
	"encoding/json"
	"os"
	"sync"

	apperrors "github.com/entragate/funcgateway/internal/errors"
)

// FileRepo serves the catalog from a JSON file, read once at construction.
type FileRepo struct {
	mu    sync.RWMutex
	list  []*Function
	index map[string]*Function
}

var _ Repo = (*FileRepo)(nil)

// NewFileRepo loads the catalog from path. The file holds a JSON array of
// function entries.
func NewFileRepo(path string) (*FileRepo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[NewFileRepo] reading catalog %q", path)
	}

	var list []*Function
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, apperrors.Wrapf(err, "[NewFileRepo] parsing catalog %q", path)
	}

	index := make(map[string]*Function, len(list))
	for _, fn := range list {
		index[fn.Name] = fn
	}

	return &FileRepo{list: list, index: index}, nil
}

func (r *FileRepo) List() ([]*Function, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Function(nil), r.list...), nil
}

func (r *FileRepo) Get(name string) (*Function, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.index[name]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return fn, nil
}
