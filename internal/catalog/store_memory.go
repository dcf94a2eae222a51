package catalog

import (
	"context"
	"sync"
)

type MemStore struct {
	mu sync.RWMutex
	c  Catalog
}

func NewMemStore(seed ...Product) *MemStore {
	s := &MemStore{c: make(Catalog, 0, len(seed))}
	s.c = append(s.c, seed...)
	return s
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Load(ctx context.Context) (Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.c.Clone(), nil
}

func (s *MemStore) Save(ctx context.Context, c Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.c = c.Clone()
	return nil
}
