package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/jrsteele09/go-oauth-broker/tokenstore"
)

var _ tokenstore.Store = (*MemStore)(nil)

// MemStore keeps values in process memory. Values are copied in and out.
type MemStore struct {
	values map[string][]byte
	lock   sync.RWMutex
}

func New() *MemStore {
	return &MemStore{
		values: make(map[string][]byte),
	}
}

func (s *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, tokenstore.ErrNotFound
	}
	return slices.Clone(v), nil
}

func (s *MemStore) Set(_ context.Context, key string, value []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.values[key] = slices.Clone(value)
	return nil
}

func (s *MemStore) Delete(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.values, key)
	return nil
}

// Keys lists the stored keys in order.
func (s *MemStore) Keys() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
