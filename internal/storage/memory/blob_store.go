// Package memory provides an in-memory blob store for tests.
package memory

import (
	"context"
	"sync"
)

// BlobStore keeps saved objects in a map.
type BlobStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New returns an empty BlobStore.
func New() *BlobStore {
	return &BlobStore{objects: make(map[string][]byte)}
}

// Save stores a copy of data under objectName.
func (s *BlobStore) Save(_ context.Context, objectName string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[objectName] = cp
	return nil
}

// Get returns the stored object and whether it exists.
func (s *BlobStore) Get(objectName string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[objectName]
	return data, ok
}

// Len reports how many objects have been saved.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
