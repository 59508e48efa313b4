package store

import (
	"context"
	"errors"
	"sync"

	"github.com/viant/bearer/auth/credential"
)

// ErrIncompletePair is returned when a pair without both tokens is stored
var ErrIncompletePair = errors.New("store: credential pair requires access and refresh token")

// Store is a pluggable holder of the current credential pair.
// Get returns nil when no pair is stored; a stored pair is never partial.
type Store interface {
	Get(ctx context.Context) (*credential.Pair, error)
	Set(ctx context.Context, pair *credential.Pair) error
	Clear(ctx context.Context) error
}

type MemoryStoreOption func(*memoryStore)

// WithPair sets initial credentials
func WithPair(pair *credential.Pair) MemoryStoreOption {
	return func(m *memoryStore) {
		if pair.Valid() {
			m.pair = pair.Clone()
		}
	}
}

type memoryStore struct {
	mu   sync.RWMutex
	pair *credential.Pair
}

func (m *memoryStore) Get(_ context.Context) (*credential.Pair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pair.Clone(), nil
}

func (m *memoryStore) Set(_ context.Context, pair *credential.Pair) error {
	if !pair.Valid() {
		return ErrIncompletePair
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = pair.Clone()
	return nil
}

func (m *memoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = nil
	return nil
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(options ...MemoryStoreOption) Store {
	ret := &memoryStore{}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}
