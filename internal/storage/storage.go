// Package storage persists the cart identity between sessions.
//
// The identity is a pair (cart id, checkout URL). Stores write and clear the
// pair as a unit; a reader never observes one field without the other.
package storage

import (
	"errors"
	"sync"

	"storefront/internal/model"
)

// ErrIncompleteIdentity is returned by Save when either field is empty.
var ErrIncompleteIdentity = errors.New("cart identity requires both cart id and checkout url")

// IdentityStore persists a single cart identity.
type IdentityStore interface {
	// Load returns the stored identity. ok is false when nothing
	// (or only a partial record) is stored.
	Load() (identity model.CartIdentity, ok bool, err error)

	// Save replaces the stored identity atomically.
	Save(identity model.CartIdentity) error

	// Clear removes the stored identity. Clearing an empty store is not an error.
	Clear() error
}

// MemoryStore keeps the identity in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	identity model.CartIdentity
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements IdentityStore.
func (s *MemoryStore) Load() (model.CartIdentity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity.CartID == "" || s.identity.CheckoutURL == "" {
		return model.CartIdentity{}, false, nil
	}
	return s.identity, true, nil
}

// Save implements IdentityStore.
func (s *MemoryStore) Save(identity model.CartIdentity) error {
	if identity.CartID == "" || identity.CheckoutURL == "" {
		return ErrIncompleteIdentity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
	return nil
}

// Clear implements IdentityStore.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = model.CartIdentity{}
	return nil
}

var (
	_ IdentityStore = (*MemoryStore)(nil)
	_ IdentityStore = (*FileStore)(nil)
)
