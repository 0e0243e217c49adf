package identity

import (
	"context"
	"errors"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	parties map[string]Party
}

// NewMemoryRepository builds an in-memory party store for tests and
// development mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{parties: make(map[string]Party)}
}

func (r *memoryRepository) Create(_ context.Context, party Party) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.parties[party.Phone]; exists {
		return errors.New("party exists")
	}
	r.parties[party.Phone] = party
	return nil
}

func (r *memoryRepository) FindByPhone(_ context.Context, phone string) (Party, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	party, ok := r.parties[phone]
	if !ok {
		return Party{}, ErrNotFound
	}
	return party, nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Party, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, party := range r.parties {
		if party.ID == id {
			return party, nil
		}
	}
	return Party{}, ErrNotFound
}

func (r *memoryRepository) UpdateTokenVersion(_ context.Context, id string, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for phone, party := range r.parties {
		if party.ID == id {
			party.TokenVersion = version
			r.parties[phone] = party
			return nil
		}
	}
	return ErrNotFound
}
