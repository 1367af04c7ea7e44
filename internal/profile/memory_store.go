package profile

import (
	"context"
	"sync"

	"github.com/Constitosh/verifyDN/internal/utils"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	profiles sync.Map // identity key -> Profile
	locks    *utils.KeyedMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{locks: utils.NewKeyedMutex()}
}

func (m *MemoryStore) Get(ctx context.Context, identityKey string) (*Profile, error) {
	v, ok := m.profiles.Load(identityKey)
	if !ok {
		return nil, nil
	}
	p := v.(Profile).clone()
	return &p, nil
}

func (m *MemoryStore) Ensure(ctx context.Context, p Profile) error {
	m.profiles.LoadOrStore(p.IdentityKey, p.clone())
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, identityKey string, fn func(current *Profile) Profile) (Profile, error) {
	unlock := m.locks.Lock(identityKey)
	defer unlock()

	var current *Profile
	if v, ok := m.profiles.Load(identityKey); ok {
		p := v.(Profile).clone()
		current = &p
	}

	next := fn(current)
	next.IdentityKey = identityKey
	m.profiles.Store(identityKey, next.clone())
	return next, nil
}
