package session

import (
	"context"
	"fmt"
	"time"

	"github.com/Constitosh/verifyDN/internal/utils"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps sessions in process memory with per-entry expiry.
type MemoryStore struct {
	cache *gocache.Cache
	locks *utils.KeyedMutex
}

func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, cleanupInterval),
		locks: utils.NewKeyedMutex(),
	}
}

func (m *MemoryStore) Create(ctx context.Context, s Session) error {
	if s.SessionID == "" {
		return fmt.Errorf("session: missing session_id")
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session: expires_at must be in the future")
	}

	unlock := m.locks.Lock(s.SessionID)
	defer unlock()

	return m.cache.Add(s.SessionID, s.clone(), ttl)
}

func (m *MemoryStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	v, ok := m.cache.Get(sessionID)
	if !ok {
		return nil, nil
	}
	s := v.(Session).clone()
	return &s, nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	unlock := m.locks.Lock(sessionID)
	defer unlock()

	m.cache.Delete(sessionID)
	return nil
}

func (m *MemoryStore) Modify(ctx context.Context, sessionID string, fn func(s *Session) error) (*Session, error) {
	unlock := m.locks.Lock(sessionID)
	defer unlock()

	v, ok := m.cache.Get(sessionID)
	if !ok {
		return nil, ErrNotFound
	}
	s := v.(Session).clone()
	if err := fn(&s); err != nil {
		return nil, err
	}
	if err := m.put(s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *MemoryStore) put(s Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		m.cache.Delete(s.SessionID)
		return nil
	}
	m.cache.Set(s.SessionID, s.clone(), ttl)
	return nil
}
