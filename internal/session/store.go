package session

import (
	"context"
	"errors"
	"time"

	"github.com/Constitosh/verifyDN/internal/auth"
)

// ErrNotFound is returned by Modify when the session is missing or expired.
var ErrNotFound = errors.New("session: not found")

// Session is the server-side state behind one browser cookie.
// CSRFState is only set between login start and callback; Identity is
// only set after a successful callback.
type Session struct {
	SessionID string         `json:"session_id"`
	CSRFState string         `json:"csrf_state,omitempty"`
	Identity  *auth.Identity `json:"identity,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"` // fixed at creation, never extended
}

// New returns a fresh unbound session expiring ttl after now.
func New(now time.Time, ttl time.Duration) (Session, error) {
	id, err := GenerateID()
	if err != nil {
		return Session{}, err
	}
	return Session{
		SessionID: id,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Expired reports whether the session outlived its fixed lifetime.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store defines how sessions are stored and retrieved. Every call is keyed
// by the session id so requests for different sessions never interfere.
type Store interface {
	Create(ctx context.Context, s Session) error
	// Get returns nil, nil when the session does not exist.
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
	// Modify applies fn to the stored session atomically. When fn returns an
	// error nothing is written and the error is returned unchanged.
	Modify(ctx context.Context, sessionID string, fn func(s *Session) error) (*Session, error)
}

func (s Session) clone() Session {
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	return s
}
