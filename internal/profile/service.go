package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/Constitosh/verifyDN/internal/auth"
	"github.com/Constitosh/verifyDN/internal/metrics"
)

type Service struct {
	store   Store
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Service)

// WithClock overrides the clock used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the stored profile, or an unsaved empty one named after the
// identity. It never writes.
func (s *Service) Get(ctx context.Context, identity auth.Identity) (Profile, error) {
	p, err := s.store.Get(ctx, identity.ProviderID)
	if err != nil {
		return Profile{}, fmt.Errorf("profile: load %s: %w", identity.ProviderID, err)
	}
	if p == nil {
		return Profile{IdentityKey: identity.ProviderID, DisplayName: identity.DisplayName}, nil
	}
	return *p, nil
}

// Lookup returns the stored profile or nil when none exists.
func (s *Service) Lookup(ctx context.Context, identityKey string) (*Profile, error) {
	p, err := s.store.Get(ctx, identityKey)
	if err != nil {
		return nil, fmt.Errorf("profile: load %s: %w", identityKey, err)
	}
	return p, nil
}

// EnsureExists creates the empty, unsaved profile for a freshly logged in
// identity. Existing profiles are left untouched.
func (s *Service) EnsureExists(ctx context.Context, identity auth.Identity) error {
	err := s.store.Ensure(ctx, Profile{
		IdentityKey: identity.ProviderID,
		DisplayName: identity.DisplayName,
	})
	if err != nil {
		return fmt.Errorf("profile: ensure %s: %w", identity.ProviderID, err)
	}
	return nil
}

// Save merges incoming into the stored record for identityKey. Empty
// incoming fields keep the stored address.
func (s *Service) Save(ctx context.Context, identityKey, displayName string, incoming Wallets) (Profile, error) {
	p, err := s.store.Update(ctx, identityKey, func(current *Profile) Profile {
		var base Profile
		if current != nil {
			base = *current
		}
		now := s.now().UTC()
		return Profile{
			IdentityKey: identityKey,
			DisplayName: displayName,
			Wallets:     base.Wallets.Merge(incoming),
			UpdatedAt:   &now,
		}
	})
	if err != nil {
		return Profile{}, fmt.Errorf("profile: save %s: %w", identityKey, err)
	}

	s.metrics.ProfileSaved()
	return p, nil
}
