package manager

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/Constitosh/verifyDN/internal/auth"
	"github.com/Constitosh/verifyDN/internal/auth/provider"
	"github.com/Constitosh/verifyDN/internal/logger"
	"github.com/Constitosh/verifyDN/internal/metrics"
	"github.com/Constitosh/verifyDN/internal/session"
	"github.com/Constitosh/verifyDN/internal/utils"
)

const stateBytes = 32

// ProfileInitializer creates the empty profile of a newly logged in identity.
type ProfileInitializer interface {
	EnsureExists(ctx context.Context, identity auth.Identity) error
}

// Manager owns the login lifecycle of a session: it issues the single-use
// CSRF state, verifies the provider callback against it and binds the
// resulting identity.
type Manager struct {
	provider provider.OAuthProvider
	sessions session.Store
	profiles ProfileInitializer
	metrics  *metrics.Metrics

	sessionTTL time.Duration
	now        func() time.Time
	newState   func() (string, error)
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithStateGenerator replaces the random state source.
func WithStateGenerator(gen func() (string, error)) Option {
	return func(m *Manager) { m.newState = gen }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

func New(
	p provider.OAuthProvider,
	sessions session.Store,
	profiles ProfileInitializer,
	sessionTTL time.Duration,
	opts ...Option,
) *Manager {
	m := &Manager{
		provider:   p,
		sessions:   sessions,
		profiles:   profiles,
		sessionTTL: sessionTTL,
		now:        time.Now,
		newState: func() (string, error) {
			return utils.RandomString(stateBytes)
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BeginAuth stores a fresh state on the session identified by sessionID,
// creating a new session when there is none (or it expired), and returns
// the provider authorization URL. Any earlier unused state is replaced.
func (m *Manager) BeginAuth(ctx context.Context, sessionID string) (string, *session.Session, error) {
	state, err := m.newState()
	if err != nil {
		return "", nil, fmt.Errorf("generate state: %w", err)
	}

	var sess *session.Session
	if sessionID != "" {
		sess, err = m.sessions.Modify(ctx, sessionID, func(s *session.Session) error {
			if s.Expired(m.now()) {
				return session.ErrNotFound
			}
			s.CSRFState = state
			return nil
		})
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			return "", nil, fmt.Errorf("store state: %w", err)
		}
	}

	if sess == nil {
		fresh, err := session.New(m.now(), m.sessionTTL)
		if err != nil {
			return "", nil, err
		}
		fresh.CSRFState = state
		if err := m.sessions.Create(ctx, fresh); err != nil {
			return "", nil, fmt.Errorf("create session: %w", err)
		}
		sess = &fresh
	}

	return m.provider.AuthCodeURL(state), sess, nil
}

// CompleteAuth verifies the callback of the session identified by
// sessionID and returns a new session bound to the provider identity. The
// session identified by sessionID is deleted; callers must re-issue the
// cookie for the returned session.
//
// The pending state is consumed before the provider is contacted, so a
// replayed callback fails with auth.ErrStateMismatch even when the first
// attempt failed upstream.
func (m *Manager) CompleteAuth(ctx context.Context, sessionID, code, state string) (*session.Session, error) {
	sess, err := m.completeAuth(ctx, sessionID, code, state)
	m.metrics.AuthCompleted(outcome(err))
	return sess, err
}

func (m *Manager) completeAuth(ctx context.Context, sessionID, code, state string) (*session.Session, error) {
	if sessionID == "" || state == "" {
		return nil, auth.ErrStateMismatch
	}

	_, err := m.sessions.Modify(ctx, sessionID, func(s *session.Session) error {
		if s.Expired(m.now()) || s.CSRFState == "" {
			return auth.ErrStateMismatch
		}
		if subtle.ConstantTimeCompare([]byte(s.CSRFState), []byte(state)) != 1 {
			return auth.ErrStateMismatch
		}
		s.CSRFState = ""
		return nil
	})
	if errors.Is(err, session.ErrNotFound) {
		return nil, auth.ErrStateMismatch
	}
	if err != nil {
		return nil, err
	}

	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", auth.ErrProviderExchangeFailed)
	}

	start := time.Now()
	token, err := m.provider.ExchangeCode(ctx, code)
	m.metrics.ObserveProvider("token", start)
	if err != nil {
		return nil, asProviderError(err)
	}

	start = time.Now()
	identity, err := m.provider.FetchIdentity(ctx, token)
	m.metrics.ObserveProvider("identity", start)
	if err != nil {
		return nil, asProviderError(err)
	}
	if identity == nil || identity.ProviderID == "" {
		return nil, auth.ErrProviderIdentityMissing
	}

	rotated, err := m.rotate(ctx, sessionID, *identity)
	if err != nil {
		return nil, err
	}

	if err := m.profiles.EnsureExists(ctx, *identity); err != nil {
		logger.Warn("profile initialization failed", map[string]any{
			"identity_key": identity.ProviderID,
			"error":        err.Error(),
		})
	}

	logger.Info("login completed", map[string]any{
		"provider":     m.provider.Name(),
		"identity_key": identity.ProviderID,
	})

	return rotated, nil
}

// rotate moves the authenticated identity onto a freshly minted session and
// drops the pre-login one, so a session id known before login never
// becomes authenticated.
func (m *Manager) rotate(ctx context.Context, sessionID string, identity auth.Identity) (*session.Session, error) {
	old, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if old == nil || old.Expired(m.now()) {
		// Logged out or expired while the provider round trip was running.
		return nil, auth.ErrStateMismatch
	}

	fresh, err := session.New(m.now(), m.sessionTTL)
	if err != nil {
		return nil, err
	}
	fresh.Identity = &identity
	if err := m.sessions.Create(ctx, fresh); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if err := m.sessions.Delete(ctx, sessionID); err != nil {
		logger.Warn("pre-login session delete failed", map[string]any{"error": err.Error()})
	}
	return &fresh, nil
}

// CurrentIdentity returns the identity bound to the session, or nil.
func (m *Manager) CurrentIdentity(ctx context.Context, sessionID string) (*auth.Identity, error) {
	if sessionID == "" {
		return nil, nil
	}
	s, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil || s.Expired(m.now()) {
		return nil, nil
	}
	return s.Identity, nil
}

// Logout drops the server-side session. Unknown ids are not an error.
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return m.sessions.Delete(ctx, sessionID)
}

func asProviderError(err error) error {
	if errors.Is(err, auth.ErrProviderExchangeFailed) || errors.Is(err, auth.ErrProviderIdentityMissing) {
		return err
	}
	return fmt.Errorf("%w: %w", auth.ErrProviderExchangeFailed, err)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, auth.ErrStateMismatch):
		return metrics.OutcomeStateMismatch
	case errors.Is(err, auth.ErrProviderIdentityMissing):
		return metrics.OutcomeIdentityMissing
	case errors.Is(err, auth.ErrProviderExchangeFailed):
		return metrics.OutcomeProviderFailed
	default:
		return metrics.OutcomeError
	}
}
