package auth

import "errors"

var (
	// ErrStateMismatch covers a missing, altered, foreign or replayed state parameter.
	ErrStateMismatch = errors.New("invalid or expired login attempt")

	// ErrProviderExchangeFailed is returned when the code exchange or the
	// identity lookup fails at the transport level or with a non-2xx status.
	ErrProviderExchangeFailed = errors.New("provider exchange failed")

	// ErrProviderIdentityMissing is returned when the provider answers but
	// the user object carries no usable id.
	ErrProviderIdentityMissing = errors.New("provider identity missing")

	ErrUnauthenticated = errors.New("not authenticated")
)
