package provider

import (
	"context"

	"github.com/Constitosh/verifyDN/internal/auth"

	"golang.org/x/oauth2"
)

// OAuthProvider is the two-leg authorization-code client for one external
// provider. Implementations return identity facts only and must not touch
// sessions or profiles.
type OAuthProvider interface {
	// Name returns the provider identifier (e.g. "discord").
	Name() string

	// AuthCodeURL returns the authorization URL embedding the caller's state.
	AuthCodeURL(state string) string

	// ExchangeCode trades the authorization code for an access token.
	// Errors wrap auth.ErrProviderExchangeFailed.
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)

	// FetchIdentity resolves the token owner. Errors wrap
	// auth.ErrProviderExchangeFailed or auth.ErrProviderIdentityMissing.
	FetchIdentity(ctx context.Context, token *oauth2.Token) (*auth.Identity, error)
}
