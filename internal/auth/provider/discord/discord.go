package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Constitosh/verifyDN/internal/auth"
	"github.com/Constitosh/verifyDN/internal/logger"

	"golang.org/x/oauth2"
)

const (
	providerName = "discord"

	// DefaultAPIBaseURL is the public Discord REST root.
	DefaultAPIBaseURL = "https://discord.com/api"

	// noDiscriminator is what Discord reports for accounts migrated to unique usernames.
	noDiscriminator = "0"

	maxUserBody = 1 << 20
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	APIBaseURL   string
	HTTPClient   *http.Client
}

// Provider implements the Discord authorization-code flow.
type Provider struct {
	oauthConfig *oauth2.Config
	userURL     string
	httpClient  *http.Client
}

func New(cfg Config) (*Provider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, errors.New("discord oauth config missing required fields")
	}

	base := strings.TrimRight(cfg.APIBaseURL, "/")
	if base == "" {
		base = DefaultAPIBaseURL
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"identify"}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			// The same RedirectURL feeds both AuthCodeURL and Exchange, so
			// the two legs always send byte-identical redirect_uri values.
			RedirectURL: cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/oauth2/authorize",
				TokenURL:  base + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: scopes,
		},
		userURL:    base + "/users/@me",
		httpClient: httpClient,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the authorization URL. Discord is asked to always show
// the consent screen so a re-login can switch accounts.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

func (p *Provider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		fields := map[string]any{"error": err.Error()}
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			fields["status"] = re.Response.StatusCode
			fields["error_code"] = re.ErrorCode
		}
		logger.Warn("discord token exchange failed", fields)
		return nil, fmt.Errorf("%w: token exchange: %w", auth.ErrProviderExchangeFailed, err)
	}

	return token, nil
}

type discordUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	GlobalName    string `json:"global_name"`
}

func (p *Provider) FetchIdentity(ctx context.Context, token *oauth2.Token) (*auth.Identity, error) {
	if token == nil || token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", auth.ErrProviderExchangeFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build user request: %w", auth.ErrProviderExchangeFailed, err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: user request: %w", auth.ErrProviderExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("discord user lookup rejected", map[string]any{
			"status": resp.StatusCode,
		})
		return nil, fmt.Errorf("%w: user request returned %d", auth.ErrProviderExchangeFailed, resp.StatusCode)
	}

	var user discordUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUserBody)).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: decode user: %w", auth.ErrProviderIdentityMissing, err)
	}

	if strings.TrimSpace(user.ID) == "" {
		return nil, auth.ErrProviderIdentityMissing
	}

	return &auth.Identity{
		ProviderID:  user.ID,
		DisplayName: DisplayName(user.Username, user.Discriminator),
	}, nil
}

// DisplayName renders a Discord handle. Legacy accounts keep their
// "#1234" suffix; migrated accounts report the "0" sentinel and get none.
func DisplayName(username, discriminator string) string {
	if discriminator == "" || discriminator == noDiscriminator {
		return username
	}
	return username + "#" + discriminator
}
