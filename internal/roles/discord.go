package roles

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Constitosh/verifyDN/internal/profile"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	ChainEVM = "evm"
	ChainBTC = "btc"
	ChainADA = "ada"
)

type DiscordConfig struct {
	APIBaseURL string
	BotToken   string
	GuildID    string
	// RoleIDs maps a chain to the guild role granted for holding an address on it.
	RoleIDs map[string]string
	// RequestsPerSecond caps outbound calls to the Discord API.
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// DiscordAssigner grants one guild role per chain the profile declares.
type DiscordAssigner struct {
	base       string
	botToken   string
	guildID    string
	roleIDs    map[string]string
	limiter    *rate.Limiter
	httpClient *http.Client
}

func NewDiscordAssigner(cfg DiscordConfig) *DiscordAssigner {
	base := strings.TrimRight(cfg.APIBaseURL, "/")
	if base == "" {
		base = "https://discord.com/api"
	}

	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &DiscordAssigner{
		base:       base,
		botToken:   cfg.BotToken,
		guildID:    cfg.GuildID,
		roleIDs:    cfg.RoleIDs,
		limiter:    rate.NewLimiter(limit, 1),
		httpClient: httpClient,
	}
}

type discordResult struct {
	GuildID string   `json:"guildId"`
	Granted []string `json:"granted"`
	Chains  []string `json:"chains"`
}

func (d *DiscordAssigner) Assign(ctx context.Context, p profile.Profile) (Result, error) {
	out := discordResult{GuildID: d.guildID, Granted: []string{}, Chains: []string{}}
	if p.Wallets.Empty() {
		return marshalResult(out)
	}

	wanted := map[string]string{}
	for chain, addr := range map[string]string{ChainEVM: p.EVM, ChainBTC: p.BTC, ChainADA: p.ADA} {
		if roleID := d.roleIDs[chain]; addr != "" && roleID != "" {
			wanted[chain] = roleID
		}
	}

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for chain, roleID := range wanted {
		chain, roleID := chain, roleID
		g.Go(func() error {
			if err := d.addRole(gctx, p.IdentityKey, roleID); err != nil {
				return fmt.Errorf("grant %s role: %w", chain, err)
			}
			mu.Lock()
			out.Granted = append(out.Granted, roleID)
			out.Chains = append(out.Chains, chain)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	sort.Strings(out.Granted)
	sort.Strings(out.Chains)
	return marshalResult(out)
}

func marshalResult(out discordResult) (Result, error) {
	payload, err := json.Marshal(out)
	if err != nil {
		return Result{}, err
	}
	return Result{Payload: payload}, nil
}

func (d *DiscordAssigner) addRole(ctx context.Context, userID, roleID string) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/guilds/%s/members/%s/roles/%s",
		d.base,
		url.PathEscape(d.guildID),
		url.PathEscape(userID),
		url.PathEscape(roleID),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+d.botToken)
	req.Header.Set("X-Audit-Log-Reason", "wallet profile verified")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return nil
}
