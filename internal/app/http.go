package app

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Constitosh/verifyDN/internal/api"
	"github.com/Constitosh/verifyDN/internal/auth/handler"
	"github.com/Constitosh/verifyDN/internal/auth/manager"
	"github.com/Constitosh/verifyDN/internal/auth/provider/discord"
	"github.com/Constitosh/verifyDN/internal/config"
	"github.com/Constitosh/verifyDN/internal/metrics"
	"github.com/Constitosh/verifyDN/internal/middleware"
	"github.com/Constitosh/verifyDN/internal/profile"
	"github.com/Constitosh/verifyDN/internal/roles"
	"github.com/Constitosh/verifyDN/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	sessionCleanupInterval = 10 * time.Minute
	outboundTimeout        = 10 * time.Second
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router, err := newRouter(cfg, infra, reg)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	return router, infra.Close, nil
}

// newRouter builds every dependency from cfg and the already connected
// infra. Extra manager options are applied last.
func newRouter(
	cfg config.Config,
	infra *Infra,
	reg *prometheus.Registry,
	managerOpts ...manager.Option,
) (*gin.Engine, error) {
	m := metrics.New(reg)
	httpClient := &http.Client{Timeout: outboundTimeout}

	// ----------------------------
	// Dependencies
	// ----------------------------

	sessionStore, err := newSessionStore(cfg, infra)
	if err != nil {
		return nil, err
	}

	profileStore, err := newProfileStore(cfg, infra)
	if err != nil {
		return nil, err
	}
	profiles := profile.NewService(profileStore, profile.WithMetrics(m))

	discordProvider, err := discord.New(discord.Config{
		ClientID:     cfg.DiscordClientID,
		ClientSecret: cfg.DiscordClientSecret,
		RedirectURL:  cfg.DiscordRedirectURI,
		Scopes:       cfg.DiscordScopes,
		APIBaseURL:   cfg.DiscordAPIBaseURL,
		HTTPClient:   httpClient,
	})
	if err != nil {
		return nil, err
	}

	authManager := manager.New(
		discordProvider,
		sessionStore,
		profiles,
		cfg.SessionTTL,
		append([]manager.Option{manager.WithMetrics(m)}, managerOpts...)...,
	)

	cookies := session.NewCookieCodec(cfg.SessionCookieName, cfg.SessionSecret, cfg.SessionTTL, cookieOptions(cfg))

	popupOrigins, err := popupTargetOrigins(cfg)
	if err != nil {
		return nil, err
	}
	authHandler := handler.NewHandler(authManager, cookies, popupOrigins)

	gateway := roles.NewGateway(profiles, newRoleAssigner(cfg, httpClient), m)
	apiHandler := api.NewHandler(profiles, gateway)

	authMiddleware := middleware.NewAuthMiddleware(authManager, cookies)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.AccessLog(), middleware.Recovery())

	if len(cfg.WebAppOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.WebAppOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Content-Type", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// ----------------------------
	// Public Routes
	// ----------------------------

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	if cfg.WidgetDir != "" {
		router.Static("/widget/evm", cfg.WidgetDir)
	}

	// ----------------------------
	// Protected API Routes
	// ----------------------------

	apiGroup := router.Group("/api")
	apiGroup.Use(middleware.GinRequireAuth(authMiddleware))
	apiHandler.RegisterRoutes(apiGroup)

	return router, nil
}

func newSessionStore(cfg config.Config, infra *Infra) (session.Store, error) {
	switch cfg.SessionStore {
	case config.StoreRedis:
		if infra.Redis == nil {
			return nil, fmt.Errorf("session store %q: redis not connected", cfg.SessionStore)
		}
		return session.NewRedisStore(infra.Redis.Client), nil
	case config.StoreMemory, "":
		return session.NewMemoryStore(sessionCleanupInterval), nil
	default:
		return nil, fmt.Errorf("unsupported session store %q", cfg.SessionStore)
	}
}

func newProfileStore(cfg config.Config, infra *Infra) (profile.Store, error) {
	switch cfg.ProfileStore {
	case config.StoreRedis:
		if infra.Redis == nil {
			return nil, fmt.Errorf("profile store %q: redis not connected", cfg.ProfileStore)
		}
		return profile.NewRedisStore(infra.Redis.Client), nil
	case config.StorePostgres:
		if infra.DB == nil {
			return nil, fmt.Errorf("profile store %q: database not connected", cfg.ProfileStore)
		}
		return profile.NewPostgresStore(infra.DB), nil
	case config.StoreMemory, "":
		return profile.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported profile store %q", cfg.ProfileStore)
	}
}

func newRoleAssigner(cfg config.Config, httpClient *http.Client) roles.Assigner {
	if cfg.DiscordBotEnabled() {
		return roles.NewDiscordAssigner(roles.DiscordConfig{
			APIBaseURL: cfg.DiscordAPIBaseURL,
			BotToken:   cfg.DiscordBotToken,
			GuildID:    cfg.DiscordGuildID,
			RoleIDs: map[string]string{
				roles.ChainEVM: cfg.DiscordRoleEVM,
				roles.ChainBTC: cfg.DiscordRoleBTC,
				roles.ChainADA: cfg.DiscordRoleADA,
			},
			RequestsPerSecond: cfg.RoleAssignRPS,
			HTTPClient:        httpClient,
		})
	}
	return roles.NewWebhookAssigner(cfg.RoleWebhookURL, cfg.RoleWebhookSecret, httpClient)
}

// Cross-site web apps need SameSite=None to send the cookie on API calls,
// which browsers only accept on secure cookies.
func cookieOptions(cfg config.Config) session.CookieOptions {
	opts := session.CookieOptions{Secure: cfg.CookieSecure}
	if cfg.CookieSecure && len(cfg.WebAppOrigins) > 0 {
		opts.SameSite = http.SameSiteNoneMode
	}
	return opts
}

// popupTargetOrigins lists where the login popup may post its result:
// the configured web app origins, or else the origin serving the callback.
func popupTargetOrigins(cfg config.Config) ([]string, error) {
	if len(cfg.WebAppOrigins) > 0 {
		return cfg.WebAppOrigins, nil
	}
	u, err := url.Parse(cfg.DiscordRedirectURI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("cannot derive popup origin from DISCORD_REDIRECT_URI %q", cfg.DiscordRedirectURI)
	}
	return []string{u.Scheme + "://" + u.Host}, nil
}
