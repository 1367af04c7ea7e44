package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/Constitosh/verifyDN/internal/auth"
	"github.com/Constitosh/verifyDN/internal/logger"
	"github.com/Constitosh/verifyDN/internal/middleware"
	"github.com/Constitosh/verifyDN/internal/profile"
	"github.com/Constitosh/verifyDN/internal/roles"

	"github.com/gin-gonic/gin"
)

// Profiles is the profile service surface used by the API.
type Profiles interface {
	Get(ctx context.Context, identity auth.Identity) (profile.Profile, error)
	Save(ctx context.Context, identityKey, displayName string, incoming profile.Wallets) (profile.Profile, error)
}

type RoleAssigner interface {
	Assign(ctx context.Context, identityKey string) (roles.Result, error)
}

type Handler struct {
	profiles Profiles
	roles    RoleAssigner
}

func NewHandler(profiles Profiles, roleAssigner RoleAssigner) *Handler {
	return &Handler{profiles: profiles, roles: roleAssigner}
}

// RegisterRoutes mounts the endpoints on a group that already runs
// middleware.GinRequireAuth.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/me", h.me)
	r.POST("/save", h.save)
	r.POST("/assign-roles", h.assignRoles)
}

// maxSaveBody bounds POST /api/save; three addresses fit well inside it.
const maxSaveBody = 4 << 10

type saveRequest struct {
	EVMAddress string `json:"evmAddress"`
	BTCAddress string `json:"btcAddress"`
	ADAAddress string `json:"adaAddress"`
}

func (h *Handler) me(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}

	p, err := h.profiles.Get(c.Request.Context(), identity)
	if err != nil {
		internalError(c, "profile load failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"identityKey": identity.ProviderID,
		"displayName": identity.DisplayName,
		"profile":     p,
	})
}

func (h *Handler) save(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSaveBody)

	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"ok": false, "error": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON body"})
		return
	}

	wallets := profile.Wallets{
		EVM: req.EVMAddress,
		BTC: req.BTCAddress,
		ADA: req.ADAAddress,
	}.Normalize()
	if err := wallets.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	p, err := h.profiles.Save(c.Request.Context(), identity.ProviderID, identity.DisplayName, wallets)
	if err != nil {
		internalError(c, "profile save failed", err)
		return
	}

	logger.Info("profile saved", map[string]any{
		"identity_key": identity.ProviderID,
		"request_id":   c.GetString("request_id"),
	})

	c.JSON(http.StatusOK, gin.H{"ok": true, "profile": p})
}

func (h *Handler) assignRoles(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}

	res, err := h.roles.Assign(c.Request.Context(), identity.ProviderID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true, "result": res})
	case errors.Is(err, roles.ErrNoProfile):
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "No profile saved yet. Save your wallets first.",
		})
	case errors.Is(err, roles.ErrRoleAssignmentFailed):
		logger.Warn("role assignment failed", map[string]any{
			"identity_key": identity.ProviderID,
			"error":        err.Error(),
		})
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": err.Error()})
	default:
		internalError(c, "role assignment error", err)
	}
}

func identityOrAbort(c *gin.Context) (auth.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"ok":    false,
			"error": auth.ErrUnauthenticated.Error(),
		})
		return auth.Identity{}, false
	}
	return identity, true
}

func internalError(c *gin.Context, msg string, err error) {
	logger.Error(msg, map[string]any{
		"error":      err.Error(),
		"path":       c.FullPath(),
		"request_id": c.GetString("request_id"),
	})
	c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
}
