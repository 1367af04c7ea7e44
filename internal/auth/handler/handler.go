package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/Constitosh/verifyDN/internal/auth"
	"github.com/Constitosh/verifyDN/internal/logger"
	"github.com/Constitosh/verifyDN/internal/session"

	"github.com/gin-gonic/gin"
)

// Authenticator is the login lifecycle the handler drives.
type Authenticator interface {
	BeginAuth(ctx context.Context, sessionID string) (string, *session.Session, error)
	CompleteAuth(ctx context.Context, sessionID, code, state string) (*session.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

type Handler struct {
	auth    Authenticator
	cookies *session.CookieCodec
	popup   *popupRenderer
}

// NewHandler wires the OAuth routes. targetOrigins lists the only origins
// the login popup will report the result to.
func NewHandler(
	authenticator Authenticator,
	cookies *session.CookieCodec,
	targetOrigins []string,
) *Handler {
	return &Handler{
		auth:    authenticator,
		cookies: cookies,
		popup:   newPopupRenderer(targetOrigins),
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/auth/discord", h.login)
	r.GET("/auth/discord/callback", h.callback)
	r.POST("/auth/logout", h.logout)
}

func (h *Handler) login(c *gin.Context) {
	sessionID, _ := h.cookies.SessionID(c.Request)

	authURL, sess, err := h.auth.BeginAuth(c.Request.Context(), sessionID)
	if err != nil {
		logger.Error("begin auth failed", map[string]any{
			"error":      err.Error(),
			"request_id": c.GetString("request_id"),
		})
		c.String(http.StatusInternalServerError, "OAuth error")
		return
	}

	if err := h.cookies.SetCookie(c.Writer, sess.SessionID, sess.ExpiresAt); err != nil {
		logger.Error("session cookie encode failed", map[string]any{"error": err.Error()})
		c.String(http.StatusInternalServerError, "OAuth error")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, authURL)
}

func (h *Handler) callback(c *gin.Context) {
	sessionID, _ := h.cookies.SessionID(c.Request)

	// A denied consent arrives as ?error=... without a code; it still goes
	// through CompleteAuth so the pending state is consumed.
	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oauth callback returned error", map[string]any{
			"error": errParam,
			"desc":  c.Query("error_description"),
		})
	}

	sess, err := h.auth.CompleteAuth(
		c.Request.Context(),
		sessionID,
		c.Query("code"),
		c.Query("state"),
	)
	if err != nil {
		status, msg := callbackError(err)
		if status == http.StatusInternalServerError {
			logger.Error("oauth callback failed", map[string]any{
				"error":      err.Error(),
				"request_id": c.GetString("request_id"),
			})
		}
		c.Header("Cache-Control", "no-store")
		c.String(status, msg)
		return
	}

	// The session id changed on login; the old cookie is dead.
	if err := h.cookies.SetCookie(c.Writer, sess.SessionID, sess.ExpiresAt); err != nil {
		logger.Error("session cookie encode failed", map[string]any{"error": err.Error()})
		c.String(http.StatusInternalServerError, "OAuth error")
		return
	}

	page, err := h.popup.render(*sess.Identity)
	if err != nil {
		logger.Error("popup render failed", map[string]any{"error": err.Error()})
		c.String(http.StatusInternalServerError, "OAuth error")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (h *Handler) logout(c *gin.Context) {
	if sessionID, ok := h.cookies.SessionID(c.Request); ok {
		// best-effort: the cookie is cleared either way
		if err := h.auth.Logout(c.Request.Context(), sessionID); err != nil {
			logger.Warn("session delete failed", map[string]any{"error": err.Error()})
		}
	}

	h.cookies.ClearCookie(c.Writer)
	c.Status(http.StatusNoContent)
}

func callbackError(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrStateMismatch):
		return http.StatusBadRequest, "Invalid or expired login attempt. Please start the login again."
	case errors.Is(err, auth.ErrProviderExchangeFailed), errors.Is(err, auth.ErrProviderIdentityMissing):
		return http.StatusUnauthorized, "Discord authentication failed. Please start the login again."
	default:
		return http.StatusInternalServerError, "OAuth error"
	}
}
