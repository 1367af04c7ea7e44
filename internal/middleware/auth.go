package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Constitosh/verifyDN/internal/auth"
	"github.com/Constitosh/verifyDN/internal/logger"
)

// unexported, collision-proof context key
type identityContextKeyType struct{}

var identityKey = identityContextKeyType{}

// IdentityFromContext extracts the authenticated identity from context.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentitySource resolves the identity bound to a session id.
type IdentitySource interface {
	CurrentIdentity(ctx context.Context, sessionID string) (*auth.Identity, error)
}

// SessionReader extracts the session id from the request cookie.
type SessionReader interface {
	SessionID(r *http.Request) (string, bool)
}

type AuthMiddleware struct {
	Identities IdentitySource
	Sessions   SessionReader
}

func NewAuthMiddleware(identities IdentitySource, sessions SessionReader) *AuthMiddleware {
	return &AuthMiddleware{Identities: identities, Sessions: sessions}
}

func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := a.Sessions.SessionID(r)
		if !ok {
			unauthorized(w)
			return
		}

		identity, err := a.Identities.CurrentIdentity(r.Context(), sessionID)
		if err != nil {
			logger.Error("session lookup failed", map[string]any{
				"error": err.Error(),
				"path":  r.URL.Path,
			})
			writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "internal error"})
			return
		}
		if identity == nil {
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), *identity)))
	})
}

func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"ok":    false,
		"error": auth.ErrUnauthenticated.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
