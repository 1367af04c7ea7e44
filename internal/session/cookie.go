package session

import (
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const DefaultCookieName = "sid"

// CookieOptions defines how session cookies are issued.
type CookieOptions struct {
	Path     string
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
	Domain   string
}

// normalize applies safe defaults without breaking callers
func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	if !o.HttpOnly {
		o.HttpOnly = true // secure default
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	return o
}

// CookieCodec carries the session id to the browser as an encrypted and
// authenticated value, so the client can neither read nor mint a handle.
type CookieCodec struct {
	name   string
	codec  *securecookie.SecureCookie
	opts   CookieOptions
	maxAge time.Duration
}

func NewCookieCodec(name, secret string, maxAge time.Duration, opts CookieOptions) *CookieCodec {
	if name == "" {
		name = DefaultCookieName
	}

	hashKey := sha256.Sum256([]byte("session-hash:" + secret))
	blockKey := sha256.Sum256([]byte("session-block:" + secret))

	sc := securecookie.New(hashKey[:], blockKey[:])
	sc.MaxAge(int(maxAge.Seconds()))

	return &CookieCodec{
		name:   name,
		codec:  sc,
		opts:   opts.normalize(),
		maxAge: maxAge,
	}
}

// Name returns the cookie name.
func (c *CookieCodec) Name() string {
	return c.name
}

// SetCookie issues the session cookie to the client.
func (c *CookieCodec) SetCookie(w http.ResponseWriter, sessionID string, expiresAt time.Time) error {
	value, err := c.codec.Encode(c.name, sessionID)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     c.opts.Path,
		Domain:   c.opts.Domain,
		Expires:  expiresAt,
		HttpOnly: c.opts.HttpOnly,
		Secure:   c.opts.Secure,
		SameSite: c.opts.SameSite,
	})
	return nil
}

// SessionID returns the session id carried by the request cookie. Missing,
// expired or tampered cookies all read as absent.
func (c *CookieCodec) SessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(c.name)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	var sessionID string
	if err := c.codec.Decode(c.name, cookie.Value, &sessionID); err != nil {
		return "", false
	}
	return sessionID, sessionID != ""
}

// ClearCookie removes the session cookie from the client.
func (c *CookieCodec) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     c.opts.Path,
		Domain:   c.opts.Domain,
		MaxAge:   -1,
		HttpOnly: c.opts.HttpOnly,
		Secure:   c.opts.Secure,
		SameSite: c.opts.SameSite,
	})
}
