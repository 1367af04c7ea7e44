package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Constitosh/verifyDN/internal/auth"
	"github.com/Constitosh/verifyDN/internal/auth/manager"
	"github.com/Constitosh/verifyDN/internal/profile"
	"github.com/Constitosh/verifyDN/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func init() {
	gin.SetMode(gin.TestMode)
}

type stubProvider struct {
	identity    *auth.Identity
	exchangeErr error
}

func (s *stubProvider) Name() string { return "discord" }

func (s *stubProvider) AuthCodeURL(state string) string {
	return "https://discord.example/oauth2/authorize?state=" + url.QueryEscape(state)
}

func (s *stubProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	if s.exchangeErr != nil {
		return nil, s.exchangeErr
	}
	return &oauth2.Token{AccessToken: "tok"}, nil
}

func (s *stubProvider) FetchIdentity(ctx context.Context, token *oauth2.Token) (*auth.Identity, error) {
	return s.identity, nil
}

type harness struct {
	router   *gin.Engine
	provider *stubProvider
	sessions session.Store
	cookies  *session.CookieCodec
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	sp := &stubProvider{identity: &auth.Identity{ProviderID: "42", DisplayName: `ana</script><script>alert(1)</script>`}}
	sessions := session.NewMemoryStore(time.Minute)
	profiles := profile.NewService(profile.NewMemoryStore())
	mgr := manager.New(sp, sessions, profiles, time.Hour)
	cookies := session.NewCookieCodec("sid", testSecret, time.Hour, session.CookieOptions{})

	r := gin.New()
	NewHandler(mgr, cookies, []string{"https://app.example.com"}).RegisterRoutes(r)

	return &harness{router: r, provider: sp, sessions: sessions, cookies: cookies}
}

func (h *harness) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) sessionID(c *http.Cookie) string {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	v, _ := h.cookies.SessionID(req)
	return v
}

// login runs the first leg and returns the session cookie and issued state.
func (h *harness) login(t *testing.T, cookies ...*http.Cookie) (*http.Cookie, string) {
	t.Helper()

	rec := h.do(httptest.NewRequest(http.MethodGet, "/auth/discord", nil), cookies...)
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	set := rec.Result().Cookies()
	require.Len(t, set, 1)
	return set[0], state
}

func callbackURL(code, state string) string {
	q := url.Values{}
	if code != "" {
		q.Set("code", code)
	}
	if state != "" {
		q.Set("state", state)
	}
	return "/auth/discord/callback?" + q.Encode()
}

func TestLogin_RedirectsWithStateAndSetsCookie(t *testing.T) {
	h := newHarness(t)

	cookie, state := h.login(t)
	assert.Equal(t, "sid", cookie.Name)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	sessionID, ok := h.cookies.SessionID(req)
	require.True(t, ok)

	sess, err := h.sessions.Get(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, state, sess.CSRFState)
}

func TestLogin_SameBrowserKeepsSession(t *testing.T) {
	h := newHarness(t)

	first, _ := h.login(t)
	second, _ := h.login(t, first)

	assert.Equal(t, h.sessionID(first), h.sessionID(second))
}

func TestCallback_Success(t *testing.T) {
	h := newHarness(t)
	cookie, state := h.login(t)

	rec := h.do(httptest.NewRequest(http.MethodGet, callbackURL("abc", state), nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	reissued := rec.Result().Cookies()
	require.Len(t, reissued, 1)
	assert.NotEqual(t, h.sessionID(cookie), h.sessionID(reissued[0]))

	body := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, body, `"auth-success"`)
	assert.Contains(t, body, `"id":"42"`)
	assert.Contains(t, body, `"https://app.example.com"`)
	assert.Contains(t, body, "window.close()")
	assert.NotContains(t, body, "</script><script>alert(1)")
	assert.NotContains(t, body, `"*"`)
}

func TestCallback_Replay(t *testing.T) {
	h := newHarness(t)
	cookie, state := h.login(t)

	rec := h.do(httptest.NewRequest(http.MethodGet, callbackURL("abc", state), nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(httptest.NewRequest(http.MethodGet, callbackURL("abc", state), nil), cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired login attempt")
}

func TestCallback_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(state string) string
		withCookie bool
		wantStatus int
	}{
		{name: "missing state", mutate: func(string) string { return "" }, withCookie: true, wantStatus: http.StatusBadRequest},
		{name: "altered state", mutate: func(s string) string { return s + "x" }, withCookie: true, wantStatus: http.StatusBadRequest},
		{name: "no session cookie", mutate: func(s string) string { return s }, withCookie: false, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			cookie, state := h.login(t)

			var cookies []*http.Cookie
			if tt.withCookie {
				cookies = append(cookies, cookie)
			}
			rec := h.do(httptest.NewRequest(http.MethodGet, callbackURL("abc", tt.mutate(state)), nil), cookies...)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestCallback_CrossSessionState(t *testing.T) {
	h := newHarness(t)
	victim, _ := h.login(t)
	_, attackerState := h.login(t)

	rec := h.do(httptest.NewRequest(http.MethodGet, callbackURL("abc", attackerState), nil), victim)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallback_ProviderFailure(t *testing.T) {
	h := newHarness(t)
	h.provider.exchangeErr = auth.ErrProviderExchangeFailed
	cookie, state := h.login(t)

	rec := h.do(httptest.NewRequest(http.MethodGet, callbackURL("abc", state), nil), cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Discord authentication failed")
}

func TestCallback_ConsentDenied(t *testing.T) {
	h := newHarness(t)
	cookie, state := h.login(t)

	target := "/auth/discord/callback?error=access_denied&state=" + url.QueryEscape(state)
	rec := h.do(httptest.NewRequest(http.MethodGet, target, nil), cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// The state was consumed by the denied attempt.
	rec = h.do(httptest.NewRequest(http.MethodGet, callbackURL("abc", state), nil), cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	preLogin, state := h.login(t)
	rec := h.do(httptest.NewRequest(http.MethodGet, callbackURL("abc", state), nil), preLogin)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)
	cookie := rec.Result().Cookies()[0]

	rec = h.do(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), cookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)

	sess, err := h.sessions.Get(context.Background(), h.sessionID(cookie))
	require.NoError(t, err)
	assert.Nil(t, sess)

	// Idempotent without a cookie.
	rec = h.do(httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPopupRenderer_EmptyOrigins(t *testing.T) {
	page, err := newPopupRenderer(nil).render(auth.Identity{ProviderID: "1", DisplayName: "x"})
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(page), "var origins = [];") || strings.Contains(string(page), "var origins = [ ];"))
}
