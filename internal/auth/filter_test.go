package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/maputo/user-service/internal/api/dto"
)

type observed struct {
	Authenticated bool     `json:"authenticated"`
	FromContext   bool     `json:"from_context"`
	Username      string   `json:"username"`
	Authorities   []string `json:"authorities"`
}

func newFilterApp(t *testing.T, filter *AuthFilter, pre ...fiber.Handler) *fiber.App {
	t.Helper()
	app := fiber.New()
	for _, h := range pre {
		app.Use(h)
	}
	app.Use(filter.Handle)

	echo := func(c *fiber.Ctx) error {
		sc, ok := SecurityContextFrom(c)
		_, fromCtx := FromContext(c.UserContext())
		out := observed{Authenticated: ok, FromContext: fromCtx}
		if ok {
			out.Username = sc.Username
			out.Authorities = sc.Authorities
		}
		return c.JSON(out)
	}
	app.All("/public", echo)
	app.Get("/protected", RequireAuthenticated(), echo)
	app.Delete("/admin", RequireAnyAuthority("user:delete"), echo)
	return app
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func decodeObserved(t *testing.T, body []byte) observed {
	t.Helper()
	var out observed
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestAuthFilter_PreflightBypass(t *testing.T) {
	tm, _ := newTestManager(t)
	app := newFilterApp(t, NewAuthFilter(tm, nil))

	req := httptest.NewRequest(http.MethodOptions, "/public", nil)
	resp, body := doRequest(t, app, req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeObserved(t, body).Authenticated)
}

func TestAuthFilter_PreflightIgnoresForgedToken(t *testing.T) {
	tm, _ := newTestManager(t)
	app := newFilterApp(t, NewAuthFilter(tm, nil))

	req := httptest.NewRequest(http.MethodOptions, "/public", nil)
	req.Header.Set("Authorization", "Bearer forged")
	resp, body := doRequest(t, app, req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeObserved(t, body).Authenticated)
}

func TestAuthFilter_MissingHeaderPassesThrough(t *testing.T) {
	tm, _ := newTestManager(t)
	app := newFilterApp(t, NewAuthFilter(tm, nil))

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/public", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeObserved(t, body).Authenticated)

	resp, body = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var errBody dto.HTTPResponse
	require.NoError(t, json.Unmarshal(body, &errBody))
	assert.Equal(t, dto.HTTPResponse{
		HTTPStatusCode: http.StatusForbidden,
		HTTPStatus:     "FORBIDDEN",
		Reason:         "FORBIDDEN",
		Message:        ForbiddenMessage,
	}, errBody)
}

func TestAuthFilter_NonBearerHeaderPassesThrough(t *testing.T) {
	tm, _ := newTestManager(t)
	app := newFilterApp(t, NewAuthFilter(tm, nil))
	token, err := tm.Issue(Principal{Username: "rick", Authorities: []string{"user:read"}})
	require.NoError(t, err)

	for _, header := range []string{"Basic cmljazpwYXNz", "bearer " + token, token} {
		req := httptest.NewRequest(http.MethodGet, "/public", nil)
		req.Header.Set("Authorization", header)
		_, body := doRequest(t, app, req)
		assert.False(t, decodeObserved(t, body).Authenticated, "header %q", header)
	}
}

func TestAuthFilter_InstallsContextForValidToken(t *testing.T) {
	tm, _ := newTestManager(t)
	app := newFilterApp(t, NewAuthFilter(tm, nil))
	token, err := tm.Issue(Principal{Username: "rick", Authorities: []string{"user:read", "user:delete"}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", TokenPrefix+token)
	resp, body := doRequest(t, app, req)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeObserved(t, body)
	assert.True(t, out.Authenticated)
	assert.True(t, out.FromContext)
	assert.Equal(t, "rick", out.Username)
	assert.ElementsMatch(t, []string{"user:read", "user:delete"}, out.Authorities)
}

func TestAuthFilter_ExpiredTokenLeavesRequestUnauthenticated(t *testing.T) {
	tm, clock := newTestManager(t)
	app := newFilterApp(t, NewAuthFilter(tm, nil))
	token, err := tm.Issue(Principal{Username: "rick", Authorities: []string{"user:read"}})
	require.NoError(t, err)
	clock.Advance(DefaultTokenTTL + time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.Header.Set("Authorization", TokenPrefix+token)
	resp, body := doRequest(t, app, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeObserved(t, body).Authenticated)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", TokenPrefix+token)
	resp, _ = doRequest(t, app, req)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAuthFilter_ClearsStaleContextOnInvalidToken(t *testing.T) {
	tm, _ := newTestManager(t)
	stale := func(c *fiber.Ctx) error {
		setSecurityContext(c, &SecurityContext{Username: "mallory", Authorities: []string{"user:delete"}})
		return c.Next()
	}
	app := newFilterApp(t, NewAuthFilter(tm, nil), stale)

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	_, body := doRequest(t, app, req)

	out := decodeObserved(t, body)
	assert.False(t, out.Authenticated)
	assert.False(t, out.FromContext)
	assert.Empty(t, out.Username)
	assert.Empty(t, out.Authorities)
}

func TestAuthFilter_KeepsExistingContextForValidToken(t *testing.T) {
	tm, _ := newTestManager(t)
	existing := func(c *fiber.Ctx) error {
		setSecurityContext(c, &SecurityContext{Username: "morty", Authorities: []string{"user:read"}})
		return c.Next()
	}
	app := newFilterApp(t, NewAuthFilter(tm, nil), existing)
	token, err := tm.Issue(Principal{Username: "rick", Authorities: []string{"user:delete"}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.Header.Set("Authorization", TokenPrefix+token)
	_, body := doRequest(t, app, req)

	out := decodeObserved(t, body)
	assert.True(t, out.Authenticated)
	assert.Equal(t, "morty", out.Username)
	assert.Equal(t, []string{"user:read"}, out.Authorities)
}

func TestAuthFilter_TwiceWithInvalidTokenNeverPartial(t *testing.T) {
	tm, _ := newTestManager(t)
	filter := NewAuthFilter(tm, nil)
	app := newFilterApp(t, filter, filter.Handle)

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.Header.Set("Authorization", "Bearer a.b.c")
	_, body := doRequest(t, app, req)

	out := decodeObserved(t, body)
	assert.False(t, out.Authenticated)
	assert.False(t, out.FromContext)
	assert.Empty(t, out.Username)
	assert.Empty(t, out.Authorities)
}

func TestAuthFilter_TwiceWithValidTokenIsConsistent(t *testing.T) {
	tm, _ := newTestManager(t)
	filter := NewAuthFilter(tm, nil)
	app := newFilterApp(t, filter, filter.Handle)
	token, err := tm.Issue(Principal{Username: "rick", Authorities: []string{"user:read"}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.Header.Set("Authorization", TokenPrefix+token)
	_, body := doRequest(t, app, req)

	out := decodeObserved(t, body)
	assert.True(t, out.Authenticated)
	assert.Equal(t, "rick", out.Username)
	assert.Equal(t, []string{"user:read"}, out.Authorities)
}

func TestRequireAnyAuthority(t *testing.T) {
	tm, _ := newTestManager(t)
	app := newFilterApp(t, NewAuthFilter(tm, nil))

	reader, err := tm.Issue(Principal{Username: "morty", Authorities: []string{"user:read"}})
	require.NoError(t, err)
	admin, err := tm.Issue(Principal{Username: "rick", Authorities: []string{"user:read", "user:delete"}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/admin", nil)
	resp, _ := doRequest(t, app, req)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(http.MethodDelete, "/admin", nil)
	req.Header.Set("Authorization", TokenPrefix+reader)
	resp, body := doRequest(t, app, req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var errBody dto.HTTPResponse
	require.NoError(t, json.Unmarshal(body, &errBody))
	assert.Equal(t, AccessDeniedMessage, errBody.Message)
	assert.Equal(t, "UNAUTHORIZED", errBody.HTTPStatus)

	req = httptest.NewRequest(http.MethodDelete, "/admin", nil)
	req.Header.Set("Authorization", TokenPrefix+admin)
	resp, _ = doRequest(t, app, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthFilter_LogsRejectionKind(t *testing.T) {
	tm, clock := newTestManager(t)
	core, logs := observer.New(zap.DebugLevel)
	app := newFilterApp(t, NewAuthFilter(tm, zap.New(core)))

	forged := NewTokenManager("another-secret", testIssuer, testAudience, DefaultTokenTTL, WithClock(clock.Now))
	forgedToken, err := forged.Issue(Principal{Username: "rick"})
	require.NoError(t, err)
	expiredToken, err := tm.Issue(Principal{Username: "rick"})
	require.NoError(t, err)

	cases := []struct {
		token string
		kind  string
	}{
		{"not-a-token", "malformed"},
		{forgedToken, "forged"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/public", nil)
		req.Header.Set("Authorization", TokenPrefix+tc.token)
		doRequest(t, app, req)
	}
	clock.Advance(DefaultTokenTTL)
	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.Header.Set("Authorization", TokenPrefix+expiredToken)
	doRequest(t, app, req)

	entries := logs.FilterMessage("bearer token rejected").All()
	require.Len(t, entries, 3)
	for i, want := range []string{"malformed", "forged", "expired"} {
		assert.Equal(t, want, entries[i].ContextMap()["kind"])
	}
	assert.Contains(t, entries[1].ContextMap(), "cause")
	assert.NotContains(t, entries[2].ContextMap(), "cause")
}
