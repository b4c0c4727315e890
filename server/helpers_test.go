package server_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/goliatone/go-greeter"
	"github.com/goliatone/go-greeter/server"
	"github.com/goliatone/go-greeter/view"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	sessionCookie = "greeter_session"
	browserCookie = "greeter_browser"
)

type testConfig struct {
	csrf bool
	live bool
}

func (c testConfig) GetContextKey() string         { return sessionCookie }
func (c testConfig) GetBrowserKey() string         { return browserCookie }
func (c testConfig) GetSigningKey() string         { return "test-signing-key-0123456789" }
func (c testConfig) GetTokenExpiration() int       { return 1 }
func (c testConfig) GetExtendedTokenDuration() int { return 48 }
func (c testConfig) UseSecureCookies() bool        { return false }
func (c testConfig) UseCSRF() bool                 { return c.csrf }
func (c testConfig) UseLive() bool                 { return c.live }
func (c testConfig) IsDebug() bool                 { return true }

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Session(ctx context.Context, token, browserKey string) (greeter.Session, error) {
	args := m.Called(ctx, token, browserKey)
	return args.Get(0).(greeter.Session), args.Error(1)
}

func (m *MockAuthenticator) BeginSession(ctx context.Context, callback string) (string, error) {
	args := m.Called(ctx, callback)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) Login(ctx context.Context, payload greeter.LoginPayload, browserKey string) (string, greeter.Session, error) {
	args := m.Called(ctx, payload, browserKey)
	return args.String(0), args.Get(1).(greeter.Session), args.Error(2)
}

func (m *MockAuthenticator) EndSession(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

type fixture struct {
	auth   *MockAuthenticator
	hub    *greeter.Hub
	server *server.Server
	key    string
}

func newFixture(t *testing.T, cfg testConfig) *fixture {
	t.Helper()

	renderer, err := view.New()
	require.NoError(t, err)

	logger := greeter.NewLogger("TEST", false)
	hub := greeter.NewHub().WithLogger(logger)
	auth := new(MockAuthenticator)

	srv := server.New(auth, hub, renderer, cfg,
		server.WithLogger(logger),
		server.WithHeartbeat(0),
		server.WithAccessLog(false),
	)

	t.Cleanup(func() {
		hub.Close()
		auth.AssertExpectations(t)
	})

	return &fixture{
		auth:   auth,
		hub:    hub,
		server: srv,
		key:    uuid.NewString(),
	}
}

// request sends req with the fixture browser key and any extra cookies
func (f *fixture) request(t *testing.T, req *http.Request, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	req.AddCookie(&http.Cookie{Name: browserCookie, Value: f.key})
	for _, c := range cookies {
		req.AddCookie(c)
	}

	res, err := f.server.App().Test(req, -1)
	require.NoError(t, err)
	return res
}

func (f *fixture) get(t *testing.T, target string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	return f.request(t, httptest.NewRequest(http.MethodGet, target, nil), cookies...)
}

func (f *fixture) postForm(t *testing.T, target string, values url.Values, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.request(t, req, cookies...)
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(body)
}

func findCookie(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

var csrfInput = regexp.MustCompile(`name="_csrf" value="([^"]+)"`)

func csrfToken(t *testing.T, body string) string {
	t.Helper()

	m := csrfInput.FindStringSubmatch(body)
	require.Len(t, m, 2, "csrf field not found in %s", body)
	return m[1]
}
