package server_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/goliatone/go-greeter"
	"github.com/goliatone/go-greeter/credentials"
	"github.com/goliatone/go-greeter/server"
	"github.com/goliatone/go-greeter/view"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// newAccountsFixture serves the page with the bun backed authenticator
// and one seeded account
func newAccountsFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	accounts := credentials.NewAccountsRepository(db)
	require.NoError(t, accounts.EnsureSchema(ctx))
	_, err = credentials.Seed(ctx, accounts, "ada@example.com", "s3cret-password", greeter.StringPtr("Ada"))
	require.NoError(t, err)

	cfg := testConfig{}
	tokens := credentials.NewTokenService([]byte(cfg.GetSigningKey()), time.Hour, "greeter-test", []string{"greeter:test"}, nil)
	auther := credentials.NewAuthenticator(accounts, tokens)

	renderer, err := view.New()
	require.NoError(t, err)

	logger := greeter.NewLogger("TEST", false)
	hub := greeter.NewHub().WithLogger(logger)

	srv := server.New(auther, hub, renderer, cfg,
		server.WithLogger(logger),
		server.WithHeartbeat(0),
		server.WithAccessLog(false),
	)

	t.Cleanup(func() {
		hub.Close()
		db.Close()
	})

	return &fixture{
		hub:    hub,
		server: srv,
		key:    uuid.NewString(),
	}
}

func sessionStatus(t *testing.T, res *http.Response) greeter.Status {
	t.Helper()

	var got greeter.Session
	require.NoError(t, json.Unmarshal([]byte(readBody(t, res)), &got))
	return got.Status
}

func TestSession_CookieBoundToBrowser(t *testing.T) {
	f := newAccountsFixture(t)

	res := f.postForm(t, "/login", url.Values{
		"identifier": {"ada@example.com"},
		"password":   {"s3cret-password"},
	})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)

	issued := findCookie(res, sessionCookie)
	require.NotNil(t, issued)
	require.NotEmpty(t, issued.Value)
	token := &http.Cookie{Name: sessionCookie, Value: issued.Value}

	res = f.get(t, "/api/auth/session", token)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, greeter.StatusAuthenticated, sessionStatus(t, res))

	other := &fixture{server: f.server, hub: f.hub, key: uuid.NewString()}

	res = other.get(t, "/api/auth/session", token)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, greeter.StatusUnauthenticated, sessionStatus(t, res))

	cleared := findCookie(res, sessionCookie)
	require.NotNil(t, cleared, "a cookie from another browser is discarded")
	assert.Empty(t, cleared.Value)
}
