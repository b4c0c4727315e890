package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goliatone/go-greeter"
	"github.com/goliatone/go-greeter/config"
	"github.com/goliatone/go-greeter/credentials"
	"github.com/goliatone/go-greeter/metrics"
	"github.com/goliatone/go-greeter/server"
	"github.com/goliatone/go-greeter/view"
	"github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type App struct {
	config   *config.Config
	routes   server.Routes
	db       *bun.DB
	accounts credentials.Accounts
	auth     *credentials.Authenticator
	hub      *greeter.Hub
	srv      *server.Server
}

func (a *App) Logger(name string) greeter.Logger {
	return greeter.NewLogger(name, a.config.IsDebug())
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func WithPersistence(ctx context.Context, app *App) error {
	cfg := app.config.GetPersistence()

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.GetDSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// shared in-memory databases vanish with their last connection
	sqldb.SetMaxOpenConns(1)

	persistence.RegisterModel((*credentials.Account)(nil))

	client, err := persistence.New(cfg, sqldb, sqlitedialect.New())
	if err != nil {
		sqldb.Close()
		return fmt.Errorf("persistence client: %w", err)
	}

	app.db = client.DB().(*bun.DB)
	app.accounts = credentials.NewAccountsRepository(app.db)

	if err := app.accounts.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	return nil
}

func WithSeed(ctx context.Context, app *App, email, password string, name *string) error {
	account, err := credentials.Seed(ctx, app.accounts, email, password, name)
	if err != nil {
		return fmt.Errorf("seed account: %w", err)
	}

	app.Logger("persistence").Info("seed account ready email=%s", account.Email)
	return nil
}

func WithAuthenticator(_ context.Context, app *App) error {
	cfg := app.config

	tokens := credentials.NewTokenService(
		[]byte(cfg.GetSigningKey()),
		time.Duration(cfg.GetTokenExpiration())*time.Hour,
		cfg.GetIssuer(),
		cfg.GetAudience(),
		app.Logger("tokens"),
	)

	app.auth = credentials.NewAuthenticator(
		app.accounts,
		tokens,
		credentials.WithLoginPath(app.routes.Login),
		credentials.WithExtendedDuration(time.Duration(cfg.GetExtendedTokenDuration())*time.Hour),
		credentials.WithLogger(app.Logger("auth")),
	)

	return nil
}

func WithHTTPServer(_ context.Context, app *App) error {
	renderer, err := view.New(
		view.WithReload(app.config.IsDebug()),
		view.WithLogger(app.Logger("view")),
	)
	if err != nil {
		return err
	}

	reg, m := metrics.NewRegistry()

	app.hub = greeter.NewHub().
		WithLogger(app.Logger("hub")).
		WithObserver(m)

	app.srv = server.New(app.auth, app.hub, renderer, app.config,
		server.WithLogger(app.Logger("http")),
		server.WithRoutes(app.routes),
		server.WithMetrics(m, metrics.HandlerFor(reg)),
	)

	return nil
}
