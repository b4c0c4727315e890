package credentials

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/goliatone/go-greeter"
	"github.com/google/uuid"
)

var _ greeter.Authenticator = (*Authenticator)(nil)

// Authenticator signs users in with an email and password and keeps the
// resulting session in a signed token
type Authenticator struct {
	accounts         Accounts
	tokens           *TokenService
	logger           greeter.Logger
	loginPath        string
	extendedDuration time.Duration
}

type AuthenticatorOption func(*Authenticator)

// WithLoginPath sets the sign-in form location returned by BeginSession
func WithLoginPath(path string) AuthenticatorOption {
	return func(a *Authenticator) {
		if path != "" {
			a.loginPath = path
		}
	}
}

// WithExtendedDuration sets the token lifetime used for "remember me" logins
func WithExtendedDuration(d time.Duration) AuthenticatorOption {
	return func(a *Authenticator) {
		if d > 0 {
			a.extendedDuration = d
		}
	}
}

func WithLogger(logger greeter.Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(accounts Accounts, tokens *TokenService, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		accounts:         accounts,
		tokens:           tokens,
		logger:           greeter.DefaultLogger,
		loginPath:        "/login",
		extendedDuration: tokens.Expiration(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Session resolves the session carried by token. Invalid tokens, tokens
// issued to another browser and accounts that no longer exist resolve to
// an unauthenticated session together with the reason.
func (a *Authenticator) Session(ctx context.Context, token, browserKey string) (greeter.Session, error) {
	if token == "" {
		return greeter.Unauthenticated(), nil
	}

	claims, err := a.tokens.Validate(token)
	if err != nil {
		return greeter.Unauthenticated(), err
	}

	if claims.BrowserKey != browserKey {
		a.logger.Info("Session token issued to another browser user=%s", claims.UserID())
		return greeter.Unauthenticated(), greeter.ErrUnableToDecodeSession
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return greeter.Unauthenticated(), greeter.ErrUnableToDecodeSession
	}

	account, err := a.accounts.GetByID(ctx, id)
	if err != nil {
		a.logger.Error("Session find account id=%s: %s", id, err)
		return greeter.Unauthenticated(), err
	}

	var expires *time.Time
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time
		expires = &t
	}

	return greeter.Authenticated(account.User(), expires), nil
}

// BeginSession returns the sign-in form location carrying callback.
// Callbacks that do not point back into this site fall back to "/".
func (a *Authenticator) BeginSession(ctx context.Context, callback string) (string, error) {
	q := url.Values{}
	q.Set("callback", greeter.SafeCallback(callback))
	return a.loginPath + "?" + q.Encode(), nil
}

// Login verifies the payload credentials and issues a token
func (a *Authenticator) Login(ctx context.Context, payload greeter.LoginPayload, browserKey string) (string, greeter.Session, error) {
	identifier := payload.GetIdentifier()

	account, err := a.accounts.GetByEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, greeter.ErrIdentityNotFound) {
			a.logger.Info("Login unknown identifier=%s", identifier)
			return "", greeter.Unauthenticated(), greeter.ErrInvalidCredentials
		}
		a.logger.Error("Login find account: %s", err)
		return "", greeter.Unauthenticated(), err
	}

	if err := ComparePasswordAndHash(payload.GetPassword(), account.PasswordHash); err != nil {
		a.logger.Info("Login password mismatch identifier=%s", identifier)
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return "", greeter.Unauthenticated(), greeter.ErrInvalidCredentials
		}
		return "", greeter.Unauthenticated(), err
	}

	if err := a.accounts.TrackSuccessfulLogin(ctx, account); err != nil {
		a.logger.Warn("Login track successful login: %s", err)
	}

	ttl := a.tokens.Expiration()
	if payload.GetExtendedSession() {
		ttl = a.extendedDuration
	}

	token, expires, err := a.tokens.Sign(account, browserKey, ttl)
	if err != nil {
		a.logger.Error("Login sign token: %s", err)
		return "", greeter.Unauthenticated(), err
	}

	a.logger.Info("Login success user=%s", account.ID)

	return token, greeter.Authenticated(account.User(), &expires), nil
}

// EndSession terminates the session carried by token. Tokens are
// stateless, clearing the cookie is what ends the session for the
// browser; an invalid token has nothing to end.
func (a *Authenticator) EndSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	claims, err := a.tokens.Validate(token)
	if err != nil {
		a.logger.Debug("EndSession ignoring invalid token: %s", err)
		return nil
	}

	a.logger.Info("Session ended user=%s jti=%s", claims.UserID(), claims.ID)
	return nil
}

// Seed creates the account when no account with email exists yet
func Seed(ctx context.Context, accounts Accounts, email, password string, name *string) (*Account, error) {
	existing, err := accounts.GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, greeter.ErrIdentityNotFound) {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	return accounts.Create(ctx, &Account{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	})
}
