package credentials

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-greeter"
	"github.com/google/uuid"
)

// Claims are the JWT claims carried by the session cookie
type Claims struct {
	jwt.RegisteredClaims
	UID        string  `json:"uid,omitempty"`
	Name       *string `json:"name,omitempty"`
	Email      string  `json:"email,omitempty"`
	BrowserKey string  `json:"sid,omitempty"`
}

// UserID returns the user ID
func (c *Claims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// TokenService signs and validates session tokens
type TokenService struct {
	signingKey []byte
	expiration time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     greeter.Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, expiration time.Duration, issuer string, audience []string, logger greeter.Logger) *TokenService {
	if logger == nil {
		logger = greeter.DefaultLogger
	}

	if expiration <= 0 {
		expiration = 24 * time.Hour
	}

	var aud jwt.ClaimStrings
	if len(audience) > 0 {
		aud = make(jwt.ClaimStrings, len(audience))
		copy(aud, audience)
	}

	return &TokenService{
		signingKey: signingKey,
		expiration: expiration,
		issuer:     issuer,
		audience:   aud,
		logger:     logger,
	}
}

// Expiration returns the default token lifetime
func (ts *TokenService) Expiration() time.Duration {
	return ts.expiration
}

// Sign issues a token for account bound to browserKey. A ttl of zero uses
// the default expiration.
func (ts *TokenService) Sign(account *Account, browserKey string, ttl time.Duration) (string, time.Time, error) {
	if account == nil {
		return "", time.Time{}, errors.New("account must not be nil")
	}

	if ttl <= 0 {
		ttl = ts.expiration
	}

	now := time.Now()
	expires := now.Add(ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   account.ID.String(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UID:        account.ID.String(),
		Name:       account.Name,
		Email:      account.Email,
		BrowserKey: browserKey,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign JWT: %w", err)
	}

	return signed, expires, nil
}

// Validate parses and validates a token string
func (ts *TokenService) Validate(raw string) (*Claims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 3)
	parserOptions = append(parserOptions, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method alg=%v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, greeter.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", greeter.ErrTokenMalformed, err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, greeter.ErrUnableToDecodeSession
}
