package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrTokenMismatch    = errors.New("CSRF token mismatch")
	ErrTokenMissing     = errors.New("CSRF token missing")
	ErrTokenExpired     = errors.New("CSRF token expired")
	ErrSecureKeyMissing = errors.New("CSRF secure key required")
)

// DefaultTokenLength is the default nonce length in bytes
const DefaultTokenLength = 16

// DefaultContextKey is the default key for storing CSRF tokens in Locals
const DefaultContextKey = "csrf_token"

// DefaultFormFieldName is the default name for the CSRF token form field
const DefaultFormFieldName = "_csrf"

// DefaultHeaderName is the default header name for CSRF tokens
const DefaultHeaderName = "X-CSRF-Token"

// MinSecureKeyLength is the shortest accepted SecureKey
const MinSecureKeyLength = 32

// Config defines the configuration for CSRF middleware
type Config struct {
	// Next defines a function to skip middleware
	Next func(*fiber.Ctx) bool

	// TokenLength defines the nonce length used when generating tokens
	TokenLength int

	// ContextKey defines the key for storing the token in Locals
	ContextKey string

	// FormFieldName defines the name of the form field containing the token
	FormFieldName string

	// HeaderName defines the header name for the token
	HeaderName string

	// TokenLookup defines where to look for the token
	// Format: "form:_csrf,header:X-CSRF-Token"
	TokenLookup string

	// SessionKey returns the value tokens are bound to, typically a
	// browser identifier set by an earlier middleware. Defaults to the
	// client IP.
	SessionKey func(*fiber.Ctx) string

	// ErrorHandler defines the error handler
	ErrorHandler fiber.ErrorHandler

	// SafeMethods defines HTTP methods that don't require CSRF protection
	SafeMethods []string

	// Expiration defines how long tokens are valid
	Expiration time.Duration

	// SecureKey signs tokens, at least MinSecureKeyLength bytes. A random
	// key is generated when empty.
	SecureKey []byte
}

// TokenExtractor defines a function to extract token from request
type TokenExtractor func(*fiber.Ctx) string

// New creates a new CSRF middleware. The token for the current request is
// stored in Locals under ContextKey so views can render it.
func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)
	extractors := getExtractors(cfg.TokenLookup, cfg.FormFieldName, cfg.HeaderName)

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		sessionKey := cfg.SessionKey(c)

		token, err := Generate(cfg.SecureKey, sessionKey, cfg.TokenLength)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, token)

		if slices.Contains(cfg.SafeMethods, strings.ToUpper(c.Method())) {
			return c.Next()
		}

		received := extractToken(c, extractors)
		if received == "" {
			return cfg.ErrorHandler(c, ErrTokenMissing)
		}

		if err := Verify(cfg.SecureKey, sessionKey, received, cfg.Expiration); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		return c.Next()
	}
}

// TokenFromContext returns the token stored by the middleware
func TokenFromContext(c *fiber.Ctx, contextKey ...string) string {
	key := DefaultContextKey
	if len(contextKey) > 0 && contextKey[0] != "" {
		key = contextKey[0]
	}

	if token, ok := c.Locals(key).(string); ok {
		return token
	}
	return ""
}

// DeriveKey stretches an application secret into a key suitable for
// SecureKey
func DeriveKey(secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte("csrf"))
	return mac.Sum(nil)
}

// Generate returns a signed token bound to sessionKey
func Generate(secureKey []byte, sessionKey string, length int) (string, error) {
	if len(secureKey) == 0 {
		return "", ErrSecureKeyMissing
	}

	if length <= 0 {
		length = DefaultTokenLength
	}

	nonce := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	timestamp := time.Now().UTC().Unix()
	payload := fmt.Sprintf("%d:%s:%s", timestamp, hex.EncodeToString(nonce), sessionKey)

	token := fmt.Sprintf("%s:%s", payload, hex.EncodeToString(sign(secureKey, payload)))
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

// Verify checks the token signature, its session binding and its age.
// A zero expiration disables the age check.
func Verify(secureKey []byte, sessionKey, token string, expiration time.Duration) error {
	if len(secureKey) == 0 {
		return ErrSecureKeyMissing
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrTokenMismatch
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 4 {
		return ErrTokenMismatch
	}

	timestampStr, nonceHex, sessionFromToken, signatureHex := parts[0], parts[1], parts[2], parts[3]

	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}

	if _, err := hex.DecodeString(nonceHex); err != nil {
		return ErrTokenMismatch
	}

	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return ErrTokenMismatch
	}

	if !hmac.Equal(signature, sign(secureKey, strings.Join(parts[:3], ":"))) {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(sessionFromToken), []byte(sessionKey)) != 1 {
		return ErrTokenMismatch
	}

	if expiration > 0 {
		expiresAt := time.Unix(timestamp, 0).Add(expiration)
		if time.Now().UTC().After(expiresAt) {
			return ErrTokenExpired
		}
	}

	return nil
}

func sign(key []byte, payload string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

func extractToken(c *fiber.Ctx, extractors []TokenExtractor) string {
	for _, extractor := range extractors {
		if token := extractor(c); token != "" {
			return token
		}
	}
	return ""
}

// getExtractors returns token extractors based on configuration
func getExtractors(tokenLookup, formField, header string) []TokenExtractor {
	if tokenLookup == "" {
		return []TokenExtractor{
			extractorFromForm(formField),
			extractorFromHeader(header),
		}
	}

	var extractors []TokenExtractor
	for _, part := range strings.Split(tokenLookup, ",") {
		part = strings.TrimSpace(part)
		if field, ok := strings.CutPrefix(part, "form:"); ok {
			extractors = append(extractors, extractorFromForm(field))
		} else if name, ok := strings.CutPrefix(part, "header:"); ok {
			extractors = append(extractors, extractorFromHeader(name))
		}
	}

	return extractors
}

func extractorFromForm(fieldName string) TokenExtractor {
	return func(c *fiber.Ctx) string {
		return c.FormValue(fieldName)
	}
}

func extractorFromHeader(headerName string) TokenExtractor {
	return func(c *fiber.Ctx) string {
		return c.Get(headerName)
	}
}

// configDefault returns a default config
func configDefault(config ...Config) Config {
	cfg := Config{}
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenLength == 0 {
		cfg.TokenLength = DefaultTokenLength
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultFormFieldName
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}

	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions, fiber.MethodTrace}
	}

	if cfg.Expiration == 0 {
		cfg.Expiration = 24 * time.Hour
	}

	if cfg.SessionKey == nil {
		cfg.SessionKey = func(c *fiber.Ctx) string {
			return c.IP()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	cfg.SecureKey = initializeSecureKey(cfg.SecureKey)

	return cfg
}

func defaultErrorHandler(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrTokenMissing):
		return fiber.NewError(fiber.StatusForbidden, "CSRF token missing")
	case errors.Is(err, ErrTokenMismatch):
		return fiber.NewError(fiber.StatusForbidden, "CSRF token mismatch")
	case errors.Is(err, ErrTokenExpired):
		return fiber.NewError(fiber.StatusForbidden, "CSRF token expired")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "CSRF validation error")
	}
}

func initializeSecureKey(current []byte) []byte {
	if len(current) > 0 {
		if len(current) < MinSecureKeyLength {
			panic(fmt.Errorf("csrf: secure key must be at least %d bytes, got %d", MinSecureKeyLength, len(current)))
		}
		return current
	}

	key := make([]byte, MinSecureKeyLength)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		panic(fmt.Errorf("csrf: unable to initialize secure key: %w", err))
	}
	return key
}
