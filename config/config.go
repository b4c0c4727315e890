// Package config loads the service configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every environment variable name
const Prefix = "GREETER_"

// Config holds the service options
type Config struct {
	Addr                  string   `json:"addr"`
	SigningKey            string   `json:"signing_key"`
	Issuer                string   `json:"issuer"`
	Audience              []string `json:"audience"`
	TokenExpiration       int      `json:"token_expiration"`
	ExtendedTokenDuration int      `json:"extended_token_duration"`
	CookieName            string   `json:"cookie_name"`
	BrowserCookieName     string   `json:"browser_cookie_name"`
	SecureCookies         bool     `json:"secure_cookies"`
	CSRF                  bool     `json:"csrf"`
	Live                  bool     `json:"live"`
	DSN                   string   `json:"dsn"`
	SeedEmail             string   `json:"seed_email,omitempty"`
	SeedPassword          string   `json:"seed_password,omitempty"`
	SeedName              string   `json:"seed_name,omitempty"`
	Debug                 bool     `json:"debug"`
}

// Defaults returns a Config with every optional value set
func Defaults() *Config {
	return &Config{
		Addr:                  ":8572",
		Issuer:                "go-greeter",
		Audience:              []string{"greeter:web"},
		TokenExpiration:       24,
		ExtendedTokenDuration: 720,
		CookieName:            "greeter_session",
		BrowserCookieName:     "greeter_browser",
		SecureCookies:         true,
		CSRF:                  true,
		Live:                  true,
		DSN:                   "file::memory:?cache=shared",
	}
}

// Load reads the optional env files and then the process environment.
// Variables already present in the environment win over file values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", file, err)
		}
	}

	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, which resolves full variable
// names such as "GREETER_ADDR"
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	c := Defaults()
	r := reader{lookup: lookup}

	r.str("ADDR", &c.Addr)
	r.str("SIGNING_KEY", &c.SigningKey)
	r.str("ISSUER", &c.Issuer)
	r.list("AUDIENCE", &c.Audience)
	r.num("TOKEN_EXPIRATION", &c.TokenExpiration)
	r.num("EXTENDED_EXPIRATION", &c.ExtendedTokenDuration)
	r.str("COOKIE_NAME", &c.CookieName)
	r.str("BROWSER_COOKIE", &c.BrowserCookieName)
	r.flag("SECURE_COOKIES", &c.SecureCookies)
	r.flag("CSRF", &c.CSRF)
	r.flag("LIVE", &c.Live)
	r.str("DSN", &c.DSN)
	r.str("SEED_EMAIL", &c.SeedEmail)
	r.str("SEED_PASSWORD", &c.SeedPassword)
	r.str("SEED_NAME", &c.SeedName)
	r.flag("DEBUG", &c.Debug)

	if len(r.errs) > 0 {
		return nil, errors.Join(r.errs...)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate will run validation rules
func (c Config) Validate() error {
	seedRules := []validation.Rule{}
	if c.SeedEmail != "" {
		seedRules = append(seedRules, validation.Required, validation.Length(8, 0))
	}

	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.SigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.TokenExpiration, validation.Required, validation.Min(1)),
		validation.Field(&c.ExtendedTokenDuration, validation.Required, validation.Min(1)),
		validation.Field(&c.CookieName, validation.Required),
		validation.Field(&c.BrowserCookieName, validation.Required),
		validation.Field(&c.DSN, validation.Required),
		validation.Field(&c.SeedPassword, seedRules...),
	)
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	if c.SigningKey != "" {
		c.SigningKey = "********"
	}
	if c.SeedPassword != "" {
		c.SeedPassword = "********"
	}
	return c
}

func (c Config) GetAddr() string {
	return c.Addr
}

func (c Config) GetSigningKey() string {
	return c.SigningKey
}

func (c Config) GetIssuer() string {
	return c.Issuer
}

func (c Config) GetAudience() []string {
	return c.Audience
}

// GetTokenExpiration returns the token lifetime in hours
func (c Config) GetTokenExpiration() int {
	return c.TokenExpiration
}

// GetExtendedTokenDuration returns the "remember me" lifetime in hours
func (c Config) GetExtendedTokenDuration() int {
	return c.ExtendedTokenDuration
}

func (c Config) GetContextKey() string {
	return c.CookieName
}

func (c Config) GetBrowserKey() string {
	return c.BrowserCookieName
}

func (c Config) GetDSN() string {
	return c.DSN
}

func (c Config) UseSecureCookies() bool {
	return c.SecureCookies
}

func (c Config) UseCSRF() bool {
	return c.CSRF
}

// UseLive reports whether pages follow the session over the event stream
func (c Config) UseLive() bool {
	return c.Live
}

func (c Config) IsDebug() bool {
	return c.Debug
}

// HasSeed reports whether a demo account should be created on startup
func (c Config) HasSeed() bool {
	return c.SeedEmail != ""
}

// GetSeedName returns the seed display name, nil when not configured
func (c Config) GetSeedName() *string {
	if c.SeedName == "" {
		return nil
	}
	name := c.SeedName
	return &name
}

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) get(key string) (string, bool) {
	v, ok := r.lookup(Prefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *reader) str(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r *reader) list(key string, dst *[]string) {
	v, ok := r.get(key)
	if !ok {
		return
	}

	out := make([]string, 0)
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func (r *reader) num(key string, dst *int) {
	v, ok := r.get(key)
	if !ok {
		return
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: %w", Prefix, key, err))
		return
	}
	*dst = n
}

func (r *reader) flag(key string, dst *bool) {
	v, ok := r.get(key)
	if !ok {
		return
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: %w", Prefix, key, err))
		return
	}
	*dst = b
}
