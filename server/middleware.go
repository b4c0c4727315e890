package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/goliatone/go-greeter"
	"github.com/goliatone/go-greeter/view"
	"github.com/google/uuid"
)

const browserKeyDuration = 365 * 24 * time.Hour

// browserKey makes sure every request carries a browser key, issuing the
// cookie on first visit. All pages opened by one browser share the key and
// therefore the same hub subscription.
func (s *Server) browserKey(c *fiber.Ctx) error {
	name := s.cfg.GetBrowserKey()

	// outlives the request in the hub, copy it out of the fasthttp buffer
	key := utils.CopyString(c.Cookies(name))
	if _, err := uuid.Parse(key); err != nil {
		key = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    key,
			Path:     "/",
			Expires:  time.Now().Add(browserKeyDuration),
			HTTPOnly: true,
			Secure:   s.cfg.UseSecureCookies(),
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}

	c.Locals(localsBrowserKey, key)
	return c.Next()
}

func browserKeyFrom(c *fiber.Ctx) string {
	key, _ := c.Locals(localsBrowserKey).(string)
	return key
}

// session resolves the request session once and caches it in Locals.
// Rejected tokens resolve to unauthenticated and their cookie is cleared.
func (s *Server) session(c *fiber.Ctx) greeter.Session {
	if cached, ok := c.Locals(localsSession).(greeter.Session); ok {
		return cached
	}

	session, err := s.resolve(c.UserContext(), c.Cookies(s.cfg.GetContextKey()), browserKeyFrom(c))
	if err != nil && greeter.IsTokenError(err) {
		s.logger.Info("discarding session cookie: %s", err)
		s.cookieDel(c, s.cfg.GetContextKey())
	}

	c.Locals(localsSession, session)
	return session
}

// resolve asks the authenticator for the session carried by token. Any
// failure resolves to unauthenticated; the error is returned for the
// caller to act on.
func (s *Server) resolve(ctx context.Context, token, key string) (greeter.Session, error) {
	session, err := s.auth.Session(ctx, token, key)
	if err != nil {
		if !greeter.IsTokenError(err) {
			s.logger.Error("resolve session: %s", err)
		}
		return greeter.Unauthenticated(), err
	}
	return session, nil
}

func (s *Server) binding(c *fiber.Ctx) view.Binding {
	token, _ := c.Locals(localsCSRF).(string)

	return view.Binding{
		CSRFToken:  token,
		CSRFField:  view.DefaultCSRFField,
		Live:       s.live(c),
		StaticPath: s.routes.Home + "?live=0",
	}
}

// live reports whether the page should follow the session over the event
// stream. "?live=0" serves the resolved page for clients without scripts.
func (s *Server) live(c *fiber.Ctx) bool {
	return s.cfg.UseLive() && c.Query("live") != "0"
}
