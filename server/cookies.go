package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) setCookieToken(c *fiber.Ctx, val string, expires *time.Time, extended bool) {
	duration := s.cookieDuration
	if extended {
		duration = s.extendedCookieDuration
	}

	until := time.Now().Add(duration)
	if expires != nil {
		until = *expires
	}

	c.Cookie(&fiber.Cookie{
		Name:     s.cfg.GetContextKey(),
		Value:    val,
		Path:     "/",
		Expires:  until,
		HTTPOnly: true,
		Secure:   s.cfg.UseSecureCookies(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) cookieDel(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   s.cfg.UseSecureCookies(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
