package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-greeter"
	"github.com/goliatone/go-greeter/view"
)

// PageShow renders the greeting page. Live pages start in the loading
// variant and resolve through the event stream.
func (s *Server) PageShow(c *fiber.Ctx) error {
	b := s.binding(c)

	session := greeter.Loading()
	if !b.Live {
		session = s.session(c)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	c.Set(fiber.HeaderCacheControl, "no-store")

	return s.renderer.Page(c, session, b)
}

// FragmentShow renders only the session fragment for the request session
func (s *Server) FragmentShow(c *fiber.Ctx) error {
	b := s.binding(c)

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	c.Set(fiber.HeaderCacheControl, "no-store")

	return s.renderer.Render(c, s.session(c), b)
}

// SessionJSON returns the request session
func (s *Server) SessionJSON(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(s.session(c))
}

// SignIn begins a session. The authenticator decides where the browser
// goes next; the page never inspects the outcome.
func (s *Server) SignIn(c *fiber.Ctx) error {
	s.recorder.ObserveAction(string(view.ActionBeginSession))

	callback := c.FormValue("callback", s.routes.Home)

	location, err := s.auth.BeginSession(c.UserContext(), callback)
	if err != nil {
		s.logger.Error("begin session: %s", err)
		return fiber.NewError(fiber.StatusBadGateway, "Unable to begin session")
	}

	return c.Redirect(location, fiber.StatusSeeOther)
}

// SignOut ends the session, drops the cookie and tells every page of this
// browser about it.
func (s *Server) SignOut(c *fiber.Ctx) error {
	s.recorder.ObserveAction(string(view.ActionEndSession))

	name := s.cfg.GetContextKey()

	if err := s.auth.EndSession(c.UserContext(), c.Cookies(name)); err != nil {
		s.logger.Error("end session: %s", err)
	}

	s.cookieDel(c, name)
	s.hub.Publish(browserKeyFrom(c), greeter.Unauthenticated())

	return c.Redirect(s.routes.Home, fiber.StatusSeeOther)
}
