package server

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-greeter"
	"github.com/goliatone/go-greeter/view"
	"github.com/goliatone/go-print"
)

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
	Callback   string `form:"callback" json:"callback"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession reports whether "remember me" was checked
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// LoginShow renders the sign-in form. A browser that is already signed in
// goes straight back to the callback.
func (s *Server) LoginShow(c *fiber.Ctx) error {
	callback := greeter.SafeCallback(c.Query("callback"))

	if s.session(c).IsAuthenticated() {
		return c.Redirect(callback, fiber.StatusSeeOther)
	}

	return s.renderLogin(c, &LoginRequest{Callback: callback}, nil)
}

// LoginPost verifies the submitted credentials. On success the cookie is
// set, every page of this browser receives the new session and the
// browser returns to the callback.
func (s *Server) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Unable to read the sign-in form")
	}

	payload.Callback = greeter.SafeCallback(payload.Callback)

	if s.cfg.IsDebug() {
		s.logger.Debug("login payload: %s", print.MaybePrettyJSON(map[string]any{
			"identifier":  payload.Identifier,
			"remember_me": payload.RememberMe,
			"callback":    payload.Callback,
		}))
	}

	if err := payload.Validate(); err != nil {
		s.recorder.ObserveLogin("invalid")
		c.Status(fiber.StatusUnprocessableEntity)
		return s.renderLogin(c, payload, validationErrors(err))
	}

	key := browserKeyFrom(c)

	token, session, err := s.auth.Login(c.UserContext(), payload, key)
	if err != nil {
		if errors.Is(err, greeter.ErrInvalidCredentials) {
			s.recorder.ObserveLogin("rejected")
			c.Status(fiber.StatusUnauthorized)
			return s.renderLogin(c, payload, map[string]string{
				"authentication": "Invalid email or password",
			})
		}
		s.recorder.ObserveLogin("error")
		s.logger.Error("login: %s", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Unable to sign in")
	}

	s.recorder.ObserveLogin("success")
	s.setCookieToken(c, token, session.Expires, payload.GetExtendedSession())
	s.hub.Publish(key, session)

	return c.Redirect(payload.Callback, fiber.StatusSeeOther)
}

func (s *Server) renderLogin(c *fiber.Ctx, record *LoginRequest, errs map[string]string) error {
	b := s.binding(c)

	return c.Render(view.TemplateLogin, map[string]any{
		"errors":     errs,
		"record":     record,
		"callback":   record.Callback,
		"login_path": s.routes.Login,
		"csrf_token": b.CSRFToken,
		"csrf_field": b.CSRFField,
	})
}

func validationErrors(err error) map[string]string {
	out := map[string]string{}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["form"] = err.Error()
	return out
}
