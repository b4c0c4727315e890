package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-greeter"
	"github.com/goliatone/go-greeter/middleware/csrf"
	"github.com/goliatone/go-greeter/view"
)

// Config is the subset of the service configuration the HTTP layer reads
type Config interface {
	GetContextKey() string
	GetBrowserKey() string
	GetSigningKey() string
	GetTokenExpiration() int
	GetExtendedTokenDuration() int
	UseSecureCookies() bool
	UseCSRF() bool
	UseLive() bool
	IsDebug() bool
}

// Routes holds the paths served in addition to the ones the renderer binds
// its controls to
type Routes struct {
	Home     string
	Fragment string
	API      string
	Login    string
	Metrics  string
}

// DefaultRoutes returns the stock paths
func DefaultRoutes() Routes {
	return Routes{
		Home:     "/",
		Fragment: "/session",
		API:      "/api/auth/session",
		Login:    "/login",
		Metrics:  "/metrics",
	}
}

const (
	localsBrowserKey = "browser_key"
	localsSession    = "session"
	localsCSRF       = "csrf_token"

	defaultHeartbeat = 25 * time.Second
)

// Recorder counts the actions handled by the server
type Recorder interface {
	ObserveAction(action string)
	ObserveLogin(result string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAction(string) {}
func (nopRecorder) ObserveLogin(string) {}

// Server serves the greeting page and relays the two session actions to
// the authenticator
type Server struct {
	app      *fiber.App
	auth     greeter.Authenticator
	hub      *greeter.Hub
	renderer *view.Renderer
	cfg      Config
	routes   Routes
	logger   greeter.Logger
	recorder Recorder
	exporter http.Handler

	cookieDuration         time.Duration
	extendedCookieDuration time.Duration
	heartbeat              time.Duration
	accessLog              bool

	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Server)

func WithLogger(logger greeter.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the action recorder and, when exporter is not nil,
// serves it on the metrics route
func WithMetrics(recorder Recorder, exporter http.Handler) Option {
	return func(s *Server) {
		if recorder != nil {
			s.recorder = recorder
		}
		s.exporter = exporter
	}
}

// WithRoutes overrides the page, fragment, API and login paths
func WithRoutes(routes Routes) Option {
	return func(s *Server) {
		s.routes = routes
	}
}

// WithHeartbeat sets how often idle event streams send a keep-alive
// comment. Zero disables it.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		s.heartbeat = d
	}
}

// WithAccessLog toggles the request logger middleware
func WithAccessLog(enabled bool) Option {
	return func(s *Server) {
		s.accessLog = enabled
	}
}

// New returns a Server with its routes registered
func New(auther greeter.Authenticator, hub *greeter.Hub, renderer *view.Renderer, cfg Config, opts ...Option) *Server {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	extendedCookieDuration := cookieDuration
	if cfg.GetExtendedTokenDuration() > 0 {
		extendedCookieDuration = time.Duration(cfg.GetExtendedTokenDuration()) * time.Hour
	}

	s := &Server{
		auth:                   auther,
		hub:                    hub,
		renderer:               renderer,
		cfg:                    cfg,
		routes:                 DefaultRoutes(),
		logger:                 greeter.DefaultLogger,
		recorder:               nopRecorder{},
		cookieDuration:         cookieDuration,
		extendedCookieDuration: extendedCookieDuration,
		heartbeat:              defaultHeartbeat,
		accessLog:              true,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.app = fiber.New(fiber.Config{
		AppName:               "go-greeter",
		Views:                 renderer.Engine(),
		ErrorHandler:          s.errorHandler,
		DisableStartupMessage: true,
	})

	s.app.Use(recover.New())

	// registered ahead of the browser key and CSRF middleware, scrapers
	// carry no cookies
	if s.exporter != nil && s.routes.Metrics != "" {
		s.app.Get(s.routes.Metrics, adaptor.HTTPHandler(s.exporter))
	}

	if s.accessLog {
		s.app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	s.app.Use(s.browserKey)

	if cfg.UseCSRF() {
		s.app.Use(csrf.New(csrf.Config{
			ContextKey:    localsCSRF,
			FormFieldName: view.DefaultCSRFField,
			SecureKey:     csrf.DeriveKey([]byte(cfg.GetSigningKey())),
			Expiration:    extendedCookieDuration,
			SessionKey:    browserKeyFrom,
		}))
	}

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	views := s.renderer.Routes()

	s.app.Get(s.routes.Home, s.PageShow)
	s.app.Get(s.routes.Fragment, s.FragmentShow)
	s.app.Get(views.Events, s.Events)
	s.app.Get(s.routes.API, s.SessionJSON)

	s.app.Post(views.SignIn, s.SignIn)
	s.app.Post(views.SignOut, s.SignOut)

	s.app.Get(s.routes.Login, s.LoginShow)
	s.app.Post(s.routes.Login, s.LoginPost)
}

// App exposes the underlying Fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves HTTP on addr until Shutdown is called
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown ends every open event stream and then stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	s.hub.Close()
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	if code >= fiber.StatusInternalServerError {
		s.logger.Error("%s %s: %s", c.Method(), c.Path(), err)
	} else {
		s.logger.Debug("%s %s: %s", c.Method(), c.Path(), err)
	}

	c.Status(code)
	if rerr := c.Render(view.TemplateError, map[string]any{
		"code":    code,
		"message": message,
	}); rerr != nil {
		s.logger.Error("render error view: %s", rerr)
		return c.SendString(message)
	}

	return nil
}
