package view

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-greeter"
)

//go:embed templates
var templatesFS embed.FS

// Template names understood by the engine
const (
	TemplateSession = "session"
	TemplatePage    = "page"
	TemplateLogin   = "login"
	TemplateError   = "error"
)

// DefaultCSRFField is the form field carrying the CSRF token
const DefaultCSRFField = "_csrf"

// Binding carries per request values that are not part of the session
type Binding struct {
	CSRFToken  string
	CSRFField  string
	Live       bool
	StaticPath string
	Title      string
}

// Renderer turns sessions into markup
type Renderer struct {
	engine *django.Engine
	routes Routes
	logger greeter.Logger
	reload bool
	fsys   fs.FS
}

type Option func(*Renderer)

// WithRoutes overrides the paths rendered into controls
func WithRoutes(routes Routes) Option {
	return func(r *Renderer) {
		r.routes = routes
	}
}

// WithTemplatesFS replaces the embedded templates, e.g. with a disk
// directory during development
func WithTemplatesFS(fsys fs.FS) Option {
	return func(r *Renderer) {
		if fsys != nil {
			r.fsys = fsys
		}
	}
}

// WithReload makes the engine reparse templates on every render
func WithReload(reload bool) Option {
	return func(r *Renderer) {
		r.reload = reload
	}
}

func WithLogger(logger greeter.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New returns a Renderer with its templates loaded
func New(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		routes: DefaultRoutes(),
		logger: greeter.DefaultLogger,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.fsys == nil {
		sub, err := fs.Sub(templatesFS, "templates")
		if err != nil {
			return nil, fmt.Errorf("unable to scope embedded templates: %w", err)
		}
		r.fsys = sub
	}

	r.engine = django.NewFileSystem(http.FS(r.fsys), ".html")
	r.engine.Reload(r.reload)

	if err := r.engine.Load(); err != nil {
		return nil, fmt.Errorf("unable to load templates: %w", err)
	}

	return r, nil
}

// Engine exposes the template engine so the HTTP layer can render its
// own views with it
func (r *Renderer) Engine() *django.Engine {
	return r.engine
}

// Routes returns the paths controls are bound to
func (r *Renderer) Routes() Routes {
	return r.routes
}

// Resolve maps session to its variant using the renderer routes
func (r *Renderer) Resolve(session greeter.Session) Variant {
	return Resolve(session, r.routes)
}

// Render writes the session fragment
func (r *Renderer) Render(w io.Writer, session greeter.Session, b Binding) error {
	variant := r.Resolve(session)
	if err := r.engine.Render(w, TemplateSession, r.fragmentData(variant, b)); err != nil {
		return fmt.Errorf("render %s: %w", variant.Kind, err)
	}
	return nil
}

// Page writes the full document. A live page always starts in the loading
// variant, the event stream then delivers the resolved session.
func (r *Renderer) Page(w io.Writer, session greeter.Session, b Binding) error {
	if b.Live {
		session = greeter.Loading()
	}

	var fragment bytes.Buffer
	if err := r.Render(&fragment, session, b); err != nil {
		return err
	}

	title := b.Title
	if title == "" {
		title = "Home"
	}

	data := map[string]any{
		"title":       title,
		"fragment":    fragment.String(),
		"live":        b.Live,
		"events_path": r.routes.Events,
		"static_path": b.StaticPath,
	}

	if err := r.engine.Render(w, TemplatePage, data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

type watchConfig struct {
	initial   *greeter.Session
	heartbeat time.Duration
	idle      func() error
}

type WatchOption func(*watchConfig)

// WithInitial emits session before any update is received
func WithInitial(session greeter.Session) WatchOption {
	return func(c *watchConfig) {
		c.initial = &session
	}
}

// WithHeartbeat calls fn whenever no update was emitted for interval.
// An error returned by fn stops the watch.
func WithHeartbeat(interval time.Duration, fn func() error) WatchOption {
	return func(c *watchConfig) {
		if interval > 0 && fn != nil {
			c.heartbeat = interval
			c.idle = fn
		}
	}
}

// Watch renders every session received on updates and hands the result to
// emit. It returns nil once updates is closed, ctx.Err() when the context is
// done, or the first emit error.
func (r *Renderer) Watch(ctx context.Context, updates <-chan greeter.Session, b Binding, emit func(Variant, []byte) error, opts ...WatchOption) error {
	cfg := &watchConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	send := func(session greeter.Session) error {
		var buf bytes.Buffer
		if err := r.Render(&buf, session, b); err != nil {
			r.logger.Error("watch render failed: %s", err)
			return err
		}
		return emit(r.Resolve(session), buf.Bytes())
	}

	if cfg.initial != nil {
		if err := send(*cfg.initial); err != nil {
			return err
		}
	}

	var tick <-chan time.Time
	if cfg.heartbeat > 0 {
		ticker := time.NewTicker(cfg.heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			if err := cfg.idle(); err != nil {
				return err
			}
		case session, ok := <-updates:
			if !ok {
				return nil
			}
			if err := send(session); err != nil {
				return err
			}
		}
	}
}

func (r *Renderer) fragmentData(variant Variant, b Binding) map[string]any {
	field := b.CSRFField
	if field == "" {
		field = DefaultCSRFField
	}

	return map[string]any{
		"variant":    variant,
		"csrf_token": b.CSRFToken,
		"csrf_field": field,
	}
}
