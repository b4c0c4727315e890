package view_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-greeter"
	"github.com/goliatone/go-greeter/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderer(t *testing.T, opts ...view.Option) *view.Renderer {
	t.Helper()
	r, err := view.New(opts...)
	require.NoError(t, err)
	return r
}

func render(t *testing.T, r *view.Renderer, session greeter.Session, b view.Binding) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, session, b))
	return buf.String()
}

func TestRender_Loading(t *testing.T) {
	out := render(t, newRenderer(t), greeter.Loading(), view.Binding{})

	assert.Contains(t, out, "Loading...")
	assert.NotContains(t, out, "<form")
	assert.NotContains(t, out, "<button")
}

func TestRender_AuthenticatedWithName(t *testing.T) {
	r := newRenderer(t)
	session := greeter.Authenticated(greeter.User{ID: "1", Name: greeter.StringPtr("Ada")}, nil)

	out := render(t, r, session, view.Binding{})

	assert.Contains(t, out, "Hello Ada")
	assert.Equal(t, 1, strings.Count(out, "<form"))
	assert.Equal(t, 1, strings.Count(out, "<button"))
	assert.Contains(t, out, `action="/auth/signout"`)
	assert.Contains(t, out, `data-action="end-session"`)
	assert.Contains(t, out, "Sign Out")
	assert.NotContains(t, out, "You are not logged in")
}

func TestRender_AuthenticatedWithoutName(t *testing.T) {
	out := render(t, newRenderer(t), greeter.Authenticated(greeter.User{ID: "1"}, nil), view.Binding{})

	assert.Contains(t, out, `<div class="message">Hello </div>`)
	assert.Equal(t, 1, strings.Count(out, "<form"))
	assert.Contains(t, out, `data-action="end-session"`)
}

func TestRender_Unauthenticated(t *testing.T) {
	out := render(t, newRenderer(t), greeter.Unauthenticated(), view.Binding{})

	assert.Contains(t, out, "You are not logged in")
	assert.Equal(t, 1, strings.Count(out, "<form"))
	assert.Equal(t, 1, strings.Count(out, "<button"))
	assert.Contains(t, out, `action="/auth/signin"`)
	assert.Contains(t, out, `data-action="begin-session"`)
	assert.Contains(t, out, "Sign In")
}

func TestRender_EscapesName(t *testing.T) {
	session := greeter.Authenticated(greeter.User{Name: greeter.StringPtr("<script>alert(1)</script>")}, nil)

	out := render(t, newRenderer(t), session, view.Binding{})

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestRender_CSRFField(t *testing.T) {
	r := newRenderer(t)

	out := render(t, r, greeter.Unauthenticated(), view.Binding{CSRFToken: "tok-123"})
	assert.Contains(t, out, `name="_csrf" value="tok-123"`)

	out = render(t, r, greeter.Unauthenticated(), view.Binding{CSRFToken: "tok-123", CSRFField: "token"})
	assert.Contains(t, out, `name="token" value="tok-123"`)

	out = render(t, r, greeter.Unauthenticated(), view.Binding{})
	assert.NotContains(t, out, `type="hidden"`)
}

func TestPage_Live(t *testing.T) {
	r := newRenderer(t)
	session := greeter.Authenticated(greeter.User{Name: greeter.StringPtr("Ada")}, nil)

	var buf bytes.Buffer
	require.NoError(t, r.Page(&buf, session, view.Binding{Live: true, StaticPath: "/?live=0"}))
	out := buf.String()

	assert.Contains(t, out, "Loading...")
	assert.NotContains(t, out, "Hello Ada")
	assert.Contains(t, out, `new EventSource("/session/events")`)
	assert.Contains(t, out, "url=/?live=0")
}

func TestPage_Static(t *testing.T) {
	r := newRenderer(t)
	session := greeter.Authenticated(greeter.User{Name: greeter.StringPtr("Ada")}, nil)

	var buf bytes.Buffer
	require.NoError(t, r.Page(&buf, session, view.Binding{Title: "Welcome"}))
	out := buf.String()

	assert.Contains(t, out, "<title>Welcome</title>")
	assert.Contains(t, out, "Hello Ada")
	assert.NotContains(t, out, "EventSource")
}

func TestWatch_RendersEveryUpdate(t *testing.T) {
	r := newRenderer(t)
	updates := make(chan greeter.Session, 3)
	updates <- greeter.Unauthenticated()
	updates <- greeter.Authenticated(greeter.User{Name: greeter.StringPtr("Ada")}, nil)
	updates <- greeter.Unauthenticated()
	close(updates)

	var kinds []view.Kind
	var bodies []string
	err := r.Watch(context.Background(), updates, view.Binding{}, func(v view.Variant, html []byte) error {
		kinds = append(kinds, v.Kind)
		bodies = append(bodies, string(html))
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []view.Kind{view.KindSignedOut, view.KindGreeting, view.KindSignedOut}, kinds)
	assert.Contains(t, bodies[1], "Hello Ada")
}

func TestWatch_StopsOnContext(t *testing.T) {
	r := newRenderer(t)
	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan greeter.Session)

	done := make(chan error, 1)
	go func() {
		done <- r.Watch(ctx, updates, view.Binding{}, func(view.Variant, []byte) error { return nil })
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatch_StopsOnEmitError(t *testing.T) {
	r := newRenderer(t)
	updates := make(chan greeter.Session, 2)
	updates <- greeter.Unauthenticated()
	updates <- greeter.Unauthenticated()

	boom := errors.New("client gone")
	calls := 0
	err := r.Watch(context.Background(), updates, view.Binding{}, func(view.Variant, []byte) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWatch_InitialIsEmittedFirst(t *testing.T) {
	r := newRenderer(t)
	updates := make(chan greeter.Session, 1)
	updates <- greeter.Unauthenticated()
	close(updates)

	var kinds []view.Kind
	err := r.Watch(context.Background(), updates, view.Binding{}, func(v view.Variant, _ []byte) error {
		kinds = append(kinds, v.Kind)
		return nil
	}, view.WithInitial(greeter.Authenticated(greeter.User{}, nil)))

	require.NoError(t, err)
	assert.Equal(t, []view.Kind{view.KindGreeting, view.KindSignedOut}, kinds)
}

func TestWatch_HeartbeatError(t *testing.T) {
	r := newRenderer(t)
	updates := make(chan greeter.Session)

	gone := errors.New("broken pipe")
	beats := 0
	err := r.Watch(context.Background(), updates, view.Binding{}, func(view.Variant, []byte) error {
		return nil
	}, view.WithHeartbeat(5*time.Millisecond, func() error {
		beats++
		if beats == 2 {
			return gone
		}
		return nil
	}))

	assert.ErrorIs(t, err, gone)
	assert.Equal(t, 2, beats)
}

func TestNew_CustomTemplates(t *testing.T) {
	fsys := fstest.MapFS{
		"session.html": {Data: []byte(`<p>{{ variant.Message }}</p>`)},
		"page.html":    {Data: []byte(`{{ fragment|safe }}`)},
	}

	r := newRenderer(t, view.WithTemplatesFS(fsys))

	out := render(t, r, greeter.Unauthenticated(), view.Binding{})
	assert.Equal(t, "<p>You are not logged in</p>", out)
}
