package greeter

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// LoginPayload holds the credentials submitted through the sign-in form
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
	GetExtendedSession() bool
}

// Authenticator is the authentication collaborator. It owns every Session:
// the page only reads them and forwards the two user actions.
type Authenticator interface {
	// Session resolves the session carried by token for the browser
	// identified by browserKey. An empty token resolves to an
	// unauthenticated session.
	Session(ctx context.Context, token, browserKey string) (Session, error)
	// BeginSession returns the location the browser should follow to
	// start signing in. callback is where the flow returns to.
	BeginSession(ctx context.Context, callback string) (string, error)
	// Login verifies the payload and issues a token bound to the browser key.
	Login(ctx context.Context, payload LoginPayload, browserKey string) (string, Session, error)
	// EndSession terminates the session carried by token.
	EndSession(ctx context.Context, token string) error
}

// Publisher delivers session changes to anything watching a browser key
type Publisher interface {
	Publish(key string, session Session)
}

type defLogger struct {
	name  string
	debug bool
}

// NewLogger returns the default stdout logger. Debug messages are only
// printed when debug is true.
func NewLogger(name string, debug bool) Logger {
	return defLogger{name: name, debug: debug}
}

// DefaultLogger is used when no logger has been configured
var DefaultLogger Logger = defLogger{name: "GREETER"}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] "+d.name+" "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] "+d.name+" "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] "+d.name+" "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	if !d.debug {
		return
	}
	fmt.Printf("[DBG] "+d.name+" "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
