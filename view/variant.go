package view

import (
	"github.com/goliatone/go-greeter"
)

// Kind identifies which of the three page variants is shown
type Kind string

const (
	KindLoading   Kind = "loading"
	KindGreeting  Kind = "greeting"
	KindSignedOut Kind = "signed-out"
)

// Action is the collaborator operation a control is bound to
type Action string

const (
	ActionBeginSession Action = "begin-session"
	ActionEndSession   Action = "end-session"
)

const (
	LoadingMessage   = "Loading..."
	GreetingPrefix   = "Hello "
	SignedOutMessage = "You are not logged in"
	SignInLabel      = "Sign In"
	SignOutLabel     = "Sign Out"
)

// Routes are the paths the rendered controls and the live stream target
type Routes struct {
	SignIn  string
	SignOut string
	Events  string
}

// DefaultRoutes returns the paths registered by the server package
func DefaultRoutes() Routes {
	return Routes{
		SignIn:  "/auth/signin",
		SignOut: "/auth/signout",
		Events:  "/session/events",
	}
}

// Control is the single actionable element of a variant
type Control struct {
	Label  string
	Action Action
	Path   string
}

// Variant is the view model of one rendering
type Variant struct {
	Kind    Kind
	Status  greeter.Status
	Message string
	Name    string
	HasName bool
	Control *Control
}

// Resolve maps a session to the variant that should be displayed.
// Any status that is neither loading nor authenticated renders as
// signed out.
func Resolve(session greeter.Session, routes Routes) Variant {
	switch session.Status {
	case greeter.StatusLoading:
		return Variant{
			Kind:    KindLoading,
			Status:  greeter.StatusLoading,
			Message: LoadingMessage,
		}
	case greeter.StatusAuthenticated:
		name, ok := session.DisplayName()
		return Variant{
			Kind:    KindGreeting,
			Status:  greeter.StatusAuthenticated,
			Message: GreetingPrefix + name,
			Name:    name,
			HasName: ok,
			Control: &Control{
				Label:  SignOutLabel,
				Action: ActionEndSession,
				Path:   routes.SignOut,
			},
		}
	default:
		return Variant{
			Kind:    KindSignedOut,
			Status:  greeter.StatusUnauthenticated,
			Message: SignedOutMessage,
			Control: &Control{
				Label:  SignInLabel,
				Action: ActionBeginSession,
				Path:   routes.SignIn,
			},
		}
	}
}
