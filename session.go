package greeter

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a Session
type Status string

const (
	// StatusLoading the session has not been resolved yet
	StatusLoading Status = "loading"
	// StatusAuthenticated a user is signed in
	StatusAuthenticated Status = "authenticated"
	// StatusUnauthenticated nobody is signed in
	StatusUnauthenticated Status = "unauthenticated"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusLoading, StatusAuthenticated, StatusUnauthenticated:
		return true
	}
	return false
}

// ParseStatus maps a raw value to a Status. Unknown values map to
// StatusUnauthenticated and ok is false.
func ParseStatus(raw string) (Status, bool) {
	s := Status(raw)
	if !s.Valid() {
		return StatusUnauthenticated, false
	}
	return s, true
}

// User is the part of an identity the page displays
type User struct {
	ID    string  `json:"id,omitempty"`
	Name  *string `json:"name,omitempty"`
	Email string  `json:"email,omitempty"`
}

// Session is the externally owned session record
type Session struct {
	Status  Status     `json:"status"`
	User    *User      `json:"user,omitempty"`
	Expires *time.Time `json:"expires,omitempty"`
}

// Loading returns a session that is still being resolved
func Loading() Session {
	return Session{Status: StatusLoading}
}

// Unauthenticated returns a signed out session
func Unauthenticated() Session {
	return Session{Status: StatusUnauthenticated}
}

// Authenticated returns a signed in session for user
func Authenticated(user User, expires *time.Time) Session {
	return Session{
		Status:  StatusAuthenticated,
		User:    &user,
		Expires: expires,
	}
}

// IsLoading reports whether the session is still being resolved
func (s Session) IsLoading() bool {
	return s.Status == StatusLoading
}

// IsAuthenticated reports whether a user is signed in
func (s Session) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated
}

// DisplayName returns the user's name and whether one is present
func (s Session) DisplayName() (string, bool) {
	if s.User == nil || s.User.Name == nil {
		return "", false
	}
	return *s.User.Name, true
}

func (s Session) String() string {
	name, ok := s.DisplayName()
	if !ok {
		name = "<nil>"
	}
	return fmt.Sprintf("status=%s name=%s", s.Status, name)
}

// StringPtr returns a pointer to v, handy for optional names
func StringPtr(v string) *string {
	return &v
}
