package greeter

import (
	"errors"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found")

// ErrInvalidCredentials the identifier and password do not match
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrUnableToDecodeSession unable to decode the token from the session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// ErrTokenExpired the session token is past its expiration
var ErrTokenExpired = errors.New("token is expired")

// ErrTokenMalformed the session token could not be parsed
var ErrTokenMalformed = errors.New("token is malformed")

// IsTokenError reports whether err means the token should be discarded
// and the request treated as signed out
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrUnableToDecodeSession) ||
		errors.Is(err, ErrIdentityNotFound)
}
