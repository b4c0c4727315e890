package credentials

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrNoEmptyString empty passwords are never hashed
var ErrNoEmptyString = errors.New("password must not be empty")

// ErrMismatchedHashAndPassword the password does not match the stored hash
var ErrMismatchedHashAndPassword = errors.New("password and hash do not match")

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}
