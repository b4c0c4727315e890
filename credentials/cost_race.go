//go:build race

package credentials

import "golang.org/x/crypto/bcrypt"

// The race detector slows bcrypt down enough that the seeded login tests
// in this package and in server time out at the production cost.
func passwordHashCost() int {
	return bcrypt.MinCost
}
