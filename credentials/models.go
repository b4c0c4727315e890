package credentials

import (
	"time"

	"github.com/goliatone/go-greeter"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is a persisted email/password identity
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Name          *string    `bun:"name" json:"name,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	LoggedInAt    *time.Time `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// User returns the part of the account the page displays
func (a *Account) User() greeter.User {
	return greeter.User{
		ID:    a.ID.String(),
		Name:  a.Name,
		Email: a.Email,
	}
}
