package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-greeter"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Accounts stores the identities the collaborator can sign in
type Accounts interface {
	EnsureSchema(ctx context.Context) error
	Create(ctx context.Context, account *Account) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	TrackSuccessfulLogin(ctx context.Context, account *Account) error
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var _ Accounts = (*accounts)(nil)

// NewAccountsRepository returns a bun backed Accounts. Accounts are
// identified by email.
func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) EnsureSchema(ctx context.Context) error {
	_, err := a.db.NewCreateTable().
		Model((*Account)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}
	return nil
}

func (a *accounts) Create(ctx context.Context, account *Account) (*Account, error) {
	if account == nil {
		return nil, errors.New("account must not be nil")
	}

	prepareAccountDefaults(account)

	record, err := a.Repository.Create(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("insert account %s: %w", account.Email, err)
	}

	return record, nil
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	record, err := a.Repository.GetByIdentifier(ctx, normalizeEmail(email))
	if err != nil {
		return nil, notFound(err)
	}
	return record, nil
}

func (a *accounts) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	record, err := a.Repository.GetByID(ctx, id.String())
	if err != nil {
		return nil, notFound(err)
	}
	return record, nil
}

func (a *accounts) TrackSuccessfulLogin(ctx context.Context, account *Account) error {
	now := time.Now().UTC()
	account.LoggedInAt = &now
	account.UpdatedAt = now

	_, err := a.db.NewUpdate().
		Model(account).
		Column("loggedin_at", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("track login %s: %w", account.ID, err)
	}
	return nil
}

func prepareAccountDefaults(account *Account) {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}

	account.Email = normalizeEmail(account.Email)

	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
}

func notFound(err error) error {
	if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
		return greeter.ErrIdentityNotFound
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
