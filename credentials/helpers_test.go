package credentials_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-greeter/credentials"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	testSigningKey = "test-signing-key-0123456789"
	testIssuer     = "greeter-test"
	testAudience   = "greeter:test"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	return db
}

func newTestAccounts(t *testing.T) credentials.Accounts {
	t.Helper()

	repo := credentials.NewAccountsRepository(newTestDB(t))
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func newTestTokens() *credentials.TokenService {
	return credentials.NewTokenService([]byte(testSigningKey), time.Hour, testIssuer, []string{testAudience}, nil)
}

// loginPayload implements greeter.LoginPayload
type loginPayload struct {
	identifier string
	password   string
	extended   bool
}

func (p loginPayload) GetIdentifier() string    { return p.identifier }
func (p loginPayload) GetPassword() string      { return p.password }
func (p loginPayload) GetExtendedSession() bool { return p.extended }

// MockAccounts implements credentials.Accounts
type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) EnsureSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAccounts) Create(ctx context.Context, account *credentials.Account) (*credentials.Account, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credentials.Account), args.Error(1)
}

func (m *MockAccounts) GetByEmail(ctx context.Context, email string) (*credentials.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credentials.Account), args.Error(1)
}

func (m *MockAccounts) GetByID(ctx context.Context, id uuid.UUID) (*credentials.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credentials.Account), args.Error(1)
}

func (m *MockAccounts) TrackSuccessfulLogin(ctx context.Context, account *credentials.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}
