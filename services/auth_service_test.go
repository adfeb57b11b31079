package services

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"messenger-lab/auth"
	"messenger-lab/errors"
	"messenger-lab/repositories"
)

func newAuthService(t *testing.T) (*AuthService, *repositories.UserRepository) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := repositories.NewUserRepository(db)
	tokens := auth.NewTokenManager("test_secret_for_tokens", time.Hour)
	return NewAuthService(users, tokens), users
}

func TestAuthService_Register(t *testing.T) {
	service, _ := newAuthService(t)

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		token, user, err := service.Register("alice", "alice@example.com", "C0mplex!Passw0rd")
		req.NoError(err)
		req.NotEmpty(token)
		req.Equal("alice", user.Username)
		req.NotEmpty(user.ID)
	})

	t.Run("should fail when password complexity is not met", func(t *testing.T) {
		req := require.New(t)
		_, _, err := service.Register("bob", "bob@example.com", "simplepassword")
		req.Error(err)
	})

	t.Run("should fail when the email is already registered", func(t *testing.T) {
		req := require.New(t)
		_, _, err := service.Register("alice2", "alice@example.com", "C0mplex!Passw0rd")
		req.ErrorIs(err, errors.ErrEmailTaken)
	})
}

func TestAuthService_Login(t *testing.T) {
	service, users := newAuthService(t)
	_, _, err := service.Register("alice", "alice@example.com", "C0mplex!Passw0rd")
	require.NoError(t, err)

	t.Run("should issue a token and flip the account online", func(t *testing.T) {
		req := require.New(t)
		token, user, err := service.Login("alice@example.com", "C0mplex!Passw0rd")
		req.NoError(err)
		req.NotEmpty(token)
		req.True(user.IsOnline)

		stored, err := users.GetByEmail("alice@example.com")
		req.NoError(err)
		req.True(stored.IsOnline)
	})

	t.Run("should reject a wrong password", func(t *testing.T) {
		req := require.New(t)
		_, _, err := service.Login("alice@example.com", "WrongPassword1!")
		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should reject an unknown email without revealing it", func(t *testing.T) {
		req := require.New(t)
		_, _, err := service.Login("ghost@example.com", "C0mplex!Passw0rd")
		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})
}

func TestAuthService_Logout(t *testing.T) {
	req := require.New(t)
	service, users := newAuthService(t)
	_, user, err := service.Register("alice", "alice@example.com", "C0mplex!Passw0rd")
	req.NoError(err)
	_, _, err = service.Login("alice@example.com", "C0mplex!Passw0rd")
	req.NoError(err)

	req.NoError(service.Logout(user.ID))

	stored, err := users.GetByID(user.ID)
	req.NoError(err)
	req.False(stored.IsOnline)
	req.NotNil(stored.LastSeenAt)
}
