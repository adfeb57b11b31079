package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"messenger-lab/errors"
)

func TestUserRepository_Create(t *testing.T) {
	db := newTestDB(t)
	repository := NewUserRepository(db)

	t.Run("should persist and retrieve a user", func(t *testing.T) {
		req := require.New(t)
		user, err := repository.Create("alice", "alice@example.com", "hash")
		req.NoError(err)
		req.NotEmpty(user.ID)
		req.False(user.IsOnline)

		byID, err := repository.GetByID(user.ID)
		req.NoError(err)
		req.Equal(user.Username, byID.Username)

		byEmail, err := repository.GetByEmail("alice@example.com")
		req.NoError(err)
		req.Equal(user.ID, byEmail.ID)
	})

	t.Run("should reject a duplicate email", func(t *testing.T) {
		req := require.New(t)
		_, err := repository.Create("alice2", "alice@example.com", "hash")
		req.ErrorIs(err, errors.ErrEmailTaken)
	})

	t.Run("should reject a duplicate username", func(t *testing.T) {
		req := require.New(t)
		_, err := repository.Create("alice", "other@example.com", "hash")
		req.ErrorIs(err, errors.ErrUsernameTaken)
	})

	t.Run("should report not-found for unknown lookups", func(t *testing.T) {
		req := require.New(t)
		_, err := repository.GetByID("nope")
		req.ErrorIs(err, errors.ErrNotFound)
		_, err = repository.GetByEmail("nope@example.com")
		req.ErrorIs(err, errors.ErrNotFound)
	})
}

func TestUserRepository_SetPresence(t *testing.T) {
	req := require.New(t)
	db := newTestDB(t)
	repository := NewUserRepository(db)

	user, err := repository.Create("bob", "bob@example.com", "hash")
	req.NoError(err)

	seen := time.Now().UTC()
	updated, err := repository.SetPresence(user.ID, true, seen)
	req.NoError(err)
	req.True(updated.IsOnline)
	req.NotNil(updated.LastSeenAt)
	req.Equal(seen, *updated.LastSeenAt)

	stored, err := repository.GetByID(user.ID)
	req.NoError(err)
	req.True(stored.IsOnline)

	_, err = repository.SetPresence("unknown", true, seen)
	req.ErrorIs(err, errors.ErrNotFound)
}
