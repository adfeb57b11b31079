package repositories

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"messenger-lab/domain"
)

func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedUsers(t *testing.T, users *UserRepository, names ...string) []domain.User {
	t.Helper()
	seeded := make([]domain.User, 0, len(names))
	for _, name := range names {
		user, err := users.Create(name, name+"@example.com", "hash")
		require.NoError(t, err)
		seeded = append(seeded, user)
	}
	return seeded
}
