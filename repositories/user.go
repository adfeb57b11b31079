package repositories

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"messenger-lab/domain"
	"messenger-lab/errors"
	"messenger-lab/storage"
)

type IUserRepository interface {
	Create(username, email, hashedPassword string) (domain.User, error)
	GetByID(id string) (domain.User, error)
	GetByEmail(email string) (domain.User, error)
	SetPresence(id string, online bool, at time.Time) (domain.User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Key layout:
//
//	user:{id}            -> CBOR(domain.User)
//	useremail:{email}    -> id
//	username:{username}  -> id
//
// The index keys double as uniqueness guards: their presence inside the
// creating transaction rejects a duplicate before anything is written.
func userKey(id string) []byte       { return []byte("user:" + id) }
func emailKey(email string) []byte   { return []byte("useremail:" + email) }
func nameKey(username string) []byte { return []byte("username:" + username) }

func (r *UserRepository) Create(username, email, hashedPassword string) (domain.User, error) {
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := storage.Marshal(user)
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey(email)); err == nil {
			return errors.ErrEmailTaken
		}
		if _, err := txn.Get(nameKey(username)); err == nil {
			return errors.ErrUsernameTaken
		}
		if err := txn.Set(userKey(user.ID), data); err != nil {
			return err
		}
		if err := txn.Set(emailKey(email), []byte(user.ID)); err != nil {
			return err
		}
		return txn.Set(nameKey(username), []byte(user.ID))
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(id string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		return readUser(txn, id, &user)
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(email string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if err != nil {
			return errors.ErrNotFound
		}
		var id string
		if err := item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}
		return readUser(txn, id, &user)
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// SetPresence flips the online flag and records the last-seen time.
// It is the only write path for the presence fields.
func (r *UserRepository) SetPresence(id string, online bool, at time.Time) (domain.User, error) {
	var user domain.User
	err := r.db.Update(func(txn *badger.Txn) error {
		if err := readUser(txn, id, &user); err != nil {
			return err
		}
		user.IsOnline = online
		seen := at.UTC()
		user.LastSeenAt = &seen
		data, err := storage.Marshal(user)
		if err != nil {
			return fmt.Errorf("marshal failed: %w", err)
		}
		return txn.Set(userKey(id), data)
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func readUser(txn *badger.Txn, id string, out *domain.User) error {
	item, err := txn.Get(userKey(id))
	if err != nil {
		return errors.ErrNotFound
	}
	return item.Value(func(val []byte) error {
		return storage.Unmarshal(val, out)
	})
}
