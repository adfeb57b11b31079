package domain

import "time"

// User is the directory entry for an account. The presence fields
// (IsOnline, LastSeenAt) are mutated only by login/logout and by
// connection open/close transitions, never by direct user edits.
type User struct {
	ID           string     `cbor:"1,keyasint"`
	Username     string     `cbor:"2,keyasint"`
	Email        string     `cbor:"3,keyasint"`
	PasswordHash string     `cbor:"4,keyasint"`
	IsOnline     bool       `cbor:"5,keyasint"`
	LastSeenAt   *time.Time `cbor:"6,keyasint,omitempty"`
	CreatedAt    time.Time  `cbor:"7,keyasint"`
}

// PublicUser is the externally visible projection of a User.
// The password hash never leaves the repository layer through it.
type PublicUser struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	IsOnline   bool       `json:"isOnline"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		IsOnline:   u.IsOnline,
		LastSeenAt: u.LastSeenAt,
	}
}
