package services

import (
	"fmt"
	"time"

	"messenger-lab/auth"
	"messenger-lab/domain"
	"messenger-lab/errors"
	"messenger-lab/repositories"
)

type IAuthService interface {
	Register(username, email, password string) (Token, domain.PublicUser, error)
	Login(email, password string) (Token, domain.PublicUser, error)
	CurrentUser(userID string) (domain.PublicUser, error)
	Logout(userID string) error
}

type Token string

type AuthService struct {
	users  repositories.IUserRepository
	tokens *auth.TokenManager
}

func NewAuthService(users repositories.IUserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(username, email, password string) (Token, domain.PublicUser, error) {
	valReq := auth.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	}

	// 1. Validate business rules before any expensive cryptographic work.
	if err := auth.ValidateRegister(valReq); err != nil {
		return "", domain.PublicUser{}, err
	}

	// 2. Hash the password here so the repository never sees plain text.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", domain.PublicUser{}, fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Persist; propagates the taken-email/username errors.
	user, err := s.users.Create(username, email, hashedPassword)
	if err != nil {
		return "", domain.PublicUser{}, err
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", domain.PublicUser{}, err
	}
	return Token(token), user.Public(), nil
}

func (s *AuthService) Login(email, password string) (Token, domain.PublicUser, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		// Generic error to prevent user enumeration.
		return "", domain.PublicUser{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", domain.PublicUser{}, errors.ErrInvalidCredentials
	}

	// Logging in is a presence transition: the account shows online
	// even before a live channel is established.
	user, err = s.users.SetPresence(user.ID, true, time.Now().UTC())
	if err != nil {
		return "", domain.PublicUser{}, err
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", domain.PublicUser{}, err
	}
	return Token(token), user.Public(), nil
}

func (s *AuthService) CurrentUser(userID string) (domain.PublicUser, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return domain.PublicUser{}, err
	}
	return user.Public(), nil
}

// Logout flips the account offline. The bearer token stays valid until
// it expires; logout is a presence transition, not token revocation.
func (s *AuthService) Logout(userID string) error {
	_, err := s.users.SetPresence(userID, false, time.Now().UTC())
	return err
}
