package service

import (
	"context"
	"errors"

	"todo-api/internal/apperror"
	"todo-api/internal/models"
	"todo-api/internal/repository"
	"todo-api/pkg/logger"
)

const invalidCredentials = "Invalid email or password"

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
	Create(ctx context.Context, u *models.User) error
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// AuthService registers users and exchanges credentials for tokens.
type AuthService struct {
	users  UserStore
	hasher PasswordHasher
	tokens TokenIssuer
}

func NewAuthService(users UserStore, hasher PasswordHasher, tokens TokenIssuer) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens}
}

// Login returns a token for the user identified by email and password.
// Unknown email and wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", apperror.NewUnauthorized(invalidCredentials)
	}
	if err != nil {
		return "", apperror.NewInternal(err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		logger.Debug(ctx, "Login rejected", "user_id", user.ID)
		return "", apperror.NewUnauthorized(invalidCredentials)
	}
	return s.issue(user.ID)
}

// SignUp creates a user and returns a token for it.
func (s *AuthService) SignUp(ctx context.Context, email, password, name string) (string, error) {
	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return "", conflictEmail()
	case !errors.Is(err, repository.ErrNotFound):
		return "", apperror.NewInternal(err)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return "", apperror.NewInternal(err)
	}
	user := &models.User{Email: email, Name: name, PasswordHash: digest}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", conflictEmail()
		}
		return "", apperror.NewInternal(err)
	}
	logger.Info(ctx, "User signed up", "user_id", user.ID)
	return s.issue(user.ID)
}

func (s *AuthService) issue(userID string) (string, error) {
	token, err := s.tokens.Issue(userID)
	if err != nil {
		return "", apperror.NewInternal(err)
	}
	return token, nil
}

func conflictEmail() error {
	return apperror.NewConflict("User with this email already exists")
}
