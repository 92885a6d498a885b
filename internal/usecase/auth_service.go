package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"tradeterm/internal/domain"
)

// AuthService resolves LOGIN credentials against the ledger
type AuthService struct {
	users domain.UserRepository
}

// NewAuthService creates a new AuthService
func NewAuthService(users domain.UserRepository) *AuthService {
	return &AuthService{users: users}
}

// Login verifies username/password and returns the matching user.
// Returns domain.ErrInvalidCredentials for an unknown username or a wrong
// password; any other error is an internal failure.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve login: %w", err)
	}

	if !verifyPassword(user.Password, password) {
		return nil, domain.ErrInvalidCredentials
	}

	return user, nil
}

// verifyPassword checks password against the stored credential. Rows created
// by the provisioning tool hold bcrypt hashes; the seed rows hold legacy
// plaintext credentials and are compared in constant time.
func verifyPassword(stored, password string) bool {
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}
