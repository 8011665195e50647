package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mrlokans/biblioteca/internal/config"
	"github.com/mrlokans/biblioteca/internal/database/users"
)

var (
	// ErrInvalidCredentials is returned for an unknown user and for a wrong
	// password alike.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameRequired   = errors.New("username is required")
)

// dummyCredential is compared against when the user does not exist so both
// failure paths do the same work.
const dummyCredential = "biblioteca-no-such-user"

// AccountFinder loads the login data of a user by name.
type AccountFinder interface {
	FindAccount(ctx context.Context, name string) (*users.Account, error)
}

// Principal is the authenticated identity stored in the session.
type Principal struct {
	UserID   int64
	Username string
	Role     string
}

// Service checks credentials against the users table.
type Service struct {
	users  AccountFinder
	config config.Auth
}

// NewService creates a new authentication service.
func NewService(finder AccountFinder, cfg config.Auth) *Service {
	return &Service{
		users:  finder,
		config: cfg,
	}
}

// Authenticate validates credentials and returns the user. Storage errors
// other than a missing user are returned wrapped.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Principal, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}

	account, err := s.users.FindAccount(ctx, username)
	if err != nil {
		if users.IsNotFound(err) {
			CheckCredential(dummyCredential, password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !CheckCredential(account.Credential, password) {
		log.Debug().Str("username", username).Msg("Rejected login")
		return nil, ErrInvalidCredentials
	}

	return &Principal{
		UserID:   account.ID,
		Username: account.Name,
		Role:     account.Role,
	}, nil
}
