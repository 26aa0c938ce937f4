package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/kokodi/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrUserExists         = errors.New("user with this login already exists")
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrMissingField       = errors.New("login, password and name are required")
)

// UserStore is the account persistence used by Service. Save returns
// models.ErrConflict when the login belongs to another user.
type UserStore interface {
	Save(ctx context.Context, u *models.User) (*models.User, error)
	FindByLogin(ctx context.Context, login string) (*models.User, error)
}

// Service registers accounts and exchanges credentials for tokens.
type Service struct {
	users  UserStore
	tokens *Tokens
	clock  quartz.Clock
	log    logrus.FieldLogger
}

func NewService(users UserStore, tokens *Tokens, logger logrus.FieldLogger) *Service {
	return &Service{users: users, tokens: tokens, clock: quartz.NewReal(), log: logger}
}

// Tokens exposes the verifier used by the HTTP layer.
func (s *Service) Tokens() *Tokens {
	return s.tokens
}

// Register creates a user with a hashed password.
func (s *Service) Register(ctx context.Context, login, password, name string) (*models.User, error) {
	login = strings.TrimSpace(login)
	name = strings.TrimSpace(name)
	if login == "" || password == "" || name == "" {
		return nil, ErrMissingField
	}

	if _, err := s.users.FindByLogin(ctx, login); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, login)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("lookup login %s: %w", login, err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Save(ctx, &models.User{
		ID:        uuid.New(),
		Login:     login,
		Password:  hash,
		Name:      name,
		CreatedAt: s.clock.Now(),
	})
	if errors.Is(err, models.ErrConflict) {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, login)
	}
	if err != nil {
		return nil, fmt.Errorf("save user %s: %w", login, err)
	}

	s.log.WithField("user_id", user.ID).Infof("Registered user %s", login)
	return user, nil
}

// Login verifies credentials and returns a signed token for the user.
func (s *Service) Login(ctx context.Context, login, password string) (string, *models.User, error) {
	user, err := s.users.FindByLogin(ctx, strings.TrimSpace(login))
	if errors.Is(err, models.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("lookup login %s: %w", login, err)
	}

	ok, err := VerifyPassword(password, user.Password)
	if err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Error("Stored password hash is unreadable")
		return "", nil, ErrInvalidCredentials
	}
	if !ok {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Create(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("create token: %w", err)
	}
	return token, user, nil
}
