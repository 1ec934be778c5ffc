package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinSecretLength is the shortest auth secret accepted at signup or reset.
const MinSecretLength = 6

// UserService handles signup, authentication and secret resets. Secrets
// are stored as bcrypt hashes only.
type UserService struct {
	store  storage.Store
	newID  IDGenerator
	cost   int
	logger *applog.Logger
}

func NewUserService(store storage.Store) *UserService {
	return &UserService{
		store:  store,
		newID:  uuid.NewString,
		cost:   bcrypt.DefaultCost,
		logger: applog.Default(applog.ComponentUsers),
	}
}

func (s *UserService) hash(secret string) (string, error) {
	if len(secret) < MinSecretLength {
		return "", fmt.Errorf("%w: at least %d characters", core.ErrWeakSecret, MinSecretLength)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(h), nil
}

// Signup creates a user. The email must not be registered yet.
func (s *UserService) Signup(ctx context.Context, name, email, secret string) (core.User, error) {
	u := core.User{
		ID:    s.newID(),
		Name:  strings.TrimSpace(name),
		Email: strings.TrimSpace(email),
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}

	hashed, err := s.hash(secret)
	if err != nil {
		return core.User{}, err
	}
	u.AuthSecret = hashed

	if err := s.store.CreateUser(ctx, u); err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "User signed up",
		applog.NewFields().WithUser(u.ID).WithOperation(applog.OpCreate).ToSlice()...)
	return u, nil
}

// Authenticate returns the user owning email when secret matches. Unknown
// emails and wrong secrets fail the same way.
func (s *UserService) Authenticate(ctx context.Context, email, secret string) (core.User, error) {
	u, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.User{}, core.ErrInvalidCredentials
		}
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.AuthSecret), []byte(secret)); err != nil {
		return core.User{}, core.ErrInvalidCredentials
	}
	return u, nil
}

// ResetSecret replaces the secret of the user owning email. secret and
// confirm must match.
func (s *UserService) ResetSecret(ctx context.Context, email, secret, confirm string) error {
	if secret != confirm {
		return core.ErrSecretMismatch
	}
	hashed, err := s.hash(secret)
	if err != nil {
		return err
	}

	err = s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		u, err := tx.GetUserByEmail(ctx, strings.TrimSpace(email))
		if err != nil {
			return err
		}
		u.AuthSecret = hashed
		return tx.UpdateUser(ctx, u)
	})
	if err != nil {
		return fmt.Errorf("reset secret: %w", err)
	}

	s.logger.InfoContext(ctx, "Secret reset", applog.FieldOperation, applog.OpUpdate)
	return nil
}

// Lookup returns a user by id.
func (s *UserService) Lookup(ctx context.Context, id string) (core.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
