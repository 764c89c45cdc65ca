package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmptyPassword      = errors.New("password cannot be empty")
	ErrInvalidRole        = errors.New("role must be admin or manager")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type Service interface {
	CreateUser(ctx context.Context, user *User) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	Authenticate(ctx context.Context, email, password string) (*User, error)
}

type service struct {
	repo Repository
	cost int
}

func NewService(repo Repository) Service {
	return &service{repo: repo, cost: bcrypt.DefaultCost}
}

func (s *service) CreateUser(ctx context.Context, user *User) (*User, error) {
	if user.PasswordHash == "" {
		return nil, ErrEmptyPassword
	}
	if user.Role == "" {
		user.Role = RoleManager
	}
	if !user.Role.Valid() {
		return nil, ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(user.PasswordHash), s.cost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to hash password")
		return nil, fmt.Errorf("internal error hashing password: %w", err)
	}
	user.PasswordHash = string(hash)

	createdID, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		log.Error().Err(err).Msg("service: failed to create user in repository")
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	user.ID = createdID
	log.Info().Stringer("user_id", user.ID).Str("role", string(user.Role)).Msg("service: user created")

	return user, nil
}

func (s *service) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}

		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to get user by id in repository")
		return nil, fmt.Errorf("failed to get user by id '%s': %w", id, err)
	}

	return user, nil
}

func (s *service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}

		log.Error().Err(err).Msg("service: failed to get user by email in repository")
		return nil, fmt.Errorf("failed to get user by email '%s': %w", email, err)
	}

	return user, nil
}

// UpdateUser leaves the stored role untouched when user.Role is empty.
func (s *service) UpdateUser(ctx context.Context, user *User) error {
	if user.Role != "" && !user.Role.Valid() {
		return ErrInvalidRole
	}

	if user.PasswordHash != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(user.PasswordHash), s.cost)
		if err != nil {
			log.Error().Err(err).Msg("service: failed to hash password")
			return fmt.Errorf("failed to generate hash password: %w", err)
		}

		user.PasswordHash = string(hash)
	}

	err := s.repo.Update(ctx, user)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return ErrEmailExists
		}
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}

		log.Error().Err(err).Stringer("user_id", user.ID).Msg("service: failed to update user")
		return fmt.Errorf("failed to update user by id '%s': %w", user.ID.String(), err)
	}

	return nil
}

func (s *service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}

		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to delete user")
		return fmt.Errorf("failed to delete user by id '%s': %w", id, err)
	}

	return nil
}

// Authenticate checks the password against the stored hash. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		log.Error().Err(err).Msg("service: failed to load user for authentication")
		return nil, fmt.Errorf("failed to authenticate user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn().Stringer("user_id", user.ID).Msg("service: password mismatch")
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
