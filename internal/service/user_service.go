package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"credential-gate/internal/domain"
	"credential-gate/internal/password"
	"credential-gate/internal/repository"
)

// UserService provisions accounts outside the request path (operator tooling).
type UserService interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
	SetPassword(ctx context.Context, username, password string) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type userService struct {
	users     repository.UserRepository
	sessions  SessionStore
	hasher    password.Hasher
	minLength int
	log       logrus.FieldLogger
}

func NewUserService(users repository.UserRepository, sessions SessionStore, hasher password.Hasher, minLength int, logger logrus.FieldLogger) UserService {
	if minLength <= 0 {
		minLength = defaultMinPasswordLength
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &userService{
		users:     users,
		sessions:  sessions,
		hasher:    hasher,
		minLength: minLength,
		log:       logger,
	}
}

func (s *userService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	fields := make(map[string]string)
	if username == "" {
		fields[FieldUsername] = MsgUsernameRequired
	}
	if msg := validateNewPassword(password, s.minLength); msg != "" {
		fields[FieldPassword] = msg
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, storeUnavailable("create user", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("user registered")
	return sanitizeUser(user), nil
}

// SetPassword replaces a user's password and ends all of their sessions.
func (s *userService) SetPassword(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if msg := validateNewPassword(password, s.minLength); msg != "" {
		return &ValidationError{Fields: map[string]string{FieldPassword: msg}}
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return storeUnavailable("find user", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if s.sessions != nil {
		if _, err := s.sessions.DestroyUser(ctx, user.ID); err != nil {
			return storeUnavailable("destroy sessions", err)
		}
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("sessions revoked but password unchanged: %w", storeUnavailable("update password", err))
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("password set")
	return nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeUnavailable("get user", err)
	}
	return sanitizeUser(user), nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
