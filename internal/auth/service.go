package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserStore is the slice of the user repository the service needs.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, u *User) error
}

// Service implements login and registration over a UserStore and an Issuer.
type Service struct {
	store  UserStore
	issuer *Issuer
	logger *zap.Logger
}

func NewService(store UserStore, issuer *Issuer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, issuer: issuer, logger: logger}
}

// Authenticate checks the credential against the stored hash and mints a
// session token on match.
func (s *Service) Authenticate(ctx context.Context, username, password string) (string, error) {
	u, err := s.store.GetByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		s.logger.Error("user lookup failed", zap.String("username", username), zap.Error(err))
		return "", err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}
	tok, err := s.issuer.Sign(Principal{UserID: u.ID, Username: u.Username})
	if err != nil {
		s.logger.Error("token sign failed", zap.Error(err))
		return "", err
	}
	return tok, nil
}

func (s *Service) Register(ctx context.Context, username, password string) error {
	if _, err := s.store.GetByUsername(ctx, username); err == nil {
		return ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Create(ctx, u); err != nil {
		s.logger.Error("user insert failed", zap.String("username", username), zap.Error(err))
		return err
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID), zap.String("username", username))
	return nil
}

// Verify exposes token verification to the HTTP middleware.
func (s *Service) Verify(token string) (Principal, error) {
	return s.issuer.Verify(token)
}
