// Package profile exposes the authenticated account operations: read and
// update the directory profile, list login history, and unregister.
package profile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/domain"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/pkg/validate"
)

type directoryClient interface {
	GetUser(ctx context.Context, uid string) (*domain.Account, error)
	UpdateUser(ctx context.Context, uid string, req domain.UpdateAccountRequest) (*domain.Account, error)
	LoginHistory(ctx context.Context, uid string, limit int) ([]domain.LoginRecord, error)
	Unregister(ctx context.Context, uid string) error
}

type sessionSource interface {
	Current() *domain.Session
	SignOut(ctx context.Context) error
}

type Service interface {
	Get(ctx context.Context) (*domain.Account, error)
	Update(ctx context.Context, req domain.UpdateAccountRequest) (*domain.Account, error)
	History(ctx context.Context, limit int) ([]domain.LoginRecord, error)
	Unregister(ctx context.Context) error
}

type service struct {
	directory directoryClient
	sessions  sessionSource
}

// NewService builds the profile service over the directory client and the
// identity gateway's session accessor.
func NewService(directory directoryClient, sessions sessionSource) Service {
	return &service{directory: directory, sessions: sessions}
}

func (s *service) uid() (string, error) {
	sess := s.sessions.Current()
	if sess == nil {
		return "", fmt.Errorf("not signed in: %w", domain.ErrUnauthorized)
	}
	return sess.UID, nil
}

func (s *service) Get(ctx context.Context) (*domain.Account, error) {
	uid, err := s.uid()
	if err != nil {
		return nil, err
	}
	return s.directory.GetUser(ctx, uid)
}

// Update mutates name/email/address only; the phone number is immutable once
// the account exists.
func (s *service) Update(ctx context.Context, req domain.UpdateAccountRequest) (*domain.Account, error) {
	uid, err := s.uid()
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrValidation)
	}
	return s.directory.UpdateUser(ctx, uid, req)
}

func (s *service) History(ctx context.Context, limit int) ([]domain.LoginRecord, error) {
	uid, err := s.uid()
	if err != nil {
		return nil, err
	}
	return s.directory.LoginHistory(ctx, uid, limit)
}

// Unregister removes the directory record and then discards the identity
// session, in that order — a record without a session is recoverable by
// logging in again, the reverse is not detectable.
func (s *service) Unregister(ctx context.Context) error {
	uid, err := s.uid()
	if err != nil {
		return err
	}
	if err := s.directory.Unregister(ctx, uid); err != nil {
		return err
	}
	if err := s.sessions.SignOut(ctx); err != nil {
		slog.Warn("sign-out after unregister failed", "uid", uid, "err", err)
	}
	slog.Info("account unregistered", "uid", uid)
	return nil
}
