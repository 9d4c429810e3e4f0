package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

var ErrInvalidEmail = errors.New("email is required")

// TokenIssuer mints the identity credential returned on upsert.
type TokenIssuer interface {
	Issue(email string) (string, error)
}

type Service struct {
	repo   Repository
	tokens TokenIssuer
	log    logrus.FieldLogger
}

func NewService(repo Repository, tokens TokenIssuer, log logrus.FieldLogger) *Service {
	return &Service{repo: repo, tokens: tokens, log: log}
}

// UpsertAndIssueToken stores the profile for email and returns a fresh token
// bound to it. It requires no authentication. Keys that would
// overwrite identity or role are dropped from the profile.
func (s *Service) UpsertAndIssueToken(ctx context.Context, email string, profile map[string]any) (*UpsertResult, string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, "", ErrInvalidEmail
	}

	clean := make(map[string]any, len(profile))
	for k, v := range profile {
		if k == "email" || k == "role" {
			continue
		}
		clean[k] = v
	}

	created, err := s.repo.UpsertUser(ctx, email, clean)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(email)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	s.log.WithFields(logrus.Fields{"email": email, "created": created}).Info("user upserted")
	return &UpsertResult{Email: email, Created: created}, token, nil
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Service) PromoteToAdmin(ctx context.Context, email string) error {
	if err := s.repo.SetRole(ctx, email, RoleAdmin); err != nil {
		return err
	}
	s.log.WithField("email", email).Info("user promoted to admin")
	return nil
}

func (s *Service) Remove(ctx context.Context, email string) error {
	if err := s.repo.DeleteUser(ctx, email); err != nil {
		return err
	}
	s.log.WithField("email", email).Info("user removed")
	return nil
}

// IsAdmin reports the role of email. Unknown emails are not admins.
func (s *Service) IsAdmin(ctx context.Context, email string) (bool, error) {
	u, err := s.repo.GetUser(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load user: %w", err)
	}
	return u.IsAdmin(), nil
}
