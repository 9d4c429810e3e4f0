package user

import (
	"context"
	"errors"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

// Repository contains all storage interactions needed by the user directory.
type Repository interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, email string) (*User, error)

	// UpsertUser merges profile into the stored profile, creating the row if needed.
	UpsertUser(ctx context.Context, email string, profile map[string]any) (created bool, err error)
	SetRole(ctx context.Context, email, role string) error
	DeleteUser(ctx context.Context, email string) error
}
