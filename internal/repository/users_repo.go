package repository

import (
	"context"

	"salesops-data/internal/domain"
)

// UsersRepository read access to staff accounts
type UsersRepository interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	// GetByName returns ErrNotFound when no user has this name.
	GetByName(ctx context.Context, name string) (*domain.User, error)
	// ListByRole returns users ordered by name.
	ListByRole(ctx context.Context, role string) ([]*domain.User, error)
}
