package repository

import (
	"context"

	"credential-gate/internal/domain"
)

// UserRepository defines persistence operations for User entities.
// Implementations must bind every value as a query parameter.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	// GetByUsername returns ErrNotFound unless exactly one row matches.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}
