package repository

import (
	"context"

	"tenancy-control-plane/backend/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// Delete removes the user. Organization owners, memberships and invitation owners that
	// reference the user are cleared to NULL by the schema, not deleted.
	Delete(ctx context.Context, id string) error
}
