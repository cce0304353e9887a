package repository

import (
	"context"
	"errors"

	membershipdomain "tenancy-control-plane/backend/internal/membership/domain"
	"tenancy-control-plane/backend/internal/organization/domain"
)

// ErrSlugTaken is returned when another organization already uses the slug.
var ErrSlugTaken = errors.New("organization slug already in use")

// Repository defines persistence for organizations.
type Repository interface {
	GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*domain.Org, error)
	ListOrganizations(ctx context.Context) ([]*domain.Org, error)
	// CreateOrganizationWithOwner inserts o and its owner membership in one transaction.
	// Returns ErrSlugTaken, with nothing persisted, when the slug is already in use.
	CreateOrganizationWithOwner(ctx context.Context, o *domain.Org, owner *membershipdomain.Membership) error
	// UpdateOrganization writes slug, name, description, contact and updated_date.
	// Returns ErrSlugTaken when the new slug collides; returns false if id does not exist.
	UpdateOrganization(ctx context.Context, o *domain.Org) (bool, error)
	// DeleteOrganization deletes the organization and, by cascade, its memberships and invitations.
	DeleteOrganization(ctx context.Context, id string) (bool, error)
}
