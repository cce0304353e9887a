package repository

import (
	"context"

	"tenancy-control-plane/backend/internal/membership/domain"
)

// Repository defines persistence for memberships. Memberships are only inserted by the
// organization and invitation repositories, inside their create transactions.
type Repository interface {
	GetMembershipByID(ctx context.Context, id string) (*domain.Membership, error)
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error)
	ListMembershipsByOrg(ctx context.Context, orgID string) ([]*domain.Membership, error)
	// UpdateRole sets the role and returns the updated membership, or nil if id does not exist.
	UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.Membership, error)
	// DeleteMembership deletes the membership and, by cascade, its invitation. Returns false if id did not exist.
	DeleteMembership(ctx context.Context, id string) (bool, error)
}
