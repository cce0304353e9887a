package repository

import (
	"context"
	"errors"

	"tenancy-control-plane/backend/internal/invitation/domain"
	membershipdomain "tenancy-control-plane/backend/internal/membership/domain"
)

var (
	// ErrAlreadyMember is returned when the (user, organization) pair already has a membership.
	ErrAlreadyMember = errors.New("user is already a member of the organization")
	// ErrUnknownReference is returned when the user or organization disappeared before the insert.
	ErrUnknownReference = errors.New("referenced user or organization does not exist")
)

// Repository defines persistence for invitations.
type Repository interface {
	// CreateInvitationWithMembership inserts m and inv in one transaction. The membership insert
	// is conditional on the (user, organization) pair being free; when it is taken nothing is
	// persisted and ErrAlreadyMember is returned.
	CreateInvitationWithMembership(ctx context.Context, inv *domain.Invitation, m *membershipdomain.Membership) error
	// GetInvitationByKey returns the invitation and its membership, or nil if key does not exist.
	GetInvitationByKey(ctx context.Context, key string) (*domain.WithMembership, error)
	// ListInvitationsByOrg returns the invitations whose membership belongs to orgID, newest first.
	ListInvitationsByOrg(ctx context.Context, orgID string) ([]*domain.WithMembership, error)
	// DeleteInvitation deletes the invitation only; its membership stays. Returns false if key did not exist.
	DeleteInvitation(ctx context.Context, key string) (bool, error)
}
