// Package service implements reads and the role-only edits of memberships. Memberships are
// created by the organization and invitation workflows, never here.
package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tenancy-control-plane/backend/internal/audit"
	auditdomain "tenancy-control-plane/backend/internal/audit/domain"
	"tenancy-control-plane/backend/internal/membership/domain"
	orgdomain "tenancy-control-plane/backend/internal/organization/domain"
	"tenancy-control-plane/backend/internal/platform/apperr"
)

// Repo is the minimal membership repository needed by the service.
type Repo interface {
	GetMembershipByID(ctx context.Context, id string) (*domain.Membership, error)
	ListMembershipsByOrg(ctx context.Context, orgID string) ([]*domain.Membership, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.Membership, error)
	DeleteMembership(ctx context.Context, id string) (bool, error)
}

// OrgRepo resolves organization references.
type OrgRepo interface {
	GetOrganizationByID(ctx context.Context, id string) (*orgdomain.Org, error)
}

// MembershipService reads memberships and changes their role.
type MembershipService struct {
	repo   Repo
	orgs   OrgRepo
	audit  audit.AuditLogger
	tracer trace.Tracer
}

// NewMembershipService returns a MembershipService. auditLogger may be nil.
func NewMembershipService(repo Repo, orgs OrgRepo, auditLogger audit.AuditLogger) *MembershipService {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	return &MembershipService{
		repo:   repo,
		orgs:   orgs,
		audit:  auditLogger,
		tracer: otel.Tracer("tenancy-control-plane/membership"),
	}
}

// GetMembership returns the membership with id.
func (s *MembershipService) GetMembership(ctx context.Context, id string) (*domain.Membership, error) {
	m, err := s.repo.GetMembershipByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("failed to get membership", err)
	}
	if m == nil {
		return nil, apperr.NotFound("membership not found")
	}
	return m, nil
}

// ListMemberships returns the memberships of orgID.
func (s *MembershipService) ListMemberships(ctx context.Context, orgID string) ([]*domain.Membership, error) {
	o, err := s.orgs.GetOrganizationByID(ctx, orgID)
	if err != nil {
		return nil, apperr.Internal("failed to look up organization", err)
	}
	if o == nil {
		return nil, apperr.NotFound("organization not found")
	}
	list, err := s.repo.ListMembershipsByOrg(ctx, orgID)
	if err != nil {
		return nil, apperr.Internal("failed to list memberships", err)
	}
	return list, nil
}

// UpdateRole sets the role of membership id on behalf of callerID.
func (s *MembershipService) UpdateRole(ctx context.Context, callerID, id, role string) (*domain.Membership, error) {
	ctx, span := s.tracer.Start(ctx, "MembershipService.UpdateRole",
		trace.WithAttributes(attribute.String("membership.id", id)))
	defer span.End()

	r, err := domain.ParseRole(role)
	if err != nil {
		return nil, apperr.Invalid("role", err.Error())
	}
	before, err := s.GetMembership(ctx, id)
	if err != nil {
		return nil, err
	}
	m, err := s.repo.UpdateRole(ctx, id, r)
	if err != nil {
		return nil, apperr.Internal("failed to update membership", err)
	}
	if m == nil {
		return nil, apperr.NotFound("membership not found")
	}
	if before.Role != m.Role {
		s.audit.LogEvent(ctx, m.OrgID, callerID, auditdomain.ActionRoleChanged, auditdomain.ResourceMembership,
			audit.Metadata(map[string]string{"membership": m.ID, "from": string(before.Role), "to": string(m.Role)}))
	}
	return m, nil
}

// DeleteMembership removes membership id on behalf of callerID. Its invitation goes with it.
func (s *MembershipService) DeleteMembership(ctx context.Context, callerID, id string) error {
	m, err := s.GetMembership(ctx, id)
	if err != nil {
		return err
	}
	ok, err := s.repo.DeleteMembership(ctx, id)
	if err != nil {
		return apperr.Internal("failed to delete membership", err)
	}
	if !ok {
		return apperr.NotFound("membership not found")
	}
	s.audit.LogEvent(ctx, m.OrgID, callerID, auditdomain.ActionMemberRemoved, auditdomain.ResourceMembership,
		audit.Metadata(map[string]string{"membership": m.ID, "user": m.UserID}))
	return nil
}
