// Package service implements the organization operations. Creating an organization also
// creates its owner membership.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tenancy-control-plane/backend/internal/audit"
	auditdomain "tenancy-control-plane/backend/internal/audit/domain"
	membershipdomain "tenancy-control-plane/backend/internal/membership/domain"
	"tenancy-control-plane/backend/internal/organization/domain"
	orgrepo "tenancy-control-plane/backend/internal/organization/repository"
	"tenancy-control-plane/backend/internal/platform/apperr"
	telemetryotel "tenancy-control-plane/backend/internal/telemetry/otel"
	userdomain "tenancy-control-plane/backend/internal/user/domain"
)

// ErrSlugTaken is the client-facing error for a slug collision.
var ErrSlugTaken = &apperr.Error{
	Code:    apperr.CodeAlreadyExists,
	Field:   "slug",
	Message: "organization with this slug already exists",
}

// CreateOrganizationInput is the client-writable part of a new organization.
type CreateOrganizationInput struct {
	Slug        string
	Name        string
	Description string
	Contact     map[string]any
}

// UpdateOrganizationInput holds the fields to change. Nil fields are left as they are.
type UpdateOrganizationInput struct {
	Slug        *string
	Name        *string
	Description *string
	Contact     *map[string]any
}

// OrganizationWithOwner is the result of CreateOrganization.
type OrganizationWithOwner struct {
	Org   *domain.Org
	Owner *membershipdomain.Membership
}

// UserRepo resolves the owner reference.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// OrganizationService creates, reads, updates and deletes organizations.
type OrganizationService struct {
	repo    orgrepo.Repository
	users   UserRepo
	audit   audit.AuditLogger
	metrics *telemetryotel.Instruments
	tracer  trace.Tracer
	now     func() time.Time
}

// NewOrganizationService returns an OrganizationService. auditLogger and metrics may be nil.
func NewOrganizationService(repo orgrepo.Repository, users UserRepo, auditLogger audit.AuditLogger, metrics *telemetryotel.Instruments) *OrganizationService {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	return &OrganizationService{
		repo:    repo,
		users:   users,
		audit:   auditLogger,
		metrics: metrics,
		tracer:  otel.Tracer("tenancy-control-plane/organization"),
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// CreateOrganization creates an organization owned by ownerID together with the owner's
// active membership. Fails with already_exists, creating nothing, when the slug is in use.
func (s *OrganizationService) CreateOrganization(ctx context.Context, ownerID string, in CreateOrganizationInput) (*OrganizationWithOwner, error) {
	ctx, span := s.tracer.Start(ctx, "OrganizationService.CreateOrganization",
		trace.WithAttributes(attribute.String("org.slug", in.Slug)))
	defer span.End()

	res, err := s.createOrganization(ctx, ownerID, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("org.id", res.Org.ID))
	return res, nil
}

func (s *OrganizationService) createOrganization(ctx context.Context, ownerID string, in CreateOrganizationInput) (*OrganizationWithOwner, error) {
	if ownerID == "" {
		return nil, apperr.Invalid("owner", "owner is required")
	}
	now := s.now()
	o := &domain.Org{
		ID:          uuid.New().String(),
		Slug:        in.Slug,
		Name:        in.Name,
		Description: in.Description,
		Contact:     in.Contact,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, apperr.Internal("failed to look up owner", err)
	}
	if u == nil {
		return nil, apperr.Invalid("owner", "owner does not exist")
	}

	owner := membershipdomain.NewOwnerMembership(uuid.New().String(), ownerID, o.ID, o.CreatedAt)
	if err := s.repo.CreateOrganizationWithOwner(ctx, o, owner); err != nil {
		if errors.Is(err, orgrepo.ErrSlugTaken) {
			return nil, ErrSlugTaken
		}
		return nil, apperr.Internal("failed to create organization", err)
	}

	s.metrics.OrganizationCreated(ctx)
	s.audit.LogEvent(ctx, o.ID, ownerID, auditdomain.ActionOrganizationCreated, auditdomain.ResourceOrganization,
		audit.Metadata(map[string]string{"slug": o.Slug, "owner_membership": owner.ID}))
	return &OrganizationWithOwner{Org: o, Owner: owner}, nil
}

// GetOrganization returns the organization with id.
func (s *OrganizationService) GetOrganization(ctx context.Context, id string) (*domain.Org, error) {
	o, err := s.repo.GetOrganizationByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("failed to get organization", err)
	}
	if o == nil {
		return nil, apperr.NotFound("organization not found")
	}
	return o, nil
}

// ListOrganizations returns every organization ordered by slug.
func (s *OrganizationService) ListOrganizations(ctx context.Context) ([]*domain.Org, error) {
	list, err := s.repo.ListOrganizations(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to list organizations", err)
	}
	return list, nil
}

// UpdateOrganization applies in to organization id on behalf of callerID. Owner and creation
// date never change.
func (s *OrganizationService) UpdateOrganization(ctx context.Context, callerID, id string, in UpdateOrganizationInput) (*domain.Org, error) {
	ctx, span := s.tracer.Start(ctx, "OrganizationService.UpdateOrganization",
		trace.WithAttributes(attribute.String("org.id", id)))
	defer span.End()

	o, err := s.GetOrganization(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Slug != nil {
		o.Slug = *in.Slug
	}
	if in.Name != nil {
		o.Name = *in.Name
	}
	if in.Description != nil {
		o.Description = *in.Description
	}
	if in.Contact != nil {
		o.Contact = *in.Contact
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	o.UpdatedAt = s.now()

	ok, err := s.repo.UpdateOrganization(ctx, o)
	if err != nil {
		if errors.Is(err, orgrepo.ErrSlugTaken) {
			return nil, ErrSlugTaken
		}
		return nil, apperr.Internal("failed to update organization", err)
	}
	if !ok {
		return nil, apperr.NotFound("organization not found")
	}
	s.audit.LogEvent(ctx, o.ID, callerID, auditdomain.ActionOrganizationUpdated, auditdomain.ResourceOrganization,
		audit.Metadata(map[string]string{"slug": o.Slug}))
	return o, nil
}

// DeleteOrganization deletes organization id and, with it, its memberships and invitations.
func (s *OrganizationService) DeleteOrganization(ctx context.Context, callerID, id string) error {
	o, err := s.GetOrganization(ctx, id)
	if err != nil {
		return err
	}
	ok, err := s.repo.DeleteOrganization(ctx, id)
	if err != nil {
		return apperr.Internal("failed to delete organization", err)
	}
	if !ok {
		return apperr.NotFound("organization not found")
	}
	s.audit.LogEvent(ctx, o.ID, callerID, auditdomain.ActionOrganizationDeleted, auditdomain.ResourceOrganization,
		audit.Metadata(map[string]string{"slug": o.Slug}))
	return nil
}
