// Package service implements the invitation workflow: create the pending membership and the
// invitation atomically, run the send step, then notify.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tenancy-control-plane/backend/internal/audit"
	auditdomain "tenancy-control-plane/backend/internal/audit/domain"
	"tenancy-control-plane/backend/internal/invitation/domain"
	invitationrepo "tenancy-control-plane/backend/internal/invitation/repository"
	membershipdomain "tenancy-control-plane/backend/internal/membership/domain"
	orgdomain "tenancy-control-plane/backend/internal/organization/domain"
	"tenancy-control-plane/backend/internal/platform/apperr"
	telemetryotel "tenancy-control-plane/backend/internal/telemetry/otel"
	userdomain "tenancy-control-plane/backend/internal/user/domain"
)

// Options configures invitation creation. It replaces any global setting.
type Options struct {
	// RequireConfirmation keeps invited memberships inactive until an external confirmation.
	RequireConfirmation bool
}

// CreateInvitationInput is the client-writable part of an invitation.
type CreateInvitationInput struct {
	Role   string
	UserID string
	OrgID  string
}

// Repo is the minimal invitation repository needed by the service.
type Repo interface {
	CreateInvitationWithMembership(ctx context.Context, inv *domain.Invitation, m *membershipdomain.Membership) error
	GetInvitationByKey(ctx context.Context, key string) (*domain.WithMembership, error)
	ListInvitationsByOrg(ctx context.Context, orgID string) ([]*domain.WithMembership, error)
	DeleteInvitation(ctx context.Context, key string) (bool, error)
}

// UserRepo resolves user references.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// OrgRepo resolves organization references.
type OrgRepo interface {
	GetOrganizationByID(ctx context.Context, id string) (*orgdomain.Org, error)
}

// Notifier hands a created invitation to the delivery backend.
type Notifier interface {
	Send(ctx context.Context, w *domain.WithMembership) error
}

// InvitationService creates, reads and deletes invitations.
type InvitationService struct {
	repo     Repo
	users    UserRepo
	orgs     OrgRepo
	notifier Notifier
	audit    audit.AuditLogger
	metrics  *telemetryotel.Instruments
	opts     Options
	tracer   trace.Tracer
	now      func() time.Time
}

// NewInvitationService returns an InvitationService. notifier, auditLogger and metrics may be nil.
func NewInvitationService(
	repo Repo,
	users UserRepo,
	orgs OrgRepo,
	notifier Notifier,
	auditLogger audit.AuditLogger,
	metrics *telemetryotel.Instruments,
	opts Options,
) *InvitationService {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	return &InvitationService{
		repo:     repo,
		users:    users,
		orgs:     orgs,
		notifier: notifier,
		audit:    auditLogger,
		metrics:  metrics,
		opts:     opts,
		tracer:   otel.Tracer("tenancy-control-plane/invitation"),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// CreateInvitation invites in.UserID to in.OrgID with in.Role on behalf of ownerID.
// Fails with already_exists, persisting nothing, when the pair already has a membership.
// A failed notification is logged and counted but does not fail the call.
func (s *InvitationService) CreateInvitation(ctx context.Context, ownerID string, in CreateInvitationInput) (*domain.WithMembership, error) {
	ctx, span := s.tracer.Start(ctx, "InvitationService.CreateInvitation",
		trace.WithAttributes(attribute.String("org.id", in.OrgID), attribute.String("membership.role", in.Role)))
	defer span.End()

	w, err := s.createInvitation(ctx, ownerID, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return w, nil
}

func (s *InvitationService) createInvitation(ctx context.Context, ownerID string, in CreateInvitationInput) (*domain.WithMembership, error) {
	role, err := membershipdomain.ParseRole(in.Role)
	if err != nil {
		return nil, apperr.Invalid("role", err.Error())
	}
	if err := s.resolveReferences(ctx, ownerID, in.UserID, in.OrgID); err != nil {
		return nil, err
	}
	key, err := domain.NewKey()
	if err != nil {
		return nil, apperr.Internal("failed to generate invitation key", err)
	}

	m := membershipdomain.NewPendingMembership(uuid.New().String(), in.UserID, in.OrgID, role)
	inv := domain.New(key, ownerID, m.ID, s.now())
	activated := inv.Send(m, s.opts.RequireConfirmation)

	if err := s.repo.CreateInvitationWithMembership(ctx, inv, m); err != nil {
		switch {
		case errors.Is(err, invitationrepo.ErrAlreadyMember):
			return nil, &apperr.Error{Code: apperr.CodeAlreadyExists, Field: "user", Message: err.Error(), Cause: err}
		case errors.Is(err, invitationrepo.ErrUnknownReference):
			return nil, &apperr.Error{Code: apperr.CodeInvalidArgument, Message: err.Error(), Cause: err}
		}
		return nil, apperr.Internal("failed to create invitation", err)
	}
	w := &domain.WithMembership{Invitation: inv, Membership: m}

	s.metrics.InvitationCreated(ctx, string(role), activated)
	s.audit.LogEvent(ctx, in.OrgID, ownerID, auditdomain.ActionInvitationCreated, auditdomain.ResourceInvitation,
		audit.Metadata(map[string]string{"membership": m.ID, "user": in.UserID, "role": string(role)}))
	if activated {
		s.audit.LogEvent(ctx, in.OrgID, ownerID, auditdomain.ActionMembershipActivated, auditdomain.ResourceMembership,
			audit.Metadata(map[string]string{"membership": m.ID}))
	}
	s.notify(ctx, w)
	return w, nil
}

func (s *InvitationService) resolveReferences(ctx context.Context, ownerID, userID, orgID string) error {
	if ownerID == "" {
		return apperr.Invalid("owner", "owner is required")
	}
	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return apperr.Internal("failed to look up owner", err)
	}
	if owner == nil {
		return apperr.Invalid("owner", "owner does not exist")
	}
	if userID == "" {
		return apperr.Invalid("user", "user is required")
	}
	if orgID == "" {
		return apperr.Invalid("organization", "organization is required")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperr.Internal("failed to look up user", err)
	}
	if u == nil {
		return apperr.Invalid("user", "user does not exist")
	}
	o, err := s.orgs.GetOrganizationByID(ctx, orgID)
	if err != nil {
		return apperr.Internal("failed to look up organization", err)
	}
	if o == nil {
		return apperr.Invalid("organization", "organization does not exist")
	}
	return nil
}

func (s *InvitationService) notify(ctx context.Context, w *domain.WithMembership) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, w); err != nil {
		s.metrics.NotifyFailed(ctx)
		trace.SpanFromContext(ctx).AddEvent("notify_failed", trace.WithAttributes(attribute.String("error", err.Error())))
		log.Printf("invitation: notify failed for membership %s: %v", w.Membership.ID, err)
	}
}

// GetInvitation returns the invitation with key and its membership.
func (s *InvitationService) GetInvitation(ctx context.Context, key string) (*domain.WithMembership, error) {
	w, err := s.repo.GetInvitationByKey(ctx, key)
	if err != nil {
		return nil, apperr.Internal("failed to get invitation", err)
	}
	if w == nil {
		return nil, apperr.NotFound("invitation not found")
	}
	return w, nil
}

// ListInvitations returns the invitations of orgID.
func (s *InvitationService) ListInvitations(ctx context.Context, orgID string) ([]*domain.WithMembership, error) {
	o, err := s.orgs.GetOrganizationByID(ctx, orgID)
	if err != nil {
		return nil, apperr.Internal("failed to look up organization", err)
	}
	if o == nil {
		return nil, apperr.NotFound("organization not found")
	}
	list, err := s.repo.ListInvitationsByOrg(ctx, orgID)
	if err != nil {
		return nil, apperr.Internal("failed to list invitations", err)
	}
	return list, nil
}

// DeleteInvitation deletes the invitation with key on behalf of callerID. The membership stays.
func (s *InvitationService) DeleteInvitation(ctx context.Context, callerID, key string) error {
	w, err := s.GetInvitation(ctx, key)
	if err != nil {
		return err
	}
	ok, err := s.repo.DeleteInvitation(ctx, key)
	if err != nil {
		return apperr.Internal("failed to delete invitation", err)
	}
	if !ok {
		return apperr.NotFound("invitation not found")
	}
	s.audit.LogEvent(ctx, w.Membership.OrgID, callerID, auditdomain.ActionInvitationDeleted, auditdomain.ResourceInvitation,
		audit.Metadata(map[string]string{"membership": w.Membership.ID}))
	return nil
}
