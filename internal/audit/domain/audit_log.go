package domain

import "time"

// AuditLog represents an audit event.
type AuditLog struct {
	ID        string
	OrgID     string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}

// Actions recorded by the organization, membership and invitation services.
const (
	ActionOrganizationCreated = "organization_created"
	ActionOrganizationUpdated = "organization_updated"
	ActionOrganizationDeleted = "organization_deleted"
	ActionRoleChanged         = "role_changed"
	ActionMemberRemoved       = "member_removed"
	ActionInvitationCreated   = "invitation_created"
	ActionInvitationDeleted   = "invitation_deleted"
	ActionMembershipActivated = "membership_activated"
)

// Resources named in audit entries.
const (
	ResourceOrganization = "organization"
	ResourceMembership   = "membership"
	ResourceInvitation   = "invitation"
)
