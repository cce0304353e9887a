package domain

import (
	"fmt"
	"strings"
	"time"
)

// Membership links a user to an organization with a role.
// UserID is empty once the referenced user has been deleted; the row survives.
type Membership struct {
	ID       string
	UserID   string
	OrgID    string
	IsActive bool
	JoinedAt *time.Time
	Role     Role
}

// Role is a membership's permission level within an organization.
type Role string

const (
	RoleWorker     Role = "worker"
	RoleSupervisor Role = "supervisor"
	RoleMaintainer Role = "maintainer"
	RoleOwner      Role = "owner"
)

// Roles lists every role in ascending permission order.
var Roles = []Role{RoleWorker, RoleSupervisor, RoleMaintainer, RoleOwner}

// Valid reports whether r is one of the closed set of roles.
func (r Role) Valid() bool {
	switch r {
	case RoleWorker, RoleSupervisor, RoleMaintainer, RoleOwner:
		return true
	}
	return false
}

// ParseRole returns the role named by s. Matching is case-insensitive and ignores surrounding space.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("role must be one of worker, supervisor, maintainer, owner; got %q", s)
	}
	return r, nil
}

// NewOwnerMembership returns the active owner membership created together with an organization.
func NewOwnerMembership(id, userID, orgID string, joinedAt time.Time) *Membership {
	t := joinedAt
	return &Membership{
		ID:       id,
		UserID:   userID,
		OrgID:    orgID,
		IsActive: true,
		JoinedAt: &t,
		Role:     RoleOwner,
	}
}

// NewPendingMembership returns the inactive membership created together with an invitation.
func NewPendingMembership(id, userID, orgID string, role Role) *Membership {
	return &Membership{
		ID:     id,
		UserID: userID,
		OrgID:  orgID,
		Role:   role,
	}
}

// Activate marks the membership active as of joinedAt.
func (m *Membership) Activate(joinedAt time.Time) {
	t := joinedAt
	m.IsActive = true
	m.JoinedAt = &t
}
