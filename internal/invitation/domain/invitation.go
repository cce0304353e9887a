// Package domain holds the invitation entity and its send policy.
package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	membershipdomain "tenancy-control-plane/backend/internal/membership/domain"
)

const (
	// MaxKeyLength is the maximum length of an invitation key.
	MaxKeyLength = 64
	// keyBytes of entropy encode to a 43-character key.
	keyBytes = 32
)

// Invitation is a single-use offer to join an organization, tied one-to-one to a membership.
// OwnerID is empty once the inviting user has been deleted.
type Invitation struct {
	Key          string
	Accepted     bool
	CreatedAt    time.Time
	OwnerID      string
	MembershipID string
}

// State is the observable lifecycle state of an invitation. It is derived, not stored.
type State string

const (
	StatePending   State = "pending"
	StateActivated State = "activated"
	StateAccepted  State = "accepted"
)

// WithMembership is an invitation together with the membership it owns.
type WithMembership struct {
	Invitation *Invitation
	Membership *membershipdomain.Membership
}

// State derives the lifecycle state from the accepted flag and the membership.
func (w *WithMembership) State() State {
	switch {
	case w.Invitation.Accepted:
		return StateAccepted
	case w.Membership != nil && w.Membership.IsActive:
		return StateActivated
	default:
		return StatePending
	}
}

// NewKey returns a fresh URL-safe random invitation key.
func NewKey() (string, error) {
	b := make([]byte, keyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// New returns an unaccepted invitation for membershipID created at createdAt.
func New(key, ownerID, membershipID string, createdAt time.Time) *Invitation {
	return &Invitation{
		Key:          key,
		CreatedAt:    createdAt,
		OwnerID:      ownerID,
		MembershipID: membershipID,
	}
}

// Send runs the send step against the invitation's membership. Unless confirmation is
// required, the membership becomes active with joined date equal to the invitation's creation
// time. Reports whether the membership was activated.
func (inv *Invitation) Send(m *membershipdomain.Membership, requireConfirmation bool) bool {
	if requireConfirmation || m == nil || m.IsActive {
		return false
	}
	m.Activate(inv.CreatedAt)
	return true
}
