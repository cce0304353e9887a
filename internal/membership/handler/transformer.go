package handler

import (
	"time"

	"tenancy-control-plane/backend/internal/membership/domain"
)

// ReadOnlyFields may not be written through the membership API. role is the only writable field.
var ReadOnlyFields = []string{"id", "user", "organization", "is_active", "joined_date"}

// Response is the JSON shape of a membership. User is null once the user has been deleted.
type Response struct {
	ID           string     `json:"id"`
	User         *string    `json:"user"`
	Organization string     `json:"organization"`
	IsActive     bool       `json:"is_active"`
	JoinedDate   *time.Time `json:"joined_date"`
	Role         string     `json:"role"`
}

// ToResponse renders m.
func ToResponse(m *domain.Membership) Response {
	r := Response{
		ID:           m.ID,
		Organization: m.OrgID,
		IsActive:     m.IsActive,
		JoinedDate:   m.JoinedAt,
		Role:         string(m.Role),
	}
	if m.UserID != "" {
		u := m.UserID
		r.User = &u
	}
	return r
}

// updateRequest is the PATCH body. Role is required.
type updateRequest struct {
	Role *string `json:"role"`
}
