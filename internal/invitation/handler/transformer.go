package handler

import (
	"time"

	"tenancy-control-plane/backend/internal/invitation/domain"
	membershiphandler "tenancy-control-plane/backend/internal/membership/handler"
)

// readOnlyFields are server-assigned and rejected in a create payload.
var readOnlyFields = []string{"key", "accepted", "created_date", "owner", "membership", "state"}

// createRequest is the client-writable part of an invitation.
type createRequest struct {
	Role         string `json:"role"`
	User         string `json:"user"`
	Organization string `json:"organization"`
}

// Response is the JSON shape of an invitation. Owner is null once the inviting user has been deleted.
type Response struct {
	Key          string                     `json:"key"`
	Accepted     bool                       `json:"accepted"`
	CreatedDate  time.Time                  `json:"created_date"`
	Owner        *string                    `json:"owner"`
	Role         string                     `json:"role"`
	User         *string                    `json:"user"`
	Organization string                     `json:"organization"`
	State        string                     `json:"state"`
	Membership   membershiphandler.Response `json:"membership"`
}

func toResponse(w *domain.WithMembership) Response {
	m := membershiphandler.ToResponse(w.Membership)
	r := Response{
		Key:          w.Invitation.Key,
		Accepted:     w.Invitation.Accepted,
		CreatedDate:  w.Invitation.CreatedAt,
		Role:         m.Role,
		User:         m.User,
		Organization: m.Organization,
		State:        string(w.State()),
		Membership:   m,
	}
	if w.Invitation.OwnerID != "" {
		o := w.Invitation.OwnerID
		r.Owner = &o
	}
	return r
}
