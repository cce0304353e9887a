package handler

import (
	"time"

	membershiphandler "tenancy-control-plane/backend/internal/membership/handler"
	"tenancy-control-plane/backend/internal/organization/domain"
	"tenancy-control-plane/backend/internal/organization/service"
)

// readOnlyFields are server-controlled. Ownership transfer is not supported.
var readOnlyFields = []string{"id", "created_date", "updated_date", "owner"}

type createRequest struct {
	Slug        string         `json:"slug"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Contact     map[string]any `json:"contact"`
}

type updateRequest struct {
	Slug        *string         `json:"slug"`
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Contact     *map[string]any `json:"contact"`
}

func (r updateRequest) toInput() service.UpdateOrganizationInput {
	return service.UpdateOrganizationInput{
		Slug:        r.Slug,
		Name:        r.Name,
		Description: r.Description,
		Contact:     r.Contact,
	}
}

// Response is the JSON shape of an organization. Owner is null once the owner has been deleted.
type Response struct {
	ID          string         `json:"id"`
	Slug        string         `json:"slug"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Contact     map[string]any `json:"contact"`
	Owner       *string        `json:"owner"`
	CreatedDate time.Time      `json:"created_date"`
	UpdatedDate time.Time      `json:"updated_date"`
}

// CreatedResponse adds the owner membership created with the organization.
type CreatedResponse struct {
	Response
	OwnerMembership membershiphandler.Response `json:"owner_membership"`
}

func toResponse(o *domain.Org) Response {
	r := Response{
		ID:          o.ID,
		Slug:        o.Slug,
		Name:        o.Name,
		Description: o.Description,
		Contact:     o.Contact,
		CreatedDate: o.CreatedAt,
		UpdatedDate: o.UpdatedAt,
	}
	if r.Contact == nil {
		r.Contact = map[string]any{}
	}
	if o.OwnerID != "" {
		owner := o.OwnerID
		r.Owner = &owner
	}
	return r
}
