// Package handler exposes organizations over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	membershiphandler "tenancy-control-plane/backend/internal/membership/handler"
	"tenancy-control-plane/backend/internal/organization/domain"
	"tenancy-control-plane/backend/internal/organization/service"
	"tenancy-control-plane/backend/internal/platform/apperr"
	"tenancy-control-plane/backend/internal/platform/httpx"
	"tenancy-control-plane/backend/internal/server/middleware"
)

// Service is the organization service used by the handler.
type Service interface {
	CreateOrganization(ctx context.Context, ownerID string, in service.CreateOrganizationInput) (*service.OrganizationWithOwner, error)
	GetOrganization(ctx context.Context, id string) (*domain.Org, error)
	ListOrganizations(ctx context.Context) ([]*domain.Org, error)
	UpdateOrganization(ctx context.Context, callerID, id string, in service.UpdateOrganizationInput) (*domain.Org, error)
	DeleteOrganization(ctx context.Context, callerID, id string) error
}

// Handler serves the organization routes.
type Handler struct {
	svc Service
}

// NewHandler returns an organization Handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /organizations. The caller becomes the owner.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpx.WriteError(w, apperr.New(apperr.CodeUnauthenticated, "missing or invalid authorization"))
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req, readOnlyFields...); err != nil {
		httpx.WriteError(w, err)
		return
	}
	res, err := h.svc.CreateOrganization(r.Context(), callerID, service.CreateOrganizationInput{
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		Contact:     req.Contact,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteCreated(w, CreatedResponse{
		Response:        toResponse(res.Org),
		OwnerMembership: membershiphandler.ToResponse(res.Owner),
	})
}

// List handles GET /organizations.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListOrganizations(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	out := make([]Response, 0, len(list))
	for _, o := range list {
		out = append(out, toResponse(o))
	}
	httpx.WriteOK(w, out)
}

// Get handles GET /organizations/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.GetOrganization(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteOK(w, toResponse(o))
}

// Update handles PATCH /organizations/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetUserID(r.Context())
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req, readOnlyFields...); err != nil {
		httpx.WriteError(w, err)
		return
	}
	o, err := h.svc.UpdateOrganization(r.Context(), callerID, chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteOK(w, toResponse(o))
}

// Delete handles DELETE /organizations/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetUserID(r.Context())
	if err := h.svc.DeleteOrganization(r.Context(), callerID, chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteNoContent(w)
}
