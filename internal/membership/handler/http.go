// Package handler exposes memberships over HTTP. Only role is writable.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tenancy-control-plane/backend/internal/membership/domain"
	"tenancy-control-plane/backend/internal/platform/apperr"
	"tenancy-control-plane/backend/internal/platform/httpx"
	"tenancy-control-plane/backend/internal/server/middleware"
)

// Service is the membership service used by the handler.
type Service interface {
	GetMembership(ctx context.Context, id string) (*domain.Membership, error)
	ListMemberships(ctx context.Context, orgID string) ([]*domain.Membership, error)
	UpdateRole(ctx context.Context, callerID, id, role string) (*domain.Membership, error)
	DeleteMembership(ctx context.Context, callerID, id string) error
}

// Handler serves the membership routes.
type Handler struct {
	svc Service
}

// NewHandler returns a membership Handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Get handles GET /memberships/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.GetMembership(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteOK(w, ToResponse(m))
}

// ListByOrganization handles GET /organizations/{id}/memberships.
func (h *Handler) ListByOrganization(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListMemberships(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	out := make([]Response, 0, len(list))
	for _, m := range list {
		out = append(out, ToResponse(m))
	}
	httpx.WriteOK(w, out)
}

// Update handles PATCH /memberships/{id}. Writing any field other than role is rejected.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetUserID(r.Context())
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req, ReadOnlyFields...); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if req.Role == nil {
		httpx.WriteError(w, apperr.Invalid("role", "role is required"))
		return
	}
	m, err := h.svc.UpdateRole(r.Context(), callerID, chi.URLParam(r, "id"), *req.Role)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteOK(w, ToResponse(m))
}

// Delete handles DELETE /memberships/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetUserID(r.Context())
	if err := h.svc.DeleteMembership(r.Context(), callerID, chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteNoContent(w)
}
