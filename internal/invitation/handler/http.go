// Package handler exposes invitations over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tenancy-control-plane/backend/internal/invitation/domain"
	"tenancy-control-plane/backend/internal/invitation/service"
	"tenancy-control-plane/backend/internal/platform/apperr"
	"tenancy-control-plane/backend/internal/platform/httpx"
	"tenancy-control-plane/backend/internal/server/middleware"
)

// Service is the invitation service used by the handler.
type Service interface {
	CreateInvitation(ctx context.Context, ownerID string, in service.CreateInvitationInput) (*domain.WithMembership, error)
	GetInvitation(ctx context.Context, key string) (*domain.WithMembership, error)
	ListInvitations(ctx context.Context, orgID string) ([]*domain.WithMembership, error)
	DeleteInvitation(ctx context.Context, callerID, key string) error
}

// Handler serves the invitation routes.
type Handler struct {
	svc Service
}

// NewHandler returns an invitation Handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /invitations. The caller becomes the invitation owner.
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
	inv, err := h.svc.CreateInvitation(r.Context(), callerID, service.CreateInvitationInput{
		Role:   req.Role,
		UserID: req.User,
		OrgID:  req.Organization,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteCreated(w, toResponse(inv))
}

// Get handles GET /invitations/{key}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.GetInvitation(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteOK(w, toResponse(inv))
}

// ListByOrganization handles GET /organizations/{id}/invitations.
func (h *Handler) ListByOrganization(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListInvitations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	out := make([]Response, 0, len(list))
	for _, inv := range list {
		out = append(out, toResponse(inv))
	}
	httpx.WriteOK(w, out)
}

// Delete handles DELETE /invitations/{key}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetUserID(r.Context())
	if err := h.svc.DeleteInvitation(r.Context(), callerID, chi.URLParam(r, "key")); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteNoContent(w)
}
