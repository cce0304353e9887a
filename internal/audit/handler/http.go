// Package handler exposes an organization's audit trail over HTTP.
package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"tenancy-control-plane/backend/internal/audit/domain"
	"tenancy-control-plane/backend/internal/platform/apperr"
	"tenancy-control-plane/backend/internal/platform/httpx"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Lister reads audit entries for one organization, newest first.
type Lister interface {
	ListByOrg(ctx context.Context, orgID string, limit, offset int32) ([]*domain.AuditLog, error)
}

// Handler serves the audit log routes.
type Handler struct {
	logs Lister
}

// NewHandler returns an audit Handler.
func NewHandler(logs Lister) *Handler {
	return &Handler{logs: logs}
}

// Response is the JSON shape of an audit entry.
type Response struct {
	ID          string    `json:"id"`
	User        *string   `json:"user"`
	Action      string    `json:"action"`
	Resource    string    `json:"resource"`
	IP          string    `json:"ip"`
	Metadata    string    `json:"metadata,omitempty"`
	CreatedDate time.Time `json:"created_date"`
}

// ListByOrganization handles GET /organizations/{id}/audit-logs?limit=&offset=.
func (h *Handler) ListByOrganization(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if limit < 1 || limit > maxLimit {
		httpx.WriteError(w, apperr.Invalid("limit", "limit must be between 1 and 500"))
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if offset < 0 || offset > math.MaxInt32 {
		httpx.WriteError(w, apperr.Invalid("offset", "offset must be between 0 and 2147483647"))
		return
	}

	list, err := h.logs.ListByOrg(r.Context(), chi.URLParam(r, "id"), int32(limit), int32(offset))
	if err != nil {
		httpx.WriteError(w, apperr.Internal("failed to list audit logs", err))
		return
	}
	out := make([]Response, 0, len(list))
	for _, a := range list {
		item := Response{
			ID:          a.ID,
			Action:      a.Action,
			Resource:    a.Resource,
			IP:          a.IP,
			Metadata:    a.Metadata,
			CreatedDate: a.CreatedAt,
		}
		if a.UserID != "" {
			u := a.UserID
			item.User = &u
		}
		out = append(out, item)
	}
	httpx.WriteOK(w, out)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Invalid(name, name+" must be an integer")
	}
	return n, nil
}
