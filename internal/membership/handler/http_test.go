package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"tenancy-control-plane/backend/internal/membership/domain"
	"tenancy-control-plane/backend/internal/platform/apperr"
)

type stubService struct {
	m        map[string]*domain.Membership
	lastRole string
	deleted  []string
}

func (s *stubService) GetMembership(ctx context.Context, id string) (*domain.Membership, error) {
	if m, ok := s.m[id]; ok {
		return m, nil
	}
	return nil, apperr.NotFound("membership not found")
}

func (s *stubService) ListMemberships(ctx context.Context, orgID string) ([]*domain.Membership, error) {
	var out []*domain.Membership
	for _, m := range s.m {
		if m.OrgID == orgID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubService) UpdateRole(ctx context.Context, callerID, id, role string) (*domain.Membership, error) {
	s.lastRole = role
	m, err := s.GetMembership(ctx, id)
	if err != nil {
		return nil, err
	}
	r, err := domain.ParseRole(role)
	if err != nil {
		return nil, apperr.Invalid("role", err.Error())
	}
	m.Role = r
	return m, nil
}

func (s *stubService) DeleteMembership(ctx context.Context, callerID, id string) error {
	if _, err := s.GetMembership(ctx, id); err != nil {
		return err
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func newRouter() (http.Handler, *stubService) {
	joined := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	orphan := domain.NewPendingMembership("m2", "", "o1", domain.RoleWorker)
	svc := &stubService{m: map[string]*domain.Membership{
		"m1": domain.NewOwnerMembership("m1", "u1", "o1", joined),
		"m2": orphan,
	}}
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Get("/memberships/{id}", h.Get)
	r.Patch("/memberships/{id}", h.Update)
	r.Delete("/memberships/{id}", h.Delete)
	r.Get("/organizations/{id}/memberships", h.ListByOrganization)
	return r, svc
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Details string `json:"details"`
	} `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode body %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func TestGet(t *testing.T) {
	h, _ := newRouter()
	rec, env := do(t, h, http.MethodGet, "/memberships/m1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got Response
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("data: %v", err)
	}
	if got.Role != "owner" || !got.IsActive || got.JoinedDate == nil || got.User == nil || *got.User != "u1" {
		t.Errorf("response = %+v", got)
	}

	rec, env = do(t, h, http.MethodGet, "/memberships/missing", "")
	if rec.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Errorf("missing: status = %d, error = %+v", rec.Code, env.Error)
	}
}

func TestGet_DeletedUserRendersNull(t *testing.T) {
	h, _ := newRouter()
	rec, env := do(t, h, http.MethodGet, "/memberships/m2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var raw map[string]any
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		t.Fatalf("data: %v", err)
	}
	if v, ok := raw["user"]; !ok || v != nil {
		t.Errorf("user = %v, want null", v)
	}
	if v, ok := raw["joined_date"]; !ok || v != nil {
		t.Errorf("joined_date = %v, want null", v)
	}
}

func TestListByOrganization(t *testing.T) {
	h, _ := newRouter()
	rec, env := do(t, h, http.MethodGet, "/organizations/o1/memberships", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []Response
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("data: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestUpdate(t *testing.T) {
	h, svc := newRouter()
	rec, env := do(t, h, http.MethodPatch, "/memberships/m2", `{"role":"maintainer"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got Response
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("data: %v", err)
	}
	if got.Role != "maintainer" || svc.lastRole != "maintainer" {
		t.Errorf("role = %q", got.Role)
	}
}

func TestUpdate_ReadOnlyFieldsRejected(t *testing.T) {
	for _, field := range ReadOnlyFields {
		t.Run(field, func(t *testing.T) {
			h, svc := newRouter()
			body := `{"role":"worker","` + field + `":true}`
			rec, env := do(t, h, http.MethodPatch, "/memberships/m1", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" || env.Error.Details != field {
				t.Errorf("error = %+v", env.Error)
			}
			if svc.lastRole != "" {
				t.Error("service should not be called")
			}
		})
	}
}

func TestUpdate_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing role", `{}`},
		{"bad role", `{"role":"admin"}`},
		{"unknown field", `{"role":"worker","color":"red"}`},
		{"empty body", ``},
		{"wrong type", `{"role":5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newRouter()
			rec, _ := do(t, h, http.MethodPatch, "/memberships/m1", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	h, svc := newRouter()
	rec, _ := do(t, h, http.MethodDelete, "/memberships/m1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(svc.deleted) != 1 || svc.deleted[0] != "m1" {
		t.Errorf("deleted = %v", svc.deleted)
	}
	rec, _ = do(t, h, http.MethodDelete, "/memberships/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing: status = %d, want 404", rec.Code)
	}
}
