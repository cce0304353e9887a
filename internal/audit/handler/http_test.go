package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"tenancy-control-plane/backend/internal/audit/domain"
)

type stubLister struct {
	logs       []*domain.AuditLog
	err        error
	lastOrg    string
	lastLimit  int32
	lastOffset int32
}

func (s *stubLister) ListByOrg(ctx context.Context, orgID string, limit, offset int32) ([]*domain.AuditLog, error) {
	s.lastOrg, s.lastLimit, s.lastOffset = orgID, limit, offset
	return s.logs, s.err
}

func serve(l Lister, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/organizations/{id}/audit-logs", NewHandler(l).ListByOrganization)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestListByOrganization(t *testing.T) {
	l := &stubLister{logs: []*domain.AuditLog{
		{ID: "a1", OrgID: "o1", UserID: "u1", Action: domain.ActionOrganizationCreated, Resource: domain.ResourceOrganization, IP: "10.0.0.1", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "a2", OrgID: "o1", Action: domain.ActionMemberRemoved, Resource: domain.ResourceMembership, IP: "unknown"},
	}}
	rec := serve(l, "/organizations/o1/audit-logs?limit=10&offset=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if l.lastOrg != "o1" || l.lastLimit != 10 || l.lastOffset != 5 {
		t.Errorf("ListByOrg(%q, %d, %d)", l.lastOrg, l.lastLimit, l.lastOffset)
	}
	var env struct {
		Data []Response `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data) != 2 {
		t.Fatalf("len = %d, want 2", len(env.Data))
	}
	if env.Data[0].User == nil || *env.Data[0].User != "u1" {
		t.Errorf("user = %v, want u1", env.Data[0].User)
	}
	if env.Data[1].User != nil {
		t.Errorf("user = %v, want null", *env.Data[1].User)
	}
}

func TestListByOrganization_Defaults(t *testing.T) {
	l := &stubLister{}
	rec := serve(l, "/organizations/o1/audit-logs")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if l.lastLimit != defaultLimit || l.lastOffset != 0 {
		t.Errorf("limit/offset = %d/%d", l.lastLimit, l.lastOffset)
	}
}

func TestListByOrganization_BadQuery(t *testing.T) {
	for _, q := range []string{"limit=0", "limit=501", "limit=abc", "offset=-1", "offset=x", "offset=2147483648", "offset=99999999999"} {
		t.Run(q, func(t *testing.T) {
			rec := serve(&stubLister{}, "/organizations/o1/audit-logs?"+q)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestListByOrganization_LargestOffset(t *testing.T) {
	l := &stubLister{}
	rec := serve(l, "/organizations/o1/audit-logs?offset=2147483647")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if l.lastOffset != math.MaxInt32 {
		t.Errorf("offset = %d, want %d", l.lastOffset, math.MaxInt32)
	}
}

func TestListByOrganization_RepoError(t *testing.T) {
	rec := serve(&stubLister{err: errors.New("db down")}, "/organizations/o1/audit-logs")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
