package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"tenancy-control-plane/backend/internal/audit"
	auditdomain "tenancy-control-plane/backend/internal/audit/domain"
	audithandler "tenancy-control-plane/backend/internal/audit/handler"
	healthhandler "tenancy-control-plane/backend/internal/health/handler"
	invitationdomain "tenancy-control-plane/backend/internal/invitation/domain"
	invitationhandler "tenancy-control-plane/backend/internal/invitation/handler"
	invitationrepo "tenancy-control-plane/backend/internal/invitation/repository"
	invitationservice "tenancy-control-plane/backend/internal/invitation/service"
	membershipdomain "tenancy-control-plane/backend/internal/membership/domain"
	membershiphandler "tenancy-control-plane/backend/internal/membership/handler"
	membershipservice "tenancy-control-plane/backend/internal/membership/service"
	orgdomain "tenancy-control-plane/backend/internal/organization/domain"
	orghandler "tenancy-control-plane/backend/internal/organization/handler"
	orgrepo "tenancy-control-plane/backend/internal/organization/repository"
	orgservice "tenancy-control-plane/backend/internal/organization/service"
	"tenancy-control-plane/backend/internal/security"
	"tenancy-control-plane/backend/internal/server/middleware"
	userdomain "tenancy-control-plane/backend/internal/user/domain"
)

// memStore is an in-memory stand-in for the Postgres repositories. It enforces the slug and
// (user, organization) uniqueness constraints and the membership → invitation cascade.
type memStore struct {
	mu          sync.Mutex
	users       map[string]*userdomain.User
	orgs        map[string]*orgdomain.Org
	memberships map[string]*membershipdomain.Membership
	invitations map[string]*invitationdomain.Invitation
	audit       []*auditdomain.AuditLog
}

func newMemStore(userIDs ...string) *memStore {
	s := &memStore{
		users:       map[string]*userdomain.User{},
		orgs:        map[string]*orgdomain.Org{},
		memberships: map[string]*membershipdomain.Membership{},
		invitations: map[string]*invitationdomain.Invitation{},
	}
	for _, id := range userIDs {
		s.users[id] = &userdomain.User{ID: id, Email: id + "@example.com"}
	}
	return s
}

func (s *memStore) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id], nil
}

func (s *memStore) GetOrganizationByID(ctx context.Context, id string) (*orgdomain.Org, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orgs[id]; ok {
		c := *o
		return &c, nil
	}
	return nil, nil
}

func (s *memStore) GetOrganizationBySlug(ctx context.Context, slug string) (*orgdomain.Org, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orgs {
		if o.Slug == slug {
			c := *o
			return &c, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListOrganizations(ctx context.Context) ([]*orgdomain.Org, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*orgdomain.Org{}
	for _, o := range s.orgs {
		c := *o
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (s *memStore) CreateOrganizationWithOwner(ctx context.Context, o *orgdomain.Org, owner *membershipdomain.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.orgs {
		if existing.Slug == o.Slug {
			return orgrepo.ErrSlugTaken
		}
	}
	c := *o
	s.orgs[o.ID] = &c
	m := *owner
	s.memberships[m.ID] = &m
	return nil
}

func (s *memStore) UpdateOrganization(ctx context.Context, o *orgdomain.Org) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[o.ID]; !ok {
		return false, nil
	}
	for id, existing := range s.orgs {
		if id != o.ID && existing.Slug == o.Slug {
			return false, orgrepo.ErrSlugTaken
		}
	}
	c := *o
	s.orgs[o.ID] = &c
	return true, nil
}

func (s *memStore) DeleteOrganization(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[id]; !ok {
		return false, nil
	}
	delete(s.orgs, id)
	for mid, m := range s.memberships {
		if m.OrgID == id {
			s.deleteMembershipLocked(mid)
		}
	}
	return true, nil
}

func (s *memStore) GetMembershipByID(ctx context.Context, id string) (*membershipdomain.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.memberships[id]; ok {
		c := *m
		return &c, nil
	}
	return nil, nil
}

func (s *memStore) ListMembershipsByOrg(ctx context.Context, orgID string) ([]*membershipdomain.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*membershipdomain.Membership{}
	for _, m := range s.memberships {
		if m.OrgID == orgID {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) UpdateRole(ctx context.Context, id string, role membershipdomain.Role) (*membershipdomain.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[id]
	if !ok {
		return nil, nil
	}
	m.Role = role
	c := *m
	return &c, nil
}

func (s *memStore) DeleteMembership(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.memberships[id]; !ok {
		return false, nil
	}
	s.deleteMembershipLocked(id)
	return true, nil
}

func (s *memStore) deleteMembershipLocked(id string) {
	delete(s.memberships, id)
	for key, inv := range s.invitations {
		if inv.MembershipID == id {
			delete(s.invitations, key)
		}
	}
}

func (s *memStore) CreateInvitationWithMembership(ctx context.Context, inv *invitationdomain.Invitation, m *membershipdomain.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.memberships {
		if existing.UserID == m.UserID && existing.OrgID == m.OrgID {
			return invitationrepo.ErrAlreadyMember
		}
	}
	mc, ic := *m, *inv
	s.memberships[m.ID] = &mc
	s.invitations[inv.Key] = &ic
	return nil
}

func (s *memStore) withMembershipLocked(inv *invitationdomain.Invitation) *invitationdomain.WithMembership {
	ic, mc := *inv, *s.memberships[inv.MembershipID]
	return &invitationdomain.WithMembership{Invitation: &ic, Membership: &mc}
}

func (s *memStore) GetInvitationByKey(ctx context.Context, key string) (*invitationdomain.WithMembership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[key]
	if !ok {
		return nil, nil
	}
	return s.withMembershipLocked(inv), nil
}

func (s *memStore) ListInvitationsByOrg(ctx context.Context, orgID string) ([]*invitationdomain.WithMembership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*invitationdomain.WithMembership{}
	for _, inv := range s.invitations {
		if s.memberships[inv.MembershipID].OrgID == orgID {
			out = append(out, s.withMembershipLocked(inv))
		}
	}
	return out, nil
}

func (s *memStore) DeleteInvitation(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invitations[key]; !ok {
		return false, nil
	}
	delete(s.invitations, key)
	return true, nil
}

// memAudit implements the audit repository.
type memAudit struct {
	mu   sync.Mutex
	logs []*auditdomain.AuditLog
}

func (a *memAudit) GetByID(ctx context.Context, id string) (*auditdomain.AuditLog, error) {
	return nil, nil
}

func (a *memAudit) ListByOrg(ctx context.Context, orgID string, limit, offset int32) ([]*auditdomain.AuditLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []*auditdomain.AuditLog{}
	for i := len(a.logs) - 1; i >= 0; i-- {
		if a.logs[i].OrgID == orgID {
			out = append(out, a.logs[i])
		}
	}
	return out, nil
}

func (a *memAudit) Create(ctx context.Context, l *auditdomain.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, l)
	return nil
}

type testAPI struct {
	handler http.Handler
	store   *memStore
	tokens  *security.TokenProvider
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	store := newMemStore("alice", "bob")
	auditRepo := &memAudit{}
	auditLogger := audit.NewLogger(auditRepo, middleware.ClientIP)

	orgSvc := orgservice.NewOrganizationService(store, store, auditLogger, nil)
	membershipSvc := membershipservice.NewMembershipService(store, store, auditLogger)
	invitationSvc := invitationservice.NewInvitationService(store, store, store, nil, auditLogger, nil, invitationservice.Options{})

	h := NewRouter(HTTPDeps{
		Organizations:  orghandler.NewHandler(orgSvc),
		Memberships:    membershiphandler.NewHandler(membershipSvc),
		Invitations:    invitationhandler.NewHandler(invitationSvc),
		AuditLogs:      audithandler.NewHandler(auditRepo),
		Health:         healthhandler.NewChecker(nil),
		Tokens:         tokens,
		AllowedOrigins: []string{"*"},
	})
	return &testAPI{handler: h, store: store, tokens: tokens}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Details string `json:"details"`
	} `json:"error"`
}

func (a *testAPI) call(t *testing.T, method, path, body, userID string) (int, apiResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "203.0.113.7:40000"
	if userID != "" {
		token, _, err := a.tokens.IssueAccess(userID)
		if err != nil {
			t.Fatalf("IssueAccess: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	var resp apiResponse
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, resp
}

func decode(t *testing.T, raw json.RawMessage, v any) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func TestRouter_Healthz(t *testing.T) {
	api := newTestAPI(t)
	code, _ := api.call(t, http.MethodGet, "/healthz", "", "")
	if code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
}

func TestRouter_ProtectedRoutesRequireCaller(t *testing.T) {
	api := newTestAPI(t)
	tests := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/v1/organizations", `{"slug":"acme"}`},
		{http.MethodPatch, "/api/v1/organizations/x", `{"name":"n"}`},
		{http.MethodDelete, "/api/v1/organizations/x", ""},
		{http.MethodPatch, "/api/v1/memberships/x", `{"role":"worker"}`},
		{http.MethodDelete, "/api/v1/memberships/x", ""},
		{http.MethodPost, "/api/v1/invitations", `{"role":"worker"}`},
		{http.MethodDelete, "/api/v1/invitations/x", ""},
		{http.MethodGet, "/api/v1/organizations/x/audit-logs", ""},
		{http.MethodGet, "/api/v1/organizations/x/invitations", ""},
		{http.MethodGet, "/api/v1/invitations/x", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			code, resp := api.call(t, tt.method, tt.path, tt.body, "")
			if code != http.StatusUnauthorized || resp.Error == nil || resp.Error.Code != "UNAUTHORIZED" {
				t.Errorf("status = %d, error = %+v; want 401 UNAUTHORIZED", code, resp.Error)
			}
		})
	}
}

func TestRouter_InvalidTokenIsAnonymous(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/organizations", strings.NewReader(`{"slug":"acme"}`))
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRouter_OrganizationInvitationFlow(t *testing.T) {
	api := newTestAPI(t)

	code, resp := api.call(t, http.MethodPost, "/api/v1/organizations", `{"slug":"acme","name":"Acme"}`, "alice")
	if code != http.StatusCreated {
		t.Fatalf("create org: status = %d, error = %+v", code, resp.Error)
	}
	var org orghandler.CreatedResponse
	decode(t, resp.Data, &org)
	if org.Owner == nil || *org.Owner != "alice" || org.OwnerMembership.Role != "owner" || !org.OwnerMembership.IsActive {
		t.Fatalf("created org = %+v", org)
	}

	code, resp = api.call(t, http.MethodPost, "/api/v1/organizations", `{"slug":"acme"}`, "bob")
	if code != http.StatusConflict || resp.Error.Details != "slug" {
		t.Fatalf("duplicate slug: status = %d, error = %+v", code, resp.Error)
	}

	body := `{"role":"worker","user":"bob","organization":"` + org.ID + `"}`
	code, resp = api.call(t, http.MethodPost, "/api/v1/invitations", body, "alice")
	if code != http.StatusCreated {
		t.Fatalf("create invitation: status = %d, error = %+v", code, resp.Error)
	}
	var inv invitationhandler.Response
	decode(t, resp.Data, &inv)
	if inv.Owner == nil || *inv.Owner != "alice" || inv.Role != "worker" {
		t.Errorf("invitation = %+v", inv)
	}
	if !inv.Membership.IsActive || inv.Membership.JoinedDate == nil || !inv.Membership.JoinedDate.Equal(inv.CreatedDate) {
		t.Errorf("membership = %+v, want active with joined_date == created_date", inv.Membership)
	}

	code, resp = api.call(t, http.MethodPost, "/api/v1/invitations", body, "alice")
	if code != http.StatusConflict || resp.Error.Code != "CONFLICT" {
		t.Fatalf("repeat invitation: status = %d, error = %+v", code, resp.Error)
	}

	code, _ = api.call(t, http.MethodGet, "/api/v1/invitations/"+inv.Key, "", "")
	if code != http.StatusUnauthorized {
		t.Errorf("anonymous invitation read: status = %d, want 401", code)
	}
	code, resp = api.call(t, http.MethodGet, "/api/v1/organizations/"+org.ID+"/invitations", "", "alice")
	if code != http.StatusOK {
		t.Fatalf("list invitations: status = %d", code)
	}
	var invs []invitationhandler.Response
	decode(t, resp.Data, &invs)
	if len(invs) != 1 || invs[0].Key != inv.Key {
		t.Errorf("invitations = %+v, want the one created", invs)
	}

	code, resp = api.call(t, http.MethodGet, "/api/v1/organizations/"+org.ID+"/memberships", "", "")
	if code != http.StatusOK {
		t.Fatalf("list memberships: status = %d", code)
	}
	var members []membershiphandler.Response
	decode(t, resp.Data, &members)
	if len(members) != 2 {
		t.Fatalf("memberships = %d, want 2", len(members))
	}

	code, resp = api.call(t, http.MethodPatch, "/api/v1/memberships/"+inv.Membership.ID, `{"is_active":false}`, "alice")
	if code != http.StatusBadRequest || resp.Error.Details != "is_active" {
		t.Errorf("write is_active: status = %d, error = %+v", code, resp.Error)
	}
	code, _ = api.call(t, http.MethodPatch, "/api/v1/memberships/"+inv.Membership.ID, `{"role":"supervisor"}`, "alice")
	if code != http.StatusOK {
		t.Errorf("update role: status = %d", code)
	}

	code, _ = api.call(t, http.MethodDelete, "/api/v1/memberships/"+inv.Membership.ID, "", "alice")
	if code != http.StatusNoContent {
		t.Fatalf("delete membership: status = %d", code)
	}
	code, _ = api.call(t, http.MethodGet, "/api/v1/invitations/"+inv.Key, "", "alice")
	if code != http.StatusNotFound {
		t.Errorf("invitation after membership deletion: status = %d, want 404", code)
	}

	code, resp = api.call(t, http.MethodGet, "/api/v1/organizations/"+org.ID+"/audit-logs", "", "alice")
	if code != http.StatusOK {
		t.Fatalf("audit logs: status = %d", code)
	}
	var logs []audithandler.Response
	decode(t, resp.Data, &logs)
	if len(logs) == 0 {
		t.Fatal("no audit entries recorded")
	}
	for _, l := range logs {
		if l.IP != "203.0.113.7" {
			t.Errorf("audit %s ip = %q, want client address", l.Action, l.IP)
		}
	}
	if logs[0].Action != auditdomain.ActionMemberRemoved {
		t.Errorf("latest audit action = %q, want %q", logs[0].Action, auditdomain.ActionMemberRemoved)
	}
}

func TestRouter_InvitationUnknownReferences(t *testing.T) {
	api := newTestAPI(t)
	tests := []struct {
		name, caller, body, details string
	}{
		{"unknown user", "alice", `{"role":"worker","user":"ghost","organization":"nowhere"}`, "user"},
		{"unknown caller", "mallory", `{"role":"worker","user":"bob","organization":"nowhere"}`, "owner"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := api.call(t, http.MethodPost, "/api/v1/invitations", tt.body, tt.caller)
			if code != http.StatusBadRequest || resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
				t.Fatalf("status = %d, error = %+v", code, resp.Error)
			}
			if resp.Error.Details != tt.details {
				t.Errorf("details = %q, want %q", resp.Error.Details, tt.details)
			}
		})
	}
}
