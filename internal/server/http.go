// Package server assembles the HTTP API router and the gRPC health server.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithandler "tenancy-control-plane/backend/internal/audit/handler"
	invitationhandler "tenancy-control-plane/backend/internal/invitation/handler"
	membershiphandler "tenancy-control-plane/backend/internal/membership/handler"
	orghandler "tenancy-control-plane/backend/internal/organization/handler"
	"tenancy-control-plane/backend/internal/server/middleware"
	"tenancy-control-plane/backend/internal/telemetry"
)

// HTTPDeps holds the handlers and cross-cutting dependencies of the HTTP API.
type HTTPDeps struct {
	Organizations *orghandler.Handler
	Memberships   *membershiphandler.Handler
	Invitations   *invitationhandler.Handler
	// AuditLogs is optional; when nil the audit-logs route is not mounted.
	AuditLogs *audithandler.Handler
	// Health serves /healthz. When nil, /healthz always reports serving.
	Health http.Handler
	// Tokens verifies bearer tokens. When nil, every write route answers 401.
	Tokens middleware.TokenValidator
	// Events receives one http_request event per request. Optional.
	Events         telemetry.EventEmitter
	AllowedOrigins []string
	// AccessLog enables chi's request logger.
	AccessLog bool
}

// NewRouter returns the HTTP handler serving /healthz and /api/v1.
func NewRouter(d HTTPDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.ClientAddr)
	if d.AccessLog {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(d.AllowedOrigins))
	r.Use(middleware.RequestEvents(d.Events, map[string]bool{"/healthz": true}))

	health := d.Health
	if health == nil {
		health = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	}
	r.Method(http.MethodGet, "/healthz", health)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Authenticate(d.Tokens))

		api.Route("/organizations", func(orgs chi.Router) {
			orgs.Get("/", d.Organizations.List)
			orgs.Get("/{id}", d.Organizations.Get)
			orgs.Get("/{id}/memberships", d.Memberships.ListByOrganization)
			orgs.With(middleware.RequireUser).Get("/{id}/invitations", d.Invitations.ListByOrganization)
			if d.AuditLogs != nil {
				orgs.With(middleware.RequireUser).Get("/{id}/audit-logs", d.AuditLogs.ListByOrganization)
			}
			orgs.Group(func(w chi.Router) {
				w.Use(middleware.RequireUser)
				w.Post("/", d.Organizations.Create)
				w.Patch("/{id}", d.Organizations.Update)
				w.Delete("/{id}", d.Organizations.Delete)
			})
		})

		api.Route("/memberships", func(ms chi.Router) {
			ms.Get("/{id}", d.Memberships.Get)
			ms.Group(func(w chi.Router) {
				w.Use(middleware.RequireUser)
				w.Patch("/{id}", d.Memberships.Update)
				w.Delete("/{id}", d.Memberships.Delete)
			})
		})

		api.Route("/invitations", func(inv chi.Router) {
			inv.Use(middleware.RequireUser)
			inv.Get("/{key}", d.Invitations.Get)
			inv.Post("/", d.Invitations.Create)
			inv.Delete("/{key}", d.Invitations.Delete)
		})
	})
	return r
}
