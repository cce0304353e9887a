// Package handler reports readiness over HTTP (/healthz) and through the standard
// grpc.health.v1.Health service.
package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"tenancy-control-plane/backend/internal/platform/httpx"
)

const pingTimeout = 2 * time.Second

// Pinger checks connectivity (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Checker derives serving status from the database. A nil pinger is always serving.
type Checker struct {
	pinger Pinger
}

// NewChecker returns a Checker backed by pinger.
func NewChecker(pinger Pinger) *Checker {
	return &Checker{pinger: pinger}
}

// Check returns nil when the service can serve requests.
func (c *Checker) Check(ctx context.Context) error {
	if c.pinger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.pinger.PingContext(ctx)
}

// Status maps Check onto the gRPC health status.
func (c *Checker) Status(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	if err := c.Check(ctx); err != nil {
		log.Printf("health: database ping failed: %v", err)
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}

type statusResponse struct {
	Status string `json:"status"`
}

// ServeHTTP handles GET /healthz: 200 when serving, 503 otherwise.
func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := c.Status(r.Context())
	code := http.StatusOK
	if st != healthpb.HealthCheckResponse_SERVING {
		code = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, code, statusResponse{Status: st.String()})
}

// Update sets the overall ("") service status on srv from a single check.
func (c *Checker) Update(ctx context.Context, srv *health.Server) {
	srv.SetServingStatus("", c.Status(ctx))
}

// Watch calls Update every interval until ctx is done, then marks srv as shutting down.
func (c *Checker) Watch(ctx context.Context, srv *health.Server, interval time.Duration) {
	c.Update(ctx, srv)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			srv.Shutdown()
			return
		case <-t.C:
			c.Update(ctx, srv)
		}
	}
}
