package middleware

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"tenancy-control-plane/backend/internal/telemetry"
)

// EventHTTPRequest is the event type emitted once per served request.
const EventHTTPRequest = "http_request"

// RequestEvents emits an http_request event after each request. Best-effort: the emit runs
// asynchronously and failures are only logged. If emitter is nil, the middleware no-ops.
// skipPaths is the set of URL paths to not emit (e.g. /healthz).
func RequestEvents(emitter telemetry.EventEmitter, skipPaths map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if emitter == nil || skipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			userID, _ := GetUserID(r.Context())
			telemetry.EmitAsync(emitter, r.Context(), &telemetry.Event{
				Type:   EventHTTPRequest,
				UserID: userID,
				Attributes: map[string]string{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status_code": strconv.Itoa(status),
					"duration_ms": strconv.FormatInt(time.Since(start).Milliseconds(), 10),
					"client_ip":   ClientIP(r.Context()),
					"request_id":  chimw.GetReqID(r.Context()),
				},
				CreatedAt: start.UTC(),
			})
		})
	}
}
