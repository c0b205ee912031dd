package http

import (
	"context"
	"net/http"
	"time"

	"github.com/cimillas/ticket-booking/internal/app"
)

// HealthChecker is the minimal interface needed by the health endpoint.
type HealthChecker interface {
	Check(ctx context.Context) (app.HealthReport, error)
}

type healthResponse struct {
	Status      string    `json:"status"`
	Database    string    `json:"database"`
	LockBackend string    `json:"lock_backend"`
	Events      int       `json:"events"`
	Bookings    int       `json:"bookings"`
	Timestamp   time.Time `json:"timestamp"`
}

// HealthHandler reports store connectivity, record counts and the lock
// backend in use. It answers 503 when the store is unreachable.
func HealthHandler(svc HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.Check(r.Context())
		status := http.StatusOK
		if err != nil {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, healthResponse{
			Status:      report.Status,
			Database:    report.Database,
			LockBackend: report.LockBackend,
			Events:      report.Events,
			Bookings:    report.Bookings,
			Timestamp:   report.CheckedAt,
		})
	}
}
