// Package lock grants time-bounded, token-owned leases on named resources.
//
// A shared Redis store provides mutual exclusion across every process that
// points at it. When it is not configured or not reachable, leases come from an
// in-process table instead; those only exclude callers inside the same process,
// so several instances running on the fallback can still overlap. Callers must
// keep their own storage-level guards (see the version check on event
// inventory) for that case and for leases that expire mid-operation.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned by WithLock when the lease could not be obtained
// within the wait budget.
var ErrUnavailable = errors.New("lock unavailable")

// Backend is the storage contract the Manager needs: an atomic create-if-absent
// with expiry, and an atomic delete-if-owner.
type Backend interface {
	Name() string
	SetIfAbsent(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, token string) (bool, error)
}

// SharedBackend is a Backend reachable by other processes. Available reports
// whether it can currently serve requests.
type SharedBackend interface {
	Backend
	Available(ctx context.Context) bool
}

// Lease is a granted lock. Only the holder of Token may release it. Every
// lease holds the in-process slot; it also holds the shared slot when Backend
// names the shared store.
type Lease struct {
	Name      string
	Key       string
	Token     string
	Backend   string
	ExpiresAt time.Time

	local  Backend
	shared Backend
}
