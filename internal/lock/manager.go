package lock

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	keyPrefix = "lock:"

	DefaultTTL  = 30 * time.Second
	DefaultWait = 5 * time.Second

	pollMin        = 50 * time.Millisecond
	pollJitter     = 50 * time.Millisecond
	releaseTimeout = 2 * time.Second
)

// Manager acquires and releases leases, preferring the shared backend and
// falling back to the in-process table when it is missing or unreachable.
type Manager struct {
	shared  SharedBackend
	local   *MemoryBackend
	logger  zerolog.Logger
	metrics *metrics
}

type Option func(*Manager)

// WithSharedBackend configures the cross-process backend.
func WithSharedBackend(b SharedBackend) Option {
	return func(m *Manager) {
		m.shared = b
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager returns a Manager that uses local whenever no shared backend can serve.
func NewManager(local *MemoryBackend, opts ...Option) *Manager {
	if local == nil {
		local = NewMemoryBackend(nil)
	}
	m := &Manager{
		local:  local,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.metrics = newMetrics(m.logger)
	return m
}

// ActiveBackend reports which backend the next acquisition would use for
// cross-process exclusion.
func (m *Manager) ActiveBackend(ctx context.Context) string {
	if shared := m.pickShared(ctx); shared != nil {
		return shared.Name()
	}
	return m.local.Name()
}

// pickShared returns the shared backend when it is configured and reachable.
func (m *Manager) pickShared(ctx context.Context) Backend {
	if m.shared != nil && m.shared.Available(ctx) {
		return m.shared
	}
	return nil
}

// Acquire polls for a lease on name until it is granted or wait elapses.
// It returns a nil lease and nil error when the wait is exhausted or a backend
// fails; only context cancellation is reported as an error.
//
// The in-process slot is always taken first and the shared slot second, so
// callers in one process exclude each other whichever store served the
// other lease.
func (m *Manager) Acquire(ctx context.Context, name string, ttl, wait time.Duration) (*Lease, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if wait < 0 {
		wait = 0
	}

	shared := m.pickShared(ctx)
	backendName := m.local.Name()
	switch {
	case shared != nil:
		backendName = shared.Name()
	case m.shared != nil:
		m.logger.Warn().Str("lock", name).Msg("shared lock backend unreachable, falling back to in-process locks")
	default:
		m.logger.Warn().Str("lock", name).Msg("using in-process locks, not safe with multiple instances")
	}

	key := keyPrefix + name
	token := uuid.NewString()
	start := time.Now()
	deadline := start.Add(wait)

	for {
		if err := ctx.Err(); err != nil {
			m.metrics.recordAcquire(ctx, backendName, outcomeCanceled, time.Since(start))
			return nil, err
		}

		granted := time.Now()
		ok, err := m.trySlots(ctx, shared, key, token, ttl)
		if err != nil {
			m.logger.Error().Err(err).Str("lock", key).Str("backend", backendName).Msg("error acquiring lock")
			m.metrics.recordAcquire(ctx, backendName, outcomeError, time.Since(start))
			return nil, nil
		}
		if ok {
			m.metrics.recordAcquire(ctx, backendName, outcomeAcquired, time.Since(start))
			return &Lease{
				Name:      name,
				Key:       key,
				Token:     token,
				Backend:   backendName,
				ExpiresAt: granted.Add(ttl),
				local:     m.local,
				shared:    shared,
			}, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			m.metrics.recordAcquire(ctx, backendName, outcomeTimeout, time.Since(start))
			return nil, nil
		}
		delay := pollInterval()
		if delay > remaining {
			delay = remaining
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.metrics.recordAcquire(ctx, backendName, outcomeCanceled, time.Since(start))
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// trySlots makes one attempt at the in-process slot and, when shared is set,
// the shared slot. The in-process slot is given back if the shared one is
// refused or fails.
func (m *Manager) trySlots(ctx context.Context, shared Backend, key, token string, ttl time.Duration) (bool, error) {
	ok, err := m.local.SetIfAbsent(ctx, key, token, ttl)
	if err != nil || !ok || shared == nil {
		return ok, err
	}
	ok, err = shared.SetIfAbsent(ctx, key, token, ttl)
	if err != nil || !ok {
		_, _ = m.local.CompareAndDelete(context.WithoutCancel(ctx), key, token)
	}
	return ok, err
}

// Release deletes every slot the lease still owns. It reports false when
// someone else holds a slot now or it was already gone.
func (m *Manager) Release(ctx context.Context, lease *Lease) (bool, error) {
	if lease == nil || lease.local == nil {
		return false, nil
	}

	owned := true
	var releaseErr error
	if lease.shared != nil {
		ok, err := lease.shared.CompareAndDelete(ctx, lease.Key, lease.Token)
		if err != nil {
			releaseErr = err
		}
		owned = ok
	}
	// The in-process slot goes even when the shared release failed.
	ok, err := lease.local.CompareAndDelete(context.WithoutCancel(ctx), lease.Key, lease.Token)
	if err != nil && releaseErr == nil {
		releaseErr = err
	}
	owned = owned && ok

	if releaseErr != nil {
		m.logger.Error().Err(releaseErr).Str("lock", lease.Key).Str("backend", lease.Backend).Msg("error releasing lock")
		m.metrics.recordRelease(ctx, lease.Backend, outcomeError)
		return false, releaseErr
	}
	if !owned {
		m.logger.Warn().Str("lock", lease.Key).Str("backend", lease.Backend).Msg("lock no longer owned at release")
		m.metrics.recordRelease(ctx, lease.Backend, outcomeNotOwner)
		return false, nil
	}
	m.metrics.recordRelease(ctx, lease.Backend, outcomeReleased)
	return true, nil
}

// WithLock runs fn while holding the lease on name. fn gets a context that
// ends when the lease expires. The lease is released on every return path.
func (m *Manager) WithLock(ctx context.Context, name string, ttl, wait time.Duration, fn func(ctx context.Context) error) error {
	lease, err := m.Acquire(ctx, name, ttl, wait)
	if err != nil {
		return err
	}
	if lease == nil {
		return fmt.Errorf("%w: %s", ErrUnavailable, name)
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		_, _ = m.Release(releaseCtx, lease)
	}()

	leaseCtx, cancel := context.WithDeadline(ctx, lease.ExpiresAt)
	defer cancel()
	return fn(leaseCtx)
}

// pollInterval is uniform in [50ms, 100ms).
func pollInterval() time.Duration {
	return pollMin + rand.N(pollJitter)
}
