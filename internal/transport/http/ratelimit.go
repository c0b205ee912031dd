package http

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const maxTrackedClients = 10000

// RateLimiter keeps one token bucket per client IP. A bucket holds limit
// tokens and refills at limit per window. Buckets idle for a whole window are
// full again, so they are dropped from the table after that long.
type RateLimiter struct {
	limit   int
	window  time.Duration
	message string
	now     func() time.Time

	mu       sync.Mutex
	visitors *expirable.LRU[string, *rate.Limiter]
}

func NewRateLimiter(limit int, window time.Duration, message string) *RateLimiter {
	return newRateLimiter(limit, window, message, maxTrackedClients)
}

func newRateLimiter(limit int, window time.Duration, message string, capacity int) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		window:   window,
		message:  message,
		now:      time.Now,
		visitors: expirable.NewLRU[string, *rate.Limiter](capacity, nil, window),
	}
}

// allow reports whether key may proceed and, if not, how long until it may.
func (l *RateLimiter) allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	limiter, ok := l.visitors.Get(key)
	if !ok {
		limiter = rate.NewLimiter(rate.Every(l.window/time.Duration(l.limit)), l.limit)
	}
	// Re-adding refreshes the idle expiry.
	l.visitors.Add(key, limiter)

	res := limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, l.window
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Middleware rejects over-limit clients with 429 and a Retry-After header.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := l.allow(clientIP(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(w, http.StatusTooManyRequests, codeRateLimited, l.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
