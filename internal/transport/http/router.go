package http

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Services are the application services behind the routes.
type Services struct {
	Events   EventService
	Bookings BookingService
	Health   HealthChecker
}

// RouterOptions configures the middleware around the routes.
type RouterOptions struct {
	Logger      zerolog.Logger
	CORSOrigins []string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Limiters are nil when rate limiting is disabled.
	GlobalLimiter  *RateLimiter
	BookingLimiter *RateLimiter
}

// Default rate limits: 100 requests per 15 minutes per client overall, and 5
// booking attempts per minute per client.
const (
	GlobalRateLimit    = 100
	GlobalRateWindow   = 15 * time.Minute
	BookingRateLimit   = 5
	BookingRateWindow  = time.Minute
	globalLimitMessage = "too many requests, please try again later"
	bookLimitMessage   = "too many booking attempts, please try again later"
)

func NewGlobalRateLimiter() *RateLimiter {
	return NewRateLimiter(GlobalRateLimit, GlobalRateWindow, globalLimitMessage)
}

func NewBookingRateLimiter() *RateLimiter {
	return NewRateLimiter(BookingRateLimit, BookingRateWindow, bookLimitMessage)
}

// NewRouter wires the API routes and wraps them, outermost first, in panic
// recovery, request logging, CORS and the global rate limit.
func NewRouter(svc Services, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /health", HealthHandler(svc.Health))
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	var book http.Handler = HandleBook(svc.Bookings)
	if opts.BookingLimiter != nil {
		book = opts.BookingLimiter.Middleware(book)
	}
	mux.Handle("POST /api/book", book)
	mux.Handle("GET /api/bookings", HandleListBookings(svc.Bookings))
	mux.Handle("POST /api/events", HandleCreateEvent(svc.Events))
	mux.Handle("GET /api/events/{id}", HandleGetEvent(svc.Events))
	mux.Handle("/", NotFoundHandler())

	var handler http.Handler = mux
	if opts.GlobalLimiter != nil {
		handler = opts.GlobalLimiter.Middleware(handler)
	}
	handler = CORS(opts.CORSOrigins, handler)
	handler = RequestLogger(handler, opts.Logger)
	return Recover(handler, opts.Logger)
}
