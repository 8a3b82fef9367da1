package http

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/maputo/user-service/internal/observability"
	apperrors "github.com/maputo/user-service/pkg/util/errorutil"
)

const (
	// TooManyLoginsMessage answers callers over the login rate.
	TooManyLoginsMessage = "Too many login attempts. Please try again later"

	limiterCapacity = 10_000
	limiterIdleTTL  = 10 * time.Minute
)

// LoginRateLimiter throttles login requests per client IP. Idle limiters age
// out of a bounded cache.
type LoginRateLimiter struct {
	mu       sync.Mutex
	limiters *ristretto.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
	metrics  *observability.Metrics
}

// NewLoginRateLimiter allows perMinute requests per IP with the given burst.
// A non-positive perMinute disables limiting.
func NewLoginRateLimiter(perMinute, burst int, metrics *observability.Metrics) (*LoginRateLimiter, error) {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, *rate.Limiter]{
		NumCounters:        limiterCapacity * 10,
		MaxCost:            limiterCapacity,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &LoginRateLimiter{limiters: cache, limit: limit, burst: burst, metrics: metrics}, nil
}

// Handle rejects the request with 429 and Retry-After once the IP's budget is spent.
func (l *LoginRateLimiter) Handle(c *fiber.Ctx) error {
	reservation := l.limiterFor(c.IP()).Reserve()
	if delay := reservation.Delay(); delay > 0 {
		reservation.Cancel()
		l.metrics.RecordRateLimited()
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(delay.Seconds()))))
		return apperrors.NewTooManyRequests(TooManyLoginsMessage)
	}
	return c.Next()
}

// Close stops the cache's background goroutines.
func (l *LoginRateLimiter) Close() {
	l.limiters.Close()
}

func (l *LoginRateLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
	}
	l.limiters.SetWithTTL(ip, limiter, 1, limiterIdleTTL)
	l.limiters.Wait()
	return limiter
}
