package httpx

import (
	"math"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/eduflowhub/eduflow/pkg/apperr"
	"github.com/eduflowhub/eduflow/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig is a token bucket refilled at RequestsPerWindow/Window.
type RateLimitConfig struct {
	// Name labels log lines; the profiles below set it.
	Name              string
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// Route profiles. Each can be overridden with RATELIMIT_{NAME}_REQUESTS,
// RATELIMIT_{NAME}_WINDOW_SEC and RATELIMIT_{NAME}_BURST.
var (
	// StrictLimit guards credential and code endpoints: register, login,
	// refresh, verify-email and resend-verification.
	StrictLimit = RateLimitConfig{Name: "strict", RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit covers authenticated profile and admin calls.
	ModerateLimit = RateLimitConfig{Name: "moderate", RequestsPerWindow: 20, Window: time.Minute, Burst: 20}

	// LenientLimit covers health checks and the Google redirect.
	LenientLimit = RateLimitConfig{Name: "lenient", RequestsPerWindow: 100, Window: time.Minute, Burst: 100}

	PublicLimit = RateLimitConfig{Name: "public", RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
)

func init() {
	StrictLimit = ParseRateLimitFromEnv("STRICT", StrictLimit)
	ModerateLimit = ParseRateLimitFromEnv("MODERATE", ModerateLimit)
	LenientLimit = ParseRateLimitFromEnv("LENIENT", LenientLimit)
	PublicLimit = ParseRateLimitFromEnv("PUBLIC", PublicLimit)
}

// ParseRateLimitFromEnv applies RATELIMIT_{prefix}_* overrides to def.
// Missing, malformed or non-positive values keep the default.
func ParseRateLimitFromEnv(prefix string, def RateLimitConfig) RateLimitConfig {
	cfg := def
	if n, ok := positiveEnv("RATELIMIT_" + prefix + "_REQUESTS"); ok {
		cfg.RequestsPerWindow = n
	}
	if n, ok := positiveEnv("RATELIMIT_" + prefix + "_WINDOW_SEC"); ok {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnv("RATELIMIT_" + prefix + "_BURST"); ok {
		cfg.Burst = n
	}
	return cfg
}

func positiveEnv(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// buckets holds one token bucket per key. Keys idle for longer than
// idleAfter are evicted on the next sweep.
type buckets struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idleAfter time.Duration
	nextSweep time.Time
}

func newBuckets(cfg RateLimitConfig) *buckets {
	// With Burst equal to RequestsPerWindow a bucket idle for one Window is
	// full again, so dropping it loses nothing. Sweep at most once a minute.
	idle := max(cfg.Window, time.Minute)
	return &buckets{
		visitors:  make(map[string]*visitor),
		limit:     rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()),
		burst:     cfg.Burst,
		idleAfter: idle,
		nextSweep: time.Now().Add(idle),
	}
}

// take consumes a token for key. When none is left it reports how long
// until one will be.
func (b *buckets) take(key string, now time.Time) (ok bool, remaining int, retryAfter time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.After(b.nextSweep) {
		for k, v := range b.visitors {
			if now.Sub(v.lastSeen) > b.idleAfter {
				delete(b.visitors, k)
			}
		}
		b.nextSweep = now.Add(b.idleAfter)
	}

	v, found := b.visitors[key]
	if !found {
		v = &visitor{limiter: rate.NewLimiter(b.limit, b.burst)}
		b.visitors[key] = v
	}
	v.lastSeen = now

	if v.limiter.AllowN(now, 1) {
		return true, int(v.limiter.TokensAt(now)), 0
	}

	deficit := 1 - v.limiter.TokensAt(now)
	wait := time.Duration(deficit / float64(b.limit) * float64(time.Second))
	return false, 0, wait
}

// RateLimitMiddleware limits requests per key. Requests whose key cannot be
// extracted are let through and logged.
func RateLimitMiddleware(cfg RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	b := newBuckets(cfg)
	limitHeader := strconv.Itoa(cfg.RequestsPerWindow)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := keyExtractor(r)
			if key == "" {
				log.Warn("rate limit: no key for request, allowing", "profile", cfg.Name)
				next.ServeHTTP(w, r)
				return
			}

			ok, remaining, wait := b.take(key, time.Now())
			w.Header().Set("X-RateLimit-Limit", limitHeader)
			w.Header().Set("X-RateLimit-Window", cfg.Window.String())
			if ok {
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := max(int(math.Ceil(wait.Seconds())), 1)
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			// Keys may embed an email address, so only the IP is logged.
			log.Warn("rate limit exceeded",
				"profile", cfg.Name,
				"client_ip", IPKeyExtractor(r),
				"path", r.URL.Path,
				"retry_after", retryAfter,
			)
			apperr.Write(w, r, apperr.TooManyRequests("too many requests, please try again later"))
		})
	}
}

// RateLimitByIP limits by client IP.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, IPKeyExtractor)
}

// RateLimitByUser limits by authenticated user, falling back to IP when the
// route runs it before authentication.
func RateLimitByUser(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":", UserIDKeyExtractor, IPKeyExtractor))
}

// RateLimitByIPAndJSONField limits by IP plus a JSON body field, so one
// address hammering one account is throttled without blocking its other
// users behind the same NAT.
func RateLimitByIPAndJSONField(cfg RateLimitConfig, field string) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":", IPKeyExtractor, JSONFieldKeyExtractor(field)))
}
