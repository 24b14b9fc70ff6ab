package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL      = 10 * time.Minute
	limiterSweepPeriod  = time.Minute
	defaultAuthPrefixRL = "/auth"
)

type RateLimitOptions struct {
	// GeneralRPM and AuthRPM are per-client budgets per minute; zero or less
	// disables that budget.
	GeneralRPM int
	AuthRPM    int
	// AuthPrefix selects the requests charged to the auth budget.
	AuthPrefix string
	// TrustForwardedFor keys clients on the last X-Forwarded-For hop instead
	// of the peer address.
	TrustForwardedFor bool
}

// clientBudgets holds one client's token buckets. A nil bucket is unlimited.
type clientBudgets struct {
	general  *rate.Limiter
	auth     *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware keeps per-client token buckets in memory. Credential
// endpoints under the auth prefix draw from their own, smaller budget.
type RateLimitMiddleware struct {
	generalRPM        int
	authRPM           int
	authPrefix        string
	trustForwardedFor bool

	mu        sync.Mutex
	clients   map[string]*clientBudgets
	lastSweep time.Time
}

func NewRateLimitMiddleware(opts RateLimitOptions) *RateLimitMiddleware {
	authPrefix := strings.TrimRight(strings.ToLower(strings.TrimSpace(opts.AuthPrefix)), "/")
	if authPrefix == "" {
		authPrefix = defaultAuthPrefixRL
	}

	return &RateLimitMiddleware{
		generalRPM:        opts.GeneralRPM,
		authRPM:           opts.AuthRPM,
		authPrefix:        authPrefix,
		trustForwardedFor: opts.TrustForwardedFor,
		clients:           map[string]*clientBudgets{},
		lastSweep:         time.Now(),
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		budgets := m.budgetsFor(m.clientKey(r), time.Now())

		bucket := budgets.general
		if isUnder(strings.ToLower(r.URL.Path), m.authPrefix) {
			bucket = budgets.auth
		}

		if wait, ok := take(bucket); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// take spends one token or reports how long until one is available.
func take(bucket *rate.Limiter) (time.Duration, bool) {
	if bucket == nil {
		return 0, true
	}

	reservation := bucket.Reserve()
	wait := reservation.Delay()
	if wait == 0 {
		return 0, true
	}
	reservation.Cancel()
	return wait, false
}

func (m *RateLimitMiddleware) budgetsFor(client string, now time.Time) *clientBudgets {
	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSweep) >= limiterSweepPeriod {
		m.sweepLocked(now)
	}

	budgets, ok := m.clients[client]
	if !ok {
		budgets = &clientBudgets{general: newBucket(m.generalRPM), auth: newBucket(m.authRPM)}
		m.clients[client] = budgets
	}
	budgets.lastSeen = now

	return budgets
}

func (m *RateLimitMiddleware) sweepLocked(now time.Time) {
	m.lastSweep = now
	for client, budgets := range m.clients {
		if now.Sub(budgets.lastSeen) > limiterIdleTTL {
			delete(m.clients, client)
		}
	}
}

func newBucket(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
}

func (m *RateLimitMiddleware) clientKey(r *http.Request) string {
	if m.trustForwardedFor {
		if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
			hops := strings.Split(forwarded, ",")
			if last := strings.TrimSpace(hops[len(hops)-1]); last != "" {
				return last
			}
		}
	}

	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
		return host
	}
	if remote == "" {
		return "unknown"
	}
	return remote
}

func isUnder(p string, prefix string) bool {
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}
