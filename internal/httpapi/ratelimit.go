package httpapi

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/foxford/eventd/internal/config"
	"github.com/foxford/eventd/internal/metrics"
)

// limiterConfig mirrors internal/httputil/rate_limiting.go's limiterConfig
// shape (threshold requests per cooloff window).
type limiterConfig struct {
	threshold int64
	cooloff   time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	config   limiterConfig
	lastSeen time.Time
}

// RateLimiter is the per-account/per-IP token-bucket limiter described in
// spec.md §6, adapted from the teacher's internal/httputil.RateLimits:
// same threshold/cooloff/per-endpoint-override/exemption shape, keyed on
// the caller's account id (falling back to remote IP) rather than a Matrix
// device, since this service has no concept of one.
type RateLimiter struct {
	mu            sync.Mutex
	limits        map[string]*limiterEntry
	enabled       bool
	defaultConfig limiterConfig
	perEndpoint   map[string]limiterConfig
	exemptAccounts map[string]struct{}
}

// NewRateLimiter builds a RateLimiter from config.RateLimiting.
func NewRateLimiter(cfg config.RateLimiting) *RateLimiter {
	l := &RateLimiter{
		limits:  make(map[string]*limiterEntry),
		enabled: cfg.Enabled,
		defaultConfig: limiterConfig{
			threshold: cfg.Threshold,
			cooloff:   time.Duration(cfg.CooloffMS) * time.Millisecond,
		},
		perEndpoint:    make(map[string]limiterConfig),
		exemptAccounts: make(map[string]struct{}),
	}
	for _, accountID := range cfg.ExemptUserIDs {
		l.exemptAccounts[accountID] = struct{}{}
	}
	for endpoint, override := range cfg.PerEndpointOverrides {
		l.perEndpoint[endpoint] = limiterConfig{
			threshold: override.Threshold,
			cooloff:   time.Duration(override.CooloffMS) * time.Millisecond,
		}
	}
	return l
}

// Middleware wraps next, rejecting requests over the configured threshold
// with 429 before the handler runs.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !l.enabled {
			next.ServeHTTP(w, req)
			return
		}

		accountID := accountIDFromRequest(req)
		if _, exempt := l.exemptAccounts[accountID]; exempt && accountID != "" {
			next.ServeHTTP(w, req)
			return
		}

		caller := accountID
		if caller == "" {
			caller = remoteIP(req)
		}

		cfg := l.defaultConfig
		key := caller
		if override, ok := l.perEndpoint[req.URL.Path]; ok {
			cfg = override
			key = caller + "|" + req.URL.Path
		}

		limiter, blocked := l.getLimiter(key, cfg)
		if blocked || (limiter != nil && !limiter.Allow()) {
			metrics.RateLimitedRequests.WithLabelValues(req.URL.Path).Inc()
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"status": "too_many_requests",
				"detail": "rate limit exceeded, retry after cooloff",
			})
			return
		}
		next.ServeHTTP(w, req)
	})
}

// getLimiter returns the token bucket for key, or (nil, false) when cfg
// leaves the key unlimited (a zero threshold or cooloff means "no limit
// configured" for this key, not "block everything").
func (l *RateLimiter) getLimiter(key string, cfg limiterConfig) (*rate.Limiter, bool) {
	if cfg.threshold <= 0 || cfg.cooloff <= 0 {
		return nil, false
	}

	burst := int(cfg.threshold)
	if burst < 1 {
		burst = 1
	}
	requestsPerSecond := rate.Limit(float64(cfg.threshold) * float64(time.Second) / float64(cfg.cooloff))
	if requestsPerSecond <= 0 {
		requestsPerSecond = rate.Limit(1)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limits[key]
	if ok && entry.config == cfg {
		entry.lastSeen = time.Now()
		return entry.limiter, false
	}
	limiter := rate.NewLimiter(requestsPerSecond, burst)
	l.limits[key] = &limiterEntry{limiter: limiter, config: cfg, lastSeen: time.Now()}
	return limiter, false
}

// accountIDFromRequest reads the caller's account id set by the authn layer
// upstream of this service (out of scope per spec.md §1); it is carried as
// a plain header here rather than parsed from a bearer token.
func accountIDFromRequest(req *http.Request) string {
	return req.Header.Get("X-Account-Id")
}

func remoteIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	return strings.TrimSpace(host)
}
