package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"sheetinsight-backend/internal/shared/server/respond"
)

const (
	defaultRateLimitGroup = "DEFAULT"
	// sweepEvery bounds how often idle buckets are pruned.
	sweepEvery = time.Minute
)

// RateLimitRule is a token bucket refilled at Rate tokens per second up to Burst.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

func (r RateLimitRule) disabled() bool { return r.Rate <= 0 || r.Burst <= 0 }

// RateLimitConfig selects a rule per request. Requests whose group has no
// rule pass through.
type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      *RateLimiter
}

// RateLimiter holds one token bucket per principal and group.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	now       func() time.Time
	lastSweep time.Time
}

type bucket struct {
	tokens  float64
	updated time.Time
	rule    RateLimitRule
}

// refill credits tokens earned since the last update.
func (b *bucket) refill(now time.Time) {
	if elapsed := now.Sub(b.updated).Seconds(); elapsed > 0 {
		b.tokens = math.Min(float64(b.rule.Burst), b.tokens+elapsed*b.rule.Rate)
		b.updated = now
	}
}

// full reports whether the bucket would be back at Burst by now.
func (b *bucket) full(now time.Time) bool {
	return now.Sub(b.updated).Seconds()*b.rule.Rate >= float64(b.rule.Burst)-b.tokens
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{buckets: make(map[string]*bucket), now: now}
}

// Allow spends one token for key. When the bucket is empty it returns the
// wait until the next token, rounded up to the millisecond.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || rule.disabled() {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(rule.Burst), updated: now}
		l.buckets[key] = b
	}
	b.rule = rule
	b.refill(now)
	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := (1 - b.tokens) / rule.Rate
	return false, time.Duration(math.Ceil(wait*1000)) * time.Millisecond
}

// sweep drops buckets that have refilled completely; recreating one later
// yields the same state. Callers hold l.mu.
func (l *RateLimiter) sweep(now time.Time) {
	if l.lastSweep.IsZero() {
		l.lastSweep = now
		return
	}
	if now.Sub(l.lastSweep) < sweepEvery {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if b.rule.disabled() || b.full(now) {
			delete(l.buckets, key)
		}
	}
}

func (l *RateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimit keys buckets by authenticated user, falling back to client IP.
// Rejections use the standard error envelope plus retryAfterMs.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	return func(c *gin.Context) {
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}
		principal := UserIDFromContext(c)
		if principal == "" {
			principal = c.ClientIP()
		}
		allowed, wait := cfg.Limiter.Allow(group+"|"+principal, rule)
		if allowed {
			c.Next()
			return
		}

		waitMs := max(wait.Milliseconds(), 1)
		c.Header("Retry-After", strconv.FormatInt((waitMs+999)/1000, 10))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, struct {
			respond.ErrorResponse
			RetryAfterMs int64 `json:"retryAfterMs"`
		}{
			ErrorResponse: respond.ErrorResponse{
				Message: "Too many requests, please try again later",
				Code:    respond.CodeRateLimited,
			},
			RetryAfterMs: waitMs,
		})
	}
}
