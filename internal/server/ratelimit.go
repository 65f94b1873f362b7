package server

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/katikolakarthik/manvi/internal/apperr"
)

const limiterIdle = 10 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiters hands out one token bucket per client address. Buckets idle
// for longer than limiterIdle are pruned on access.
type ipLimiters struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	byIP      map[string]*ipLimiter
	lastPrune time.Time
}

func newIPLimiters(rps float64, burst int) *ipLimiters {
	return &ipLimiters{
		rps:       rate.Limit(rps),
		burst:     burst,
		byIP:      make(map[string]*ipLimiter),
		lastPrune: time.Now(),
	}
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastPrune) > limiterIdle {
		for k, v := range l.byIP {
			if now.Sub(v.lastSeen) > limiterIdle {
				delete(l.byIP, k)
			}
		}
		l.lastPrune = now
	}

	lim, ok := l.byIP[ip]
	if !ok {
		lim = &ipLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.byIP[ip] = lim
	}
	lim.lastSeen = now
	return lim.limiter
}

// RateLimit throttles each client IP. A non-positive rps disables it.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	limiters := newIPLimiters(rps, burst)
	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			fail(c, apperr.New(apperr.RateLimited, "Too many requests"))
			return
		}
		c.Next()
	}
}
