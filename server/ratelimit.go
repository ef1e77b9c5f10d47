package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/dingocoin/wdingocoin-bridge/envelope"
)

// ipRateLimiter admits count requests per window for each client ip.
// A limiter idle for a whole window is full again, so it is dropped.
type ipRateLimiter struct {
	limit  rate.Limit
	burst  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	lastSweep time.Time
}

type ipLimiter struct {
	*rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(window time.Duration, count int) *ipRateLimiter {
	return &ipRateLimiter{
		limit:    rate.Limit(float64(count) / window.Seconds()),
		burst:    count,
		window:   window,
		now:      time.Now,
		limiters: map[string]*ipLimiter{},
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(now)
	}
	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = &ipLimiter{Limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = limiter
	}
	limiter.lastSeen = now
	return limiter.AllowN(now, 1)
}

// sweep drops limiters not used for a window. Caller holds mu.
func (l *ipRateLimiter) sweep(now time.Time) {
	for ip, limiter := range l.limiters {
		if now.Sub(limiter.lastSeen) >= l.window {
			delete(l.limiters, ip)
		}
	}
	l.lastSweep = now
}

func (l *ipRateLimiter) middleware(c *gin.Context) {
	if !l.allow(c.ClientIP()) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, &envelope.SignedMessage{Error: "Too many requests"})
		return
	}
	c.Next()
}
