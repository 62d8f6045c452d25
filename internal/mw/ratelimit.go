package mw

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// callerLimiter stores a rate limiter per caller key (identity when known,
// client IP otherwise).
type callerLimiter struct {
	callers map[string]*rate.Limiter
	mu      *sync.RWMutex
	r       rate.Limit
	b       int
}

func newCallerLimiter(r rate.Limit, b int) *callerLimiter {
	return &callerLimiter{
		callers: make(map[string]*rate.Limiter),
		mu:      &sync.RWMutex{},
		r:       r,
		b:       b,
	}
}

func (l *callerLimiter) get(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.callers[key]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, exists = l.callers[key]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(l.r, l.b)
	l.callers[key] = limiter
	return limiter
}

// RateLimiter is a middleware limiting request rates per caller.
func RateLimiter(r rate.Limit, b int, identityHeader string) gin.HandlerFunc {
	limiter := newCallerLimiter(r, b)
	return func(c *gin.Context) {
		key := c.GetHeader(identityHeader)
		if key == "" {
			key = c.ClientIP()
		}
		if !limiter.get(key).Allow() {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}
