package mw

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ClientRateLimiter keeps one token bucket per client IP.
type ClientRateLimiter struct {
	clients map[string]*rate.Limiter
	mu      sync.RWMutex
	r       rate.Limit
	b       int
}

// NewClientRateLimiter creates a limiter allowing r requests per second with burst b.
func NewClientRateLimiter(r rate.Limit, b int) *ClientRateLimiter {
	return &ClientRateLimiter{
		clients: make(map[string]*rate.Limiter),
		r:       r,
		b:       b,
	}
}

// Limiter returns the bucket for ip, creating it on first use.
func (l *ClientRateLimiter) Limiter(ip string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.clients[ip]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, exists = l.clients[ip]; !exists {
		limiter = rate.NewLimiter(l.r, l.b)
		l.clients[ip] = limiter
	}
	return limiter
}

// RateLimiter is a middleware for IP-based rate limiting. Rejections use the
// same JSON error body as every other API failure.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	limiter := NewClientRateLimiter(r, b)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.Limiter(ip).Allow() {
			log.Printf("rate limit exceeded for %s %s from %s", c.Request.Method, c.Request.URL.Path, ip)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
