package middleware

import (
	"net/http"
	"sync"
	"time"

	"neuriax/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// rateLimiter is a fixed-window per-IP counter. Each middleware instance
// owns its map, so the login limiter and the API-wide limiter track
// independent windows. A background loop drops IPs whose window expired.
type rateLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*ipWindow
}

type ipWindow struct {
	count int
	ends  time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{limit: limit, window: window, windows: make(map[string]*ipWindow)}
	go rl.purgeLoop(5 * time.Minute)
	return rl
}

// allow counts one request and reports whether it fits within the window.
func (rl *rateLimiter) allow(ip string, now time.Time) (bool, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w := rl.windows[ip]
	if w == nil || now.After(w.ends) {
		w = &ipWindow{ends: now.Add(rl.window)}
		rl.windows[ip] = w
	}
	w.count++
	return w.count <= rl.limit, w.ends
}

func (rl *rateLimiter) purgeLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		rl.mu.Lock()
		purged := 0
		for ip, w := range rl.windows {
			if now.After(w.ends) {
				delete(rl.windows, ip)
				purged++
			}
		}
		remaining := len(rl.windows)
		rl.mu.Unlock()
		if purged > 0 {
			log.Debug().
				Int("purged", purged).
				Int("remaining", remaining).
				Msg("rate limiter windows purged")
		}
	}
}

// LoginRateLimiter throttles credential guessing: 20 login attempts per
// minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	rl := newRateLimiter(20, time.Minute)
	return func(c *gin.Context) {
		if ok, _ := rl.allow(c.ClientIP(), time.Now()); !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("too many login attempts, retry in 1 minute"))
			return
		}
		c.Next()
	}
}

// RateLimiter caps overall API traffic per IP. Statistics dashboards poll
// aggressively, so the router mounts this with a generous limit.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	rl := newRateLimiter(limit, window)
	return func(c *gin.Context) {
		ok, resetAt := rl.allow(c.ClientIP(), time.Now())
		if !ok {
			c.Header("Retry-After", resetAt.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("too many requests, retry shortly"))
			return
		}
		c.Next()
	}
}
