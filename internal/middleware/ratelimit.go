package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// how often Allow drops clients whose hits have all aged out
const sweepInterval = time.Minute

// Window caps how many requests one key may make within Period.
type Window struct {
	Limit  int
	Period time.Duration
}

// RateLimiter is a sliding-window limiter over several windows at once, keyed by client.
// A request counts against every window only when all of them admit it.
type RateLimiter struct {
	windows []Window
	span    time.Duration
	now     func() time.Time

	mu        sync.Mutex
	hits      map[string][]time.Time
	lastSweep time.Time
}

// NewRateLimiter drops windows with a non-positive limit or period.
func NewRateLimiter(windows ...Window) *RateLimiter {
	l := &RateLimiter{now: time.Now, hits: make(map[string][]time.Time)}
	for _, w := range windows {
		if w.Limit <= 0 || w.Period <= 0 {
			continue
		}
		l.windows = append(l.windows, w)
		if w.Period > l.span {
			l.span = w.Period
		}
	}
	return l
}

// Allow records a hit for key if every window has room. Otherwise it reports how long until one frees up.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	if len(l.windows) == 0 {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.span)
	if now.Sub(l.lastSweep) >= sweepInterval {
		l.sweep(cutoff)
		l.lastSweep = now
	}

	queue := l.hits[key]
	idx := 0
	for _, t := range queue {
		if t.After(cutoff) {
			break
		}
		idx++
	}
	if idx > 0 {
		queue = queue[idx:]
	}

	var retry time.Duration
	for _, w := range l.windows {
		start := now.Add(-w.Period)
		// queue is sorted, so the first hit inside the window is the one that expires next.
		first := len(queue)
		for i, t := range queue {
			if t.After(start) {
				first = i
				break
			}
		}
		if len(queue)-first >= w.Limit {
			if wait := queue[first].Add(w.Period).Sub(now); wait > retry {
				retry = wait
			}
		}
	}
	if retry > 0 {
		l.hits[key] = queue
		return false, retry
	}
	l.hits[key] = append(queue, now)
	return true, 0
}

// sweep deletes keys with no hit after cutoff. Callers hold mu.
func (l *RateLimiter) sweep(cutoff time.Time) {
	for key, queue := range l.hits {
		if len(queue) == 0 || !queue[len(queue)-1].After(cutoff) {
			delete(l.hits, key)
		}
	}
}

// Limit rejects requests over the limiter's budget with 429 and a Retry-After header.
func (l *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retry := l.Allow(c.ClientIP())
		if ok {
			c.Next()
			return
		}
		secs := int(math.Ceil(retry.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		AbortWithError(c, http.StatusTooManyRequests, "rate_limited",
			fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", secs))
	}
}
