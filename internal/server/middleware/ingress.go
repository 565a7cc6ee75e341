package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/oasislearninghub/oasis/internal/metrics"
)

// IngressConfig bounds how fast a single client may call the API.
type IngressConfig struct {
	RPS       float64
	Burst     int
	ClientTTL time.Duration
	// OnReject writes the rejection. retryAfter is in whole seconds.
	OnReject func(w http.ResponseWriter, r *http.Request, retryAfter int)
}

// ClientLimiters keeps one token bucket per client key and forgets clients
// that have been quiet for longer than the TTL.
type ClientLimiters struct {
	mu      sync.Mutex
	entries map[string]*clientEntry
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time
}

type clientEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiters returns an empty limiter set.
func NewClientLimiters(rps float64, burst int, ttl time.Duration) *ClientLimiters {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ClientLimiters{
		entries: make(map[string]*clientEntry),
		limit:   rate.Limit(rps),
		burst:   burst,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Reserve takes a token for key. It returns zero when the request may
// proceed, otherwise how long the client should wait.
func (c *ClientLimiters) Reserve(key string) time.Duration {
	now := c.now()

	c.mu.Lock()
	ent, ok := c.entries[key]
	if !ok {
		ent = &clientEntry{lim: rate.NewLimiter(c.limit, c.burst)}
		c.entries[key] = ent
	}
	ent.lastSeen = now
	c.mu.Unlock()

	if ent.lim.AllowN(now, 1) {
		return 0
	}
	if c.limit <= 0 {
		return time.Second
	}
	wait := time.Duration(float64(time.Second) / float64(c.limit))
	if wait < time.Second {
		return time.Second
	}
	return wait
}

// Len returns the number of tracked clients.
func (c *ClientLimiters) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Cleanup drops clients idle past the TTL.
func (c *ClientLimiters) Cleanup() {
	cutoff := c.now().Add(-c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, ent := range c.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(c.entries, key)
		}
	}
}

// StartJanitor runs Cleanup every interval until ctx is done.
func (c *ClientLimiters) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Cleanup()
			}
		}
	}()
}

// Ingress rejects requests from clients over their token bucket.
func Ingress(limiters *ClientLimiters, cfg IngressConfig) func(http.Handler) http.Handler {
	reject := cfg.OnReject
	if reject == nil {
		reject = func(w http.ResponseWriter, _ *http.Request, _ int) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wait := limiters.Reserve(clientKey(r))
			if wait == 0 {
				next.ServeHTTP(w, r)
				return
			}

			metrics.RecordIngressRejected(getEndpointPattern(r))
			reject(w, r, int(math.Ceil(wait.Seconds())))
		})
	}
}

// clientKey is the remote host. chi's RealIP has already applied any
// forwarding headers.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
