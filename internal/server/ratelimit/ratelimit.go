// Package ratelimit provides token-bucket rate limiting keyed by client and endpoint.
package ratelimit

import (
	"sync"
	"time"
)

// Info describes the limiter's decision for one request.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// bucket refills continuously at rate tokens/second up to capacity.
// lastSeen drives idle-bucket eviction.
type bucket struct {
	tokens   float64
	capacity float64
	rate     float64
	refilled time.Time
	lastSeen time.Time
}

// refill advances the bucket to now. Caller holds the limiter lock.
func (b *bucket) refill(now time.Time) {
	b.tokens += now.Sub(b.refilled).Seconds() * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.refilled = now
}

// resetAt reports when the bucket will be full again. Caller holds the
// limiter lock and has already refilled.
func (b *bucket) resetAt(now time.Time) time.Time {
	if b.tokens >= b.capacity {
		return now
	}
	wait := (b.capacity - b.tokens) / b.rate
	return now.Add(time.Duration(wait * float64(time.Second)))
}

// Limiter manages per-client, per-endpoint token buckets.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	config  *Config
	stop    chan struct{}
	once    sync.Once
}

// NewLimiter creates a limiter from config and starts the idle-bucket
// sweeper when cleanup is configured.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultLimit:    1000,
			DefaultWindow:   time.Minute,
			CleanupInterval: 5 * time.Minute,
		}
	}

	l := &Limiter{
		buckets: make(map[string]*bucket),
		config:  config,
		stop:    make(chan struct{}),
	}
	if config.Enabled && config.CleanupInterval > 0 {
		go l.sweep(config.CleanupInterval)
	}
	return l
}

// Allow decides whether a request from clientID against endpoint+method may
// proceed, consuming a token when it does.
func (l *Limiter) Allow(clientID string, endpoint string, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{}
	}

	ec := MatchEndpoint(endpoint, method, l.config.EndpointConfigs)
	if ec == nil {
		ec = &EndpointConfig{
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
			Burst:  l.config.DefaultLimit,
		}
	}
	if ec.Limit <= 0 {
		// Unlimited endpoint (health check).
		return true, Info{Allowed: true}
	}

	now := time.Now()
	key := clientID + ":" + endpoint + ":" + method

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		capacity := ec.Burst
		if capacity <= 0 {
			capacity = ec.Limit
		}
		b = &bucket{
			tokens:   float64(capacity),
			capacity: float64(capacity),
			rate:     float64(ec.Limit) / ec.Window.Seconds(),
			refilled: now,
		}
		l.buckets[key] = b
	}
	b.lastSeen = now
	b.refill(now)

	allowed := b.tokens >= 1.0
	if allowed {
		b.tokens -= 1.0
	}
	remaining := int(b.tokens)
	reset := b.resetAt(now)
	l.mu.Unlock()

	info := Info{
		Allowed:   allowed,
		Limit:     ec.Limit,
		Remaining: remaining,
		ResetTime: reset,
	}
	if !allowed {
		if wait := time.Until(reset); wait > 0 {
			info.RetryAfter = wait
		}
	}
	return allowed, info
}

// sweep drops buckets idle for over an hour so abandoned clients do not
// accumulate.
func (l *Limiter) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-time.Hour)
			l.mu.Lock()
			for key, b := range l.buckets {
				if b.lastSeen.Before(cutoff) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// Stop terminates the sweeper. Safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}
