package ratelimit

import (
	"sync"
	"time"
)

// Dimension identifies one independent axis of abuse tracking.
type Dimension string

const (
	DimensionIP          Dimension = "ip"
	DimensionFingerprint Dimension = "fingerprint"
	DimensionContact     Dimension = "contact"
)

// checkOrder fixes which dimension is reported when several deny at once.
var checkOrder = []Dimension{DimensionIP, DimensionFingerprint, DimensionContact}

// Config holds the budget for a single dimension.
type Config struct {
	Limit  int
	Window time.Duration
}

func (c Config) valid() bool {
	return c.Limit > 0 && c.Window > 0
}

// Key is a composite map key: dimension tag plus normalized value.
type Key struct {
	Dimension Dimension
	Value     string
}

type counter struct {
	count       int
	windowStart time.Time
}

// Decision is the tagged outcome of a limiter check. Callers must branch on
// Allowed; a denied decision carries the dimension that tripped and a
// retry-after hint.
type Decision struct {
	Allowed    bool
	Dimension  Dimension
	RetryAfter time.Duration
	Reason     string
}

func allowed() Decision {
	return Decision{Allowed: true}
}

func denied(dim Dimension, retryAfter time.Duration, reason string) Decision {
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return Decision{Dimension: dim, RetryAfter: retryAfter, Reason: reason}
}

// Limiter owns fixed-window counters for every configured dimension. It is an
// injected service, not a package singleton, so tests and multiple servers can
// hold independent instances. Counters live in process memory only; in a
// horizontally scaled deployment each instance keeps its own budget.
type Limiter struct {
	mu      sync.Mutex
	entries map[Key]*counter
	configs map[Dimension]Config
	now     func() time.Time

	janitorStop chan struct{}
	janitorOnce sync.Once
}

func New(configs map[Dimension]Config) *Limiter {
	return &Limiter{
		entries:     make(map[Key]*counter),
		configs:     configs,
		now:         time.Now,
		janitorStop: make(chan struct{}),
	}
}

// NewSingle builds a limiter with one IP dimension, used for per-route
// admin limits.
func NewSingle(limit int, window time.Duration) *Limiter {
	return New(map[Dimension]Config{
		DimensionIP: {Limit: limit, Window: window},
	})
}

// Check admits or denies a request across every configured dimension that has
// a non-empty key value. The denying request itself is counted toward its
// window. Any internal inconsistency fails closed: a request that carries no
// usable key on any configured dimension, or hits a malformed config, is
// denied rather than waved through, because callers sit on unauthenticated
// public endpoints.
func (l *Limiter) Check(keys map[Dimension]string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	checked := 0
	result := allowed()

	for _, dim := range checkOrder {
		cfg, configured := l.configs[dim]
		if !configured {
			continue
		}

		value, ok := keys[dim]
		if !ok || value == "" {
			continue
		}

		if !cfg.valid() {
			return denied(dim, time.Minute, "invalid limiter config")
		}

		checked++

		key := Key{Dimension: dim, Value: value}
		entry, exists := l.entries[key]
		if !exists || now.Sub(entry.windowStart) >= cfg.Window {
			l.entries[key] = &counter{count: 1, windowStart: now}
			continue
		}

		entry.count++
		if entry.count > cfg.Limit && result.Allowed {
			remaining := cfg.Window - now.Sub(entry.windowStart)
			result = denied(dim, remaining, "limit exceeded")
		}
	}

	if checked == 0 {
		return denied("", time.Minute, "no usable rate limit key")
	}

	return result
}

// CheckIP is a convenience wrapper for single-dimension callers.
func (l *Limiter) CheckIP(ip string) Decision {
	return l.Check(map[Dimension]string{DimensionIP: ip})
}

// Size reports how many keys are currently tracked.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// prune drops every entry whose window has fully elapsed.
func (l *Limiter) prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, entry := range l.entries {
		cfg, ok := l.configs[key.Dimension]
		if !ok || now.Sub(entry.windowStart) >= cfg.Window {
			delete(l.entries, key)
		}
	}
}

// StartJanitor begins periodic pruning of expired counters so the entry map
// stays bounded. Stop ends it.
func (l *Limiter) StartJanitor(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				l.prune()
			case <-l.janitorStop:
				return
			}
		}
	}()
}

func (l *Limiter) Stop() {
	l.janitorOnce.Do(func() {
		close(l.janitorStop)
	})
}
