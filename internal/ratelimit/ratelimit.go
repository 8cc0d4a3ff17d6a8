// Package ratelimit admits or rejects requests per identifier using a
// fixed-window counter. Counters live in Redis when a client is configured
// and in a process-local sharded map otherwise, or while Redis is failing.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrStoreUnavailable is returned only under FailClosed when the shared
	// store cannot be reached.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")

	ErrInvalidIdentifier = errors.New("rate limit identifier is required")
)

const (
	BackendLocal = "local"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Admitted  bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	Backend   string
}

// RetryAfter is how long a rejected caller should wait, rounded up to whole
// seconds and never below one.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	secs := (wait + time.Second - 1) / time.Second
	return secs * time.Second
}

// Backend counts requests for one key inside the current window.
type Backend interface {
	Allow(ctx context.Context, key string, now time.Time) (Decision, error)
	Name() string
}

// FailurePolicy decides what happens when the shared store fails.
type FailurePolicy string

const (
	// FailFallback counts locally while the store is down.
	FailFallback FailurePolicy = "fallback"
	// FailOpen admits without counting.
	FailOpen FailurePolicy = "open"
	// FailClosed returns ErrStoreUnavailable.
	FailClosed FailurePolicy = "closed"
)

// ParseFailurePolicy accepts "fallback", "open" or "closed"; empty means fallback.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return FailFallback, nil
	case FailFallback, FailOpen, FailClosed:
		return p, nil
	default:
		return "", fmt.Errorf("unknown rate limit failure policy %q", s)
	}
}

// Config holds governor settings.
type Config struct {
	// Limit is the number of requests admitted per window.
	Limit int

	// Window is the fixed window length.
	Window time.Duration

	// StoreTimeout bounds each call to the shared store.
	StoreTimeout time.Duration

	FailurePolicy FailurePolicy

	// ReapInterval is how often idle local windows are discarded.
	ReapInterval time.Duration

	// KeyPrefix namespaces keys in the shared store.
	KeyPrefix string

	Breaker BreakerConfig
}

// BreakerConfig tunes the circuit breaker around the shared store.
type BreakerConfig struct {
	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic reset period for failure counts while closed.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that opens it.
	FailureThreshold uint32
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Limit:         100,
		Window:        time.Minute,
		StoreTimeout:  50 * time.Millisecond,
		FailurePolicy: FailFallback,
		ReapInterval:  5 * time.Minute,
		KeyPrefix:     "ratelimit:",
		Breaker: BreakerConfig{
			MaxRequests:      3,
			Interval:         30 * time.Second,
			Timeout:          10 * time.Second,
			FailureThreshold: 5,
		},
	}
}

func (c Config) validate() error {
	if c.Limit < 1 {
		return errors.New("rate limit must be at least 1")
	}
	// Redis expiries have millisecond resolution.
	if c.Window < time.Millisecond {
		return errors.New("rate limit window must be at least 1ms")
	}
	if _, err := ParseFailurePolicy(string(c.FailurePolicy)); err != nil {
		return err
	}
	return nil
}
