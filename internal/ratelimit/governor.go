package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

const breakerName = "ratelimit-store"

// Governor is the admission entry point. The backend strategy is fixed at
// construction: Redis behind a circuit breaker when a client is given,
// otherwise the local backend alone.
type Governor struct {
	cfg     Config
	shared  Backend
	local   *LocalBackend
	breaker *gobreaker.CircuitBreaker[Decision]
	logger  zerolog.Logger
	now     func() time.Time
}

// New builds a Governor. client may be nil.
func New(cfg Config, client redis.UniversalClient, logger zerolog.Logger) (*Governor, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid rate limit config: %w", err)
	}
	if cfg.FailurePolicy == "" {
		cfg.FailurePolicy = FailFallback
	}

	g := &Governor{
		cfg:    cfg,
		local:  NewLocalBackend(cfg.Limit, cfg.Window, cfg.ReapInterval),
		logger: logger,
		now:    time.Now,
	}

	if client != nil {
		g.shared = NewRedisBackend(client, cfg.Limit, cfg.Window, cfg.StoreTimeout, cfg.KeyPrefix)
		g.breaker = newBreaker(cfg.Breaker, logger)
	}

	logger.Info().
		Str("backend", g.Backend()).
		Str("failure_policy", string(cfg.FailurePolicy)).
		Int("limit", cfg.Limit).
		Dur("window", cfg.Window).
		Msg("rate governor ready")

	return g, nil
}

func newBreaker(cfg BreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker[Decision] {
	breakerState.Set(0)

	return gobreaker.NewCircuitBreaker[Decision](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// A caller giving up is not a store failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			breakerState.Set(stateToFloat(to))
		},
	})
}

// Backend names the primary backend.
func (g *Governor) Backend() string {
	if g.shared != nil {
		return g.shared.Name()
	}
	return g.local.Name()
}

// CheckAdmission records one request for identifier and reports whether it
// is admitted. Under FailClosed a failing store yields ErrStoreUnavailable;
// the other policies always return a decision.
func (g *Governor) CheckAdmission(ctx context.Context, identifier string) (Decision, error) {
	if identifier == "" {
		return Decision{}, ErrInvalidIdentifier
	}
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	now := g.now()

	if g.shared == nil {
		d, err := g.local.Allow(ctx, identifier, now)
		recordAdmission(d, err)
		return d, err
	}

	d, err := g.breaker.Execute(func() (Decision, error) {
		return g.shared.Allow(ctx, identifier, now)
	})
	if err == nil {
		recordAdmission(d, nil)
		return d, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Decision{}, ctxErr
	}

	return g.onStoreFailure(ctx, identifier, now, err)
}

func (g *Governor) onStoreFailure(ctx context.Context, identifier string, now time.Time, cause error) (Decision, error) {
	recordStoreFailure(g.cfg.FailurePolicy)

	event := g.logger.Debug()
	if !errors.Is(cause, gobreaker.ErrOpenState) && !errors.Is(cause, gobreaker.ErrTooManyRequests) {
		event = g.logger.Warn()
	}
	event.Err(cause).Str("policy", string(g.cfg.FailurePolicy)).Msg("rate limit store failed")

	switch g.cfg.FailurePolicy {
	case FailOpen:
		d := Decision{
			Admitted:  true,
			Limit:     g.cfg.Limit,
			Remaining: g.cfg.Limit,
			ResetAt:   now.Add(g.cfg.Window),
			Backend:   BackendNone,
		}
		recordAdmission(d, nil)
		return d, nil
	case FailClosed:
		return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, cause)
	default:
		d, err := g.local.Allow(ctx, identifier, now)
		recordAdmission(d, err)
		return d, err
	}
}

// Close stops the local reaper. The Redis client is owned by the caller.
func (g *Governor) Close() error {
	return g.local.Close()
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
