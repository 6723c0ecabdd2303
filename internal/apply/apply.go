// Package apply wraps the ad-platform write API: three idempotent
// operations guarded by a circuit breaker, a rate limiter, and a
// Redis-backed dedupe so one (execution, entity) pair is applied at most
// once even across process restarts.
package apply

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Error tags an apply failure as retryable or terminal. Terminal errors are
// written back to the record's apply_error; retryable ones may be re-queued.
type Error struct {
	Op       string
	Terminal bool
	Err      error
}

func (e *Error) Error() string {
	kind := "retryable"
	if e.Terminal {
		kind = "terminal"
	}
	return fmt.Sprintf("apply %s (%s): %v", e.Op, kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTerminal reports whether err is a terminal apply failure.
func IsTerminal(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Terminal
}

// Sink is the ad-platform write surface.
type Sink interface {
	SetBid(ctx context.Context, keywordID string, newBidJPY int64) error
	SetBudget(ctx context.Context, campaignID string, newBudgetJPY int64) error
	AddNegative(ctx context.Context, scopeID, expression, matchType string) error
}

// Config shapes the guarded wrapper.
type Config struct {
	RatePerSecond   float64       `yaml:"rate_per_second"`   // platform write budget, 5
	Burst           int           `yaml:"burst"`             // 10
	BreakerMaxFails uint32        `yaml:"breaker_max_fails"` // consecutive failures to open, 5
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`  // 30s
	DedupeTTL       time.Duration `yaml:"dedupe_ttl"`        // 48h
	CallTimeout     time.Duration `yaml:"call_timeout"`      // 10s
}

// DefaultConfig is the stock guard calibration.
func DefaultConfig() Config {
	return Config{
		RatePerSecond:   5,
		Burst:           10,
		BreakerMaxFails: 5,
		BreakerCooldown: 30 * time.Second,
		DedupeTTL:       48 * time.Hour,
		CallTimeout:     10 * time.Second,
	}
}

// Guarded decorates a Sink with the breaker, limiter and dedupe. rdb may be
// nil, which disables deduplication (dry-run and test paths).
type Guarded struct {
	inner   Sink
	cfg     Config
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewGuarded builds the guarded wrapper.
func NewGuarded(inner Sink, cfg Config, rdb *redis.Client, log zerolog.Logger) *Guarded {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "apply-sink",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("apply breaker state change")
		},
	})
	return &Guarded{
		inner:   inner,
		cfg:     cfg,
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		rdb:     rdb,
		log:     log,
	}
}

// SetBid applies a bid change, deduped on (executionID, keywordID).
func (g *Guarded) SetBid(ctx context.Context, executionID, keywordID string, newBidJPY int64) error {
	return g.do(ctx, "set_bid", executionID, keywordID, func(ctx context.Context) error {
		return g.inner.SetBid(ctx, keywordID, newBidJPY)
	})
}

// SetBudget applies a budget change, deduped on (executionID, campaignID).
func (g *Guarded) SetBudget(ctx context.Context, executionID, campaignID string, newBudgetJPY int64) error {
	return g.do(ctx, "set_budget", executionID, campaignID, func(ctx context.Context) error {
		return g.inner.SetBudget(ctx, campaignID, newBudgetJPY)
	})
}

// AddNegative applies a negative expression, deduped on (executionID,
// scopeID + expression).
func (g *Guarded) AddNegative(ctx context.Context, executionID, scopeID, expression, matchType string) error {
	return g.do(ctx, "add_negative", executionID, scopeID+":"+expression, func(ctx context.Context) error {
		return g.inner.AddNegative(ctx, scopeID, expression, matchType)
	})
}

func (g *Guarded) do(ctx context.Context, op, executionID, entityID string, call func(context.Context) error) error {
	key := fmt.Sprintf("apply:%s:%s:%s", executionID, op, entityID)

	if g.rdb != nil {
		seen, err := g.rdb.Exists(ctx, key).Result()
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("dedupe check: %w", err)}
		}
		if seen > 0 {
			g.log.Debug().Str("op", op).Str("entity_id", entityID).Msg("apply deduped")
			return nil
		}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return &Error{Op: op, Err: err}
	}

	_, err := g.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
		defer cancel()
		return nil, call(callCtx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &Error{Op: op, Err: err}
		}
		var ae *Error
		if errors.As(err, &ae) {
			return err
		}
		return &Error{Op: op, Err: err}
	}

	if g.rdb != nil {
		if err := g.rdb.SetNX(ctx, key, 1, g.cfg.DedupeTTL).Err(); err != nil {
			// The apply itself succeeded; a lost dedupe marker only risks a
			// redundant idempotent call later.
			g.log.Warn().Err(err).Str("key", key).Msg("dedupe marker write failed")
		}
	}
	return nil
}
