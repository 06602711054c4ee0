// Package generation calls the chat model with per-attempt timeouts, retries and a circuit breaker.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/courserec/internal/domain"
	domgen "github.com/kailas-cloud/courserec/internal/domain/generation"
	"github.com/kailas-cloud/courserec/internal/domain/prompt"
	"github.com/kailas-cloud/courserec/internal/metrics"
)

// Defaults for Config fields left at zero.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultBackoff         = 250 * time.Millisecond
	MaxBackoff             = 4 * time.Second
	DefaultBreakerFailures = 5
	DefaultBreakerTimeout  = 30 * time.Second
)

// Config tunes the generation call.
type Config struct {
	Temperature     float32
	Timeout         time.Duration // per attempt
	MaxRetries      int           // retries after the first attempt
	Backoff         time.Duration // first retry delay, doubled per attempt
	BreakerFailures uint32        // consecutive failures that open the breaker
	BreakerTimeout  time.Duration // open -> half-open delay
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.Backoff <= 0 {
		c.Backoff = DefaultBackoff
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = DefaultBreakerFailures
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = DefaultBreakerTimeout
	}
}

// Service is a resilient wrapper around a Generator.
type Service struct {
	gen    Generator
	cfg    Config
	cb     *gobreaker.CircuitBreaker[string]
	logger *zap.Logger
}

// New creates a generation service.
func New(gen Generator, cfg Config, logger *zap.Logger) *Service {
	cfg.applyDefaults()
	metrics.GenerationBreakerState.Set(float64(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "generation",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.GenerationBreakerState.Set(float64(to))
		},
	})

	return &Service{gen: gen, cfg: cfg, cb: cb, logger: logger}
}

// Generate returns the raw model output. Every failure wraps domain.ErrGenerationFailed.
func (s *Service) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	for attempt := 0; ; attempt++ {
		out, err := s.attempt(ctx, p)
		if err == nil {
			return out, nil
		}
		if attempt >= s.cfg.MaxRetries || !s.retryable(ctx, err) {
			return "", fmt.Errorf("generate after %d attempt(s): %w: %w", attempt+1, domain.ErrGenerationFailed, err)
		}

		delay := backoff(s.cfg.Backoff, attempt)
		s.logger.Warn("Generation attempt failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		metrics.GenerationRetriesTotal.Inc()

		if err := sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("generation retry: %w: %w", domain.ErrGenerationFailed, err)
		}
	}
}

// HealthCheck fails while the breaker is open and otherwise asks the provider.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.cb.State() == gobreaker.StateOpen {
		return fmt.Errorf("generation circuit open: %w", domain.ErrGenerationFailed)
	}
	if hc, ok := s.gen.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (s *Service) attempt(ctx context.Context, p prompt.Prompt) (string, error) {
	actx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	out, err := s.cb.Execute(func() (string, error) {
		return s.gen.Generate(actx, p, domgen.Options{Temperature: s.cfg.Temperature})
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return out, nil
}

// retryable reports whether another attempt may succeed. The caller's context, an open
// breaker and provider errors such as 4xx stop the loop.
func (s *Service) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return true
}

func backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for range attempt {
		d *= 2
		if d >= MaxBackoff {
			return MaxBackoff
		}
	}
	return min(d, MaxBackoff)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
