package bootstrap

import (
	"context"
	"log"
	"math"
	"math/rand"
	"time"
)

const (
	// InitialRetryDelay is the delay before the first retry
	InitialRetryDelay = 1 * time.Second

	// MaxRetryDelay caps the delay between retries
	MaxRetryDelay = 30 * time.Second

	BackoffMultiplier = 2.0

	// JitterFactor is the maximum random jitter as a fraction of the delay
	JitterFactor = 0.1
)

// RetryConfig controls how connectivity failures are retried.
type RetryConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64

	// MaxRetries is the number of attempts after the first one. 0 disables retries.
	MaxRetries int
}

// DefaultRetryConfig returns the backoff schedule with retries disabled.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: InitialRetryDelay,
		MaxDelay:     MaxRetryDelay,
		Multiplier:   BackoffMultiplier,
		JitterFactor: JitterFactor,
	}
}

// WithMaxRetries returns a copy of c allowing n retries.
func (c RetryConfig) WithMaxRetries(n int) RetryConfig {
	c.MaxRetries = n
	return c
}

// CalculateBackoff returns the delay before retry number retryCount (0-based).
func (c RetryConfig) CalculateBackoff(retryCount int) time.Duration {
	if retryCount <= 0 {
		return c.InitialDelay
	}

	delay := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(retryCount))
	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}

	if c.JitterFactor > 0 {
		delay += delay * c.JitterFactor * (2*rand.Float64() - 1)
	}

	if delay < float64(c.InitialDelay) {
		delay = float64(c.InitialDelay)
	}
	return time.Duration(delay)
}

// Connect opens an administrative session, retrying connectivity failures per retry.
func Connect(ctx context.Context, engine Engine, admin AdminCredential, retry RetryConfig) (Session, error) {
	for attempt := 0; ; attempt++ {
		session, err := engine.Open(ctx, admin)
		if err == nil {
			return session, nil
		}
		if !IsRetryable(err) || attempt >= retry.MaxRetries {
			return nil, err
		}

		delay := retry.CalculateBackoff(attempt)
		log.Printf("%s: %v; retrying in %s (%d/%d)", engine.Name(), err, delay.Round(time.Millisecond), attempt+1, retry.MaxRetries)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}
