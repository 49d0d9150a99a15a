package retry

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Config holds retry configuration
type Config struct {
	MaxRetries     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	Jitter         bool
	RetryableError func(error) bool
}

// DefaultConfig returns a default retry configuration
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
		RetryableError: func(err error) bool {
			return err != nil
		},
	}
}

// RemoteAPIConfig returns retry config for the NVA REST APIs,
// matching the policy used for search: 5 attempts, exponential
// backoff between 2s and 30s, retry on throttling and server errors.
func RemoteAPIConfig() *Config {
	return &Config{
		MaxRetries:   5,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
		RetryableError: func(err error) bool {
			if err == nil {
				return false
			}
			msg := strings.ToLower(err.Error())
			return strings.Contains(msg, "timeout") ||
				strings.Contains(msg, "temporary") ||
				strings.Contains(msg, "throttl") ||
				strings.Contains(msg, "429") ||
				strings.Contains(msg, "502") ||
				strings.Contains(msg, "503") ||
				strings.Contains(msg, "504")
		},
	}
}

// Do executes a function with retry logic
func Do(ctx context.Context, config *Config, fn func() error) error {
	if config == nil {
		config = DefaultConfig()
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !config.RetryableError(err) {
			return err
		}

		if attempt == config.MaxRetries {
			break
		}

		if attempt > 0 {
			delay = time.Duration(float64(delay) * config.Multiplier)
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}
		}

		actualDelay := delay
		if config.Jitter {
			jitter := time.Duration(rand.Float64() * float64(delay) * 0.3)
			actualDelay = delay + jitter
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(actualDelay):
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", config.MaxRetries, lastErr)
}

// DoWithResult executes a function that returns a value with retry logic
func DoWithResult[T any](ctx context.Context, config *Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, config, func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}
