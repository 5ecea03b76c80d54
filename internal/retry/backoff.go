package retry

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/appforge/internal/logging"
)

// Config configures retry behavior with exponential backoff
type Config struct {
	MaxRetries int           `json:"max_retries"` // Maximum number of retry attempts (default: 3)
	BaseDelay  time.Duration `json:"base_delay"`  // Base delay between retries (default: 1s)
	MaxDelay   time.Duration `json:"max_delay"`   // Maximum delay between retries (default: 30s)
	Multiplier float64       `json:"multiplier"`  // Exponential backoff multiplier (default: 2.0)
	Jitter     bool          `json:"jitter"`      // Add random jitter to prevent thundering herd (default: true)
	LogRetries bool          `json:"log_retries"` // Whether to log retry attempts (default: true)
}

// Result contains information about the retry operation
type Result struct {
	Attempts      int           `json:"attempts"`       // Total number of attempts made
	TotalDuration time.Duration `json:"total_duration"` // Total time spent on all attempts
	LastError     error         `json:"-"`              // Last error encountered
	Success       bool          `json:"success"`        // Whether the operation eventually succeeded
	RetryReasons  []string      `json:"retry_reasons"`  // Reasons for each retry attempt
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
		LogRetries: true,
	}
}

// LLMConfig returns a retry configuration tuned for model-provider requests
func LLMConfig() Config {
	return Config{
		MaxRetries: 2,
		BaseDelay:  2 * time.Second,  // Provider requests can be slower
		MaxDelay:   60 * time.Second, // Allow longer max delay for LLM calls
		Multiplier: 2.5,              // Slightly more aggressive backoff
		Jitter:     true,
		LogRetries: true,
	}
}

// Do executes an operation with exponential backoff retry logic
func Do(ctx context.Context, config Config, operation func() error, logger *logging.RunLogger) Result {
	return DoWithReason(ctx, config, func() (error, string) {
		err := operation()
		reason := "unknown_error"
		if err != nil {
			reason = err.Error()
		}
		return err, reason
	}, logger)
}

// DoWithReason executes an operation with exponential backoff retry logic and custom reason tracking
func DoWithReason(ctx context.Context, config Config, operation func() (error, string), logger *logging.RunLogger) Result {
	startTime := time.Now()

	result := Result{
		Attempts:     0,
		Success:      false,
		RetryReasons: make([]string, 0),
	}

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		if config.LogRetries && logger != nil {
			if attempt == 0 {
				logger.Log("Starting operation (attempt %d/%d)", attempt+1, config.MaxRetries+1)
			} else {
				logger.Log("Retrying operation (attempt %d/%d)", attempt+1, config.MaxRetries+1)
			}
		}

		err, reason := operation()
		if err == nil {
			result.Success = true
			result.TotalDuration = time.Since(startTime)
			if config.LogRetries && logger != nil && attempt > 0 {
				logger.Log("Operation succeeded after %d retries (total duration: %v)", attempt, result.TotalDuration)
			}
			return result
		}

		result.LastError = err
		result.RetryReasons = append(result.RetryReasons, reason)

		// Non-retryable errors fail immediately
		if !IsRetryable(err) {
			result.TotalDuration = time.Since(startTime)
			if config.LogRetries && logger != nil {
				logger.Log("Operation failed with non-retryable error: %v", err)
			}
			return result
		}

		if attempt >= config.MaxRetries {
			result.TotalDuration = time.Since(startTime)
			if config.LogRetries && logger != nil {
				logger.Log("Operation failed after %d attempts (total duration: %v): %v",
					result.Attempts, result.TotalDuration, err)
			}
			return result
		}

		if ctx.Err() != nil {
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(startTime)
			return result
		}

		delay := calculateDelay(config, attempt)

		if config.LogRetries && logger != nil {
			logger.Log("Operation failed (attempt %d/%d): %v", attempt+1, config.MaxRetries+1, err)
			logger.Log("Waiting %v before retry", delay)
		}

		// Wait before retrying
		select {
		case <-ctx.Done():
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(startTime)
			return result
		case <-time.After(delay):
			// Continue to next attempt
		}
	}

	result.TotalDuration = time.Since(startTime)
	return result
}

// calculateDelay calculates the delay for the next retry attempt using exponential backoff
func calculateDelay(config Config, attempt int) time.Duration {
	// Exponential backoff: baseDelay * multiplier^attempt
	delay := float64(config.BaseDelay) * math.Pow(config.Multiplier, float64(attempt))

	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	if config.Jitter {
		// Up to 10% random jitter
		jitterRange := delay * 0.1
		jitter := (rand.Float64() - 0.5) * 2 * jitterRange
		delay += jitter

		if delay < 0 {
			delay = float64(config.BaseDelay)
		}
	}

	return time.Duration(delay)
}

// IsRetryable determines if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	// Network and provider-side errors that are typically transient
	retryableErrors := []string{
		"connection refused",
		"connection reset",
		"connection timeout",
		"temporary failure",
		"service unavailable",
		"overloaded",
		"too many requests",
		"rate limit",
		"429", // HTTP 429 Too Many Requests
		"500", // HTTP 500 Internal Server Error
		"502", // HTTP 502 Bad Gateway
		"503", // HTTP 503 Service Unavailable
		"504", // HTTP 504 Gateway Timeout
		"no such host",
		"network unreachable",
		"broken pipe",
	}

	for _, retryable := range retryableErrors {
		if strings.Contains(errStr, retryable) {
			return true
		}
	}

	return false
}
