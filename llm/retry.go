package llm

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// RetryPolicy controls how a provider retries failed attempts. Policies are
// process-wide constants per backend family and are never mutated at runtime.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy is the policy both backend families start from.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:  3,
	InitialDelay: 1 * time.Second,
	MaxDelay:     30 * time.Second,
	Multiplier:   2.0,
}

// retryableErrorNames are transport-failure fragments that mark an error as
// retryable regardless of status code.
var retryableErrorNames = []string{
	"abort",
	"timeout",
	"timed out",
	"connection reset",
	"connection refused",
	"no such host",
	"dns",
	"unresolved",
	"broken pipe",
	"eof",
}

// retryableStatusCodes are HTTP statuses worth another attempt.
var retryableStatusCodes = []int{429, 500, 502, 503, 504}

func retryableStatus(code int) bool {
	for _, c := range retryableStatusCodes {
		if code == c {
			return true
		}
	}
	return false
}

// IsRetryable classifies an error as retryable or terminal. Validation
// errors are always terminal. Timeout errors are retryable. Internal errors
// are retryable when they carry a retryable status code, when their message
// embeds one, or when their text matches a known transport-failure fragment.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case ErrorKindValidation:
			return false
		case ErrorKindTimeout:
			return true
		}
		if retryableStatus(e.StatusCode) {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, name := range retryableErrorNames {
		if strings.Contains(msg, name) {
			return true
		}
	}
	for _, code := range retryableStatusCodes {
		if strings.Contains(msg, strconv.Itoa(code)) {
			return true
		}
	}
	return false
}

// backOff builds the delay schedule for this policy: the initial delay grows
// by Multiplier after each attempt, capped at MaxDelay. Randomization is
// disabled so the schedule is exact.
func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialDelay
	eb.MaxInterval = p.MaxDelay
	eb.Multiplier = p.Multiplier
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	eb.Reset()
	return eb
}

// Retry executes op up to policy.MaxAttempts times. The first attempt runs
// with no delay. A terminal error is returned immediately; a retryable one
// triggers a wait on the policy's backoff schedule before the next attempt.
// On exhaustion the last error is wrapped with the attempt count.
func Retry[T any](ctx context.Context, logger zerolog.Logger, policy RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	eb := policy.backOff()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			logger.Debug().Err(err).Int("attempt", attempt).Msg("Terminal error, not retrying")
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		delay := eb.NextBackOff()
		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Dur("delay", delay).
			Msg("Retryable error, backing off")

		if waitErr := waitForRetry(ctx, delay); waitErr != nil {
			return zero, NewTimeoutError("retry wait cancelled", waitErr)
		}
	}

	return zero, wrapExhausted(lastErr, maxAttempts)
}

// waitForRetry sleeps for delay, respecting context cancellation.
func waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
