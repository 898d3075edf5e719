package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestIsRetryable_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation", NewValidationError("model is required"), false},
		{"timeout kind", NewTimeoutError("attempt timed out", nil), true},
		{"internal 500", NewInternalError("server error", 500, nil), true},
		{"internal 429", NewInternalError("rate limited", 429, nil), true},
		{"internal 502", NewInternalError("bad gateway", 502, nil), true},
		{"internal 400", NewInternalError("bad request", 400, nil), false},
		{"internal 401", NewInternalError("unauthorized", 401, nil), false},
		{"connection reset text", errors.New("read tcp: connection reset by peer"), true},
		{"dns text", errors.New("lookup api.example.com: no such host"), true},
		{"eof text", errors.New("unexpected EOF"), true},
		{"plain failure", errors.New("schema mismatch"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), zerolog.Nop(), fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %q, want ok", result)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_RecoverOnSecondAttempt(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), zerolog.Nop(), fastPolicy(), func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, NewInternalError("server error", 500, nil)
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 42 {
		t.Errorf("result = %d, want 42", result)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), zerolog.Nop(), fastPolicy(), func(ctx context.Context) (struct{}, error) {
		calls++
		return struct{}{}, NewInternalError("server error", 503, nil)
	})
	if calls != 3 {
		t.Errorf("calls = %d, want exactly MaxAttempts (3)", calls)
	}
	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if !strings.Contains(err.Error(), "3 attempts") {
		t.Errorf("exhaustion error should report the attempt count, got %q", err.Error())
	}
	if !IsInternalError(err) {
		t.Errorf("exhaustion should preserve the inner kind, got %v", err)
	}
	if StatusCodeOf(err) != 503 {
		t.Errorf("exhaustion should preserve the inner status, got %d", StatusCodeOf(err))
	}
	var e *Error
	if errors.As(err, &e) && e.Retryable {
		t.Error("exhausted error must not be marked retryable")
	}
}

func TestRetry_TerminalErrorStopsImmediately(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), zerolog.Nop(), fastPolicy(), func(ctx context.Context) (struct{}, error) {
		calls++
		return struct{}{}, NewInternalError("bad request", 400, nil)
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (terminal errors are never retried)", calls)
	}
	if StatusCodeOf(err) != 400 {
		t.Errorf("status = %d, want 400", StatusCodeOf(err))
	}
	if strings.Contains(err.Error(), "attempts") {
		t.Errorf("terminal error must not be wrapped as exhaustion, got %q", err.Error())
	}
}

func TestRetry_ValidationNeverRetried(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), zerolog.Nop(), fastPolicy(), func(ctx context.Context) (struct{}, error) {
		calls++
		return struct{}{}, NewValidationError("model is required")
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !IsValidationError(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRetry_ContextCancelDuringWait(t *testing.T) {
	policy := fastPolicy()
	policy.InitialDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Retry(ctx, zerolog.Nop(), policy, func(ctx context.Context) (struct{}, error) {
			calls++
			return struct{}{}, NewInternalError("server error", 500, nil)
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !IsTimeoutError(err) {
			t.Errorf("cancellation during the backoff wait should surface as timeout, got %v", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Retry did not return after cancellation")
	}
}

func TestRetryPolicy_BackoffDoubles(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:  6,
		InitialDelay: 1 * time.Second,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
	}
	eb := policy.backOff()

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		8 * time.Second, // capped
	}
	for i, w := range want {
		got := eb.NextBackOff()
		if got != w {
			t.Errorf("delay %d = %v, want %v", i, got, w)
		}
	}
}

func TestRetry_MinimumOneAttempt(t *testing.T) {
	policy := fastPolicy()
	policy.MaxAttempts = 0

	calls := 0
	_, err := Retry(context.Background(), zerolog.Nop(), policy, func(ctx context.Context) (struct{}, error) {
		calls++
		return struct{}{}, NewInternalError("server error", 500, nil)
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if err == nil {
		t.Fatal("expected error")
	}
}
