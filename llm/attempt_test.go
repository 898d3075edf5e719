package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAttemptController_TimeoutFires(t *testing.T) {
	var ctrl AttemptController
	ctx, done := ctrl.Begin(context.Background(), 10*time.Millisecond)
	defer done()

	select {
	case <-ctx.Done():
		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			t.Errorf("ctx.Err() = %v, want deadline exceeded", ctx.Err())
		}
	case <-time.After(time.Second):
		t.Fatal("attempt context never timed out")
	}
}

func TestAttemptController_BeginSupersedesPrevious(t *testing.T) {
	var ctrl AttemptController

	first, done1 := ctrl.Begin(context.Background(), time.Minute)
	defer done1()
	second, done2 := ctrl.Begin(context.Background(), time.Minute)
	defer done2()

	select {
	case <-first.Done():
	default:
		t.Error("starting a new attempt must cancel the previous one")
	}
	select {
	case <-second.Done():
		t.Error("the new attempt must remain live")
	default:
	}
}

func TestAttemptController_StaleDoneIsNoOp(t *testing.T) {
	var ctrl AttemptController

	_, done1 := ctrl.Begin(context.Background(), time.Minute)
	second, done2 := ctrl.Begin(context.Background(), time.Minute)
	defer done2()

	// Resolving the superseded attempt must not disturb the current one.
	done1()

	select {
	case <-second.Done():
		t.Error("stale done cancelled a newer attempt")
	default:
	}

	// Cancel still reaches the live attempt afterwards.
	ctrl.Cancel()
	select {
	case <-second.Done():
	default:
		t.Error("Cancel should abort the live attempt")
	}
}

func TestAttemptController_CancelIdempotent(t *testing.T) {
	var ctrl AttemptController

	// Nothing in flight: must not panic.
	ctrl.Cancel()
	ctrl.Cancel()

	ctx, done := ctrl.Begin(context.Background(), time.Minute)
	defer done()
	ctrl.Cancel()
	ctrl.Cancel()

	select {
	case <-ctx.Done():
	default:
		t.Error("Cancel should abort the in-flight attempt")
	}
}

func TestAttemptController_GenerationAdvances(t *testing.T) {
	var ctrl AttemptController
	if g := ctrl.Generation(); g != 0 {
		t.Errorf("initial generation = %d, want 0", g)
	}
	_, done := ctrl.Begin(context.Background(), time.Minute)
	done()
	_, done = ctrl.Begin(context.Background(), time.Minute)
	done()
	if g := ctrl.Generation(); g != 2 {
		t.Errorf("generation = %d, want 2", g)
	}
}

func TestAttemptError_Mapping(t *testing.T) {
	live := context.Background()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	wire := NewInternalError("server error", 500, nil)

	if got := AttemptError(live, wire); got != wire {
		t.Errorf("live context should pass the error through, got %v", got)
	}
	if got := AttemptError(live, nil); got != nil {
		t.Errorf("nil error should stay nil, got %v", got)
	}

	got := AttemptError(cancelled, errors.New("net/http: request canceled"))
	if !IsTimeoutError(got) {
		t.Errorf("cancelled context should surface a timeout error, got %v", got)
	}
}
