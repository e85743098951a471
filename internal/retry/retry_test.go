package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// newTestExecutor captures backoff sleeps instead of actually waiting.
func newTestExecutor(maxRetries int, base, timeout time.Duration) (*Executor, *[]time.Duration) {
	var sleeps []time.Duration
	e := New(maxRetries, base, timeout)
	e.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return e, &sleeps
}

func TestSucceedsFirstAttempt(t *testing.T) {
	e, sleeps := newTestExecutor(3, 10*time.Millisecond, time.Second)

	out := e.Execute(context.Background(), func(ctx context.Context) (any, error) {
		return "ok", nil
	})

	if !out.Succeeded {
		t.Fatal("expected success")
	}
	if out.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", out.Attempts)
	}
	if out.Value != "ok" {
		t.Errorf("expected ok, got %v", out.Value)
	}
	if len(*sleeps) != 0 {
		t.Errorf("expected no backoff, got %v", *sleeps)
	}
}

func TestSucceedsOnAttemptN(t *testing.T) {
	base := 10 * time.Millisecond
	e, sleeps := newTestExecutor(5, base, time.Second)

	calls := 0
	out := e.Execute(context.Background(), func(ctx context.Context) (any, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	})

	if !out.Succeeded {
		t.Fatal("expected success")
	}
	if out.Attempts != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", out.Attempts)
	}

	// Cumulative wait before attempt N is base * (2^0 + ... + 2^(N-2)).
	var total time.Duration
	for _, d := range *sleeps {
		total += d
	}
	want := base * (1 + 2)
	if total < want {
		t.Errorf("cumulative backoff %v below minimum %v", total, want)
	}
	if (*sleeps)[0] != base || (*sleeps)[1] != 2*base {
		t.Errorf("expected exponential backoff [%v %v], got %v", base, 2*base, *sleeps)
	}
}

func TestExhaustsAllAttempts(t *testing.T) {
	e, sleeps := newTestExecutor(4, time.Millisecond, time.Second)

	calls := 0
	out := e.Execute(context.Background(), func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("permanent")
	})

	if out.Succeeded {
		t.Fatal("expected failure")
	}
	if out.Attempts != 4 || calls != 4 {
		t.Errorf("expected exactly 4 attempts, got attempts=%d calls=%d", out.Attempts, calls)
	}
	if out.Value != nil {
		t.Errorf("expected no result, got %v", out.Value)
	}
	// No backoff after the final attempt.
	if len(*sleeps) != 3 {
		t.Errorf("expected 3 backoffs, got %d", len(*sleeps))
	}
	if out.Elapsed <= 0 {
		t.Error("expected elapsed time to be recorded")
	}
}

func TestPanicCountsAsFailedAttempt(t *testing.T) {
	e, sleeps := newTestExecutor(3, time.Millisecond, time.Second)

	calls := 0
	out := e.Execute(context.Background(), func(ctx context.Context) (any, error) {
		calls++
		if calls < 3 {
			panic("backend exploded")
		}
		return "recovered", nil
	})

	if !out.Succeeded {
		t.Fatal("expected success after panicking attempts")
	}
	if out.Attempts != 3 || calls != 3 {
		t.Errorf("expected exactly 3 attempts, got attempts=%d calls=%d", out.Attempts, calls)
	}
	if out.Value != "recovered" {
		t.Errorf("expected recovered, got %v", out.Value)
	}
	if out.Err != nil {
		t.Errorf("expected no error after eventual success, got %v", out.Err)
	}
	if len(*sleeps) != 2 {
		t.Errorf("expected 2 backoffs, got %d", len(*sleeps))
	}
}

func TestPanicOnEveryAttemptExhausts(t *testing.T) {
	e, _ := newTestExecutor(2, time.Millisecond, time.Second)

	out := e.Execute(context.Background(), func(ctx context.Context) (any, error) {
		panic("backend exploded")
	})

	if out.Succeeded {
		t.Fatal("expected failure")
	}
	if out.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", out.Attempts)
	}
	if out.Err == nil || !strings.Contains(out.Err.Error(), "backend exploded") {
		t.Errorf("expected panic value in error, got %v", out.Err)
	}
}

func TestTimeoutCountsAsFailedAttempt(t *testing.T) {
	e, _ := newTestExecutor(3, time.Millisecond, 20*time.Millisecond)

	calls := 0
	out := e.Execute(context.Background(), func(ctx context.Context) (any, error) {
		calls++
		<-ctx.Done() // blocks until the per-attempt deadline
		return nil, ctx.Err()
	})

	if out.Succeeded {
		t.Fatal("expected failure")
	}
	if out.Attempts != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", out.Attempts)
	}
	if calls != 3 {
		t.Errorf("expected 3 operation invocations, got %d", calls)
	}
}

func TestStuckOperationDoesNotFreezeCaller(t *testing.T) {
	e, _ := newTestExecutor(2, time.Millisecond, 20*time.Millisecond)

	release := make(chan struct{})
	defer close(release)

	done := make(chan Outcome, 1)
	go func() {
		done <- e.Execute(context.Background(), func(ctx context.Context) (any, error) {
			<-release // ignores ctx: genuinely stuck
			return nil, errors.New("late")
		})
	}()

	select {
	case out := <-done:
		if out.Succeeded {
			t.Error("expected failure from stuck operation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Execute blocked past attempt deadlines")
	}
}

func TestParentCancellationStopsRetrying(t *testing.T) {
	e, _ := newTestExecutor(10, time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	out := e.Execute(ctx, func(ctx context.Context) (any, error) {
		calls++
		<-ctx.Done()
		return nil, ctx.Err()
	})

	if out.Succeeded {
		t.Fatal("expected failure")
	}
	if calls >= 10 {
		t.Errorf("expected early stop, ran %d attempts", calls)
	}
}
