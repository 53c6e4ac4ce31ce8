package executor_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"litpipe/internal/executor"
	"litpipe/internal/services"
)

func TestRunRejectsInvalidLimit(t *testing.T) {
	_, err := executor.Run(context.Background(), []int{1}, func(context.Context, int) (int, error) {
		return 0, nil
	}, executor.Options{Limit: 0})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestConcurrencyCeiling(t *testing.T) {
	const limit = 3
	for _, size := range []int{0, 1, limit, limit + 1, limit * 10} {
		t.Run(fmt.Sprintf("size_%d", size), func(t *testing.T) {
			var inFlight, peak atomic.Int64
			items := make([]int, size)

			results, err := executor.Run(context.Background(), items, func(_ context.Context, v int) (int, error) {
				current := inFlight.Add(1)
				for {
					observed := peak.Load()
					if current <= observed || peak.CompareAndSwap(observed, current) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				inFlight.Add(-1)
				return v, nil
			}, executor.Options{Limit: limit})
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if len(results) != size {
				t.Fatalf("result length %d, want %d", len(results), size)
			}
			if peak.Load() > limit {
				t.Fatalf("observed %d in-flight operations, limit %d", peak.Load(), limit)
			}
		})
	}
}

func TestResultsIndexAligned(t *testing.T) {
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	results, err := executor.Run(context.Background(), items, func(_ context.Context, v int) (int, error) {
		// Later items finish earlier to shuffle completion order.
		time.Sleep(time.Duration(50-v) * time.Millisecond / 10)
		return v * 2, nil
	}, executor.Options{Limit: 8})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for i, res := range results {
		if res.Err != nil {
			t.Fatalf("item %d failed: %v", i, res.Err)
		}
		if res.Value != i*2 {
			t.Fatalf("result[%d] = %d, want %d", i, res.Value, i*2)
		}
	}
}

func TestRetryUntilSuccess(t *testing.T) {
	const maxRetries = 3
	var calls atomic.Int64

	results, err := executor.Run(context.Background(), []int{0}, func(context.Context, int) (string, error) {
		// Fail exactly maxRetries times, then succeed on the final attempt.
		if calls.Add(1) <= maxRetries {
			return "", services.Wrap(services.ErrTransient, "", "op", "flaky", nil)
		}
		return "ok", nil
	}, executor.Options{Limit: 1, MaxRetries: maxRetries, RetryDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if results[0].Err != nil {
		t.Fatalf("expected success after retries, got %v", results[0].Err)
	}
	if results[0].Attempts != maxRetries+1 {
		t.Fatalf("attempts = %d, want %d", results[0].Attempts, maxRetries+1)
	}
}

func TestRetryExhaustion(t *testing.T) {
	const maxRetries = 2
	var calls atomic.Int64

	results, err := executor.Run(context.Background(), []int{0}, func(context.Context, int) (string, error) {
		calls.Add(1)
		return "", services.Wrap(services.ErrTransient, "", "op", "always failing", nil)
	}, executor.Options{Limit: 1, MaxRetries: maxRetries, RetryDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if results[0].Err == nil {
		t.Fatal("expected terminal item error")
	}
	if got := calls.Load(); got != maxRetries+1 {
		t.Fatalf("total attempts = %d, want %d", got, maxRetries+1)
	}
}

func TestTerminalErrorsSkipRetry(t *testing.T) {
	var calls atomic.Int64

	results, err := executor.Run(context.Background(), []int{0}, func(context.Context, int) (string, error) {
		calls.Add(1)
		return "", services.Wrap(services.ErrNotFound, "", "op", "missing", nil)
	}, executor.Options{Limit: 1, MaxRetries: 5, RetryDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if results[0].Err == nil {
		t.Fatal("expected item error")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("not-found error should not be retried, got %d attempts", got)
	}
}

func TestTimeoutTaggedRetryable(t *testing.T) {
	results, err := executor.Run(context.Background(), []int{0}, func(ctx context.Context, _ int) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}, executor.Options{Limit: 1, MaxRetries: 1, Timeout: 5 * time.Millisecond, RetryDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !errors.Is(results[0].Err, services.ErrTimeout) {
		t.Fatalf("expected timeout classification, got %v", results[0].Err)
	}
	if results[0].Attempts != 2 {
		t.Fatalf("timeouts should be retried, attempts = %d", results[0].Attempts)
	}
}

func TestCancellationStopsSubmissionOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var started atomic.Int64
	release := make(chan struct{})
	var once sync.Once

	items := make([]int, 10)
	results, err := executor.Run(ctx, items, func(context.Context, int) (int, error) {
		started.Add(1)
		once.Do(func() {
			cancel()
			close(release)
		})
		<-release
		return 1, nil
	}, executor.Options{Limit: 1})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// The in-flight item completes; the rest are never submitted.
	if results[0].Err != nil {
		t.Fatalf("in-flight item should finish, got %v", results[0].Err)
	}
	if got := started.Load(); got >= int64(len(items)) {
		t.Fatalf("cancellation should stop submission, started %d items", got)
	}
	for _, res := range results[int(started.Load()):] {
		if res.Err == nil {
			t.Fatal("unsubmitted items must carry an error marker")
		}
	}
}

func TestProgressCallback(t *testing.T) {
	var max atomic.Int64
	items := make([]int, 7)

	_, err := executor.Run(context.Background(), items, func(context.Context, int) (int, error) {
		return 0, nil
	}, executor.Options{Limit: 2, OnProgress: func(done, total int) {
		if total != len(items) {
			t.Errorf("total = %d, want %d", total, len(items))
		}
		for {
			observed := max.Load()
			if int64(done) <= observed || max.CompareAndSwap(observed, int64(done)) {
				break
			}
		}
	}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if max.Load() != int64(len(items)) {
		t.Fatalf("final progress = %d, want %d", max.Load(), len(items))
	}
}
