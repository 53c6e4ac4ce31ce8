package executor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"litpipe/internal/logging"
	"litpipe/internal/services"
)

const defaultRetryDelay = 250 * time.Millisecond

// Operation processes one work item. Returned errors tagged with
// services.ErrTransient or services.ErrTimeout (or left untagged) are retried;
// errors tagged services.ErrNotFound or services.ErrConfiguration are terminal.
type Operation[T, R any] func(ctx context.Context, item T) (R, error)

// Result pairs one input item with its outcome.
type Result[R any] struct {
	Value    R
	Err      error
	Attempts int
}

// Options bounds a batch execution.
type Options struct {
	// Limit caps in-flight operations. Values below 1 are rejected.
	Limit int
	// MaxRetries is the number of resubmissions after the first attempt.
	MaxRetries int
	// Timeout applies per attempt, not per item or batch.
	Timeout time.Duration
	// RetryDelay is the fixed pause before a resubmission.
	RetryDelay time.Duration
	Logger     *slog.Logger
	// OnProgress, when set, observes the number of completed items.
	OnProgress func(done, total int)
}

// Run executes op over items and returns one result per input, index-aligned.
func Run[T, R any](ctx context.Context, items []T, op Operation[T, R], opts Options) ([]Result[R], error) {
	if opts.Limit < 1 {
		return nil, services.Wrap(services.ErrConfiguration, "", "executor", "concurrency limit must be >= 1", nil)
	}
	if op == nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "executor", "operation is required", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results, nil
	}

	sem := semaphore.NewWeighted(int64(opts.Limit))
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)

	for i := range items {
		// Cancellation is advisory: stop submitting, let in-flight work drain.
		if err := ctx.Err(); err != nil {
			results[i] = Result[R]{Err: err}
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = Result[R]{Err: err}
			continue
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer sem.Release(1)

			results[idx] = runItem(ctx, items[idx], op, opts, logger)

			if opts.OnProgress != nil {
				mu.Lock()
				done++
				completed := done
				mu.Unlock()
				opts.OnProgress(completed, len(items))
			}
		}(i)
	}

	wg.Wait()
	return results, nil
}

// runItem drives the retry loop for a single item. In-flight attempts are
// shielded from run cancellation; only the per-attempt timeout interrupts them.
func runItem[T, R any](ctx context.Context, item T, op Operation[T, R], opts Options, logger *slog.Logger) Result[R] {
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	attempts := opts.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		value, err := runAttempt(ctx, item, op, opts.Timeout)
		if err == nil {
			return Result[R]{Value: value, Attempts: attempt}
		}
		lastErr = err

		if !services.IsRetryable(err) || attempt == attempts {
			break
		}
		logger.Debug("retrying work item",
			logging.Args(logging.Int("attempt", attempt), logging.Error(err))...)
		time.Sleep(delay)
	}

	return Result[R]{Err: lastErr, Attempts: attempts}
}

func runAttempt[T, R any](ctx context.Context, item T, op Operation[T, R], timeout time.Duration) (R, error) {
	attemptCtx := context.WithoutCancel(ctx)
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(attemptCtx, timeout)
		defer cancel()
	}

	value, err := op(attemptCtx, item)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = services.Wrap(services.ErrTimeout, "", "execute", "item timed out", err)
	}
	return value, err
}

// Failed counts terminal item errors in a result set.
func Failed[R any](results []Result[R]) int {
	count := 0
	for _, res := range results {
		if res.Err != nil {
			count++
		}
	}
	return count
}
