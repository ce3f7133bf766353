package executor

import (
	"context"
	"math"
	"time"

	"github.com/flowcore/flowcore/internal/domain"
)

// backoffDelay computes the §4.3 formula:
// min(initial_delay_ms × backoff_multiplier^i, max_delay_ms), where i is
// the zero-based attempt number that just failed (attempt 1 failing uses
// i=0, the delay before attempt 2). Ported from the teacher's
// calculateDelay (internal/application/executor/retry.go) with the
// teacher's jitter removed: the spec's S3 scenario asserts exact sleep
// durations (10ms then 20ms), which jitter would violate.
func backoffDelay(cfg *domain.RetryConfig, failedAttempt int) time.Duration {
	i := float64(failedAttempt - 1)
	delay := float64(cfg.InitialDelayMs) * math.Pow(cfg.BackoffMultiplier, i)
	if cfg.MaxDelayMs > 0 && delay > float64(cfg.MaxDelayMs) {
		delay = float64(cfg.MaxDelayMs)
	}
	return time.Duration(delay) * time.Millisecond
}

// sleepCancellable sleeps for d or returns early with ctx.Err() if ctx is
// cancelled first, per §4.3 "Sleep is cancellable."
func sleepCancellable(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shouldRetry implements §4.3/§7's retry eligibility rule: the node must
// declare SupportsRetry, the error must be Retryable, a RetryConfig must be
// present, and attempts must remain. Validation errors are never retried
// regardless of the node's or error's own flags.
func shouldRetry(supportsRetry bool, err *domain.ExecutionError, cfg *domain.RetryConfig, attemptsMade int) bool {
	if err == nil || err.Kind == domain.ErrValidation {
		return false
	}
	if !supportsRetry || !err.Retryable || cfg == nil {
		return false
	}
	return attemptsMade < cfg.MaxAttempts
}
