package prediction

import (
	"context"
	"fmt"
	"time"
)

// CheckFunc reports whether the awaited condition holds
type CheckFunc func(ctx context.Context) (bool, error)

// Poll calls check up to attempts times, waiting interval between calls.
// It returns the number of checks performed. The wait is abandoned as soon
// as ctx is done. When no check succeeds the error is ErrPollExhausted.
func Poll(ctx context.Context, attempts int, interval time.Duration, check CheckFunc) (int, error) {
	if attempts <= 0 {
		return 0, fmt.Errorf("poll attempts must be greater than 0, got %d", attempts)
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		ok, err := check(ctx)
		if err != nil {
			return attempt, err
		}
		if ok {
			return attempt, nil
		}

		if attempt == attempts {
			break
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
	}

	return attempts, ErrPollExhausted
}
