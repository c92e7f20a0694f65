package sensor

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/fanctl/internal/logger"
)

// Supervise runs probe until ctx is cancelled, restarting it with backoff
// whenever it returns early or panics. A run that lasted at least
// backoff.MaxDelay starts the backoff over.
func Supervise(ctx context.Context, probe Probe, table Publisher, backoff Backoff) {
	ctx = logger.WithKV(ctx, "probe", probe.Name())

	for attempt := 1; ; attempt++ {
		started := time.Now()

		err := runProtected(ctx, probe, table)
		if ctx.Err() != nil {
			logger.DebugKV(ctx, "Probe stopped")

			return
		}

		if backoff.MaxDelay > 0 && time.Since(started) >= backoff.MaxDelay {
			attempt = 1
		}

		delay := backoff.Delay(attempt)

		logger.ErrorKV(ctx, "Probe exited unexpectedly, restarting", "error", err, "attempt", attempt, "delay", delay)

		if sleep(ctx, delay) != nil {
			return
		}
	}
}

// runProtected converts a probe panic into an error.
func runProtected(ctx context.Context, probe Probe, table Publisher) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe %s panicked: %v", probe.Name(), r)
		}
	}()

	return probe.Run(ctx, table)
}
