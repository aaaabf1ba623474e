package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// withRetry runs fn until it succeeds, returns a non-retryable error, or
// MaxRetries further attempts have failed. The delay doubles after every
// attempt up to RetryMaxDelay.
func (o *Orchestrator) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	delay := o.cfg.RetryBaseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil || !domain.IsRetryable(err) || attempt >= o.cfg.MaxRetries {
			return err
		}

		o.logger.WarnContext(ctx, "retrying operation",
			slog.String("op", op),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("service: %s: %w (last error: %v)", op, ctx.Err(), err)
		case <-timer.C:
		}

		delay *= 2
		if delay > o.cfg.RetryMaxDelay {
			delay = o.cfg.RetryMaxDelay
		}
	}
}
