package runtime

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"
)

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// ShutdownStep is one component to stop, e.g. an HTTP server or a tracer
// provider.
type ShutdownStep struct {
	Name string
	Stop func(context.Context) error
}

// Shutdown runs steps in order under a shared deadline. Every step runs even
// when an earlier one fails; the errors are joined.
func Shutdown(logger *slog.Logger, timeout time.Duration, steps ...ShutdownStep) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for _, s := range steps {
		if s.Stop == nil {
			continue
		}
		if err := s.Stop(ctx); err != nil {
			logger.Error("shutdown step failed", "step", s.Name, "err", err)
			errs = append(errs, err)
			continue
		}
		logger.Info("stopped", "step", s.Name)
	}
	return errors.Join(errs...)
}

// Go runs fn in its own goroutine. The returned stop func cancels fn's
// context and waits for fn to return or for its own ctx to expire.
func Go(fn func(ctx context.Context)) func(context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(runCtx)
	}()
	return func(ctx context.Context) error {
		cancel()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
