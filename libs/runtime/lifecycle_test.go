package runtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestShutdown_RunsEveryStep(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	boom := errors.New("boom")

	var order []string
	step := func(name string, err error) ShutdownStep {
		return ShutdownStep{Name: name, Stop: func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Errorf("%s: expected a deadline", name)
			}
			order = append(order, name)
			return err
		}}
	}

	err := Shutdown(logger, time.Second, step("grpc", nil), step("http", boom), ShutdownStep{Name: "noop"}, step("otel", nil))
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(order) != 3 || order[0] != "grpc" || order[2] != "otel" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestGo_StopWaitsForReturn(t *testing.T) {
	flushed := make(chan struct{})
	stop := Go(func(ctx context.Context) {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		close(flushed)
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	select {
	case <-flushed:
	default:
		t.Fatal("stop returned before fn finished")
	}
}

func TestGo_StopHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	stop := Go(func(context.Context) { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
