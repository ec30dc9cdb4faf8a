package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"

	"coindrift/internal/domain"
)

type stubRunner struct {
	calls  atomic.Int32
	errs   []error
	action domain.Action
}

func (s *stubRunner) RunTick(ctx context.Context) (domain.Action, error) {
	n := int(s.calls.Add(1))
	if n <= len(s.errs) {
		return domain.ActionNone, s.errs[n-1]
	}
	return s.action, nil
}

func TestTickPollerStartRunsImmediately(t *testing.T) {
	t.Parallel()

	tracer := trace.NewNoopTracerProvider().Tracer("test")
	stub := &stubRunner{action: domain.ActionWait}
	poller := NewTickPoller(tracer, stub, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go poller.Start(ctx)

	eventually(t, func() bool { return stub.calls.Load() > 0 })
	cancel()
}

func TestTickPollerRetriesInsufficientData(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	stub := &stubRunner{
		errs:   []error{domain.ErrInsufficientData, domain.ErrInsufficientData},
		action: domain.ActionWait,
	}
	poller := NewTickPoller(tracer, stub, time.Hour)

	done := make(chan struct{})
	go func() {
		poller.tick(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("tick did not complete")
	}
	if got := stub.calls.Load(); got != 3 {
		t.Fatalf("expected 2 retries then success, got %d calls", got)
	}
}

func TestTickPollerGivesUpOnOtherErrors(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	stub := &stubRunner{errs: []error{errors.New("exchange down")}}
	poller := NewTickPoller(tracer, stub, time.Hour)

	poller.tick(context.Background())

	if got := stub.calls.Load(); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestTickPollerNilRunner(t *testing.T) {
	t.Parallel()

	tracer := trace.NewNoopTracerProvider().Tracer("test")
	poller := NewTickPoller(tracer, nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}
