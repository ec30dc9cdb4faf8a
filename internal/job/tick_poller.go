package job

import (
	"context"
	"errors"
	"log"
	"time"

	"go.opentelemetry.io/otel/trace"

	"coindrift/internal/domain"
)

// retryDelay is the pause before re-polling after a window that was still
// filling up.
const retryDelay = time.Second

type TickRunner interface {
	RunTick(ctx context.Context) (domain.Action, error)
}

// TickPoller drives the evaluation loop at a fixed interval. Ticks run
// sequentially; a tick that outlives the interval simply delays the next one.
type TickPoller struct {
	tracer   trace.Tracer
	runner   TickRunner
	interval time.Duration
}

func NewTickPoller(tracer trace.Tracer, runner TickRunner, interval time.Duration) *TickPoller {
	return &TickPoller{
		tracer:   tracer,
		runner:   runner,
		interval: interval,
	}
}

// Start blocks until ctx is cancelled.
func (p *TickPoller) Start(ctx context.Context) {
	if p.runner == nil {
		log.Println("Tick poller disabled: no trade service")
		<-ctx.Done()
		return
	}

	log.Println("Tick poller starting...")
	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Tick poller stopped")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *TickPoller) tick(ctx context.Context) {
	ctx, span := p.tracer.Start(ctx, "tick-poller.tick")
	defer span.End()

	for {
		_, err := p.runner.RunTick(ctx)
		if err == nil {
			return
		}
		if errors.Is(err, domain.ErrInsufficientData) {
			// not enough history yet, retry shortly instead of waiting a
			// whole interval
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
				continue
			}
		}
		log.Printf("tick error: %v", err)
		return
	}
}
