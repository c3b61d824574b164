package audit

import (
	"context"
	"log/slog"
	"time"
)

// drainTimeout bounds how long Run keeps flushing after its context ends.
const drainTimeout = 5 * time.Second

// Worker consumes events from a channel and hands each to every sink. A failing
// sink is logged and skipped; it never stops the worker.
type Worker struct {
	inbox  <-chan Event
	sinks  []Sink
	logger *slog.Logger
}

func NewWorker(inbox <-chan Event, logger *slog.Logger, sinks ...Sink) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{inbox: inbox, sinks: sinks, logger: logger}
}

// Run blocks until ctx is done, then flushes what is already queued.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case event := <-w.inbox:
			w.dispatch(ctx, event)
		}
	}
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case event := <-w.inbox:
			w.dispatch(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, event Event) {
	for _, sink := range w.sinks {
		if err := sink.Write(ctx, event); err != nil {
			w.logger.WarnContext(ctx, "audit sink write failed",
				"action", event.Action,
				"event_id", event.ID,
				"error", err,
			)
		}
	}
}
