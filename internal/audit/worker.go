package audit

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Worker decouples audit producers from sink latency. Entries are enqueued
// without blocking and fanned out to every configured sink (durable store,
// Kafka publisher) from a single background goroutine.
type Worker struct {
	inbox   chan Entry
	sinks   []Sink
	logger  *slog.Logger
	dropped func()
}

// NewWorker creates a worker with the given buffer size. dropped is invoked
// when the buffer is full and an entry has to be discarded; pass nil to
// ignore.
func NewWorker(buffer int, logger *slog.Logger, dropped func(), sinks ...Sink) *Worker {
	if buffer <= 0 {
		buffer = 64
	}
	return &Worker{
		inbox:   make(chan Entry, buffer),
		sinks:   sinks,
		logger:  logger,
		dropped: dropped,
	}
}

// Append enqueues an entry without blocking. Implements Sink so a Recorder
// can write straight into the worker.
func (w *Worker) Append(_ context.Context, entry Entry) error {
	select {
	case w.inbox <- entry:
		return nil
	default:
		if w.dropped != nil {
			w.dropped()
		}
		if w.logger != nil {
			w.logger.Warn("audit buffer full, entry dropped",
				"operation", string(entry.Operation),
			)
		}
		return nil
	}
}

// Run consumes the inbox until ctx is cancelled, draining buffered entries
// before returning. Sink failures are logged per sink and do not stop the
// worker.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case entry := <-w.inbox:
			w.dispatch(ctx, entry)
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case entry := <-w.inbox:
			w.dispatch(context.Background(), entry)
		default:
			return
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, entry Entry) {
	g, ctx := errgroup.WithContext(ctx)
	for _, sink := range w.sinks {
		g.Go(func() error {
			if err := sink.Append(ctx, entry); err != nil && w.logger != nil {
				w.logger.ErrorContext(ctx, "audit sink append failed",
					"operation", string(entry.Operation),
					"error", err,
				)
			}
			// Sink errors are reported, not propagated: one bad sink must
			// not starve the others.
			return nil
		})
	}
	_ = g.Wait()
}
