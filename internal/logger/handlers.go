package logger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// fanout duplicates each record to every sink that accepts its level.
// Records are cloned per sink so one sink's mutations never leak into
// another.
type fanout struct {
	sinks []slog.Handler
}

func newFanout(sinks ...slog.Handler) *fanout {
	kept := make([]slog.Handler, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &fanout{sinks: kept}
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range f.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range f.sinks {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.sinks))
	for i, s := range f.sinks {
		next[i] = s.WithAttrs(attrs)
	}
	return &fanout{sinks: next}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.sinks))
	for i, s := range f.sinks {
		next[i] = s.WithGroup(name)
	}
	return &fanout{sinks: next}
}

const (
	shipQueueSize   = 1024
	shipDrainWindow = 5 * time.Second
)

// shipment pairs a record with the handler state it was logged against,
// so attrs and groups applied before enqueue survive the hop to the
// drain goroutine.
type shipment struct {
	ctx context.Context
	rec slog.Record
	out slog.Handler
}

// shipQueue owns the goroutine that forwards buffered records to the
// remote sink. Handlers derived through WithAttrs and WithGroup share
// one queue, so a single Shutdown drains them all.
type shipQueue struct {
	ch      chan shipment
	stopped atomic.Bool
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

func newShipQueue() *shipQueue {
	q := &shipQueue{ch: make(chan shipment, shipQueueSize)}
	q.wg.Add(1)
	go q.drain()
	return q
}

func (q *shipQueue) drain() {
	defer q.wg.Done()
	for s := range q.ch {
		// Shipping failures are swallowed: the local JSON sink already
		// has the record, and erroring here has no caller to reach.
		_ = s.out.Handle(s.ctx, s.rec)
	}
}

// put enqueues without blocking. When the queue is full or already
// stopped the record is dropped and counted.
func (q *shipQueue) put(ctx context.Context, rec slog.Record, out slog.Handler) {
	if q.stopped.Load() {
		q.dropped.Add(1)
		return
	}
	select {
	case q.ch <- shipment{ctx: ctx, rec: rec, out: out}:
	default:
		q.dropped.Add(1)
	}
}

// close stops intake and waits for the drain goroutine, bounded by the
// context deadline or the default drain window.
func (q *shipQueue) close(ctx context.Context) error {
	if q.stopped.Swap(true) {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, shipDrainWindow)
		defer cancel()
	}
	close(q.ch)

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AsyncHandler ships records to a remote sink off the logging
// goroutine. Enqueueing never blocks; records are dropped when the
// remote cannot keep up.
type AsyncHandler struct {
	queue *shipQueue
	out   slog.Handler
}

// NewAsyncHandler wraps out with a buffered shipping queue.
func NewAsyncHandler(out slog.Handler) *AsyncHandler {
	return &AsyncHandler{queue: newShipQueue(), out: out}
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.out.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	h.queue.put(ctx, r.Clone(), h.out)
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{queue: h.queue, out: h.out.WithAttrs(attrs)}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{queue: h.queue, out: h.out.WithGroup(name)}
}

// Shutdown flushes buffered records. Safe to call on a nil handler.
func (h *AsyncHandler) Shutdown(ctx context.Context) error {
	if h == nil {
		return nil
	}
	return h.queue.close(ctx)
}

// Dropped reports how many records were discarded because the queue
// was full or already shut down.
func (h *AsyncHandler) Dropped() uint64 {
	return h.queue.dropped.Load()
}
