package logship

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/crimson-sun/logship/internal/model"
	"github.com/crimson-sun/logship/internal/pipeline"
)

// ErrClosed is returned by Deliver after Close.
var ErrClosed = errors.New("logship: shipper closed")

// Shipper is a running normalization-and-delivery pipeline. Create once,
// share across producers; all delivered records flow through a single
// ordered writer.
type Shipper struct {
	queue     *pipeline.Queue
	handler   *pipeline.Handler
	forwarder *pipeline.Forwarder
	closeOnce sync.Once
}

// New starts a shipper targeting the log store at address (host:port).
// The connection attempt happens once, in the background: an unreachable
// store is not an error here, it permanently degrades output to the
// fallback writer.
func New(address string, opts ...Option) (*Shipper, error) {
	if address == "" {
		return nil, errors.New("logship: address is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	queue := pipeline.NewQueue(o.queueCapacity)
	fopts := []pipeline.ForwarderOption{pipeline.WithDialTimeout(o.dialTimeout)}
	if o.fallback != nil {
		fopts = append(fopts, pipeline.WithFallback(o.fallback))
	}
	forwarder := pipeline.NewForwarder(queue, address, fopts...)

	s := &Shipper{
		queue:     queue,
		handler:   pipeline.NewHandler(queue),
		forwarder: forwarder,
	}
	go func() {
		if err := forwarder.Run(context.Background()); err != nil {
			slog.Warn("logship: forwarder shutdown", "error", err)
		}
	}()
	return s, nil
}

// Deliver normalizes one batch of records and enqueues the resulting
// events in batch order. It blocks while the queue is full (the
// pipeline's backpressure) and fails the whole batch with ErrClosed once
// the shipper has been closed; events already enqueued from the batch
// are not rolled back.
func (s *Shipper) Deliver(ctx context.Context, batch []Record) error {
	internal := make([]model.RawLogRecord, len(batch))
	for i, r := range batch {
		internal[i] = r.internal()
	}
	if err := s.handler.Handle(ctx, internal); err != nil {
		if errors.Is(err, pipeline.ErrQueueClosed) {
			return ErrClosed
		}
		return err
	}
	return nil
}

// Close stops accepting records, waits for every already-queued event to
// be written, and releases the connection. Safe to call more than once.
func (s *Shipper) Close() error {
	s.closeOnce.Do(func() {
		s.queue.Close()
		<-s.forwarder.Done()
	})
	return nil
}
