package pipeline

import (
	"context"
	"fmt"

	"github.com/crimson-sun/logship/internal/canonical"
	"github.com/crimson-sun/logship/internal/model"
)

// Handler is the inbound entry point: the host collaborator calls Handle
// once per delivered batch. Batches may arrive concurrently; each call
// processes its own batch to completion before returning.
type Handler struct {
	queue *Queue
}

// NewHandler creates a handler feeding the given queue.
func NewHandler(q *Queue) *Handler {
	return &Handler{queue: q}
}

// Handle canonicalizes each record in batch order and enqueues the
// results, preserving the batch-internal order on the queue. A full
// queue blocks here, which pushes backpressure up to the host's delivery
// mechanism. If the queue has been closed the whole batch fails; events
// already enqueued from the same batch are not rolled back and no record
// is enqueued twice.
func (h *Handler) Handle(ctx context.Context, batch []model.RawLogRecord) error {
	for _, rec := range batch {
		ev, ok := canonical.Canonicalize(rec)
		if !ok {
			continue
		}
		if err := h.queue.Enqueue(ctx, ev); err != nil {
			return fmt.Errorf("enqueue %s record: %w", rec.Kind, err)
		}
	}
	return nil
}
