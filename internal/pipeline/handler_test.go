package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/crimson-sun/logship/internal/model"
)

func functionBatch(n int) []model.RawLogRecord {
	batch := make([]model.RawLogRecord, n)
	for i := range batch {
		batch[i] = model.RawLogRecord{
			Time:    time.Unix(int64(i), 0),
			Kind:    model.KindFunction,
			Payload: fmt.Sprintf(`{"seq":%d}`, i),
		}
	}
	return batch
}

func TestHandlePreservesBatchOrder(t *testing.T) {
	q := NewQueue(64)
	h := NewHandler(q)

	if err := h.Handle(context.Background(), functionBatch(10)); err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	q.Close()

	i := 0
	for ev := range q.Events() {
		seq, ok := ev.Get("seq")
		if !ok {
			t.Fatal("expected seq field")
		}
		want := fmt.Sprintf("%d", i)
		if fmt.Sprintf("%s", seq) != want {
			t.Fatalf("order broken at %d: got %v", i, seq)
		}
		i++
	}
	if i != 10 {
		t.Fatalf("expected 10 events, got %d", i)
	}
}

func TestHandleSkipsUnforwardedKinds(t *testing.T) {
	q := NewQueue(8)
	h := NewHandler(q)

	batch := []model.RawLogRecord{
		{Time: time.Unix(1, 0), Kind: model.KindUnknown, Payload: "extension noise"},
		{Time: time.Unix(2, 0), Kind: model.KindPlatformStart, RequestID: "req-1"},
	}
	if err := h.Handle(context.Background(), batch); err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	q.Close()

	var count int
	for range q.Events() {
		count++
	}
	if count != 1 {
		t.Fatalf("expected unknown kinds to be skipped, got %d events", count)
	}
}

func TestHandleFailsBatchOnClosedQueue(t *testing.T) {
	q := NewQueue(8)
	h := NewHandler(q)
	q.Close()

	err := h.Handle(context.Background(), functionBatch(3))
	if !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestHandleKeepsPartialProgress(t *testing.T) {
	// Capacity 2: the first two events fit, the third hits a cancelled
	// context. Already-enqueued events stay enqueued.
	q := NewQueue(2)
	h := NewHandler(q)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	err := h.Handle(ctx, functionBatch(3))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	q.Close()

	var count int
	for range q.Events() {
		count++
	}
	if count != 2 {
		t.Fatalf("expected 2 enqueued events to survive, got %d", count)
	}
}
