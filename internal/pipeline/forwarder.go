package pipeline

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/segmentio/encoding/json"
)

const defaultDialTimeout = 5 * time.Second

// ForwarderOption configures a Forwarder.
type ForwarderOption func(*Forwarder)

// WithDialTimeout bounds the one-shot connection attempt. Default: 5s.
func WithDialTimeout(d time.Duration) ForwarderOption {
	return func(f *Forwarder) { f.dialTimeout = d }
}

// WithFallback overrides the degraded-mode destination. Default: stdout.
func WithFallback(w io.Writer) ForwarderOption {
	return func(f *Forwarder) { f.fallback = w }
}

// Forwarder is the queue's single consumer. It owns the outbound
// connection (or its absence) for the entire process lifetime and writes
// each dequeued event as one newline-terminated JSON line, so wire order
// equals enqueue order by construction.
type Forwarder struct {
	queue       *Queue
	addr        string
	dialTimeout time.Duration
	fallback    io.Writer
	done        chan struct{}
}

// NewForwarder creates a forwarder draining q to the log store at addr.
func NewForwarder(q *Queue, addr string, opts ...ForwarderOption) *Forwarder {
	f := &Forwarder{
		queue:       q,
		addr:        addr,
		dialTimeout: defaultDialTimeout,
		fallback:    os.Stdout,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run dials the log store exactly once, then drains the queue until the
// producer side is closed and every queued event has been written. A
// failed dial degrades permanently to the fallback writer; no reconnect
// is ever attempted. A failed write or flush drops that one event with a
// diagnostic and moves on; a transient error must not stall the events
// behind it. Run returns nil once the queue is drained; a failure while
// shutting the socket down is logged, never propagated, so a dirty close
// cannot turn a clean drain into a process failure.
func (f *Forwarder) Run(ctx context.Context) error {
	defer close(f.done)

	dialer := net.Dialer{Timeout: f.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", f.addr)
	if err != nil {
		slog.Warn("log store unreachable, falling back to stdout",
			"address", f.addr, "error", err)
		f.drain(f.fallback, false)
		return nil
	}
	slog.Info("connected to log store", "address", f.addr)

	f.drain(conn, true)

	if err := conn.Close(); err != nil {
		slog.Error("closing log store connection", "error", err)
	}
	return nil
}

// drain writes each queued event as one newline-terminated JSON line to
// dst until the queue closes. In buffered mode a failed write or flush
// resets the buffered writer before the next event, clearing bufio's
// sticky error so one bad write never condemns everything queued behind
// it.
func (f *Forwarder) drain(dst io.Writer, buffered bool) {
	var bw *bufio.Writer
	w := dst
	if buffered {
		bw = bufio.NewWriter(dst)
		w = bw
	}

	for ev := range f.queue.Events() {
		line, err := json.Marshal(ev)
		if err != nil {
			slog.Warn("dropping event: encode failed", "error", err)
			continue
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			slog.Warn("dropping event: write failed", "error", err)
			if bw != nil {
				bw.Reset(dst)
			}
			continue
		}
		if bw != nil {
			if err := bw.Flush(); err != nil {
				slog.Warn("dropping event: flush failed", "error", err)
				bw.Reset(dst)
			}
		}
	}
}

// Done is closed once Run has drained the queue and released the
// connection.
func (f *Forwarder) Done() <-chan struct{} {
	return f.done
}
