package logship

import (
	"io"
	"time"
)

type options struct {
	queueCapacity int
	dialTimeout   time.Duration
	fallback      io.Writer
}

// Option configures a Shipper.
type Option func(*options)

// WithQueueCapacity sets the delivery queue's capacity. Deliver blocks
// once this many events are waiting for the writer. Default: 1024.
func WithQueueCapacity(n int) Option {
	return func(o *options) {
		o.queueCapacity = n
	}
}

// WithDialTimeout bounds the one-shot connection attempt made when the
// Shipper starts. Default: 5s.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) {
		o.dialTimeout = d
	}
}

// WithFallback sets the writer used when the log store is unreachable.
// Default: stdout.
func WithFallback(w io.Writer) Option {
	return func(o *options) {
		o.fallback = w
	}
}

func defaultOptions() options {
	return options{
		dialTimeout: 5 * time.Second,
	}
}
