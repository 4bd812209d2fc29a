package model

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/encoding/json"
)

// Reserved event keys. They are seeded at construction and can never be
// overwritten by merged payload fields.
const (
	KeyTime = "t"
	KeyType = "type"
)

type field struct {
	key   string
	value any
}

// CanonicalEvent is the normalized JSON representation of one log record.
// It behaves as an insertion-ordered JSON object: fields marshal in the
// order they were set, with the reserved `t` (milliseconds since epoch)
// and `type` fields always first.
type CanonicalEvent struct {
	fields []field
}

// NewCanonicalEvent seeds an event with its reserved timestamp and type
// fields.
func NewCanonicalEvent(ts time.Time, kind string) CanonicalEvent {
	return CanonicalEvent{fields: []field{
		{key: KeyTime, value: ts.UnixMilli()},
		{key: KeyType, value: kind},
	}}
}

// Set inserts or replaces a field. Setting an existing key updates the
// value in place, keeping the original position. Reserved keys are
// silently ignored: a payload field named "t" or "type" never clobbers
// the event's own metadata.
func (e *CanonicalEvent) Set(key string, value any) {
	if key == KeyTime || key == KeyType {
		return
	}
	for i := range e.fields {
		if e.fields[i].key == key {
			e.fields[i].value = value
			return
		}
	}
	e.fields = append(e.fields, field{key: key, value: value})
}

// Get returns the value stored under key, and whether it exists.
func (e CanonicalEvent) Get(key string) (any, bool) {
	for _, f := range e.fields {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

// Len returns the number of fields, reserved keys included.
func (e CanonicalEvent) Len() int {
	return len(e.fields)
}

var bufPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// MarshalJSON encodes the event as a single JSON object with fields in
// insertion order.
func (e CanonicalEvent) MarshalJSON() ([]byte, error) {
	buf := bufPool.Get().(*bytes.Buffer)
	defer bufPool.Put(buf)
	buf.Reset()

	buf.WriteByte('{')
	for i, f := range e.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.key)
		if err != nil {
			return nil, fmt.Errorf("canonical event: marshal key %q: %w", f.key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("canonical event: marshal field %q: %w", f.key, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
