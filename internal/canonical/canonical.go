// Package canonical maps raw host log records to canonical JSON events.
//
// The transform is pure and total: it performs no I/O, touches no shared
// state, and never fails; malformed input degrades to a fallback field
// instead of erroring.
package canonical

import (
	"bytes"

	"github.com/segmentio/encoding/json"

	"github.com/crimson-sun/logship/internal/model"
)

// recordKey carries payloads that could not be flattened into the event:
// non-object JSON values, unparseable text, and fault messages.
const recordKey = "record"

// Canonicalize converts one raw record into its canonical event. The
// second return value is false for record kinds this system does not
// forward; callers skip those rather than enqueue a blank event.
func Canonicalize(rec model.RawLogRecord) (model.CanonicalEvent, bool) {
	switch rec.Kind {
	case model.KindFunction:
		ev := model.NewCanonicalEvent(rec.Time, "function")
		mergePayload(&ev, rec.Payload)
		return ev, true

	case model.KindPlatformStart:
		ev := model.NewCanonicalEvent(rec.Time, "platform_start")
		ev.Set("request_id", rec.RequestID)
		return ev, true

	case model.KindPlatformEnd:
		ev := model.NewCanonicalEvent(rec.Time, "platform_end")
		ev.Set("request_id", rec.RequestID)
		return ev, true

	case model.KindPlatformFault:
		// Fault payloads are forwarded verbatim, never JSON-parsed.
		ev := model.NewCanonicalEvent(rec.Time, "platform_fault")
		ev.Set(recordKey, rec.Payload)
		return ev, true

	case model.KindPlatformReport:
		ev := model.NewCanonicalEvent(rec.Time, "platform_report")
		ev.Set("request_id", rec.RequestID)
		if m := rec.Metrics; m != nil {
			ev.Set("duration_ms", m.DurationMs)
			ev.Set("billed_duration_ms", m.BilledDurationMs)
			ev.Set("memory_size_mb", m.MemorySizeMB)
			ev.Set("max_memory_used_mb", m.MaxMemoryUsedMB)
			if m.InitDurationMs != nil {
				ev.Set("init_duration_ms", *m.InitDurationMs)
			}
		}
		return ev, true

	default:
		return model.CanonicalEvent{}, false
	}
}

// mergePayload applies the JSON-unwrap heuristic to a function log body:
// object payloads are flattened one level into the event so the
// application's own fields (level, msg, ...) land at the top; a JSON null
// contributes nothing; any other valid JSON value is kept whole under
// "record"; unparseable text is preserved verbatim under "record" so no
// information is silently dropped.
func mergePayload(ev *model.CanonicalEvent, payload string) {
	data := []byte(payload)
	if !json.Valid(data) {
		ev.Set(recordKey, payload)
		return
	}

	trimmed := bytes.TrimSpace(data)
	switch {
	case trimmed[0] == '{':
		mergeObject(ev, trimmed)
	case bytes.Equal(trimmed, []byte("null")):
		// Null payloads contribute only t/type.
	default:
		ev.Set(recordKey, json.RawMessage(trimmed))
	}
}

// mergeObject copies every top-level key of an already-validated JSON
// object into the event, preserving the payload's own key order. Values
// stay in their original JSON shape via RawMessage. Reserved keys are
// dropped by Set.
func mergeObject(ev *model.CanonicalEvent, data []byte) {
	tok := json.NewTokenizer(data)
	for tok.Next() {
		if !tok.IsKey || tok.Depth != 1 {
			continue
		}
		key := string(tok.Value.Unquote())
		value, ok := nextValue(tok, data)
		if !ok {
			return
		}
		ev.Set(key, value)
	}
}

// nextValue advances tok past the value following the object key it is
// positioned on and returns that value's raw bytes. Scalars are a single
// token; objects and arrays stream their delimiters one by one, so
// composite values are recovered by byte offset once the matching close
// delimiter is reached.
func nextValue(tok *json.Tokenizer, data []byte) (json.RawMessage, bool) {
	for tok.Next() {
		switch tok.Delim {
		case ':':
			continue
		case 0:
			end := len(data) - tok.Remaining()
			return json.RawMessage(data[end-len(tok.Value) : end]), true
		case '{', '[':
			start := len(data) - tok.Remaining() - 1
			depth := 1
			for tok.Next() {
				switch tok.Delim {
				case '{', '[':
					depth++
				case '}', ']':
					depth--
					if depth == 0 {
						end := len(data) - tok.Remaining()
						return json.RawMessage(data[start:end]), true
					}
				}
			}
			return nil, false
		default:
			return nil, false
		}
	}
	return nil, false
}
