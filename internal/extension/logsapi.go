package extension

import (
	"log/slog"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/crimson-sun/logship/internal/model"
)

// Log types of the host's Logs API wire format.
const (
	logTypeFunction       = "function"
	logTypePlatformStart  = "platform.start"
	logTypePlatformEnd    = "platform.end"
	logTypePlatformFault  = "platform.fault"
	logTypePlatformReport = "platform.report"
)

// wireRecord is one element of the JSON array the host POSTs to the
// listener. Record's shape depends on Type: a plain string for function
// and fault logs, an object for platform lifecycle events.
type wireRecord struct {
	Time   string          `json:"time"`
	Type   string          `json:"type"`
	Record json.RawMessage `json:"record"`
}

type wireLifecycle struct {
	RequestID string `json:"requestId"`
}

type wireReport struct {
	RequestID string      `json:"requestId"`
	Metrics   wireMetrics `json:"metrics"`
}

type wireMetrics struct {
	DurationMs       float64  `json:"durationMs"`
	BilledDurationMs int64    `json:"billedDurationMs"`
	MemorySizeMB     int64    `json:"memorySizeMB"`
	MaxMemoryUsedMB  int64    `json:"maxMemoryUsedMB"`
	InitDurationMs   *float64 `json:"initDurationMs"`
}

// decodeBatch converts one POSTed batch into raw records, batch order
// preserved. Unknown or undecodable entries become KindUnknown records,
// which the canonicalizer skips; a bad entry never fails the batch.
func decodeBatch(wire []wireRecord) []model.RawLogRecord {
	batch := make([]model.RawLogRecord, 0, len(wire))
	for _, wr := range wire {
		batch = append(batch, decodeRecord(wr))
	}
	return batch
}

func decodeRecord(wr wireRecord) model.RawLogRecord {
	rec := model.RawLogRecord{Time: parseTime(wr.Time)}

	switch wr.Type {
	case logTypeFunction:
		rec.Kind = model.KindFunction
		rec.Payload = decodeText(wr.Record)

	case logTypePlatformStart:
		rec.Kind = model.KindPlatformStart
		rec.RequestID = decodeLifecycle(wr.Record)

	case logTypePlatformEnd:
		rec.Kind = model.KindPlatformEnd
		rec.RequestID = decodeLifecycle(wr.Record)

	case logTypePlatformFault:
		rec.Kind = model.KindPlatformFault
		rec.Payload = decodeText(wr.Record)

	case logTypePlatformReport:
		var report wireReport
		if err := json.Unmarshal(wr.Record, &report); err != nil {
			slog.Debug("skipping undecodable platform report", "error", err)
			return model.RawLogRecord{Time: rec.Time}
		}
		rec.Kind = model.KindPlatformReport
		rec.RequestID = report.RequestID
		rec.Metrics = &model.ReportMetrics{
			DurationMs:       report.Metrics.DurationMs,
			BilledDurationMs: report.Metrics.BilledDurationMs,
			MemorySizeMB:     report.Metrics.MemorySizeMB,
			MaxMemoryUsedMB:  report.Metrics.MaxMemoryUsedMB,
			InitDurationMs:   report.Metrics.InitDurationMs,
		}

	default:
		// Extension logs and future platform event types are not forwarded.
	}
	return rec
}

// decodeText unwraps a JSON string record. Function and fault records
// are JSON strings on the wire; anything else is kept as raw text so the
// canonicalizer's lossless fallback still applies.
func decodeText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw)
	}
	return s
}

func decodeLifecycle(raw json.RawMessage) string {
	var lc wireLifecycle
	if err := json.Unmarshal(raw, &lc); err != nil {
		slog.Debug("skipping undecodable lifecycle record", "error", err)
	}
	return lc.RequestID
}

// parseTime accepts the host's RFC3339 timestamps. An unparseable time
// falls back to the arrival time rather than dropping the record.
func parseTime(s string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Now().UTC()
	}
	return ts
}
