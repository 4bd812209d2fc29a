package logship

import (
	"time"

	"github.com/crimson-sun/logship/internal/model"
)

// Kind identifies a record variant.
type Kind int

// Record variants. Kinds outside this set are skipped without error.
const (
	KindFunction Kind = iota + 1
	KindPlatformStart
	KindPlatformEnd
	KindPlatformFault
	KindPlatformReport
)

// ReportMetrics holds per-invocation metrics for platform report
// records. InitDurationMs is nil when no init phase was reported.
type ReportMetrics struct {
	DurationMs       float64
	BilledDurationMs int64
	MemorySizeMB     int64
	MaxMemoryUsedMB  int64
	InitDurationMs   *float64
}

// Record is one raw log record handed to Deliver. It is the stable
// public type; internal representations may evolve independently.
type Record struct {
	Time      time.Time
	Kind      Kind
	Payload   string         // function and platform_fault records
	RequestID string         // platform start/end/report records
	Metrics   *ReportMetrics // platform_report only
}

func (r Record) internal() model.RawLogRecord {
	rec := model.RawLogRecord{
		Time:      r.Time,
		Payload:   r.Payload,
		RequestID: r.RequestID,
	}
	switch r.Kind {
	case KindFunction:
		rec.Kind = model.KindFunction
	case KindPlatformStart:
		rec.Kind = model.KindPlatformStart
	case KindPlatformEnd:
		rec.Kind = model.KindPlatformEnd
	case KindPlatformFault:
		rec.Kind = model.KindPlatformFault
	case KindPlatformReport:
		rec.Kind = model.KindPlatformReport
	default:
		rec.Kind = model.KindUnknown
	}
	if r.Metrics != nil {
		rec.Metrics = &model.ReportMetrics{
			DurationMs:       r.Metrics.DurationMs,
			BilledDurationMs: r.Metrics.BilledDurationMs,
			MemorySizeMB:     r.Metrics.MemorySizeMB,
			MaxMemoryUsedMB:  r.Metrics.MaxMemoryUsedMB,
			InitDurationMs:   r.Metrics.InitDurationMs,
		}
	}
	return rec
}
