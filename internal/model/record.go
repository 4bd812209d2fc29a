package model

import "time"

// Kind identifies which host-defined variant a RawLogRecord carries.
type Kind int

const (
	// KindUnknown absorbs host record types this system does not forward
	// (extension logs, future platform events). Records of this kind
	// produce no canonical event.
	KindUnknown Kind = iota
	KindFunction
	KindPlatformStart
	KindPlatformEnd
	KindPlatformFault
	KindPlatformReport
)

// String returns the kind's name for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindPlatformStart:
		return "platform_start"
	case KindPlatformEnd:
		return "platform_end"
	case KindPlatformFault:
		return "platform_fault"
	case KindPlatformReport:
		return "platform_report"
	default:
		return "unknown"
	}
}

// ReportMetrics holds the per-invocation metrics of a platform report.
type ReportMetrics struct {
	DurationMs       float64
	BilledDurationMs int64
	MemorySizeMB     int64
	MaxMemoryUsedMB  int64
	// InitDurationMs is nil when the host reported no init phase.
	// Absence is distinct from zero.
	InitDurationMs *float64
}

// RawLogRecord is one log record as delivered by the host, before
// normalization. Which fields are populated depends on Kind: Payload for
// function and platform_fault records, RequestID for the platform
// start/end/report records, Metrics for platform_report only.
type RawLogRecord struct {
	Time      time.Time
	Kind      Kind
	Payload   string
	RequestID string
	Metrics   *ReportMetrics
}
