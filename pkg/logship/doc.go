// Package logship provides an embeddable log-shipping pipeline: it
// normalizes structured runtime log records into canonical JSON events
// and streams them, in order, over a persistent TCP connection to a log
// store, degrading to stdout when the store is unreachable.
//
// Quick start:
//
//	s, err := logship.New("logstore:4100")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	err = s.Deliver(ctx, []logship.Record{
//	    {Time: time.Now(), Kind: logship.KindFunction, Payload: `{"level":"info","msg":"hi"}`},
//	})
//
// A Shipper runs one background writer goroutine that owns the outbound
// connection for its entire life. Deliver is safe for concurrent use;
// it blocks when the internal queue is full, which is the pipeline's
// backpressure mechanism.
package logship
