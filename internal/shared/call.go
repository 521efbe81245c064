package shared

import (
	"context"
	"time"
)

// CallMeta holds operational metadata for one call to an external collaborator.
type CallMeta struct {
	Collaborator string // "ocr.space", "gemini", "scraper", "firestore", "spoonacular"
	Operation    string
	Latency      time.Duration
	Err          error
}

// OK reports whether the call succeeded.
func (m CallMeta) OK() bool {
	return m.Err == nil
}

// CallRecorder receives the metadata of finished external calls.
type CallRecorder interface {
	RecordCall(ctx context.Context, meta CallMeta)
}

// Track times fn and reports its outcome to rec, which may be nil.
func Track(ctx context.Context, rec CallRecorder, collaborator, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	if rec != nil {
		rec.RecordCall(ctx, CallMeta{
			Collaborator: collaborator,
			Operation:    operation,
			Latency:      time.Since(start),
			Err:          err,
		})
	}
	return err
}
