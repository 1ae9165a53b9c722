package audit

import (
	"context"
	"log/slog"
	"time"

	id "credtrust/pkg/domain"
	"credtrust/internal/platform/metrics"
)

// Recorder is the single entry point business services use to audit their
// operations. Appends are best-effort: a sink failure is logged and counted
// but never propagated, so audit trouble cannot mask or abort the business
// operation it describes.
type Recorder struct {
	sink    Sink
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithLogger sets the logger used for append failures.
func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) RecorderOption {
	return func(r *Recorder) { r.metrics = m }
}

// WithClock overrides the timestamp source. Test hook.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

func NewRecorder(sink Sink, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		sink: sink,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends an entry, stamping the timestamp when unset.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.sink == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now()
	}
	if client := ClientMetadata(userAgentFrom(ctx)); client != nil {
		if entry.Details.Metadata == nil {
			entry.Details.Metadata = make(map[string]string, len(client))
		}
		for k, v := range client {
			entry.Details.Metadata[k] = v
		}
	}
	if err := r.sink.Append(ctx, entry); err != nil {
		r.metrics.IncAuditAppendFailure()
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "audit append failed",
				"operation", string(entry.Operation),
				"result", string(entry.Details.Result),
				"error", err,
			)
		}
	}
}

// Pending writes the leading entry of a mutating operation.
func (r *Recorder) Pending(ctx context.Context, userID id.UserID, credentialID *id.CredentialID, op OperationType, action string) {
	r.Record(ctx, Entry{
		UserID:       userID,
		CredentialID: credentialID,
		Operation:    op,
		Details:      Details{Action: action, Result: ResultPending},
	})
}

// Succeeded writes the terminal success entry of an operation.
func (r *Recorder) Succeeded(ctx context.Context, entry Entry) {
	entry.Details.Result = ResultSuccess
	r.Record(ctx, entry)
}

// Failed writes the terminal failure entry of an operation.
func (r *Recorder) Failed(ctx context.Context, userID id.UserID, credentialID *id.CredentialID, op OperationType, action, errMsg string) {
	r.Record(ctx, Entry{
		UserID:       userID,
		CredentialID: credentialID,
		Operation:    op,
		Details:      Details{Action: action, Result: ResultFailure, ErrorMessage: errMsg},
	})
}
