// Package flowlog records every transition a confirmation flow goes through.
//
// The log is append-only. It answers "what happened to the order the user
// confirmed on screen X" and links each row to the distributed trace that
// produced it through trace_id.
package flowlog

import "time"

// Status is the transition an entry records.
type Status string

const (
	StatusStarted          Status = "STARTED"
	StatusNavigated        Status = "NAVIGATED"
	StatusPaymentInitiated Status = "PAYMENT_INITIATED"
	StatusPaymentRejected  Status = "PAYMENT_REJECTED"
	StatusNoop             Status = "NOOP"
	StatusFailed           Status = "FAILED"
)

// Entry is a single row in the flow_logs table.
type Entry struct {
	// FlowID identifies the confirmation screen instance.
	FlowID string

	Status Status

	// RequestType is the request type tag the screen was mounted with.
	RequestType string

	// Route is the navigation target, set on NAVIGATED rows.
	Route string

	// Payload is the JSON outcome or navigation payload of the transition.
	Payload string

	// ErrorMessages is a JSON array of failure details.
	ErrorMessages string

	// TraceID and SpanID come from the OpenTelemetry span active when the
	// entry was written.
	TraceID string
	SpanID  string

	UpdatedAt time.Time
}
