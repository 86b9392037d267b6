package broker

import "encoding/json"

// ResultStatus tags which variant an ActionResult holds.
type ResultStatus string

const (
	StatusSuccess      ResultStatus = "success"
	StatusAuthRequired ResultStatus = "authentication_required"
	StatusFailure      ResultStatus = "failure"
)

// ActionResult is the single outcome type every invocation resolves to.
// Exactly one variant is populated; callers switch on Status and never see
// an ambiguous or partial state.
type ActionResult struct {
	Status ResultStatus `json:"status"`

	// Payload holds the broker's response content when Status is success.
	Payload json.RawMessage `json:"payload,omitempty"`

	// ReconnectURL is set when Status is authentication_required. It is
	// always usable as-is; the UI layer surfaces it to the end user.
	ReconnectURL string `json:"reconnect_url,omitempty"`

	// ErrorKind and Message describe the failure variant. Message is written
	// for humans, never a raw stack trace.
	ErrorKind Kind   `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`

	// UnsafeToRetry marks a failed non-idempotent invocation whose request
	// may have been accepted by the broker before the response was lost.
	UnsafeToRetry bool `json:"unsafe_to_retry,omitempty"`
}

func Success(payload json.RawMessage) *ActionResult {
	return &ActionResult{Status: StatusSuccess, Payload: payload}
}

func AuthRequired(reconnectURL string) *ActionResult {
	return &ActionResult{Status: StatusAuthRequired, ReconnectURL: reconnectURL}
}

func Failed(kind Kind, message string) *ActionResult {
	return &ActionResult{Status: StatusFailure, ErrorKind: kind, Message: message}
}

func (r *ActionResult) IsSuccess() bool {
	return r.Status == StatusSuccess
}

func (r *ActionResult) NeedsAuthentication() bool {
	return r.Status == StatusAuthRequired
}
