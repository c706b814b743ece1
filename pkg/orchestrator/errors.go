// Package orchestrator wires the Session Manager, abuse guards, FSM,
// advisors, sanitizer, outbound enqueue and audit trail into the single
// inbound webhook pipeline (C13).
package orchestrator

import "fmt"

// ErrorCode names a member of the fatal-error taxonomy the HTTP layer
// translates directly into a status code.
type ErrorCode string

const (
	ErrCodeInvalidSignature ErrorCode = "invalid_signature"
	ErrCodeInvalidJSON      ErrorCode = "invalid_json"
	ErrCodeBatchTooLarge    ErrorCode = "batch_too_large"
)

// PipelineError is a fatal, whole-request failure: one of these aborts
// ProcessWebhook before any per-message work begins, and its HTTPStatus is
// what the webhook handler returns. Per-message failures (dedupe errors,
// session conflicts, LLM timeouts, audit chain exhaustion) never reach
// here; they are recorded on the WebhookProcessingSummary instead, since
// one bad message must not fail the whole batch.
type PipelineError struct {
	Code       ErrorCode
	HTTPStatus int
	Err        error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("orchestrator: %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("orchestrator: %s", e.Code)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func newPipelineError(code ErrorCode, status int, err error) *PipelineError {
	return &PipelineError{Code: code, HTTPStatus: status, Err: err}
}
