package result

import "fmt"

// Stable error codes shared across the framework. Domain commands add
// their own codes on top; these cover the framework-level failure modes.
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeCommandNotFound    = "COMMAND_NOT_FOUND"
	CodeExecutionError     = "COMMAND_EXECUTION_ERROR"
	CodeVariableResolution = "VARIABLE_RESOLUTION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeTimeout            = "TIMEOUT"
	CodeCancelled          = "CANCELLED"
)

// Transport-layer codes. These only ever appear in Remote mode and are
// namespaced with a TRANSPORT_ prefix so callers can tell "the command
// failed" apart from "the network failed".
const (
	CodeTransportConnection = "TRANSPORT_CONNECTION_FAILED"
	CodeTransportTimeout    = "TRANSPORT_TIMEOUT"
	CodeTransportMalformed  = "TRANSPORT_MALFORMED_RESPONSE"
	CodeTransportProtocol   = "TRANSPORT_PROTOCOL_ERROR"
)

// IsTransportCode reports whether code belongs to the transport range.
func IsTransportCode(code string) bool {
	switch code {
	case CodeTransportConnection, CodeTransportTimeout,
		CodeTransportMalformed, CodeTransportProtocol:
		return true
	}
	return false
}

// ValidationError builds a failed result for input rejected before the
// handler ran. Never retryable.
func ValidationError(message string, issues []string) CommandResult {
	return Fail(CommandError{
		Code:       CodeValidationError,
		Message:    message,
		Suggestion: "Fix the listed input fields and call the command again",
		Details:    map[string]any{"issues": issues},
	}.WithRetryable(false))
}

// NotFoundError builds a failed result for a missing resource.
func NotFoundError(kind, id string) CommandResult {
	return Fail(CommandError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s %q not found", kind, id),
		Suggestion: fmt.Sprintf("Check the %s id and try again, or list existing entries first", kind),
	}.WithRetryable(false))
}

// TimeoutError builds a failed result for an operation that exceeded its
// deadline. Retryable, since a later attempt may be faster.
func TimeoutError(what string) CommandResult {
	return Fail(CommandError{
		Code:       CodeTimeout,
		Message:    what + " timed out",
		Suggestion: "Increase the timeout or retry when the system is less loaded",
	}.WithRetryable(true))
}

// TransportError builds a failed result for a Remote-mode channel failure.
// The code must come from the TRANSPORT_ range.
func TransportError(code, message string) CommandResult {
	retryable := code == CodeTransportConnection || code == CodeTransportTimeout
	return Fail(CommandError{
		Code:       code,
		Message:    message,
		Suggestion: "Check that the daemon is running and reachable, then retry",
	}.WithRetryable(retryable))
}

// Check verifies the envelope invariants: success carries no error,
// failure carries an error and no data, and confidence stays in [0,1].
// Violations are programmer errors in a handler, not runtime conditions,
// so Check is mainly used by tests and debug assertions.
func (r CommandResult) Check() error {
	if r.Success && r.Error != nil {
		return fmt.Errorf("successful result carries error %q", r.Error.Code)
	}
	if !r.Success {
		if r.Error == nil {
			return fmt.Errorf("failed result carries no error")
		}
		if r.Data != nil {
			return fmt.Errorf("failed result carries data")
		}
		if r.Error.Code == "" {
			return fmt.Errorf("error code is empty")
		}
	}
	if r.Confidence != nil && (*r.Confidence < 0 || *r.Confidence > 1) {
		return fmt.Errorf("confidence %v outside [0,1]", *r.Confidence)
	}
	return nil
}
