// Package result defines the envelope every command returns. The envelope
// carries either data or a structured error, plus optional trust metadata
// (confidence, reasoning, sources, alternatives) that renderers and agents
// may surface but must never treat as a correctness signal.
package result

import "time"

// Severity classifies how loudly a warning should be surfaced.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityCaution Severity = "caution"
)

// Warning is a non-fatal note attached to an otherwise successful result.
type Warning struct {
	Code     string   `json:"code,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity,omitempty"`
}

// Source records where a piece of information came from.
type Source struct {
	Type      string   `json:"type"`
	ID        string   `json:"id,omitempty"`
	Title     string   `json:"title,omitempty"`
	URL       string   `json:"url,omitempty"`
	Relevance *float64 `json:"relevance,omitempty"`
}

// Alternative is a ranked, non-chosen result the caller may prefer.
// Slices of Alternative are ordered highest relevance first.
type Alternative struct {
	Data       any     `json:"data"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// Metadata carries execution bookkeeping for debugging and correlation.
type Metadata struct {
	ExecutionTimeMS float64   `json:"executionTimeMs,omitempty"`
	TraceID         string    `json:"traceId,omitempty"`
	CommandVersion  string    `json:"commandVersion,omitempty"`
	Timestamp       time.Time `json:"timestamp,omitzero"`
}

// CommandError is a structured, actionable failure description.
// Code is a stable machine-readable token (SCREAMING_SNAKE_CASE), never
// free text. Message is for humans. Suggestion tells the caller what to
// do next; a bare code with no guidance is a quality defect.
type CommandError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Suggestion string         `json:"suggestion,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Retryable  *bool          `json:"retryable,omitempty"`
}

// Error implements the error interface so a CommandError can travel
// through error-shaped plumbing when needed.
func (e *CommandError) Error() string {
	return e.Code + ": " + e.Message
}

// WithSuggestion returns a copy with recovery guidance attached.
func (e CommandError) WithSuggestion(s string) CommandError {
	e.Suggestion = s
	return e
}

// WithDetails returns a copy with technical details attached.
func (e CommandError) WithDetails(d map[string]any) CommandError {
	e.Details = d
	return e
}

// WithRetryable returns a copy with the retryable flag set.
func (e CommandError) WithRetryable(v bool) CommandError {
	e.Retryable = &v
	return e
}

// CommandResult is the universal success/failure envelope.
//
// Callers must branch on Success before touching Data or Error. Success
// with nil Data is legal (a delete has nothing to return); the presence
// of Data alone never implies success.
type CommandResult struct {
	Success bool          `json:"success"`
	Data    any           `json:"data,omitempty"`
	Error   *CommandError `json:"error,omitempty"`

	Confidence   *float64      `json:"confidence,omitempty"`
	Reasoning    string        `json:"reasoning,omitempty"`
	Sources      []Source      `json:"sources,omitempty"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
	Warnings     []Warning     `json:"warnings,omitempty"`
	Suggestions  []string      `json:"suggestions,omitempty"`

	Metadata *Metadata `json:"metadata,omitempty"`
}

// Ok creates a successful result wrapping data. Data may be nil.
func Ok(data any) CommandResult {
	return CommandResult{Success: true, Data: data}
}

// Fail creates a failed result from an error value.
func Fail(err CommandError) CommandResult {
	return CommandResult{Success: false, Error: &err}
}

// Failf creates a failed result from a code and message.
func Failf(code, message string) CommandResult {
	return Fail(CommandError{Code: code, Message: message})
}

// WithConfidence returns a copy with a confidence score in [0,1].
func (r CommandResult) WithConfidence(c float64) CommandResult {
	r.Confidence = &c
	return r
}

// WithReasoning returns a copy with a human-readable explanation.
func (r CommandResult) WithReasoning(s string) CommandResult {
	r.Reasoning = s
	return r
}

// WithWarnings returns a copy with warnings attached.
func (r CommandResult) WithWarnings(ws ...Warning) CommandResult {
	r.Warnings = append(r.Warnings[:len(r.Warnings):len(r.Warnings)], ws...)
	return r
}

// WithSources returns a copy with sources attached.
func (r CommandResult) WithSources(ss ...Source) CommandResult {
	r.Sources = append(r.Sources[:len(r.Sources):len(r.Sources)], ss...)
	return r
}

// WithAlternatives returns a copy with ranked alternatives attached.
// Order matters: highest relevance first.
func (r CommandResult) WithAlternatives(as ...Alternative) CommandResult {
	r.Alternatives = append(r.Alternatives[:len(r.Alternatives):len(r.Alternatives)], as...)
	return r
}

// WithSuggestions returns a copy with next-step hints attached.
func (r CommandResult) WithSuggestions(ss ...string) CommandResult {
	r.Suggestions = append(r.Suggestions[:len(r.Suggestions):len(r.Suggestions)], ss...)
	return r
}

// WithMetadata returns a copy with execution metadata attached.
func (r CommandResult) WithMetadata(m Metadata) CommandResult {
	r.Metadata = &m
	return r
}

// IsSuccess reports whether the result succeeded.
func (r CommandResult) IsSuccess() bool { return r.Success }

// IsFailure reports whether the result failed with a structured error.
func (r CommandResult) IsFailure() bool { return !r.Success && r.Error != nil }

// ErrorCode returns the error code, or "" for successful results.
func (r CommandResult) ErrorCode() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Code
}
