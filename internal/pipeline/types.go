// Package pipeline chains commands so that later steps can reference
// earlier steps' outputs through $-tokens ($input, $first, $prev,
// $steps[n], $steps.alias). Steps run strictly in order; a step never
// starts before the previous one finished.
package pipeline

import (
	"github.com/lushly-dev/afd-sub004/internal/result"
)

// Status is the terminal state of a pipeline step.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusSkipped Status = "skipped"
)

// Step is a single command invocation inside a pipeline. Input values may
// contain reference tokens resolved against earlier steps before dispatch.
// As assigns an alias later steps can use via $steps.<alias>. When is an
// optional condition ($exists/$eq/$gt/...); a false condition skips the
// step without failing the pipeline.
type Step struct {
	Command string         `json:"command"`
	Input   map[string]any `json:"input,omitempty"`
	As      string         `json:"as,omitempty"`
	When    map[string]any `json:"when,omitempty"`
}

// Options control failure policy and timeouts.
type Options struct {
	// ContinueOnFailure runs every step regardless of earlier failures.
	// The default (false) is fail-fast: the first failure marks all
	// remaining steps skipped.
	ContinueOnFailure bool `json:"continueOnFailure,omitempty"`

	// TimeoutMS bounds the whole pipeline. Zero means no limit.
	TimeoutMS int64 `json:"timeoutMs,omitempty"`

	// StepTimeoutMS bounds each individual dispatch. Zero means no limit.
	StepTimeoutMS int64 `json:"stepTimeoutMs,omitempty"`
}

// Request is an ordered list of steps plus pipeline-level input
// (reachable from steps as $input).
type Request struct {
	ID      string         `json:"id,omitempty"`
	Steps   []Step         `json:"steps"`
	Options Options        `json:"options,omitempty"`
	Input   map[string]any `json:"input,omitempty"`
}

// StepResult records the outcome of one step. Result is absent for
// skipped steps; SkipReason says why a step was skipped.
type StepResult struct {
	Index           int                   `json:"index"`
	Command         string                `json:"command"`
	Alias           string                `json:"alias,omitempty"`
	Status          Status                `json:"status"`
	Result          *result.CommandResult `json:"result,omitempty"`
	ExecutionTimeMS float64               `json:"executionTimeMs"`
	SkipReason      string                `json:"skipReason,omitempty"`
}

// data returns the step's output payload, or false when the step has
// none (failed or skipped steps produce no referenceable data).
func (s StepResult) data() (any, bool) {
	if s.Status != StatusSuccess || s.Result == nil {
		return nil, false
	}
	return s.Result.Data, true
}

// StepConfidence is one entry of the per-step confidence breakdown.
type StepConfidence struct {
	Step       int     `json:"step"`
	Alias      string  `json:"alias,omitempty"`
	Command    string  `json:"command"`
	Confidence float64 `json:"confidence"`
}

// Result is the aggregate outcome of a pipeline run. Confidence is the
// minimum of all present per-step confidences: a pipeline is only as
// confident as its weakest link.
type Result struct {
	Success             bool             `json:"success"`
	Data                any              `json:"data,omitempty"`
	Confidence          float64          `json:"confidence"`
	Steps               []StepResult     `json:"steps"`
	CompletedSteps      int              `json:"completedSteps"`
	TotalSteps          int              `json:"totalSteps"`
	ExecutionTimeMS     float64          `json:"executionTimeMs"`
	ConfidenceBreakdown []StepConfidence `json:"confidenceBreakdown,omitempty"`
}
