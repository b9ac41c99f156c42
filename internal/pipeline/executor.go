package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/lushly-dev/afd-sub004/internal/result"
)

// Caller dispatches a single command invocation. Both the in-process and
// the remote client satisfy it, which is what makes pipelines behave
// identically in either mode.
type Caller interface {
	Call(ctx context.Context, command string, input map[string]any) result.CommandResult
}

// Execute runs the pipeline sequentially. Each step's input is resolved
// against the history of completed steps before dispatch; a resolution
// failure fails the step without invoking its command. Under the default
// fail-fast policy the first failure skips every remaining step.
func Execute(ctx context.Context, req Request, caller Caller) Result {
	if req.Options.TimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.Options.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	start := time.Now()
	hist := &history{input: req.Input}
	steps := make([]StepResult, 0, len(req.Steps))

	for i, step := range req.Steps {
		if err := ctx.Err(); err != nil {
			sr := failedStep(i, step, deadlineResult(err, "pipeline"))
			steps = append(steps, sr)
			hist.steps = append(hist.steps, sr)
			if !req.Options.ContinueOnFailure {
				steps = skipRemaining(steps, req.Steps, i+1,
					fmt.Sprintf("pipeline aborted at step %d (%s)", i, step.Command))
				break
			}
			continue
		}

		if step.When != nil && !hist.evalCondition(step.When) {
			sr := StepResult{
				Index:      i,
				Command:    step.Command,
				Alias:      step.As,
				Status:     StatusSkipped,
				SkipReason: "condition not met",
			}
			steps = append(steps, sr)
			hist.steps = append(hist.steps, sr)
			continue
		}

		input, err := hist.resolveInput(step.Input)
		if err != nil {
			sr := failedStep(i, step, resolutionResult(err, hist))
			steps = append(steps, sr)
			hist.steps = append(hist.steps, sr)
			if !req.Options.ContinueOnFailure {
				steps = skipRemaining(steps, req.Steps, i+1,
					fmt.Sprintf("step %d (%s) failed", i, step.Command))
				break
			}
			continue
		}

		stepStart := time.Now()
		res := dispatch(ctx, caller, step.Command, input, req.Options.StepTimeoutMS)
		elapsed := float64(time.Since(stepStart).Microseconds()) / 1000.0

		status := StatusSuccess
		if !res.Success {
			status = StatusFailure
		}
		sr := StepResult{
			Index:           i,
			Command:         step.Command,
			Alias:           step.As,
			Status:          status,
			Result:          &res,
			ExecutionTimeMS: elapsed,
		}
		steps = append(steps, sr)
		hist.steps = append(hist.steps, sr)

		if status == StatusFailure && !req.Options.ContinueOnFailure {
			steps = skipRemaining(steps, req.Steps, i+1,
				fmt.Sprintf("step %d (%s) failed", i, step.Command))
			break
		}
	}

	return aggregate(steps, len(req.Steps), time.Since(start))
}

// dispatch invokes the caller, bounding the wait when a step timeout is
// configured so a hung command cannot block the pipeline forever.
func dispatch(ctx context.Context, caller Caller, command string, input map[string]any, timeoutMS int64) result.CommandResult {
	if timeoutMS <= 0 {
		return caller.Call(ctx, command, input)
	}

	stepCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMS)*time.Millisecond)
	defer cancel()

	done := make(chan result.CommandResult, 1)
	go func() { done <- caller.Call(stepCtx, command, input) }()

	select {
	case res := <-done:
		return res
	case <-stepCtx.Done():
		return deadlineResult(stepCtx.Err(), fmt.Sprintf("step %q", command))
	}
}

func deadlineResult(err error, what string) result.CommandResult {
	if err == context.Canceled {
		return result.Fail(result.CommandError{
			Code:       result.CodeCancelled,
			Message:    what + " was cancelled",
			Suggestion: "Re-run the pipeline when ready",
		})
	}
	return result.TimeoutError(what)
}

func resolutionResult(err error, hist *history) result.CommandResult {
	token := ""
	if re, ok := err.(*ResolveError); ok {
		token = re.Token
	}
	return result.Fail(result.CommandError{
		Code:       result.CodeVariableResolution,
		Message:    err.Error(),
		Suggestion: "Reference an earlier step: " + hist.available(),
		Details: map[string]any{
			"token":   token,
			"aliases": hist.aliases(),
			"steps":   len(hist.steps),
		},
	}.WithRetryable(false))
}

func failedStep(i int, step Step, res result.CommandResult) StepResult {
	return StepResult{
		Index:   i,
		Command: step.Command,
		Alias:   step.As,
		Status:  StatusFailure,
		Result:  &res,
	}
}

func skipRemaining(steps []StepResult, defs []Step, from int, reason string) []StepResult {
	for j := from; j < len(defs); j++ {
		steps = append(steps, StepResult{
			Index:      j,
			Command:    defs[j].Command,
			Alias:      defs[j].As,
			Status:     StatusSkipped,
			SkipReason: reason,
		})
	}
	return steps
}

// aggregate folds step results into the pipeline-level outcome.
// Success means no step failed; condition-skipped steps don't count
// against it. Confidence is the minimum across successful steps, with
// absent per-step confidence treated as 1.0 and no successful steps as 0.
func aggregate(steps []StepResult, total int, elapsed time.Duration) Result {
	out := Result{
		Steps:           steps,
		TotalSteps:      total,
		Success:         true,
		ExecutionTimeMS: float64(elapsed.Microseconds()) / 1000.0,
	}

	confidence := 1.0
	anySuccess := false
	for _, s := range steps {
		switch s.Status {
		case StatusFailure:
			out.Success = false
		case StatusSuccess:
			anySuccess = true
			out.CompletedSteps++
			c := 1.0
			if s.Result != nil && s.Result.Confidence != nil {
				c = *s.Result.Confidence
			}
			if c < confidence {
				confidence = c
			}
			out.ConfidenceBreakdown = append(out.ConfidenceBreakdown, StepConfidence{
				Step:       s.Index,
				Alias:      s.Alias,
				Command:    s.Command,
				Confidence: c,
			})
			if data, ok := s.data(); ok {
				out.Data = data
			}
		}
	}
	if !anySuccess {
		confidence = 0
	}
	out.Confidence = confidence
	return out
}
