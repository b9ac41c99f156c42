// Package batch runs independent command invocations, optionally in
// parallel. Items never reference each other; one item's failure never
// aborts its siblings. Results always come back in request order no
// matter how execution interleaves.
package batch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lushly-dev/afd-sub004/internal/pipeline"
	"github.com/lushly-dev/afd-sub004/internal/result"
)

// DefaultConcurrency bounds fan-out when the request doesn't.
const DefaultConcurrency = 8

// Command is one invocation in a batch.
type Command struct {
	ID      string         `json:"id,omitempty"`
	Command string         `json:"command"`
	Input   map[string]any `json:"input,omitempty"`
	Tags    []string       `json:"tags,omitempty"`

	// Priority hints at dispatch order: higher-priority items start
	// first. It never affects the order of Items in the result.
	Priority int `json:"priority,omitempty"`
}

// Options control batch execution.
type Options struct {
	// MaxConcurrency bounds how many items run at once. Zero means
	// DefaultConcurrency; one forces sequential execution.
	MaxConcurrency int `json:"maxConcurrency,omitempty"`

	// ContinueOnError keeps dispatching after a failure. Absent means
	// true: one item's failure never aborts its siblings. When
	// explicitly false, items not yet dispatched when the first failure
	// lands come back as CANCELLED failures.
	ContinueOnError *bool `json:"continueOnError,omitempty"`

	// TimeoutMS bounds the whole batch. Zero means no limit.
	TimeoutMS int64 `json:"timeoutMs,omitempty"`
}

// Request is a set of independent invocations.
type Request struct {
	Commands []Command `json:"commands"`
	Options  Options   `json:"options,omitempty"`
}

// ItemResult pairs one command with its outcome, at the same index the
// command had in the request.
type ItemResult struct {
	Index           int                  `json:"index"`
	ID              string               `json:"id,omitempty"`
	Command         string               `json:"command"`
	Result          result.CommandResult `json:"result"`
	ExecutionTimeMS float64              `json:"executionTimeMs"`
}

// Result aggregates a batch run. SuccessCount+FailureCount always equals
// Total. Confidence follows the pipeline rule: minimum across successful
// items, absent per-item confidence counting as 1.0.
type Result struct {
	Items           []ItemResult `json:"items"`
	Total           int          `json:"total"`
	SuccessCount    int          `json:"successCount"`
	FailureCount    int          `json:"failureCount"`
	Confidence      float64      `json:"confidence"`
	ExecutionTimeMS float64      `json:"executionTimeMs"`
}

// Execute fans the batch out through the caller. Items land in Items at
// their request position regardless of completion order.
func Execute(ctx context.Context, req Request, caller pipeline.Caller) Result {
	if req.Options.TimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.Options.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	start := time.Now()
	items := make([]ItemResult, len(req.Commands))

	limit := req.Options.MaxConcurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	sem := make(chan struct{}, limit)

	stopOnFailure := req.Options.ContinueOnError != nil && !*req.Options.ContinueOnError
	var failed atomic.Bool

	var wg sync.WaitGroup
	for _, i := range dispatchOrder(req.Commands) {
		cmd := req.Commands[i]
		// Acquire before launching so items start in priority order.
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, cmd Command) {
			defer wg.Done()
			defer func() { <-sem }()

			itemStart := time.Now()
			var res result.CommandResult
			switch {
			case stopOnFailure && failed.Load():
				res = cancelledItem(cmd.Command)
			case ctx.Err() != nil:
				res = result.TimeoutError("batch item " + cmd.Command)
			default:
				res = caller.Call(ctx, cmd.Command, cmd.Input)
			}
			if !res.Success {
				failed.Store(true)
			}
			items[i] = ItemResult{
				Index:           i,
				ID:              cmd.ID,
				Command:         cmd.Command,
				Result:          res,
				ExecutionTimeMS: float64(time.Since(itemStart).Microseconds()) / 1000.0,
			}
		}(i, cmd)
	}
	wg.Wait()

	return aggregate(items, time.Since(start))
}

// dispatchOrder returns command indices sorted by descending priority,
// ties keeping request order.
func dispatchOrder(cmds []Command) []int {
	order := make([]int, len(cmds))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return cmds[order[a]].Priority > cmds[order[b]].Priority
	})
	return order
}

func cancelledItem(command string) result.CommandResult {
	return result.Fail(result.CommandError{
		Code:       result.CodeCancelled,
		Message:    fmt.Sprintf("batch item %q was not dispatched after an earlier failure", command),
		Suggestion: "Re-run the remaining items, or set continueOnError to run the whole batch regardless",
	}.WithRetryable(true))
}

func aggregate(items []ItemResult, elapsed time.Duration) Result {
	out := Result{
		Items:           items,
		Total:           len(items),
		ExecutionTimeMS: float64(elapsed.Microseconds()) / 1000.0,
	}

	confidence := 1.0
	for _, item := range items {
		if !item.Result.Success {
			out.FailureCount++
			continue
		}
		out.SuccessCount++
		c := 1.0
		if item.Result.Confidence != nil {
			c = *item.Result.Confidence
		}
		if c < confidence {
			confidence = c
		}
	}
	if out.SuccessCount == 0 {
		confidence = 0
	}
	out.Confidence = confidence
	return out
}
