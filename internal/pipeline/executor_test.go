package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/lushly-dev/afd-sub004/internal/result"
)

// fakeCaller dispatches to an in-test function table and records inputs.
type fakeCaller struct {
	handlers map[string]func(input map[string]any) result.CommandResult
	calls    []string
	inputs   map[string]map[string]any
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{
		handlers: make(map[string]func(map[string]any) result.CommandResult),
		inputs:   make(map[string]map[string]any),
	}
}

func (f *fakeCaller) on(name string, fn func(map[string]any) result.CommandResult) {
	f.handlers[name] = fn
}

func (f *fakeCaller) Call(_ context.Context, command string, input map[string]any) result.CommandResult {
	f.calls = append(f.calls, command)
	f.inputs[command] = input
	if fn, ok := f.handlers[command]; ok {
		return fn(input)
	}
	return result.Failf(result.CodeCommandNotFound, "no handler for "+command)
}

func TestExecuteChainsPrevReference(t *testing.T) {
	caller := newFakeCaller()
	caller.on("user-get", func(map[string]any) result.CommandResult {
		return result.Ok(map[string]any{"id": "u1", "name": "Ana"})
	})
	caller.on("order-list", func(map[string]any) result.CommandResult {
		return result.Ok(map[string]any{"orders": []any{}})
	})

	res := Execute(context.Background(), Request{Steps: []Step{
		{Command: "user-get", Input: map[string]any{"id": "u1"}, As: "user"},
		{Command: "order-list", Input: map[string]any{"userId": "$prev.id"}},
	}}, caller)

	if !res.Success {
		t.Fatalf("pipeline failed: %+v", res.Steps)
	}
	if got := caller.inputs["order-list"]["userId"]; got != "u1" {
		t.Errorf("order-list dispatched with userId=%v, want u1", got)
	}
	if res.CompletedSteps != 2 || res.TotalSteps != 2 {
		t.Errorf("completed=%d total=%d", res.CompletedSteps, res.TotalSteps)
	}
}

func TestExecuteFailFast(t *testing.T) {
	caller := newFakeCaller()
	caller.on("a", func(map[string]any) result.CommandResult { return result.Ok("a") })
	caller.on("b", func(map[string]any) result.CommandResult {
		return result.Failf("DOMAIN_ERROR", "b broke")
	})
	caller.on("c", func(map[string]any) result.CommandResult { return result.Ok("c") })

	res := Execute(context.Background(), Request{Steps: []Step{
		{Command: "a"}, {Command: "b"}, {Command: "c"},
	}}, caller)

	if res.Success {
		t.Fatal("expected pipeline failure")
	}
	if res.Steps[1].Status != StatusFailure {
		t.Errorf("step 1 status = %s", res.Steps[1].Status)
	}
	if res.Steps[2].Status != StatusSkipped {
		t.Errorf("step 2 status = %s", res.Steps[2].Status)
	}
	if res.Steps[2].SkipReason == "" {
		t.Error("skipped step must carry a reason naming the failing step")
	}
	if len(caller.calls) != 2 {
		t.Errorf("step c must not be dispatched, calls=%v", caller.calls)
	}
}

func TestExecuteContinueOnFailure(t *testing.T) {
	caller := newFakeCaller()
	caller.on("a", func(map[string]any) result.CommandResult {
		return result.Failf("DOMAIN_ERROR", "a broke")
	})
	caller.on("b", func(map[string]any) result.CommandResult { return result.Ok("b") })

	res := Execute(context.Background(), Request{
		Steps:   []Step{{Command: "a"}, {Command: "b"}},
		Options: Options{ContinueOnFailure: true},
	}, caller)

	if res.Success {
		t.Fatal("expected overall failure")
	}
	if res.Steps[1].Status != StatusSuccess {
		t.Errorf("step b should still run, status=%s", res.Steps[1].Status)
	}
	if res.Data != "b" {
		t.Errorf("data should come from last successful step, got %v", res.Data)
	}
}

func TestExecuteResolutionFailureSkipsDispatch(t *testing.T) {
	caller := newFakeCaller()
	caller.on("a", func(map[string]any) result.CommandResult {
		return result.Ok(map[string]any{"id": "x"})
	})
	caller.on("b", func(map[string]any) result.CommandResult { return result.Ok("b") })

	res := Execute(context.Background(), Request{Steps: []Step{
		{Command: "a", As: "first-step"},
		{Command: "b", Input: map[string]any{"ref": "$steps.missing.id"}},
	}}, caller)

	step := res.Steps[1]
	if step.Status != StatusFailure {
		t.Fatalf("expected failure, got %s", step.Status)
	}
	if step.Result.ErrorCode() != result.CodeVariableResolution {
		t.Errorf("code = %s", step.Result.ErrorCode())
	}
	if step.Result.Error.Suggestion == "" {
		t.Error("resolution failures must suggest available aliases")
	}
	for _, c := range caller.calls {
		if c == "b" {
			t.Error("command b must not be dispatched on resolution failure")
		}
	}
}

func TestExecuteDependentOnFailedStepUnderContinue(t *testing.T) {
	caller := newFakeCaller()
	caller.on("a", func(map[string]any) result.CommandResult {
		return result.Failf("DOMAIN_ERROR", "a broke")
	})
	caller.on("b", func(map[string]any) result.CommandResult { return result.Ok("b") })

	res := Execute(context.Background(), Request{
		Steps: []Step{
			{Command: "a"},
			{Command: "b", Input: map[string]any{"ref": "$prev.id"}},
		},
		Options: Options{ContinueOnFailure: true},
	}, caller)

	// Step b's own resolution fails naturally because step a has no data.
	if res.Steps[1].Status != StatusFailure {
		t.Fatalf("expected natural resolution failure, got %s", res.Steps[1].Status)
	}
	if res.Steps[1].Result.ErrorCode() != result.CodeVariableResolution {
		t.Errorf("code = %s", res.Steps[1].Result.ErrorCode())
	}
}

func TestExecuteWhenCondition(t *testing.T) {
	caller := newFakeCaller()
	caller.on("a", func(map[string]any) result.CommandResult {
		return result.Ok(map[string]any{"count": float64(0)})
	})
	caller.on("b", func(map[string]any) result.CommandResult { return result.Ok("b") })

	res := Execute(context.Background(), Request{Steps: []Step{
		{Command: "a"},
		{Command: "b", When: map[string]any{"$gt": []any{"$prev.count", float64(0)}}},
	}}, caller)

	if !res.Success {
		t.Fatalf("condition skips must not fail the pipeline: %+v", res.Steps)
	}
	if res.Steps[1].Status != StatusSkipped || res.Steps[1].SkipReason != "condition not met" {
		t.Errorf("step 1 = %+v", res.Steps[1])
	}
}

func TestExecuteConfidenceIsMinimum(t *testing.T) {
	caller := newFakeCaller()
	caller.on("a", func(map[string]any) result.CommandResult {
		return result.Ok("a").WithConfidence(0.9)
	})
	caller.on("b", func(map[string]any) result.CommandResult {
		return result.Ok("b").WithConfidence(0.6)
	})
	caller.on("c", func(map[string]any) result.CommandResult {
		return result.Ok("c") // no confidence counts as 1.0
	})

	res := Execute(context.Background(), Request{Steps: []Step{
		{Command: "a"}, {Command: "b"}, {Command: "c"},
	}}, caller)

	if res.Confidence != 0.6 {
		t.Errorf("confidence = %v, want 0.6 (weakest link)", res.Confidence)
	}
	if len(res.ConfidenceBreakdown) != 3 {
		t.Errorf("breakdown = %+v", res.ConfidenceBreakdown)
	}
}

func TestExecuteNoSuccessfulStepsZeroConfidence(t *testing.T) {
	caller := newFakeCaller()
	caller.on("a", func(map[string]any) result.CommandResult {
		return result.Failf("DOMAIN_ERROR", "nope")
	})

	res := Execute(context.Background(), Request{Steps: []Step{{Command: "a"}}}, caller)
	if res.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", res.Confidence)
	}
}

func TestExecuteStepTimeout(t *testing.T) {
	caller := newFakeCaller()
	caller.on("slow", func(map[string]any) result.CommandResult {
		time.Sleep(200 * time.Millisecond)
		return result.Ok("late")
	})

	res := Execute(context.Background(), Request{
		Steps:   []Step{{Command: "slow"}},
		Options: Options{StepTimeoutMS: 20},
	}, caller)

	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if res.Steps[0].Result.ErrorCode() != result.CodeTimeout {
		t.Errorf("code = %s", res.Steps[0].Result.ErrorCode())
	}
}

func TestExecuteInputReference(t *testing.T) {
	caller := newFakeCaller()
	caller.on("search", func(map[string]any) result.CommandResult { return result.Ok("hits") })

	Execute(context.Background(), Request{
		Input: map[string]any{"query": "books"},
		Steps: []Step{{Command: "search", Input: map[string]any{"q": "$input.query"}}},
	}, caller)

	if got := caller.inputs["search"]["q"]; got != "books" {
		t.Errorf("q = %v", got)
	}
}
