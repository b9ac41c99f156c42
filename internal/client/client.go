// Package client provides the two execution paths for afd commands: an
// in-process Direct client backed by a Registry, and remote clients that
// talk to a daemon over the framed socket protocol or HTTP. All of them
// satisfy Client, and pipelines and batches always run client-side, so
// resolution and aggregation behave identically in every mode.
package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lushly-dev/afd-sub004/internal/batch"
	"github.com/lushly-dev/afd-sub004/internal/command"
	"github.com/lushly-dev/afd-sub004/internal/pipeline"
	"github.com/lushly-dev/afd-sub004/internal/result"
)

// Client is the mode-independent surface for invoking commands.
type Client interface {
	// Call invokes one command. Transport failures come back as failed
	// results with TRANSPORT_-prefixed codes, never as Go errors.
	Call(ctx context.Context, name string, input map[string]any) result.CommandResult

	// Pipe runs a multi-step pipeline, threading $-token references
	// between steps.
	Pipe(ctx context.Context, req pipeline.Request) pipeline.Result

	// Batch runs independent commands concurrently.
	Batch(ctx context.Context, req batch.Request) batch.Result

	// Commands lists the names of the commands the other side exposes.
	Commands(ctx context.Context) ([]string, error)

	Close() error
}

// Direct executes commands in-process against a registry. It stamps
// each invocation with a fresh trace id and carries per-client context
// values (store handles and the like) into every handler.
type Direct struct {
	registry *command.Registry
	source   string
	extra    map[string]any
}

// NewDirect wraps a registry. source identifies the caller in traces
// and audit entries; extra is handed to handlers via Context.Extra.
func NewDirect(reg *command.Registry, source string, extra map[string]any) *Direct {
	return &Direct{registry: reg, source: source, extra: extra}
}

func (c *Direct) Call(ctx context.Context, name string, input map[string]any) result.CommandResult {
	cc := &command.Context{
		TraceID: uuid.NewString(),
		Source:  c.source,
		Extra:   c.extra,
	}
	return c.registry.Execute(ctx, name, input, cc)
}

func (c *Direct) Pipe(ctx context.Context, req pipeline.Request) pipeline.Result {
	return pipeline.Execute(ctx, req, c)
}

func (c *Direct) Batch(ctx context.Context, req batch.Request) batch.Result {
	return batch.Execute(ctx, req, c)
}

func (c *Direct) Commands(context.Context) ([]string, error) {
	return c.registry.Names(), nil
}

func (c *Direct) Close() error { return nil }

// commandNames extracts names from an afd-help result, which is the
// only introspection surface a remote client has.
func commandNames(res result.CommandResult) ([]string, error) {
	if res.IsFailure() {
		return nil, fmt.Errorf("afd-help failed: %s", res.Error.Message)
	}
	data, ok := res.Data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("afd-help returned %T, want object", res.Data)
	}
	entries, ok := data["commands"].([]any)
	if !ok {
		// In-process results keep the handler's concrete slice type.
		typed, ok := data["commands"].([]map[string]any)
		if !ok {
			return nil, fmt.Errorf("afd-help data has no commands list")
		}
		names := make([]string, 0, len(typed))
		for _, entry := range typed {
			if name, _ := entry["name"].(string); name != "" {
				names = append(names, name)
			}
		}
		return names, nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		entry, _ := e.(map[string]any)
		if name, _ := entry["name"].(string); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// cancelResult maps a done context to the right failure envelope.
func cancelResult(ctx context.Context, what string) result.CommandResult {
	if ctx.Err() == context.DeadlineExceeded {
		return result.TransportError(result.CodeTransportTimeout, what+" timed out")
	}
	return result.Fail(result.CommandError{
		Code:       result.CodeCancelled,
		Message:    what + " cancelled",
		Suggestion: "Retry the call once the caller is ready to wait for it",
	}.WithRetryable(false))
}
