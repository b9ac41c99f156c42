// Package command defines the registry mapping command names to validated
// handlers. The registry is built once at startup and read-only afterwards;
// expected failures never escape as Go errors, they become CommandResult
// envelopes. Only misconfiguration (duplicate names, nil handlers) errors
// at registration time.
package command

import (
	"context"

	"github.com/lushly-dev/afd-sub004/internal/result"
)

// ParamType is the JSON Schema type of a command parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeObject  ParamType = "object"
	TypeArray   ParamType = "array"
)

// Parameter describes one input field of a command.
type Parameter struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required,omitempty"`
	Default     any       `json:"default,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
}

// Context carries per-invocation execution state into a handler.
// Mutable collaborators (backing stores, brokers) travel in Extra so that
// Direct, Remote and concurrent Batch execution never share hidden
// ambient state.
type Context struct {
	TraceID string
	Source  string
	Extra   map[string]any
}

// Value returns an injected collaborator by key, or nil.
func (c *Context) Value(key string) any {
	if c == nil || c.Extra == nil {
		return nil
	}
	return c.Extra[key]
}

// Handler is a command implementation. Input has already passed parameter
// validation and has defaults applied. Handlers report business failures
// through the returned envelope, never by panicking.
type Handler func(ctx context.Context, input map[string]any, cc *Context) result.CommandResult

// Definition is a complete command: schema, handler, and metadata.
type Definition struct {
	Name        string
	Description string
	Category    string
	Parameters  []Parameter
	Handler     Handler
	Version     string
	Tags        []string
	Errors      []string

	// Mutation marks commands with side effects.
	Mutation bool

	// Handoff marks commands whose data payload is a channel handoff
	// rather than ordinary output. HandoffProtocol names the channel
	// kind ("websocket", "sse", ...).
	Handoff         bool
	HandoffProtocol string
}
