// Package mcpserver exposes a command registry as MCP tools over stdio.
// Every registered command becomes one tool, and two extra tools run
// pipelines and batches so MCP callers get the same composition surface
// as everyone else.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"

	"github.com/lushly-dev/afd-sub004/internal/batch"
	"github.com/lushly-dev/afd-sub004/internal/client"
	"github.com/lushly-dev/afd-sub004/internal/command"
	"github.com/lushly-dev/afd-sub004/internal/pipeline"
)

// Server hosts the MCP surface.
type Server struct {
	mcp *server.MCPServer
}

// New builds an MCP server over a client. defs is the tool list,
// normally the registry's All().
func New(name, version string, c client.Client, defs []command.Definition) *Server {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(false))

	for _, def := range defs {
		s.AddTool(commandTool(def), commandHandler(c, def.Name))
	}
	s.AddTool(pipelineTool(), pipelineHandler(c))
	s.AddTool(batchTool(), batchHandler(c))

	return &Server{mcp: s}
}

// Serve runs the server on stdio until the client disconnects.
func (s *Server) Serve() error {
	if err := server.ServeStdio(s.mcp); err != nil {
		return fmt.Errorf("serve mcp: %w", err)
	}
	return nil
}

// commandTool maps a command definition onto an MCP tool schema.
func commandTool(def command.Definition) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(toolDescription(def))}
	for _, p := range def.Parameters {
		opts = append(opts, paramOption(p))
	}
	return mcp.NewTool(def.Name, opts...)
}

func toolDescription(def command.Definition) string {
	desc := def.Description
	if def.Handoff {
		desc += " (returns a handoff to a live channel, not ordinary data)"
	}
	return desc
}

func paramOption(p command.Parameter) mcp.ToolOption {
	var props []mcp.PropertyOption
	if p.Description != "" {
		props = append(props, mcp.Description(p.Description))
	}
	if p.Required {
		props = append(props, mcp.Required())
	}
	if len(p.Enum) > 0 {
		props = append(props, mcp.Enum(p.Enum...))
	}

	switch p.Type {
	case command.TypeNumber:
		if p.Default != nil {
			props = append(props, mcp.DefaultNumber(cast.ToFloat64(p.Default)))
		}
		return mcp.WithNumber(p.Name, props...)
	case command.TypeBoolean:
		if p.Default != nil {
			props = append(props, mcp.DefaultBool(cast.ToBool(p.Default)))
		}
		return mcp.WithBoolean(p.Name, props...)
	case command.TypeObject:
		return mcp.WithObject(p.Name, props...)
	case command.TypeArray:
		return mcp.WithArray(p.Name, props...)
	default:
		if p.Default != nil {
			props = append(props, mcp.DefaultString(cast.ToString(p.Default)))
		}
		return mcp.WithString(p.Name, props...)
	}
}

// commandHandler invokes one command. The whole result envelope travels
// as the tool result: failures are data to an agent, not protocol
// errors, so they never become MCP-level errors.
func commandHandler(c client.Client, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := c.Call(ctx, name, req.GetArguments())
		return mcp.NewToolResultStructuredOnly(res), nil
	}
}

func pipelineTool() mcp.Tool {
	return mcp.NewTool("afd-pipeline",
		mcp.WithDescription("Run commands in sequence; later steps reference earlier results with $input, $first, $prev, $steps[n] and $steps.alias tokens"),
		mcp.WithArray("steps",
			mcp.Description("Steps: {command, input, as, when}"),
			mcp.Required()),
		mcp.WithObject("input",
			mcp.Description("Initial values available as $input")),
		mcp.WithObject("options",
			mcp.Description("Options: {continueOnFailure, timeoutMs, stepTimeoutMs}")),
	)
}

func pipelineHandler(c client.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var preq pipeline.Request
		if err := bindArguments(req.GetArguments(), &preq); err != nil {
			return mcp.NewToolResultErrorFromErr("invalid pipeline request", err), nil
		}
		return mcp.NewToolResultStructuredOnly(c.Pipe(ctx, preq)), nil
	}
}

func batchTool() mcp.Tool {
	return mcp.NewTool("afd-batch",
		mcp.WithDescription("Run independent commands concurrently and aggregate their results"),
		mcp.WithArray("commands",
			mcp.Description("Commands: {id, command, input, tags, priority}"),
			mcp.Required()),
		mcp.WithObject("options",
			mcp.Description("Options: {maxConcurrency, continueOnError, timeoutMs}")),
	)
}

func batchHandler(c client.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var breq batch.Request
		if err := bindArguments(req.GetArguments(), &breq); err != nil {
			return mcp.NewToolResultErrorFromErr("invalid batch request", err), nil
		}
		return mcp.NewToolResultStructuredOnly(c.Batch(ctx, breq)), nil
	}
}

func bindArguments(args map[string]any, v any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
