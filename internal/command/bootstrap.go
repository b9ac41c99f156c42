package command

import (
	"context"

	"github.com/lushly-dev/afd-sub004/internal/result"
)

// RegisterBootstrap adds the introspection commands every registry
// carries: afd-help lists commands, afd-schema describes one command's
// input shape. Both are read-only and safe to expose on any surface.
func RegisterBootstrap(r *Registry) error {
	help := Definition{
		Name:        "afd-help",
		Description: "List registered commands with descriptions and categories",
		Category:    "bootstrap",
		Parameters: []Parameter{
			{Name: "category", Type: TypeString, Description: "Only list commands in this category"},
		},
		Handler: func(_ context.Context, input map[string]any, _ *Context) result.CommandResult {
			defs := r.All()
			if cat, _ := input["category"].(string); cat != "" {
				defs = r.ByCategory(cat)
			}
			entries := make([]map[string]any, 0, len(defs))
			for _, def := range defs {
				entries = append(entries, map[string]any{
					"name":        def.Name,
					"description": def.Description,
					"category":    def.Category,
					"mutation":    def.Mutation,
				})
			}
			return result.Ok(map[string]any{"commands": entries, "total": len(entries)})
		},
	}

	schema := Definition{
		Name:        "afd-schema",
		Description: "Describe a command's parameters and metadata",
		Category:    "bootstrap",
		Parameters: []Parameter{
			{Name: "command", Type: TypeString, Description: "Command name", Required: true},
		},
		Handler: func(_ context.Context, input map[string]any, _ *Context) result.CommandResult {
			name, _ := input["command"].(string)
			def, ok := r.Get(name)
			if !ok {
				return r.notFound(name)
			}
			return result.Ok(map[string]any{
				"name":        def.Name,
				"description": def.Description,
				"category":    def.Category,
				"parameters":  def.Parameters,
				"mutation":    def.Mutation,
				"handoff":     def.Handoff,
				"errors":      def.Errors,
				"version":     def.Version,
				"tags":        def.Tags,
			})
		},
	}

	if err := r.Register(help); err != nil {
		return err
	}
	return r.Register(schema)
}
