package cli

import (
	"fmt"
	"io"

	"github.com/lushly-dev/afd-sub004/internal/command"
)

// RunList lists registered commands, optionally filtered by category.
func RunList(reg *command.Registry, w io.Writer, category string) int {
	defs := reg.All()
	if category != "" {
		defs = reg.ByCategory(category)
		if len(defs) == 0 {
			fmt.Fprintf(w, "afd: no commands in category %q\n", category)
			return 1
		}
	}

	for _, def := range defs {
		marker := " "
		switch {
		case def.Handoff:
			marker = "~"
		case def.Mutation:
			marker = "*"
		}
		fmt.Fprintf(w, "%s %-16s %-10s %s\n", marker, def.Name, def.Category, def.Description)
	}
	fmt.Fprintln(w, "\n  * mutates state   ~ hands off to a live channel")
	return 0
}
