package command

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lushly-dev/afd-sub004/internal/result"
)

// Registry maps command names to definitions. Registration happens at
// process start; Execute is safe for concurrent use afterwards.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a command. Duplicate names and nil handlers are setup
// errors and surface as Go errors rather than envelopes.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("register: command name is empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("register %q: handler is nil", def.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("register %q: already registered", def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

// MustRegister is Register for startup paths where a failure is fatal.
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Get returns a definition by name.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Has reports whether a command exists.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns all command names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all definitions sorted by name.
func (r *Registry) All() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// ByCategory returns definitions in the given category, sorted by name.
func (r *Registry) ByCategory(category string) []Definition {
	var defs []Definition
	for _, def := range r.All() {
		if def.Category == category {
			defs = append(defs, def)
		}
	}
	return defs
}

// Execute runs a command by name. Unknown names, invalid input and
// handler panics all come back as failed envelopes; Execute never panics
// and never returns a Go error for expected failure modes.
func (r *Registry) Execute(ctx context.Context, name string, input map[string]any, cc *Context) (res result.CommandResult) {
	def, ok := r.Get(name)
	if !ok {
		return r.notFound(name)
	}

	validated, issues := ValidateInput(input, def.Parameters)
	if len(issues) > 0 {
		return result.ValidationError(
			fmt.Sprintf("invalid input for %q", name), issues)
	}

	defer func() {
		if p := recover(); p != nil {
			res = result.Fail(result.CommandError{
				Code:       result.CodeExecutionError,
				Message:    fmt.Sprintf("command %q panicked: %v", name, p),
				Suggestion: "Check the input parameters and try again; report this if it persists",
			})
		}
	}()

	return def.Handler(ctx, validated, cc)
}

func (r *Registry) notFound(name string) result.CommandResult {
	names := r.Names()
	similar := SimilarNames(name, names, 3)

	suggestion := "List available commands to see valid options"
	if len(similar) > 0 {
		suggestion = fmt.Sprintf("Did you mean %q? Available close matches: %s",
			similar[0], strings.Join(similar, ", "))
	}
	return result.Fail(result.CommandError{
		Code:       result.CodeCommandNotFound,
		Message:    fmt.Sprintf("command %q not found", name),
		Suggestion: suggestion,
		Details: map[string]any{
			"requested":   name,
			"available":   names,
			"suggestions": similar,
		},
	}.WithRetryable(false))
}
