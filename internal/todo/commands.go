package todo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/lushly-dev/afd-sub004/internal/command"
	"github.com/lushly-dev/afd-sub004/internal/result"
)

// StoreKey is where clients hand the todo store to handlers via
// Context.Extra.
const StoreKey = "todo.store"

// StoreFrom extracts the store a client attached to the invocation.
func StoreFrom(cc *command.Context) (Store, bool) {
	if cc == nil {
		return nil, false
	}
	s, ok := cc.Value(StoreKey).(Store)
	return s, ok
}

func noStore() result.CommandResult {
	return result.Fail(result.CommandError{
		Code:       "STORE_NOT_CONFIGURED",
		Message:    "no todo store attached to this invocation",
		Suggestion: "Attach a todo.Store under the todo.store context key",
	}.WithRetryable(false))
}

// jsonValue flattens a domain struct into generic JSON values so that
// pipeline references resolve identically in-process and over the wire.
func jsonValue(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

var priorityEnum = []string{string(PriorityLow), string(PriorityMedium), string(PriorityHigh)}

// RegisterCommands adds the todo command set to a registry.
func RegisterCommands(r *command.Registry) error {
	defs := []command.Definition{
		{
			Name:        "todo-create",
			Description: "Create a todo with a title, optional description and priority",
			Category:    "todo",
			Mutation:    true,
			Errors:      []string{result.CodeValidationError},
			Parameters: []command.Parameter{
				{Name: "title", Type: command.TypeString, Required: true, Description: "Short task title"},
				{Name: "description", Type: command.TypeString, Description: "Longer free-form details"},
				{Name: "priority", Type: command.TypeString, Enum: priorityEnum, Default: string(PriorityMedium)},
			},
			Handler: createHandler,
		},
		{
			Name:        "todo-get",
			Description: "Fetch one todo by id",
			Category:    "todo",
			Errors:      []string{result.CodeNotFound},
			Parameters: []command.Parameter{
				{Name: "id", Type: command.TypeString, Required: true},
			},
			Handler: getHandler,
		},
		{
			Name:        "todo-list",
			Description: "List todos with optional filtering, sorting and pagination",
			Category:    "todo",
			Parameters: []command.Parameter{
				{Name: "completed", Type: command.TypeBoolean, Description: "Only completed (true) or pending (false) todos"},
				{Name: "priority", Type: command.TypeString, Enum: priorityEnum},
				{Name: "search", Type: command.TypeString, Description: "Substring match on title and description"},
				{Name: "sortBy", Type: command.TypeString, Enum: []string{"title", "priority", "createdAt", "updatedAt"}},
				{Name: "sortOrder", Type: command.TypeString, Enum: []string{"asc", "desc"}},
				{Name: "limit", Type: command.TypeNumber},
				{Name: "offset", Type: command.TypeNumber},
			},
			Handler: listHandler,
		},
		{
			Name:        "todo-update",
			Description: "Change a todo's title, description, priority or completion",
			Category:    "todo",
			Mutation:    true,
			Errors:      []string{result.CodeNotFound, result.CodeValidationError},
			Parameters: []command.Parameter{
				{Name: "id", Type: command.TypeString, Required: true},
				{Name: "title", Type: command.TypeString},
				{Name: "description", Type: command.TypeString},
				{Name: "priority", Type: command.TypeString, Enum: priorityEnum},
				{Name: "completed", Type: command.TypeBoolean},
			},
			Handler: updateHandler,
		},
		{
			Name:        "todo-toggle",
			Description: "Flip a todo between pending and completed",
			Category:    "todo",
			Mutation:    true,
			Errors:      []string{result.CodeNotFound},
			Parameters: []command.Parameter{
				{Name: "id", Type: command.TypeString, Required: true},
			},
			Handler: toggleHandler,
		},
		{
			Name:        "todo-delete",
			Description: "Delete a todo by id",
			Category:    "todo",
			Mutation:    true,
			Errors:      []string{result.CodeNotFound},
			Parameters: []command.Parameter{
				{Name: "id", Type: command.TypeString, Required: true},
			},
			Handler: deleteHandler,
		},
		{
			Name:        "todo-stats",
			Description: "Summarize todo counts, priorities and completion rate",
			Category:    "todo",
			Handler:     statsHandler,
		},
		{
			Name:        "todo-clear",
			Description: "Delete every todo",
			Category:    "todo",
			Mutation:    true,
			Handler:     clearHandler,
		},
	}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func createHandler(ctx context.Context, input map[string]any, cc *command.Context) result.CommandResult {
	store, ok := StoreFrom(cc)
	if !ok {
		return noStore()
	}
	title := strings.TrimSpace(cast.ToString(input["title"]))
	if title == "" {
		return result.ValidationError("title cannot be empty",
			[]string{"title: must contain at least one non-whitespace character"})
	}
	description := cast.ToString(input["description"])
	priority := Priority(cast.ToString(input["priority"]))

	t, err := store.Create(ctx, title, description, priority)
	if err != nil {
		return storeFailure("create", err)
	}
	res := result.Ok(jsonValue(t))
	if len(title) > 120 {
		res = res.WithWarnings(result.Warning{
			Code:     "LONG_TITLE",
			Message:  "title is over 120 characters; consider moving detail into the description",
			Severity: result.SeverityInfo,
		})
	}
	return res
}

func getHandler(ctx context.Context, input map[string]any, cc *command.Context) result.CommandResult {
	store, ok := StoreFrom(cc)
	if !ok {
		return noStore()
	}
	id := cast.ToString(input["id"])
	t, found, err := store.Get(ctx, id)
	if err != nil {
		return storeFailure("get", err)
	}
	if !found {
		return result.NotFoundError("todo", id)
	}
	return result.Ok(jsonValue(t))
}

func listHandler(ctx context.Context, input map[string]any, cc *command.Context) result.CommandResult {
	store, ok := StoreFrom(cc)
	if !ok {
		return noStore()
	}
	f := Filter{
		Priority:  Priority(cast.ToString(input["priority"])),
		Search:    cast.ToString(input["search"]),
		SortBy:    cast.ToString(input["sortBy"]),
		SortOrder: cast.ToString(input["sortOrder"]),
		Limit:     cast.ToInt(input["limit"]),
		Offset:    cast.ToInt(input["offset"]),
	}
	if v, present := input["completed"]; present {
		completed := cast.ToBool(v)
		f.Completed = &completed
	}

	todos, err := store.List(ctx, f)
	if err != nil {
		return storeFailure("list", err)
	}

	// total counts every match, not just the returned page.
	total := len(todos)
	if f.Limit > 0 || f.Offset > 0 {
		unpaged := f
		unpaged.Limit = 0
		unpaged.Offset = 0
		all, err := store.List(ctx, unpaged)
		if err != nil {
			return storeFailure("list", err)
		}
		total = len(all)
	}

	res := result.Ok(map[string]any{
		"todos": jsonValue(todos),
		"count": len(todos),
		"total": total,
	}).WithReasoning(describeFilter(f, total))
	if f.Search != "" && len(todos) == 0 {
		res = res.WithSuggestions(
			"Broaden the search term or drop the completed/priority filters",
			"Run todo-list with no filters to see everything",
		)
	}
	return res
}

func describeFilter(f Filter, matched int) string {
	var parts []string
	if f.Completed != nil {
		if *f.Completed {
			parts = append(parts, "completed only")
		} else {
			parts = append(parts, "pending only")
		}
	}
	if f.Priority != "" {
		parts = append(parts, fmt.Sprintf("priority %s", f.Priority))
	}
	if f.Search != "" {
		parts = append(parts, fmt.Sprintf("matching %q", f.Search))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("listed all %d todos", matched)
	}
	return fmt.Sprintf("%d todos matched filters: %s", matched, strings.Join(parts, ", "))
}

func updateHandler(ctx context.Context, input map[string]any, cc *command.Context) result.CommandResult {
	store, ok := StoreFrom(cc)
	if !ok {
		return noStore()
	}
	id := cast.ToString(input["id"])

	var u Update
	if v, present := input["title"]; present {
		title := strings.TrimSpace(cast.ToString(v))
		if title == "" {
			return result.ValidationError("title cannot be empty",
				[]string{"title: must contain at least one non-whitespace character"})
		}
		u.Title = &title
	}
	if v, present := input["description"]; present {
		description := cast.ToString(v)
		u.Description = &description
	}
	if v, present := input["priority"]; present {
		priority := Priority(cast.ToString(v))
		u.Priority = &priority
	}
	if v, present := input["completed"]; present {
		completed := cast.ToBool(v)
		u.Completed = &completed
	}

	t, found, err := store.Update(ctx, id, u)
	if err != nil {
		return storeFailure("update", err)
	}
	if !found {
		return result.NotFoundError("todo", id)
	}
	return result.Ok(jsonValue(t))
}

func toggleHandler(ctx context.Context, input map[string]any, cc *command.Context) result.CommandResult {
	store, ok := StoreFrom(cc)
	if !ok {
		return noStore()
	}
	id := cast.ToString(input["id"])
	t, found, err := store.Toggle(ctx, id)
	if err != nil {
		return storeFailure("toggle", err)
	}
	if !found {
		return result.NotFoundError("todo", id)
	}
	return result.Ok(jsonValue(t))
}

func deleteHandler(ctx context.Context, input map[string]any, cc *command.Context) result.CommandResult {
	store, ok := StoreFrom(cc)
	if !ok {
		return noStore()
	}
	id := cast.ToString(input["id"])
	deleted, err := store.Delete(ctx, id)
	if err != nil {
		return storeFailure("delete", err)
	}
	if !deleted {
		return result.NotFoundError("todo", id)
	}
	return result.Ok(map[string]any{"deleted": true, "id": id})
}

func statsHandler(ctx context.Context, _ map[string]any, cc *command.Context) result.CommandResult {
	store, ok := StoreFrom(cc)
	if !ok {
		return noStore()
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		return storeFailure("stats", err)
	}
	return result.Ok(jsonValue(stats)).
		WithReasoning(fmt.Sprintf("computed over %d todos", stats.Total))
}

func clearHandler(ctx context.Context, _ map[string]any, cc *command.Context) result.CommandResult {
	store, ok := StoreFrom(cc)
	if !ok {
		return noStore()
	}
	n, err := store.Clear(ctx)
	if err != nil {
		return storeFailure("clear", err)
	}
	res := result.Ok(map[string]any{"cleared": n})
	if n > 0 {
		res = res.WithWarnings(result.Warning{
			Code:     "DESTRUCTIVE",
			Message:  fmt.Sprintf("removed %d todos; this cannot be undone", n),
			Severity: result.SeverityCaution,
		})
	}
	return res
}

func storeFailure(op string, err error) result.CommandResult {
	return result.Fail(result.CommandError{
		Code:       "STORE_ERROR",
		Message:    fmt.Sprintf("todo store %s failed: %v", op, err),
		Suggestion: "Check the store backend (file permissions, disk space) and retry",
	}.WithRetryable(true))
}
