package command

import (
	"context"
	"strings"
	"testing"

	"github.com/lushly-dev/afd-sub004/internal/result"
)

func echoDef(name string) Definition {
	return Definition{
		Name:        name,
		Description: "echo input back",
		Parameters: []Parameter{
			{Name: "value", Type: TypeString, Required: true},
		},
		Handler: func(_ context.Context, input map[string]any, _ *Context) result.CommandResult {
			return result.Ok(map[string]any{"value": input["value"]})
		},
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(echoDef("echo")); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(echoDef("echo")); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestRegisterNilHandler(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(Definition{Name: "broken"}); err == nil {
		t.Error("expected nil handler to fail registration")
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(echoDef("todo-create"))
	reg.MustRegister(echoDef("todo-delete"))

	res := reg.Execute(context.Background(), "todo-creat", nil, nil)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.ErrorCode() != result.CodeCommandNotFound {
		t.Fatalf("expected COMMAND_NOT_FOUND, got %s", res.ErrorCode())
	}
	if !strings.Contains(res.Error.Suggestion, "todo-create") {
		t.Errorf("suggestion should name the close match, got %q", res.Error.Suggestion)
	}
}

func TestExecuteValidationFailure(t *testing.T) {
	reg := NewRegistry()
	called := false
	reg.MustRegister(Definition{
		Name: "strict",
		Parameters: []Parameter{
			{Name: "count", Type: TypeNumber, Required: true},
		},
		Handler: func(_ context.Context, _ map[string]any, _ *Context) result.CommandResult {
			called = true
			return result.Ok(nil)
		},
	})

	res := reg.Execute(context.Background(), "strict", map[string]any{"count": "three"}, nil)
	if res.ErrorCode() != result.CodeValidationError {
		t.Fatalf("expected VALIDATION_ERROR, got %s", res.ErrorCode())
	}
	if called {
		t.Error("handler must not run when validation fails")
	}
	issues, _ := res.Error.Details["issues"].([]string)
	if len(issues) != 1 || !strings.Contains(issues[0], "count") {
		t.Errorf("details should name the failing field, got %v", res.Error.Details)
	}
}

func TestExecuteAppliesDefaults(t *testing.T) {
	reg := NewRegistry()
	var seen map[string]any
	reg.MustRegister(Definition{
		Name: "paged",
		Parameters: []Parameter{
			{Name: "limit", Type: TypeNumber, Default: float64(20)},
		},
		Handler: func(_ context.Context, input map[string]any, _ *Context) result.CommandResult {
			seen = input
			return result.Ok(nil)
		},
	})

	res := reg.Execute(context.Background(), "paged", map[string]any{}, nil)
	if !res.Success {
		t.Fatalf("unexpected failure: %+v", res.Error)
	}
	if seen["limit"] != float64(20) {
		t.Errorf("expected default applied, got %v", seen["limit"])
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Definition{
		Name: "explode",
		Handler: func(_ context.Context, _ map[string]any, _ *Context) result.CommandResult {
			panic("boom")
		},
	})

	res := reg.Execute(context.Background(), "explode", nil, nil)
	if res.ErrorCode() != result.CodeExecutionError {
		t.Fatalf("expected COMMAND_EXECUTION_ERROR, got %s", res.ErrorCode())
	}
	if err := res.Check(); err != nil {
		t.Errorf("panic result violates invariants: %v", err)
	}
}

func TestEnumValidation(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Definition{
		Name: "filter",
		Parameters: []Parameter{
			{Name: "status", Type: TypeString, Enum: []string{"open", "done"}},
		},
		Handler: func(_ context.Context, _ map[string]any, _ *Context) result.CommandResult {
			return result.Ok(nil)
		},
	})

	res := reg.Execute(context.Background(), "filter", map[string]any{"status": "stale"}, nil)
	if res.ErrorCode() != result.CodeValidationError {
		t.Fatalf("expected VALIDATION_ERROR, got %+v", res)
	}
}

func TestBootstrapCommands(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(echoDef("echo"))
	if err := RegisterBootstrap(reg); err != nil {
		t.Fatal(err)
	}

	res := reg.Execute(context.Background(), "afd-help", map[string]any{}, nil)
	if !res.Success {
		t.Fatalf("afd-help failed: %+v", res.Error)
	}
	data := res.Data.(map[string]any)
	if data["total"].(int) != 3 {
		t.Errorf("expected 3 commands, got %v", data["total"])
	}

	res = reg.Execute(context.Background(), "afd-schema", map[string]any{"command": "echo"}, nil)
	if !res.Success {
		t.Fatalf("afd-schema failed: %+v", res.Error)
	}
}

func TestSimilarNames(t *testing.T) {
	names := []string{"todo-create", "todo-delete", "chat-send"}
	got := SimilarNames("todo-crate", names, 3)
	if len(got) == 0 || got[0] != "todo-create" {
		t.Errorf("expected todo-create first, got %v", got)
	}
	if got := SimilarNames("zzz", names, 3); len(got) != 0 {
		t.Errorf("expected no matches for unrelated name, got %v", got)
	}
}
