package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/lushly-dev/afd-sub004/internal/client"
	"github.com/lushly-dev/afd-sub004/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Remote.Mode = client.ModeOff
	cfg.Store.Backend = "memory"
	return cfg
}

func TestParseInputKeyValue(t *testing.T) {
	input, err := ParseInput([]string{"title=buy milk", "limit=5", "completed=true"})
	if err != nil {
		t.Fatal(err)
	}
	if input["title"] != "buy milk" {
		t.Errorf("title = %v", input["title"])
	}
	if input["limit"] != float64(5) {
		t.Errorf("limit = %v (%T)", input["limit"], input["limit"])
	}
	if input["completed"] != true {
		t.Errorf("completed = %v", input["completed"])
	}
}

func TestParseInputJSON(t *testing.T) {
	input, err := ParseInput([]string{`{"title": "x", "priority": "high"}`})
	if err != nil {
		t.Fatal(err)
	}
	if input["priority"] != "high" {
		t.Errorf("input = %v", input)
	}
}

func TestParseInputRejectsBareWords(t *testing.T) {
	if _, err := ParseInput([]string{"notakeyvalue"}); err == nil {
		t.Error("expected error")
	}
}

func TestRunCallSuccess(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := RunCall(context.Background(), testConfig(t),
		[]string{"todo-create", "title=from cli"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), `"success": true`) {
		t.Errorf("stdout: %s", stdout.String())
	}
}

func TestRunCallFailureExitCode(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := RunCall(context.Background(), testConfig(t),
		[]string{"todo-get", "id=missing"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout.String(), "NOT_FOUND") {
		t.Errorf("stdout: %s", stdout.String())
	}
}

func TestRunCallUnknownCommandSuggests(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := RunCall(context.Background(), testConfig(t),
		[]string{"todo-creat", "title=x"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout.String(), "todo-create") {
		t.Errorf("no suggestion in output: %s", stdout.String())
	}
}

func TestRunPipeFromStdin(t *testing.T) {
	req := `{
		"steps": [
			{"command": "todo-create", "input": {"title": "piped"}, "as": "created"},
			{"command": "todo-get", "input": {"id": "$steps.created.id"}}
		]
	}`
	var stdout, stderr bytes.Buffer
	code := RunPipe(context.Background(), testConfig(t), nil,
		strings.NewReader(req), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), `"completedSteps": 2`) {
		t.Errorf("stdout: %s", stdout.String())
	}
}

func TestRunBatchFromStdin(t *testing.T) {
	req := `{
		"commands": [
			{"command": "todo-create", "input": {"title": "a"}},
			{"command": "todo-create", "input": {"title": "b"}}
		]
	}`
	var stdout, stderr bytes.Buffer
	code := RunBatch(context.Background(), testConfig(t), nil,
		strings.NewReader(req), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), `"successCount": 2`) {
		t.Errorf("stdout: %s", stdout.String())
	}
}

func TestRunPipeBadJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := RunPipe(context.Background(), testConfig(t), nil,
		strings.NewReader("not json"), &stdout, &stderr)
	if code != 2 {
		t.Fatalf("exit %d", code)
	}
}

func TestRunList(t *testing.T) {
	reg, err := BuildRegistry()
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if code := RunList(reg, &out, ""); code != 0 {
		t.Fatalf("exit %d", code)
	}
	for _, want := range []string{"todo-create", "chat-subscribe", "afd-help"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("listing missing %s", want)
		}
	}

	out.Reset()
	if code := RunList(reg, &out, "chat"); code != 0 {
		t.Fatalf("exit %d", code)
	}
	if strings.Contains(out.String(), "todo-create") {
		t.Error("category filter leaked other categories")
	}

	out.Reset()
	if code := RunList(reg, &out, "nope"); code != 1 {
		t.Error("unknown category should fail")
	}
}
