package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/lushly-dev/afd-sub004/internal/batch"
	"github.com/lushly-dev/afd-sub004/internal/config"
	"github.com/lushly-dev/afd-sub004/internal/pipeline"
)

// readRequest loads a JSON request from a file argument or stdin ("-"
// or no argument).
func readRequest(args []string, stdin io.Reader, v any) error {
	var data []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse request: %w", err)
	}
	return nil
}

// RunPipe executes a pipeline request read from a file or stdin:
// afd --pipe [file.json].
func RunPipe(ctx context.Context, cfg *config.Config, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var req pipeline.Request
	if err := readRequest(args, stdin, &req); err != nil {
		fmt.Fprintf(stderr, "afd: %v\n", err)
		return 2
	}

	c, cleanup, err := NewClient(ctx, cfg, "cli")
	if err != nil {
		fmt.Fprintf(stderr, "afd: %v\n", err)
		return 1
	}
	defer cleanup()

	res := c.Pipe(ctx, req)
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "afd: encode result: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "%s\n", data)
	if res.Success {
		return 0
	}
	return 1
}

// RunBatch executes a batch request read from a file or stdin:
// afd --batch [file.json].
func RunBatch(ctx context.Context, cfg *config.Config, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var req batch.Request
	if err := readRequest(args, stdin, &req); err != nil {
		fmt.Fprintf(stderr, "afd: %v\n", err)
		return 2
	}

	c, cleanup, err := NewClient(ctx, cfg, "cli")
	if err != nil {
		fmt.Fprintf(stderr, "afd: %v\n", err)
		return 1
	}
	defer cleanup()

	res := c.Batch(ctx, req)
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "afd: encode result: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "%s\n", data)
	if res.FailureCount == 0 {
		return 0
	}
	return 1
}
