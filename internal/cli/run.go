// Package cli implements the afd command-line surface: one-shot command
// calls, pipelines and batches from JSON, registry listing, audit
// inspection, and the daemon and MCP entry points.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lushly-dev/afd-sub004/internal/chat"
	"github.com/lushly-dev/afd-sub004/internal/client"
	"github.com/lushly-dev/afd-sub004/internal/command"
	"github.com/lushly-dev/afd-sub004/internal/config"
	"github.com/lushly-dev/afd-sub004/internal/result"
	"github.com/lushly-dev/afd-sub004/internal/todo"
)

// BuildRegistry assembles the full command set.
func BuildRegistry() (*command.Registry, error) {
	reg := command.NewRegistry()
	if err := command.RegisterBootstrap(reg); err != nil {
		return nil, err
	}
	if err := todo.RegisterCommands(reg); err != nil {
		return nil, err
	}
	if err := chat.RegisterCommands(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// OpenStore opens the configured todo store backend.
func OpenStore(cfg *config.Config) (todo.Store, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return todo.NewMemoryStore(), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.Store.Path); dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return nil, fmt.Errorf("create store dir: %w", err)
			}
		}
		return todo.OpenSQLite(cfg.Store.Path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// NewClient builds a client per the configured remote mode. The
// returned cleanup closes whatever the client owns.
func NewClient(ctx context.Context, cfg *config.Config, source string) (client.Client, func(), error) {
	if cfg.Remote.Mode == client.ModeOff {
		store, err := OpenStore(cfg)
		if err != nil {
			return nil, nil, err
		}
		reg, err := BuildRegistry()
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		extra := map[string]any{
			todo.StoreKey: store,
			chat.HubKey:   chat.NewHub(),
		}
		c := client.NewDirect(reg, source, extra)
		return c, func() { store.Close() }, nil
	}

	selfPath, _ := os.Executable()
	c, err := client.Dial(ctx, cfg.Remote.Mode, client.DialOptions{
		SelfPath: selfPath,
		HTTPBase: cfg.Remote.HTTPBase,
	})
	if err != nil {
		return nil, nil, err
	}
	return c, func() { c.Close() }, nil
}

// RunCall invokes one command: afd --call <name> [key=value ... | JSON].
// The result envelope goes to stdout as JSON either way; the exit code
// reflects Success.
func RunCall(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: afd --call <command> [key=value ...]")
		return 2
	}
	name := args[0]
	input, err := ParseInput(args[1:])
	if err != nil {
		fmt.Fprintf(stderr, "afd: %v\n", err)
		return 2
	}

	c, cleanup, err := NewClient(ctx, cfg, "cli")
	if err != nil {
		fmt.Fprintf(stderr, "afd: %v\n", err)
		return 1
	}
	defer cleanup()

	res := c.Call(ctx, name, input)
	return writeResult(stdout, stderr, res)
}

// ParseInput builds a command input map from CLI arguments. A single
// argument starting with "{" is parsed as a JSON object; otherwise each
// argument is key=value, with values tried as JSON first so numbers and
// booleans keep their types.
func ParseInput(args []string) (map[string]any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	if len(args) == 1 && strings.HasPrefix(strings.TrimSpace(args[0]), "{") {
		var input map[string]any
		if err := json.Unmarshal([]byte(args[0]), &input); err != nil {
			return nil, fmt.Errorf("parse JSON input: %w", err)
		}
		return input, nil
	}

	input := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q is not key=value", arg)
		}
		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err == nil {
			input[key] = parsed
		} else {
			input[key] = value
		}
	}
	return input, nil
}

func writeResult(stdout, stderr io.Writer, res result.CommandResult) int {
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
