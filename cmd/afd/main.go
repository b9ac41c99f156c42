package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/lushly-dev/afd-sub004/internal/cli"
	"github.com/lushly-dev/afd-sub004/internal/config"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		cli.RunHelp(os.Stderr)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "afd: config: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	args := os.Args[1:]

	// --remote overrides the configured mode for this invocation.
	if args[0] == "--remote" {
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "afd: --remote needs a mode (auto|socket|http|off)")
			return 2
		}
		cfg.Remote.Mode = args[1]
		args = args[2:]
		if len(args) == 0 {
			cli.RunHelp(os.Stderr)
			return 1
		}
	}

	switch args[0] {
	case "--call":
		return cli.RunCall(ctx, cfg, args[1:], os.Stdout, os.Stderr)
	case "--pipe":
		return cli.RunPipe(ctx, cfg, args[1:], os.Stdin, os.Stdout, os.Stderr)
	case "--batch":
		return cli.RunBatch(ctx, cfg, args[1:], os.Stdin, os.Stdout, os.Stderr)
	case "--list":
		reg, err := cli.BuildRegistry()
		if err != nil {
			fmt.Fprintf(os.Stderr, "afd: %v\n", err)
			return 1
		}
		category := ""
		if len(args) > 1 {
			category = args[1]
		}
		return cli.RunList(reg, os.Stdout, category)
	case "--serve":
		return cli.RunServe(ctx, cfg, os.Stderr)
	case "--mcp":
		return cli.RunMCP(ctx, cfg, version, os.Stderr)
	case "--audit":
		return cli.RunAudit(os.Stdout, cfg.Audit.Path, args[1:])
	case "--help":
		return cli.RunHelp(os.Stdout)
	case "--version":
		fmt.Printf("afd %s\n", version)
		return 0
	default:
		// Bare command names invoke directly: afd todo-list.
		return cli.RunCall(ctx, cfg, args, os.Stdout, os.Stderr)
	}
}
