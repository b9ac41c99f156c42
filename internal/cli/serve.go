package cli

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lushly-dev/afd-sub004/internal/audit"
	"github.com/lushly-dev/afd-sub004/internal/client"
	"github.com/lushly-dev/afd-sub004/internal/config"
	"github.com/lushly-dev/afd-sub004/internal/daemon"
	"github.com/lushly-dev/afd-sub004/internal/mcpserver"
	"github.com/lushly-dev/afd-sub004/internal/todo"
)

// newLogger builds the daemon's zap logger from config.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// RunServe runs the daemon in the foreground until idle or interrupted.
func RunServe(ctx context.Context, cfg *config.Config, stderr io.Writer) int {
	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "afd: logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	reg, err := BuildRegistry()
	if err != nil {
		fmt.Fprintf(stderr, "afd: registry: %v\n", err)
		return 1
	}
	store, err := OpenStore(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "afd: store: %v\n", err)
		return 1
	}
	defer store.Close()

	var auditor *audit.Logger
	if cfg.Audit.Enabled {
		auditor, err = audit.NewLogger(cfg.Audit.Path)
		if err != nil {
			log.Warn("audit disabled", zap.Error(err))
			auditor = nil
		}
	}

	s := daemon.New(cfg, reg, map[string]any{todo.StoreKey: store}, auditor, log)
	if err := s.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "afd: daemon: %v\n", err)
		return 1
	}
	return 0
}

// RunMCP serves the registry as MCP tools on stdio. Commands execute
// through the configured client, so an agent talking MCP shares state
// with a running daemon when remote mode allows it.
func RunMCP(ctx context.Context, cfg *config.Config, version string, stderr io.Writer) int {
	reg, err := BuildRegistry()
	if err != nil {
		fmt.Fprintf(stderr, "afd: registry: %v\n", err)
		return 1
	}

	// MCP runs on stdio, so never spawn into auto mode's backoff loop
	// from here; fall back to in-process when no daemon answers.
	c, cleanup, err := NewClient(ctx, cfg, "mcp")
	if err != nil {
		off := *cfg
		off.Remote.Mode = client.ModeOff
		c, cleanup, err = NewClient(ctx, &off, "mcp")
		if err != nil {
			fmt.Fprintf(stderr, "afd: %v\n", err)
			return 1
		}
	}
	defer cleanup()

	s := mcpserver.New("afd", version, c, reg.All())
	if err := s.Serve(); err != nil {
		fmt.Fprintf(stderr, "afd: %v\n", err)
		return 1
	}
	return 0
}
