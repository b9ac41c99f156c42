package client

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"time"

	"github.com/lushly-dev/afd-sub004/internal/ipc"
)

// Remote transport modes.
const (
	ModeAuto   = "auto"
	ModeSocket = "socket"
	ModeHTTP   = "http"
	ModeOff    = "off"
)

// DialOptions configures how Dial reaches a daemon.
type DialOptions struct {
	// SelfPath is the binary to spawn with --serve when no daemon is
	// listening. Empty disables spawning.
	SelfPath string
	// HTTPBase is the daemon's HTTP address, e.g. "http://127.0.0.1:7465".
	// Empty disables the HTTP fallback.
	HTTPBase string
}

// Connect attempts to connect to a running daemon's unix socket.
func Connect() (net.Conn, error) {
	sockPath, err := ipc.SocketPath()
	if err != nil {
		return nil, err
	}
	return net.Dial("unix", sockPath)
}

// ConnectOrSpawn tries to connect to an existing daemon. If none is
// running, it spawns one as a detached child and retries with backoff.
func ConnectOrSpawn(ctx context.Context, selfPath string) (net.Conn, error) {
	if conn, err := Connect(); err == nil {
		return conn, nil
	}

	cmd := exec.Command(selfPath, "--serve")
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	setSysProcAttr(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn daemon: %w", err)
	}
	cmd.Process.Release()

	delays := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		200 * time.Millisecond,
		500 * time.Millisecond,
	}
	for _, d := range delays {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
		if conn, err := Connect(); err == nil {
			return conn, nil
		}
	}
	return nil, fmt.Errorf("daemon did not start within timeout")
}

// Dial returns a remote client for the given mode. In auto mode it
// prefers the socket (spawning a daemon when SelfPath allows), then
// falls back to HTTP.
func Dial(ctx context.Context, mode string, opts DialOptions) (Client, error) {
	switch mode {
	case ModeSocket:
		conn, err := Connect()
		if err != nil {
			return nil, fmt.Errorf("connect to daemon socket: %w", err)
		}
		return NewSocket(conn), nil

	case ModeHTTP:
		if opts.HTTPBase == "" {
			return nil, fmt.Errorf("http mode needs a daemon address")
		}
		return NewHTTP(opts.HTTPBase, nil), nil

	case ModeAuto, "":
		if opts.SelfPath != "" {
			if conn, err := ConnectOrSpawn(ctx, opts.SelfPath); err == nil {
				return NewSocket(conn), nil
			}
		} else if conn, err := Connect(); err == nil {
			return NewSocket(conn), nil
		}
		if opts.HTTPBase != "" {
			return NewHTTP(opts.HTTPBase, nil), nil
		}
		return nil, fmt.Errorf("no daemon reachable over socket or http")

	default:
		return nil, fmt.Errorf("unknown remote mode %q", mode)
	}
}
