// Package daemon is the persistent server process. It accepts framed
// requests over a unix socket (and optionally HTTP), executes commands
// against a shared registry and store, audits every invocation, and
// exits on its own after an idle period.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lushly-dev/afd-sub004/internal/audit"
	"github.com/lushly-dev/afd-sub004/internal/chat"
	"github.com/lushly-dev/afd-sub004/internal/command"
	"github.com/lushly-dev/afd-sub004/internal/config"
	"github.com/lushly-dev/afd-sub004/internal/handoff"
	"github.com/lushly-dev/afd-sub004/internal/ipc"
	"github.com/lushly-dev/afd-sub004/internal/result"
)

// Server executes commands on behalf of remote clients.
type Server struct {
	cfg     *config.Config
	reg     *command.Registry
	extra   map[string]any
	auditor *audit.Logger
	log     *zap.Logger

	events  *eventHub
	broker  *handoff.Broker
	chatHub *chat.Hub

	idleTimeout time.Duration

	mu        sync.Mutex
	idleTimer *time.Timer
	active    sync.WaitGroup
}

// New creates a daemon server. extra is attached to every invocation's
// context (store handles and the like); the server adds its own chat
// hub and credential broker on top. A nil auditor disables the audit
// trail; log must not be nil, pass zap.NewNop() to silence logging.
func New(cfg *config.Config, reg *command.Registry, extra map[string]any,
	auditor *audit.Logger, log *zap.Logger) *Server {

	s := &Server{
		cfg:         cfg,
		reg:         reg,
		auditor:     auditor,
		log:         log,
		events:      newEventHub(),
		broker:      handoff.NewBroker(handoff.DefaultTTL),
		chatHub:     chat.NewHub(),
		idleTimeout: cfg.Daemon.IdleTimeoutDuration(),
	}

	s.extra = make(map[string]any, len(extra)+3)
	for k, v := range extra {
		s.extra[k] = v
	}
	s.extra[chat.HubKey] = s.chatHub
	if cfg.Daemon.HTTPAddr != "" {
		s.extra[chat.BrokerKey] = s.broker
		s.extra[chat.EndpointKey] = "ws://" + cfg.Daemon.HTTPAddr + "/channels"
	}
	return s
}

// Run creates a listener at the standard socket path, starts the HTTP
// surface if configured, and serves until idle or cancelled.
func (s *Server) Run(ctx context.Context) error {
	sockPath, err := ipc.SocketPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(sockPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}

	if err := cleanStaleSocket(sockPath); err != nil {
		return err
	}

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	if err := os.Chmod(sockPath, 0600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	if err := writePidFile(); err != nil {
		ln.Close()
		return fmt.Errorf("write pid: %w", err)
	}

	defer func() {
		os.Remove(sockPath)
		if pidPath, err := ipc.PidPath(); err == nil {
			os.Remove(pidPath)
		}
	}()

	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or the idle
// timer fires. The listener is closed on return. Exported so tests can
// pass a listener on a temp socket.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()

	// Idle timer cancels idleCtx when nothing happens for idleTimeout.
	idleCtx, idleCancel := context.WithCancel(ctx)
	defer idleCancel()

	s.mu.Lock()
	s.idleTimer = time.AfterFunc(s.idleTimeout, idleCancel)
	s.mu.Unlock()

	if s.cfg.Daemon.HTTPAddr != "" {
		httpLn, err := net.Listen("tcp", s.cfg.Daemon.HTTPAddr)
		if err != nil {
			return fmt.Errorf("listen http: %w", err)
		}
		go s.serveHTTP(idleCtx, httpLn)
	}

	// Close the listener when the context is done (idle or parent cancel).
	go func() {
		<-idleCtx.Done()
		ln.Close()
	}()

	s.log.Info("daemon listening",
		zap.String("socket", ln.Addr().String()),
		zap.String("http", s.cfg.Daemon.HTTPAddr),
		zap.Duration("idle_timeout", s.idleTimeout))

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-idleCtx.Done():
				s.active.Wait()
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		s.resetIdle()

		s.active.Add(1)
		go func() {
			defer s.active.Done()
			defer conn.Close()
			defer s.resetIdle()
			s.handleConnection(idleCtx, conn)
		}()
	}
}

func (s *Server) resetIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimer != nil {
		s.idleTimer.Reset(s.idleTimeout)
	}
}

// handleConnection reads request frames until the client hangs up.
// Requests run concurrently; responses are matched to requests by id,
// not by order.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	cw := newConnWriter(conn)

	evs, cancelEvs := s.events.subscribe()
	defer cancelEvs()
	go func() {
		for ev := range evs {
			if err := cw.writeJSON(ipc.TagEvent, ev); err != nil {
				return
			}
		}
	}()

	var requests sync.WaitGroup
	defer requests.Wait()

	for {
		tag, payload, err := ipc.ReadFrame(conn)
		if err != nil {
			return
		}
		if tag != ipc.TagRequest {
			cw.writeJSON(ipc.TagResponse, ipc.Response{
				Error: &ipc.TransportError{
					Code:    result.CodeTransportProtocol,
					Message: fmt.Sprintf("unexpected frame tag 0x%02x", tag),
				},
			})
			continue
		}

		var req ipc.Request
		if err := json.Unmarshal(payload, &req); err != nil {
			cw.writeJSON(ipc.TagResponse, ipc.Response{
				Error: &ipc.TransportError{
					Code:    result.CodeTransportMalformed,
					Message: fmt.Sprintf("unmarshal request: %v", err),
				},
			})
			continue
		}

		s.resetIdle()
		requests.Add(1)
		go func() {
			defer requests.Done()
			res := s.dispatch(ctx, req.Method, req.Params, "socket")
			cw.writeJSON(ipc.TagResponse, ipc.Response{ID: req.ID, Result: &res})
		}()
	}
}

// dispatch runs one command with a fresh trace context, then audits,
// logs and publishes the outcome.
func (s *Server) dispatch(ctx context.Context, method string, params map[string]any, source string) result.CommandResult {
	cc := &command.Context{
		TraceID: uuid.NewString(),
		Source:  source,
		Extra:   s.extra,
	}

	start := time.Now()
	res := s.reg.Execute(ctx, method, params, cc)
	elapsed := time.Since(start)

	var mutation bool
	if def, ok := s.reg.Get(method); ok {
		mutation = def.Mutation
	}

	if s.auditor != nil {
		if err := s.auditor.Log(audit.Record{
			Command:   method,
			TraceID:   cc.TraceID,
			Source:    source,
			Mutation:  mutation,
			Success:   res.Success,
			ErrorCode: res.ErrorCode(),
			Duration:  elapsed,
		}); err != nil {
			s.log.Warn("audit write failed", zap.Error(err))
		}
	}

	s.log.Info("command executed",
		zap.String("command", method),
		zap.String("trace_id", cc.TraceID),
		zap.String("source", source),
		zap.Bool("success", res.Success),
		zap.String("error_code", res.ErrorCode()),
		zap.Duration("elapsed", elapsed))

	s.events.publish(ipc.Event{
		Event: "invocation",
		Data: map[string]any{
			"command": method,
			"traceId": cc.TraceID,
			"source":  source,
			"success": res.Success,
		},
	})
	return res
}
