package client

import (
	"context"
	"encoding/json"
	"net"
	"sync"

	"github.com/lushly-dev/afd-sub004/internal/batch"
	"github.com/lushly-dev/afd-sub004/internal/ipc"
	"github.com/lushly-dev/afd-sub004/internal/pipeline"
	"github.com/lushly-dev/afd-sub004/internal/result"
)

// Socket is a remote client over one daemon connection. Calls from
// multiple goroutines multiplex onto the connection: each request gets
// a fresh id, and a reader goroutine routes responses back by id.
type Socket struct {
	conn net.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan ipc.Response

	done      chan struct{}
	closeOnce sync.Once

	// onEvent, if set before the first Call, receives server pushes.
	onEvent func(ipc.Event)
}

// NewSocket wraps an established daemon connection and starts the
// response reader. The caller keeps ownership of nothing: Close tears
// down the connection.
func NewSocket(conn net.Conn) *Socket {
	s := &Socket{
		conn:    conn,
		pending: make(map[uint64]chan ipc.Response),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s
}

// OnEvent registers a handler for unsolicited server events. Must be
// called before the socket is shared across goroutines.
func (s *Socket) OnEvent(fn func(ipc.Event)) { s.onEvent = fn }

func (s *Socket) readLoop() {
	defer s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
	for {
		tag, payload, err := ipc.ReadFrame(s.conn)
		if err != nil {
			return
		}
		switch tag {
		case ipc.TagResponse:
			var resp ipc.Response
			if err := json.Unmarshal(payload, &resp); err != nil {
				continue
			}
			s.mu.Lock()
			ch := s.pending[resp.ID]
			s.mu.Unlock()
			if ch != nil {
				ch <- resp
			}
		case ipc.TagEvent:
			if s.onEvent == nil {
				continue
			}
			var ev ipc.Event
			if err := json.Unmarshal(payload, &ev); err == nil {
				s.onEvent(ev)
			}
		}
	}
}

func (s *Socket) Call(ctx context.Context, name string, input map[string]any) result.CommandResult {
	ch := make(chan ipc.Response, 1)
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.pending[id] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	req := ipc.Request{ID: id, Method: name, Params: input}
	s.writeMu.Lock()
	err := ipc.WriteJSON(s.conn, ipc.TagRequest, req)
	s.writeMu.Unlock()
	if err != nil {
		return result.TransportError(result.CodeTransportConnection,
			"send request: "+err.Error())
	}

	select {
	case <-ctx.Done():
		return cancelResult(ctx, "call to "+name)
	case <-s.done:
		return result.TransportError(result.CodeTransportConnection,
			"daemon connection closed before responding")
	case resp := <-ch:
		return decodeResponse(resp)
	}
}

// decodeResponse turns a wire response into a CommandResult, enforcing
// the result-xor-error contract.
func decodeResponse(resp ipc.Response) result.CommandResult {
	switch {
	case resp.Error != nil:
		code := resp.Error.Code
		if !result.IsTransportCode(code) {
			code = result.CodeTransportProtocol
		}
		return result.TransportError(code, resp.Error.Message)
	case resp.Result != nil:
		return *resp.Result
	default:
		return result.TransportError(result.CodeTransportMalformed,
			"response carries neither result nor error")
	}
}

func (s *Socket) Pipe(ctx context.Context, req pipeline.Request) pipeline.Result {
	return pipeline.Execute(ctx, req, s)
}

func (s *Socket) Batch(ctx context.Context, req batch.Request) batch.Result {
	return batch.Execute(ctx, req, s)
}

func (s *Socket) Commands(ctx context.Context) ([]string, error) {
	return commandNames(s.Call(ctx, "afd-help", nil))
}

func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
	return nil
}
