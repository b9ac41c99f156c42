package daemon

import (
	"io"
	"sync"

	"github.com/lushly-dev/afd-sub004/internal/ipc"
)

// connWriter serializes frame writes onto one connection. Concurrent
// request handlers and the event forwarder share it so frame bytes
// never interleave.
type connWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newConnWriter(w io.Writer) *connWriter {
	return &connWriter{w: w}
}

func (cw *connWriter) writeJSON(tag byte, v any) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return ipc.WriteJSON(cw.w, tag, v)
}
