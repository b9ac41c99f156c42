// Package ipc implements the framed wire protocol between clients and
// the afd daemon. One request maps to one command invocation; responses
// carry either a CommandResult or a transport-level error, never both.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/lushly-dev/afd-sub004/internal/result"
)

// Frame tags identify the type of each message.
// Client-to-server tags are in the 0x01-0x0F range.
// Server-to-client tags are in the 0x10-0x1F range.
const (
	TagRequest byte = 0x01 // C→S: JSON-encoded Request

	TagResponse byte = 0x10 // S→C: JSON-encoded Response
	TagEvent    byte = 0x11 // S→C: JSON-encoded Event (push notification)
)

// MaxFrameSize rejects frames large enough to indicate a desynchronized
// or hostile peer.
const MaxFrameSize = 16 << 20

// Request asks the daemon to invoke one command.
type Request struct {
	ID     uint64         `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

// TransportError describes a failure of the channel itself, as opposed
// to a command failure (which travels inside Response.Result).
type TransportError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response answers exactly one Request, matched by ID.
type Response struct {
	ID     uint64                `json:"id"`
	Result *result.CommandResult `json:"result,omitempty"`
	Error  *TransportError       `json:"error,omitempty"`
}

// Event is an unsolicited server push (invocation notifications and the
// like). Events carry no ID; they answer nothing.
type Event struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// WriteFrame writes a tagged frame: [tag:1][len:4 big-endian][payload:len].
func WriteFrame(w io.Writer, tag byte, payload []byte) error {
	var header [5]byte
	header[0] = tag
	binary.BigEndian.PutUint32(header[1:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("write frame payload: %w", err)
		}
	}
	return nil
}

// ReadFrame reads one tagged frame, returning the tag and payload.
func ReadFrame(r io.Reader) (byte, []byte, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}
	tag := header[0]
	length := binary.BigEndian.Uint32(header[1:])
	if length > MaxFrameSize {
		return 0, nil, fmt.Errorf("frame of %d bytes exceeds limit", length)
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, fmt.Errorf("read frame payload: %w", err)
		}
	}
	return tag, payload, nil
}

// WriteJSON writes a tagged frame with a JSON-encoded payload.
func WriteJSON(w io.Writer, tag byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	return WriteFrame(w, tag, data)
}
