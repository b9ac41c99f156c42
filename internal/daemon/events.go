package daemon

import (
	"sync"

	"github.com/lushly-dev/afd-sub004/internal/ipc"
)

// eventHub fans invocation events out to socket connections and SSE
// streams. Publishing never blocks; slow subscribers lose events rather
// than stalling command execution.
type eventHub struct {
	mu   sync.Mutex
	subs map[chan ipc.Event]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[chan ipc.Event]struct{})}
}

func (h *eventHub) publish(ev ipc.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *eventHub) subscribe() (<-chan ipc.Event, func()) {
	ch := make(chan ipc.Event, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	// Closing under the lock is safe against publish, which only sends
	// while holding it; close also releases ranging consumers.
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; !ok {
			return
		}
		delete(h.subs, ch)
		close(ch)
	}
}
