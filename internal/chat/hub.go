// Package chat is the streaming example: slow-path commands post and
// read messages, and chat-subscribe hands the caller off to a live
// channel instead of polling.
package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// historyCap bounds per-room history. Older messages fall off; the
// command surface is a demo, not an archive.
const historyCap = 1000

// Message is one chat message in a room.
type Message struct {
	ID     string    `json:"id"`
	Room   string    `json:"room"`
	Author string    `json:"author"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
}

// Subscription receives messages posted to a room after Subscribe.
// Messages is closed when the subscription is cancelled or the hub
// drops a slow consumer.
type Subscription struct {
	Messages <-chan Message
	cancel   func()
}

// Cancel detaches the subscription. Safe to call more than once.
func (s *Subscription) Cancel() { s.cancel() }

// Hub holds rooms, their recent history and live subscribers.
type Hub struct {
	mu    sync.Mutex
	rooms map[string][]Message
	subs  map[string]map[chan Message]struct{}
	now   func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string][]Message),
		subs:  make(map[string]map[chan Message]struct{}),
		now:   time.Now,
	}
}

// Post appends a message to a room and fans it out to subscribers.
// Subscribers that cannot keep up are dropped rather than blocking the
// sender.
func (h *Hub) Post(room, author, text string) Message {
	msg := Message{
		ID:     uuid.NewString(),
		Room:   room,
		Author: author,
		Text:   text,
		SentAt: h.now().UTC(),
	}

	h.mu.Lock()
	history := append(h.rooms[room], msg)
	if len(history) > historyCap {
		history = history[len(history)-historyCap:]
	}
	h.rooms[room] = history

	var dropped []chan Message
	for ch := range h.subs[room] {
		select {
		case ch <- msg:
		default:
			dropped = append(dropped, ch)
		}
	}
	for _, ch := range dropped {
		delete(h.subs[room], ch)
		close(ch)
	}
	h.mu.Unlock()
	return msg
}

// History returns the most recent limit messages in a room, oldest
// first. limit <= 0 returns everything retained.
func (h *Hub) History(room string, limit int) []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	history := h.rooms[room]
	if limit > 0 && limit < len(history) {
		history = history[len(history)-limit:]
	}
	out := make([]Message, len(history))
	copy(out, history)
	return out
}

// Subscribe attaches a live consumer to a room.
func (h *Hub) Subscribe(room string) *Subscription {
	ch := make(chan Message, 64)
	h.mu.Lock()
	if h.subs[room] == nil {
		h.subs[room] = make(map[chan Message]struct{})
	}
	h.subs[room][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return &Subscription{
		Messages: ch,
		cancel: func() {
			once.Do(func() {
				h.mu.Lock()
				if _, ok := h.subs[room][ch]; ok {
					delete(h.subs[room], ch)
					close(ch)
				}
				h.mu.Unlock()
			})
		},
	}
}
