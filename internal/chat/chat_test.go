package chat

import (
	"context"
	"testing"
	"time"

	"github.com/lushly-dev/afd-sub004/internal/command"
	"github.com/lushly-dev/afd-sub004/internal/handoff"
	"github.com/lushly-dev/afd-sub004/internal/result"
)

func TestPostAndHistory(t *testing.T) {
	h := NewHub()
	h.Post("general", "ana", "hello")
	h.Post("general", "bob", "hi")
	h.Post("other", "ana", "elsewhere")

	msgs := h.History("general", 0)
	if len(msgs) != 2 {
		t.Fatalf("history = %d messages", len(msgs))
	}
	if msgs[0].Text != "hello" || msgs[1].Text != "hi" {
		t.Errorf("order: %q, %q", msgs[0].Text, msgs[1].Text)
	}

	if got := h.History("general", 1); len(got) != 1 || got[0].Text != "hi" {
		t.Errorf("limit: %+v", got)
	}
	if got := h.History("empty", 0); len(got) != 0 {
		t.Errorf("unknown room: %+v", got)
	}
}

func TestSubscribeReceivesLiveMessages(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("general")
	defer sub.Cancel()

	h.Post("general", "ana", "live")
	h.Post("other", "ana", "not for us")

	select {
	case msg := <-sub.Messages:
		if msg.Text != "live" {
			t.Errorf("msg = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}

	select {
	case msg := <-sub.Messages:
		t.Errorf("unexpected message from other room: %+v", msg)
	default:
	}
}

func TestCancelClosesSubscription(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("general")
	sub.Cancel()
	sub.Cancel() // idempotent

	if _, open := <-sub.Messages; open {
		t.Error("channel still open after cancel")
	}
	h.Post("general", "ana", "after cancel") // must not panic
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("general")

	// Fill the buffer and then some.
	for i := 0; i < 70; i++ {
		h.Post("general", "ana", "spam")
	}

	n := 0
	for range sub.Messages {
		n++
	}
	if n != 64 {
		t.Errorf("received %d messages before drop", n)
	}
}

func chatSetup(t *testing.T, withChannel bool) (*command.Registry, *command.Context, *Hub) {
	t.Helper()
	r := command.NewRegistry()
	if err := RegisterCommands(r); err != nil {
		t.Fatal(err)
	}
	hub := NewHub()
	extra := map[string]any{HubKey: hub}
	if withChannel {
		extra[BrokerKey] = handoff.NewBroker(time.Minute)
		extra[EndpointKey] = "ws://127.0.0.1:7465/channels"
	}
	return r, &command.Context{TraceID: "t", Source: "test", Extra: extra}, hub
}

func TestSendAndHistoryCommands(t *testing.T) {
	r, cc, _ := chatSetup(t, false)
	ctx := context.Background()

	res := r.Execute(ctx, "chat-send", map[string]any{
		"room": "general", "author": "ana", "text": "hello",
	}, cc)
	if !res.Success {
		t.Fatalf("send failed: %+v", res.Error)
	}

	res = r.Execute(ctx, "chat-history", map[string]any{"room": "general"}, cc)
	if !res.Success {
		t.Fatalf("history failed: %+v", res.Error)
	}
	data := res.Data.(map[string]any)
	if data["total"] != 1 {
		t.Errorf("total = %v", data["total"])
	}

	res = r.Execute(ctx, "chat-send", map[string]any{
		"room": "general", "author": "ana", "text": "  ",
	}, cc)
	if res.Success || res.Error.Code != result.CodeValidationError {
		t.Errorf("blank text: %+v", res)
	}
}

func TestSubscribeHandsOff(t *testing.T) {
	r, cc, _ := chatSetup(t, true)
	res := r.Execute(context.Background(), "chat-subscribe", map[string]any{"room": "general"}, cc)
	if !res.Success {
		t.Fatalf("subscribe failed: %+v", res.Error)
	}
	if !handoff.IsHandoff(res.Data) {
		t.Fatalf("data is not a handoff: %+v", res.Data)
	}
	ho := res.Data.(handoff.Result)
	if ho.Transport != handoff.TransportWebSocket || ho.Credential == "" {
		t.Errorf("handoff = %+v", ho)
	}
	if !ho.ExpiresAt.After(time.Now()) {
		t.Error("credential already expired")
	}
}

func TestSubscribeWithoutChannel(t *testing.T) {
	r, cc, _ := chatSetup(t, false)
	res := r.Execute(context.Background(), "chat-subscribe", map[string]any{"room": "general"}, cc)
	if res.Success || res.Error.Code != "HANDOFF_UNAVAILABLE" {
		t.Errorf("res = %+v", res)
	}
}
