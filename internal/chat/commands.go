package chat

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/lushly-dev/afd-sub004/internal/command"
	"github.com/lushly-dev/afd-sub004/internal/handoff"
	"github.com/lushly-dev/afd-sub004/internal/result"
)

// Context keys clients use to wire the chat surface into invocations.
const (
	HubKey = "chat.hub"
	// BrokerKey and EndpointKey are only set by a daemon; without them
	// chat-subscribe reports that no live channel exists.
	BrokerKey   = "chat.broker"
	EndpointKey = "chat.endpoint"
)

// HubFrom extracts the hub attached to an invocation.
func HubFrom(cc *command.Context) (*Hub, bool) {
	if cc == nil {
		return nil, false
	}
	h, ok := cc.Value(HubKey).(*Hub)
	return h, ok
}

func noHub() result.CommandResult {
	return result.Fail(result.CommandError{
		Code:       "HUB_NOT_CONFIGURED",
		Message:    "no chat hub attached to this invocation",
		Suggestion: "Attach a chat.Hub under the chat.hub context key",
	}.WithRetryable(false))
}

// RegisterCommands adds the chat command set to a registry.
func RegisterCommands(r *command.Registry) error {
	defs := []command.Definition{
		{
			Name:        "chat-send",
			Description: "Post a message to a chat room",
			Category:    "chat",
			Mutation:    true,
			Errors:      []string{result.CodeValidationError},
			Parameters: []command.Parameter{
				{Name: "room", Type: command.TypeString, Required: true},
				{Name: "author", Type: command.TypeString, Required: true},
				{Name: "text", Type: command.TypeString, Required: true},
			},
			Handler: sendHandler,
		},
		{
			Name:        "chat-history",
			Description: "Read the most recent messages in a room, oldest first",
			Category:    "chat",
			Parameters: []command.Parameter{
				{Name: "room", Type: command.TypeString, Required: true},
				{Name: "limit", Type: command.TypeNumber, Default: float64(50)},
			},
			Handler: historyHandler,
		},
		{
			Name:            "chat-subscribe",
			Description:     "Hand off to a live channel streaming new messages in a room",
			Category:        "chat",
			Handoff:         true,
			HandoffProtocol: handoff.TransportWebSocket,
			Parameters: []command.Parameter{
				{Name: "room", Type: command.TypeString, Required: true},
			},
			Handler: subscribeHandler,
		},
	}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func sendHandler(_ context.Context, input map[string]any, cc *command.Context) result.CommandResult {
	hub, ok := HubFrom(cc)
	if !ok {
		return noHub()
	}
	text := cast.ToString(input["text"])
	if strings.TrimSpace(text) == "" {
		return result.ValidationError("message text cannot be empty",
			[]string{"text: must contain at least one non-whitespace character"})
	}
	msg := hub.Post(cast.ToString(input["room"]), cast.ToString(input["author"]), text)
	return result.Ok(messageValue(msg))
}

func historyHandler(_ context.Context, input map[string]any, cc *command.Context) result.CommandResult {
	hub, ok := HubFrom(cc)
	if !ok {
		return noHub()
	}
	room := cast.ToString(input["room"])
	limit := cast.ToInt(input["limit"])

	msgs := hub.History(room, limit)
	out := make([]any, len(msgs))
	for i, m := range msgs {
		out[i] = messageValue(m)
	}
	res := result.Ok(map[string]any{"messages": out, "total": len(out)})
	if len(out) == 0 {
		res = res.WithSuggestions("Post a first message with chat-send, or check the room name")
	}
	return res
}

func subscribeHandler(_ context.Context, input map[string]any, cc *command.Context) result.CommandResult {
	if _, ok := HubFrom(cc); !ok {
		return noHub()
	}
	broker, _ := cc.Value(BrokerKey).(*handoff.Broker)
	endpoint, _ := cc.Value(EndpointKey).(string)
	if broker == nil || endpoint == "" {
		return result.Fail(result.CommandError{
			Code:       "HANDOFF_UNAVAILABLE",
			Message:    "no live channel endpoint is running",
			Suggestion: "Start the daemon with the HTTP surface enabled and call chat-subscribe remotely",
		}.WithRetryable(false))
	}

	room := cast.ToString(input["room"])
	grant := broker.Mint("chat:"+room, cc.Source)
	ho := handoff.Result{
		Transport:    handoff.TransportWebSocket,
		Endpoint:     endpoint,
		Credential:   grant.Credential,
		ExpiresAt:    grant.ExpiresAt,
		Capabilities: []string{"receive"},
		Reconnect:    &handoff.ReconnectPolicy{Allowed: true, MaxAttempts: 5, BackoffMS: 500},
		Description:  "streams messages posted to " + room,
	}
	return result.Ok(ho).
		WithReasoning("polling chat-history cannot keep up with a live room; switching to a push channel")
}

// messageValue keeps wire and in-process data shapes identical.
func messageValue(m Message) map[string]any {
	return map[string]any{
		"id":     m.ID,
		"room":   m.Room,
		"author": m.Author,
		"text":   m.Text,
		"sentAt": m.SentAt.Format(time.RFC3339Nano),
	}
}
