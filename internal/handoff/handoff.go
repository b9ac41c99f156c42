// Package handoff lets a command delegate further interaction to a
// higher-frequency channel. Instead of ordinary data, the command returns
// a Result naming a transport, an endpoint and a short-lived credential;
// the caller opens that channel directly and the request/response
// relationship for the command ends there.
package handoff

import "time"

// Standard transports. The field is open-ended; custom transports are
// allowed as long as caller and channel endpoint agree on them.
const (
	TransportWebSocket = "websocket"
	TransportSSE       = "sse"
)

// ReconnectPolicy tells the caller whether and how to reconnect.
type ReconnectPolicy struct {
	Allowed     bool  `json:"allowed"`
	MaxAttempts int   `json:"maxAttempts,omitempty"`
	BackoffMS   int64 `json:"backoffMs,omitempty"`
}

// Result is the data payload of a handoff command. The credential is
// single-use and worthless after ExpiresAt; callers must call the
// command again to mint a fresh one, never retry the old response.
type Result struct {
	Transport    string           `json:"transport"`
	Endpoint     string           `json:"endpoint"`
	Credential   string           `json:"credential"`
	ExpiresAt    time.Time        `json:"expiresAt"`
	Capabilities []string         `json:"capabilities,omitempty"`
	Reconnect    *ReconnectPolicy `json:"reconnect,omitempty"`
	Description  string           `json:"description,omitempty"`
}

// IsHandoff reports whether a command's data payload is a handoff.
// It accepts both the typed form and the decoded-JSON map form, since
// remote results arrive as generic maps.
func IsHandoff(data any) bool {
	switch v := data.(type) {
	case Result:
		return v.Transport != "" && v.Endpoint != ""
	case *Result:
		return v != nil && v.Transport != "" && v.Endpoint != ""
	case map[string]any:
		transport, _ := v["transport"].(string)
		endpoint, _ := v["endpoint"].(string)
		return transport != "" && endpoint != ""
	default:
		return false
	}
}
