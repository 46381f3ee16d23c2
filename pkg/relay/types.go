package relay

import "encoding/json"

// Message types exchanged with the upstream monitor and local subscribers.
const (
	TypeConnected  = "connected"
	TypeError      = "error"
	TypeUserUpdate = "user-update"
	TypeSubscribe  = "subscribe"
	TypeSystem     = "system"
)

// Upstream status strings reported to local subscribers.
const (
	StatusConnected    = "Connected"
	StatusConnecting   = "Connecting..."
	StatusDisconnected = "Disconnected"
)

// Envelope is the common shape of upstream frames. Only the fields the relay
// acts on are decoded; the raw frame is what gets forwarded.
type Envelope struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// MessageText returns message as plain text when it is a JSON string, and
// the raw JSON otherwise.
func (e Envelope) MessageText() string {
	var s string
	if err := json.Unmarshal(e.Message, &s); err == nil {
		return s
	}
	return string(e.Message)
}

// SubscribeRequest asks the upstream monitor to stream one account's posts.
type SubscribeRequest struct {
	Type            string `json:"type"`
	TwitterUsername string `json:"twitterUsername"`
}

// SystemMessage is produced locally to describe upstream connectivity.
type SystemMessage struct {
	Type           string `json:"type"`
	Message        string `json:"message"`
	UpstreamStatus string `json:"upstreamStatus"`
}

// NewSystemMessage returns the serialized system frame.
func NewSystemMessage(message, status string) []byte {
	b, _ := json.Marshal(SystemMessage{Type: TypeSystem, Message: message, UpstreamStatus: status})
	return b
}
