package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing    Action = "ping"
	ActionRefresh Action = "refresh"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError    Event = "error"
	EventSnapshot Event = "snapshot"
	EventPong     Event = "pong"
)

// SnapshotEvent announces that a fresh platform snapshot is available.
// Clients re-query the tool endpoints for the data itself.
type SnapshotEvent struct {
	Event       Event  `json:"event"`
	UpdatedAt   string `json:"updated_at"`
	Children    int    `json:"children"`
	UnreadCount int    `json:"unread_count"`
	Warnings    int    `json:"warnings"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
