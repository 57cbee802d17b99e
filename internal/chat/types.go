// Package chat relays user messages through the course pipeline and shapes
// the replies for the HTTP, NDJSON and WebSocket surfaces.
package chat

// Identity defaults used by the bundled frontend when the client sends none.
const (
	defaultUserID    = "test_user"
	defaultSessionID = "test_session"
)

// ChatRequest represents a chat request from a client.
type ChatRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// normalize fills in the demo identity defaults.
func (r *ChatRequest) normalize() {
	if r.UserID == "" {
		r.UserID = defaultUserID
	}
	if r.SessionID == "" {
		r.SessionID = defaultSessionID
	}
}

// ChatResponse represents a buffered chat reply.
type ChatResponse struct {
	Response string `json:"response"`
}

// Stream record types.
const (
	// RecordProgress announces which pipeline stage is currently working.
	RecordProgress = "progress"
	// RecordResult carries the aggregated course text. Always the last record.
	RecordResult = "result"
)

// StreamRecord is a single record of a streamed reply; on the NDJSON
// endpoint each record is one line.
type StreamRecord struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
