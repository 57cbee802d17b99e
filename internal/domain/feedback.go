package domain

// Feedback is a user rating for an agent run. It is logged, never persisted.
type Feedback struct {
	Score  float64 `json:"score"`
	Text   string  `json:"text,omitempty"`
	RunID  string  `json:"run_id,omitempty"`
	UserID string  `json:"user_id,omitempty"`
}
