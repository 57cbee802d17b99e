// Package domain contains core domain types for the CourseForge front-ends.
package domain

import (
	"time"
)

// Turn is one completed request/response cycle: one user message in, one
// aggregated agent answer out. Turns are recorded after the answer has been
// fully aggregated, never mid-stream.
type Turn struct {
	ID        string    `json:"id"`
	AppName   string    `json:"app_name"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// Age returns how long ago the turn completed.
func (t *Turn) Age() time.Duration {
	return time.Since(t.CreatedAt)
}
