// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/mkraev/courseforge/internal/domain"
)

// Repository defines the interface for persisting completed chat turns.
type Repository interface {
	// SaveTurn records one completed turn.
	SaveTurn(ctx context.Context, turn *domain.Turn) error

	// ListTurns returns the most recent turns for a (user, session) pair,
	// newest first, up to limit. A limit <= 0 applies a default.
	ListTurns(ctx context.Context, userID, sessionID string, limit int) ([]*domain.Turn, error)

	// DeleteTurnsBefore removes turns completed before the cutoff and
	// returns the number of rows deleted.
	DeleteTurnsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// CountTurns returns the total number of recorded turns.
	CountTurns(ctx context.Context) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
