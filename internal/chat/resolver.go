package chat

import (
	"context"
	"fmt"

	"trpc.group/trpc-go/trpc-agent-go/session"
)

// SessionStore is the slice of session.Service the resolver needs.
type SessionStore interface {
	GetSession(ctx context.Context, key session.Key, options ...session.Option) (*session.Session, error)
	CreateSession(ctx context.Context, key session.Key, state session.StateMap, options ...session.Option) (*session.Session, error)
}

// Resolver guarantees a pipeline session exists before a run starts.
type Resolver struct {
	appName  string
	sessions SessionStore
}

// NewResolver creates a resolver scoped to one pipeline app.
func NewResolver(appName string, sessions SessionStore) *Resolver {
	return &Resolver{appName: appName, sessions: sessions}
}

// Resolve fetches the session for the request, creating it on first
// contact. A backend failure surfaces to the caller rather than silently
// minting a fresh session over a possibly existing history.
func (r *Resolver) Resolve(ctx context.Context, userID, sessionID string) (*session.Session, error) {
	key := session.Key{AppName: r.appName, UserID: userID, SessionID: sessionID}

	sess, err := r.sessions.GetSession(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess != nil {
		return sess, nil
	}

	sess, err = r.sessions.CreateSession(ctx, key, session.StateMap{})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}
