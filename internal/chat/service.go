package chat

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"trpc.group/trpc-go/trpc-agent-go/agent"
	"trpc.group/trpc-go/trpc-agent-go/event"
	"trpc.group/trpc-go/trpc-agent-go/model"

	"github.com/mkraev/courseforge/internal/domain"
	"github.com/mkraev/courseforge/internal/store"
)

// saveTurnTimeout bounds turn recording after the reply has been served.
const saveTurnTimeout = 5 * time.Second

// Runner is the slice of runner.Runner the service needs.
type Runner interface {
	Run(ctx context.Context, userID, sessionID string, message model.Message, opts ...agent.RunOption) (<-chan *event.Event, error)
}

// Service runs chat turns through the pipeline and aggregates the replies.
type Service struct {
	appName  string
	runner   Runner
	resolver *Resolver
	turns    store.Repository
}

// NewService wires a relay for one pipeline app. turns may be nil when no
// history should be kept.
func NewService(appName string, rn Runner, sessions SessionStore, turns store.Repository) *Service {
	return &Service{
		appName:  appName,
		runner:   rn,
		resolver: NewResolver(appName, sessions),
		turns:    turns,
	}
}

// Ask runs one buffered turn. The reply is every completed text fragment
// the pipeline produced, joined line by line and trimmed.
func (s *Service) Ask(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	req.normalize()
	if _, err := s.resolver.Resolve(ctx, req.UserID, req.SessionID); err != nil {
		return nil, err
	}

	events, err := s.runner.Run(ctx, req.UserID, req.SessionID, model.NewUserMessage(req.Message))
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", s.appName, err)
	}

	var reply strings.Builder
	for e := range events {
		if e == nil || (e.Response != nil && e.Response.IsPartial) {
			continue
		}
		for _, text := range fragments(e) {
			reply.WriteString(text)
			reply.WriteString("\n")
		}
	}

	answer := strings.TrimSpace(reply.String())
	s.recordTurn(ctx, req, answer)
	return &ChatResponse{Response: answer}, nil
}

// Stream runs one turn and yields progress banners while stages work, then
// the aggregated course text as the final record. The result record is
// always last; a closed event channel is the only end-of-turn signal.
func (s *Service) Stream(ctx context.Context, req ChatRequest) iter.Seq2[*StreamRecord, error] {
	return func(yield func(*StreamRecord, error) bool) {
		req.normalize()
		if _, err := s.resolver.Resolve(ctx, req.UserID, req.SessionID); err != nil {
			yield(nil, err)
			return
		}

		events, err := s.runner.Run(ctx, req.UserID, req.SessionID, model.NewUserMessage(req.Message))
		if err != nil {
			yield(nil, fmt.Errorf("run %s: %w", s.appName, err))
			return
		}

		var result strings.Builder
		for e := range events {
			if e == nil {
				continue
			}
			if notice, ok := progressNotice(e.Author); ok {
				if !yield(&StreamRecord{Type: RecordProgress, Text: notice}, nil) {
					return
				}
			}
			if e.Response != nil && e.Response.IsPartial {
				continue
			}
			for _, text := range fragments(e) {
				result.WriteString(text)
			}
		}

		answer := strings.TrimSpace(result.String())
		s.recordTurn(ctx, req, answer)
		yield(&StreamRecord{Type: RecordResult, Text: answer}, nil)
	}
}

// History lists recorded turns for a session, newest first.
func (s *Service) History(ctx context.Context, userID, sessionID string, limit int) ([]*domain.Turn, error) {
	if s.turns == nil {
		return nil, nil
	}
	return s.turns.ListTurns(ctx, userID, sessionID, limit)
}

// AppName returns the pipeline app this service fronts.
func (s *Service) AppName() string {
	return s.appName
}

// recordTurn persists a completed turn. History is best effort: failures
// are logged and never fail a served reply. The save is detached from the
// request context so a client disconnect cannot lose the record.
func (s *Service) recordTurn(ctx context.Context, req ChatRequest, answer string) {
	if s.turns == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTurnTimeout)
	defer cancel()

	turn := &domain.Turn{
		ID:        uuid.NewString(),
		AppName:   s.appName,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Question:  req.Message,
		Answer:    answer,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.turns.SaveTurn(saveCtx, turn); err != nil {
		slog.Warn("failed to record chat turn", "user_id", req.UserID, "session_id", req.SessionID, "error", err)
	}
}
