package a2abridge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"trpc.group/trpc-go/trpc-a2a-go/protocol"
	"trpc.group/trpc-go/trpc-a2a-go/taskmanager"

	"github.com/mkraev/courseforge/internal/chat"
	"github.com/mkraev/courseforge/internal/chatlog"
)

// a2aUserID separates remote agent traffic from browser sessions in turn
// history and transcripts.
const a2aUserID = "a2a_client"

// Asker runs one buffered chat turn.
type Asker interface {
	Ask(ctx context.Context, req chat.ChatRequest) (*chat.ChatResponse, error)
}

// processor relays incoming A2A messages through the course pipeline and
// replies with the aggregated course text as a single agent message.
type processor struct {
	chat        Asker
	transcripts chatlog.Logger
}

// ProcessMessage implements taskmanager.MessageProcessor.
func (p *processor) ProcessMessage(ctx context.Context, message protocol.Message, _ taskmanager.ProcessOptions, _ taskmanager.TaskHandler) (*taskmanager.MessageProcessingResult, error) {
	text := extractText(message)
	if text == "" {
		return nil, fmt.Errorf("input message must contain text")
	}

	req := chat.ChatRequest{Message: text, UserID: a2aUserID}
	if message.ContextID != nil && *message.ContextID != "" {
		req.SessionID = *message.ContextID
	}

	slog.Info("A2A message", "session_id", req.SessionID, "message_length", len(text))
	p.transcripts.Log(chatlog.Event{
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		Channel:    chatlog.ChannelA2A,
		Direction:  chatlog.DirectionOutbound,
		EventType:  chatlog.EventUserMessage,
		ContentRaw: text,
	})

	resp, err := p.chat.Ask(ctx, req)
	if err != nil {
		slog.Error("A2A turn failed", "session_id", req.SessionID, "error", err)
		return nil, fmt.Errorf("run course pipeline: %w", err)
	}
	p.transcripts.Log(chatlog.Event{
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		Channel:    chatlog.ChannelA2A,
		Direction:  chatlog.DirectionInbound,
		EventType:  chatlog.EventAgentResponse,
		ContentRaw: resp.Response,
	})

	reply := protocol.NewMessage(protocol.MessageRoleAgent, []protocol.Part{
		protocol.NewTextPart(resp.Response),
	})
	return &taskmanager.MessageProcessingResult{Result: &reply}, nil
}

// extractText concatenates the text parts of a message.
func extractText(message protocol.Message) string {
	var sb strings.Builder
	for _, part := range message.Parts {
		if textPart, ok := part.(*protocol.TextPart); ok {
			sb.WriteString(textPart.Text)
		}
	}
	return sb.String()
}
