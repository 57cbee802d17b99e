package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mkraev/courseforge/internal/chatlog"
)

// HandleChatWS handles GET /api/chat_ws. The client sends one JSON chat
// request and receives the stream records back as JSON text messages; the
// connection closes normally once the result record has been sent.
func (h *Handler) HandleChatWS(w http.ResponseWriter, r *http.Request) {
	reqID := chiMiddleware.GetReqID(r.Context())

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "turn complete"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	_, payload, err := ws.Read(r.Context())
	if err != nil {
		slog.Warn("WebSocket read error", "error", err)
		return
	}

	var req ChatRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		if writeErr := writeWS(r.Context(), ws, map[string]string{"error": "invalid request"}); writeErr != nil {
			slog.Debug("Failed to send invalid request error", "error", writeErr)
		}
		return
	}
	if req.Message == "" {
		if writeErr := writeWS(r.Context(), ws, map[string]string{"error": "message is required"}); writeErr != nil {
			slog.Debug("Failed to send validation error", "error", writeErr)
		}
		return
	}
	req.normalize()

	// Nothing left to read after the request; CloseRead cancels the context
	// when the client goes away mid-turn.
	ctx := ws.CloseRead(r.Context())

	slog.Info("Chat WebSocket turn",
		"user_id", req.UserID,
		"session_id", req.SessionID,
		"message_length", len(req.Message),
	)
	h.logUserMessage(req, chatlog.ChannelWS, reqID)

	finalText := ""
	for rec, err := range h.chat.Stream(ctx, req) {
		if err != nil {
			slog.Error("Chat WebSocket turn failed", "user_id", req.UserID, "session_id", req.SessionID, "error", err)
			if writeErr := writeWS(ctx, ws, map[string]string{"error": "agent run failed"}); writeErr != nil {
				slog.Debug("Failed to send agent error", "error", writeErr)
			}
			return
		}
		if err := writeWS(ctx, ws, rec); err != nil {
			slog.Warn("WebSocket write error", "error", err, "user_id", req.UserID)
			return
		}
		if rec.Type == RecordResult {
			finalText = rec.Text
		}
	}
	h.logAgentResponse(req, chatlog.ChannelWS, finalText, reqID)
}

func writeWS(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
