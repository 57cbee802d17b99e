package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mkraev/courseforge/internal/api"
	"github.com/mkraev/courseforge/internal/chatlog"
	"github.com/mkraev/courseforge/internal/domain"
)

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20 // 1MB

// Handler exposes the chat service over HTTP. Each front-end binary mounts
// the subset of routes it serves.
type Handler struct {
	chat        *Service
	transcripts chatlog.Logger
}

// NewHandler creates an HTTP handler around the chat service. A nil
// transcript logger disables transcripts.
func NewHandler(chat *Service, transcripts chatlog.Logger) *Handler {
	if transcripts == nil {
		transcripts = chatlog.Nop()
	}
	return &Handler{chat: chat, transcripts: transcripts}
}

// HandleChat handles POST /api/chat requests. The reply is buffered: the
// client sees nothing until the whole pipeline has finished.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}
	reqID := chiMiddleware.GetReqID(r.Context())

	slog.Info("Chat request",
		"user_id", req.UserID,
		"session_id", req.SessionID,
		"message_length", len(req.Message),
	)
	h.logUserMessage(req, chatlog.ChannelHTTP, reqID)

	resp, err := h.chat.Ask(r.Context(), req)
	if err != nil {
		slog.Error("Chat turn failed", "user_id", req.UserID, "session_id", req.SessionID, "error", err)
		api.Error(w, http.StatusInternalServerError, "agent run failed")
		return
	}
	h.logAgentResponse(req, chatlog.ChannelHTTP, resp.Response, reqID)

	api.JSON(w, http.StatusOK, resp)
}

// HandleChatStream handles POST /api/chat_stream requests. Records are
// written as NDJSON, one JSON object per line, flushed per line so clients
// see progress while the pipeline works.
func (h *Handler) HandleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}
	reqID := chiMiddleware.GetReqID(r.Context())

	slog.Info("Chat stream request",
		"user_id", req.UserID,
		"session_id", req.SessionID,
		"message_length", len(req.Message),
	)
	h.logUserMessage(req, chatlog.ChannelStream, reqID)

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")

	wrote := false
	finalText := ""
	for rec, err := range h.chat.Stream(r.Context(), req) {
		if err != nil {
			slog.Error("Chat stream failed", "user_id", req.UserID, "session_id", req.SessionID, "error", err)
			if !wrote {
				api.Error(w, http.StatusInternalServerError, "agent run failed")
			}
			return
		}

		line, err := json.Marshal(rec)
		if err != nil {
			slog.Warn("failed to marshal stream record", "error", err)
			return
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			slog.Warn("failed to write stream record", "error", err, "user_id", req.UserID)
			return
		}
		flusher.Flush()
		wrote = true

		if rec.Type == RecordResult {
			finalText = rec.Text
		}
	}
	h.logAgentResponse(req, chatlog.ChannelStream, finalText, reqID)
}

// HandleFeedback handles POST /feedback requests. Feedback is logged for
// offline review, not persisted.
func (h *Handler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var fb domain.Feedback
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	slog.Info("Feedback received",
		"score", fb.Score,
		"text", fb.Text,
		"run_id", fb.RunID,
		"user_id", fb.UserID,
	)
	api.JSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// HandleHistory handles GET /api/history requests, returning recorded turns
// for a session, newest first.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = defaultUserID
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = defaultSessionID
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	turns, err := h.chat.History(r.Context(), userID, sessionID, limit)
	if err != nil {
		slog.Error("Failed to list chat history", "user_id", userID, "session_id", sessionID, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if turns == nil {
		turns = []*domain.Turn{}
	}
	api.JSON(w, http.StatusOK, map[string]any{"turns": turns})
}

// decodeChatRequest reads and validates a chat request body, writing the
// error response itself when the body is unusable.
func decodeChatRequest(w http.ResponseWriter, r *http.Request) (ChatRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return req, false
		}
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if req.Message == "" {
		api.Error(w, http.StatusBadRequest, "message is required")
		return req, false
	}
	req.normalize()
	return req, true
}

func (h *Handler) logUserMessage(req ChatRequest, channel, requestID string) {
	h.transcripts.Log(chatlog.Event{
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		Channel:    channel,
		Direction:  chatlog.DirectionOutbound,
		EventType:  chatlog.EventUserMessage,
		ContentRaw: req.Message,
		Meta:       map[string]string{"request_id": requestID},
	})
}

func (h *Handler) logAgentResponse(req ChatRequest, channel, answer, requestID string) {
	h.transcripts.Log(chatlog.Event{
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		Channel:    channel,
		Direction:  chatlog.DirectionInbound,
		EventType:  chatlog.EventAgentResponse,
		ContentRaw: answer,
		Meta:       map[string]string{"request_id": requestID},
	})
}
