package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/quillhq/quill/internal/chat"
	"github.com/quillhq/quill/internal/log"
)

// Answerer runs one chat request end to end, emitting answer fragments
// as they arrive. It is chat.Orchestrator behind an interface so handler
// tests can substitute a fake.
type Answerer interface {
	Answer(ctx context.Context, req chat.Request, emit chat.EmitFunc) (*chat.Followup, error)
}

// ChatHandler serves POST /api/v1/chat.
type ChatHandler struct {
	answerer Answerer
	logger   log.Logger
}

// NewChatHandler creates a chat handler around the given orchestrator.
func NewChatHandler(answerer Answerer, logger log.Logger) *ChatHandler {
	return &ChatHandler{answerer: answerer, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/chat", h.handleChat)
}

// chatPayload is the inbound request body. Either Message or Messages
// must carry question content.
type chatPayload struct {
	Message  string        `json:"message"`
	Messages []payloadTurn `json:"messages"`
	Followup *payloadRef   `json:"followup"`
	Timezone string        `json:"timezone"`
}

// payloadTurn is one conversation turn supplied by the client.
type payloadTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// payloadRef re-submits a question after a clarification round.
type payloadRef struct {
	OriginalQuestion string `json:"originalQuestion"`
}

// followupResponse is the terminal clarification body: the planner needs
// more information, so no answer is streamed.
type followupResponse struct {
	Type             string `json:"type"`
	FollowupQuestion string `json:"followupQuestion"`
	OriginalQuestion string `json:"originalQuestion"`
}

// handleChat decodes the payload, runs the orchestrator and either
// streams the answer as chunked text/plain or returns a followup JSON
// body. A provider failure after the first streamed byte aborts the
// connection so the client never mistakes a truncated answer for a
// complete one.
func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeChatPayload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := chat.Request{
		Question: payload.Message,
		Timezone: payload.Timezone,
	}
	for _, turn := range payload.Messages {
		req.Messages = append(req.Messages, chat.Message{Role: turn.Role, Content: turn.Content})
	}
	if payload.Followup != nil {
		req.OriginalQuestion = payload.Followup.OriginalQuestion
	}

	flusher, _ := w.(http.Flusher)
	streaming := false
	emit := func(_ context.Context, chunk string) error {
		if !streaming {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			streaming = true
		}
		if _, werr := io.WriteString(w, chunk); werr != nil {
			return werr
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	followup, err := h.answerer.Answer(r.Context(), req, emit)
	switch {
	case err != nil:
		if r.Context().Err() != nil {
			// Client went away; nothing left to say.
			return
		}
		h.logger.Error("chat request failed",
			"error", err,
			"streaming", streaming,
			"request_id", RequestID(r.Context()))
		if streaming {
			// Headers are out; aborting the connection is the only
			// remaining error signal.
			panic(http.ErrAbortHandler)
		}
		writeError(w, http.StatusInternalServerError, "failed to answer question")
	case followup != nil:
		writeJSON(w, http.StatusOK, followupResponse{
			Type:             "followup",
			FollowupQuestion: followup.FollowupQuestion,
			OriginalQuestion: followup.OriginalQuestion,
		})
	case !streaming:
		// Model produced no tokens; close out an empty 200 rather than
		// leaving the client waiting.
		w.WriteHeader(http.StatusOK)
	}
}

// errMissingQuestion rejects payloads with no question content anywhere.
var errMissingQuestion = errors.New("missing message content")

// decodeChatPayload parses and validates the request body.
func decodeChatPayload(r *http.Request) (*chatPayload, error) {
	var payload chatPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return nil, errors.New("invalid JSON payload")
	}
	if strings.TrimSpace(payload.Message) != "" {
		return &payload, nil
	}
	for _, turn := range payload.Messages {
		if strings.TrimSpace(turn.Content) != "" {
			return &payload, nil
		}
	}
	return nil, errMissingQuestion
}
