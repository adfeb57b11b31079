package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"messenger-lab/domain"
	"messenger-lab/errors"
	"messenger-lab/services"
)

type MessageHandler struct {
	log      *slog.Logger
	messages services.IMessageService
}

func NewMessageHandler(log *slog.Logger, messages services.IMessageService) *MessageHandler {
	return &MessageHandler{log: log, messages: messages}
}

type sendBody struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	Type       string `json:"type"`
}

type paginationPayload struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var body sendBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fail(w, h.log, errors.ErrMissingField, "send body decode")
		return
	}
	message, err := h.messages.Send(r.Context(), domain.SendMessageCommand{
		SenderID:   requestUserID(r),
		ReceiverID: body.ReceiverID,
		Content:    body.Content,
		Type:       domain.MessageType(body.Type),
	})
	if err != nil {
		fail(w, h.log, err, "send message failed")
		return
	}
	respond(w, http.StatusCreated, "message sent successfully", map[string]any{"message": message})
}

func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.messages.Conversations(r.Context(), requestUserID(r))
	if err != nil {
		fail(w, h.log, err, "conversation summary failed")
		return
	}
	if conversations == nil {
		conversations = []domain.ConversationSummary{}
	}
	respond(w, http.StatusOK, "", map[string]any{"conversations": conversations})
}

// History returns one chronological page of the conversation with the
// peer in the path. Fetching also acknowledges the peer's unread
// messages; that side effect is part of the endpoint's contract.
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	cmd := domain.HistoryCommand{
		UserID:   requestUserID(r),
		PeerID:   chi.URLParam(r, "id"),
		Page:     queryInt(r, "page"),
		PageSize: queryInt(r, "limit"),
	}.Normalized()

	messages, err := h.messages.History(r.Context(), cmd)
	if err != nil {
		fail(w, h.log, err, "history fetch failed")
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	respond(w, http.StatusOK, "", map[string]any{
		"messages": messages,
		"pagination": paginationPayload{
			Page:  cmd.Page,
			Limit: cmd.PageSize,
			Total: len(messages),
		},
	})
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.messages.MarkRead(r.Context(), requestUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, h.log, err, "mark read failed")
		return
	}
	respond(w, http.StatusOK, "messages marked as read", map[string]any{"updatedCount": updated})
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.messages.Delete(r.Context(), chi.URLParam(r, "id"), requestUserID(r))
	if err != nil {
		fail(w, h.log, err, "delete message failed")
		return
	}
	respond(w, http.StatusOK, "message deleted successfully", nil)
}

func queryInt(r *http.Request, name string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return value
}
