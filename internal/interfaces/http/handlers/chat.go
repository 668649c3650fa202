package handlers

import (
	"net/http"
	"strings"

	"github.com/finsentry/aml-insight/internal/application/conversation"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
	"github.com/finsentry/aml-insight/pkg/errors"
)

// ChatRequest is the body of the conversational endpoint. History is
// caller-supplied in chronological order; the server keeps no session state.
type ChatRequest struct {
	Message             string              `json:"message"`
	ConversationHistory []conversation.Turn `json:"conversation_history"`
}

// ChatHandler serves the conversational endpoint.
type ChatHandler struct {
	router *conversation.Router
	log    logging.Logger
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(router *conversation.Router, log logging.Logger) *ChatHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ChatHandler{router: router, log: log.Named("chat_handler")}
}

// Chat serves POST /api/chat. Downstream failures surface as an error-action
// reply with HTTP 200: the chat surface renders them as messages, not as
// transport failures.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeAppError(w, errors.InvalidParam("message is required"))
		return
	}

	reply := h.router.Route(r.Context(), req.Message, req.ConversationHistory)

	payload := map[string]any{
		"response":   reply.Response,
		"action":     reply.Action,
		"partner_id": reply.PartnerID,
	}
	if reply.Data != nil {
		payload["data"] = reply.Data
	}
	writeSuccess(w, payload)
}
