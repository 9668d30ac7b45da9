package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/dealflowbot/backend/internal/chat"
)

// WebhookHandler receives chat transport updates and answers with the
// queued outbound messages for the requesting chat.
type WebhookHandler struct {
	router *chat.Router
	outbox *chat.Outbox
}

func NewWebhookHandler(router *chat.Router, outbox *chat.Outbox) *WebhookHandler {
	return &WebhookHandler{router: router, outbox: outbox}
}

type webhookFile struct {
	Name string `json:"name"`
	Data []byte `json:"data"` // base64 in JSON
}

type webhookRequest struct {
	ChatID       string       `json:"chat_id" binding:"required"`
	Text         string       `json:"text"`
	CallbackData string       `json:"callback_data"`
	File         *webhookFile `json:"file"`
}

// HandleUpdate processes one inbound update synchronously and drains the
// requester's outbox into the response.
func (h *WebhookHandler) HandleUpdate(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	upd := chat.Update{
		ChatID:       req.ChatID,
		Text:         req.Text,
		CallbackData: req.CallbackData,
	}
	if req.File != nil {
		upd.File = &chat.IncomingFile{Name: req.File.Name, Data: req.File.Data}
	}

	klog.V(6).Infof("webhook update: chatID=%s, callback=%s", req.ChatID, req.CallbackData)
	h.router.HandleUpdate(c.Request.Context(), upd)

	c.JSON(http.StatusOK, gin.H{"messages": h.outbox.Drain(req.ChatID)})
}

// PollOutbox returns and clears the queued messages for a chat. Used by
// transports that cannot receive pushes (notifications to third chats).
func (h *WebhookHandler) PollOutbox(c *gin.Context) {
	chatID := c.Param("chat_id")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat_id is required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": h.outbox.Drain(chatID)})
}
