package handler

import (
	"errors"
	"net/http"
	"strconv"

	"chatline/internal/auth"
	"chatline/internal/service"

	"github.com/gin-gonic/gin"
)

// MessageHandler is the REST face of the same ingest pipeline the live
// connections use.
type MessageHandler interface {
	SendMessage(c *gin.Context)
	GetMessages(c *gin.Context)
}

type messageHandler struct {
	messages service.MessageService
}

func NewMessageHandler(messages service.MessageService) MessageHandler {
	return &messageHandler{
		messages: messages,
	}
}

type sendMessageRequest struct {
	ConversationID string `json:"conversationId" binding:"required"`
	Content        string `json:"content" binding:"required"`
	ReplyTo        string `json:"replyTo"`
}

func (h *messageHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId and content are required"})
		return
	}

	msg, err := h.messages.SendMessage(c.Request.Context(), service.SendMessageInput{
		SenderID:       auth.UserID(c),
		ConversationID: req.ConversationID,
		Content:        req.Content,
		ReplyTo:        req.ReplyTo,
	})
	if err != nil {
		status := statusFor(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, msg)
}

func (h *messageHandler) GetMessages(c *gin.Context) {
	conversationID := c.Param("conversationId")
	page := c.DefaultQuery("page", "1")
	pageNumber, err := strconv.ParseInt(page, 10, 64)
	if err != nil || pageNumber < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page number"})
		return
	}

	msgs, err := h.messages.History(c.Request.Context(), conversationID, pageNumber)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "failed to get messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidReference):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
