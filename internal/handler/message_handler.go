package handler

import (
	"errors"
	"net/http"

	"github.com/Baaaki/roomchat/internal/models"
	"github.com/Baaaki/roomchat/internal/service"
	"github.com/Baaaki/roomchat/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// MessageView is a history entry as the API returns it.
type MessageView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
	}
}

// GET /messages?room=
func (h *MessageHandler) GetMessages(c *gin.Context) {
	room := models.RoomID(c.Query("room"))

	messages, err := h.messageService.GetRoomMessages(c.Request.Context(), room)
	if err != nil {
		logger.Log.Error("Failed to fetch messages",
			zap.String("room", string(room)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Error fetching messages",
			"error":   err.Error(),
		})
		return
	}

	views := lo.Map(messages, func(msg models.Message, _ int) MessageView {
		return MessageView{
			ID:        msg.ID,
			Username:  msg.Username,
			Message:   msg.Message,
			Timestamp: h.messageService.FormatTimestamp(msg),
		}
	})

	c.JSON(http.StatusOK, views)
}

// PATCH /deleteMessage/:id
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	id := c.Param("id")

	_, err := h.messageService.DeleteMessage(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Message not found"})
			return
		}

		logger.Log.Error("Failed to delete message",
			zap.String("message_id", id),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Error deleting message",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message marked as deleted"})
}
