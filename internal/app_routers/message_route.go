package approuters

import (
	"chatline/internal/configuration"

	"github.com/gin-gonic/gin"
)

func MessageRouters(router *gin.Engine, container *configuration.Container) {
	messageRoute := router.Group("/api/messages", container.Auth.Middleware())
	{
		messageRoute.POST("", container.MessageHandler.SendMessage)
		messageRoute.GET("/:conversationId", container.MessageHandler.GetMessages)
	}
}
