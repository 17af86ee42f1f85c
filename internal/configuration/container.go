package configuration

import (
	"context"
	"fmt"
	"time"

	"chatline/internal/auth"
	"chatline/internal/db"
	"chatline/internal/handler"
	"chatline/internal/hub"
	"chatline/internal/model"
	"chatline/internal/repo"
	"chatline/internal/service"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Container struct {
	MessageHandler handler.MessageHandler
	Hub            *hub.Hub
	Auth           *auth.Verifier
	Config         Config
	Logger         *zap.Logger

	// private - for cleanup
	mongoClient *mongo.Database
}

func BuildContainer(configPath string) (*Container, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	con, err := db.OpenConnection(config.ChatDatabase.Uri, config.ChatDatabase.Database)
	if err != nil {
		return nil, err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	messageRepo := repo.NewMessageRepository(
		db.NewRepository[model.Message](con, config.ChatDatabase.MessagesCollection), logger)
	conversationRepo := repo.NewConversationRepository(
		db.NewRepository[model.Conversation](con, config.ChatDatabase.ConversationsCollection), logger)
	userRepo := repo.NewUserRepository(
		db.NewRepository[model.User](con, config.ChatDatabase.UsersCollection))
	notificationRepo := repo.NewNotificationRepository(
		db.NewRepository[model.Notification](con, config.ChatDatabase.NotificationsCollection), logger)

	h := hub.NewHub(logger, config.Server.AllowedOrigins)

	messageService := service.NewMessageService(messageRepo, conversationRepo, userRepo, h.Fanout(), logger)
	notificationService := service.NewNotificationService(notificationRepo, h.Fanout(), logger)

	chatHandler := hub.NewChatHandler(messageService, notificationService, logger)
	chatHandler.SetHub(h)
	h.SetHandler(chatHandler)

	messageHandler := handler.NewMessageHandler(messageService)

	return &Container{
		MessageHandler: messageHandler,
		Hub:            h,
		Auth:           auth.NewVerifier(config.Auth.JWTSecret),
		Config:         *config,
		Logger:         logger,
		mongoClient:    con,
	}, nil
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	// Close MongoDB connection pool
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	return nil
}
