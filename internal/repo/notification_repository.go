package repo

import (
	"context"
	"fmt"

	"chatline/internal/db"
	"chatline/internal/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type NotificationRepository interface {
	Insert(ctx context.Context, n *model.Notification) (string, error)
}

type notificationRepository struct {
	mongoRepo *db.Repository[model.Notification]
	logger    *zap.Logger
}

func NewNotificationRepository(repo *db.Repository[model.Notification], logger *zap.Logger) NotificationRepository {
	return &notificationRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

func (r *notificationRepository) Insert(ctx context.Context, n *model.Notification) (string, error) {
	if n == nil || n.RecipientID == "" {
		return "", ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := r.mongoRepo.Create(ctx, *n)
	if err != nil {
		r.logger.Error("failed to insert notification",
			zap.String("recipient_id", n.RecipientID),
			zap.Error(err),
		)
		return "", fmt.Errorf("insert notification failed: %w", err)
	}

	insertedID := ""
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		insertedID = oid.Hex()
	}
	return insertedID, nil
}
