package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatline/internal/db"
	"chatline/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type conversationRepository struct {
	mongoRepo *db.Repository[model.Conversation]
	logger    *zap.Logger
}

type ConversationRepository interface {
	FindByID(ctx context.Context, conversationID string) (*model.Conversation, error)
	SetLatestMessage(ctx context.Context, conversationID string, latest *model.LatestMessage) error
}

func NewConversationRepository(repo *db.Repository[model.Conversation], logger *zap.Logger) ConversationRepository {
	return &conversationRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

// FindByID fetches a conversation document by ID, or (nil, nil) when absent.
func (r *conversationRepository) FindByID(ctx context.Context, conversationID string) (*model.Conversation, error) {
	if conversationID == "" {
		return nil, ErrInvalidID
	}

	ctx, cancel := r.ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	conversation, err := r.mongoRepo.FindByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.Debug("conversation not found",
				zap.String("conversation_id", conversationID),
			)
			return nil, nil
		}
		r.logger.Error("failed to fetch conversation",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to fetch conversation: %w", err)
	}

	return conversation, nil
}

// SetLatestMessage updates the conversation's latest-message pointer.
// A nil latest clears the pointer (no surviving messages).
func (r *conversationRepository) SetLatestMessage(ctx context.Context, conversationID string, latest *model.LatestMessage) error {
	if conversationID == "" {
		return ErrInvalidID
	}

	ctx, cancel := r.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	var update bson.M
	if latest == nil {
		update = bson.M{
			"$unset": bson.M{"last_message": ""},
			"$set":   bson.M{"updated_at": now},
		}
	} else {
		update = bson.M{
			"$set": bson.M{"last_message": latest, "updated_at": now},
		}
	}

	result, err := r.mongoRepo.PatchByID(ctx, conversationID, update)
	if err != nil {
		r.logger.Error("failed to update latest-message pointer",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return fmt.Errorf("update latest message failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("update conversation %s: %w", conversationID, mongo.ErrNoDocuments)
	}

	return nil
}

func (r *conversationRepository) ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
