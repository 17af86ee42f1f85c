package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatline/internal/db"
	"chatline/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	ErrMaxRetriesExceeded = errors.New("maximum retry attempts exceeded")
	ErrInvalidMessage     = errors.New("invalid message: message cannot be nil")
	ErrInvalidID          = errors.New("invalid id: cannot be empty")
	ErrOperationTimeout   = errors.New("operation timeout exceeded")
)

const (
	// Timeouts
	defaultWriteTimeout = 5 * time.Second
	defaultReadTimeout  = 30 * time.Second

	// Retry configuration
	maxRetries     = 3
	baseRetryDelay = 100 * time.Millisecond
	maxRetryDelay  = 2 * time.Second

	historyPageSize = 15
)

type messageRepository struct {
	mongoRepo *db.Repository[model.Message]
	logger    *zap.Logger
}

type MessageRepository interface {
	Insert(ctx context.Context, msg *model.Message) (string, error)
	FindByID(ctx context.Context, id string) (*model.Message, error)
	SaveReactions(ctx context.Context, id string, reactions []model.Reaction) error
	SaveReadBy(ctx context.Context, id string, readBy []model.ReadReceipt) error
	SetPinned(ctx context.Context, id string, pinned bool) error
	SetContent(ctx context.Context, id string, content string, editedAt time.Time) error
	Delete(ctx context.Context, id string) error
	LatestIn(ctx context.Context, conversationID string) (*model.Message, error)
	FilterByConversation(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error)
}

func NewMessageRepository(repo *db.Repository[model.Message], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

// -----------------------------------------------------------------------------
// Insert
// -----------------------------------------------------------------------------

func (m *messageRepository) Insert(ctx context.Context, msg *model.Message) (string, error) {
	if err := m.validateMessage(msg); err != nil {
		return "", err
	}

	ctx, cancel := m.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := m.waitForRetry(ctx, attempt); err != nil {
				return "", err
			}
		}

		result, err := m.mongoRepo.Create(ctx, *msg)
		if err == nil {
			insertedID := ""
			if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
				insertedID = oid.Hex()
			}

			m.logger.Info("message inserted",
				zap.String("inserted_id", insertedID),
				zap.String("conversation_id", msg.ConversationID.Hex()),
				zap.Int("attempt", attempt+1),
			)
			return insertedID, nil
		}

		lastErr = err

		if !m.isRetryableError(err) {
			break
		}

		m.logger.Warn("insert attempt failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxRetries),
		)
	}

	m.logger.Error("failed to insert message after all retries",
		zap.Error(lastErr),
		zap.String("conversation_id", msg.ConversationID.Hex()),
	)

	return "", fmt.Errorf("insert message failed: %w", lastErr)
}

// -----------------------------------------------------------------------------
// Point reads
// -----------------------------------------------------------------------------

// FindByID returns the message, or (nil, nil) when no such document exists.
func (m *messageRepository) FindByID(ctx context.Context, id string) (*model.Message, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	ctx, cancel := m.ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	msg, err := m.mongoRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		m.logger.Error("failed to fetch message", zap.String("message_id", id), zap.Error(err))
		return nil, fmt.Errorf("find message failed: %w", err)
	}
	return msg, nil
}

// LatestIn returns the surviving message with the greatest creation time in
// the conversation, or (nil, nil) when the conversation has no messages left.
func (m *messageRepository) LatestIn(ctx context.Context, conversationID string) (*model.Message, error) {
	if conversationID == "" {
		return nil, ErrInvalidID
	}

	ctx, cancel := m.ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().ObjectID("conversation_id", conversationID).Build()
	msg, err := m.mongoRepo.FindOneSorted(ctx, filter, "created_at", true)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		m.logger.Error("failed to find latest message",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("find latest message failed: %w", err)
	}
	return msg, nil
}

// -----------------------------------------------------------------------------
// Sub-state updates
// -----------------------------------------------------------------------------

func (m *messageRepository) SaveReactions(ctx context.Context, id string, reactions []model.Reaction) error {
	return m.patch(ctx, id, bson.M{"reactions": reactions})
}

func (m *messageRepository) SaveReadBy(ctx context.Context, id string, readBy []model.ReadReceipt) error {
	return m.patch(ctx, id, bson.M{"read_by": readBy})
}

func (m *messageRepository) SetPinned(ctx context.Context, id string, pinned bool) error {
	return m.patch(ctx, id, bson.M{"pinned": pinned})
}

func (m *messageRepository) SetContent(ctx context.Context, id string, content string, editedAt time.Time) error {
	return m.patch(ctx, id, bson.M{"content": content, "edited_at": editedAt})
}

func (m *messageRepository) patch(ctx context.Context, id string, fields bson.M) error {
	if id == "" {
		return ErrInvalidID
	}

	ctx, cancel := m.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := m.mongoRepo.UpdateByID(ctx, id, fields)
	if err != nil {
		m.logger.Error("failed to update message", zap.String("message_id", id), zap.Error(err))
		return fmt.Errorf("update message failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("update message %s: %w", id, mongo.ErrNoDocuments)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Delete
// -----------------------------------------------------------------------------

func (m *messageRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidID
	}

	ctx, cancel := m.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := m.mongoRepo.DeleteByID(ctx, id)
	if err != nil {
		m.logger.Error("failed to delete message", zap.String("message_id", id), zap.Error(err))
		return fmt.Errorf("delete message failed: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("delete message %s: %w", id, mongo.ErrNoDocuments)
	}

	m.logger.Info("message deleted", zap.String("message_id", id))
	return nil
}

// -----------------------------------------------------------------------------
// History
// -----------------------------------------------------------------------------

func (m *messageRepository) FilterByConversation(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	if conversationID == "" {
		return nil, ErrInvalidID
	}

	ctx, cancel := m.ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().ObjectID("conversation_id", conversationID).Build()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := m.waitForRetry(ctx, attempt); err != nil {
				return nil, err
			}
			m.logger.Warn("retrying message history query",
				zap.String("conversation_id", conversationID),
				zap.Int("attempt", attempt+1),
			)
		}

		result, err := m.mongoRepo.FindWithPagination(ctx, filter, db.PaginationParams{
			Page:     page,
			PageSize: historyPageSize,
			SortBy:   "created_at",
			SortDesc: false,
		})
		if err == nil {
			m.logger.Debug("messages filtered",
				zap.String("conversation_id", conversationID),
				zap.Int("count", len(result.Data)),
				zap.Int64("total", result.Total),
			)
			return result, nil
		}

		lastErr = err
		if !m.isRetryableError(err) {
			break
		}
	}

	return nil, m.handleReadError(lastErr, conversationID)
}

// -----------------------------------------------------------------------------
// Private Helper Methods
// -----------------------------------------------------------------------------

func (m *messageRepository) validateMessage(msg *model.Message) error {
	if msg == nil {
		return ErrInvalidMessage
	}
	if msg.ConversationID.IsZero() {
		return ErrInvalidID
	}
	return nil
}

func (m *messageRepository) ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (m *messageRepository) waitForRetry(ctx context.Context, attempt int) error {
	delay := time.Duration(1<<uint(attempt)) * baseRetryDelay
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (m *messageRepository) isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	return mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}

func (m *messageRepository) handleReadError(err error, conversationID string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		m.logger.Error("read timeout", zap.String("conversation_id", conversationID))
		return ErrOperationTimeout
	}

	if errors.Is(err, context.Canceled) {
		m.logger.Debug("read cancelled", zap.String("conversation_id", conversationID))
		return err
	}

	m.logger.Error("read failed", zap.Error(err), zap.String("conversation_id", conversationID))
	return fmt.Errorf("filter messages failed: %w", err)
}
