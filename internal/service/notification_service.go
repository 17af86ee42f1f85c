package service

import (
	"context"
	"fmt"
	"time"

	"chatline/internal/event"
	"chatline/internal/model"
	"chatline/internal/repo"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// NotificationService persists a targeted notification and delivers it over
// the recipient's live connection when one exists. An offline recipient is
// not an error; there is no offline queue.
type NotificationService interface {
	Send(ctx context.Context, recipientID, body, conversationID string) (*model.Notification, error)
}

type notificationService struct {
	notifications repo.NotificationRepository
	publisher     Publisher
	logger        *zap.Logger
}

func NewNotificationService(notifications repo.NotificationRepository, publisher Publisher, logger *zap.Logger) NotificationService {
	return &notificationService{
		notifications: notifications,
		publisher:     publisher,
		logger:        logger,
	}
}

func (s *notificationService) Send(ctx context.Context, recipientID, body, conversationID string) (*model.Notification, error) {
	if recipientID == "" || body == "" {
		return nil, fmt.Errorf("%w: recipient and body are required", ErrValidation)
	}

	n := &model.Notification{
		RecipientID: recipientID,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	}
	if conversationID != "" {
		oid, err := primitive.ObjectIDFromHex(conversationID)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed conversation id", ErrValidation)
		}
		n.ConversationID = &oid
	}

	insertedID, err := s.notifications.Insert(ctx, n)
	if err != nil {
		return nil, err
	}
	if oid, convErr := primitive.ObjectIDFromHex(insertedID); convErr == nil {
		n.ID = oid
	}

	ev, err := event.Outbound(event.EventNotification, n)
	if err != nil {
		s.logger.Error("failed to encode notification event", zap.Error(err))
		return n, nil
	}
	if !s.publisher.ToParticipant(recipientID, ev) {
		s.logger.Debug("recipient offline, notification not delivered live",
			zap.String("recipient_id", recipientID),
		)
	}

	return n, nil
}
