package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chatline/internal/db"
	"chatline/internal/event"
	"chatline/internal/model"
	"chatline/internal/repo"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SendMessageInput carries a validated-at-the-edge send request.
type SendMessageInput struct {
	SenderID       string
	ConversationID string
	Content        string
	ReplyTo        string // optional parent message id, same conversation only
}

// MessageService is the ingest pipeline plus the message sub-state manager.
// Every mutation persists first and broadcasts only after the persistence
// call succeeded, so no connection observes state a failed write would have
// rejected.
type MessageService interface {
	SendMessage(ctx context.Context, in SendMessageInput) (*model.Message, error)
	React(ctx context.Context, messageID, userID, emoji string) error
	MarkRead(ctx context.Context, messageID, userID string, readAt time.Time) error
	SetPinned(ctx context.Context, messageID, actorID string, pinned bool) error
	EditContent(ctx context.Context, messageID, actorID, content string) error
	DeleteMessage(ctx context.Context, messageID, actorID string) error
	History(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error)
}

type messageService struct {
	messages      repo.MessageRepository
	conversations repo.ConversationRepository
	users         repo.UserRepository
	publisher     Publisher
	logger        *zap.Logger
}

func NewMessageService(
	messages repo.MessageRepository,
	conversations repo.ConversationRepository,
	users repo.UserRepository,
	publisher Publisher,
	logger *zap.Logger,
) MessageService {
	return &messageService{
		messages:      messages,
		conversations: conversations,
		users:         users,
		publisher:     publisher,
		logger:        logger,
	}
}

// -----------------------------------------------------------------------------
// Ingest pipeline
// -----------------------------------------------------------------------------

func (s *messageService) SendMessage(ctx context.Context, in SendMessageInput) (*model.Message, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" || in.SenderID == "" || in.ConversationID == "" {
		return nil, fmt.Errorf("%w: sender, conversation and content are required", ErrValidation)
	}

	conversation, err := s.conversations.FindByID(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, fmt.Errorf("conversation %s: %w", in.ConversationID, ErrNotFound)
	}
	if !conversation.HasParticipant(in.SenderID) {
		return nil, fmt.Errorf("sender %s is not a member: %w", in.SenderID, ErrUnauthorized)
	}

	// A reply must reference a message already in this conversation; anything
	// else is rejected and nothing is persisted.
	var replyTo *primitive.ObjectID
	if in.ReplyTo != "" {
		parent, err := s.messages.FindByID(ctx, in.ReplyTo)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.ConversationID != conversation.ID {
			return nil, fmt.Errorf("parent %s: %w", in.ReplyTo, ErrInvalidReference)
		}
		replyTo = &parent.ID
	}

	msg := &model.Message{
		ConversationID: conversation.ID,
		SenderID:       in.SenderID,
		Content:        content,
		ReplyTo:        replyTo,
		Reactions:      []model.Reaction{},
		ReadBy:         []model.ReadReceipt{},
		CreatedAt:      time.Now().UTC(),
	}

	insertedID, err := s.messages.Insert(ctx, msg)
	if err != nil {
		return nil, err
	}
	if oid, convErr := primitive.ObjectIDFromHex(insertedID); convErr == nil {
		msg.ID = oid
	}

	latest := &model.LatestMessage{
		MessageID: msg.ID.Hex(),
		Content:   msg.Content,
		SenderID:  msg.SenderID,
		SentAt:    msg.CreatedAt,
	}
	if err := s.conversations.SetLatestMessage(ctx, conversation.ID.Hex(), latest); err != nil {
		return nil, err
	}

	s.enrich(ctx, msg)
	s.publishToRoom(conversation.ID.Hex(), event.EventMessage, msg)

	return msg, nil
}

// enrich attaches the sender's display snapshot, best effort. An unknown
// sender or a lookup failure leaves the snapshot empty rather than blocking
// delivery.
func (s *messageService) enrich(ctx context.Context, msg *model.Message) {
	user, err := s.users.FindByUserID(ctx, msg.SenderID)
	if err != nil {
		s.logger.Warn("sender enrichment failed",
			zap.String("sender_id", msg.SenderID),
			zap.Error(err),
		)
		return
	}
	if user == nil {
		return
	}
	msg.Sender = &model.SenderInfo{
		UserID:   user.UserID,
		Username: user.Username,
		Avatar:   user.Avatar,
	}
}

// -----------------------------------------------------------------------------
// Sub-state manager
// -----------------------------------------------------------------------------

func (s *messageService) React(ctx context.Context, messageID, userID, emoji string) error {
	if messageID == "" || userID == "" || emoji == "" {
		return fmt.Errorf("%w: message, user and emoji are required", ErrValidation)
	}

	msg, err := s.findMessage(ctx, messageID)
	if err != nil {
		return err
	}

	// Re-applying an identical reaction changes nothing observable but still
	// re-persists and re-broadcasts.
	msg.SetReaction(userID, emoji)
	if err := s.messages.SaveReactions(ctx, messageID, msg.Reactions); err != nil {
		return err
	}

	s.publishToRoom(msg.ConversationID.Hex(), event.EventReactionUpdated, event.ReactionUpdatedPayload{
		MessageID:      messageID,
		ConversationID: msg.ConversationID.Hex(),
		UserID:         userID,
		Emoji:          emoji,
	})
	return nil
}

func (s *messageService) MarkRead(ctx context.Context, messageID, userID string, readAt time.Time) error {
	if messageID == "" || userID == "" {
		return fmt.Errorf("%w: message and user are required", ErrValidation)
	}

	msg, err := s.findMessage(ctx, messageID)
	if err != nil {
		return err
	}

	// The first read time is authoritative; a repeat is a no-op.
	if msg.HasRead(userID) {
		return nil
	}

	msg.ReadBy = append(msg.ReadBy, model.ReadReceipt{UserID: userID, ReadAt: readAt})
	if err := s.messages.SaveReadBy(ctx, messageID, msg.ReadBy); err != nil {
		return err
	}

	s.publishToRoom(msg.ConversationID.Hex(), event.EventReadReceipt, event.ReadReceiptPayload{
		MessageID:      messageID,
		ConversationID: msg.ConversationID.Hex(),
		UserID:         userID,
		ReadAt:         readAt.UTC().Format(time.RFC3339),
	})
	return nil
}

func (s *messageService) SetPinned(ctx context.Context, messageID, actorID string, pinned bool) error {
	if messageID == "" || actorID == "" {
		return fmt.Errorf("%w: message and actor are required", ErrValidation)
	}

	msg, err := s.findMessage(ctx, messageID)
	if err != nil {
		return err
	}

	conversation, err := s.conversations.FindByID(ctx, msg.ConversationID.Hex())
	if err != nil {
		return err
	}
	if conversation == nil {
		return fmt.Errorf("conversation %s: %w", msg.ConversationID.Hex(), ErrNotFound)
	}

	if actorID != msg.SenderID && !conversation.IsAdmin(actorID) {
		return fmt.Errorf("actor %s may not pin message %s: %w", actorID, messageID, ErrUnauthorized)
	}

	if err := s.messages.SetPinned(ctx, messageID, pinned); err != nil {
		return err
	}

	s.publishToRoom(msg.ConversationID.Hex(), event.EventPinChanged, event.PinChangedPayload{
		MessageID:      messageID,
		ConversationID: msg.ConversationID.Hex(),
		ActorID:        actorID,
		Pinned:         pinned,
	})
	return nil
}

func (s *messageService) EditContent(ctx context.Context, messageID, actorID, content string) error {
	content = strings.TrimSpace(content)
	if messageID == "" || actorID == "" || content == "" {
		return fmt.Errorf("%w: message, actor and content are required", ErrValidation)
	}

	msg, err := s.findMessage(ctx, messageID)
	if err != nil {
		return err
	}

	if actorID != msg.SenderID {
		return fmt.Errorf("actor %s may not edit message %s: %w", actorID, messageID, ErrUnauthorized)
	}

	editedAt := time.Now().UTC()
	if err := s.messages.SetContent(ctx, messageID, content, editedAt); err != nil {
		return err
	}

	msg.Content = content
	msg.EditedAt = &editedAt
	s.publishToRoom(msg.ConversationID.Hex(), event.EventMessageEdited, msg)
	return nil
}

func (s *messageService) DeleteMessage(ctx context.Context, messageID, actorID string) error {
	if messageID == "" || actorID == "" {
		return fmt.Errorf("%w: message and actor are required", ErrValidation)
	}

	msg, err := s.findMessage(ctx, messageID)
	if err != nil {
		return err
	}

	conversation, err := s.conversations.FindByID(ctx, msg.ConversationID.Hex())
	if err != nil {
		return err
	}
	if conversation == nil {
		return fmt.Errorf("conversation %s: %w", msg.ConversationID.Hex(), ErrNotFound)
	}

	allowed := actorID == msg.SenderID ||
		(conversation.IsGroup() && conversation.IsAdmin(actorID))
	if !allowed {
		return fmt.Errorf("actor %s may not delete message %s: %w", actorID, messageID, ErrUnauthorized)
	}

	if err := s.messages.Delete(ctx, messageID); err != nil {
		return err
	}

	// If the deleted message was the conversation's latest, the pointer moves
	// to the next-most-recent surviving message, or is cleared.
	if conversation.LastMessage != nil && conversation.LastMessage.MessageID == messageID {
		if err := s.recomputeLatest(ctx, conversation.ID.Hex()); err != nil {
			return err
		}
	}

	s.publishToRoom(msg.ConversationID.Hex(), event.EventMessageDeleted, event.MessageDeletedPayload{
		MessageID:      messageID,
		ConversationID: msg.ConversationID.Hex(),
		ActorID:        actorID,
	})
	return nil
}

func (s *messageService) recomputeLatest(ctx context.Context, conversationID string) error {
	latest, err := s.messages.LatestIn(ctx, conversationID)
	if err != nil {
		return err
	}

	var preview *model.LatestMessage
	if latest != nil {
		preview = &model.LatestMessage{
			MessageID: latest.ID.Hex(),
			Content:   latest.Content,
			SenderID:  latest.SenderID,
			SentAt:    latest.CreatedAt,
		}
	}
	return s.conversations.SetLatestMessage(ctx, conversationID, preview)
}

// -----------------------------------------------------------------------------
// History
// -----------------------------------------------------------------------------

func (s *messageService) History(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversation is required", ErrValidation)
	}
	return s.messages.FilterByConversation(ctx, conversationID, page)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *messageService) findMessage(ctx context.Context, messageID string) (*model.Message, error) {
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}
	return msg, nil
}

func (s *messageService) publishToRoom(conversationID, kind string, payload any) {
	ev, err := event.Outbound(kind, payload)
	if err != nil {
		s.logger.Error("failed to encode outbound event",
			zap.String("event", kind),
			zap.Error(err),
		)
		return
	}
	s.publisher.ToRoom(conversationID, ev, "")
}
