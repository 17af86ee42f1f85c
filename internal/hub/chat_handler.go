package hub

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"chatline/internal/event"
	"chatline/internal/service"

	"go.uber.org/zap"
)

// ChatHandler dispatches inbound live events to the presence registry, room
// multiplexer and services. Routing is an explicit table from event kind to
// handler, so control flow stays traceable.
type ChatHandler struct {
	hub           *Hub
	messages      service.MessageService
	notifications service.NotificationService
	logger        *zap.Logger
	routes        map[string]func(context.Context, event.WsEvent, *Client)
}

func NewChatHandler(messages service.MessageService, notifications service.NotificationService, logger *zap.Logger) *ChatHandler {
	ch := &ChatHandler{
		messages:      messages,
		notifications: notifications,
		logger:        logger,
	}
	ch.routes = map[string]func(context.Context, event.WsEvent, *Client){
		event.EventUserOnline:       ch.handleUserOnline,
		event.EventJoinRoom:         ch.handleJoinRoom,
		event.EventSendMessage:      ch.handleSendMessage,
		event.EventTyping:           ch.handleTyping,
		event.EventStopTyping:       ch.handleTyping,
		event.EventReact:            ch.handleReact,
		event.EventMarkRead:         ch.handleMarkRead,
		event.EventPin:              ch.handlePin,
		event.EventUnpin:            ch.handlePin,
		event.EventEditMessage:      ch.handleEditMessage,
		event.EventDeleteMessage:    ch.handleDeleteMessage,
		event.EventSendNotification: ch.handleSendNotification,
	}
	return ch
}

// SetHub sets the hub reference. Must be called after the Hub is created.
func (ch *ChatHandler) SetHub(hub *Hub) {
	ch.hub = hub
}

// Handle routes one inbound event. A failure here must never affect the
// registry's consistency or other connections' rooms.
func (ch *ChatHandler) Handle(ctx context.Context, ev event.WsEvent, c *Client) {
	route, ok := ch.routes[ev.Event]
	if !ok {
		ch.logger.Warn("unknown event type",
			zap.String("event", ev.Event),
			zap.String("client_id", c.ID),
		)
		return
	}
	route(ctx, ev, c)
}

// -----------------------------------------------------------------
// Presence and rooms
// -----------------------------------------------------------------

func (ch *ChatHandler) handleUserOnline(_ context.Context, ev event.WsEvent, c *Client) {
	var payload event.UserOnlinePayload
	if !ch.decode(ev, &payload, c) {
		return
	}
	if payload.UserID == "" || payload.UserID != c.UserID() {
		ch.logger.Warn("userOnline for foreign identity, dropped",
			zap.String("client_id", c.ID),
			zap.String("claimed", payload.UserID),
		)
		return
	}

	previous := ch.hub.presence.SetOnline(payload.UserID, c)
	if previous != nil {
		ch.logger.Info("presence entry replaced",
			zap.String("user_id", payload.UserID),
			zap.String("old_client_id", previous.ID),
			zap.String("new_client_id", c.ID),
		)
	}

	ch.broadcastPresence(payload.UserID, event.PresenceOnline)
}

func (ch *ChatHandler) handleJoinRoom(_ context.Context, ev event.WsEvent, c *Client) {
	var payload event.JoinRoomPayload
	if !ch.decode(ev, &payload, c) {
		return
	}
	if payload.ConversationID == "" {
		ch.logger.Warn("joinRoom without conversation id, dropped", zap.String("client_id", c.ID))
		return
	}

	ch.hub.rooms.Join(c, payload.ConversationID)
	ch.hub.presence.Touch(c.UserID())
	ch.logger.Debug("client joined room",
		zap.String("client_id", c.ID),
		zap.String("conversation_id", payload.ConversationID),
	)
}

func (ch *ChatHandler) handleTyping(_ context.Context, ev event.WsEvent, c *Client) {
	var payload event.TypingPayload
	if !ch.decode(ev, &payload, c) {
		return
	}
	if payload.ConversationID == "" || payload.UserID == "" {
		ch.logger.Warn("typing event with missing data, dropped", zap.String("client_id", c.ID))
		return
	}

	// Transient, never persisted; the originator is excluded from the echo.
	ch.hub.fanout.ToRoom(payload.ConversationID, ev, c.ID)
}

// -----------------------------------------------------------------
// Message ingest and sub-state
// -----------------------------------------------------------------

func (ch *ChatHandler) handleSendMessage(ctx context.Context, ev event.WsEvent, c *Client) {
	var payload event.SendMessagePayload
	if !ch.decode(ev, &payload, c) {
		return
	}

	_, err := ch.messages.SendMessage(ctx, service.SendMessageInput{
		SenderID:       payload.SenderID,
		ConversationID: payload.ConversationID,
		Content:        payload.Content,
		ReplyTo:        payload.ReplyTo,
	})
	if err != nil {
		ch.rejectOperation(c, err)
	}
}

func (ch *ChatHandler) handleReact(ctx context.Context, ev event.WsEvent, c *Client) {
	var payload event.ReactPayload
	if !ch.decode(ev, &payload, c) {
		return
	}

	if err := ch.messages.React(ctx, payload.MessageID, payload.UserID, payload.Emoji); err != nil {
		ch.rejectOperation(c, err)
	}
}

func (ch *ChatHandler) handleMarkRead(ctx context.Context, ev event.WsEvent, c *Client) {
	var payload event.MarkReadPayload
	if !ch.decode(ev, &payload, c) {
		return
	}

	if err := ch.messages.MarkRead(ctx, payload.MessageID, payload.UserID, time.Now().UTC()); err != nil {
		ch.rejectOperation(c, err)
	}
}

func (ch *ChatHandler) handlePin(ctx context.Context, ev event.WsEvent, c *Client) {
	var payload event.PinPayload
	if !ch.decode(ev, &payload, c) {
		return
	}

	pinned := ev.Event == event.EventPin
	if err := ch.messages.SetPinned(ctx, payload.MessageID, payload.ActorID, pinned); err != nil {
		ch.rejectOperation(c, err)
	}
}

func (ch *ChatHandler) handleEditMessage(ctx context.Context, ev event.WsEvent, c *Client) {
	var payload event.EditMessagePayload
	if !ch.decode(ev, &payload, c) {
		return
	}

	if err := ch.messages.EditContent(ctx, payload.MessageID, payload.ActorID, payload.Content); err != nil {
		ch.rejectOperation(c, err)
	}
}

func (ch *ChatHandler) handleDeleteMessage(ctx context.Context, ev event.WsEvent, c *Client) {
	var payload event.DeleteMessagePayload
	if !ch.decode(ev, &payload, c) {
		return
	}

	if err := ch.messages.DeleteMessage(ctx, payload.MessageID, payload.ActorID); err != nil {
		ch.rejectOperation(c, err)
	}
}

func (ch *ChatHandler) handleSendNotification(ctx context.Context, ev event.WsEvent, c *Client) {
	var payload event.SendNotificationPayload
	if !ch.decode(ev, &payload, c) {
		return
	}

	if _, err := ch.notifications.Send(ctx, payload.RecipientID, payload.Body, payload.ConversationID); err != nil {
		ch.rejectOperation(c, err)
	}
}

// -----------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------

// decode unmarshals the payload. Channel events are fire-and-forget, so a
// malformed payload is logged and dropped without a client-visible error.
func (ch *ChatHandler) decode(ev event.WsEvent, into any, c *Client) bool {
	if err := json.Unmarshal(ev.Payload, into); err != nil {
		ch.logger.Warn("malformed payload, dropped",
			zap.String("event", ev.Event),
			zap.String("client_id", c.ID),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (ch *ChatHandler) broadcastPresence(userID, status string) {
	ev, err := event.Outbound(event.EventPresenceChanged, event.PresencePayload{
		UserID: userID,
		Status: status,
	})
	if err != nil {
		ch.logger.Error("failed to encode presence event", zap.Error(err))
		return
	}
	ch.hub.fanout.ToAll(ev)
}

// rejectOperation surfaces an operation failure to the originating
// connection only.
func (ch *ChatHandler) rejectOperation(c *Client, opErr error) {
	code := event.CodePersistenceFailure
	switch {
	case errors.Is(opErr, service.ErrValidation):
		// Malformed channel events are dropped, not answered.
		ch.logger.Warn("invalid event payload, dropped",
			zap.String("client_id", c.ID),
			zap.Error(opErr),
		)
		return
	case errors.Is(opErr, service.ErrUnauthorized):
		code = event.CodeUnauthorized
	case errors.Is(opErr, service.ErrNotFound):
		code = event.CodeNotFound
	case errors.Is(opErr, service.ErrInvalidReference):
		code = event.CodeInvalidReference
	}

	ch.logger.Warn("operation rejected",
		zap.String("client_id", c.ID),
		zap.String("code", code),
		zap.Error(opErr),
	)

	ev, err := event.Outbound(event.EventError, event.ErrorPayload{
		Code:    code,
		Message: opErr.Error(),
	})
	if err != nil {
		ch.logger.Error("failed to encode error event", zap.Error(err))
		return
	}
	c.SafeSend(ev, sendTimeout)
}
