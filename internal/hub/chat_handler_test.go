package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"chatline/internal/db"
	"chatline/internal/event"
	"chatline/internal/model"
	"chatline/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubMessageService struct {
	mu      sync.Mutex
	sent    []service.SendMessageInput
	sendErr error
}

func (s *stubMessageService) SendMessage(_ context.Context, in service.SendMessageInput) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	s.sent = append(s.sent, in)
	return &model.Message{SenderID: in.SenderID, Content: in.Content}, nil
}

func (s *stubMessageService) sentLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *stubMessageService) React(context.Context, string, string, string) error { return nil }

func (s *stubMessageService) MarkRead(context.Context, string, string, time.Time) error {
	return nil
}

func (s *stubMessageService) SetPinned(context.Context, string, string, bool) error { return nil }

func (s *stubMessageService) EditContent(context.Context, string, string, string) error {
	return nil
}

func (s *stubMessageService) DeleteMessage(context.Context, string, string) error { return nil }
func (s *stubMessageService) History(context.Context, string, int64) (*db.PaginatedResult[model.Message], error) {
	return &db.PaginatedResult[model.Message]{}, nil
}

type stubNotificationService struct{}

func (s *stubNotificationService) Send(context.Context, string, string, string) (*model.Notification, error) {
	return &model.Notification{}, nil
}

func newTestHandler(t *testing.T) (*ChatHandler, *Hub, *stubMessageService) {
	t.Helper()
	h := NewHub(zap.NewNop(), nil)
	t.Cleanup(h.Stop)

	msgs := &stubMessageService{}
	ch := NewChatHandler(msgs, &stubNotificationService{}, zap.NewNop())
	ch.SetHub(h)
	h.SetHandler(ch)
	return ch, h, msgs
}

func mustEvent(t *testing.T, kind string, payload any) event.WsEvent {
	t.Helper()
	ev, err := event.Outbound(kind, payload)
	require.NoError(t, err)
	return ev
}

func TestHandleUnknownEventIsDropped(t *testing.T) {
	ch, _, _ := newTestHandler(t)
	c := testClient("alice")

	assert.NotPanics(t, func() {
		ch.Handle(context.Background(), event.WsEvent{Event: "teleport", Payload: json.RawMessage(`{}`)}, c)
	})
}

func TestHandleUserOnlineRegistersPresenceAndBroadcasts(t *testing.T) {
	ch, h, _ := newTestHandler(t)
	alice := testClient("alice")
	bob := testClient("bob")
	h.presence.SetOnline("bob", bob)

	ch.Handle(context.Background(), mustEvent(t, event.EventUserOnline, event.UserOnlinePayload{UserID: "alice"}), alice)

	assert.True(t, h.presence.IsOnline("alice"))

	got := drainOne(t, bob)
	require.NotNil(t, got)
	assert.Equal(t, event.EventPresenceChanged, got.Event)

	var payload event.PresencePayload
	require.NoError(t, json.Unmarshal(got.Payload, &payload))
	assert.Equal(t, "alice", payload.UserID)
	assert.Equal(t, event.PresenceOnline, payload.Status)
}

func TestHandleUserOnlineForeignIdentityDropped(t *testing.T) {
	ch, h, _ := newTestHandler(t)
	c := testClient("alice")

	ch.Handle(context.Background(), mustEvent(t, event.EventUserOnline, event.UserOnlinePayload{UserID: "mallory"}), c)

	assert.False(t, h.presence.IsOnline("mallory"))
	assert.False(t, h.presence.IsOnline("alice"))
}

func TestHandleTypingExcludesOriginator(t *testing.T) {
	ch, h, _ := newTestHandler(t)
	alice := testClient("alice")
	bob := testClient("bob")
	h.rooms.Join(alice, "c1")
	h.rooms.Join(bob, "c1")

	ch.Handle(context.Background(), mustEvent(t, event.EventTyping, event.TypingPayload{ConversationID: "c1", UserID: "alice"}), alice)

	got := drainOne(t, bob)
	require.NotNil(t, got)
	assert.Equal(t, event.EventTyping, got.Event)
	assert.Nil(t, drainOne(t, alice))
}

func TestHandleSendMessageRoutesToService(t *testing.T) {
	ch, _, msgs := newTestHandler(t)
	c := testClient("alice")

	ch.Handle(context.Background(), mustEvent(t, event.EventSendMessage, event.SendMessagePayload{
		SenderID:       "alice",
		ConversationID: "c1",
		Content:        "hi",
	}), c)

	require.Len(t, msgs.sent, 1)
	assert.Equal(t, "alice", msgs.sent[0].SenderID)
	assert.Equal(t, "c1", msgs.sent[0].ConversationID)
	assert.Equal(t, "hi", msgs.sent[0].Content)
}

func TestRejectionGoesToOriginatorOnly(t *testing.T) {
	ch, h, msgs := newTestHandler(t)
	msgs.sendErr = service.ErrUnauthorized

	alice := testClient("alice")
	bob := testClient("bob")
	h.rooms.Join(alice, "c1")
	h.rooms.Join(bob, "c1")

	ch.Handle(context.Background(), mustEvent(t, event.EventSendMessage, event.SendMessagePayload{
		SenderID:       "alice",
		ConversationID: "c1",
		Content:        "hi",
	}), alice)

	got := drainOne(t, alice)
	require.NotNil(t, got)
	assert.Equal(t, event.EventError, got.Event)

	var payload event.ErrorPayload
	require.NoError(t, json.Unmarshal(got.Payload, &payload))
	assert.Equal(t, event.CodeUnauthorized, payload.Code)

	assert.Nil(t, drainOne(t, bob))
}
