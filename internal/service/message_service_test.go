package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatline/internal/db"
	"chatline/internal/event"
	"chatline/internal/model"
	"chatline/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Stub collaborators
// ---------------------------------------------------------------------------

type stubMessageRepo struct {
	byID      map[string]*model.Message
	insertErr error
}

func newStubMessageRepo() *stubMessageRepo {
	return &stubMessageRepo{byID: make(map[string]*model.Message)}
}

func (r *stubMessageRepo) Insert(_ context.Context, msg *model.Message) (string, error) {
	if r.insertErr != nil {
		return "", r.insertErr
	}
	id := primitive.NewObjectID()
	msg.ID = id
	cp := *msg
	r.byID[id.Hex()] = &cp
	return id.Hex(), nil
}

func (r *stubMessageRepo) FindByID(_ context.Context, id string) (*model.Message, error) {
	msg, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *msg
	return &cp, nil
}

func (r *stubMessageRepo) SaveReactions(_ context.Context, id string, reactions []model.Reaction) error {
	r.byID[id].Reactions = reactions
	return nil
}

func (r *stubMessageRepo) SaveReadBy(_ context.Context, id string, readBy []model.ReadReceipt) error {
	r.byID[id].ReadBy = readBy
	return nil
}

func (r *stubMessageRepo) SetPinned(_ context.Context, id string, pinned bool) error {
	r.byID[id].Pinned = pinned
	return nil
}

func (r *stubMessageRepo) SetContent(_ context.Context, id string, content string, editedAt time.Time) error {
	r.byID[id].Content = content
	r.byID[id].EditedAt = &editedAt
	return nil
}

func (r *stubMessageRepo) Delete(_ context.Context, id string) error {
	delete(r.byID, id)
	return nil
}

func (r *stubMessageRepo) LatestIn(_ context.Context, conversationID string) (*model.Message, error) {
	var latest *model.Message
	for _, msg := range r.byID {
		if msg.ConversationID.Hex() != conversationID {
			continue
		}
		if latest == nil || msg.CreatedAt.After(latest.CreatedAt) {
			latest = msg
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *stubMessageRepo) FilterByConversation(_ context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	var msgs []model.Message
	for _, msg := range r.byID {
		if msg.ConversationID.Hex() == conversationID {
			msgs = append(msgs, *msg)
		}
	}
	return &db.PaginatedResult[model.Message]{Data: msgs, Total: int64(len(msgs)), Page: page}, nil
}

type stubConversationRepo struct {
	byID map[string]*model.Conversation
}

func newStubConversationRepo(conversations ...*model.Conversation) *stubConversationRepo {
	r := &stubConversationRepo{byID: make(map[string]*model.Conversation)}
	for _, c := range conversations {
		r.byID[c.ID.Hex()] = c
	}
	return r
}

func (r *stubConversationRepo) FindByID(_ context.Context, id string) (*model.Conversation, error) {
	return r.byID[id], nil
}

func (r *stubConversationRepo) SetLatestMessage(_ context.Context, id string, latest *model.LatestMessage) error {
	conversation, ok := r.byID[id]
	if !ok {
		return errors.New("no such conversation")
	}
	conversation.LastMessage = latest
	return nil
}

type stubUserRepo struct {
	byUserID map[string]*model.User
}

func (r *stubUserRepo) FindByUserID(_ context.Context, userID string) (*model.User, error) {
	if r.byUserID == nil {
		return nil, nil
	}
	return r.byUserID[userID], nil
}

type published struct {
	conversationID string
	ev             event.WsEvent
	exclude        string
}

type stubPublisher struct {
	rooms    []published
	targeted map[string][]event.WsEvent
	online   map[string]bool
}

func newStubPublisher() *stubPublisher {
	return &stubPublisher{
		targeted: make(map[string][]event.WsEvent),
		online:   make(map[string]bool),
	}
}

func (p *stubPublisher) ToRoom(conversationID string, ev event.WsEvent, exclude string) {
	p.rooms = append(p.rooms, published{conversationID: conversationID, ev: ev, exclude: exclude})
}

func (p *stubPublisher) ToParticipant(userID string, ev event.WsEvent) bool {
	if !p.online[userID] {
		return false
	}
	p.targeted[userID] = append(p.targeted[userID], ev)
	return true
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func groupConversation(admins ...string) *model.Conversation {
	return &model.Conversation{
		ID:               primitive.NewObjectID(),
		ConversationType: model.ConversationGroup,
		ParticipantIDs:   []string{"alice", "bob", "carol"},
		AdminIDs:         admins,
	}
}

func newService(msgs *stubMessageRepo, convs *stubConversationRepo, users *stubUserRepo, pub *stubPublisher) service.MessageService {
	if users == nil {
		users = &stubUserRepo{}
	}
	return service.NewMessageService(msgs, convs, users, pub, zap.NewNop())
}

func seedMessage(msgs *stubMessageRepo, conversation *model.Conversation, sender, content string, at time.Time) *model.Message {
	msg := &model.Message{
		ConversationID: conversation.ID,
		SenderID:       sender,
		Content:        content,
		CreatedAt:      at,
	}
	_, _ = msgs.Insert(context.Background(), msg)
	return msg
}

// ---------------------------------------------------------------------------
// Ingest pipeline
// ---------------------------------------------------------------------------

func TestSendMessagePersistsUpdatesPointerAndBroadcasts(t *testing.T) {
	conversation := groupConversation()
	msgs := newStubMessageRepo()
	convs := newStubConversationRepo(conversation)
	users := &stubUserRepo{byUserID: map[string]*model.User{
		"alice": {UserID: "alice", Username: "Alice", Avatar: "a.png"},
	}}
	pub := newStubPublisher()
	svc := newService(msgs, convs, users, pub)

	msg, err := svc.SendMessage(context.Background(), service.SendMessageInput{
		SenderID:       "alice",
		ConversationID: conversation.ID.Hex(),
		Content:        "hi",
	})
	require.NoError(t, err)

	stored, _ := msgs.FindByID(context.Background(), msg.ID.Hex())
	require.NotNil(t, stored)
	assert.Equal(t, "alice", stored.SenderID)
	assert.Equal(t, conversation.ID, stored.ConversationID)

	require.NotNil(t, conversation.LastMessage)
	assert.Equal(t, msg.ID.Hex(), conversation.LastMessage.MessageID)

	require.Len(t, pub.rooms, 1)
	assert.Equal(t, conversation.ID.Hex(), pub.rooms[0].conversationID)
	assert.Equal(t, event.EventMessage, pub.rooms[0].ev.Event)
	assert.Empty(t, pub.rooms[0].exclude, "room broadcast includes the sender's connection")

	require.NotNil(t, msg.Sender)
	assert.Equal(t, "Alice", msg.Sender.Username)
}

func TestSendMessageValidation(t *testing.T) {
	conversation := groupConversation()
	pub := newStubPublisher()
	svc := newService(newStubMessageRepo(), newStubConversationRepo(conversation), nil, pub)

	_, err := svc.SendMessage(context.Background(), service.SendMessageInput{
		SenderID:       "alice",
		ConversationID: conversation.ID.Hex(),
		Content:        "   ",
	})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = svc.SendMessage(context.Background(), service.SendMessageInput{
		SenderID:       "mallory",
		ConversationID: conversation.ID.Hex(),
		Content:        "hi",
	})
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = svc.SendMessage(context.Background(), service.SendMessageInput{
		SenderID:       "alice",
		ConversationID: primitive.NewObjectID().Hex(),
		Content:        "hi",
	})
	assert.ErrorIs(t, err, service.ErrNotFound)

	assert.Empty(t, pub.rooms, "nothing may be broadcast on a failed send")
}

func TestSendMessageRejectsCrossConversationParent(t *testing.T) {
	conversation := groupConversation()
	other := groupConversation()
	msgs := newStubMessageRepo()
	parent := seedMessage(msgs, other, "bob", "elsewhere", time.Now())
	pub := newStubPublisher()
	svc := newService(msgs, newStubConversationRepo(conversation, other), nil, pub)

	_, err := svc.SendMessage(context.Background(), service.SendMessageInput{
		SenderID:       "alice",
		ConversationID: conversation.ID.Hex(),
		Content:        "reply",
		ReplyTo:        parent.ID.Hex(),
	})
	assert.ErrorIs(t, err, service.ErrInvalidReference)

	_, err = svc.SendMessage(context.Background(), service.SendMessageInput{
		SenderID:       "alice",
		ConversationID: conversation.ID.Hex(),
		Content:        "reply",
		ReplyTo:        primitive.NewObjectID().Hex(),
	})
	assert.ErrorIs(t, err, service.ErrInvalidReference)

	assert.Len(t, msgs.byID, 1, "rejected replies must not be persisted")
	assert.Empty(t, pub.rooms)
}

func TestSendMessagePersistenceFailureAbortsBeforeBroadcast(t *testing.T) {
	conversation := groupConversation()
	msgs := newStubMessageRepo()
	msgs.insertErr = errors.New("write concern failed")
	pub := newStubPublisher()
	svc := newService(msgs, newStubConversationRepo(conversation), nil, pub)

	_, err := svc.SendMessage(context.Background(), service.SendMessageInput{
		SenderID:       "alice",
		ConversationID: conversation.ID.Hex(),
		Content:        "hi",
	})
	require.Error(t, err)
	assert.Empty(t, pub.rooms)
	assert.Nil(t, conversation.LastMessage)
}

// ---------------------------------------------------------------------------
// Sub-state manager
// ---------------------------------------------------------------------------

func TestReactUpsertsLastWriteWins(t *testing.T) {
	conversation := groupConversation()
	msgs := newStubMessageRepo()
	msg := seedMessage(msgs, conversation, "alice", "hi", time.Now())
	pub := newStubPublisher()
	svc := newService(msgs, newStubConversationRepo(conversation), nil, pub)

	require.NoError(t, svc.React(context.Background(), msg.ID.Hex(), "bob", "👍"))
	require.NoError(t, svc.React(context.Background(), msg.ID.Hex(), "bob", "👍"))
	require.NoError(t, svc.React(context.Background(), msg.ID.Hex(), "bob", "🎉"))

	stored, _ := msgs.FindByID(context.Background(), msg.ID.Hex())
	require.Len(t, stored.Reactions, 1)
	assert.Equal(t, "bob", stored.Reactions[0].UserID)
	assert.Equal(t, "🎉", stored.Reactions[0].Emoji)

	// identical re-reactions still re-broadcast
	assert.Len(t, pub.rooms, 3)
	for _, p := range pub.rooms {
		assert.Equal(t, event.EventReactionUpdated, p.ev.Event)
	}
}

func TestMarkReadFirstTimeIsAuthoritative(t *testing.T) {
	conversation := groupConversation()
	msgs := newStubMessageRepo()
	msg := seedMessage(msgs, conversation, "alice", "hi", time.Now())
	pub := newStubPublisher()
	svc := newService(msgs, newStubConversationRepo(conversation), nil, pub)

	t1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	require.NoError(t, svc.MarkRead(context.Background(), msg.ID.Hex(), "bob", t1))
	require.NoError(t, svc.MarkRead(context.Background(), msg.ID.Hex(), "bob", t2))

	stored, _ := msgs.FindByID(context.Background(), msg.ID.Hex())
	require.Len(t, stored.ReadBy, 1)
	assert.Equal(t, "bob", stored.ReadBy[0].UserID)
	assert.True(t, stored.ReadBy[0].ReadAt.Equal(t1))

	assert.Len(t, pub.rooms, 1, "a repeat read must not re-broadcast")
}

func TestSetPinnedAuthorization(t *testing.T) {
	conversation := groupConversation("carol")
	msgs := newStubMessageRepo()
	msg := seedMessage(msgs, conversation, "alice", "hi", time.Now())
	pub := newStubPublisher()
	svc := newService(msgs, newStubConversationRepo(conversation), nil, pub)

	// bob is neither sender nor admin
	err := svc.SetPinned(context.Background(), msg.ID.Hex(), "bob", true)
	assert.ErrorIs(t, err, service.ErrUnauthorized)
	stored, _ := msgs.FindByID(context.Background(), msg.ID.Hex())
	assert.False(t, stored.Pinned)
	assert.Empty(t, pub.rooms)

	// the sender may pin
	require.NoError(t, svc.SetPinned(context.Background(), msg.ID.Hex(), "alice", true))
	stored, _ = msgs.FindByID(context.Background(), msg.ID.Hex())
	assert.True(t, stored.Pinned)

	// an admin may unpin
	require.NoError(t, svc.SetPinned(context.Background(), msg.ID.Hex(), "carol", false))
	stored, _ = msgs.FindByID(context.Background(), msg.ID.Hex())
	assert.False(t, stored.Pinned)

	require.Len(t, pub.rooms, 2)
	assert.Equal(t, event.EventPinChanged, pub.rooms[0].ev.Event)
}

func TestEditContentSenderOnly(t *testing.T) {
	conversation := groupConversation("carol")
	msgs := newStubMessageRepo()
	msg := seedMessage(msgs, conversation, "alice", "hi", time.Now())
	pub := newStubPublisher()
	svc := newService(msgs, newStubConversationRepo(conversation), nil, pub)

	err := svc.EditContent(context.Background(), msg.ID.Hex(), "carol", "hacked")
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	require.NoError(t, svc.EditContent(context.Background(), msg.ID.Hex(), "alice", "hello"))
	stored, _ := msgs.FindByID(context.Background(), msg.ID.Hex())
	assert.Equal(t, "hello", stored.Content)
	require.NotNil(t, stored.EditedAt)

	require.Len(t, pub.rooms, 1)
	assert.Equal(t, event.EventMessageEdited, pub.rooms[0].ev.Event)
}

func TestDeleteMessageAuthorization(t *testing.T) {
	conversation := groupConversation("carol")
	msgs := newStubMessageRepo()
	msg := seedMessage(msgs, conversation, "alice", "hi", time.Now())
	pub := newStubPublisher()
	svc := newService(msgs, newStubConversationRepo(conversation), nil, pub)

	err := svc.DeleteMessage(context.Background(), msg.ID.Hex(), "bob")
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	// a group admin may delete someone else's message
	require.NoError(t, svc.DeleteMessage(context.Background(), msg.ID.Hex(), "carol"))
	stored, _ := msgs.FindByID(context.Background(), msg.ID.Hex())
	assert.Nil(t, stored)
}

func TestDeleteMessageAdminOfDirectConversationForbidden(t *testing.T) {
	conversation := &model.Conversation{
		ID:               primitive.NewObjectID(),
		ConversationType: model.ConversationDirect,
		ParticipantIDs:   []string{"alice", "carol"},
		AdminIDs:         []string{"carol"},
	}
	msgs := newStubMessageRepo()
	msg := seedMessage(msgs, conversation, "alice", "hi", time.Now())
	svc := newService(msgs, newStubConversationRepo(conversation), nil, newStubPublisher())

	err := svc.DeleteMessage(context.Background(), msg.ID.Hex(), "carol")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestDeleteLatestMessageRecomputesPointer(t *testing.T) {
	conversation := groupConversation()
	msgs := newStubMessageRepo()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	older := seedMessage(msgs, conversation, "alice", "first", base)
	newest := seedMessage(msgs, conversation, "bob", "second", base.Add(time.Minute))
	conversation.LastMessage = &model.LatestMessage{MessageID: newest.ID.Hex(), Content: "second", SenderID: "bob", SentAt: newest.CreatedAt}

	pub := newStubPublisher()
	svc := newService(msgs, newStubConversationRepo(conversation), nil, pub)

	require.NoError(t, svc.DeleteMessage(context.Background(), newest.ID.Hex(), "bob"))

	require.NotNil(t, conversation.LastMessage)
	assert.Equal(t, older.ID.Hex(), conversation.LastMessage.MessageID)

	require.NoError(t, svc.DeleteMessage(context.Background(), older.ID.Hex(), "alice"))
	assert.Nil(t, conversation.LastMessage, "pointer is cleared when no message survives")
}

func TestDeleteNonLatestMessageKeepsPointer(t *testing.T) {
	conversation := groupConversation()
	msgs := newStubMessageRepo()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	older := seedMessage(msgs, conversation, "alice", "first", base)
	newest := seedMessage(msgs, conversation, "bob", "second", base.Add(time.Minute))
	conversation.LastMessage = &model.LatestMessage{MessageID: newest.ID.Hex(), Content: "second", SenderID: "bob", SentAt: newest.CreatedAt}

	svc := newService(msgs, newStubConversationRepo(conversation), nil, newStubPublisher())

	require.NoError(t, svc.DeleteMessage(context.Background(), older.ID.Hex(), "alice"))
	assert.Equal(t, newest.ID.Hex(), conversation.LastMessage.MessageID)
}

func TestSubStateOnMissingMessage(t *testing.T) {
	conversation := groupConversation()
	svc := newService(newStubMessageRepo(), newStubConversationRepo(conversation), nil, newStubPublisher())
	missing := primitive.NewObjectID().Hex()

	assert.ErrorIs(t, svc.React(context.Background(), missing, "bob", "👍"), service.ErrNotFound)
	assert.ErrorIs(t, svc.MarkRead(context.Background(), missing, "bob", time.Now()), service.ErrNotFound)
	assert.ErrorIs(t, svc.SetPinned(context.Background(), missing, "bob", true), service.ErrNotFound)
	assert.ErrorIs(t, svc.EditContent(context.Background(), missing, "bob", "x"), service.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteMessage(context.Background(), missing, "bob"), service.ErrNotFound)
}
