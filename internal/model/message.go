package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message represents a chat message in MongoDB
type Message struct {
	ID             primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID  `json:"conversationId" bson:"conversation_id"`
	SenderID       string              `json:"senderId" bson:"sender_id"`
	Content        string              `json:"content" bson:"content"`
	ReplyTo        *primitive.ObjectID `json:"replyTo,omitempty" bson:"reply_to,omitempty"`
	Reactions      []Reaction          `json:"reactions" bson:"reactions"`
	ReadBy         []ReadReceipt       `json:"readBy" bson:"read_by"`
	Pinned         bool                `json:"pinned" bson:"pinned"`
	CreatedAt      time.Time           `json:"createdAt" bson:"created_at"`
	EditedAt       *time.Time          `json:"editedAt,omitempty" bson:"edited_at,omitempty"`

	// Sender is a display snapshot attached at fan-out time, never stored.
	Sender *SenderInfo `json:"sender,omitempty" bson:"-"`
}

// Reaction represents one participant's reaction on a message.
// A participant holds at most one reaction; a new emoji replaces the old one.
type Reaction struct {
	UserID string `json:"userId" bson:"user_id"`
	Emoji  string `json:"emoji" bson:"emoji"`
}

// ReadReceipt records the first time a participant read a message.
type ReadReceipt struct {
	UserID string    `json:"userId" bson:"user_id"`
	ReadAt time.Time `json:"readAt" bson:"read_at"`
}

// SenderInfo carries the display fields a client needs to render a message.
type SenderInfo struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// SetReaction upserts the sender's reaction, last write wins per participant.
func (m *Message) SetReaction(userID, emoji string) {
	for i, r := range m.Reactions {
		if r.UserID == userID {
			m.Reactions[i].Emoji = emoji
			return
		}
	}
	m.Reactions = append(m.Reactions, Reaction{UserID: userID, Emoji: emoji})
}

// HasRead reports whether the participant already appears in the read-by set.
func (m *Message) HasRead(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}
