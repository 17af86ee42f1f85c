package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation types
const (
	ConversationDirect = "direct"
	ConversationGroup  = "group"
)

// Conversation represents a chat conversation/room in MongoDB
type Conversation struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ConversationType string             `json:"conversationType" bson:"conversation_type"`
	Name             string             `json:"name" bson:"name"`
	Avatar           string             `json:"avatar" bson:"avatar"`
	ParticipantIDs   []string           `json:"participantIds" bson:"participant_ids"`
	AdminIDs         []string           `json:"adminIds" bson:"admin_ids"`
	MutedBy          []string           `json:"mutedBy" bson:"muted_by"`
	HiddenFor        []string           `json:"hiddenFor" bson:"hidden_for"`
	LastMessage      *LatestMessage     `json:"lastMessage" bson:"last_message"`
	CreatedAt        time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updated_at"`
}

// LatestMessage is the preview of the most recent surviving message.
// It always references the message with the greatest creation time among
// non-deleted messages in the conversation, or is nil when none exist.
type LatestMessage struct {
	MessageID string    `json:"messageId" bson:"message_id"`
	Content   string    `json:"content" bson:"content"`
	SenderID  string    `json:"senderId" bson:"sender_id"`
	SentAt    time.Time `json:"sentAt" bson:"sent_at"`
}

// IsGroup reports whether this is a group conversation.
func (c *Conversation) IsGroup() bool {
	return c.ConversationType == ConversationGroup
}

// HasParticipant reports whether the user belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user is in the conversation's admin subset.
// Direct conversations have no admins.
func (c *Conversation) IsAdmin(userID string) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
