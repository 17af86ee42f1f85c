package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is a targeted message for a single participant. It is
// persisted first and then delivered over the recipient's live connection
// if one exists; there is no offline delivery queue.
type Notification struct {
	ID             primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	RecipientID    string              `json:"recipientId" bson:"recipient_id"`
	Body           string              `json:"body" bson:"body"`
	ConversationID *primitive.ObjectID `json:"conversationId,omitempty" bson:"conversation_id,omitempty"`
	Read           bool                `json:"read" bson:"read"`
	CreatedAt      time.Time           `json:"createdAt" bson:"created_at"`
}
