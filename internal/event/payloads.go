package event

// Inbound payloads. Malformed or incomplete ones are logged and dropped;
// channel events are fire-and-forget, so there is no request/response error.

type UserOnlinePayload struct {
	UserID string `json:"userId"`
}

type JoinRoomPayload struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
}

type SendMessagePayload struct {
	SenderID       string `json:"senderId"`
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	ReplyTo        string `json:"replyTo,omitempty"`
}

type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

type ReactPayload struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
	Emoji     string `json:"emoji"`
}

type MarkReadPayload struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

type PinPayload struct {
	MessageID string `json:"messageId"`
	ActorID   string `json:"actorId"`
}

type EditMessagePayload struct {
	MessageID string `json:"messageId"`
	ActorID   string `json:"actorId"`
	Content   string `json:"content"`
}

type DeleteMessagePayload struct {
	MessageID string `json:"messageId"`
	ActorID   string `json:"actorId"`
}

type SendNotificationPayload struct {
	RecipientID    string `json:"recipientId"`
	Body           string `json:"body"`
	ConversationID string `json:"conversationId,omitempty"`
}

// Outbound payloads.

type PresencePayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

type ReactionUpdatedPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Emoji          string `json:"emoji"`
}

type ReadReceiptPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	ReadAt         string `json:"readAt"`
}

type PinChangedPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	ActorID        string `json:"actorId"`
	Pinned         bool   `json:"pinned"`
}

type MessageDeletedPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	ActorID        string `json:"actorId"`
}

// ErrorPayload is an operation rejection sent to the originating connection.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
