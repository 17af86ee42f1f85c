package event

// Chat Event Types - Client to Server
const (
	// EventUserOnline - Participant announces presence after connecting
	EventUserOnline = "userOnline"

	// EventJoinRoom - Participant subscribes to a conversation's events
	EventJoinRoom = "joinRoom"

	// EventSendMessage - New message for a conversation
	EventSendMessage = "sendMessage"

	// EventTyping / EventStopTyping - Transient typing indicator, never persisted
	EventTyping     = "typing"
	EventStopTyping = "stopTyping"

	// EventReact - Upsert the sender's reaction on a message
	EventReact = "react"

	// EventMarkRead - Record the first read time for a message
	EventMarkRead = "markRead"

	// EventPin / EventUnpin - Toggle a message's pinned flag
	EventPin   = "pin"
	EventUnpin = "unpin"

	// EventEditMessage - Sender edits their own message content
	EventEditMessage = "editMessage"

	// EventDeleteMessage - Remove a message from the conversation
	EventDeleteMessage = "deleteMessage"

	// EventSendNotification - Persist and deliver a targeted notification
	EventSendNotification = "sendNotification"
)

// Chat Event Types - Server to Client
const (
	// EventMessage - New enriched message delivered to a room
	EventMessage = "message"

	// EventMessageEdited - Content/edit-time changed
	EventMessageEdited = "messageEdited"

	// EventMessageDeleted - Message removed from its conversation
	EventMessageDeleted = "messageDeleted"

	// EventReactionUpdated - A participant's reaction changed
	EventReactionUpdated = "reactionUpdated"

	// EventReadReceipt - A participant read a message for the first time
	EventReadReceipt = "readReceipt"

	// EventPinChanged - A message's pinned flag changed
	EventPinChanged = "pinChanged"

	// EventPresenceChanged - A participant went online or offline
	EventPresenceChanged = "presenceChanged"

	// EventNotification - Targeted notification for one participant
	EventNotification = "notification"

	// EventError - Operation rejection, sent to the originator only
	EventError = "error"
)

// Presence states carried by EventPresenceChanged
const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

// Error codes carried by EventError
const (
	CodeInvalidPayload     = "invalid_payload"
	CodeUnauthorized       = "unauthorized"
	CodeNotFound           = "not_found"
	CodeInvalidReference   = "invalid_reference"
	CodePersistenceFailure = "persistence_failed"
)
