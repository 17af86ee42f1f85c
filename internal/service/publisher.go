package service

import "chatline/internal/event"

// Publisher is the delivery fan-out as seen by the services: room broadcast
// or a single presence-targeted participant. Delivery is best-effort and
// non-blocking; an offline participant target is silently dropped.
type Publisher interface {
	// ToRoom delivers the event to every connection currently joined to the
	// conversation, skipping excludeClientID when non-empty.
	ToRoom(conversationID string, ev event.WsEvent, excludeClientID string)

	// ToParticipant delivers the event over the participant's live connection.
	// Returns false when the participant is offline.
	ToParticipant(userID string, ev event.WsEvent) bool
}
