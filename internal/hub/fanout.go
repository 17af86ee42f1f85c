package hub

import (
	"chatline/internal/event"

	"go.uber.org/zap"
)

// Fanout delivers one logical event to every member of a target set: a room,
// a single participant, or the whole presence registry. Per-connection
// delivery is a best-effort bounded enqueue; a connection whose buffer stays
// full is disconnected rather than allowed to stall the loop. Within one
// room, events go out in submission order; no ordering is promised across
// connections.
type Fanout struct {
	presence *Presence
	rooms    *RoomSet
	logger   *zap.Logger
}

func NewFanout(presence *Presence, rooms *RoomSet, logger *zap.Logger) *Fanout {
	return &Fanout{
		presence: presence,
		rooms:    rooms,
		logger:   logger,
	}
}

// ToRoom delivers the event to every connection currently joined to the
// conversation. Membership is resolved now, not from an earlier snapshot.
// excludeClientID skips the originator for transient events such as typing.
func (f *Fanout) ToRoom(conversationID string, ev event.WsEvent, excludeClientID string) {
	for _, c := range f.rooms.Members(conversationID) {
		if excludeClientID != "" && c.ID == excludeClientID {
			continue
		}
		f.deliver(c, ev, conversationID)
	}
}

// ToParticipant delivers the event over the participant's live connection.
// An offline participant is silently dropped; there is no offline queue.
func (f *Fanout) ToParticipant(userID string, ev event.WsEvent) bool {
	c := f.presence.ClientOf(userID)
	if c == nil {
		return false
	}
	f.deliver(c, ev, "")
	return true
}

// ToAll delivers the event to every online participant, e.g. presence
// changes.
func (f *Fanout) ToAll(ev event.WsEvent) {
	for _, c := range f.presence.Clients() {
		f.deliver(c, ev, "")
	}
}

func (f *Fanout) deliver(c *Client, ev event.WsEvent, conversationID string) {
	if c.SafeSend(ev, sendTimeout) {
		return
	}
	if c.IsClosed() {
		return
	}

	// Egress stayed full past the timeout: disconnect the slow client. Its
	// read pump performs the registry and room cleanup.
	f.logger.Warn("egress full, disconnecting client",
		zap.String("client_id", c.ID),
		zap.String("conversation_id", conversationID),
	)
	c.Close()
}
