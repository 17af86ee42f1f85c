package hub

import (
	"context"
	"net/http"
	"sync"

	"chatline/internal/event"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type inboundEvent struct {
	event  event.WsEvent
	client *Client
}

// Hub owns the shared live-connection state: the presence registry, the room
// set and the inbound worker pool. It is constructed at server start, passed
// by reference to every connection, and torn down at shutdown.
type Hub struct {
	presence *Presence
	rooms    *RoomSet
	fanout   *Fanout
	handler  *ChatHandler

	inbound  chan inboundEvent
	upgrader websocket.Upgrader
	logger   *zap.Logger
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func NewHub(logger *zap.Logger, allowedOrigins []string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	presence := NewPresence()
	rooms := NewRoomSet()

	return &Hub{
		presence: presence,
		rooms:    rooms,
		fanout:   NewFanout(presence, rooms, logger),
		inbound:  make(chan inboundEvent, 4096), // buffer for burst handling
		upgrader: newUpgrader(allowedOrigins),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetHandler wires the event dispatcher and starts the worker pool that
// drains the inbound queue. Must be called once, before ServeWS is exposed;
// starting the workers here gives the handler write a happens-before edge to
// every worker that reads it.
func (h *Hub) SetHandler(handler *ChatHandler) {
	h.handler = handler

	for i := 0; i < workerPoolSize; i++ {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			for {
				select {
				case <-h.ctx.Done():
					return
				case in := <-h.inbound:
					h.handler.Handle(h.ctx, in.event, in.client)
				}
			}
		}()
	}
}

// Fanout exposes the hub's delivery fan-out to the service layer.
func (h *Hub) Fanout() *Fanout {
	return h.fanout
}

// Presence exposes the presence registry.
func (h *Hub) Presence() *Presence {
	return h.presence
}

// Rooms exposes the room multiplexer.
func (h *Hub) Rooms() *RoomSet {
	return h.rooms
}

// dropClient runs in the disconnecting client's read pump, before it returns.
// The presence removal is a no-op when the participant already reconnected
// under a new connection; only a genuine sign-off broadcasts the offline
// presence change.
func (h *Hub) dropClient(c *Client) {
	userID := h.presence.SetOffline(c)
	h.rooms.LeaveAll(c)
	c.Close()

	h.logger.Info("client removed",
		zap.String("client_id", c.ID),
		zap.String("user_id", c.userID),
	)

	if userID == "" {
		return
	}
	ev, err := event.Outbound(event.EventPresenceChanged, event.PresencePayload{
		UserID: userID,
		Status: event.PresenceOffline,
	})
	if err != nil {
		h.logger.Error("failed to encode presence event", zap.Error(err))
		return
	}
	h.fanout.ToAll(ev)
}

// Stop closes every client connection and drains the worker pool. Safe to
// call more than once; the shutdown path reaches it from both the server
// loop and the container teardown. The inbound channel is never closed, the
// workers exit by context cancellation, so a read pump still flushing its
// last event can never send on a closed channel.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.cancel()

		for _, c := range h.presence.Clients() {
			c.Close()
		}

		h.wg.Wait()
	})
}

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
}

// ServeWS upgrades an authenticated request to a WebSocket connection and
// registers it with the hub. Presence is announced separately by the client
// via the userOnline event.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	RegisterClient(userID, conn, h)
}
