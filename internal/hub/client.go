package hub

import (
	"context"
	"net"
	"sync"
	"time"

	"chatline/internal/event"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	// tuning parameters
	writeWait          = 10 * time.Second       // time allowed to write a message to the peer
	pongWait           = 20 * time.Second       // time allowed to read the next pong message from the peer
	pingInterval       = (pongWait * 9) / 10    // send pings to peer with this period
	maxMessageSize     = 64 * 1024              // max inbound message size (64KB)
	sendBufSize        = 256                    // per-connection outbound buffer size
	workerPoolSize     = 16                     // number of workers to process inbound events
	sendTimeout        = 2 * time.Second        // timeout for enqueuing outbound events
	inboundSendTimeout = 500 * time.Millisecond // timeout for sending to inbound channel
)

// Client is one live, addressable channel to a single connected peer. Each
// client runs a read pump and a write pump; everything outbound goes through
// the bounded egress channel so a slow peer never stalls a broadcast.
type Client struct {
	ID     string
	userID string
	conn   *websocket.Conn
	hub    *Hub
	egress chan event.WsEvent
	logger *zap.Logger

	cancel         context.CancelFunc
	ctx            context.Context
	once           sync.Once
	connClosed     chan struct{}
	connClosedOnce sync.Once
	closed         bool
	closedMu       sync.RWMutex
}

func newClient(userID string, conn *websocket.Conn, h *Hub, logger *zap.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:         uuid.New().String(),
		userID:     userID,
		conn:       conn,
		hub:        h,
		egress:     make(chan event.WsEvent, sendBufSize),
		logger:     logger,
		cancel:     cancel,
		ctx:        ctx,
		connClosed: make(chan struct{}),
	}
}

// RegisterClient wires a freshly upgraded WebSocket connection into the hub
// and starts its pumps.
func RegisterClient(userID string, conn *websocket.Conn, h *Hub) *Client {
	client := newClient(userID, conn, h, h.logger)

	go client.readPump()
	go client.writePump()

	h.logger.Info("client registered",
		zap.String("client_id", client.ID),
		zap.String("user_id", userID),
	)
	return client
}

// UserID returns the authenticated participant identity for this connection.
func (c *Client) UserID() string {
	return c.userID
}

func (c *Client) readPump() {
	// Disconnect cleanup is synchronous: presence entry and room memberships
	// are gone before this goroutine returns.
	defer func() {
		c.hub.dropClient(c)
	}()

	c.conn.SetReadLimit(int64(maxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(c.pongHandler)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			var ev event.WsEvent

			if err := c.conn.ReadJSON(&ev); err != nil {
				if websocket.IsCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					c.logger.Debug("client disconnected", zap.String("client_id", c.ID))
					return
				}

				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					c.logger.Warn("client timed out", zap.String("client_id", c.ID))
					return
				}

				c.logger.Warn("read error",
					zap.String("client_id", c.ID),
					zap.Error(err),
				)
				return
			}

			// Non-blocking handoff to the worker pool so the reader never
			// stalls behind a slow handler.
			select {
			case c.hub.inbound <- inboundEvent{client: c, event: ev}:
			case <-time.After(inboundSendTimeout):
				c.logger.Warn("inbound queue full, dropping client", zap.String("client_id", c.ID))
				return
			case <-c.ctx.Done():
				return
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()

		c.connClosedOnce.Do(func() {
			close(c.connClosed)
		})
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-c.egress:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.logger.Warn("write error",
					zap.String("client_id", c.ID),
					zap.Error(err),
				)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("ping failed", zap.String("client_id", c.ID), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) pongHandler(string) error {
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// Close tears the client down exactly once. Cancelling the context stops both
// pumps; the read pump's cleanup removes the presence entry and room
// memberships.
func (c *Client) Close() {
	c.once.Do(func() {
		// Mark as closed before closing the channel so SafeSend's fast path
		// never races into a closed egress.
		c.closedMu.Lock()
		c.closed = true
		c.closedMu.Unlock()

		c.cancel()
		close(c.egress)

		// Wait for the write pump to close conn, or force it after a timeout.
		go func() {
			select {
			case <-c.connClosed:
			case <-time.After(5 * time.Second):
				if c.conn != nil {
					_ = c.conn.Close()
				}
			}
		}()
	})
}

// IsClosed returns true if the client has been closed
func (c *Client) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}

// SafeSend attempts to enqueue an event on the client's egress channel.
// Returns true when enqueued, false when the client is closed or the buffer
// stayed full past the timeout. The closed check and the enqueue share the
// lock, so Close cannot slip between them and close the channel under the
// send; Close blocks for at most the enqueue timeout.
func (c *Client) SafeSend(ev event.WsEvent, timeout time.Duration) bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	if c.closed {
		return false
	}

	select {
	case <-c.ctx.Done():
		return false
	case c.egress <- ev:
		return true
	case <-time.After(timeout):
		return false
	}
}
