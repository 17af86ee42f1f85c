package hub

import (
	"sync"
	"time"
)

// presenceEntry tracks one participant's live connection.
type presenceEntry struct {
	client   *Client
	lastSeen time.Time
}

// Presence is the process-wide registry of which participants currently have
// a live connection. At most one entry exists per participant; a reconnect
// atomically replaces the prior entry. A reverse index (client id to user id)
// keeps disconnect cleanup O(1) instead of a scan over all entries.
type Presence struct {
	mu       sync.RWMutex
	byUser   map[string]presenceEntry
	byClient map[string]string
}

func NewPresence() *Presence {
	return &Presence{
		byUser:   make(map[string]presenceEntry),
		byClient: make(map[string]string),
	}
}

// SetOnline inserts or replaces the participant's entry and returns the
// superseded client, if any. The superseded connection stops receiving the
// participant's targeted events but is not closed here; its own pump tears
// it down.
func (p *Presence) SetOnline(userID string, c *Client) *Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	var previous *Client
	if entry, ok := p.byUser[userID]; ok && entry.client != c {
		previous = entry.client
		delete(p.byClient, entry.client.ID)
	}

	p.byUser[userID] = presenceEntry{client: c, lastSeen: time.Now()}
	p.byClient[c.ID] = userID
	return previous
}

// SetOffline removes the entry owned by the given connection. It is a no-op
// when the connection no longer owns an entry, because a disconnect can race
// with the same participant reconnecting under a new connection. Returns the
// participant that went offline, or "".
func (p *Presence) SetOffline(c *Client) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, ok := p.byClient[c.ID]
	if !ok {
		return ""
	}

	delete(p.byClient, c.ID)
	if entry, ok := p.byUser[userID]; ok && entry.client == c {
		delete(p.byUser, userID)
		return userID
	}
	return ""
}

// IsOnline reports whether the participant has a live connection.
func (p *Presence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byUser[userID]
	return ok
}

// ClientOf returns the participant's current connection, or nil.
func (p *Presence) ClientOf(userID string) *Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if entry, ok := p.byUser[userID]; ok {
		return entry.client
	}
	return nil
}

// Touch refreshes the participant's last-activity time.
func (p *Presence) Touch(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.byUser[userID]; ok {
		entry.lastSeen = time.Now()
		p.byUser[userID] = entry
	}
}

// Clients snapshots every online connection, for registry-wide broadcasts.
func (p *Presence) Clients() []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()

	clients := make([]*Client, 0, len(p.byUser))
	for _, entry := range p.byUser {
		clients = append(clients, entry.client)
	}
	return clients
}
