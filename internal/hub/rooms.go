package hub

import (
	"crypto/sha1"
	"encoding/binary"
	"sync"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load
)

type roomBucket struct {
	sync.RWMutex
	rooms map[string]map[string]*Client
}

// RoomSet groups live connections by conversation id so a broadcast reaches
// exactly the connections joined to that conversation. Room membership is
// in-memory only: rebuilt from join events, discarded wholesale on disconnect.
type RoomSet struct {
	shards [shardCount]*roomBucket

	// joined indexes conversation ids per client so LeaveAll does not scan
	// every shard.
	joinedMu sync.Mutex
	joined   map[string]map[string]struct{}
}

func NewRoomSet() *RoomSet {
	rs := &RoomSet{
		joined: make(map[string]map[string]struct{}),
	}
	for i := 0; i < shardCount; i++ {
		rs.shards[i] = &roomBucket{
			rooms: make(map[string]map[string]*Client),
		}
	}
	return rs
}

func getShard(conversationID string) uint32 {
	if conversationID == "" {
		return 0
	}

	h := sha1.Sum([]byte(conversationID))
	return binary.BigEndian.Uint32(h[:4]) % shardCount
}

// Join adds the connection to the room's member set. Idempotent.
func (rs *RoomSet) Join(c *Client, conversationID string) {
	if conversationID == "" {
		return
	}

	b := rs.shards[getShard(conversationID)]
	b.Lock()
	room, ok := b.rooms[conversationID]
	if !ok {
		room = make(map[string]*Client)
		b.rooms[conversationID] = room
	}
	room[c.ID] = c
	b.Unlock()

	rs.joinedMu.Lock()
	set, ok := rs.joined[c.ID]
	if !ok {
		set = make(map[string]struct{})
		rs.joined[c.ID] = set
	}
	set[conversationID] = struct{}{}
	rs.joinedMu.Unlock()
}

// LeaveAll removes the connection from every room it had joined.
func (rs *RoomSet) LeaveAll(c *Client) {
	rs.joinedMu.Lock()
	set := rs.joined[c.ID]
	delete(rs.joined, c.ID)
	rs.joinedMu.Unlock()

	for conversationID := range set {
		b := rs.shards[getShard(conversationID)]
		b.Lock()
		if room, ok := b.rooms[conversationID]; ok {
			delete(room, c.ID)
			if len(room) == 0 {
				delete(b.rooms, conversationID)
			}
		}
		b.Unlock()
	}
}

// Members snapshots the room's current member set. Membership is resolved at
// call time, never from an earlier snapshot.
func (rs *RoomSet) Members(conversationID string) []*Client {
	b := rs.shards[getShard(conversationID)]
	b.RLock()
	defer b.RUnlock()

	room, ok := b.rooms[conversationID]
	if !ok || len(room) == 0 {
		return nil
	}

	clients := make([]*Client, 0, len(room))
	for _, c := range room {
		clients = append(clients, c)
	}
	return clients
}
