package hub

import (
	"sort"

	"chatline/internal/model"
)

// MonitorService provides methods to gather hub statistics
type MonitorService struct {
	hub *Hub
}

// NewMonitorService creates a new monitor service
func NewMonitorService(hub *Hub) *MonitorService {
	return &MonitorService{hub: hub}
}

// GetStats gathers and returns all hub statistics
func (ms *MonitorService) GetStats() model.MonitorResponse {
	connectionStats := ms.getConnectionStats()
	roomStats := ms.getRoomStats()
	clients := ms.getClientList()

	status := "healthy"
	if connectionStats.TotalOnline == 0 {
		status = "idle"
	}

	return model.MonitorResponse{
		Status:      status,
		Connections: connectionStats,
		Rooms:       roomStats,
		Clients:     clients,
	}
}

func (ms *MonitorService) getConnectionStats() model.ConnectionStats {
	p := ms.hub.presence
	p.mu.RLock()
	defer p.mu.RUnlock()

	return model.ConnectionStats{
		TotalOnline:       len(p.byUser),
		InboundQueueDepth: len(ms.hub.inbound),
	}
}

func (ms *MonitorService) getRoomStats() model.RoomStats {
	stats := model.RoomStats{
		RoomDetails: make([]model.RoomInfo, 0),
	}

	for _, bucket := range ms.hub.rooms.shards {
		bucket.RLock()
		for conversationID, room := range bucket.rooms {
			stats.RoomDetails = append(stats.RoomDetails, model.RoomInfo{
				ConversationID: conversationID,
				Members:        len(room),
			})
			stats.TotalRooms++
			stats.TotalMemberships += len(room)
		}
		bucket.RUnlock()
	}

	sort.Slice(stats.RoomDetails, func(i, j int) bool {
		return stats.RoomDetails[i].ConversationID < stats.RoomDetails[j].ConversationID
	})

	return stats
}

func (ms *MonitorService) getClientList() []model.ClientInfo {
	p := ms.hub.presence
	p.mu.RLock()
	defer p.mu.RUnlock()

	clients := make([]model.ClientInfo, 0, len(p.byUser))
	for userID, entry := range p.byUser {
		clients = append(clients, model.ClientInfo{
			ClientID: entry.client.ID,
			UserID:   userID,
			LastSeen: entry.lastSeen,
		})
	}

	return clients
}
