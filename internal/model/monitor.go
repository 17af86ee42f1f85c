package model

import "time"

// -----------------------------------------------------------------
// Monitor API Response Models
// -----------------------------------------------------------------

// MonitorResponse is the main response for the monitor API
type MonitorResponse struct {
	Status      string          `json:"status"` // "healthy" or "idle"
	Connections ConnectionStats `json:"connections"`
	Rooms       RoomStats       `json:"rooms"`
	Clients     []ClientInfo    `json:"clients"`
}

// ConnectionStats holds live-connection statistics
type ConnectionStats struct {
	TotalOnline       int `json:"totalOnline"`       // Participants with a live connection
	InboundQueueDepth int `json:"inboundQueueDepth"` // Events waiting for a worker
}

// RoomStats holds room statistics
type RoomStats struct {
	TotalRooms       int        `json:"totalRooms"`
	TotalMemberships int        `json:"totalMemberships"`
	RoomDetails      []RoomInfo `json:"roomDetails"`
}

// RoomInfo contains information about a single room
type RoomInfo struct {
	ConversationID string `json:"conversationId"`
	Members        int    `json:"members"` // Connections currently joined
}

// ClientInfo contains information about a connected participant
type ClientInfo struct {
	ClientID string    `json:"clientId"`
	UserID   string    `json:"userId"`
	LastSeen time.Time `json:"lastSeen"`
}
