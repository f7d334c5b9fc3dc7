// Package live pushes schedule-change notifications to connected operator
// screens so every open final-day board refetches after a mutation.
package live

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event types broadcast to a tournament room.
const (
	EventTeamsSwapped      = "TEAMS_SWAPPED"
	EventMatchUpdated      = "MATCH_UPDATED"
	EventScheduleGenerated = "SCHEDULE_GENERATED"
	EventBracketReconciled = "BRACKET_RECONCILED"
)

// Message is the wire envelope sent to clients.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	RoomID  string      `json:"room_id,omitempty"`
}

// Hub keeps one room of clients per tournament. Register/Unregister run on
// the hub goroutine; broadcasts take a read lock so a slow client cannot
// stall a mutation path (full send buffers are skipped).
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	logger *slog.Logger
	mu     sync.RWMutex
	rooms  map[string]map[*Client]bool
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger,
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.logger.Info("live client registered",
				slog.String("room", client.Room),
				slog.Int("room_clients", len(h.rooms[client.Room])))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.Room]; ok {
				if _, known := clients[client]; known {
					client.closeSend()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.Room)
					}
					h.logger.Info("live client unregistered",
						slog.String("room", client.Room),
						slog.Int("room_clients", len(clients)))
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToRoom sends a typed event to every client in the room.
func (h *Hub) BroadcastToRoom(roomID string, eventType string, payload interface{}) {
	messageBytes, err := json.Marshal(Message{Type: eventType, Payload: payload, RoomID: roomID})
	if err != nil {
		h.logger.Error("failed to marshal live message",
			slog.String("room", roomID),
			slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.rooms[roomID]
	if !ok {
		return
	}
	for client := range clients {
		if !client.trySend(messageBytes) {
			h.logger.Warn("live client send buffer full, dropping message",
				slog.String("room", roomID))
		}
	}
}

// RoomID builds the room name for a tournament.
func RoomID(tournamentID string) string {
	return "tournament_" + tournamentID
}
