package signal

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hytenic/play-server/internal/domain"
)

// Hub is the broadcast side of the transport: it maps connections to their
// endpoints and rooms to their member sets, and implements relay.Transport.
type Hub struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]*wsConn
	rooms map[domain.RoomID]map[domain.ConnID]struct{}
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[domain.ConnID]*wsConn),
		rooms: make(map[domain.RoomID]map[domain.ConnID]struct{}),
	}
}

func (h *Hub) register(connID domain.ConnID, c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[connID] = c
}

func (h *Hub) unregister(connID domain.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, connID)
	for roomID, members := range h.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) EnterRoom(connID domain.ConnID, roomID domain.RoomID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[domain.ConnID]struct{})
		h.rooms[roomID] = members
	}
	members[connID] = struct{}{}
}

func (h *Hub) LeaveRoom(connID domain.ConnID, roomID domain.RoomID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// Emit sends one event to a single connection.
func (h *Hub) Emit(connID domain.ConnID, event string, payload []byte) {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.send(c, event, payload)
}

// Broadcast fans an event out to every room member except skip. Frames to
// congested members are dropped rather than blocking the rest of the room.
func (h *Hub) Broadcast(roomID domain.RoomID, event string, payload []byte, skip domain.ConnID) {
	h.mu.RLock()
	targets := make([]*wsConn, 0, len(h.rooms[roomID]))
	for connID := range h.rooms[roomID] {
		if connID == skip {
			continue
		}
		if c, ok := h.conns[connID]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	sent, dropped := 0, 0
	for _, c := range targets {
		if err := h.send(c, event, payload); err != nil {
			dropped++
			continue
		}
		sent++
	}
	log.Debug().Str("module", "signal.hub").Str("room", string(roomID)).Str("event", event).Int("sent_to", sent).Int("dropped", dropped).Msg("broadcast result")
}

func (h *Hub) send(c *wsConn, event string, payload []byte) error {
	frame, err := json.Marshal(Envelope{Type: event, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("module", "signal.hub").Msg("encode envelope")
		return err
	}
	return c.TrySend(frame)
}
