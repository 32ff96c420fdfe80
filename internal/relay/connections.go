package relay

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hytenic/play-server/internal/domain"
)

// ConnectionRegistry tracks which rooms each connection has joined so a
// disconnect can cascade into exactly one RoomDirectory decrement per room.
type ConnectionRegistry struct {
	mu    sync.Mutex
	rooms map[domain.ConnID]map[domain.RoomID]struct{}
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{rooms: make(map[domain.ConnID]map[domain.RoomID]struct{})}
}

// OnConnect initializes an empty room set. Calling it twice for the same
// connection keeps the existing set.
func (r *ConnectionRegistry) OnConnect(connID domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[connID]; !ok {
		r.rooms[connID] = make(map[domain.RoomID]struct{})
	}
}

// JoinRoom records membership. Callers must have passed the RoomDirectory
// admission check first; a rejected join never reaches this point.
func (r *ConnectionRegistry) JoinRoom(connID domain.ConnID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.rooms[connID]
	if !ok {
		set = make(map[domain.RoomID]struct{})
		r.rooms[connID] = set
	}
	set[roomID] = struct{}{}
}

// LeaveRoom removes a single membership and reports whether it was held, so
// the caller decrements the directory only for memberships that existed.
func (r *ConnectionRegistry) LeaveRoom(connID domain.ConnID, roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.rooms[connID]
	if !ok {
		return false
	}
	if _, held := set[roomID]; !held {
		return false
	}
	delete(set, roomID)
	return true
}

// OnDisconnect removes the connection and returns every room it held, in one
// atomic step. A second call returns nil, so a retried disconnect can never
// double-decrement the directory.
func (r *ConnectionRegistry) OnDisconnect(connID domain.ConnID) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.rooms[connID]
	if !ok {
		return nil
	}
	delete(r.rooms, connID)
	out := make([]domain.RoomID, 0, len(set))
	for roomID := range set {
		out = append(out, roomID)
	}
	log.Info().Str("module", "relay.connections").Str("conn", string(connID)).Int("rooms", len(out)).Msg("connection removed")
	return out
}
