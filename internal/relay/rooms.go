package relay

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hytenic/play-server/internal/domain"
)

// RoomDirectory tracks member counts per room and enforces the capacity
// policy. Rooms are implicit: an entry appears on the first admitted join
// and is dropped when its count returns to zero.
type RoomDirectory struct {
	mu       sync.Mutex
	counts   map[domain.RoomID]int
	capacity int
}

func NewRoomDirectory(capacity int) *RoomDirectory {
	if capacity <= 0 {
		capacity = domain.DefaultRoomCapacity
	}
	return &RoomDirectory{
		counts:   make(map[domain.RoomID]int),
		capacity: capacity,
	}
}

// Join admits the caller iff the room is below capacity. The check and the
// increment happen under one lock acquisition so two concurrent joins can
// never both observe the last free slot.
func (d *RoomDirectory) Join(roomID domain.RoomID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.counts[roomID] >= d.capacity {
		log.Warn().Str("module", "relay.rooms").Str("room", string(roomID)).Int("count", d.counts[roomID]).Msg("join rejected, room full")
		return domain.ErrRoomFull
	}
	d.counts[roomID]++
	log.Info().Str("module", "relay.rooms").Str("room", string(roomID)).Int("count", d.counts[roomID]).Msg("member admitted")
	return nil
}

// Leave decrements the room's count, never below zero. Leaving a room that
// was never joined is a no-op.
func (d *RoomDirectory) Leave(roomID domain.RoomID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.counts[roomID]
	if !ok {
		return
	}
	if n <= 1 {
		delete(d.counts, roomID)
	} else {
		d.counts[roomID] = n - 1
	}
	log.Info().Str("module", "relay.rooms").Str("room", string(roomID)).Int("count", n-1).Msg("member left")
}

func (d *RoomDirectory) Count(roomID domain.RoomID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[roomID]
}

func (d *RoomDirectory) Capacity() int { return d.capacity }
