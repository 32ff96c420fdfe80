package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hytenic/play-server/internal/domain"
)

func TestConnectionRegistryDisconnectReturnsRoomsOnce(t *testing.T) {
	r := NewConnectionRegistry()
	r.OnConnect("c1")
	r.JoinRoom("c1", "R1")
	r.JoinRoom("c1", "R2")

	rooms := r.OnDisconnect("c1")
	assert.ElementsMatch(t, []domain.RoomID{"R1", "R2"}, rooms)

	// A retried disconnect yields nothing, so counts can never be
	// decremented twice.
	assert.Nil(t, r.OnDisconnect("c1"))
}

func TestConnectionRegistryOnConnectIsIdempotent(t *testing.T) {
	r := NewConnectionRegistry()
	r.OnConnect("c1")
	r.JoinRoom("c1", "R1")
	r.OnConnect("c1")

	assert.ElementsMatch(t, []domain.RoomID{"R1"}, r.OnDisconnect("c1"))
}

func TestConnectionRegistryLeaveRoomReportsMembership(t *testing.T) {
	r := NewConnectionRegistry()
	r.OnConnect("c1")
	r.JoinRoom("c1", "R1")

	assert.True(t, r.LeaveRoom("c1", "R1"))
	assert.False(t, r.LeaveRoom("c1", "R1"))
	assert.False(t, r.LeaveRoom("c1", "never-joined"))
	assert.False(t, r.LeaveRoom("unknown", "R1"))
}

func TestConnectionRegistryJoinWithoutConnect(t *testing.T) {
	r := NewConnectionRegistry()
	r.JoinRoom("c1", "R1")
	assert.ElementsMatch(t, []domain.RoomID{"R1"}, r.OnDisconnect("c1"))
}
