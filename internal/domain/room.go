// Package domain contains entities without logic, just meta-data.
package domain

import "errors"

type (
	RoomID string
	ConnID string
)

// DefaultRoomCapacity bounds concurrent members per room. A room exists
// implicitly while its member count is non-zero.
const DefaultRoomCapacity = 2

var ErrRoomFull = errors.New("room full")
