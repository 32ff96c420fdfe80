package relay

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/hytenic/play-server/internal/domain"
	"github.com/hytenic/play-server/internal/translate"
)

// Outbound event names.
const (
	EventRTCMessage = "rtc-message"
	EventRTCText    = "rtc-text"
	EventRoomFull   = "room-full"
)

// Transport is the delivery side the dispatcher drives: broadcast-group
// membership and event emission. The websocket adapter implements it.
type Transport interface {
	EnterRoom(connID domain.ConnID, roomID domain.RoomID)
	LeaveRoom(connID domain.ConnID, roomID domain.RoomID)
	Emit(connID domain.ConnID, event string, payload []byte)
	Broadcast(roomID domain.RoomID, event string, payload []byte, skip domain.ConnID)
}

// Dispatcher routes inbound events: membership events go through the
// directory and registry, signaling is forwarded verbatim, text is translated
// through the sender's agent before forwarding.
type Dispatcher struct {
	Rooms     *RoomDirectory
	Conns     *ConnectionRegistry
	Agents    *translate.Registry
	Transport Transport
}

func (d *Dispatcher) OnConnect(connID domain.ConnID) {
	d.Conns.OnConnect(connID)
	d.Agents.EnsureAgent(connID).Start()
	log.Info().Str("module", "relay.dispatcher").Str("conn", string(connID)).Msg("connected")
}

// OnJoin admits the connection to a room. On rejection only the requester is
// notified; nothing else changes.
func (d *Dispatcher) OnJoin(connID domain.ConnID, roomID domain.RoomID) {
	if roomID == "" {
		return
	}
	if err := d.Rooms.Join(roomID); err != nil {
		if errors.Is(err, domain.ErrRoomFull) {
			payload, _ := json.Marshal(map[string]string{"roomId": string(roomID)})
			d.Transport.Emit(connID, EventRoomFull, payload)
		}
		return
	}
	d.Conns.JoinRoom(connID, roomID)
	d.Transport.EnterRoom(connID, roomID)
	log.Info().Str("module", "relay.dispatcher").Str("conn", string(connID)).Str("room", string(roomID)).Msg("joined room")
}

func (d *Dispatcher) OnLeave(connID domain.ConnID, roomID domain.RoomID) {
	if roomID == "" {
		return
	}
	if !d.Conns.LeaveRoom(connID, roomID) {
		return
	}
	d.Rooms.Leave(roomID)
	d.Transport.LeaveRoom(connID, roomID)
	log.Info().Str("module", "relay.dispatcher").Str("conn", string(connID)).Str("room", string(roomID)).Msg("left room")
}

// OnRTCMessage forwards an opaque signaling payload to the rest of the room.
// The payload is parsed only to locate the room id; the bytes forwarded are
// the original ones, untouched.
func (d *Dispatcher) OnRTCMessage(connID domain.ConnID, data []byte) {
	payload, ok := parseObject(data)
	if !ok {
		log.Debug().Str("module", "relay.dispatcher").Str("conn", string(connID)).Msg("unparseable rtc-message dropped")
		return
	}
	roomID := stringField(payload, "roomId")
	if roomID == "" {
		log.Debug().Str("module", "relay.dispatcher").Str("conn", string(connID)).Msg("rtc-message without room dropped")
		return
	}
	d.Transport.Broadcast(domain.RoomID(roomID), EventRTCMessage, data, connID)
}

// OnRTCText translates the sender's text through their agent, overlays the
// result and forwards the augmented payload. An empty translation means "no
// translation available": the translated field is still set, but the
// original text is kept displayable.
func (d *Dispatcher) OnRTCText(ctx context.Context, connID domain.ConnID, data []byte) {
	payload, ok := parseObject(data)
	if !ok {
		payload = map[string]any{"text": stringifyPayload(data)}
	}
	text := stringField(payload, "text")
	if text == "" {
		text = stringField(payload, "message")
	}

	translated := d.Agents.Translate(ctx, connID, text)
	payload["translated"] = translated
	if translated != "" {
		payload["text"] = translated
	}

	roomID := stringField(payload, "roomId")
	if roomID == "" {
		log.Info().Str("module", "relay.dispatcher").Str("conn", string(connID)).Str("translated", translated).Msg("translated text without room")
		return
	}
	out, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("module", "relay.dispatcher").Msg("encode rtc-text payload")
		return
	}
	d.Transport.Broadcast(domain.RoomID(roomID), EventRTCText, out, connID)
}

// OnDisconnect cascades: every room the connection held is decremented
// exactly once, then its agent is stopped and drained. Idempotent.
func (d *Dispatcher) OnDisconnect(connID domain.ConnID) {
	for _, roomID := range d.Conns.OnDisconnect(connID) {
		d.Rooms.Leave(roomID)
		d.Transport.LeaveRoom(connID, roomID)
		log.Info().Str("module", "relay.dispatcher").Str("conn", string(connID)).Str("room", string(roomID)).Msg("disconnect, room left")
	}
	d.Agents.Release(connID)
}

// parseObject accepts a JSON object, or a JSON string that itself contains a
// JSON object (clients double-encode signaling payloads).
func parseObject(data []byte) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err == nil {
		return obj, true
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if err := json.Unmarshal([]byte(s), &obj); err == nil {
			return obj, true
		}
	}
	return nil, false
}

// stringifyPayload renders a non-object payload as plain text: a JSON string
// unwraps to its value, anything else keeps its raw bytes.
func stringifyPayload(data []byte) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return string(data)
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
