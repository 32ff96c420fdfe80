package signal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hytenic/play-server/internal/relay"
	"github.com/hytenic/play-server/internal/translate"
)

type hangingBackend struct {
	release chan struct{}
}

func (b hangingBackend) Translate(ctx context.Context, text string) (string, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return "", ctx.Err()
}

func TestPingAnsweredWhileTranslationInFlight(t *testing.T) {
	release := make(chan struct{})
	hub := NewHub()
	d := &relay.Dispatcher{
		Rooms:     relay.NewRoomDirectory(2),
		Conns:     relay.NewConnectionRegistry(),
		Agents:    translate.NewRegistry(hangingBackend{release: release}),
		Transport: hub,
	}
	ctl := NewController(hub, d)

	conn := newWSConn(nil)
	hub.register("A", conn)
	d.OnConnect("A")
	defer func() {
		close(release)
		d.OnDisconnect("A")
	}()

	ctl.handleFrame(context.Background(), "A", conn, []byte(`{"type":"rtc-text","data":{"roomId":"R","text":"hello"}}`))
	ctl.handleFrame(context.Background(), "A", conn, []byte(`{"type":"ping"}`))

	// The backend is still hanging; the pong must not wait for it.
	deadline := time.After(500 * time.Millisecond)
	for {
		select {
		case f := <-conn.send:
			var env Envelope
			require.NoError(t, json.Unmarshal(f, &env))
			if env.Type == "pong" {
				return
			}
		case <-deadline:
			t.Fatal("no pong while a translation was in flight")
		}
	}
}
