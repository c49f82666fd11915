package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockstep-live/lockstep/go/internal/protocol"
)

const (
	testWait = 2 * time.Second
	testTick = time.Millisecond
)

var upgrader = websocket.Upgrader{}

func testWSConfig(serverURL string) WSConfig {
	cfg := DefaultWSConfig()
	cfg.URL = "ws" + strings.TrimPrefix(serverURL, "http")
	cfg.RoomID = "movie-night"
	cfg.ClientID = "client-1"
	cfg.ReconnectMinWait = 10 * time.Millisecond
	cfg.ReconnectMaxWait = 50 * time.Millisecond
	return cfg
}

func TestDialWSRejectsBadURL(t *testing.T) {
	cfg := DefaultWSConfig()
	cfg.URL = "http://coordinator.example"
	_, err := DialWS(cfg)
	assert.Error(t, err)

	cfg.URL = "://not-a-url"
	_, err = DialWS(cfg)
	assert.Error(t, err)
}

func TestWSChannelRoundTrip(t *testing.T) {
	requests := make(chan *http.Request, 1)
	intents := make(chan protocol.Intent, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r.Clone(r.Context())
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		event := protocol.Event{
			ID:        "evt-1",
			RoomID:    "movie-night",
			Type:      protocol.EventTypeViewerCount,
			Timestamp: time.Now(),
			Data:      json.RawMessage(`{"count":3}`),
		}
		data, _ := json.Marshal(event)
		_ = conn.WriteMessage(websocket.TextMessage, data)

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var intent protocol.Intent
			if json.Unmarshal(msg, &intent) == nil {
				intents <- intent
			}
		}
	}))
	defer srv.Close()

	ch, err := DialWS(testWSConfig(srv.URL))
	require.NoError(t, err)
	defer ch.Close()

	select {
	case r := <-requests:
		assert.Equal(t, "/rooms/movie-night/ws", r.URL.Path)
		assert.Equal(t, "client-1", r.URL.Query().Get("client_id"))
	case <-time.After(testWait):
		t.Fatal("coordinator never saw the dial")
	}

	select {
	case event := <-ch.Events():
		assert.Equal(t, "evt-1", event.ID)
		assert.Equal(t, protocol.EventTypeViewerCount, event.Type)
	case <-time.After(testWait):
		t.Fatal("event never delivered")
	}

	intent, err := protocol.NewIntent(protocol.IntentTypePlay, time.Now(), protocol.PlayPayload{CurrentTime: 12.5})
	require.NoError(t, err)
	require.NoError(t, ch.SendIntent(intent))

	select {
	case got := <-intents:
		assert.Equal(t, intent.ID, got.ID)
		assert.Equal(t, protocol.IntentTypePlay, got.Type)
		var payload protocol.PlayPayload
		require.NoError(t, json.Unmarshal(got.Data, &payload))
		assert.Equal(t, 12.5, payload.CurrentTime)
	case <-time.After(testWait):
		t.Fatal("intent never reached the coordinator")
	}
}

func TestWSChannelEmitsReconnectedAfterRedial(t *testing.T) {
	var dials int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&dials, 1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if n == 1 {
			// Drop the first connection to force a redial.
			conn.Close()
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ch, err := DialWS(testWSConfig(srv.URL))
	require.NoError(t, err)
	defer ch.Close()

	select {
	case event := <-ch.Events():
		assert.Equal(t, protocol.EventTypeReconnected, event.Type)
		assert.Equal(t, "movie-night", event.RoomID)
	case <-time.After(testWait):
		t.Fatal("reconnect event never delivered")
	}
	assert.GreaterOrEqual(t, atomic.LoadInt32(&dials), int32(2))
}

func TestWSChannelClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ch, err := DialWS(testWSConfig(srv.URL))
	require.NoError(t, err)

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close()) // idempotent

	intent, err := protocol.NewIntent(protocol.IntentTypeRequestCurrentState, time.Now(), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, ch.SendIntent(intent), ErrClosed)

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch.Events():
			return !ok
		default:
			return false
		}
	}, testWait, testTick, "event stream must close once the loop exits")
}
