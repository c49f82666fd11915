package transport

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/lockstep-live/lockstep/go/internal/protocol"
)

// WSConfig holds configuration for the websocket channel
type WSConfig struct {
	URL      string // coordinator base URL, ws:// or wss://
	RoomID   string
	ClientID string

	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64

	ReconnectMinWait time.Duration
	ReconnectMaxWait time.Duration
}

// DefaultWSConfig returns default websocket configuration
func DefaultWSConfig() WSConfig {
	return WSConfig{
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      60 * time.Second,
		PingInterval:     30 * time.Second,
		MaxMessageSize:   64 * 1024,
		ReconnectMinWait: time.Second,
		ReconnectMaxWait: 30 * time.Second,
	}
}

// WSChannel is the websocket transport to the coordinator. It dials
// rooms/{room}/ws on the coordinator, pumps events in and intents out, and
// redials with capped exponential backoff when the connection drops.
type WSChannel struct {
	cfg    WSConfig
	url    string
	events chan protocol.Event
	send   chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

// DialWS creates a websocket channel and starts connecting in the
// background. Connection failures are retried by the channel itself.
func DialWS(cfg WSConfig) (*WSChannel, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse coordinator URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("coordinator URL scheme must be ws or wss, got %q", u.Scheme)
	}
	u.Path = path.Join(u.Path, "rooms", cfg.RoomID, "ws")
	q := u.Query()
	q.Set("client_id", cfg.ClientID)
	u.RawQuery = q.Encode()

	c := &WSChannel{
		cfg:    cfg,
		url:    u.String(),
		events: make(chan protocol.Event, 256),
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}
	go c.run()
	return c, nil
}

// Events returns the inbound event stream.
func (c *WSChannel) Events() <-chan protocol.Event {
	return c.events
}

// SendIntent queues an intent for delivery.
func (c *WSChannel) SendIntent(intent protocol.Intent) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("marshal intent: %w", err)
	}
	select {
	case c.send <- data:
		return nil
	default:
		log.Warn().Str("intent", string(intent.Type)).Msg("send buffer full, dropping intent")
		return nil
	}
}

// Close shuts the channel down. The event stream is closed once the
// connection loop exits.
func (c *WSChannel) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// run owns the connection: dial, pump until failure, back off, redial.
func (c *WSChannel) run() {
	defer close(c.events)

	wait := c.cfg.ReconnectMinWait
	first := true
	for {
		select {
		case <-c.done:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
		if err != nil {
			log.Warn().Err(err).Dur("backoff", wait).Msg("coordinator dial failed")
			select {
			case <-c.done:
				return
			case <-time.After(wait):
			}
			wait *= 2
			if wait > c.cfg.ReconnectMaxWait {
				wait = c.cfg.ReconnectMaxWait
			}
			continue
		}
		wait = c.cfg.ReconnectMinWait

		log.Info().Str("room_id", c.cfg.RoomID).Msg("connected to coordinator")
		if !first {
			// The engine's sole remedial action after a reconnect is to ask
			// for a fresh snapshot; this event triggers it.
			c.emit(protocol.Event{
				ID:        uuid.New().String(),
				RoomID:    c.cfg.RoomID,
				Type:      protocol.EventTypeReconnected,
				Timestamp: time.Now(),
			})
		}
		first = false

		stop := make(chan struct{})
		go c.writePump(conn, stop)
		c.readPump(conn)
		close(stop)
		conn.Close()

		select {
		case <-c.done:
			return
		default:
			log.Warn().Str("room_id", c.cfg.RoomID).Msg("coordinator connection lost, reconnecting")
		}
	}
}

// readPump reads coordinator events until the connection fails.
func (c *WSChannel) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(c.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Msg("unexpected websocket close")
			}
			return
		}

		var event protocol.Event
		if err := json.Unmarshal(message, &event); err != nil {
			log.Warn().Err(err).Msg("malformed coordinator event")
			continue
		}
		c.emit(event)
		conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	}
}

// writePump sends queued intents and keeps the connection alive with pings.
func (c *WSChannel) writePump(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-c.done:
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Msg("failed to write intent")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Msg("failed to send ping")
				return
			}
		}
	}
}

// emit forwards an event to the consumer. A full buffer drops the event:
// snapshots are versioned, so the next one supersedes whatever was lost.
func (c *WSChannel) emit(event protocol.Event) {
	select {
	case c.events <- event:
	default:
		log.Warn().Str("event_type", string(event.Type)).Msg("event buffer full, dropping event")
	}
}
