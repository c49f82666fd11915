package transport

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/lockstep-live/lockstep/go/internal/protocol"
)

// NATSConfig holds configuration for the NATS channel
type NATSConfig struct {
	URL      string
	RoomID   string
	ClientID string

	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns default NATS configuration
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: 60,
		ReconnectWait: 2 * time.Second,
	}
}

func stateSubject(roomID string) string    { return fmt.Sprintf("room.%s.state", roomID) }
func presenceSubject(roomID string) string { return fmt.Sprintf("room.%s.presence", roomID) }
func intentSubject(roomID string) string   { return fmt.Sprintf("room.%s.intents", roomID) }

// NATSChannel is the NATS transport to the coordinator: snapshots and
// presence arrive on room subjects, intents are published back. Reconnection
// is owned by the NATS client; its reconnect handler synthesizes the
// Reconnected event.
type NATSChannel struct {
	cfg    NATSConfig
	nc     *nats.Conn
	subs   []*nats.Subscription
	events chan protocol.Event

	mu     sync.Mutex
	closed bool
}

// ConnectNATS connects to NATS and subscribes to the room's subjects.
func ConnectNATS(cfg NATSConfig) (*NATSChannel, error) {
	c := &NATSChannel{
		cfg:    cfg,
		events: make(chan protocol.Event, 256),
	}

	opts := []nats.Option{
		nats.Name("lockstep-" + cfg.ClientID),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
			c.emit(protocol.Event{
				ID:        uuid.New().String(),
				RoomID:    cfg.RoomID,
				Type:      protocol.EventTypeReconnected,
				Timestamp: time.Now(),
			})
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	c.nc = nc

	for _, subject := range []string{stateSubject(cfg.RoomID), presenceSubject(cfg.RoomID)} {
		sub, err := nc.Subscribe(subject, c.handleMessage)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("subscribe %s: %w", subject, err)
		}
		c.subs = append(c.subs, sub)
	}

	log.Info().Str("room_id", cfg.RoomID).Msg("subscribed to room subjects")
	return c, nil
}

// Events returns the inbound event stream.
func (c *NATSChannel) Events() <-chan protocol.Event {
	return c.events
}

// SendIntent publishes an intent to the room's intent subject.
func (c *NATSChannel) SendIntent(intent protocol.Intent) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("marshal intent: %w", err)
	}
	if err := c.nc.Publish(intentSubject(c.cfg.RoomID), data); err != nil {
		return fmt.Errorf("publish intent: %w", err)
	}
	return nil
}

// Close unsubscribes and tears the connection down.
func (c *NATSChannel) Close() error {
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Msg("unsubscribe failed")
		}
	}
	c.nc.Close()

	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	c.mu.Unlock()
	return nil
}

func (c *NATSChannel) handleMessage(msg *nats.Msg) {
	var event protocol.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Warn().Err(err).Str("subject", msg.Subject).Msg("malformed coordinator event")
		return
	}
	c.emit(event)
}

// emit forwards an event to the consumer, dropping on a full buffer.
func (c *NATSChannel) emit(event protocol.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- event:
	default:
		log.Warn().Str("event_type", string(event.Type)).Msg("event buffer full, dropping event")
	}
}
