package session

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/lockstep-live/lockstep/go/internal/protocol"
	"github.com/lockstep-live/lockstep/go/internal/transport"
)

// Consumer bridges a transport channel's event stream into the engine.
type Consumer struct {
	channel transport.Channel
	engine  *Engine
}

// NewConsumer creates a consumer for the given channel and engine.
func NewConsumer(channel transport.Channel, engine *Engine) *Consumer {
	return &Consumer{channel: channel, engine: engine}
}

// Run processes events until the context is cancelled or the channel closes.
func (c *Consumer) Run(ctx context.Context) {
	log.Info().Msg("event consumer started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event consumer shutting down")
			return
		case event, ok := <-c.channel.Events():
			if !ok {
				log.Info().Msg("transport channel closed")
				return
			}
			c.processEvent(&event)
		}
	}
}

func (c *Consumer) processEvent(event *protocol.Event) {
	payload, err := protocol.ParseEventPayload(event)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(event.Type)).Msg("failed to parse event payload")
		return
	}

	switch event.Type {
	case protocol.EventTypeStateSync:
		c.engine.Consume(payload.(protocol.Snapshot))
	case protocol.EventTypeViewerCount:
		c.engine.SetViewerCount(payload.(protocol.ViewerCountPayload).Count)
	case protocol.EventTypeReconnected:
		c.engine.HandleReconnect()
	default:
		log.Debug().Str("event_type", string(event.Type)).Msg("ignoring unknown event type")
	}
}
