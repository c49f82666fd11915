package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lockstep-live/lockstep/go/internal/player"
	"github.com/lockstep-live/lockstep/go/internal/session"
	"github.com/lockstep-live/lockstep/go/internal/status"
	"github.com/lockstep-live/lockstep/go/internal/transport"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := loadConfig(getEnv("CONFIG_PATH", ""))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	cfg.applyEnvOverrides()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	clientID := uuid.New().String()[:8] // short ID for logging
	log.Info().
		Str("client_id", clientID).
		Str("room_id", cfg.Coordinator.RoomID).
		Str("transport", cfg.Coordinator.Transport).
		Msg("starting lockstep viewer client")

	clock := clockwork.NewRealClock()

	// The headless surface stands in for a real embed; it has no async
	// library bootstrap, so the API latch resolves immediately.
	apiReady := player.NewAPIReady()
	apiReady.Resolve()
	factory := player.NewHeadlessFactory(clock)

	manager := player.NewManager(factory, apiReady, clock, player.ManagerConfig{
		ContainerID:  cfg.Player.ContainerID,
		RetryBackoff: time.Duration(cfg.Player.RetryBackoffMs) * time.Millisecond,
		MaxAttempts:  cfg.Player.MaxAttempts,
	})

	var channel transport.Channel
	switch cfg.Coordinator.Transport {
	case "nats":
		ncfg := transport.DefaultNATSConfig()
		ncfg.URL = cfg.Coordinator.NATSURL
		ncfg.RoomID = cfg.Coordinator.RoomID
		ncfg.ClientID = clientID
		channel, err = transport.ConnectNATS(ncfg)
	case "websocket":
		wcfg := transport.DefaultWSConfig()
		wcfg.URL = cfg.Coordinator.URL
		wcfg.RoomID = cfg.Coordinator.RoomID
		wcfg.ClientID = clientID
		channel, err = transport.DialWS(wcfg)
	default:
		log.Fatal().Str("transport", cfg.Coordinator.Transport).Msg("unknown transport")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up transport")
	}

	engine := session.NewEngine(manager, channel, logSink{}, clock, session.Config{
		DriftThreshold:    cfg.Sync.DriftThresholdSec,
		ApplySettle:       time.Duration(cfg.Sync.ApplySettleMs) * time.Millisecond,
		LocalActionWindow: time.Duration(cfg.Sync.LocalActionWindowMs) * time.Millisecond,
	})
	consumer := session.NewConsumer(channel, engine)

	ctx, cancel := context.WithCancel(context.Background())
	go consumer.Run(ctx)

	statusServer := status.NewServer(cfg.Status.Addr, engine)
	go func() {
		if err := statusServer.Start(); err != nil {
			log.Error().Err(err).Msg("status server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutting down")

	cancel()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := statusServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("status server shutdown failed")
	}
	if err := channel.Close(); err != nil {
		log.Warn().Err(err).Msg("transport close failed")
	}
	manager.Close()
}

// logSink surfaces UI signals on the console; a real embed would render the
// pending-sync banner and viewer count instead.
type logSink struct{}

func (logSink) PendingSync(active bool) {
	log.Info().Bool("active", active).Msg("pending sync indicator")
}

func (logSink) ViewerCount(count int) {
	log.Info().Int("count", count).Msg("viewer count")
}

func (logSink) Notice(level session.NoticeLevel, code session.NoticeCode, message string) {
	event := log.Info()
	switch level {
	case session.NoticeWarn:
		event = log.Warn()
	case session.NoticeError:
		event = log.Error()
	}
	event.Str("code", string(code)).Msg(message)
}
