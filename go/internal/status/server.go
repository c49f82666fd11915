package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/lockstep-live/lockstep/go/internal/session"
)

// Provider exposes a read-only view of the engine's state.
type Provider interface {
	Status() session.Status
}

// Server is the local status/debug endpoint the room UI polls. Read-only.
type Server struct {
	srv *http.Server
}

// NewServer builds the status server on addr.
func NewServer(addr string, provider Provider) *Server {
	return &Server{
		srv: &http.Server{
			Addr:    addr,
			Handler: newHandler(provider),
		},
	}
}

func newHandler(provider Provider) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(provider.Status()); err != nil {
			log.Error().Err(err).Msg("failed to encode status")
		}
	})

	// The room UI is a browser page on a different origin.
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	return c.Handler(mux)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.srv.Addr).Msg("status server started")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
