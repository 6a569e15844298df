// Package rest exposes operational HTTP endpoints next to the game listeners.
package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
)

type statsSource interface {
	Totals(ctx context.Context) (*repository.Stats, error)
	Recent(ctx context.Context, limit int64) ([]repository.GameResult, error)
}

type gameMonitor interface {
	LiveSessions() int
	OnlinePlayers() int
	Waiting() *entity.Player
}

type Server struct {
	logger *slog.Logger
	stats  statsSource
	game   gameMonitor
}

func New(logger *slog.Logger, stats statsSource, game gameMonitor) *Server {
	return &Server{
		logger: logger.With("component", "rest_server"),
		stats:  stats,
		game:   game,
	}
}

// Start serves the endpoints until ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	log := that.logger.With("method", "Start")

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", that.pingHandler)
	mux.HandleFunc("/stats", that.statsHandler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("http server started", "port", port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
