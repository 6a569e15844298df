package application

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
	"github.com/rocketscienceinc/tictactoe-arena/internal/matchmaker"
	"github.com/rocketscienceinc/tictactoe-arena/internal/registry"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-arena/internal/session"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-arena/transport/protocol"
	"github.com/rocketscienceinc/tictactoe-arena/transport/rest"
	"github.com/rocketscienceinc/tictactoe-arena/transport/tcp"
	"github.com/rocketscienceinc/tictactoe-arena/transport/websocket"
)

// RunApp - wires everything together and runs the listeners.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	statsRepo := repository.NewMemoryStatsRepository()
	if conf.Redis.Host != "" {
		redisStorage, err := storage.NewRedisStorage(ctx, conf.Redis.GetRedisAddr())
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		defer func() {
			if err = redisStorage.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		statsRepo = repository.NewStatsRepository(redisStorage.Connection)
		log.Info("Recording game results in redis", "addr", conf.Redis.GetRedisAddr())
	} else {
		log.Info("Recording game results in process memory")
	}

	gameManager := usecase.NewGameManager(
		logger,
		registry.New(),
		matchmaker.New(),
		session.NewArena(),
		statsRepo,
	)
	router := protocol.NewRouter(logger, gameManager)

	// run TCP game server
	tcpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting TCP server", "port", conf.TCPPort)
		tcpServer := tcp.New(logger, router, conf.MaxClients)
		if tcpErr := tcpServer.Start(ctx, net.JoinHostPort(conf.Host, conf.TCPPort)); tcpErr != nil {
			log.Error("TCP server error", "error", tcpErr)
			tcpErrCh <- tcpErr
		}
	}()

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		restServer := rest.New(logger, statsRepo, gameManager)
		if httpErr := restServer.Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run WebSocket server, when enabled
	wsErrCh := make(chan error, 1)
	if conf.WSPort != "" {
		go func() {
			log.Info("Starting WebSocket server", "port", conf.WSPort)
			wsServer := websocket.New(logger, router)
			if wsErr := wsServer.Start(ctx, net.JoinHostPort(conf.Host, conf.WSPort)); wsErr != nil {
				log.Error("WebSocket server error", "error", wsErr)
				wsErrCh <- wsErr
			}
		}()
	}

	select {
	case err := <-tcpErrCh:
		return fmt.Errorf("TCP server error: %w", err)
	case err := <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err := <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
