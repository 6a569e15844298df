// Package websocket serves the same game protocol as the TCP listener to
// browser clients, one JSON envelope per text message.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-arena/transport/protocol"
)

type router interface {
	Dispatch(ctx context.Context, conn protocol.Conn, raw []byte) error
	Disconnected(ctx context.Context, conn protocol.Conn)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type Server struct {
	logger *slog.Logger
	router router
}

func New(logger *slog.Logger, router router) *Server {
	return &Server{
		logger: logger.With("component", "websocket_server"),
		router: router,
	}
}

// Start serves websocket upgrades on /ws until ctx is canceled.
func (that *Server) Start(ctx context.Context, addr string) error {
	log := that.logger.With("method", "Start")

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(writer http.ResponseWriter, req *http.Request) {
		that.serveConn(ctx, writer, req)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("websocket server started", "addr", addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// serveConn upgrades the request and pumps its messages into the router.
func (that *Server) serveConn(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveConn", "remote_addr", req.RemoteAddr)

	wsConn, err := upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	conn := newConn(wsConn)
	defer func() {
		that.router.Disconnected(ctx, conn)

		_ = conn.Close()

		log.Info("client disconnected")
	}()

	log.Info("client connected")

	for {
		msgType, raw, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info("client read failed", "error", err)
			}

			return
		}

		if msgType != websocket.TextMessage {
			continue
		}

		if err = that.router.Dispatch(ctx, conn, raw); err != nil {
			log.Error("failed to handle message", "error", err)
			return
		}
	}
}
