// Package tcp serves the game protocol over plain TCP connections with
// newline delimited JSON messages.
package tcp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/rocketscienceinc/tictactoe-arena/transport/protocol"
)

type router interface {
	Dispatch(ctx context.Context, conn protocol.Conn, raw []byte) error
	Disconnected(ctx context.Context, conn protocol.Conn)
	SendError(conn protocol.Conn, code, message string)
}

type Server struct {
	logger *slog.Logger
	router router

	maxClients int

	mu       sync.Mutex
	clients  int
	listener net.Listener
}

func New(logger *slog.Logger, router router, maxClients int) *Server {
	return &Server{
		logger:     logger.With("component", "tcp_server"),
		router:     router,
		maxClients: maxClients,
	}
}

// Start accepts client connections on addr until ctx is canceled.
func (that *Server) Start(ctx context.Context, addr string) error {
	log := that.logger.With("method", "Start")

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	that.mu.Lock()
	that.listener = listener
	that.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	log.Info("tcp server started", "addr", listener.Addr().String())

	for {
		netConn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("failed to accept connection: %w", err)
		}

		if !that.tryAcquireSlot() {
			that.reject(netConn)
			continue
		}

		go that.serveConn(ctx, netConn)
	}
}

// Clients reports how many connections are currently being served.
func (that *Server) Clients() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.clients
}

// Addr returns the address the server is listening on, or nil before Start
// has bound it. Useful when starting on port 0.
func (that *Server) Addr() net.Addr {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.listener == nil {
		return nil
	}

	return that.listener.Addr()
}

func (that *Server) tryAcquireSlot() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.maxClients > 0 && that.clients >= that.maxClients {
		return false
	}

	that.clients++

	return true
}

func (that *Server) releaseSlot() {
	that.mu.Lock()
	that.clients--
	that.mu.Unlock()
}

// reject tells an over-capacity client why it is being dropped and closes it.
func (that *Server) reject(netConn net.Conn) {
	log := that.logger.With("method", "reject")

	conn := newConn(netConn)
	that.router.SendError(conn, protocol.CodeServerFull, "Server is full. Try again later.")

	if err := conn.Close(); err != nil {
		log.Error("failed to close rejected connection", "error", err)
	}

	log.Warn("connection rejected, server is full", "remote_addr", netConn.RemoteAddr().String())
}

func (that *Server) serveConn(ctx context.Context, netConn net.Conn) {
	log := that.logger.With("method", "serveConn", "remote_addr", netConn.RemoteAddr().String())

	conn := newConn(netConn)
	defer func() {
		that.router.Disconnected(ctx, conn)

		_ = conn.Close()
		that.releaseSlot()

		log.Info("client disconnected")
	}()

	log.Info("client connected")

	scanner := bufio.NewScanner(netConn)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		// A handler error means we failed to write back to this client,
		// so the connection is no good anymore.
		if err := that.router.Dispatch(ctx, conn, line); err != nil {
			log.Error("failed to handle message", "error", err)
			return
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Info("client read failed", "error", err)
	}
}
