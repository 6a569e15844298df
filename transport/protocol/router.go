// Package protocol implements the game wire protocol independently of the
// transport carrying it. The TCP and WebSocket listeners both feed complete
// JSON lines or frames into the Router, which dispatches them to handlers
// and fans replies out through the connection registry.
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
)

// Conn is one client connection as the router sees it. Implementations
// must serialize their own writes and must be comparable, since the router
// keys its registry by connection.
type Conn interface {
	WriteMessage(msg *Message) error
	RemoteAddr() string
	Close() error
}

type gameManager interface {
	Join(ctx context.Context, username, avatar string) (*usecase.JoinResult, error)
	Rejoin(ctx context.Context, playerID string) (*usecase.JoinResult, error)
	MakeMove(ctx context.Context, playerID, gameID string, row, col int) (*entity.Game, error)
	Chat(ctx context.Context, playerID, gameID string) (*entity.Game, error)
	Leave(ctx context.Context, playerID, gameID string) (*usecase.DepartureResult, error)
	Disconnect(ctx context.Context, playerID string) *usecase.DepartureResult
	RematchVote(ctx context.Context, playerID, gameID string) (*usecase.RematchResult, error)
}

type Router struct {
	logger *slog.Logger
	game   gameManager

	handlers map[string]func(ctx context.Context, conn Conn, msg *Message) error

	mu      sync.RWMutex
	conns   map[string]Conn
	players map[Conn]string
}

func NewRouter(logger *slog.Logger, game gameManager) *Router {
	router := &Router{
		logger: logger.With("component", "protocol_router"),
		game:   game,

		handlers: make(map[string]func(context.Context, Conn, *Message) error),
		conns:    make(map[string]Conn),
		players:  make(map[Conn]string),
	}

	router.handlers[TypeJoin] = router.handleJoin
	router.handlers[TypeMove] = router.handleMove
	router.handlers[TypeChat] = router.handleChat
	router.handlers[TypeQuit] = router.handleQuit
	router.handlers[TypeNewGameResponse] = router.handleNewGameResponse

	return router
}

// Dispatch routes one complete message from a connection. Malformed input
// and unknown types are answered on the spot; the connection always stays
// open. The returned error reports a handler failure worth logging, never
// a client mistake.
func (that *Router) Dispatch(ctx context.Context, conn Conn, raw []byte) error {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		that.SendError(conn, CodeInvalidJSON, "Invalid JSON format.")
		return nil
	}

	handler, ok := that.handlers[msg.Type]
	if !ok {
		that.SendError(conn, CodeUnknownType, "Unknown message type.")
		return nil
	}

	return handler(ctx, conn, &msg)
}

// Disconnected is called by the transport when a connection's read loop
// ends for any reason. The binding is released first, so a second
// detection of the same connection finds nothing to do.
func (that *Router) Disconnected(ctx context.Context, conn Conn) {
	log := that.logger.With("method", "Disconnected")

	playerID := that.unbind(conn)
	if playerID == "" {
		return
	}

	result := that.game.Disconnect(ctx, playerID)

	if result.Opponent != nil {
		username := ""
		if player := result.Game.PlayerByID(playerID); player != nil {
			username = player.Username
		}

		that.sendToPlayer(result.Opponent.ID, TypeOpponentLeft, OpponentLeft{
			Username: username,
			Message:  fmt.Sprintf("%s has left the game.", username),
		})
	}

	log.Info("player disconnected", "player_id", playerID, "remote_addr", conn.RemoteAddr())
}

// SendError answers a connection with an error payload, best effort.
func (that *Router) SendError(conn Conn, code, message string) {
	if err := that.send(conn, TypeError, ErrorPayload{Code: code, Message: message}); err != nil {
		that.logger.Error("failed to send error response", "code", code, "error", err)
	}
}

func (that *Router) send(conn Conn, msgType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	if err = conn.WriteMessage(&Message{Type: msgType, Data: data}); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// sendToPlayer delivers a payload to a player's connection if it is still
// there. A missing or failing connection is logged and skipped; it is never
// a fault for whoever triggered the delivery.
func (that *Router) sendToPlayer(playerID, msgType string, payload any) {
	that.mu.RLock()
	conn, ok := that.conns[playerID]
	that.mu.RUnlock()

	if !ok {
		that.logger.Warn("connection not found for player", "player_id", playerID, "type", msgType)
		return
	}

	if err := that.send(conn, msgType, payload); err != nil {
		that.logger.Error("failed to send to player", "player_id", playerID, "type", msgType, "error", err)
	}
}

func (that *Router) bind(conn Conn, playerID string) {
	that.mu.Lock()
	that.conns[playerID] = conn
	that.players[conn] = playerID
	that.mu.Unlock()
}

func (that *Router) playerOf(conn Conn) (string, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	playerID, ok := that.players[conn]

	return playerID, ok
}

// unbind releases both directions of the binding and returns the player id
// that was bound, if any.
func (that *Router) unbind(conn Conn) string {
	that.mu.Lock()
	defer that.mu.Unlock()

	playerID, ok := that.players[conn]
	if !ok {
		return ""
	}

	delete(that.players, conn)
	delete(that.conns, playerID)

	return playerID
}
