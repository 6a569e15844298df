package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
)

func (that *Router) handleJoin(ctx context.Context, conn Conn, msg *Message) error {
	log := that.logger.With("method", "handleJoin")

	var req JoinRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			that.SendError(conn, CodeInvalidJSON, "Invalid JSON format.")
			return nil
		}
	}

	var (
		result *usecase.JoinResult
		err    error
	)

	// A connection that already holds an identity re-enters matchmaking
	// with it; a fresh one registers a new player.
	if playerID, bound := that.playerOf(conn); bound {
		result, err = that.game.Rejoin(ctx, playerID)
	} else {
		result, err = that.game.Join(ctx, req.Username, req.Avatar)
	}

	if errors.Is(err, apperror.ErrAlreadyInGame) {
		that.SendError(conn, CodeAlreadyJoined, "Already joined a game.")
		return nil
	}

	if err != nil {
		log.Error("failed to join", "error", err)
		that.SendError(conn, CodeInternalError, "Failed to join.")
		return nil
	}

	that.bind(conn, result.Player.ID)

	if !result.Paired() {
		if err = that.send(conn, TypeJoinAck, JoinAck{
			Status:  StatusWaiting,
			Message: "Waiting for an opponent...",
		}); err != nil {
			return fmt.Errorf("failed to send waiting ack: %w", err)
		}

		log.Info("player waiting", "player_id", result.Player.ID, "username", result.Player.Username)

		return nil
	}

	for _, player := range result.Game.Players {
		that.sendToPlayer(player.ID, TypeJoinAck, JoinAck{
			Status:       StatusSuccess,
			GameID:       result.Game.ID,
			PlayerSymbol: player.Mark,
		})
	}

	log.Info("players paired", "game_id", result.Game.ID)

	return nil
}

func (that *Router) handleMove(ctx context.Context, conn Conn, msg *Message) error {
	log := that.logger.With("method", "handleMove")

	playerID, ok := that.playerOf(conn)
	if !ok {
		that.SendError(conn, CodeNotJoined, "Join a game first.")
		return nil
	}

	var req MoveRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			that.SendError(conn, CodeInvalidJSON, "Invalid JSON format.")
			return nil
		}
	}

	if req.GameID == "" || len(req.Position) == 0 {
		that.SendError(conn, CodeMissingData, "Game ID and position are required.")
		return nil
	}

	if len(req.Position) != 2 {
		that.SendError(conn, CodeMissingData, "Position must be [row, col].")
		return nil
	}

	game, err := that.game.MakeMove(ctx, playerID, req.GameID, req.Position[0], req.Position[1])

	switch {
	case errors.Is(err, apperror.ErrGameNotFound), errors.Is(err, apperror.ErrNotParticipant):
		that.SendError(conn, CodeInvalidGame, "Game not found.")
		return nil
	case errors.Is(err, apperror.ErrNotYourTurn):
		return that.send(conn, TypeMoveAck, MoveReject{
			Status:  StatusFailure,
			Code:    CodeNotYourTurn,
			Message: "It's not your turn.",
		})
	case errors.Is(err, apperror.ErrOutOfBounds):
		return that.send(conn, TypeMoveAck, MoveReject{
			Status:  StatusFailure,
			Code:    CodeInvalidMove,
			Message: "Position is out of bounds.",
		})
	case errors.Is(err, apperror.ErrCellOccupied):
		return that.send(conn, TypeMoveAck, MoveReject{
			Status:  StatusFailure,
			Code:    CodeInvalidMove,
			Message: "Cell is already occupied.",
		})
	case err != nil:
		log.Error("failed to make move", "error", err)
		that.SendError(conn, CodeInternalError, "Failed to make move.")
		return nil
	}

	ack := MoveAck{
		Status:     StatusSuccess,
		GameState:  game.Board,
		NextPlayer: nextPlayerName(game),
		Winner:     winnerLabel(game),
	}
	for _, player := range game.Players {
		that.sendToPlayer(player.ID, TypeMoveAck, ack)
	}

	if game.IsTerminal() {
		over := GameOver{GameID: game.ID}
		if label := winnerLabel(game); label != nil {
			over.Winner = *label
		}

		for _, player := range game.Players {
			that.sendToPlayer(player.ID, TypeGameOver, over)
		}
	}

	log.Info("move applied", "game_id", game.ID, "player_id", playerID)

	return nil
}

func (that *Router) handleChat(ctx context.Context, conn Conn, msg *Message) error {
	log := that.logger.With("method", "handleChat")

	playerID, ok := that.playerOf(conn)
	if !ok {
		that.SendError(conn, CodeNotJoined, "Join a game first.")
		return nil
	}

	var req ChatRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			that.SendError(conn, CodeInvalidJSON, "Invalid JSON format.")
			return nil
		}
	}

	if req.GameID == "" || req.Message == "" {
		that.SendError(conn, CodeMissingData, "Game ID and message are required.")
		return nil
	}

	game, err := that.game.Chat(ctx, playerID, req.GameID)

	switch {
	case errors.Is(err, apperror.ErrGameNotFound), errors.Is(err, apperror.ErrNotParticipant):
		that.SendError(conn, CodeInvalidGame, "Game not found.")
		return nil
	case err != nil:
		log.Error("failed to chat", "error", err)
		that.SendError(conn, CodeInternalError, "Failed to send chat message.")
		return nil
	}

	username := ""
	if sender := game.PlayerByID(playerID); sender != nil {
		username = sender.Username
	}

	broadcast := ChatBroadcast{Username: username, Message: req.Message}
	for _, player := range game.Players {
		that.sendToPlayer(player.ID, TypeChatBroadcast, broadcast)
	}

	log.Info("chat relayed", "game_id", game.ID, "username", username)

	return nil
}

func (that *Router) handleQuit(ctx context.Context, conn Conn, msg *Message) error {
	log := that.logger.With("method", "handleQuit")

	playerID, ok := that.playerOf(conn)
	if !ok {
		that.SendError(conn, CodeNotJoined, "Join a game first.")
		return nil
	}

	var req QuitRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			that.SendError(conn, CodeInvalidJSON, "Invalid JSON format.")
			return nil
		}
	}

	if req.GameID == "" {
		that.SendError(conn, CodeMissingData, "Game ID is required.")
		return nil
	}

	return that.leave(ctx, conn, log, playerID, req.GameID)
}

func (that *Router) handleNewGameResponse(ctx context.Context, conn Conn, msg *Message) error {
	log := that.logger.With("method", "handleNewGameResponse")

	playerID, ok := that.playerOf(conn)
	if !ok {
		that.SendError(conn, CodeNotJoined, "Join a game first.")
		return nil
	}

	var req NewGameResponseRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			that.SendError(conn, CodeInvalidJSON, "Invalid JSON format.")
			return nil
		}
	}

	if req.GameID == "" || (req.Response != ResponseStart && req.Response != ResponseQuit) {
		that.SendError(conn, CodeMissingData, "Game ID and response are required.")
		return nil
	}

	// Declining a rematch is just a quit.
	if req.Response == ResponseQuit {
		return that.leave(ctx, conn, log, playerID, req.GameID)
	}

	result, err := that.game.RematchVote(ctx, playerID, req.GameID)

	switch {
	case errors.Is(err, apperror.ErrGameNotFound), errors.Is(err, apperror.ErrNotParticipant):
		that.SendError(conn, CodeInvalidGame, "Game not found.")
		return nil
	case errors.Is(err, apperror.ErrGameNotFinished):
		that.SendError(conn, CodeGameNotFinished, "Game is not finished yet.")
		return nil
	case err != nil:
		log.Error("failed to vote rematch", "error", err)
		that.SendError(conn, CodeInternalError, "Failed to start a new game.")
		return nil
	}

	// The first vote stays unanswered; the client keeps waiting for the
	// opponent's decision.
	if !result.Started {
		log.Info("rematch vote recorded", "game_id", req.GameID, "player_id", playerID)
		return nil
	}

	nextPlayer := ""
	if opener := result.Game.PlayerToMove(); opener != nil {
		nextPlayer = opener.Username
	}

	for _, player := range result.Game.Players {
		that.sendToPlayer(player.ID, TypeNewGame, NewGame{
			Status:       StatusSuccess,
			GameID:       result.Game.ID,
			GameState:    result.Game.Board,
			PlayerSymbol: player.Mark,
			NextPlayer:   nextPlayer,
		})
	}

	log.Info("rematch started", "game_id", result.Game.ID)

	return nil
}

// leave runs the shared quit flow: acknowledge the requester, then notify
// the survivor if this call was the one that tore the session down.
func (that *Router) leave(ctx context.Context, conn Conn, log *slog.Logger, playerID, gameID string) error {
	result, err := that.game.Leave(ctx, playerID, gameID)

	switch {
	case errors.Is(err, apperror.ErrGameNotFound), errors.Is(err, apperror.ErrNotParticipant):
		that.SendError(conn, CodeInvalidGame, "Game not found.")
		return nil
	case err != nil:
		log.Error("failed to leave game", "error", err)
		that.SendError(conn, CodeInternalError, "Failed to leave the game.")
		return nil
	}

	if err = that.send(conn, TypeQuitAck, QuitAck{
		Status:  StatusSuccess,
		Message: "You have left the game.",
	}); err != nil {
		return fmt.Errorf("failed to send quit ack: %w", err)
	}

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

	log.Info("player left game", "game_id", gameID, "player_id", playerID)

	return nil
}

// nextPlayerName returns the username on turn, or nil once the game is
// terminal so the field serializes as null.
func nextPlayerName(game *entity.Game) *string {
	if !game.IsInProgress() {
		return nil
	}

	player := game.PlayerToMove()
	if player == nil {
		return nil
	}

	return &player.Username
}

// winnerLabel maps the terminal state to the wire value: the winner's
// username, the literal "draw", or nil while the game is running.
func winnerLabel(game *entity.Game) *string {
	switch game.Status {
	case entity.StatusWon:
		if player := game.PlayerByMark(game.Winner); player != nil {
			return &player.Username
		}

		return nil
	case entity.StatusDraw:
		label := "draw"
		return &label
	default:
		return nil
	}
}
