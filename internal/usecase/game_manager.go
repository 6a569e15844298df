// Package usecase wires the domain pieces together. GameManager is what the
// transport layer talks to: it owns the join/move/chat/leave flows and keeps
// every result free of live session state, so callers can serialize and send
// without holding any lock.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/matchmaker"
	"github.com/rocketscienceinc/tictactoe-arena/internal/registry"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/session"
)

type GameManager struct {
	logger     *slog.Logger
	registry   *registry.Registry
	matchmaker *matchmaker.Matchmaker
	arena      *session.Arena
	statsRepo  repository.StatsRepository
}

func NewGameManager(
	logger *slog.Logger,
	reg *registry.Registry,
	mm *matchmaker.Matchmaker,
	arena *session.Arena,
	statsRepo repository.StatsRepository,
) *GameManager {
	return &GameManager{
		logger: logger.With("component", "game_manager"),

		registry:   reg,
		matchmaker: mm,
		arena:      arena,
		statsRepo:  statsRepo,
	}
}

// JoinResult reports the outcome of a join. Game is nil while the player is
// parked in the waiting slot; once set, both participants are in it and the
// caller notifies each side.
type JoinResult struct {
	Player *entity.Player
	Game   *entity.Game
}

func (that *JoinResult) Paired() bool {
	return that.Game != nil
}

// DepartureResult reports what a quit or disconnect actually did. Opponent
// is the survivor to notify and is set only when this call performed the
// teardown, so duplicate detections never notify anyone twice.
type DepartureResult struct {
	Game       *entity.Game
	Opponent   *entity.Player
	WasWaiting bool
}

// RematchResult carries the state after a rematch vote. Started is true
// only when this vote was the second one and the board has been reset.
type RematchResult struct {
	Game    *entity.Game
	Started bool
}

// Join registers a new player identity and runs it through the matchmaker.
// The first joiner waits; the second one gets paired into a fresh session
// with the waiting player as X.
func (that *GameManager) Join(_ context.Context, username, avatar string) (*JoinResult, error) {
	player := that.registry.Register(username, avatar)

	return that.pairOrPark(player), nil
}

// Rejoin puts an already registered player back into matchmaking, keeping
// its identity. A player still waiting or still in a session is rejected;
// the waiting slot is never disturbed by a duplicate join.
func (that *GameManager) Rejoin(_ context.Context, playerID string) (*JoinResult, error) {
	player, err := that.registry.Get(playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	if waiting := that.matchmaker.Waiting(); waiting != nil && waiting.ID == playerID {
		return nil, fmt.Errorf("player %s is waiting already: %w", playerID, apperror.ErrAlreadyInGame)
	}

	if _, err = that.arena.SessionFor(playerID); err == nil {
		return nil, fmt.Errorf("player %s has a running game: %w", playerID, apperror.ErrAlreadyInGame)
	}

	return that.pairOrPark(player), nil
}

// pairOrPark is the shared matchmaking tail: either the player ends up in
// the waiting slot or a new session is opened with whoever was there.
func (that *GameManager) pairOrPark(player *entity.Player) *JoinResult {
	opponent, paired := that.matchmaker.TryPair(player)
	if !paired {
		that.logger.Info("player waiting for opponent", "player_id", player.ID, "username", player.Username)

		return &JoinResult{Player: player.Clone()}
	}

	s := session.New(uuid.NewString(), opponent, player)
	that.arena.Add(s)

	that.logger.Info("players paired",
		"game_id", s.ID(),
		"player_x", opponent.ID,
		"player_o", player.ID,
	)

	return &JoinResult{Player: player.Clone(), Game: s.Snapshot()}
}

// MakeMove applies one move to the session with the given id and returns
// the resulting snapshot. Terminal outcomes are recorded to the stats store
// before the snapshot is handed back.
func (that *GameManager) MakeMove(ctx context.Context, playerID, gameID string, row, col int) (*entity.Game, error) {
	s, err := that.arena.Get(gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	game, err := s.SubmitMove(playerID, row, col)
	if err != nil {
		return nil, fmt.Errorf("failed to submit move: %w", err)
	}

	if game.IsTerminal() {
		that.logger.Info("game finished", "game_id", gameID, "status", game.Status, "winner", game.Winner)
		that.recordResult(ctx, game)
	}

	return game, nil
}

// Chat validates that the sender may talk in the given session and returns
// a snapshot naming both recipients.
func (that *GameManager) Chat(_ context.Context, playerID, gameID string) (*entity.Game, error) {
	s, err := that.arena.Get(gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	game, err := s.Chat(playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to chat: %w", err)
	}

	return game, nil
}

// Leave handles an explicit quit for the given session.
func (that *GameManager) Leave(ctx context.Context, playerID, gameID string) (*DepartureResult, error) {
	s, err := that.arena.Get(gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	return that.terminate(ctx, s, playerID, "quit")
}

// Disconnect handles a vanished connection: the player is pulled out of the
// waiting slot or its session is torn down, and the identity is forgotten.
// It never fails; there is nobody left to report an error to.
func (that *GameManager) Disconnect(ctx context.Context, playerID string) *DepartureResult {
	defer that.registry.Unregister(playerID)

	if that.matchmaker.Withdraw(playerID) {
		that.logger.Info("waiting player disconnected", "player_id", playerID)

		return &DepartureResult{WasWaiting: true}
	}

	s, err := that.arena.SessionFor(playerID)
	if err != nil {
		return &DepartureResult{}
	}

	result, err := that.terminate(ctx, s, playerID, "disconnect")
	if err != nil {
		return &DepartureResult{}
	}

	return result
}

// RematchVote records a "play again" vote for a finished session. When the
// second vote lands the same pair starts over with swapped marks.
func (that *GameManager) RematchVote(_ context.Context, playerID, gameID string) (*RematchResult, error) {
	s, err := that.arena.Get(gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	game, started, err := s.VoteRematch(playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to vote rematch: %w", err)
	}

	if started {
		that.logger.Info("rematch started", "game_id", gameID)
	}

	return &RematchResult{Game: game, Started: started}, nil
}

// Waiting exposes the matchmaking slot for the stats surface.
func (that *GameManager) Waiting() *entity.Player {
	return that.matchmaker.Waiting()
}

// LiveSessions reports how many games are currently in the arena.
func (that *GameManager) LiveSessions() int {
	return that.arena.Len()
}

// OnlinePlayers reports how many players are currently registered.
func (that *GameManager) OnlinePlayers() int {
	return that.registry.Count()
}

// terminate is the single teardown path shared by quit and disconnect. Only
// the call that actually closed the session removes it from the arena and
// names the survivor; late duplicates come back empty-handed.
func (that *GameManager) terminate(ctx context.Context, s *session.Session, playerID, reason string) (*DepartureResult, error) {
	if s.Snapshot().PlayerByID(playerID) == nil {
		return nil, fmt.Errorf("failed to leave game %s: %w", s.ID(), apperror.ErrNotParticipant)
	}

	result := s.Terminate(playerID)
	if !result.Done {
		return &DepartureResult{Game: result.Game}, nil
	}

	that.arena.Remove(s.ID())

	if result.Game.IsAbandoned() {
		that.recordResult(ctx, result.Game)
	}

	that.logger.Info("session terminated",
		"game_id", s.ID(),
		"player_id", playerID,
		"reason", reason,
		"status", result.Game.Status,
	)

	return &DepartureResult{
		Game:     result.Game,
		Opponent: result.Game.Opponent(playerID),
	}, nil
}

// recordResult writes a terminal outcome to the stats store. Best effort:
// a failing stats backend must never break the game flow.
func (that *GameManager) recordResult(ctx context.Context, game *entity.Game) {
	result := &repository.GameResult{
		GameID:     game.ID,
		Status:     game.Status,
		FinishedAt: time.Now().UTC(),
	}

	if winner := game.PlayerByMark(game.Winner); winner != nil {
		result.Winner = winner.Username
	}

	for i, player := range game.Players {
		if player != nil {
			result.Players[i] = player.Username
		}
	}

	if err := that.statsRepo.RecordResult(ctx, result); err != nil {
		that.logger.Error("failed to record game result", "game_id", game.ID, "error", err)
	}
}
