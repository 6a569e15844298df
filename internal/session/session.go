// Package session owns the runtime state of one paired game: the board,
// whose turn it is, and the two participants. Every mutation runs under the
// session's own mutex, so concurrent requests from both connection handlers
// are serialized per game while unrelated games proceed in parallel. All
// methods hand back deep snapshots; callers broadcast from those after the
// lock is released, never while holding it.
package session

import (
	"sync"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

type Session struct {
	id string

	mu     sync.Mutex
	game   *entity.Game
	closed bool
	votes  map[string]bool
}

// New pairs two players into a session. The first player opens as X.
func New(id string, playerX, playerO *entity.Player) *Session {
	return &Session{
		id:    id,
		game:  entity.NewGame(id, playerX, playerO),
		votes: make(map[string]bool),
	}
}

func (that *Session) ID() string {
	return that.id
}

// Snapshot returns a deep copy of the game state.
func (that *Session) Snapshot() *entity.Game {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.game.Clone()
}

// SubmitMove validates and applies one move. Rejections follow the protocol
// order: turn and status first, then bounds, then occupancy. Concurrent
// submissions resolve by lock-acquisition order: whoever enters first is
// judged against the current turn, the later one against the flipped turn.
func (that *Session) SubmitMove(playerID string, row, col int) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return nil, apperror.ErrGameNotFound
	}

	player := that.game.PlayerByID(playerID)
	if player == nil {
		return nil, apperror.ErrNotParticipant
	}

	if !that.game.IsInProgress() || that.game.Turn != player.Mark {
		return nil, apperror.ErrNotYourTurn
	}

	if !tictactoe.ValidPosition(row, col) {
		return nil, apperror.ErrOutOfBounds
	}

	if that.game.Board[row][col] != entity.EmptyCell {
		return nil, apperror.ErrCellOccupied
	}

	that.game.Board[row][col] = player.Mark

	switch winner, draw := tictactoe.Evaluate(that.game.Board); {
	case winner != entity.EmptyCell:
		that.game.Status = entity.StatusWon
		that.game.Winner = winner
		that.game.Turn = ""
	case draw:
		that.game.Status = entity.StatusDraw
		that.game.Turn = ""
	default:
		if player.Mark == entity.PlayerX {
			that.game.Turn = entity.PlayerO
		} else {
			that.game.Turn = entity.PlayerX
		}
	}

	return that.game.Clone(), nil
}

// Chat checks that the sender may talk in this session. Chat carries no
// turn or status restrictions: it is allowed the whole time the session is
// alive, including while a finished pair decides on a rematch.
func (that *Session) Chat(playerID string) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return nil, apperror.ErrGameNotFound
	}

	if that.game.PlayerByID(playerID) == nil {
		return nil, apperror.ErrNotParticipant
	}

	return that.game.Clone(), nil
}

// TerminateResult reports the outcome of a departure. Done is true only for
// the single call that performed the teardown; concurrent duplicate
// detections of the same departure see Done=false and must not notify
// anyone again.
type TerminateResult struct {
	Game *entity.Game
	Done bool
}

// Terminate closes the session because the given participant quit or
// dropped its connection. The status moves to abandoned unless the game
// already reached a terminal state; either way the session accepts nothing
// afterwards.
func (that *Session) Terminate(playerID string) TerminateResult {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed || that.game.PlayerByID(playerID) == nil {
		return TerminateResult{Game: that.game.Clone()}
	}

	that.closed = true

	if !that.game.IsTerminal() {
		that.game.Status = entity.StatusAbandoned
		that.game.Turn = ""
	}

	return TerminateResult{Game: that.game.Clone(), Done: true}
}

// VoteRematch records that a participant wants to play again. Once both
// have voted the board resets in place with swapped marks and the second
// return value is true. A vote on a running game is an error; a vote on a
// closed session reports the session as gone.
func (that *Session) VoteRematch(playerID string) (*entity.Game, bool, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return nil, false, apperror.ErrGameNotFound
	}

	if that.game.PlayerByID(playerID) == nil {
		return nil, false, apperror.ErrNotParticipant
	}

	if that.game.IsInProgress() {
		return nil, false, apperror.ErrGameNotFinished
	}

	that.votes[playerID] = true

	if len(that.votes) < 2 {
		return that.game.Clone(), false, nil
	}

	that.votes = make(map[string]bool)
	that.game.Reset()

	return that.game.Clone(), true, nil
}
