package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()

	playerX := &entity.Player{ID: "player-x", Username: "Alice"}
	playerO := &entity.Player{ID: "player-o", Username: "Bob"}

	return New("game-1", playerX, playerO)
}

func TestSession_SubmitMove(t *testing.T) {
	t.Run("AppliesMoveAndFlipsTurn", func(t *testing.T) {
		// Given: a fresh session where X opens.
		s := newTestSession(t)

		// When: X plays the center.
		game, err := s.SubmitMove("player-x", 1, 1)

		// Then: the mark lands and the turn passes to O.
		require.NoError(t, err)
		assert.Equal(t, entity.PlayerX, game.Board[1][1])
		assert.Equal(t, entity.PlayerO, game.Turn)
		assert.Equal(t, entity.StatusInProgress, game.Status)
	})

	t.Run("RejectsOutOfTurn", func(t *testing.T) {
		// Given: a fresh session, X to move.
		s := newTestSession(t)

		// When: O tries to move first.
		_, err := s.SubmitMove("player-o", 0, 0)

		// Then: the move is rejected as out of turn.
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})

	t.Run("TurnCheckedBeforeBounds", func(t *testing.T) {
		// Given: a fresh session, X to move.
		s := newTestSession(t)

		// When: O sends a move that is also out of bounds.
		_, err := s.SubmitMove("player-o", 7, 7)

		// Then: the out-of-turn rejection wins.
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})

	t.Run("RejectsOutOfBounds", func(t *testing.T) {
		s := newTestSession(t)

		_, err := s.SubmitMove("player-x", 3, 0)
		require.ErrorIs(t, err, apperror.ErrOutOfBounds)

		_, err = s.SubmitMove("player-x", 0, -1)
		require.ErrorIs(t, err, apperror.ErrOutOfBounds)
	})

	t.Run("RejectsOccupiedCell", func(t *testing.T) {
		// Given: X already took the corner.
		s := newTestSession(t)
		_, err := s.SubmitMove("player-x", 0, 0)
		require.NoError(t, err)

		// When: O aims at the same cell.
		_, err = s.SubmitMove("player-o", 0, 0)

		// Then: the cell is reported occupied and the board is unchanged.
		require.ErrorIs(t, err, apperror.ErrCellOccupied)
		assert.Equal(t, entity.PlayerX, s.Snapshot().Board[0][0])
	})

	t.Run("RejectsStranger", func(t *testing.T) {
		s := newTestSession(t)

		_, err := s.SubmitMove("intruder", 0, 0)
		require.ErrorIs(t, err, apperror.ErrNotParticipant)
	})

	t.Run("DetectsWin", func(t *testing.T) {
		// Given: X is one move away from the top row.
		s := newTestSession(t)
		moves := []struct {
			player   string
			row, col int
		}{
			{"player-x", 0, 0},
			{"player-o", 1, 0},
			{"player-x", 0, 1},
			{"player-o", 1, 1},
		}
		for _, m := range moves {
			_, err := s.SubmitMove(m.player, m.row, m.col)
			require.NoError(t, err)
		}

		// When: X completes the row.
		game, err := s.SubmitMove("player-x", 0, 2)

		// Then: the game is won by X and nobody is on turn.
		require.NoError(t, err)
		assert.Equal(t, entity.StatusWon, game.Status)
		assert.Equal(t, entity.PlayerX, game.Winner)
		assert.Empty(t, game.Turn)
	})

	t.Run("DetectsDraw", func(t *testing.T) {
		// Given: a sequence that fills the board without a line.
		s := newTestSession(t)
		moves := []struct {
			player   string
			row, col int
		}{
			{"player-x", 0, 0},
			{"player-o", 1, 1},
			{"player-x", 2, 2},
			{"player-o", 0, 1},
			{"player-x", 2, 1},
			{"player-o", 2, 0},
			{"player-x", 0, 2},
			{"player-o", 1, 2},
		}
		for _, m := range moves {
			_, err := s.SubmitMove(m.player, m.row, m.col)
			require.NoError(t, err)
		}

		// When: X fills the last cell.
		game, err := s.SubmitMove("player-x", 1, 0)

		// Then: the game ends in a draw.
		require.NoError(t, err)
		assert.Equal(t, entity.StatusDraw, game.Status)
		assert.Empty(t, game.Winner)
		assert.Empty(t, game.Turn)
	})

	t.Run("RejectsMoveAfterGameOver", func(t *testing.T) {
		// Given: a finished game.
		s := newTestSession(t)
		winInThree(t, s)

		// When: the loser tries to keep playing.
		_, err := s.SubmitMove("player-o", 2, 2)

		// Then: the move is rejected.
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})

	t.Run("ConcurrentMovesOneWins", func(t *testing.T) {
		// Given: a fresh session and two racing submissions by X.
		s := newTestSession(t)

		var wg sync.WaitGroup
		errs := make([]error, 2)

		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = s.SubmitMove("player-x", 0, 0)
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = s.SubmitMove("player-x", 1, 1)
		}()
		wg.Wait()

		// Then: exactly one move landed, the other was out of turn.
		var applied, rejected int
		for _, err := range errs {
			if err == nil {
				applied++
				continue
			}
			require.ErrorIs(t, err, apperror.ErrNotYourTurn)
			rejected++
		}
		assert.Equal(t, 1, applied)
		assert.Equal(t, 1, rejected)
	})
}

func TestSession_Chat(t *testing.T) {
	t.Run("AllowsParticipantAnytime", func(t *testing.T) {
		// Given: a finished game.
		s := newTestSession(t)
		winInThree(t, s)

		// When: the loser says gg.
		game, err := s.Chat("player-o")

		// Then: chat is allowed even after the game ended.
		require.NoError(t, err)
		assert.Equal(t, entity.StatusWon, game.Status)
	})

	t.Run("RejectsStranger", func(t *testing.T) {
		s := newTestSession(t)

		_, err := s.Chat("intruder")
		require.ErrorIs(t, err, apperror.ErrNotParticipant)
	})
}

func TestSession_Terminate(t *testing.T) {
	t.Run("AbandonsRunningGame", func(t *testing.T) {
		// Given: a game in progress.
		s := newTestSession(t)

		// When: O leaves.
		result := s.Terminate("player-o")

		// Then: the session is torn down by this call.
		require.True(t, result.Done)
		assert.Equal(t, entity.StatusAbandoned, result.Game.Status)
		assert.Empty(t, result.Game.Turn)
	})

	t.Run("KeepsTerminalStatus", func(t *testing.T) {
		// Given: a game X already won.
		s := newTestSession(t)
		winInThree(t, s)

		// When: O leaves instead of rematching.
		result := s.Terminate("player-o")

		// Then: the result on record stays a win, not an abandonment.
		require.True(t, result.Done)
		assert.Equal(t, entity.StatusWon, result.Game.Status)
		assert.Equal(t, entity.PlayerX, result.Game.Winner)
	})

	t.Run("SecondTerminateIsNoop", func(t *testing.T) {
		// Given: a session already torn down.
		s := newTestSession(t)
		require.True(t, s.Terminate("player-o").Done)

		// When: the same departure is detected again.
		result := s.Terminate("player-o")

		// Then: nothing happens twice.
		assert.False(t, result.Done)
	})

	t.Run("ConcurrentTerminateRunsOnce", func(t *testing.T) {
		// Given: both read loops detect the drop at the same time.
		s := newTestSession(t)

		var wg sync.WaitGroup
		results := make([]TerminateResult, 2)

		wg.Add(2)
		for i := 0; i < 2; i++ {
			go func(i int) {
				defer wg.Done()
				results[i] = s.Terminate("player-x")
			}(i)
		}
		wg.Wait()

		// Then: exactly one call performed the teardown.
		var done int
		for _, result := range results {
			if result.Done {
				done++
			}
		}
		assert.Equal(t, 1, done)
	})

	t.Run("RejectsMoveAfterTeardown", func(t *testing.T) {
		s := newTestSession(t)
		s.Terminate("player-o")

		_, err := s.SubmitMove("player-x", 0, 0)
		require.ErrorIs(t, err, apperror.ErrGameNotFound)
	})
}

func TestSession_VoteRematch(t *testing.T) {
	t.Run("RejectsVoteOnRunningGame", func(t *testing.T) {
		s := newTestSession(t)

		_, _, err := s.VoteRematch("player-x")
		require.ErrorIs(t, err, apperror.ErrGameNotFinished)
	})

	t.Run("FirstVoteWaits", func(t *testing.T) {
		// Given: a finished game.
		s := newTestSession(t)
		winInThree(t, s)

		// When: only one player wants a rematch.
		game, started, err := s.VoteRematch("player-x")

		// Then: the game does not restart yet.
		require.NoError(t, err)
		assert.False(t, started)
		assert.Equal(t, entity.StatusWon, game.Status)
	})

	t.Run("SecondVoteRestartsWithSwappedMarks", func(t *testing.T) {
		// Given: a finished game and one standing vote.
		s := newTestSession(t)
		winInThree(t, s)
		_, _, err := s.VoteRematch("player-x")
		require.NoError(t, err)

		// When: the second player votes too.
		game, started, err := s.VoteRematch("player-o")

		// Then: a fresh round starts and the previous O opens as X.
		require.NoError(t, err)
		require.True(t, started)
		assert.Equal(t, entity.StatusInProgress, game.Status)
		assert.Equal(t, entity.PlayerX, game.Turn)
		assert.True(t, game.Board.IsEmpty())
		assert.Equal(t, "player-o", game.Players[0].ID)
		assert.Equal(t, entity.PlayerX, game.Players[0].Mark)
		assert.Equal(t, "player-x", game.Players[1].ID)
		assert.Equal(t, entity.PlayerO, game.Players[1].Mark)
	})

	t.Run("DuplicateVoteDoesNotStart", func(t *testing.T) {
		// Given: a finished game.
		s := newTestSession(t)
		winInThree(t, s)

		// When: the same player votes twice.
		_, started, err := s.VoteRematch("player-x")
		require.NoError(t, err)
		require.False(t, started)

		_, started, err = s.VoteRematch("player-x")

		// Then: one enthusiast is not enough.
		require.NoError(t, err)
		assert.False(t, started)
	})

	t.Run("RejectsVoteAfterTeardown", func(t *testing.T) {
		s := newTestSession(t)
		winInThree(t, s)
		s.Terminate("player-o")

		_, _, err := s.VoteRematch("player-x")
		require.ErrorIs(t, err, apperror.ErrGameNotFound)
	})
}

// winInThree plays the fastest win for X: top row against a sleepy O.
func winInThree(t *testing.T, s *Session) {
	t.Helper()

	moves := []struct {
		player   string
		row, col int
	}{
		{"player-x", 0, 0},
		{"player-o", 1, 0},
		{"player-x", 0, 1},
		{"player-o", 1, 1},
		{"player-x", 0, 2},
	}
	for _, m := range moves {
		_, err := s.SubmitMove(m.player, m.row, m.col)
		require.NoError(t, err)
	}
}
