package matchmaker

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

func TestMatchmaker_TryPair(t *testing.T) {
	t.Run("FirstPlayerWaits", func(t *testing.T) {
		// Given: an empty slot.
		m := New()

		// When: the first player joins.
		opponent, ok := m.TryPair(&entity.Player{ID: "player-1"})

		// Then: the player parks and waits.
		assert.False(t, ok)
		assert.Nil(t, opponent)
		require.NotNil(t, m.Waiting())
		assert.Equal(t, "player-1", m.Waiting().ID)
	})

	t.Run("SecondPlayerPairs", func(t *testing.T) {
		// Given: one player already waiting.
		m := New()
		m.TryPair(&entity.Player{ID: "player-1"})

		// When: a second player joins.
		opponent, ok := m.TryPair(&entity.Player{ID: "player-2"})

		// Then: the waiting player is handed over and the slot empties.
		require.True(t, ok)
		assert.Equal(t, "player-1", opponent.ID)
		assert.Nil(t, m.Waiting())
	})

	t.Run("WaitingPlayerDoesNotPairWithItself", func(t *testing.T) {
		// Given: a parked player.
		m := New()
		m.TryPair(&entity.Player{ID: "player-1"})

		// When: the same player joins again.
		_, ok := m.TryPair(&entity.Player{ID: "player-1"})

		// Then: it just keeps waiting.
		assert.False(t, ok)
		require.NotNil(t, m.Waiting())
		assert.Equal(t, "player-1", m.Waiting().ID)
	})

	t.Run("ConcurrentJoinsPairEveryoneOnce", func(t *testing.T) {
		// Given: an even crowd arriving at the same time.
		m := New()
		const players = 10

		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			pairs [][2]string
		)

		// When: everyone joins concurrently.
		wg.Add(players)
		for i := 0; i < players; i++ {
			go func(i int) {
				defer wg.Done()
				player := &entity.Player{ID: fmt.Sprintf("player-%d", i)}
				if opponent, ok := m.TryPair(player); ok {
					mu.Lock()
					pairs = append(pairs, [2]string{opponent.ID, player.ID})
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		// Then: exactly half the joins produced a pair, the slot is empty,
		// and nobody appears in two pairs.
		require.Len(t, pairs, players/2)
		assert.Nil(t, m.Waiting())

		seen := make(map[string]bool)
		for _, pair := range pairs {
			for _, id := range pair {
				assert.False(t, seen[id], "player %s paired twice", id)
				seen[id] = true
			}
		}
		assert.Len(t, seen, players)
	})
}

func TestMatchmaker_Withdraw(t *testing.T) {
	t.Run("RemovesWaitingPlayer", func(t *testing.T) {
		// Given: a parked player.
		m := New()
		m.TryPair(&entity.Player{ID: "player-1"})

		// When: the player withdraws.
		ok := m.Withdraw("player-1")

		// Then: the slot is empty and a second withdraw finds nothing.
		assert.True(t, ok)
		assert.Nil(t, m.Waiting())
		assert.False(t, m.Withdraw("player-1"))
	})

	t.Run("IgnoresPlayerNotInSlot", func(t *testing.T) {
		// Given: player-1 waiting.
		m := New()
		m.TryPair(&entity.Player{ID: "player-1"})

		// When: somebody else tries to withdraw.
		ok := m.Withdraw("player-2")

		// Then: the slot is untouched.
		assert.False(t, ok)
		require.NotNil(t, m.Waiting())
		assert.Equal(t, "player-1", m.Waiting().ID)
	})
}
