// Package matchmaker holds the single waiting slot that pairs arriving
// players. The slot is the only piece of cross-connection state in the join
// path, so one mutex around a check-and-set is all the coordination pairing
// needs. At most one player waits at a time; everyone else either pairs
// instantly or replaces the slot after it empties.
package matchmaker

import (
	"sync"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

type Matchmaker struct {
	mu      sync.Mutex
	waiting *entity.Player
}

func New() *Matchmaker {
	return &Matchmaker{}
}

// TryPair either matches the player with the one already waiting or parks
// the player in the slot. It returns the opponent and true on a match. A
// player already occupying the slot keeps waiting instead of being paired
// with itself.
func (that *Matchmaker) TryPair(player *entity.Player) (*entity.Player, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.waiting == nil || that.waiting.ID == player.ID {
		that.waiting = player
		return nil, false
	}

	opponent := that.waiting
	that.waiting = nil

	return opponent, true
}

// Withdraw empties the slot if the given player is the one waiting in it.
// It reports whether the player was actually removed; a false return means
// somebody already paired with the player or it was never waiting.
func (that *Matchmaker) Withdraw(playerID string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.waiting == nil || that.waiting.ID != playerID {
		return false
	}

	that.waiting = nil

	return true
}

// Waiting returns a copy of the player currently parked in the slot, or nil.
func (that *Matchmaker) Waiting() *entity.Player {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.waiting.Clone()
}
