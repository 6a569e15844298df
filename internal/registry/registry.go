// Package registry tracks the players currently connected to the server.
// A player identity exists exactly as long as its connection: Register on
// the first join, Unregister when the connection goes away. Lookups return
// copies, so the registry's own records are never mutated from outside.
package registry

import (
	"sync"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/pkg"
)

type Registry struct {
	mu      sync.RWMutex
	players map[string]*entity.Player
}

func New() *Registry {
	return &Registry{
		players: make(map[string]*entity.Player),
	}
}

// Register creates a new player identity. An empty username gets a
// generated guest name so every player has something to show in chat and
// departure notices.
func (that *Registry) Register(username, avatar string) *entity.Player {
	if username == "" {
		username = pkg.GenerateGuestName()
	}

	player := &entity.Player{
		ID:       pkg.GeneratePlayerID(),
		Username: username,
		Avatar:   avatar,
	}

	that.mu.Lock()
	that.players[player.ID] = player
	that.mu.Unlock()

	return player.Clone()
}

// Get returns a copy of the player with the given id.
func (that *Registry) Get(playerID string) (*entity.Player, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	player, ok := that.players[playerID]
	if !ok {
		return nil, apperror.ErrPlayerNotFound
	}

	return player.Clone(), nil
}

// Unregister forgets the player. Safe to call for ids that are already gone.
func (that *Registry) Unregister(playerID string) {
	that.mu.Lock()
	delete(that.players, playerID)
	that.mu.Unlock()
}

// Count reports how many players are connected right now.
func (that *Registry) Count() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.players)
}
