package session

import (
	"sync"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

// Arena is the table of live sessions. It also owns the player-to-session
// binding, so a connection handler can find its game from nothing but the
// player id. Handlers never keep session pointers across requests; they go
// through the arena every time, which keeps teardown races confined to the
// session's own closed flag.
type Arena struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byPlayer map[string]string
}

func NewArena() *Arena {
	return &Arena{
		sessions: make(map[string]*Session),
		byPlayer: make(map[string]string),
	}
}

// Add registers a freshly paired session and binds both participants to it.
func (that *Arena) Add(s *Session) {
	game := s.Snapshot()

	that.mu.Lock()
	defer that.mu.Unlock()

	that.sessions[s.ID()] = s
	for _, player := range game.Players {
		that.byPlayer[player.ID] = s.ID()
	}
}

// Remove drops the session and releases both participants' bindings.
func (that *Arena) Remove(id string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	s, ok := that.sessions[id]
	if !ok {
		return
	}

	delete(that.sessions, id)

	for playerID, sessionID := range that.byPlayer {
		if sessionID == s.ID() {
			delete(that.byPlayer, playerID)
		}
	}
}

// Get returns the session with the given id.
func (that *Arena) Get(id string) (*Session, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	s, ok := that.sessions[id]
	if !ok {
		return nil, apperror.ErrGameNotFound
	}

	return s, nil
}

// SessionFor returns the session the player is currently bound to.
func (that *Arena) SessionFor(playerID string) (*Session, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	id, ok := that.byPlayer[playerID]
	if !ok {
		return nil, apperror.ErrGameNotFound
	}

	s, ok := that.sessions[id]
	if !ok {
		return nil, apperror.ErrGameNotFound
	}

	return s, nil
}

// Len reports how many sessions are live.
func (that *Arena) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.sessions)
}
