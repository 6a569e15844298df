package entity

const (
	StatusInProgress = "in_progress"
	StatusWon        = "won"
	StatusDraw       = "draw"
	StatusAbandoned  = "abandoned"

	PlayerX = "X"
	PlayerO = "O"

	EmptyCell = ""
)

// Board is the 3x3 grid in row-major order, matching the wire shape of
// the game_state field.
type Board [3][3]string

func (that *Board) IsFull() bool {
	for _, row := range that {
		for _, cell := range row {
			if cell == EmptyCell {
				return false
			}
		}
	}

	return true
}

func (that *Board) IsEmpty() bool {
	return *that == Board{}
}

type Game struct {
	ID      string     `json:"id"`
	Board   Board      `json:"board"`
	Turn    string     `json:"turn,omitempty"`
	Winner  string     `json:"winner,omitempty"`
	Status  string     `json:"status"`
	Players [2]*Player `json:"players"`
}

// NewGame pairs two players into a fresh game. The first player gets X and
// the opening turn, the second gets O.
func NewGame(id string, playerX, playerO *Player) *Game {
	playerX.Mark = PlayerX
	playerX.GameID = id

	playerO.Mark = PlayerO
	playerO.GameID = id

	return &Game{
		ID:      id,
		Turn:    PlayerX,
		Status:  StatusInProgress,
		Players: [2]*Player{playerX, playerO},
	}
}

func (that *Game) IsInProgress() bool {
	return that.Status == StatusInProgress
}

// IsTerminal reports whether no further moves are accepted.
func (that *Game) IsTerminal() bool {
	return that.Status == StatusWon || that.Status == StatusDraw || that.Status == StatusAbandoned
}

func (that *Game) IsAbandoned() bool {
	return that.Status == StatusAbandoned
}

// PlayerByID returns the participant with the given id, or nil.
func (that *Game) PlayerByID(id string) *Player {
	for _, player := range that.Players {
		if player != nil && player.ID == id {
			return player
		}
	}

	return nil
}

// Opponent returns the other participant, or nil if id is not a participant.
func (that *Game) Opponent(id string) *Player {
	for i, player := range that.Players {
		if player != nil && player.ID == id {
			return that.Players[1-i]
		}
	}

	return nil
}

// PlayerToMove returns the participant whose mark matches the current turn,
// or nil once the game is terminal.
func (that *Game) PlayerToMove() *Player {
	return that.PlayerByMark(that.Turn)
}

// PlayerByMark returns the participant holding the given mark, or nil.
func (that *Game) PlayerByMark(mark string) *Player {
	if mark == EmptyCell {
		return nil
	}

	for _, player := range that.Players {
		if player != nil && player.Mark == mark {
			return player
		}
	}

	return nil
}

// Reset prepares the same pair for a rematch: the board is cleared, marks
// are swapped so the previous O opens as X, and the game is in progress
// again under the same id.
func (that *Game) Reset() {
	that.Board = Board{}
	that.Winner = ""
	that.Status = StatusInProgress
	that.Turn = PlayerX

	that.Players[0], that.Players[1] = that.Players[1], that.Players[0]
	that.Players[0].Mark = PlayerX
	that.Players[1].Mark = PlayerO
}

// Clone returns a deep copy safe to hand out after the session lock is
// released.
func (that *Game) Clone() *Game {
	clone := *that
	clone.Players = [2]*Player{that.Players[0].Clone(), that.Players[1].Clone()}

	return &clone
}
