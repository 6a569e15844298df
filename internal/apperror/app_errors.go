package apperror

import "errors"

var (
	ErrNotYourTurn     = errors.New("it's not your turn")
	ErrCellOccupied    = errors.New("cell is already occupied")
	ErrOutOfBounds     = errors.New("position is out of bounds")
	ErrGameNotFinished = errors.New("game is not finished yet")
	ErrGameNotFound    = errors.New("game not found")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrNotParticipant  = errors.New("player is not a participant of this game")
	ErrAlreadyInGame   = errors.New("player is already in a game")
)
