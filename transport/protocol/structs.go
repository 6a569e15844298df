package protocol

import (
	"encoding/json"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// Message is the wire envelope: one JSON object per line, the type naming
// the handler and data carrying the typed payload.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client to server message types.
const (
	TypeJoin            = "join"
	TypeMove            = "move"
	TypeChat            = "chat"
	TypeQuit            = "quit"
	TypeNewGameResponse = "new_game_response"
)

// Server to client message types.
const (
	TypeJoinAck       = "join_ack"
	TypeMoveAck       = "move_ack"
	TypeChatBroadcast = "chat_broadcast"
	TypeQuitAck       = "quit_ack"
	TypeOpponentLeft  = "opponent_left"
	TypeGameOver      = "game_over"
	TypeNewGame       = "new_game"
	TypeError         = "error"
)

const (
	StatusWaiting = "waiting"
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Error codes carried by error payloads and failed move acks.
const (
	CodeInvalidJSON     = "invalid_json"
	CodeUnknownType     = "unknown_type"
	CodeMissingData     = "missing_data"
	CodeInvalidGame     = "invalid_game"
	CodeNotJoined       = "not_joined"
	CodeAlreadyJoined   = "already_joined"
	CodeGameNotFinished = "game_not_finished"
	CodeServerFull      = "server_full"
	CodeInternalError   = "internal_error"
	CodeNotYourTurn     = "not_your_turn"
	CodeInvalidMove     = "invalid_move"
)

// Rematch answers inside a new_game_response request.
const (
	ResponseStart = "start"
	ResponseQuit  = "quit"
)

type JoinRequest struct {
	Username string `json:"username,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// MoveRequest carries the target cell as [row, col]. Position is kept as a
// slice so a wrong arity is answered as a protocol error instead of a
// decode failure.
type MoveRequest struct {
	GameID   string `json:"game_id"`
	Position []int  `json:"position"`
}

type ChatRequest struct {
	GameID  string `json:"game_id"`
	Message string `json:"message"`
}

type QuitRequest struct {
	GameID string `json:"game_id"`
}

type NewGameResponseRequest struct {
	GameID   string `json:"game_id"`
	Response string `json:"response"`
}

// JoinAck acknowledges a join: waiting while the slot is empty, success
// with the session coordinates once paired.
type JoinAck struct {
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
	GameID       string `json:"game_id,omitempty"`
	PlayerSymbol string `json:"player_symbol,omitempty"`
}

// MoveAck is the success broadcast after an accepted move. NextPlayer and
// Winner are usernames; NextPlayer is null once the game is over, Winner is
// null until then ("draw" on a draw).
type MoveAck struct {
	Status     string       `json:"status"`
	GameState  entity.Board `json:"game_state"`
	NextPlayer *string      `json:"next_player"`
	Winner     *string      `json:"winner"`
}

// MoveReject answers only the mover when a move breaks the rules.
type MoveReject struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ChatBroadcast struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type QuitAck struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// OpponentLeft tells the survivor its opponent quit or dropped.
type OpponentLeft struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// GameOver is pushed after the terminal move ack; it prompts the rematch
// decision on the client. Winner is a username or "draw".
type GameOver struct {
	GameID string `json:"game_id"`
	Winner string `json:"winner"`
}

// NewGame announces a rematch round: cleared board, swapped symbols, the
// new X on turn.
type NewGame struct {
	Status       string       `json:"status"`
	GameID       string       `json:"game_id"`
	GameState    entity.Board `json:"game_state"`
	PlayerSymbol string       `json:"player_symbol"`
	NextPlayer   string       `json:"next_player"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
