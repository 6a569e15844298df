// Package client implements the interactive terminal player.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/transport/protocol"
)

const pollInterval = 100 * time.Millisecond

var errInvalidPosition = errors.New("invalid position")

// session phases; the prompt loop decides what to ask based on these.
const (
	phaseJoining = iota
	phaseWaiting
	phasePlaying
	phaseRoundOver
	phaseRematchWait
	phaseDone
)

type Client struct {
	logger *slog.Logger

	username string
	avatar   string

	input  io.Reader
	output io.Writer
	outMu  sync.Mutex

	conn    net.Conn
	writeMu sync.Mutex

	mu     sync.Mutex
	phase  int
	gameID string
	symbol string
	board  entity.Board
	myTurn bool
}

func New(logger *slog.Logger, username, avatar string, input io.Reader, output io.Writer) *Client {
	return &Client{
		logger: logger.With("component", "client"),

		username: username,
		avatar:   avatar,

		input:  input,
		output: output,

		phase: phaseJoining,
	}
}

// Run connects to addr, joins the matchmaking queue and plays rounds until
// the session ends or ctx is canceled.
func (that *Client) Run(ctx context.Context, addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	that.conn = conn
	defer func() { _ = conn.Close() }()

	go func() {
		<-ctx.Done()
		that.sendQuit()
		_ = conn.Close()
	}()

	that.printf("Connected to server at %s\n", addr)

	if err = that.send(protocol.TypeJoin, protocol.JoinRequest{Username: that.username, Avatar: that.avatar}); err != nil {
		return err
	}

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		that.readLoop()
	}()

	stdin := bufio.NewScanner(that.input)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-readerDone:
			return nil
		default:
		}

		switch that.currentPhase() {
		case phaseDone:
			return nil
		case phasePlaying:
			if !that.isMyTurn() {
				time.Sleep(pollInterval)
				continue
			}

			if !that.promptMove(stdin) {
				return nil
			}
		case phaseRoundOver:
			if !that.promptRematch(stdin) {
				return nil
			}
		default:
			time.Sleep(pollInterval)
		}
	}
}

// promptMove asks for one command on the player's turn. It returns false
// when the input stream is exhausted.
func (that *Client) promptMove(stdin *bufio.Scanner) bool {
	that.printf("Enter your move (row,col), 'chat', or 'quit': ")

	if !stdin.Scan() {
		that.sendQuit()
		return false
	}

	command := strings.TrimSpace(stdin.Text())

	switch strings.ToLower(command) {
	case "quit":
		that.sendQuit()
		that.setTurn(false)
	case "chat":
		that.printf("Enter your message: ")

		if !stdin.Scan() {
			that.sendQuit()
			return false
		}

		that.sendChat(strings.TrimSpace(stdin.Text()))
	default:
		row, col, err := parsePosition(command)
		if err != nil {
			that.printf("Invalid input. Please enter row and column as numbers between 0 and 2, separated by a comma.\n")
			return true
		}

		that.sendMove(row, col)
		that.setTurn(false)
	}

	return true
}

func (that *Client) promptRematch(stdin *bufio.Scanner) bool {
	that.printf("Play another round? Enter 'start' or 'quit': ")

	if !stdin.Scan() {
		that.sendNewGameResponse(protocol.ResponseQuit)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(stdin.Text())) {
	case "start":
		that.sendNewGameResponse(protocol.ResponseStart)
		that.setPhase(phaseRematchWait)
		that.printf("Waiting for your opponent's answer...\n")
	case "quit":
		that.sendNewGameResponse(protocol.ResponseQuit)
		that.setPhase(phaseRematchWait)
	default:
		that.printf("Please answer 'start' or 'quit'.\n")
	}

	return true
}

func (that *Client) readLoop() {
	scanner := bufio.NewScanner(that.conn)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var msg protocol.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			that.logger.Error("failed to decode server message", "error", err)
			continue
		}

		that.handleMessage(&msg)
	}

	that.setPhase(phaseDone)
}

func (that *Client) handleMessage(msg *protocol.Message) {
	var err error

	switch msg.Type {
	case protocol.TypeJoinAck:
		err = that.handleJoinAck(msg.Data)
	case protocol.TypeMoveAck:
		err = that.handleMoveAck(msg.Data)
	case protocol.TypeChatBroadcast:
		err = that.handleChatBroadcast(msg.Data)
	case protocol.TypeGameOver:
		// The outcome was already announced with the final move_ack.
	case protocol.TypeNewGame:
		err = that.handleNewGame(msg.Data)
	case protocol.TypeOpponentLeft:
		err = that.handleOpponentLeft(msg.Data)
	case protocol.TypeQuitAck:
		err = that.handleQuitAck(msg.Data)
	case protocol.TypeError:
		err = that.handleError(msg.Data)
	default:
		that.logger.Warn("unknown message type", "type", msg.Type)
	}

	if err != nil {
		that.logger.Error("failed to handle message", "type", msg.Type, "error", err)
	}
}

func (that *Client) handleJoinAck(data json.RawMessage) error {
	var ack protocol.JoinAck
	if err := json.Unmarshal(data, &ack); err != nil {
		return fmt.Errorf("failed to unmarshal join_ack: %w", err)
	}

	switch ack.Status {
	case protocol.StatusSuccess:
		that.mu.Lock()
		that.gameID = ack.GameID
		that.symbol = ack.PlayerSymbol
		that.phase = phasePlaying
		that.myTurn = ack.PlayerSymbol == entity.PlayerX
		that.mu.Unlock()

		that.printf("Game started! You are '%s'.\n", ack.PlayerSymbol)
	case protocol.StatusWaiting:
		that.setPhase(phaseWaiting)
		that.printf("%s\n", ack.Message)
	default:
		that.printf("Failed to join game.\n")
	}

	return nil
}

func (that *Client) handleMoveAck(data json.RawMessage) error {
	var ack protocol.MoveAck
	if err := json.Unmarshal(data, &ack); err != nil {
		return fmt.Errorf("failed to unmarshal move_ack: %w", err)
	}

	if ack.Status != protocol.StatusSuccess {
		var reject protocol.MoveReject
		if err := json.Unmarshal(data, &reject); err != nil {
			return fmt.Errorf("failed to unmarshal rejected move_ack: %w", err)
		}

		that.printf("Move failed: %s\n", reject.Message)
		that.setTurn(true)

		return nil
	}

	that.mu.Lock()
	that.board = ack.GameState
	if ack.Winner != nil {
		that.phase = phaseRoundOver
		that.myTurn = false
	} else if ack.NextPlayer != nil {
		that.myTurn = *ack.NextPlayer == that.username
	}
	that.mu.Unlock()

	that.printf("%s", renderBoard(&ack.GameState))

	switch {
	case ack.Winner == nil:
		if ack.NextPlayer != nil {
			that.printf("It's %s's turn.\n", *ack.NextPlayer)
		}
	case *ack.Winner == "draw":
		that.printf("The game ended in a draw.\n")
	case *ack.Winner == that.username:
		that.printf("Congratulations, you won!\n")
	default:
		that.printf("%s has won the game.\n", *ack.Winner)
	}

	return nil
}

func (that *Client) handleChatBroadcast(data json.RawMessage) error {
	var chat protocol.ChatBroadcast
	if err := json.Unmarshal(data, &chat); err != nil {
		return fmt.Errorf("failed to unmarshal chat_broadcast: %w", err)
	}

	that.printf("%s: %s\n", chat.Username, chat.Message)

	return nil
}

func (that *Client) handleNewGame(data json.RawMessage) error {
	var payload protocol.NewGame
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal new_game: %w", err)
	}

	that.mu.Lock()
	that.gameID = payload.GameID
	that.symbol = payload.PlayerSymbol
	that.board = payload.GameState
	that.phase = phasePlaying
	that.myTurn = payload.NextPlayer == that.username
	that.mu.Unlock()

	that.printf("New round! You are '%s'.\n", payload.PlayerSymbol)
	that.printf("It's %s's turn.\n", payload.NextPlayer)

	return nil
}

func (that *Client) handleOpponentLeft(data json.RawMessage) error {
	var payload protocol.OpponentLeft
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal opponent_left: %w", err)
	}

	that.printf("%s\n", payload.Message)
	that.setPhase(phaseDone)

	return nil
}

func (that *Client) handleQuitAck(data json.RawMessage) error {
	var ack protocol.QuitAck
	if err := json.Unmarshal(data, &ack); err != nil {
		return fmt.Errorf("failed to unmarshal quit_ack: %w", err)
	}

	that.printf("%s\n", ack.Message)
	that.setPhase(phaseDone)

	return nil
}

func (that *Client) handleError(data json.RawMessage) error {
	var payload protocol.ErrorPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal error: %w", err)
	}

	that.printf("Error from server [%s]: %s\n", payload.Code, payload.Message)

	return nil
}

func (that *Client) send(msgType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}

	raw, err := json.Marshal(protocol.Message{Type: msgType, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", msgType, err)
	}

	raw = append(raw, '\n')

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if _, err = that.conn.Write(raw); err != nil {
		return fmt.Errorf("failed to send %s: %w", msgType, err)
	}

	return nil
}

func (that *Client) sendMove(row, col int) {
	if err := that.send(protocol.TypeMove, protocol.MoveRequest{GameID: that.currentGameID(), Position: []int{row, col}}); err != nil {
		that.logger.Error("failed to send move", "error", err)
	}
}

func (that *Client) sendChat(text string) {
	if err := that.send(protocol.TypeChat, protocol.ChatRequest{GameID: that.currentGameID(), Message: text}); err != nil {
		that.logger.Error("failed to send chat", "error", err)
	}
}

// sendQuit leaves the current game. Outside of one it just ends the session.
func (that *Client) sendQuit() {
	gameID := that.currentGameID()
	if gameID == "" {
		that.setPhase(phaseDone)
		return
	}

	if err := that.send(protocol.TypeQuit, protocol.QuitRequest{GameID: gameID}); err != nil {
		that.logger.Error("failed to send quit", "error", err)
		that.setPhase(phaseDone)
	}
}

func (that *Client) sendNewGameResponse(response string) {
	if err := that.send(protocol.TypeNewGameResponse, protocol.NewGameResponseRequest{GameID: that.currentGameID(), Response: response}); err != nil {
		that.logger.Error("failed to send new game response", "error", err)
	}
}

func (that *Client) currentPhase() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.phase
}

func (that *Client) setPhase(phase int) {
	that.mu.Lock()
	that.phase = phase
	that.mu.Unlock()
}

func (that *Client) isMyTurn() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.myTurn
}

func (that *Client) setTurn(myTurn bool) {
	that.mu.Lock()
	that.myTurn = myTurn
	that.mu.Unlock()
}

func (that *Client) currentGameID() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.gameID
}

func (that *Client) printf(format string, args ...any) {
	that.outMu.Lock()
	defer that.outMu.Unlock()

	fmt.Fprintf(that.output, format, args...)
}

func parsePosition(command string) (int, int, error) {
	parts := strings.Split(command, ",")
	if len(parts) != 2 {
		return 0, 0, errInvalidPosition
	}

	row, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, errInvalidPosition
	}

	col, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, errInvalidPosition
	}

	if row < 0 || row > 2 || col < 0 || col > 2 {
		return 0, 0, errInvalidPosition
	}

	return row, col, nil
}

func renderBoard(board *entity.Board) string {
	var builder strings.Builder

	builder.WriteString("\nCurrent Game Board:\n")

	for _, row := range board {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			if cell == entity.EmptyCell {
				cell = " "
			}
			cells = append(cells, cell)
		}

		builder.WriteString(strings.Join(cells, " | "))
		builder.WriteString("\n---------\n")
	}

	return builder.String()
}
