package tcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/matchmaker"
	"github.com/rocketscienceinc/tictactoe-arena/internal/registry"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/session"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-arena/transport/protocol"
)

const recvTimeout = 5 * time.Second

func newTestServer(t *testing.T, maxClients int) string {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := usecase.NewGameManager(
		logger,
		registry.New(),
		matchmaker.New(),
		session.NewArena(),
		repository.NewMemoryStatsRepository(),
	)
	server := New(logger, protocol.NewRouter(logger, manager), maxClients)

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx, "127.0.0.1:0")
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			require.NoError(t, err)
		case <-time.After(recvTimeout):
			t.Fatal("server did not stop after context cancel")
		}
	})

	require.Eventually(t, func() bool {
		return server.Addr() != nil
	}, 2*time.Second, 10*time.Millisecond, "server never bound its listener")

	return server.Addr().String()
}

// testClient is a real TCP client speaking one JSON object per line.
type testClient struct {
	t       *testing.T
	conn    net.Conn
	scanner *bufio.Scanner
}

func dialClient(t *testing.T, addr string) *testClient {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &testClient{t: t, conn: conn, scanner: bufio.NewScanner(conn)}
}

func (that *testClient) send(msgType string, payload any) {
	that.t.Helper()

	msg := protocol.Message{Type: msgType}
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(that.t, err)
		msg.Data = data
	}

	line, err := json.Marshal(msg)
	require.NoError(that.t, err)

	_, err = that.conn.Write(append(line, '\n'))
	require.NoError(that.t, err)
}

func (that *testClient) recv() protocol.Message {
	that.t.Helper()

	require.NoError(that.t, that.conn.SetReadDeadline(time.Now().Add(recvTimeout)))
	require.True(that.t, that.scanner.Scan(), "expected a message, read error: %v", that.scanner.Err())

	var msg protocol.Message
	require.NoError(that.t, json.Unmarshal(that.scanner.Bytes(), &msg))

	return msg
}

// expectClosed asserts the server hangs up on this client.
func (that *testClient) expectClosed() {
	that.t.Helper()

	require.NoError(that.t, that.conn.SetReadDeadline(time.Now().Add(recvTimeout)))
	require.False(that.t, that.scanner.Scan(), "expected the connection to be closed")
}

func TestServer_EndToEnd(t *testing.T) {
	addr := newTestServer(t, 8)

	// Given: Alice joins and waits.
	alice := dialClient(t, addr)
	alice.send(protocol.TypeJoin, protocol.JoinRequest{Username: "Alice"})

	msg := alice.recv()
	require.Equal(t, protocol.TypeJoinAck, msg.Type)

	var ack protocol.JoinAck
	require.NoError(t, json.Unmarshal(msg.Data, &ack))
	require.Equal(t, protocol.StatusWaiting, ack.Status)

	// When: Bob joins.
	bob := dialClient(t, addr)
	bob.send(protocol.TypeJoin, protocol.JoinRequest{Username: "Bob"})

	// Then: both sides are told the game is on.
	msg = bob.recv()
	require.Equal(t, protocol.TypeJoinAck, msg.Type)
	require.NoError(t, json.Unmarshal(msg.Data, &ack))
	require.Equal(t, protocol.StatusSuccess, ack.Status)
	assert.Equal(t, "O", ack.PlayerSymbol)

	gameID := ack.GameID

	msg = alice.recv()
	require.NoError(t, json.Unmarshal(msg.Data, &ack))
	require.Equal(t, protocol.StatusSuccess, ack.Status)
	assert.Equal(t, "X", ack.PlayerSymbol)
	assert.Equal(t, gameID, ack.GameID)

	// When: Alice makes the opening move.
	alice.send(protocol.TypeMove, protocol.MoveRequest{GameID: gameID, Position: []int{1, 1}})

	// Then: the board lands on both connections.
	for _, client := range []*testClient{alice, bob} {
		msg = client.recv()
		require.Equal(t, protocol.TypeMoveAck, msg.Type)

		var moveAck protocol.MoveAck
		require.NoError(t, json.Unmarshal(msg.Data, &moveAck))
		assert.Equal(t, protocol.StatusSuccess, moveAck.Status)
		assert.Equal(t, "X", moveAck.GameState[1][1])
		require.NotNil(t, moveAck.NextPlayer)
		assert.Equal(t, "Bob", *moveAck.NextPlayer)
	}

	// When: Bob chats.
	bob.send(protocol.TypeChat, protocol.ChatRequest{GameID: gameID, Message: "hey"})

	for _, client := range []*testClient{alice, bob} {
		msg = client.recv()
		require.Equal(t, protocol.TypeChatBroadcast, msg.Type)

		var chat protocol.ChatBroadcast
		require.NoError(t, json.Unmarshal(msg.Data, &chat))
		assert.Equal(t, "Bob", chat.Username)
		assert.Equal(t, "hey", chat.Message)
	}

	// When: Bob quits.
	bob.send(protocol.TypeQuit, protocol.QuitRequest{GameID: gameID})

	// Then: Bob gets his ack and Alice the abandonment notice.
	msg = bob.recv()
	require.Equal(t, protocol.TypeQuitAck, msg.Type)

	msg = alice.recv()
	require.Equal(t, protocol.TypeOpponentLeft, msg.Type)

	var left protocol.OpponentLeft
	require.NoError(t, json.Unmarshal(msg.Data, &left))
	assert.Equal(t, "Bob", left.Username)
	assert.Equal(t, "Bob has left the game.", left.Message)
}

func TestServer_DisconnectNotifiesOpponent(t *testing.T) {
	addr := newTestServer(t, 8)

	// Given: a paired game over real sockets.
	alice := dialClient(t, addr)
	alice.send(protocol.TypeJoin, protocol.JoinRequest{Username: "Alice"})
	alice.recv()

	bob := dialClient(t, addr)
	bob.send(protocol.TypeJoin, protocol.JoinRequest{Username: "Bob"})
	bob.recv()
	alice.recv()

	// When: Bob's socket dies without a quit message.
	require.NoError(t, bob.conn.Close())

	// Then: Alice still learns about it.
	msg := alice.recv()
	require.Equal(t, protocol.TypeOpponentLeft, msg.Type)

	var left protocol.OpponentLeft
	require.NoError(t, json.Unmarshal(msg.Data, &left))
	assert.Equal(t, "Bob", left.Username)
}

func TestServer_RejectsWhenFull(t *testing.T) {
	addr := newTestServer(t, 1)

	// Given: the single slot is taken by a served client.
	first := dialClient(t, addr)
	first.send(protocol.TypeJoin, protocol.JoinRequest{Username: "Alice"})
	first.recv()

	// When: one more client dials in.
	second := dialClient(t, addr)

	// Then: it is turned away and hung up on.
	msg := second.recv()
	require.Equal(t, protocol.TypeError, msg.Type)

	var payload protocol.ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, protocol.CodeServerFull, payload.Code)

	second.expectClosed()
}

func TestServer_SlotFreedAfterDisconnect(t *testing.T) {
	addr := newTestServer(t, 1)

	// Given: a full server whose only client leaves.
	first := dialClient(t, addr)
	first.send(protocol.TypeJoin, protocol.JoinRequest{Username: "Alice"})
	first.recv()
	require.NoError(t, first.conn.Close())

	// Then: the freed slot lets the next client in. Teardown happens on the
	// server's own goroutine, so retry until it lands.
	deadline := time.Now().Add(recvTimeout)
	for {
		require.True(t, time.Now().Before(deadline), "slot was never released")

		next := dialClient(t, addr)
		next.send(protocol.TypeJoin, protocol.JoinRequest{Username: "Late"})

		if msg := next.recv(); msg.Type == protocol.TypeJoinAck {
			return
		}

		_ = next.conn.Close()
		time.Sleep(20 * time.Millisecond)
	}
}
