package websocket

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-arena/transport/protocol"
)

// conn adapts a gorilla connection to the protocol contract. Gorilla allows
// only one concurrent writer, so writes are serialized here.
type conn struct {
	mu     sync.Mutex
	wsConn *websocket.Conn
}

func newConn(wsConn *websocket.Conn) *conn {
	return &conn{wsConn: wsConn}
}

func (that *conn) WriteMessage(msg *protocol.Message) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.wsConn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (that *conn) RemoteAddr() string {
	return that.wsConn.RemoteAddr().String()
}

func (that *conn) Close() error {
	return that.wsConn.Close()
}
