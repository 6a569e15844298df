package tcp

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/rocketscienceinc/tictactoe-arena/transport/protocol"
)

// conn adapts a raw net.Conn to the protocol connection contract: every
// outgoing message is one JSON object terminated by a newline, and writes
// are serialized so broadcasts from different goroutines never interleave.
type conn struct {
	mu      sync.Mutex
	netConn net.Conn
}

func newConn(netConn net.Conn) *conn {
	return &conn{netConn: netConn}
}

func (that *conn) WriteMessage(msg *protocol.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	payload = append(payload, '\n')

	that.mu.Lock()
	defer that.mu.Unlock()

	if _, err = that.netConn.Write(payload); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (that *conn) RemoteAddr() string {
	return that.netConn.RemoteAddr().String()
}

func (that *conn) Close() error {
	return that.netConn.Close()
}
