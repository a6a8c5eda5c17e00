// internal/lobby/lobby.go
package lobby

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mtgbuilder/tabletop/internal/models"
)

// outBuffer is the per-connection outbound queue size.
const outBuffer = 64

// Connection is one client's outbound queue. The transport owns the socket
// and drains OutChan; the store only routes messages to it.
type Connection struct {
	UserID   uuid.UUID
	Username string
	Cancel   context.CancelFunc
	OutChan  chan map[string]interface{}

	mu     sync.Mutex
	closed bool
}

// NewConnection creates a connection for user. cancel may be nil.
func NewConnection(user models.User, cancel context.CancelFunc) *Connection {
	return &Connection{
		UserID:   user.ID,
		Username: user.Username,
		Cancel:   cancel,
		OutChan:  make(chan map[string]interface{}, outBuffer),
	}
}

// Write queues msg without blocking. It returns false when the queue is full
// or the connection has been closed.
func (conn *Connection) Write(msg map[string]interface{}) bool {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.closed {
		return false
	}
	select {
	case conn.OutChan <- msg:
		return true
	default:
		return false
	}
}

// WriteError is a convenience to send an error object:
//
//	{
//	 "type": "error",
//	 "message": msg
//	}
func (conn *Connection) WriteError(msg string) bool {
	return conn.Write(map[string]interface{}{
		"type":    "error",
		"message": msg,
	})
}

// Close stops further writes, closes OutChan, and cancels the connection
// context. Safe to call more than once.
func (conn *Connection) Close() {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.closed {
		return
	}
	conn.closed = true
	close(conn.OutChan)
	if conn.Cancel != nil {
		conn.Cancel()
	}
}
