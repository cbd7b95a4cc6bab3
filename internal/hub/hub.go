// Package hub provides connection management for realtime chat clients.
package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection represents a single client connection bound to at most one
// conversation.
type Connection struct {
	ID             string
	ConversationID string
	Conn           *websocket.Conn
	Send           chan []byte
	mu             sync.Mutex
}

// Hub manages all live connections.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// Conversations maps conversation_id to set of connection IDs
	conversations map[string]map[string]bool

	mu sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections:   make(map[string]*Connection),
		conversations: make(map[string]map[string]bool),
	}
}

// NewConnection wraps a websocket connection for use with the hub.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ID:   uuid.New().String(),
		Conn: ws,
		Send: make(chan []byte, 256),
	}
}

// Register registers a connection with the hub.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	h.connections[conn.ID] = conn
	h.mu.Unlock()
	log.Printf("Connection registered: %s", conn.ID)
}

// Unregister removes a connection and releases its send channel.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	if _, ok := h.connections[conn.ID]; ok {
		delete(h.connections, conn.ID)
		if conn.ConversationID != "" && h.conversations[conn.ConversationID] != nil {
			delete(h.conversations[conn.ConversationID], conn.ID)
			if len(h.conversations[conn.ConversationID]) == 0 {
				delete(h.conversations, conn.ConversationID)
			}
		}
		close(conn.Send)
	}
	h.mu.Unlock()
	log.Printf("Connection unregistered: %s", conn.ID)
}

// Bind binds a connection to a conversation.
func (h *Hub) Bind(conn *Connection, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.ConversationID = conversationID
	if h.conversations[conversationID] == nil {
		h.conversations[conversationID] = make(map[string]bool)
	}
	h.conversations[conversationID][conn.ID] = true
}

// Broadcast sends a frame to every connection bound to a conversation.
// Connections with a full buffer are skipped; delivery is best-effort.
func (h *Hub) Broadcast(conversationID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID := range h.conversations[conversationID] {
		if conn, ok := h.connections[connID]; ok {
			select {
			case conn.Send <- data:
			default:
				log.Printf("Connection %s buffer full, dropping frame", connID)
			}
		}
	}
}

// SendToConnection sends a frame to a specific connection.
func (h *Hub) SendToConnection(conn *Connection, data []byte) error {
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// SendJSONToConnection sends a JSON control frame to a connection.
func (h *Hub) SendJSONToConnection(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.SendToConnection(conn, data)
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// HasActiveConnections checks if a conversation has any live connections.
func (h *Hub) HasActiveConnections(conversationID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	connIDs, ok := h.conversations[conversationID]
	return ok && len(connIDs) > 0
}

// WriteMessage writes a frame to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the underlying connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

// ErrBufferFull is returned when the send buffer is full.
var ErrBufferFull = &BufferFullError{}

// BufferFullError represents a buffer full error.
type BufferFullError struct{}

func (e *BufferFullError) Error() string {
	return "send buffer full"
}
