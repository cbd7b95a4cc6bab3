// Package ws implements the realtime chat gateway: it authenticates the
// connection, binds it to one conversation, and pumps turns between the
// client and the session manager.
package ws

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/NoManNayeem/AgenTick/internal/config"
	"github.com/NoManNayeem/AgenTick/internal/hub"
	"github.com/NoManNayeem/AgenTick/internal/protocol"
	"github.com/NoManNayeem/AgenTick/internal/service"
)

// Server handles realtime chat connections.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	service  *service.Service
	upgrader websocket.Upgrader
}

// NewServer creates a new gateway server.
func NewServer(cfg *config.Config, h *hub.Hub, svc *service.Service) *Server {
	return &Server{
		cfg:     cfg,
		hub:     h,
		service: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes registers the realtime endpoint with the echo server.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/chat", s.HandleChat)
}

// HandleChat upgrades the connection and runs its lifecycle. The upgrade
// is accepted unconditionally so rejected clients get a clean close code
// instead of a dropped connection; validation happens right after.
func (s *Server) HandleChat(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return err
	}

	token := c.QueryParam("token")
	conversationID := c.QueryParam("conversation_id")
	ctx := c.Request().Context()

	user, err := s.service.UserByToken(ctx, token)
	if err != nil {
		log.Printf("Rejected connection: invalid token: %v", err)
		s.closeWith(ws, websocket.ClosePolicyViolation)
		return nil
	}

	// Not-found and not-owner both come back as ErrNotFound; the client
	// sees one policy-violation close either way.
	conv, err := s.service.GetConversation(ctx, user.UserID, conversationID)
	if err != nil {
		log.Printf("Rejected connection: user=%s conversation=%s: %v", user.UserID, conversationID, err)
		s.closeWith(ws, websocket.ClosePolicyViolation)
		return nil
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)
	s.hub.Bind(conn, conv.ConversationID)

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(conn)

	init := protocol.InitFrame{
		Type:           protocol.TypeInit,
		ConversationID: conv.ConversationID,
		Title:          conv.Title,
		Topic:          conv.Topic,
	}
	if err := s.hub.SendJSONToConnection(conn, init); err != nil {
		log.Printf("Failed to send init frame: %v", err)
		s.hub.Unregister(conn)
		conn.Close()
		return nil
	}

	log.Printf("Connection bound: user=%s conversation=%s", user.UserID, conv.ConversationID)
	s.readPump(conn, user.UserID)
	return nil
}

// readPump drives the streaming loop. Each inbound text frame is handled
// synchronously so message N is fully persisted before N+1 is read.
func (s *Server) readPump(conn *hub.Connection, userID string) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("Connection read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

		content := strings.TrimSpace(string(message))
		if content == "" {
			continue
		}

		// Detached context: a disconnect mid-generation must not abort the
		// in-flight generation or the persistence of its result.
		reply, err := s.service.Exchange(context.Background(), conn.ConversationID, content)
		if err != nil {
			log.Printf("Exchange failed: user=%s conversation=%s err=%v", userID, conn.ConversationID, err)
			s.sendErrorFrame(conn)
			s.closeWith(conn.Conn, websocket.CloseInternalServerErr)
			return
		}

		// Reply goes to every connection bound to the conversation so
		// other open tabs stay in sync.
		s.hub.Broadcast(conn.ConversationID, []byte(reply))
	}
}

// writePump writes queued frames and keeps the connection alive with pings.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Failed to write frame: %v", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) sendErrorFrame(conn *hub.Connection) {
	frame := protocol.ErrorFrame{
		Type:    protocol.TypeError,
		Message: protocol.GenericErrorMessage,
	}
	if err := s.hub.SendJSONToConnection(conn, frame); err != nil {
		log.Printf("Failed to send error frame: %v", err)
	}
	// Give the write pump a moment to flush before the close frame.
	time.Sleep(50 * time.Millisecond)
}

// closeWith sends a close frame with the given code and closes the socket.
func (s *Server) closeWith(ws *websocket.Conn, code int) {
	deadline := time.Now().Add(s.cfg.WriteTimeout)
	_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), deadline)
	_ = ws.Close()
}
