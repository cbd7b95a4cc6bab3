package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/NoManNayeem/AgenTick/internal/adapter/agent"
	"github.com/NoManNayeem/AgenTick/internal/auth"
	"github.com/NoManNayeem/AgenTick/internal/config"
	"github.com/NoManNayeem/AgenTick/internal/domain"
	"github.com/NoManNayeem/AgenTick/internal/hub"
	"github.com/NoManNayeem/AgenTick/internal/policy"
	"github.com/NoManNayeem/AgenTick/internal/protocol"
	store "github.com/NoManNayeem/AgenTick/internal/repository"
	"github.com/NoManNayeem/AgenTick/internal/service"
	"github.com/NoManNayeem/AgenTick/internal/session"
)

type gatewayFixture struct {
	url   string
	svc   *service.Service
	store *store.SQLiteStore
}

type faultyGenerator struct{}

func (faultyGenerator) Generate(ctx context.Context, conversationID string, history []agent.Turn, message string) (string, error) {
	return "", errors.New("model unavailable")
}

func newGatewayFixture(t *testing.T, generator agent.Generator) *gatewayFixture {
	t.Helper()

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("failed to create policy engine: %v", err)
	}

	cfg := &config.Config{
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 65536,
	}

	sessions := session.NewManager(db, generator, time.Hour, 0)
	svc := service.New(db, sessions, auth.New("test-secret", time.Hour), engine)

	e := echo.New()
	NewServer(cfg, hub.NewHub(), svc).RegisterRoutes(e)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return &gatewayFixture{
		url:   "ws" + strings.TrimPrefix(srv.URL, "http"),
		svc:   svc,
		store: db,
	}
}

func (f *gatewayFixture) register(t *testing.T, username string) (*domain.User, string) {
	t.Helper()
	token, err := f.svc.Register(context.Background(), username, "secret1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	user, err := f.svc.UserByToken(context.Background(), token)
	if err != nil {
		t.Fatalf("UserByToken failed: %v", err)
	}
	return user, token
}

func (f *gatewayFixture) dial(t *testing.T, token, conversationID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(f.url+"/ws/chat?token="+token+"&conversation_id="+conversationID, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

// expectClose reads until the peer closes and returns the close code.
func expectClose(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			return closeErr.Code
		}
		t.Fatalf("expected close frame, got %v", err)
	}
}

func TestChatRoundTrip(t *testing.T) {
	f := newGatewayFixture(t, agent.NewMockGenerator())
	user, token := f.register(t, "nayeem")
	conv, err := f.svc.CreateConversation(context.Background(), user.UserID, "Trip planning", "travel")
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	conn := f.dial(t, token, conv.ConversationID)

	// First frame is the init frame.
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read init frame: %v", err)
	}
	var init protocol.InitFrame
	if err := json.Unmarshal(raw, &init); err != nil {
		t.Fatalf("decode init frame: %v", err)
	}
	if init.Type != protocol.TypeInit || init.ConversationID != conv.ConversationID || init.Title != "Trip planning" {
		t.Fatalf("unexpected init frame: %+v", init)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("Hi")); err != nil {
		t.Fatalf("write message: %v", err)
	}

	_, reply, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if len(reply) == 0 {
		t.Fatal("expected non-empty reply")
	}

	// Both turns are durable once the reply arrives.
	msgs, _, err := f.store.GetMessages(context.Background(), conv.ConversationID, 0, 10)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(msgs))
	}
	if msgs[0].Sender != domain.SenderUser || msgs[0].Content != "Hi" {
		t.Fatalf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].Sender != domain.SenderAgent || msgs[1].Content != string(reply) {
		t.Fatalf("unexpected second message: %+v", msgs[1])
	}
}

func TestBlankFramesIgnored(t *testing.T) {
	f := newGatewayFixture(t, agent.NewMockGenerator())
	user, token := f.register(t, "nayeem")
	conv, err := f.svc.CreateConversation(context.Background(), user.UserID, "", "")
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	conn := f.dial(t, token, conv.ConversationID)
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read init frame: %v", err)
	}

	for _, frame := range []string{"", "   ", "\n"} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatalf("write blank frame: %v", err)
		}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte("Hello")); err != nil {
		t.Fatalf("write message: %v", err)
	}

	// The only reply corresponds to the non-blank frame.
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	msgs, _, err := f.store.GetMessages(context.Background(), conv.ConversationID, 0, 10)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(msgs))
	}
}

func TestRejectsInvalidToken(t *testing.T) {
	f := newGatewayFixture(t, agent.NewMockGenerator())

	conn := f.dial(t, "bogus-token", "conv_missing")
	if code := expectClose(t, conn); code != websocket.ClosePolicyViolation {
		t.Fatalf("expected close code %d, got %d", websocket.ClosePolicyViolation, code)
	}
}

func TestRejectsForeignConversation(t *testing.T) {
	f := newGatewayFixture(t, agent.NewMockGenerator())
	owner, _ := f.register(t, "owner")
	_, intruderToken := f.register(t, "intruder")
	conv, err := f.svc.CreateConversation(context.Background(), owner.UserID, "Private", "")
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	conn := f.dial(t, intruderToken, conv.ConversationID)
	if code := expectClose(t, conn); code != websocket.ClosePolicyViolation {
		t.Fatalf("expected close code %d, got %d", websocket.ClosePolicyViolation, code)
	}
}

func TestStorageFaultClosesWithInternalError(t *testing.T) {
	f := newGatewayFixture(t, agent.NewMockGenerator())
	user, token := f.register(t, "nayeem")
	conv, err := f.svc.CreateConversation(context.Background(), user.UserID, "", "")
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	conn := f.dial(t, token, conv.ConversationID)
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read init frame: %v", err)
	}

	// Kill the store under the live connection; the next exchange hits a
	// storage fault.
	if err := f.store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("Hi")); err != nil {
		t.Fatalf("write message: %v", err)
	}

	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read error frame: %v", err)
	}
	var frame protocol.ErrorFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		t.Fatalf("decode error frame: %v", err)
	}
	if frame.Type != protocol.TypeError || frame.Message != protocol.GenericErrorMessage {
		t.Fatalf("unexpected error frame: %+v", frame)
	}

	if code := expectClose(t, conn); code != websocket.CloseInternalServerErr {
		t.Fatalf("expected close code %d, got %d", websocket.CloseInternalServerErr, code)
	}
}

func TestAgentFaultGetsFallbackNotClose(t *testing.T) {
	f := newGatewayFixture(t, faultyGenerator{})
	user, token := f.register(t, "nayeem")
	conv, err := f.svc.CreateConversation(context.Background(), user.UserID, "", "")
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	conn := f.dial(t, token, conv.ConversationID)
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read init frame: %v", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("Hi")); err != nil {
		t.Fatalf("write message: %v", err)
	}

	// A generation fault is absorbed into the fallback reply; the
	// connection stays open.
	_, reply, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if string(reply) != session.FallbackReply {
		t.Fatalf("expected fallback reply, got %q", reply)
	}
}
