package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/NoManNayeem/AgenTick/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func seedUser(t *testing.T, s *SQLiteStore, userID, username string) {
	t.Helper()
	user := &domain.User{
		UserID:       userID,
		Username:     username,
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
}

func seedConversation(t *testing.T, s *SQLiteStore, convID, userID string) {
	t.Helper()
	now := time.Now().UTC()
	conv := &domain.Conversation{
		ConversationID: convID,
		UserID:         userID,
		Title:          domain.DefaultTitle,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.CreateConversation(context.Background(), conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
}

func TestSQLiteStoreUsers(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	seedUser(t, store, "u1", "nayeem")

	got, err := store.GetUserByUsername(ctx, "nayeem")
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if got == nil || got.UserID != "u1" {
		t.Fatalf("unexpected user: %+v", got)
	}

	got, err = store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got == nil || got.Username != "nayeem" {
		t.Fatalf("unexpected user: %+v", got)
	}

	missing, err := store.GetUserByUsername(ctx, "nobody")
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing user, got %+v", missing)
	}

	dup := &domain.User{UserID: "u2", Username: "nayeem", PasswordHash: "y", CreatedAt: time.Now().UTC()}
	if err := store.CreateUser(ctx, dup); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestSQLiteStoreListConversationsByUpdatedAt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedUser(t, store, "u1", "nayeem")
	seedConversation(t, store, "c1", "u1")
	seedConversation(t, store, "c2", "u1")

	// Appending to c1 must bump it above c2.
	if _, err := store.AppendMessage(ctx, "c1", domain.SenderUser, "hello", time.Now().UTC().Add(time.Second)); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	convs, err := store.ListConversations(ctx, "u1")
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	if convs[0].ConversationID != "c1" {
		t.Fatalf("expected c1 first, got %s", convs[0].ConversationID)
	}
}

func TestSQLiteStoreMessageOrderingTieBreak(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedUser(t, store, "u1", "nayeem")
	seedConversation(t, store, "c1", "u1")

	// Same timestamp for all three: read order must be insertion order.
	ts := time.Now().UTC()
	for _, content := range []string{"first", "second", "third"} {
		if _, err := store.AppendMessage(ctx, "c1", domain.SenderUser, content, ts); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	messages, hasMore, err := store.GetMessages(ctx, "c1", 0, 10)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if hasMore {
		t.Fatalf("unexpected has_more")
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i, want := range []string{"first", "second", "third"} {
		if messages[i].Content != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, messages[i].Content)
		}
	}
}

func TestSQLiteStoreAppendToMissingConversation(t *testing.T) {
	store := newTestStore(t)
	_, err := store.AppendMessage(context.Background(), "nope", domain.SenderUser, "hi", time.Now().UTC())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStoreDeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedUser(t, store, "u1", "nayeem")
	seedConversation(t, store, "c1", "u1")

	for i := 0; i < 3; i++ {
		if _, err := store.AppendMessage(ctx, "c1", domain.SenderUser, "msg", time.Now().UTC()); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	if err := store.DeleteConversation(ctx, "c1"); err != nil {
		t.Fatalf("DeleteConversation failed: %v", err)
	}

	conv, err := store.GetConversation(ctx, "c1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if conv != nil {
		t.Fatalf("expected conversation to be gone, got %+v", conv)
	}

	count, err := store.CountMessages(ctx, "c1")
	if err != nil {
		t.Fatalf("CountMessages failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 orphaned messages, got %d", count)
	}
}

func TestSQLiteStoreCascadeAcrossPooledConnections(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore("file:" + filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	seedUser(t, store, "u1", "nayeem")
	seedConversation(t, store, "c1", "u1")
	if _, err := store.AppendMessage(ctx, "c1", domain.SenderUser, "Hi", time.Now().UTC()); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	// Pin the first connection so the delete below runs on a different
	// pooled connection. Foreign-key enforcement is per connection in
	// SQLite, so the cascade must hold on every connection, not just the
	// one that happened to run the setup statements.
	pinned, err := store.db.Conn(ctx)
	if err != nil {
		t.Fatalf("failed to pin connection: %v", err)
	}
	defer pinned.Close()

	if err := store.DeleteConversation(ctx, "c1"); err != nil {
		t.Fatalf("DeleteConversation failed: %v", err)
	}

	count, err := store.CountMessages(ctx, "c1")
	if err != nil {
		t.Fatalf("CountMessages failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 orphaned messages after cascade delete, got %d", count)
	}
	msgs, _, err := store.GetMessages(ctx, "c1", 0, 10)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages for deleted conversation, got %d", len(msgs))
	}

	messages, _, err := store.GetMessages(ctx, "c1", 0, 10)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected no messages, got %d", len(messages))
	}

	if err := store.DeleteConversation(ctx, "c1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSQLiteStorePagination(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedUser(t, store, "u1", "nayeem")
	seedConversation(t, store, "c1", "u1")

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		if _, err := store.AppendMessage(ctx, "c1", domain.SenderUser, "m", base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	messages, hasMore, err := store.GetMessages(ctx, "c1", 0, 2)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(messages) != 2 || !hasMore {
		t.Fatalf("expected 2 messages with more, got %d (has_more=%v)", len(messages), hasMore)
	}

	messages, hasMore, err = store.GetMessages(ctx, "c1", 4, 2)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(messages) != 1 || hasMore {
		t.Fatalf("expected last page of 1, got %d (has_more=%v)", len(messages), hasMore)
	}

	count, err := store.CountMessages(ctx, "c1")
	if err != nil {
		t.Fatalf("CountMessages failed: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected count 5, got %d", count)
	}
}

func TestSQLiteStoreLimitClamped(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedUser(t, store, "u1", "nayeem")
	seedConversation(t, store, "c1", "u1")

	base := time.Now().UTC()
	for i := 0; i < MaxPageSize+10; i++ {
		if _, err := store.AppendMessage(ctx, "c1", domain.SenderUser, "m", base.Add(time.Duration(i)*time.Millisecond)); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	messages, hasMore, err := store.GetMessages(ctx, "c1", 0, 100000)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(messages) != MaxPageSize || !hasMore {
		t.Fatalf("expected clamped page of %d with more, got %d (has_more=%v)", MaxPageSize, len(messages), hasMore)
	}
}

func TestSQLiteStoreRecentMessages(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedUser(t, store, "u1", "nayeem")
	seedConversation(t, store, "c1", "u1")

	base := time.Now().UTC()
	contents := []string{"a", "b", "c", "d"}
	for i, content := range contents {
		if _, err := store.AppendMessage(ctx, "c1", domain.SenderUser, content, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	recent, err := store.RecentMessages(ctx, "c1", 2)
	if err != nil {
		t.Fatalf("RecentMessages failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(recent))
	}
	// Last two, oldest first.
	if recent[0].Content != "c" || recent[1].Content != "d" {
		t.Fatalf("unexpected window: %q, %q", recent[0].Content, recent[1].Content)
	}
}

func TestSQLiteStoreUpdateConversation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedUser(t, store, "u1", "nayeem")
	seedConversation(t, store, "c1", "u1")

	before, err := store.GetConversation(ctx, "c1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}

	title := "Trip planning"
	conv, err := store.UpdateConversation(ctx, "c1", &title, nil)
	if err != nil {
		t.Fatalf("UpdateConversation failed: %v", err)
	}
	if conv.Title != "Trip planning" {
		t.Fatalf("expected updated title, got %q", conv.Title)
	}
	if conv.UpdatedAt.Before(before.UpdatedAt) {
		t.Fatalf("updated_at went backwards: %v -> %v", before.UpdatedAt, conv.UpdatedAt)
	}

	topic := "travel"
	conv, err = store.UpdateConversation(ctx, "c1", nil, &topic)
	if err != nil {
		t.Fatalf("UpdateConversation failed: %v", err)
	}
	if conv.Title != "Trip planning" || conv.Topic != "travel" {
		t.Fatalf("unexpected conversation: %+v", conv)
	}

	if _, err := store.UpdateConversation(ctx, "nope", &title, nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
