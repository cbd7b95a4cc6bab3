package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/NoManNayeem/AgenTick/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", normalizeDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys so conversation deletes cascade to messages
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT 'Untitled Conversation',
			topic TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, updated_at)`,
		// seq is the insertion-order tie-break for messages sharing a timestamp.
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT NOT NULL UNIQUE,
			conversation_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(conversation_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at, seq)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateUser creates a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.UserID, user.Username, user.PasswordHash, user.CreatedAt)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return domain.ErrAlreadyExists
	}
	return err
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT user_id, username, password_hash, created_at FROM users WHERE user_id = ?`, userID))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT user_id, username, password_hash, created_at FROM users WHERE username = ?`, username))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.UserID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateConversation creates a new conversation.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	var topic sql.NullString
	if conv.Topic != "" {
		topic = sql.NullString{String: conv.Topic, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (conversation_id, user_id, title, topic, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		conv.ConversationID, conv.UserID, conv.Title, topic, conv.CreatedAt, conv.UpdatedAt)
	return err
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	var topic sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT conversation_id, user_id, title, topic, created_at, updated_at FROM conversations WHERE conversation_id = ?`,
		conversationID).Scan(&conv.ConversationID, &conv.UserID, &conv.Title, &topic, &conv.CreatedAt, &conv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if topic.Valid {
		conv.Topic = topic.String
	}
	return &conv, nil
}

// ListConversations retrieves all conversations for a user, most recently
// updated first.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id, user_id, title, topic, created_at, updated_at FROM conversations
		 WHERE user_id = ? ORDER BY updated_at DESC, created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		var topic sql.NullString
		if err := rows.Scan(&conv.ConversationID, &conv.UserID, &conv.Title, &topic, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, err
		}
		if topic.Valid {
			conv.Topic = topic.String
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// UpdateConversation updates the title and/or topic of a conversation and
// touches updated_at. Nil fields are left unchanged.
func (s *SQLiteStore) UpdateConversation(ctx context.Context, conversationID string, title, topic *string) (*domain.Conversation, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC()}
	if title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *title)
	}
	if topic != nil {
		sets = append(sets, "topic = ?")
		args = append(args, *topic)
	}
	args = append(args, conversationID)

	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET `+strings.Join(sets, ", ")+` WHERE conversation_id = ?`, args...)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domain.ErrNotFound
	}
	return s.GetConversation(ctx, conversationID)
}

// DeleteConversation deletes a conversation and, via the foreign key
// cascade, every message that references it.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, conversationID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AppendMessage appends a message to a conversation's log and bumps the
// conversation's updated_at in the same transaction. Returns ErrNotFound
// if the conversation does not exist.
func (s *SQLiteStore) AppendMessage(ctx context.Context, conversationID string, sender domain.Sender, content string, ts time.Time) (*domain.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE conversation_id = ?`, ts, conversationID)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domain.ErrNotFound
	}

	msg := &domain.Message{
		MessageID:      "msg_" + uuidShort(),
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		CreatedAt:      ts,
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (message_id, conversation_id, sender, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.MessageID, msg.ConversationID, msg.Sender, msg.Content, msg.CreatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return msg, nil
}

// GetMessages retrieves one page of a conversation's log ordered by
// timestamp, ties broken by insertion order. The limit is clamped to
// MaxPageSize; a limit <= 0 selects DefaultPageSize.
func (s *SQLiteStore) GetMessages(ctx context.Context, conversationID string, offset, limit int) ([]domain.Message, bool, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	// Fetch one extra row to decide has_more without a second query.
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, conversation_id, sender, content, created_at FROM messages
		 WHERE conversation_id = ? ORDER BY created_at ASC, seq ASC LIMIT ? OFFSET ?`,
		conversationID, limit+1, offset)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, false, err
	}
	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}
	return messages, hasMore, nil
}

// RecentMessages retrieves the last n messages of a conversation in
// chronological order. Used to seed agent session state on cold start.
func (s *SQLiteStore) RecentMessages(ctx context.Context, conversationID string, n int) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, conversation_id, sender, content, created_at FROM messages
		 WHERE conversation_id = ? ORDER BY created_at DESC, seq DESC LIMIT ?`,
		conversationID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	// Reverse back into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// CountMessages returns the number of messages in a conversation.
func (s *SQLiteStore) CountMessages(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID).Scan(&count)
	return count, err
}

// normalizeDSN forces foreign-key enforcement onto the DSN. SQLite applies
// the foreign_keys pragma per connection, so it must ride the DSN to reach
// every connection in the pool, not just the one a one-off Exec lands on.
func normalizeDSN(dsn string) string {
	if dsn == ":memory:" || strings.Contains(dsn, "_foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

func uuidShort() string {
	return uuid.New().String()[:8]
}

func scanMessages(rows *sql.Rows) ([]domain.Message, error) {
	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.MessageID, &msg.ConversationID, &msg.Sender, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
