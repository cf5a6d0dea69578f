// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     history
// Description: Chat history persistence used as translator session context
// Author:      Mike Stoffels
// Created:     2026-01-15
// License:     MIT
// ============================================================================

package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Roles used in stored messages
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation
type Message struct {
	ID           string    `json:"id"`
	Conversation string    `json:"conversation"`
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists named conversations
type Store interface {
	// Append adds a message to a conversation, creating it if needed
	Append(ctx context.Context, conversation, role, content string) (*Message, error)
	// Recent returns the last limit messages in chronological order; limit <= 0 returns all
	Recent(ctx context.Context, conversation string, limit int) ([]Message, error)
	// Reset deletes all messages of a conversation
	Reset(ctx context.Context, conversation string) error
	Close() error
}

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// OpenSQLite opens (and if necessary creates) a history database at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		name TEXT PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		conversation TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (conversation) REFERENCES conversations(name) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a message to a conversation
func (s *SQLiteStore) Append(ctx context.Context, conversation, role, content string) (*Message, error) {
	if conversation == "" {
		return nil, fmt.Errorf("conversation name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := &Message{
		ID:           uuid.NewString(),
		Conversation: conversation,
		Role:         role,
		Content:      content,
		CreatedAt:    time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (name, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at
	`, conversation, msg.CreatedAt, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert conversation: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.ID, msg.Conversation, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}
	return msg, nil
}

// Recent returns the last limit messages of a conversation, oldest first
func (s *SQLiteStore) Recent(ctx context.Context, conversation string, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, conversation, role, content, created_at
		FROM messages
		WHERE conversation = ?
		ORDER BY seq DESC
	`
	args := []interface{}{conversation}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.Conversation, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Reset deletes all messages of a conversation
func (s *SQLiteStore) Reset(ctx context.Context, conversation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation = ?`, conversation); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// MemoryStore is an in-memory Store for tests and one-off sessions
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]Message
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string][]Message)}
}

func (s *MemoryStore) Append(ctx context.Context, conversation, role, content string) (*Message, error) {
	if conversation == "" {
		return nil, fmt.Errorf("conversation name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := Message{
		ID:           uuid.NewString(),
		Conversation: conversation,
		Role:         role,
		Content:      content,
		CreatedAt:    time.Now().UTC(),
	}
	s.messages[conversation] = append(s.messages[conversation], msg)
	return &msg, nil
}

func (s *MemoryStore) Recent(ctx context.Context, conversation string, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[conversation]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) Reset(ctx context.Context, conversation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, conversation)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
