package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store on a local SQLite database. Conversations
// and profiles live in separate tables; message lists and fact lists are
// stored as JSON, mirroring how a single record is read-modified-written
// per turn (last write wins, no cross-turn locking).
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger sets the structured logger for the store.
func WithLogger(l *slog.Logger) Option {
	return func(s *SQLiteStore) {
		s.logger = l
	}
}

// WithClock overrides the time source (for TTL tests).
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) {
		s.now = now
	}
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			chat_id     TEXT PRIMARY KEY,
			messages    TEXT NOT NULL,
			last_active INTEGER NOT NULL,
			expires_at  INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create conversations table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			handle     TEXT PRIMARY KEY,
			name       TEXT NOT NULL DEFAULT '',
			facts      TEXT NOT NULL DEFAULT '[]',
			first_seen INTEGER NOT NULL,
			last_seen  INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create profiles table: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// History returns the conversation's messages, oldest first. Expired
// conversations read as empty and are deleted on the spot, so a record
// never outlives its TTL from a caller's point of view.
func (s *SQLiteStore) History(ctx context.Context, chatID string) ([]StoredMessage, error) {
	var raw string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT messages, expires_at FROM conversations WHERE chat_id = ?`, chatID,
	).Scan(&raw, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}

	if s.now().Unix() >= expiresAt {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE chat_id = ?`, chatID); err != nil {
			s.logger.Warn("delete expired conversation", "chat_id", chatID, "error", err)
		}
		return nil, nil
	}

	var messages []StoredMessage
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, fmt.Errorf("parse conversation messages: %w", err)
	}
	return messages, nil
}

// AppendMessage appends one message, trims to the last HistoryWindow
// entries and refreshes the TTL.
func (s *SQLiteStore) AppendMessage(ctx context.Context, chatID, role, content, handle string) error {
	messages, err := s.History(ctx, chatID)
	if err != nil {
		return err
	}

	messages = append(messages, StoredMessage{Role: role, Content: content, Handle: handle})
	if len(messages) > HistoryWindow {
		messages = messages[len(messages)-HistoryWindow:]
	}

	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal conversation messages: %w", err)
	}

	now := s.now().Unix()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (chat_id, messages, last_active, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			messages = excluded.messages,
			last_active = excluded.last_active,
			expires_at = excluded.expires_at
	`, chatID, string(raw), now, now+int64(ConversationTTL.Seconds()))
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

// ClearHistory removes the conversation entirely.
func (s *SQLiteStore) ClearHistory(ctx context.Context, chatID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	return nil
}

// Profile returns the profile for a handle, or nil if none exists.
func (s *SQLiteStore) Profile(ctx context.Context, handle string) (*UserProfile, error) {
	var name, factsRaw string
	var firstSeen, lastSeen int64
	err := s.db.QueryRowContext(ctx,
		`SELECT name, facts, first_seen, last_seen FROM profiles WHERE handle = ?`, handle,
	).Scan(&name, &factsRaw, &firstSeen, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}

	var facts []string
	if err := json.Unmarshal([]byte(factsRaw), &facts); err != nil {
		return nil, fmt.Errorf("parse profile facts: %w", err)
	}

	return &UserProfile{
		Handle:    handle,
		Name:      name,
		Facts:     facts,
		FirstSeen: time.Unix(firstSeen, 0),
		LastSeen:  time.Unix(lastSeen, 0),
	}, nil
}

// SetName records the person's name, skipping the write when unchanged.
func (s *SQLiteStore) SetName(ctx context.Context, handle, name string) (bool, error) {
	existing, err := s.Profile(ctx, handle)
	if err != nil {
		return false, err
	}
	if existing != nil && existing.Name == name {
		return false, nil
	}

	facts := []string{}
	if existing != nil {
		facts = existing.Facts
	}
	if err := s.upsertProfile(ctx, handle, name, facts, existing); err != nil {
		return false, err
	}
	return true, nil
}

// AddFact records a fact, skipping the write when the exact fact exists.
func (s *SQLiteStore) AddFact(ctx context.Context, handle, fact string) (bool, error) {
	existing, err := s.Profile(ctx, handle)
	if err != nil {
		return false, err
	}

	name := ""
	facts := []string{}
	if existing != nil {
		name = existing.Name
		facts = existing.Facts
	}
	for _, f := range facts {
		if f == fact {
			return false, nil
		}
	}
	facts = append(facts, fact)

	if err := s.upsertProfile(ctx, handle, name, facts, existing); err != nil {
		return false, err
	}
	return true, nil
}

// ClearProfile erases everything known about a handle.
func (s *SQLiteStore) ClearProfile(ctx context.Context, handle string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE handle = ?`, handle)
	if err != nil {
		return false, fmt.Errorf("clear profile: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) upsertProfile(ctx context.Context, handle, name string, facts []string, existing *UserProfile) error {
	factsRaw, err := json.Marshal(facts)
	if err != nil {
		return fmt.Errorf("marshal profile facts: %w", err)
	}

	now := s.now().Unix()
	firstSeen := now
	if existing != nil {
		firstSeen = existing.FirstSeen.Unix()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (handle, name, facts, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(handle) DO UPDATE SET
			name = excluded.name,
			facts = excluded.facts,
			last_seen = excluded.last_seen
	`, handle, name, string(factsRaw), firstSeen, now)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
