package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by Get when no record has the given id.
var ErrNotFound = errors.New("record not found")

// DefaultListHint caps the result preallocation in List.
const DefaultListHint = 64

// Store is the process-wide history store handle. It owns the persisted
// records; callers hold only transient copies.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the sqlite database at path, creating the parent
// directory if needed. WAL mode plus a busy timeout serializes concurrent
// writers at the store level.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory %s: %w", dir, err)
		}
	}

	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db at %s: %w", path, err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping db at %s: %w", path, err)
	}
	return &Store{db: conn}, nil
}

// Init creates the backing schema if absent.
func (s *Store) Init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chat_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			prompt_id TEXT NOT NULL,
			prompt_name TEXT NOT NULL,
			model_id TEXT NOT NULL,
			model_name TEXT NOT NULL,
			user_message TEXT NOT NULL,
			assistant_message TEXT NOT NULL,
			has_images INTEGER DEFAULT 0,
			created_at TEXT DEFAULT (datetime('now', 'localtime'))
		);

		CREATE INDEX IF NOT EXISTS idx_chat_history_created_at ON chat_history(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_chat_history_prompt_id ON chat_history(prompt_id);
	`)
	return err
}

// Close is the shutdown path; pending sqlite work is flushed.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert appends one completed exchange and returns the store-assigned id.
// Duplicate content is legal; records are never updated in place.
func (s *Store) Insert(r ChatRecordInput) (int64, error) {
	hasImages := 0
	if r.HasImages {
		hasImages = 1
	}
	res, err := s.db.Exec(`
		INSERT INTO chat_history (prompt_id, prompt_name, model_id, model_name, user_message, assistant_message, has_images)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.PromptID, r.PromptName, r.ModelID, r.ModelName, r.UserMessage, r.AssistantMessage, hasImages,
	)
	if err != nil {
		return 0, fmt.Errorf("insert chat record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get chat record id: %w", err)
	}
	return id, nil
}

// List returns up to limit records starting at offset, newest first
// (created_at descending, ties broken by id descending), plus the total
// unfiltered record count for pagination.
func (s *Store) List(limit, offset int) ([]ChatRecord, int, error) {
	rows, err := s.db.Query(`
		SELECT id, prompt_id, prompt_name, model_id, model_name, user_message, assistant_message, has_images, created_at
		FROM chat_history
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list chat records: %w", err)
	}
	defer rows.Close()

	// limit is caller-supplied and unbounded; never use it as an
	// allocation hint
	hint := limit
	if hint > DefaultListHint {
		hint = DefaultListHint
	}
	records := make([]ChatRecord, 0, hint)
	for rows.Next() {
		var r ChatRecord
		if err := rows.Scan(&r.ID, &r.PromptID, &r.PromptName, &r.ModelID, &r.ModelName,
			&r.UserMessage, &r.AssistantMessage, &r.HasImages, &r.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan chat record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list chat records: %w", err)
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chat_history`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count chat records: %w", err)
	}
	return records, total, nil
}

// Get returns the record with the given id, or ErrNotFound.
func (s *Store) Get(id int64) (*ChatRecord, error) {
	var r ChatRecord
	err := s.db.QueryRow(`
		SELECT id, prompt_id, prompt_name, model_id, model_name, user_message, assistant_message, has_images, created_at
		FROM chat_history WHERE id = ?`, id,
	).Scan(&r.ID, &r.PromptID, &r.PromptName, &r.ModelID, &r.ModelName,
		&r.UserMessage, &r.AssistantMessage, &r.HasImages, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat record %d: %w", id, err)
	}
	return &r, nil
}

// Delete removes the record with the given id. Deleting a missing id is
// not an error.
func (s *Store) Delete(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM chat_history WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete chat record %d: %w", id, err)
	}
	return nil
}
