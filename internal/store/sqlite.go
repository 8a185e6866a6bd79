package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key           TEXT PRIMARY KEY,
	value         TEXT NOT NULL,
	updated_at_ns INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS decode_history (
	result_id     TEXT PRIMARY KEY,
	cycle         INTEGER NOT NULL,
	created_at_ns INTEGER NOT NULL,
	payload       TEXT NOT NULL
);
`

// SQLite stores settings and decode history in a SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. Use
// ":memory:" for a throwaway store.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Load decodes the value saved under key into v.
func (s *SQLite) Load(key string, v any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(value), v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

// Save encodes v and writes it under key, replacing any previous value.
func (s *SQLite) Save(key string, v any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO settings (key, value, updated_at_ns) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at_ns = excluded.updated_at_ns
	`, key, string(data), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// HistoryEntry is one recorded decode result.
type HistoryEntry struct {
	ResultID  string
	Cycle     int64
	CreatedAt time.Time
	Payload   json.RawMessage
}

// AppendHistory records a decode result payload.
func (s *SQLite) AppendHistory(resultID string, cycle int64, at time.Time, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO decode_history (result_id, cycle, created_at_ns, payload) VALUES (?, ?, ?, ?)
	`, resultID, cycle, at.UnixNano(), string(data))
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// RecentHistory returns up to limit entries, newest first.
func (s *SQLite) RecentHistory(limit int) ([]HistoryEntry, error) {
	rows, err := s.db.Query(`
		SELECT result_id, cycle, created_at_ns, payload
		FROM decode_history
		ORDER BY created_at_ns DESC, cycle DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var ns int64
		var payload string
		if err := rows.Scan(&e.ResultID, &e.Cycle, &ns, &payload); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.CreatedAt = time.Unix(0, ns)
		e.Payload = json.RawMessage(payload)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
