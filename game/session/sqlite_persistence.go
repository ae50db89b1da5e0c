package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wricardo/mcp-training/busjam/game/service"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLitePersistence stores sessions and their event log in a SQLite database.
// It implements both SessionPersistence and service.EventLog.
type SQLitePersistence struct {
	db            *sql.DB
	configManager service.ConfigManager
}

// NewSQLitePersistence opens (or creates) the database at dbPath
func NewSQLitePersistence(dbPath string, configManager service.ConfigManager) (*SQLitePersistence, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := createSchemas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return &SQLitePersistence{db: db, configManager: configManager}, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			config_name TEXT NOT NULL,
			created_at TEXT NOT NULL,
			last_accessed_at TEXT NOT NULL,
			deadline TEXT,
			snapshot TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_session_id ON events(session_id);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database
func (sp *SQLitePersistence) Close() error {
	return sp.db.Close()
}

// Save upserts a session row
func (sp *SQLitePersistence) Save(session *service.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	configID, err := configIDFromName(sp.configManager, session.Config.Name)
	if err != nil {
		return fmt.Errorf("failed to get config ID: %w", err)
	}
	data := newPersistedData(session, configID)

	snapshot, err := json.Marshal(data.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	var deadline sql.NullString
	if data.Deadline != nil {
		deadline = sql.NullString{String: data.Deadline.Format(time.RFC3339Nano), Valid: true}
	}

	_, err = sp.db.Exec(`INSERT INTO sessions (id, config_name, created_at, last_accessed_at, deadline, snapshot)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			config_name = excluded.config_name,
			last_accessed_at = excluded.last_accessed_at,
			deadline = excluded.deadline,
			snapshot = excluded.snapshot`,
		strings.ToLower(data.ID),
		data.ConfigName,
		data.CreatedAt.Format(time.RFC3339Nano),
		data.LastAccessedAt.Format(time.RFC3339Nano),
		deadline,
		string(snapshot),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load reads a session row and rebuilds the session
func (sp *SQLitePersistence) Load(id string) (*service.Session, error) {
	var (
		configName, createdAt, lastAccessed, snapshot string
		deadline                                      sql.NullString
		storedID                                      string
	)
	row := sp.db.QueryRow(`SELECT id, config_name, created_at, last_accessed_at, deadline, snapshot
		FROM sessions WHERE id = ?`, strings.ToLower(id))
	if err := row.Scan(&storedID, &configName, &createdAt, &lastAccessed, &deadline, &snapshot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	data := PersistedSessionData{ID: storedID, ConfigName: configName}
	var err error
	if data.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	if data.LastAccessedAt, err = time.Parse(time.RFC3339Nano, lastAccessed); err != nil {
		return nil, fmt.Errorf("invalid last_accessed_at: %w", err)
	}
	if deadline.Valid {
		d, err := time.Parse(time.RFC3339Nano, deadline.String)
		if err != nil {
			return nil, fmt.Errorf("invalid deadline: %w", err)
		}
		data.Deadline = &d
	}
	if err := json.Unmarshal([]byte(snapshot), &data.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return restoreSession(data, sp.configManager)
}

// Delete removes a session and its events
func (sp *SQLitePersistence) Delete(id string) error {
	res, err := sp.db.Exec(`DELETE FROM sessions WHERE id = ?`, strings.ToLower(id))
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	if _, err := sp.db.Exec(`DELETE FROM events WHERE session_id = ?`, strings.ToLower(id)); err != nil {
		return fmt.Errorf("failed to delete session events: %w", err)
	}
	return nil
}

// ListAll returns all persisted session IDs
func (sp *SQLitePersistence) ListAll() ([]string, error) {
	rows, err := sp.db.Query(`SELECT id FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Exists checks if a session row exists
func (sp *SQLitePersistence) Exists(id string) bool {
	var one int
	err := sp.db.QueryRow(`SELECT 1 FROM sessions WHERE id = ?`, strings.ToLower(id)).Scan(&one)
	return err == nil
}

// AppendEvents writes events in order inside one transaction
func (sp *SQLitePersistence) AppendEvents(sessionID string, events []service.GameEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := sp.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO events (id, session_id, timestamp, event_type, payload) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, event := range events {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		if _, err := stmt.Exec(event.ID, strings.ToLower(sessionID), event.Timestamp.Format(time.RFC3339Nano), event.Type, string(payload)); err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}

	return tx.Commit()
}

// ListEvents returns the most recent events in the order they happened.
// A limit of zero or less returns everything.
func (sp *SQLitePersistence) ListEvents(sessionID string, limit int) ([]service.GameEvent, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := sp.db.Query(`SELECT payload FROM events WHERE session_id = ? ORDER BY rowid DESC LIMIT ?`,
		strings.ToLower(sessionID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []service.GameEvent
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var event service.GameEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}
