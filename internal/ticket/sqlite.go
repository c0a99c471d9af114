package ticket

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Riv33R/Support-bot/pkg/protocol"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ioFailure("open", err)
	}
	// A single connection keeps writers from racing into SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, ioFailure("wal", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, ioFailure("busy timeout", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tickets (
			seq            INTEGER PRIMARY KEY AUTOINCREMENT,
			id             TEXT NOT NULL UNIQUE,
			submitter_id   TEXT NOT NULL,
			submitter_name TEXT NOT NULL DEFAULT '',
			body           TEXT NOT NULL,
			channel        TEXT NOT NULL DEFAULT '',
			created_at     TEXT
		);
	`)
	if err != nil {
		return ioFailure("migrate", err)
	}
	return nil
}

func (s *SQLiteStore) LoadAll() ([]protocol.Ticket, error) {
	rows, err := s.db.Query(`SELECT id, submitter_id, submitter_name, body, channel, created_at FROM tickets ORDER BY seq`)
	if err != nil {
		return nil, ioFailure("load", err)
	}
	defer rows.Close()

	tickets := []protocol.Ticket{}
	for rows.Next() {
		var t protocol.Ticket
		var submitter string
		var createdAt sql.NullString
		if err := rows.Scan(&t.ID, &submitter, &t.SubmitterName, &t.Body, &t.Channel, &createdAt); err != nil {
			return nil, ioFailure("load scan", err)
		}
		t.SubmitterID = protocol.SubmitterID(submitter)
		if createdAt.Valid && createdAt.String != "" {
			ts, err := time.Parse(time.RFC3339Nano, createdAt.String)
			if err != nil {
				return nil, ioFailure("load created_at of "+t.ID, err)
			}
			t.CreatedAt = ts
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, ioFailure("load rows", err)
	}
	return tickets, nil
}

func (s *SQLiteStore) Append(t protocol.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var createdAt *string
	if !t.CreatedAt.IsZero() {
		v := t.CreatedAt.UTC().Format(time.RFC3339Nano)
		createdAt = &v
	}

	_, err := s.db.Exec(`
		INSERT INTO tickets (id, submitter_id, submitter_name, body, channel, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID, string(t.SubmitterID), t.SubmitterName, t.Body, t.Channel, createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateID
		}
		return ioFailure("append", err)
	}
	return nil
}

func (s *SQLiteStore) Remove(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`DELETE FROM tickets WHERE id = ?`, id)
	if err != nil {
		return false, ioFailure("remove", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, ioFailure("remove rows affected", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("ticket store: close: %w", err)
	}
	return nil
}

// DB returns the underlying database connection (for testing or direct access).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
