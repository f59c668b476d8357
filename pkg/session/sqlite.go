package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the history of saved sessions in a SQLite table
type SQLiteStore struct {
	db   *sql.DB
	name string
}

// OpenSQLite opens (or creates) the database at path and ensures schema
func OpenSQLite(path, name string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db, name: name}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            seq INTEGER NOT NULL,
            saved_at TEXT NOT NULL,
            document_json TEXT NOT NULL
        );`)
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	return nil
}

// Save appends doc to the history of the store's name
func (s *SQLiteStore) Save(doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error marshaling session: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO sessions (id, name, seq, saved_at, document_json)
         VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM sessions WHERE name = ?), ?, ?)`,
		uuid.NewString(), s.name, s.name, time.Now().UTC().Format(time.RFC3339Nano), string(data))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load returns the most recently saved session of the store's name
func (s *SQLiteStore) Load() (Document, error) {
	var doc Document
	var data string
	err := s.db.QueryRow(
		`SELECT document_json FROM sessions WHERE name = ? ORDER BY seq DESC LIMIT 1`,
		s.name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, ErrNoSession
	}
	if err != nil {
		return doc, fmt.Errorf("failed to load session: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return doc, fmt.Errorf("error parsing session: %w", err)
	}
	return doc, nil
}

// History returns every record saved under the store's name, oldest first
func (s *SQLiteStore) History() ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT id, saved_at, document_json FROM sessions WHERE name = ? ORDER BY seq`,
		s.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec     Record
			savedAt string
			data    string
		)
		if err := rows.Scan(&rec.ID, &savedAt, &data); err != nil {
			return nil, err
		}
		if rec.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &rec.Document); err != nil {
			return nil, err
		}
		rec.Name = s.name
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
