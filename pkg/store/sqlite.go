package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/outline"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS diagrams (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	nodes      INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	document   TEXT NOT NULL
)`

// SQLiteStore keeps diagrams in a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
// If path is empty, defaults to ~/.config/mindmap/mindmap.db
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		path = filepath.Join(home, ".config", "mindmap", "mindmap.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", sqliteSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init database: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, id string, doc outline.Document) error {
	if err := mmerrors.ValidateID(id); err != nil {
		return err
	}
	rec := newRecord(id, doc)
	data, err := json.Marshal(rec.Document)
	if err != nil {
		return fmt.Errorf("marshal diagram: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO diagrams (id, title, nodes, updated_at, document) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			nodes = excluded.nodes,
			updated_at = excluded.updated_at,
			document = excluded.document`,
		rec.ID, rec.Title, rec.Nodes, rec.UpdatedAt.UnixMilli(), string(data))
	if err != nil {
		return fmt.Errorf("save diagram: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (outline.Document, error) {
	if err := mmerrors.ValidateID(id); err != nil {
		return outline.Document{}, err
	}
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM diagrams WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return outline.Document{}, notFound(id)
	}
	if err != nil {
		return outline.Document{}, fmt.Errorf("load diagram: %w", err)
	}
	var doc outline.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return outline.Document{}, mmerrors.Wrap(mmerrors.ErrCodeInvalidFormat, err, "parse diagram %q", id)
	}
	return doc, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM diagrams WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete diagram: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, nodes, updated_at FROM diagrams ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list diagrams: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			ms int64
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Nodes, &ms); err != nil {
			return nil, fmt.Errorf("scan diagram: %w", err)
		}
		e.UpdatedAt = time.UnixMilli(ms).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

var _ Store = (*SQLiteStore)(nil)
