package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/notes/internal/apperr"
	"github.com/starford/notes/internal/models"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	tags       TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_updated_at ON notes(updated_at DESC);
`

const selectNoteSQL = `SELECT id, title, content, tags, created_at, updated_at FROM notes`

// SQLite implements Gateway on a single-table SQLite database. Each row holds
// one note document; tags are stored as a JSON array.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database file and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}
	if _, err := conn.Exec(sqliteSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply sqlite schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Find returns matching notes ordered by updated_at descending.
func (s *SQLite) Find(ctx context.Context, f models.Filter) ([]models.Note, error) {
	query := selectNoteSQL
	var args []any
	if f.Tag != "" {
		query += ` WHERE EXISTS (SELECT 1 FROM json_each(notes.tags) WHERE json_each.value = ?)`
		args = append(args, f.Tag)
	}
	query += ` ORDER BY updated_at DESC, rowid DESC`

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: sqlite find: %w", err)
	}
	defer rows.Close()

	out := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// Get returns a single note by id.
func (s *SQLite) Get(ctx context.Context, id string) (*models.Note, error) {
	return s.get(ctx, s.conn, id)
}

// Insert stores n under a new ObjectID-formatted id.
func (s *SQLite) Insert(ctx context.Context, n *models.Note) error {
	id := primitive.NewObjectID().Hex()
	tags := models.NonNil(n.Tags)
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("store: encode tags: %w", err)
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO notes (id, title, content, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, n.Title, n.Content, string(tagsJSON), n.CreatedAt.UnixMilli(), n.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: sqlite insert: %w", err)
	}
	n.ID = id
	n.Tags = tags
	return nil
}

// Update applies p inside a transaction and returns the stored row.
func (s *SQLite) Update(ctx context.Context, id string, p models.NotePatch, updatedAt time.Time) (*models.Note, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	n, err := s.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	p.Apply(n)
	n.UpdatedAt = updatedAt

	tagsJSON, err := json.Marshal(n.Tags)
	if err != nil {
		return nil, fmt.Errorf("store: encode tags: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE notes SET title = ?, content = ?, tags = ?, updated_at = ?
		WHERE id = ?
	`, n.Title, n.Content, string(tagsJSON), n.UpdatedAt.UnixMilli(), id)
	if err != nil {
		return nil, fmt.Errorf("store: sqlite update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return n, nil
}

// Delete removes a note and returns its last state.
func (s *SQLite) Delete(ctx context.Context, id string) (*models.Note, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	n, err := s.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("store: sqlite delete: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLite) Close(_ context.Context) error {
	return s.conn.Close()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLite) get(ctx context.Context, q queryer, id string) (*models.Note, error) {
	row := q.QueryRowContext(ctx, selectNoteSQL+` WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(sc scanner) (*models.Note, error) {
	var (
		n                    models.Note
		tagsJSON             string
		createdAt, updatedAt int64
	)
	if err := sc.Scan(&n.ID, &n.Title, &n.Content, &tagsJSON, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("store: sqlite scan: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &n.Tags); err != nil {
		return nil, fmt.Errorf("store: decode tags: %w", err)
	}
	n.Tags = models.NonNil(n.Tags)
	n.CreatedAt = time.UnixMilli(createdAt).UTC()
	n.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &n, nil
}
