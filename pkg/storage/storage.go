// Package storage persists template documents in a local sqlite database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no template matches a lookup.
var ErrNotFound = errors.New("storage: template not found")

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS templates (
  id          INTEGER PRIMARY KEY,
  name        TEXT NOT NULL,
  course_code TEXT NOT NULL DEFAULT '',
  notes       TEXT,
  document    TEXT NOT NULL,
  created_at  DATETIME NOT NULL,
  modified_at DATETIME NOT NULL,
  UNIQUE(course_code, name)
);
CREATE INDEX IF NOT EXISTS idx_templates_course ON templates(course_code, modified_at);
	`); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// TemplateRow is one stored template. Document holds the JSON-encoded
// template document exactly as written by the template package.
type TemplateRow struct {
	Name       string
	CourseCode string
	Notes      string
	Document   string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// SaveTemplate inserts or replaces the template identified by
// (course_code, name), bumping modified_at on replace.
func (d *DB) SaveTemplate(ctx context.Context, row TemplateRow) error {
	now := time.Now().UTC()
	created := row.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err := d.sql.ExecContext(ctx, `
INSERT INTO templates(name, course_code, notes, document, created_at, modified_at)
VALUES(?,?,?,?,?,?)
ON CONFLICT(course_code, name) DO UPDATE SET
  notes = excluded.notes,
  document = excluded.document,
  modified_at = excluded.modified_at`,
		row.Name, row.CourseCode, row.Notes, row.Document, created, now)
	return err
}

// ListTemplates returns stored templates, optionally filtered by course code,
// ordered by course code then most recently modified.
func (d *DB) ListTemplates(ctx context.Context, courseCode string) ([]TemplateRow, error) {
	query := `SELECT name, course_code, COALESCE(notes,''), document, created_at, modified_at FROM templates`
	args := []any{}
	if courseCode != "" {
		query += ` WHERE course_code = ?`
		args = append(args, courseCode)
	}
	query += ` ORDER BY course_code, modified_at DESC`

	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TemplateRow
	for rows.Next() {
		var t TemplateRow
		if err := rows.Scan(&t.Name, &t.CourseCode, &t.Notes, &t.Document, &t.CreatedAt, &t.ModifiedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTemplate looks a template up by name, preferring the given course code
// when set, otherwise the most recently modified match.
func (d *DB) GetTemplate(ctx context.Context, name, courseCode string) (*TemplateRow, error) {
	query := `SELECT name, course_code, COALESCE(notes,''), document, created_at, modified_at FROM templates WHERE name = ?`
	args := []any{name}
	if courseCode != "" {
		query += ` AND course_code = ?`
		args = append(args, courseCode)
	}
	query += ` ORDER BY modified_at DESC LIMIT 1`

	var t TemplateRow
	err := d.sql.QueryRowContext(ctx, query, args...).
		Scan(&t.Name, &t.CourseCode, &t.Notes, &t.Document, &t.CreatedAt, &t.ModifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTemplate removes a template by name (and course code when set) and
// reports whether anything was deleted.
func (d *DB) DeleteTemplate(ctx context.Context, name, courseCode string) (bool, error) {
	query := `DELETE FROM templates WHERE name = ?`
	args := []any{name}
	if courseCode != "" {
		query += ` AND course_code = ?`
		args = append(args, courseCode)
	}
	res, err := d.sql.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
