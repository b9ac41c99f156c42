package todo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS todos (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	priority     TEXT NOT NULL DEFAULT 'medium',
	completed    INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL,
	completed_at TEXT
);
`

// SQLiteStore persists todos in a sqlite database file. Listing loads a
// snapshot and reuses the shared filter so ordering matches MemoryStore
// exactly; the table is small by design.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (and if needed creates) the database at path.
// ":memory:" works for tests.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Concurrent writes on one connection; sqlite serializes internally.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, title, description string, priority Priority) (Todo, error) {
	if priority == "" {
		priority = PriorityMedium
	}
	now := s.now().UTC()
	t := Todo{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO todos (id, title, description, priority, completed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		t.ID, t.Title, t.Description, string(t.Priority),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Todo, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, priority, completed, created_at, updated_at, completed_at
		 FROM todos WHERE id = ?`, id)
	t, err := scanTodo(row)
	if err == sql.ErrNoRows {
		return Todo{}, false, nil
	}
	if err != nil {
		return Todo{}, false, err
	}
	return t, true, nil
}

func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]Todo, error) {
	todos, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return applyFilter(todos, f), nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, u Update) (Todo, bool, error) {
	t, ok, err := s.Get(ctx, id)
	if err != nil || !ok {
		return Todo{}, ok, err
	}
	now := s.now().UTC()
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.Completed != nil {
		setCompleted(&t, *u.Completed, now)
	}
	t.UpdatedAt = now
	if err := s.write(ctx, t); err != nil {
		return Todo{}, false, err
	}
	return t, true, nil
}

func (s *SQLiteStore) Toggle(ctx context.Context, id string) (Todo, bool, error) {
	t, ok, err := s.Get(ctx, id)
	if err != nil || !ok {
		return Todo{}, ok, err
	}
	now := s.now().UTC()
	setCompleted(&t, !t.Completed, now)
	t.UpdatedAt = now
	if err := s.write(ctx, t); err != nil {
		return Todo{}, false, err
	}
	return t, true, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete todo: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	todos, err := s.all(ctx)
	if err != nil {
		return Stats{}, err
	}
	return computeStats(todos), nil
}

func (s *SQLiteStore) Clear(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM todos`)
	if err != nil {
		return 0, fmt.Errorf("clear todos: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) all(ctx context.Context) ([]Todo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, priority, completed, created_at, updated_at, completed_at
		 FROM todos`)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	var todos []Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

func (s *SQLiteStore) write(ctx context.Context, t Todo) error {
	var completedAt any
	if t.CompletedAt != nil {
		completedAt = formatTime(*t.CompletedAt)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE todos
		 SET title = ?, description = ?, priority = ?, completed = ?, updated_at = ?, completed_at = ?
		 WHERE id = ?`,
		t.Title, t.Description, string(t.Priority), boolToInt(t.Completed),
		formatTime(t.UpdatedAt), completedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (Todo, error) {
	var t Todo
	var priority string
	var completed int
	var createdAt, updatedAt string
	var completedAt sql.NullString
	err := row.Scan(&t.ID, &t.Title, &t.Description, &priority, &completed,
		&createdAt, &updatedAt, &completedAt)
	if err != nil {
		return Todo{}, err
	}
	t.Priority = Priority(priority)
	t.Completed = completed != 0
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return Todo{}, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Todo{}, err
	}
	if completedAt.Valid {
		at, err := parseTime(completedAt.String)
		if err != nil {
			return Todo{}, err
		}
		t.CompletedAt = &at
	}
	return t, nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
