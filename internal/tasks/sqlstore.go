package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLStore persists tasks in a SQLite database.
type SQLStore struct {
	db *sql.DB
}

var _ Store = (*SQLStore)(nil)

// OpenSQLStore opens (or creates) the database at path and migrates the schema.
func OpenSQLStore(path string) (*SQLStore, error) {
	if path != MemoryPath && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// One connection: SQLite has a single writer, and an in-memory
	// database only lives as long as its connection.
	db.SetMaxOpenConns(1)

	s := &SQLStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	const schema = `
		PRAGMA busy_timeout = 5000;
		CREATE TABLE IF NOT EXISTS tasks (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			title     TEXT    NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// List returns all tasks in id order.
func (s *SQLStore) List(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, completed FROM tasks ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	list := []Task{}
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Completed); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return list, nil
}

// Get returns the task with the given id.
func (s *SQLStore) Get(ctx context.Context, id int64) (Task, error) {
	return getTask(ctx, s.db, id)
}

// Create validates and inserts a new task.
func (s *SQLStore) Create(ctx context.Context, d Draft) (Task, error) {
	t := Task{Title: d.Title, Completed: d.Completed}
	if err := Validate(t); err != nil {
		return Task{}, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (title, completed) VALUES (?, ?)`, t.Title, t.Completed)
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

// Update merges p into the task with the given id.
// The read, validation and write happen in one transaction.
func (s *SQLStore) Update(ctx context.Context, id int64, p Patch) (Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Task{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	current, err := getTask(ctx, tx, id)
	if err != nil {
		return Task{}, err
	}

	merged := p.Apply(current)
	if err := Validate(merged); err != nil {
		return Task{}, err
	}

	if !p.Empty() {
		if _, err := tx.ExecContext(ctx,
			`UPDATE tasks SET title = ?, completed = ? WHERE id = ?`,
			merged.Title, merged.Completed, id); err != nil {
			return Task{}, fmt.Errorf("update task %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Task{}, fmt.Errorf("commit update: %w", err)
	}
	return merged, nil
}

// Delete removes the task with the given id.
func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored tasks.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTask(ctx context.Context, q queryer, id int64) (Task, error) {
	var t Task
	err := q.QueryRowContext(ctx,
		`SELECT id, title, completed FROM tasks WHERE id = ?`, id).
		Scan(&t.ID, &t.Title, &t.Completed)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}
