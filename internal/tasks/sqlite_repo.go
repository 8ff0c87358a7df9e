package tasks

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepo(dsn string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Reasonable pragmas for an app server
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteRepo{db: db, now: time.Now}, nil
}

func (r *SQLiteRepo) Close() error { return r.db.Close() }

func (r *SQLiteRepo) Create(ctx context.Context, t Task) error {
	t, err := prepareNew(t, r.now)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, column_id, content, user_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO NOTHING
	`, t.ID, string(t.ColumnID), t.Content, t.UserID, t.CreatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (r *SQLiteRepo) List(ctx context.Context, userID string) ([]Task, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, column_id, content, user_id, created_at
		FROM tasks
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		var t Task
		var col string
		if err := rows.Scan(&t.ID, &col, &t.Content, &t.UserID, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.ColumnID = ColumnID(col)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) Update(ctx context.Context, userID, id string, p Patch) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	if p.Empty() {
		return nil
	}
	set, args := patchAssignments(p, func(int) string { return "?" })
	args = append(args, id, userID)
	_, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET `+set+` WHERE id = ? AND user_id = ?`, args...)
	return err
}

func (r *SQLiteRepo) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	return err
}

// ApplyMigrations ensures schema exists
func (r *SQLiteRepo) ApplyMigrations(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT NOT NULL,
	column_id TEXT NOT NULL,
	content TEXT NOT NULL,
	user_id TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (user_id, id)
);
	`)
	return err
}

// Helper to build DSN like: file:/absolute/path?_pragma=busy_timeout(5000)
func SQLiteFileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.ToSlash(abs) + "?_pragma=busy_timeout(5000)", nil
}

// patchAssignments renders the SET list for p. placeholder receives the
// 1-based argument position.
func patchAssignments(p Patch, placeholder func(int) string) (string, []any) {
	var cols []string
	var args []any
	if p.ColumnID != nil {
		args = append(args, string(*p.ColumnID))
		cols = append(cols, "column_id = "+placeholder(len(args)))
	}
	if p.Content != nil {
		args = append(args, *p.Content)
		cols = append(cols, "content = "+placeholder(len(args)))
	}
	return strings.Join(cols, ", "), args
}
