package tasks

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepo is the Repository used when the board runs against a shared
// database server.
type PostgresRepo struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgresRepo(ctx context.Context, databaseURL string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresRepo{pool: pool, now: time.Now}, nil
}

func (r *PostgresRepo) Close() error {
	r.pool.Close()
	return nil
}

// ApplyMigrations ensures schema exists. seq only orders rows created with
// the same timestamp.
func (r *PostgresRepo) ApplyMigrations(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT NOT NULL,
	column_id TEXT NOT NULL,
	content TEXT NOT NULL,
	user_id TEXT NOT NULL,
	created_at TEXT NOT NULL,
	seq BIGSERIAL,
	PRIMARY KEY (user_id, id)
)`)
	return err
}

func (r *PostgresRepo) Create(ctx context.Context, t Task) error {
	t, err := prepareNew(t, r.now)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO tasks (id, column_id, content, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, id) DO NOTHING
	`, t.ID, string(t.ColumnID), t.Content, t.UserID, t.CreatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (r *PostgresRepo) List(ctx context.Context, userID string) ([]Task, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, column_id, content, user_id, created_at
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC
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

func (r *PostgresRepo) Update(ctx context.Context, userID, id string, p Patch) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	if p.Empty() {
		return nil
	}
	set, args := patchAssignments(p, func(n int) string { return "$" + strconv.Itoa(n) })
	n := len(args)
	args = append(args, id, userID)
	_, err := r.pool.Exec(ctx,
		`UPDATE tasks SET `+set+
			` WHERE id = $`+strconv.Itoa(n+1)+` AND user_id = $`+strconv.Itoa(n+2), args...)
	return err
}

func (r *PostgresRepo) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	return err
}
