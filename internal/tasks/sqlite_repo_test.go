package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTempDB(t *testing.T) *SQLiteRepo {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	dsn, err := SQLiteFileDSN(dbPath)
	if err != nil {
		t.Fatalf("dsn error: %v", err)
	}
	repo, err := NewSQLiteRepo(dsn)
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
		_ = os.RemoveAll(dir)
	})
	if err := repo.ApplyMigrations(context.Background()); err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	return repo
}

func TestSQLiteRepo_Contract(t *testing.T) {
	runRepositoryContract(t, newTempDB(t))
}

func TestSQLiteRepo_MigrationsAreIdempotent(t *testing.T) {
	repo := newTempDB(t)
	if err := repo.ApplyMigrations(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestSQLiteRepo_SameTimestampKeepsInsertionOrder(t *testing.T) {
	repo := newTempDB(t)
	ctx := context.Background()
	ts := "2026-05-05T05:05:05.000Z"
	for _, id := range []string{"a", "b", "c"} {
		if err := repo.Create(ctx, Task{ID: id, UserID: "u", ColumnID: ColumnTodo, Content: id, CreatedAt: ts}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	list, err := repo.List(ctx, "u")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].ID != "c" || list[2].ID != "a" {
		t.Fatalf("unexpected order: %+v", list)
	}
}
