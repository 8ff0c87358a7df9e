package tasks

import (
	"context"
	"errors"
	"testing"
)

// runRepositoryContract checks the behaviour every Repository shares.
func runRepositoryContract(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	if err := repo.Create(ctx, Task{UserID: "alice", ColumnID: ColumnTodo, Content: "x"}); !errors.Is(err, ErrIDRequired) {
		t.Fatalf("expected ErrIDRequired, got %v", err)
	}
	if err := repo.Create(ctx, Task{UserID: "alice", ID: "a", Content: "x"}); !errors.Is(err, ErrColumnRequired) {
		t.Fatalf("expected ErrColumnRequired, got %v", err)
	}
	if err := repo.Create(ctx, Task{UserID: "alice", ID: "a", ColumnID: ColumnTodo, Content: "  "}); !errors.Is(err, ErrContentRequired) {
		t.Fatalf("expected ErrContentRequired, got %v", err)
	}

	mustCreate := func(tk Task) {
		t.Helper()
		if err := repo.Create(ctx, tk); err != nil {
			t.Fatalf("create %s: %v", tk.ID, err)
		}
	}
	mustCreate(Task{ID: "t1", UserID: "alice", ColumnID: ColumnTodo, Content: "first", CreatedAt: "2026-01-01T00:00:00.000Z"})
	mustCreate(Task{ID: "t2", UserID: "alice", ColumnID: ColumnTodo, Content: "second", CreatedAt: "2026-01-02T00:00:00.000Z"})
	// same id under another user is a separate row
	mustCreate(Task{ID: "t1", UserID: "bob", ColumnID: "backlog", Content: "bob's"})

	if err := repo.Create(ctx, Task{ID: "t1", UserID: "alice", ColumnID: ColumnTodo, Content: "dup"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	list, err := repo.List(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 tasks for alice, got %d: %+v", len(list), list)
	}
	if list[0].ID != "t2" || list[1].ID != "t1" {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if list[1].UserID != "alice" || list[1].Content != "first" {
		t.Fatalf("unexpected row: %+v", list[1])
	}

	bob, err := repo.List(ctx, "bob")
	if err != nil {
		t.Fatalf("list bob: %v", err)
	}
	if len(bob) != 1 || bob[0].Content != "bob's" || bob[0].ColumnID != "backlog" {
		t.Fatalf("unexpected bob rows: %+v", bob)
	}
	if bob[0].CreatedAt == "" {
		t.Fatalf("expected defaulted createdAt")
	}

	col := ColumnInProgress
	if err := repo.Update(ctx, "alice", "t1", Patch{ColumnID: &col}); err != nil {
		t.Fatalf("update: %v", err)
	}
	content := "renamed"
	if err := repo.Update(ctx, "alice", "t2", Patch{Content: &content}); err != nil {
		t.Fatalf("update content: %v", err)
	}
	// not bob's row, and a missing row: both silent
	if err := repo.Update(ctx, "mallory", "t1", Patch{ColumnID: &col}); err != nil {
		t.Fatalf("update other user: %v", err)
	}
	if err := repo.Update(ctx, "alice", "missing", Patch{ColumnID: &col}); err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if err := repo.Update(ctx, "alice", "t1", Patch{}); err != nil {
		t.Fatalf("empty patch: %v", err)
	}

	list, _ = repo.List(ctx, "alice")
	byID := map[string]Task{}
	for _, tk := range list {
		byID[tk.ID] = tk
	}
	if byID["t1"].ColumnID != ColumnInProgress || byID["t1"].Content != "first" {
		t.Fatalf("t1 not updated as expected: %+v", byID["t1"])
	}
	if byID["t2"].Content != "renamed" || byID["t2"].ColumnID != ColumnTodo {
		t.Fatalf("t2 not updated as expected: %+v", byID["t2"])
	}
	bob, _ = repo.List(ctx, "bob")
	if bob[0].ColumnID != "backlog" {
		t.Fatalf("bob's row changed: %+v", bob[0])
	}

	if err := repo.Delete(ctx, "alice", "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, "alice", "t1"); err != nil {
		t.Fatalf("second delete should be silent: %v", err)
	}
	list, _ = repo.List(ctx, "alice")
	if len(list) != 1 || list[0].ID != "t2" {
		t.Fatalf("expected only t2 left, got %+v", list)
	}
	bob, _ = repo.List(ctx, "bob")
	if len(bob) != 1 {
		t.Fatalf("delete crossed users: %+v", bob)
	}

	empty, err := repo.List(ctx, "nobody")
	if err != nil {
		t.Fatalf("list nobody: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}

	// createdAt in any RFC 3339 form orders by instant, not by text
	mustCreate(Task{ID: "older", UserID: "carol", ColumnID: ColumnTodo, Content: "o", CreatedAt: "2026-01-01T10:00:00Z"})
	mustCreate(Task{ID: "newer", UserID: "carol", ColumnID: ColumnTodo, Content: "n", CreatedAt: "2026-01-01T10:00:00.900Z"})
	mustCreate(Task{ID: "offset", UserID: "carol", ColumnID: ColumnTodo, Content: "f", CreatedAt: "2026-01-01T12:30:00+05:00"})
	carol, err := repo.List(ctx, "carol")
	if err != nil {
		t.Fatalf("list carol: %v", err)
	}
	if len(carol) != 3 || carol[0].ID != "newer" || carol[1].ID != "older" || carol[2].ID != "offset" {
		t.Fatalf("expected [newer older offset], got %+v", carol)
	}
	if carol[2].CreatedAt != "2026-01-01T07:30:00.000Z" {
		t.Fatalf("expected createdAt stored in UTC, got %q", carol[2].CreatedAt)
	}

	if err := repo.Create(ctx, Task{ID: "bad", UserID: "carol", ColumnID: ColumnTodo, Content: "x", CreatedAt: "01/02/2026"}); !errors.Is(err, ErrCreatedAtInvalid) {
		t.Fatalf("expected ErrCreatedAtInvalid, got %v", err)
	}
	carol, _ = repo.List(ctx, "carol")
	if len(carol) != 3 {
		t.Fatalf("invalid createdAt was stored: %+v", carol)
	}
}

func TestInMemoryRepo_Contract(t *testing.T) {
	runRepositoryContract(t, NewInMemoryRepo())
}

func TestInMemoryRepo_SameTimestampKeepsInsertionOrder(t *testing.T) {
	repo := NewInMemoryRepo()
	ctx := context.Background()
	ts := "2026-05-05T05:05:05.000Z"
	for _, id := range []string{"a", "b", "c"} {
		if err := repo.Create(ctx, Task{ID: id, UserID: "u", ColumnID: ColumnTodo, Content: id, CreatedAt: ts}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	list, _ := repo.List(ctx, "u")
	if list[0].ID != "c" || list[1].ID != "b" || list[2].ID != "a" {
		t.Fatalf("unexpected order: %+v", list)
	}
}
