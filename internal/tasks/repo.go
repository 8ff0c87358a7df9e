package tasks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrUserIDRequired   = errors.New("user id required")
	ErrIDRequired       = errors.New("id required")
	ErrColumnRequired   = errors.New("columnId required")
	ErrContentRequired  = errors.New("content required")
	ErrCreatedAtInvalid = errors.New("createdAt must be an RFC 3339 timestamp")
	ErrConflict         = errors.New("task already exists")
)

// Repository stores tasks partitioned by user. Update and Delete succeed
// silently when no row matches.
type Repository interface {
	List(ctx context.Context, userID string) ([]Task, error)
	Create(ctx context.Context, t Task) error
	Update(ctx context.Context, userID, id string, p Patch) error
	Delete(ctx context.Context, userID, id string) error
}

type rowKey struct {
	userID string
	id     string
}

type memRow struct {
	task Task
	seq  int64
}

type InMemoryRepo struct {
	mu    sync.Mutex
	seq   int64
	store map[rowKey]memRow
	now   func() time.Time
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		store: make(map[rowKey]memRow),
		now:   time.Now,
	}
}

func (r *InMemoryRepo) Create(_ context.Context, t Task) error {
	t, err := prepareNew(t, r.now)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := rowKey{userID: t.UserID, id: t.ID}
	if _, ok := r.store[k]; ok {
		return ErrConflict
	}
	r.seq++
	r.store[k] = memRow{task: t, seq: r.seq}
	return nil
}

// List returns newest first, ties broken by insertion order.
func (r *InMemoryRepo) List(_ context.Context, userID string) ([]Task, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([]memRow, 0, len(r.store))
	for k, row := range r.store {
		if k.userID == userID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].task.CreatedAt != rows[j].task.CreatedAt {
			return rows[i].task.CreatedAt > rows[j].task.CreatedAt
		}
		return rows[i].seq > rows[j].seq
	})

	out := make([]Task, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.task)
	}
	return out, nil
}

func (r *InMemoryRepo) Update(_ context.Context, userID, id string, p Patch) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := rowKey{userID: userID, id: id}
	row, ok := r.store[k]
	if !ok {
		return nil
	}
	if p.ColumnID != nil {
		row.task.ColumnID = *p.ColumnID
	}
	if p.Content != nil {
		row.task.Content = *p.Content
	}
	r.store[k] = row
	return nil
}

func (r *InMemoryRepo) Delete(_ context.Context, userID, id string) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.store, rowKey{userID: userID, id: id})
	return nil
}
