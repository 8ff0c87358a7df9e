// Package board keeps the per-column projection of a user's tasks and
// reconciles it with the backend.
//
// Every mutation is applied to the local projection first and persisted in
// the background without waiting for the result. Failed writes are logged and
// never rolled back, so the projection can drift from the server until the
// next fresh Load.
package board

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/s1natex/taskboard/internal/tasks"
)

// Store is the persistence surface the board writes through.
// *client.Client satisfies it.
type Store interface {
	ListTasks(ctx context.Context) ([]tasks.Task, error)
	CreateTask(ctx context.Context, t tasks.Task) (tasks.Ack, error)
	UpdateTask(ctx context.Context, id string, p tasks.Patch) (tasks.Ack, error)
	DeleteTask(ctx context.Context, id string) (tasks.Ack, error)
}

// Column is one group of the projection.
type Column struct {
	ID    tasks.ColumnID
	Title string
	Tasks []tasks.Task
}

// Layout is the fixed column order.
var Layout = []struct {
	ID    tasks.ColumnID
	Title string
}{
	{tasks.ColumnTodo, "Tasks"},
	{tasks.ColumnInProgress, "In Progress"},
	{tasks.ColumnDone, "Done"},
}

type drag struct {
	task tasks.Task
	from tasks.ColumnID
	over tasks.ColumnID
}

// Board is a user's task projection plus the drag gesture in progress. It is
// safe for concurrent use.
type Board struct {
	mu      sync.Mutex
	store   Store
	logger  *slog.Logger
	ctx     context.Context
	columns []Column
	active  *drag
	loaded  bool

	// pending counts background writes; idle is signalled under mu when it
	// drops to zero.
	pending int
	idle    *sync.Cond

	newID func() string
	now   func() time.Time
}

// Option configures a Board.
type Option func(*Board)

// WithContext sets the context background writes run under. It defaults to
// context.Background(); cancelling it aborts in-flight writes.
func WithContext(ctx context.Context) Option {
	return func(b *Board) { b.ctx = ctx }
}

// WithIDGenerator replaces uuid.NewString as the source of new task ids.
func WithIDGenerator(fn func() string) Option {
	return func(b *Board) { b.newID = fn }
}

// WithClock replaces time.Now for stamping new tasks.
func WithClock(fn func() time.Time) Option {
	return func(b *Board) { b.now = fn }
}

// New returns an empty, unloaded board writing through store.
func New(store Store, logger *slog.Logger, opts ...Option) *Board {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Board{
		store:   store,
		logger:  logger,
		ctx:     context.Background(),
		columns: emptyColumns(),
		newID:   uuid.NewString,
		now:     time.Now,
	}
	b.idle = sync.NewCond(&b.mu)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func emptyColumns() []Column {
	cols := make([]Column, len(Layout))
	for i, l := range Layout {
		cols[i] = Column{ID: l.ID, Title: l.Title, Tasks: []tasks.Task{}}
	}
	return cols
}

// Load fetches the user's tasks once and replaces the projection with them.
// Tasks in columns the board does not know are dropped. Calls after the
// first successful one do nothing.
func (b *Board) Load(ctx context.Context) error {
	b.mu.Lock()
	if b.loaded {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	list, err := b.store.ListTasks(ctx)
	if err != nil {
		return err
	}

	cols := emptyColumns()
	for _, t := range list {
		i := columnIndex(cols, t.ColumnID)
		if i < 0 {
			b.logger.Debug("task_unknown_column",
				slog.String("task_id", t.ID),
				slog.String("column_id", string(t.ColumnID)),
			)
			continue
		}
		cols[i].Tasks = append(cols[i].Tasks, t)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loaded {
		return nil
	}
	b.columns = cols
	b.loaded = true
	return nil
}

// AddTask puts a new task at the top of "todo" and creates it on the server
// in the background. Blank content is ignored.
func (b *Board) AddTask(content string) (tasks.Task, bool) {
	if strings.TrimSpace(content) == "" {
		return tasks.Task{}, false
	}

	b.mu.Lock()
	t := tasks.Task{
		ID:        b.newID(),
		ColumnID:  tasks.ColumnTodo,
		Content:   content,
		CreatedAt: tasks.Timestamp(b.now()),
	}
	i := columnIndex(b.columns, tasks.ColumnTodo)
	b.columns[i].Tasks = slices.Insert(b.columns[i].Tasks, 0, t)
	b.persist("create_task", t.ID, func(ctx context.Context) error {
		_, err := b.store.CreateTask(ctx, t)
		return err
	})
	b.mu.Unlock()
	return t, true
}

// EditTask replaces a task's content locally and on the server.
func (b *Board) EditTask(id, content string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}

	b.mu.Lock()
	ci, ti := b.locateTask(id)
	if ci < 0 {
		b.mu.Unlock()
		return false
	}
	b.columns[ci].Tasks[ti].Content = content
	b.persist("update_task", id, func(ctx context.Context) error {
		_, err := b.store.UpdateTask(ctx, id, tasks.Patch{Content: &content})
		return err
	})
	b.mu.Unlock()
	return true
}

// RemoveTask drops a task locally and deletes it on the server.
func (b *Board) RemoveTask(id string) bool {
	b.mu.Lock()
	ci, ti := b.locateTask(id)
	if ci < 0 {
		b.mu.Unlock()
		return false
	}
	b.columns[ci].Tasks = slices.Delete(b.columns[ci].Tasks, ti, ti+1)
	if b.active != nil && b.active.task.ID == id {
		b.active = nil
	}
	b.persist("delete_task", id, func(ctx context.Context) error {
		_, err := b.store.DeleteTask(ctx, id)
		return err
	})
	b.mu.Unlock()
	return true
}

// Columns returns a copy of the projection.
func (b *Board) Columns() []Column {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Column, len(b.columns))
	for i, c := range b.columns {
		out[i] = Column{ID: c.ID, Title: c.Title, Tasks: slices.Clone(c.Tasks)}
	}
	return out
}

// Wait blocks until no background write is in flight. Gestures may keep
// arriving on other goroutines while it waits; it returns at the first moment
// the board is idle.
func (b *Board) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.pending > 0 {
		b.idle.Wait()
	}
}

// persist runs fn in the background. Errors are logged, never surfaced.
// b.mu must be held.
func (b *Board) persist(op, taskID string, fn func(ctx context.Context) error) {
	b.pending++
	go func() {
		if err := fn(b.ctx); err != nil {
			b.logger.Error(op+"_failed",
				slog.String("task_id", taskID),
				slog.String("error", err.Error()),
			)
		}
		b.mu.Lock()
		b.pending--
		if b.pending == 0 {
			b.idle.Broadcast()
		}
		b.mu.Unlock()
	}()
}

// findColumn returns the index of the column that is id, or that holds a
// task with that id, or -1.
func (b *Board) findColumn(id string) int {
	for i, c := range b.columns {
		if string(c.ID) == id {
			return i
		}
		if slices.ContainsFunc(c.Tasks, func(t tasks.Task) bool { return t.ID == id }) {
			return i
		}
	}
	return -1
}

func (b *Board) locateTask(id string) (col, idx int) {
	for ci, c := range b.columns {
		for ti, t := range c.Tasks {
			if t.ID == id {
				return ci, ti
			}
		}
	}
	return -1, -1
}

func columnIndex(cols []Column, id tasks.ColumnID) int {
	return slices.IndexFunc(cols, func(c Column) bool { return c.ID == id })
}

func taskIndex(ts []tasks.Task, id string) int {
	return slices.IndexFunc(ts, func(t tasks.Task) bool { return t.ID == id })
}
