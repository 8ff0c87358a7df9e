package board

import (
	"context"
	"slices"

	"github.com/s1natex/taskboard/internal/tasks"
)

// Drag gestures arrive as item identifiers from whatever tracks the pointer.
// An identifier is either a task id or a column id; a column "contains" an
// identifier when it is the column itself or one of its tasks.
//
//	idle --DragStart--> dragging --DragEnd/DragCancel--> idle

// DragStart records the task under the pointer and the column it came from.
// It reports false, leaving the board idle, when id is not a task.
func (b *Board) DragStart(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	ci := b.findColumn(id)
	if ci < 0 {
		b.active = nil
		return false
	}
	ti := taskIndex(b.columns[ci].Tasks, id)
	if ti < 0 {
		b.active = nil
		return false
	}
	b.active = &drag{
		task: b.columns[ci].Tasks[ti],
		from: b.columns[ci].ID,
	}
	return true
}

// DragOver only notes which column is under the pointer. The projection is
// not touched until the drop.
func (b *Board) DragOver(overID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active == nil {
		return
	}
	b.active.over = ""
	if ci := b.findColumn(overID); ci >= 0 {
		b.active.over = b.columns[ci].ID
	}
}

// DragEnd drops the active task on overID. Dropping nowhere, onto the task
// itself or onto an unknown id changes nothing. Otherwise the new column is
// persisted in the background and the projection is updated: across columns
// the task is appended to the destination, within a column it takes the
// drop target's position. Drag state is always cleared.
func (b *Board) DragEnd(overID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	active := b.active
	b.active = nil
	if active == nil || overID == "" || overID == active.task.ID {
		return false
	}

	id := active.task.ID
	src := columnIndex(b.columns, active.from)
	if src < 0 || taskIndex(b.columns[src].Tasks, id) < 0 {
		// the task was moved or removed after the drag started
		src = b.findColumn(id)
	}
	dst := b.findColumn(overID)
	if src < 0 || dst < 0 {
		return false
	}

	dest := b.columns[dst].ID
	b.persist("update_task", id, func(ctx context.Context) error {
		_, err := b.store.UpdateTask(ctx, id, tasks.Patch{ColumnID: &dest})
		return err
	})

	from := taskIndex(b.columns[src].Tasks, id)
	if src != dst {
		t := b.columns[src].Tasks[from]
		t.ColumnID = dest
		b.columns[src].Tasks = slices.Delete(b.columns[src].Tasks, from, from+1)
		b.columns[dst].Tasks = append(b.columns[dst].Tasks, t)
		return true
	}

	to := taskIndex(b.columns[src].Tasks, overID)
	if to < 0 {
		// dropped on its own column: move to the end
		to = len(b.columns[src].Tasks) - 1
	}
	b.columns[src].Tasks = ArrayMove(b.columns[src].Tasks, from, to)
	return true
}

// DragCancel abandons the gesture without changes.
func (b *Board) DragCancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = nil
}

// Active returns the task being dragged.
func (b *Board) Active() (tasks.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == nil {
		return tasks.Task{}, false
	}
	return b.active.task, true
}

// Over returns the column currently under the dragged task.
func (b *Board) Over() (tasks.ColumnID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == nil || b.active.over == "" {
		return "", false
	}
	return b.active.over, true
}

// ArrayMove returns a copy of s with the element at from moved to index to;
// the elements in between shift by one.
func ArrayMove[T any](s []T, from, to int) []T {
	out := slices.Clone(s)
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) || from == to {
		return out
	}
	v := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, v)
}
