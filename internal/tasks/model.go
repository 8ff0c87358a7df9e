package tasks

import (
	"fmt"
	"strings"
	"time"
)

// ColumnID names the board column a task sits in.
type ColumnID string

const (
	ColumnTodo       ColumnID = "todo"
	ColumnInProgress ColumnID = "in-progress"
	ColumnDone       ColumnID = "done"
)

// Known reports whether c is one of the three board columns.
func (c ColumnID) Known() bool {
	switch c {
	case ColumnTodo, ColumnInProgress, ColumnDone:
		return true
	}
	return false
}

// Task is one card on the board, scoped to the user that created it.
type Task struct {
	ID        string   `json:"id"`
	ColumnID  ColumnID `json:"columnId"`
	Content   string   `json:"content"`
	UserID    string   `json:"userId,omitempty"`
	CreatedAt string   `json:"createdAt,omitempty"`
}

// Patch is a partial update; nil fields are left alone.
type Patch struct {
	ColumnID *ColumnID `json:"columnId,omitempty"`
	Content  *string   `json:"content,omitempty"`
}

func (p Patch) Empty() bool { return p.ColumnID == nil && p.Content == nil }

// Ack is the body returned by every mutating route.
type Ack struct {
	Success bool `json:"success"`
}

// TimestampLayout matches the ISO-8601 strings browsers produce.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp renders t in UTC with TimestampLayout, the only form stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// prepareNew checks the required fields of a new task and rewrites createdAt
// into TimestampLayout, so stored values order correctly as text. An empty
// createdAt becomes now().
func prepareNew(t Task, now func() time.Time) (Task, error) {
	switch {
	case strings.TrimSpace(t.UserID) == "":
		return t, ErrUserIDRequired
	case strings.TrimSpace(t.ID) == "":
		return t, ErrIDRequired
	case strings.TrimSpace(string(t.ColumnID)) == "":
		return t, ErrColumnRequired
	case strings.TrimSpace(t.Content) == "":
		return t, ErrContentRequired
	}

	if t.CreatedAt == "" {
		t.CreatedAt = Timestamp(now())
		return t, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, t.CreatedAt)
	if err != nil {
		return t, fmt.Errorf("%w: %q", ErrCreatedAtInvalid, t.CreatedAt)
	}
	t.CreatedAt = Timestamp(ts)
	return t, nil
}
