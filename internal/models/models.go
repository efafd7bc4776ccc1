// Package models defines the core domain types for the tracker.
package models

import "time"

// Status represents the progress state of a work item.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Kind distinguishes the three item types.
type Kind string

const (
	KindTask    Kind = "TASK"
	KindEpic    Kind = "EPIC"
	KindSubtask Kind = "SUBTASK"
)

// Item is implemented by *Task, *Epic and *Subtask.
type Item interface {
	ItemID() int
	ItemKind() Kind
	// Window returns the scheduled [start, end) interval. ok is false when
	// the item has no start time or no duration.
	Window() (start, end time.Time, ok bool)
}

// Task is a standalone unit of work.
type Task struct {
	ID          int            `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Status      Status         `json:"status"`
	StartTime   *time.Time     `json:"start_time,omitempty"`
	Duration    *time.Duration `json:"duration,omitempty"`
}

// NewTask returns a task in the NEW state.
func NewTask(name, description string) Task {
	return Task{Name: name, Description: description, Status: StatusNew}
}

// ItemID returns the task id.
func (t *Task) ItemID() int { return t.ID }

// ItemKind reports KindTask.
func (t *Task) ItemKind() Kind { return KindTask }

// EndTime returns start + duration, or nil if either is absent.
func (t *Task) EndTime() *time.Time {
	if t.StartTime == nil || t.Duration == nil {
		return nil
	}
	end := t.StartTime.Add(*t.Duration)
	return &end
}

// Window returns the scheduled interval; ok is false when unscheduled.
func (t *Task) Window() (time.Time, time.Time, bool) {
	end := t.EndTime()
	if end == nil {
		return time.Time{}, time.Time{}, false
	}
	return *t.StartTime, *end, true
}

// SameAs reports identity equality.
func (t *Task) SameAs(other *Task) bool {
	return other != nil && t.ID == other.ID
}

// Clone returns a copy that shares no pointers with t.
func (t *Task) Clone() *Task {
	c := *t
	c.StartTime = cloneTime(t.StartTime)
	c.Duration = cloneDuration(t.Duration)
	return &c
}

// Epic groups subtasks. Status, StartTime, Duration and End are derived
// from the subtasks and are never set by callers.
type Epic struct {
	Task
	SubtaskIDs []int      `json:"subtask_ids"`
	End        *time.Time `json:"end_time,omitempty"`
}

// NewEpic returns an empty epic.
func NewEpic(name, description string) Epic {
	return Epic{Task: NewTask(name, description)}
}

// ItemKind reports KindEpic.
func (e *Epic) ItemKind() Kind { return KindEpic }

// EndTime returns the latest end among the epic's subtasks.
func (e *Epic) EndTime() *time.Time { return e.End }

// Window returns the span derived from the subtasks.
func (e *Epic) Window() (time.Time, time.Time, bool) {
	if e.StartTime == nil || e.End == nil {
		return time.Time{}, time.Time{}, false
	}
	return *e.StartTime, *e.End, true
}

// AddSubtask appends id unless already present. It reports whether id was added.
func (e *Epic) AddSubtask(id int) bool {
	for _, existing := range e.SubtaskIDs {
		if existing == id {
			return false
		}
	}
	e.SubtaskIDs = append(e.SubtaskIDs, id)
	return true
}

// RemoveSubtask drops id, keeping the order of the rest.
func (e *Epic) RemoveSubtask(id int) {
	for i, existing := range e.SubtaskIDs {
		if existing == id {
			e.SubtaskIDs = append(e.SubtaskIDs[:i], e.SubtaskIDs[i+1:]...)
			return
		}
	}
}

// ClearSubtasks drops every subtask reference.
func (e *Epic) ClearSubtasks() {
	e.SubtaskIDs = nil
}

// Clone returns a deep copy, subtask ids included.
func (e *Epic) Clone() *Epic {
	c := Epic{Task: *e.Task.Clone(), End: cloneTime(e.End)}
	if e.SubtaskIDs != nil {
		c.SubtaskIDs = append([]int(nil), e.SubtaskIDs...)
	}
	return &c
}

// Subtask is a unit of work owned by exactly one epic.
type Subtask struct {
	Task
	EpicID int `json:"epic_id"`
}

// NewSubtask returns a NEW subtask owned by epicID.
func NewSubtask(name, description string, epicID int) Subtask {
	return Subtask{Task: NewTask(name, description), EpicID: epicID}
}

// ItemKind reports KindSubtask.
func (s *Subtask) ItemKind() Kind { return KindSubtask }

// Clone returns a copy that shares no pointers with s.
func (s *Subtask) Clone() *Subtask {
	return &Subtask{Task: *s.Task.Clone(), EpicID: s.EpicID}
}

// CloneItem copies any of the three item types.
func CloneItem(it Item) Item {
	switch v := it.(type) {
	case *Task:
		return v.Clone()
	case *Epic:
		return v.Clone()
	case *Subtask:
		return v.Clone()
	}
	return it
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneDuration(d *time.Duration) *time.Duration {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
