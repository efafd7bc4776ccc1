// Package api provides the HTTP API and service layer for the tracker.
package api

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fentz26/tracker/internal/audit"
	"github.com/fentz26/tracker/internal/manager"
	"github.com/fentz26/tracker/internal/models"
)

// Persister saves the manager's contents.
type Persister interface {
	SaveSnapshot(ctx context.Context, snap manager.Snapshot) error
}

// Service wraps the manager with persistence and auditing. Reads go straight
// to the manager; mutations bump a version so Flush knows when to save.
type Service struct {
	mgr          *manager.Manager
	persist      Persister
	journal      *audit.Journal
	writeThrough bool

	version atomic.Uint64
	flushMu sync.Mutex
	saved   uint64
}

// NewService creates a service. With writeThrough set every successful
// mutation is saved before it returns; otherwise callers must Flush.
// persist may be nil for a purely in-memory service.
func NewService(mgr *manager.Manager, persist Persister, journal *audit.Journal, writeThrough bool) *Service {
	return &Service{
		mgr:          mgr,
		persist:      persist,
		journal:      journal,
		writeThrough: writeThrough,
	}
}

// --- Task Operations ---

// CreateTask stores a new task and returns its id.
func (s *Service) CreateTask(ctx context.Context, t models.Task) (int, error) {
	id, err := s.mgr.CreateTask(t)
	return id, s.mutated(ctx, "task.create", t, id, err)
}

// GetTask retrieves a task and records the view.
func (s *Service) GetTask(id int) (*models.Task, error) {
	return s.mgr.GetTask(id)
}

// ListTasks returns every task ordered by id.
func (s *Service) ListTasks() []models.Task {
	return s.mgr.Tasks()
}

// UpdateTask replaces the task stored under id. An unknown id is
// ErrNotFound.
func (s *Service) UpdateTask(ctx context.Context, id int, t models.Task) error {
	t.ID = id
	return s.mutated(ctx, "task.update", t, id, s.mgr.ReplaceTask(t))
}

// DeleteTask removes a task.
func (s *Service) DeleteTask(ctx context.Context, id int) error {
	return s.mutated(ctx, "task.delete", id, id, s.mgr.DeleteTask(id))
}

// DeleteTasks removes every task.
func (s *Service) DeleteTasks(ctx context.Context) error {
	s.mgr.DeleteTasks()
	return s.mutated(ctx, "task.delete_all", nil, 0, nil)
}

// --- Epic Operations ---

// CreateEpic stores a new empty epic and returns its id.
func (s *Service) CreateEpic(ctx context.Context, e models.Epic) (int, error) {
	id, err := s.mgr.CreateEpic(e)
	return id, s.mutated(ctx, "epic.create", e.Task, id, err)
}

// GetEpic retrieves an epic and records the view.
func (s *Service) GetEpic(id int) (*models.Epic, error) {
	return s.mgr.GetEpic(id)
}

// ListEpics returns every epic ordered by id.
func (s *Service) ListEpics() []models.Epic {
	return s.mgr.Epics()
}

// EpicSubtasks returns the subtasks of an epic in insertion order.
func (s *Service) EpicSubtasks(id int) ([]models.Subtask, error) {
	return s.mgr.EpicSubtasks(id)
}

// UpdateEpic renames an epic or changes its description.
func (s *Service) UpdateEpic(ctx context.Context, id int, e models.Epic) error {
	e.ID = id
	return s.mutated(ctx, "epic.update", e.Task, id, s.mgr.ReplaceEpic(e))
}

// DeleteEpic removes an epic and its subtasks.
func (s *Service) DeleteEpic(ctx context.Context, id int) error {
	return s.mutated(ctx, "epic.delete", id, id, s.mgr.DeleteEpic(id))
}

// DeleteEpics removes every epic and subtask.
func (s *Service) DeleteEpics(ctx context.Context) error {
	s.mgr.DeleteEpics()
	return s.mutated(ctx, "epic.delete_all", nil, 0, nil)
}

// --- Subtask Operations ---

// CreateSubtask stores a new subtask under its epic and returns its id.
func (s *Service) CreateSubtask(ctx context.Context, st models.Subtask) (int, error) {
	id, err := s.mgr.CreateSubtask(st)
	return id, s.mutated(ctx, "subtask.create", st, id, err)
}

// GetSubtask retrieves a subtask and records the view.
func (s *Service) GetSubtask(id int) (*models.Subtask, error) {
	return s.mgr.GetSubtask(id)
}

// ListSubtasks returns every subtask ordered by id.
func (s *Service) ListSubtasks() []models.Subtask {
	return s.mgr.Subtasks()
}

// UpdateSubtask replaces the subtask stored under id. The owning epic
// cannot change.
func (s *Service) UpdateSubtask(ctx context.Context, id int, st models.Subtask) error {
	st.ID = id
	return s.mutated(ctx, "subtask.update", st, id, s.mgr.ReplaceSubtask(st))
}

// DeleteSubtask removes a subtask.
func (s *Service) DeleteSubtask(ctx context.Context, id int) error {
	return s.mutated(ctx, "subtask.delete", id, id, s.mgr.DeleteSubtask(id))
}

// DeleteSubtasks removes every subtask.
func (s *Service) DeleteSubtasks(ctx context.Context) error {
	s.mgr.DeleteSubtasks()
	return s.mutated(ctx, "subtask.delete_all", nil, 0, nil)
}

// --- Views ---

// Prioritized returns scheduled tasks and subtasks by start time.
func (s *Service) Prioritized() []models.Item {
	return s.mgr.Prioritized()
}

// History returns recently viewed items, least recent first.
func (s *Service) History() []models.Item {
	return s.mgr.History()
}

// --- Persistence ---

// Dirty reports whether there are mutations not yet saved.
func (s *Service) Dirty() bool {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	return s.version.Load() != s.saved
}

// Flush saves the manager if anything changed since the last save.
func (s *Service) Flush(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}

	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	// A mutation racing with Export leaves version ahead of saved, so the
	// next Flush writes again.
	v := s.version.Load()
	if v == s.saved {
		return nil
	}
	if err := s.persist.SaveSnapshot(ctx, s.mgr.Export()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	s.saved = v
	return nil
}

// mutated journals the outcome of a mutation and, on success, marks the
// state dirty and saves it when writing through.
func (s *Service) mutated(ctx context.Context, action string, inputs interface{}, itemID int, err error) error {
	if err != nil {
		s.journal.Record(ctx, action, inputs, "error", itemID, err.Error())
		return err
	}

	s.version.Add(1)
	s.journal.Record(ctx, action, inputs, "success", itemID, "")

	if s.writeThrough {
		if err := s.Flush(ctx); err != nil {
			return fmt.Errorf("persist: %w", err)
		}
	}
	return nil
}
