// Package manager owns the tracker's entity store and keeps the history and
// schedule index consistent with it.
package manager

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fentz26/tracker/internal/aggregate"
	"github.com/fentz26/tracker/internal/history"
	"github.com/fentz26/tracker/internal/ident"
	"github.com/fentz26/tracker/internal/models"
	"github.com/fentz26/tracker/internal/schedule"
)

// Manager is the in-memory task store. A single mutex guards the entity
// maps, the history and the schedule index, so every method either applies
// all of its changes or none. Returned entities are copies.
type Manager struct {
	mu       sync.Mutex
	ids      ident.Allocator
	tasks    map[int]*models.Task
	epics    map[int]*models.Epic
	subtasks map[int]*models.Subtask
	history  *history.Tracker
	schedule *schedule.Index
}

// New creates an empty manager.
func New() *Manager {
	return &Manager{
		tasks:    make(map[int]*models.Task),
		epics:    make(map[int]*models.Epic),
		subtasks: make(map[int]*models.Subtask),
		history:  history.New(),
		schedule: schedule.New(),
	}
}

// --- Task Operations ---

// CreateTask stores a copy of t under a fresh id and returns that id.
// Any id set on t is ignored.
func (m *Manager) CreateTask(t models.Task) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task := t.Clone()
	task.ID = 0
	if err := normalize(task); err != nil {
		return 0, err
	}
	if err := m.checkSlot(task); err != nil {
		return 0, err
	}

	task.ID = m.ids.Next()
	m.tasks[task.ID] = task
	m.index(task)
	return task.ID, nil
}

// GetTask returns the task with id and records the view in history.
func (m *Manager) GetTask(id int) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	m.history.Record(task)
	return task.Clone(), nil
}

// Tasks returns every task ordered by id. It does not touch history.
func (m *Manager) Tasks() []models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Task, 0, len(m.tasks))
	for _, id := range sortedKeys(m.tasks) {
		out = append(out, *m.tasks[id].Clone())
	}
	return out
}

// UpdateTask replaces the editable fields of the stored task with t's.
// An unknown id is silently ignored. If the new schedule conflicts the
// stored task is left unchanged.
func (m *Manager) UpdateTask(t models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.updateTask(t)
	return err
}

// ReplaceTask is UpdateTask for callers that must know the task existed:
// an unknown id is reported as ErrNotFound.
func (m *Manager) ReplaceTask(t models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	found, err := m.updateTask(t)
	if !found {
		return fmt.Errorf("task %d: %w", t.ID, ErrNotFound)
	}
	return err
}

func (m *Manager) updateTask(t models.Task) (bool, error) {
	cur, ok := m.tasks[t.ID]
	if !ok {
		return false, nil
	}
	next := t.Clone()
	if next.Status == "" {
		next.Status = cur.Status
	}
	if err := normalize(next); err != nil {
		return true, err
	}

	prev := *cur
	cur.Name, cur.Description, cur.Status = next.Name, next.Description, next.Status
	cur.StartTime, cur.Duration = next.StartTime, next.Duration
	if err := m.reindex(cur); err != nil {
		*cur = prev
		return true, err
	}
	return true, nil
}

// DeleteTask removes the task with id.
func (m *Manager) DeleteTask(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[id]; !ok {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	m.dropTask(id)
	return nil
}

// DeleteTasks removes every task.
func (m *Manager) DeleteTasks() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id := range m.tasks {
		m.dropTask(id)
	}
}

func (m *Manager) dropTask(id int) {
	m.schedule.Remove(id)
	m.history.Remove(id)
	delete(m.tasks, id)
}

// --- Epic Operations ---

// CreateEpic stores a new epic with e's name and description. Derived
// fields and subtask ids on e are ignored.
func (m *Manager) CreateEpic(e models.Epic) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	epic := models.NewEpic(e.Name, e.Description)
	epic.ID = m.ids.Next()
	aggregate.Apply(&epic, aggregate.Fold(nil))
	m.epics[epic.ID] = &epic
	return epic.ID, nil
}

// GetEpic returns the epic with id and records the view in history.
func (m *Manager) GetEpic(id int) (*models.Epic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	epic, ok := m.epics[id]
	if !ok {
		return nil, fmt.Errorf("epic %d: %w", id, ErrNotFound)
	}
	m.history.Record(epic)
	return epic.Clone(), nil
}

// Epics returns every epic ordered by id. It does not touch history.
func (m *Manager) Epics() []models.Epic {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Epic, 0, len(m.epics))
	for _, id := range sortedKeys(m.epics) {
		out = append(out, *m.epics[id].Clone())
	}
	return out
}

// EpicSubtasks returns the subtasks of an epic in insertion order.
func (m *Manager) EpicSubtasks(epicID int) ([]models.Subtask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	epic, ok := m.epics[epicID]
	if !ok {
		return nil, fmt.Errorf("epic %d: %w", epicID, ErrNotFound)
	}
	subs := m.children(epic)
	out := make([]models.Subtask, len(subs))
	for i, s := range subs {
		out[i] = *s.Clone()
	}
	return out, nil
}

// UpdateEpic copies the name and description of e onto the stored epic.
// Derived fields cannot be changed this way. An unknown id is ignored.
func (m *Manager) UpdateEpic(e models.Epic) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateEpic(e)
	return nil
}

// ReplaceEpic is UpdateEpic reporting an unknown id as ErrNotFound.
func (m *Manager) ReplaceEpic(e models.Epic) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.updateEpic(e) {
		return fmt.Errorf("epic %d: %w", e.ID, ErrNotFound)
	}
	return nil
}

func (m *Manager) updateEpic(e models.Epic) bool {
	cur, ok := m.epics[e.ID]
	if !ok {
		return false
	}
	cur.Name = e.Name
	cur.Description = e.Description
	return true
}

// DeleteEpic removes the epic with id together with all of its subtasks.
func (m *Manager) DeleteEpic(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	epic, ok := m.epics[id]
	if !ok {
		return fmt.Errorf("epic %d: %w", id, ErrNotFound)
	}
	m.dropEpic(epic)
	return nil
}

// DeleteEpics removes every epic and therefore every subtask.
func (m *Manager) DeleteEpics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, epic := range m.epics {
		m.dropEpic(epic)
	}
	// Orphans cannot exist, but make sure none survive.
	for id := range m.subtasks {
		m.dropSubtask(id)
	}
}

func (m *Manager) dropEpic(epic *models.Epic) {
	for _, sid := range epic.SubtaskIDs {
		m.dropSubtask(sid)
	}
	m.history.Remove(epic.ID)
	delete(m.epics, epic.ID)
}

// --- Subtask Operations ---

// CreateSubtask stores s under a fresh id and attaches it to its epic.
func (m *Manager) CreateSubtask(s models.Subtask) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	epic, ok := m.epics[s.EpicID]
	if !ok {
		return 0, fmt.Errorf("epic %d: %w", s.EpicID, ErrNotFound)
	}
	sub := s.Clone()
	sub.ID = 0
	if err := normalize(&sub.Task); err != nil {
		return 0, err
	}
	if err := m.checkSlot(sub); err != nil {
		return 0, err
	}

	sub.ID = m.ids.Next()
	m.subtasks[sub.ID] = sub
	m.index(sub)
	epic.AddSubtask(sub.ID)
	m.refreshEpic(epic)
	return sub.ID, nil
}

// GetSubtask returns the subtask with id and records the view in history.
func (m *Manager) GetSubtask(id int) (*models.Subtask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subtasks[id]
	if !ok {
		return nil, fmt.Errorf("subtask %d: %w", id, ErrNotFound)
	}
	m.history.Record(sub)
	return sub.Clone(), nil
}

// Subtasks returns every subtask ordered by id. It does not touch history.
func (m *Manager) Subtasks() []models.Subtask {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Subtask, 0, len(m.subtasks))
	for _, id := range sortedKeys(m.subtasks) {
		out = append(out, *m.subtasks[id].Clone())
	}
	return out
}

// UpdateSubtask replaces the editable fields of the stored subtask and
// re-derives its epic. The owning epic cannot be changed. An unknown id is
// silently ignored.
func (m *Manager) UpdateSubtask(s models.Subtask) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.updateSubtask(s)
	return err
}

// ReplaceSubtask is UpdateSubtask reporting an unknown id as ErrNotFound.
func (m *Manager) ReplaceSubtask(s models.Subtask) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	found, err := m.updateSubtask(s)
	if !found {
		return fmt.Errorf("subtask %d: %w", s.ID, ErrNotFound)
	}
	return err
}

func (m *Manager) updateSubtask(s models.Subtask) (bool, error) {
	cur, ok := m.subtasks[s.ID]
	if !ok {
		return false, nil
	}
	next := s.Clone()
	if next.Status == "" {
		next.Status = cur.Status
	}
	if err := normalize(&next.Task); err != nil {
		return true, err
	}

	prev := *cur
	cur.Name, cur.Description, cur.Status = next.Name, next.Description, next.Status
	cur.StartTime, cur.Duration = next.StartTime, next.Duration
	if err := m.reindex(cur); err != nil {
		*cur = prev
		return true, err
	}
	if epic, ok := m.epics[cur.EpicID]; ok {
		m.refreshEpic(epic)
	}
	return true, nil
}

// DeleteSubtask removes the subtask with id and re-derives its epic.
func (m *Manager) DeleteSubtask(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subtasks[id]
	if !ok {
		return fmt.Errorf("subtask %d: %w", id, ErrNotFound)
	}
	m.dropSubtask(id)
	if epic, ok := m.epics[sub.EpicID]; ok {
		epic.RemoveSubtask(id)
		m.refreshEpic(epic)
	}
	return nil
}

// DeleteSubtasks removes every subtask. Each epic is left empty with the
// NEW status and no time span.
func (m *Manager) DeleteSubtasks() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id := range m.subtasks {
		m.dropSubtask(id)
	}
	for _, epic := range m.epics {
		epic.ClearSubtasks()
		m.refreshEpic(epic)
	}
}

func (m *Manager) dropSubtask(id int) {
	m.schedule.Remove(id)
	m.history.Remove(id)
	delete(m.subtasks, id)
}

// --- Views ---

// Prioritized returns the scheduled tasks and subtasks ordered by start time.
func (m *Manager) Prioritized() []models.Item {
	m.mu.Lock()
	defer m.mu.Unlock()

	return cloneAll(m.schedule.Ordered())
}

// History returns the items fetched by id, least recent first.
func (m *Manager) History() []models.Item {
	m.mu.Lock()
	defer m.mu.Unlock()

	return cloneAll(m.history.Snapshot())
}

// --- Helpers ---

// normalize defaults the status and rejects values the tracker cannot store.
func normalize(t *models.Task) error {
	if t.Status == "" {
		t.Status = models.StatusNew
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, t.Status)
	}
	if (t.StartTime == nil) != (t.Duration == nil) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, schedule.ErrMissingWindow)
	}
	if t.Duration != nil && *t.Duration < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidInput)
	}
	if t.Duration != nil && *t.Duration%time.Minute != 0 {
		return fmt.Errorf("%w: duration %s is not whole minutes", ErrInvalidInput, *t.Duration)
	}
	return nil
}

// checkSlot validates a not-yet-stored item against the schedule.
func (m *Manager) checkSlot(it models.Item) error {
	if _, _, ok := it.Window(); !ok {
		return nil
	}
	return m.schedule.Check(it)
}

// index inserts an item whose slot has already been checked.
func (m *Manager) index(it models.Item) {
	if _, _, ok := it.Window(); !ok {
		return
	}
	if err := m.schedule.CheckAndInsert(it); err != nil {
		panic(fmt.Sprintf("schedule changed between check and insert: %v", err))
	}
}

func (m *Manager) reindex(it models.Item) error {
	if _, _, ok := it.Window(); !ok {
		m.schedule.Remove(it.ItemID())
		return nil
	}
	return m.schedule.Update(it)
}

func (m *Manager) children(epic *models.Epic) []*models.Subtask {
	subs := make([]*models.Subtask, 0, len(epic.SubtaskIDs))
	for _, id := range epic.SubtaskIDs {
		if s, ok := m.subtasks[id]; ok {
			subs = append(subs, s)
		}
	}
	return subs
}

func (m *Manager) refreshEpic(epic *models.Epic) {
	aggregate.Apply(epic, aggregate.Fold(m.children(epic)))
}

func cloneAll(items []models.Item) []models.Item {
	out := make([]models.Item, len(items))
	for i, it := range items {
		out[i] = models.CloneItem(it)
	}
	return out
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
