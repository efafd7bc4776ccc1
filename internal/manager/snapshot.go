package manager

import (
	"fmt"

	"github.com/fentz26/tracker/internal/models"
)

// Snapshot is the persistent part of the tracker: every entity, but neither
// the history nor the schedule index, which are rebuilt at runtime.
type Snapshot struct {
	Tasks    []models.Task
	Epics    []models.Epic
	Subtasks []models.Subtask
}

// Len returns the number of entities in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Tasks) + len(s.Epics) + len(s.Subtasks)
}

// Export returns a copy of every stored entity, ordered by id within kind.
func (m *Manager) Export() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var snap Snapshot
	for _, id := range sortedKeys(m.tasks) {
		snap.Tasks = append(snap.Tasks, *m.tasks[id].Clone())
	}
	for _, id := range sortedKeys(m.epics) {
		snap.Epics = append(snap.Epics, *m.epics[id].Clone())
	}
	for _, id := range sortedKeys(m.subtasks) {
		snap.Subtasks = append(snap.Subtasks, *m.subtasks[id].Clone())
	}
	return snap
}

// Restore replaces the manager's contents with snap, keeping the ids it
// carries. Epics are loaded before subtasks so every subtask finds its
// owner, and the id allocator is moved past the highest restored id.
// Epic derived fields are recomputed rather than trusted. On error the
// manager is left as it was. History starts empty.
func (m *Manager) Restore(snap Snapshot) error {
	fresh := New()
	if err := fresh.load(snap); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.tasks = fresh.tasks
	m.epics = fresh.epics
	m.subtasks = fresh.subtasks
	m.schedule = fresh.schedule
	m.history.Clear()
	m.ids.Observe(fresh.ids.Current())
	return nil
}

// load fills an empty manager that no one else references yet.
func (m *Manager) load(snap Snapshot) error {
	seen := make(map[int]models.Kind, snap.Len())
	claim := func(id int, kind models.Kind) error {
		if id <= 0 {
			return fmt.Errorf("restore %s: %w: id %d", kind, ErrInvalidInput, id)
		}
		if other, ok := seen[id]; ok {
			return fmt.Errorf("restore %s %d: %w by %s", kind, id, ErrIDCollision, other)
		}
		seen[id] = kind
		m.ids.Observe(id)
		return nil
	}

	for _, e := range snap.Epics {
		if err := claim(e.ID, models.KindEpic); err != nil {
			return err
		}
		epic := models.NewEpic(e.Name, e.Description)
		epic.ID = e.ID
		m.epics[epic.ID] = &epic
	}

	for _, t := range snap.Tasks {
		if err := claim(t.ID, models.KindTask); err != nil {
			return err
		}
		task := t.Clone()
		if err := m.restoreSlot(task); err != nil {
			return err
		}
		m.tasks[task.ID] = task
	}

	for _, s := range snap.Subtasks {
		if err := claim(s.ID, models.KindSubtask); err != nil {
			return err
		}
		epic, ok := m.epics[s.EpicID]
		if !ok {
			return fmt.Errorf("restore subtask %d: epic %d: %w", s.ID, s.EpicID, ErrNotFound)
		}
		sub := s.Clone()
		if err := m.restoreSlot(sub); err != nil {
			return err
		}
		m.subtasks[sub.ID] = sub
		epic.AddSubtask(sub.ID)
	}

	for _, epic := range m.epics {
		m.refreshEpic(epic)
	}
	return nil
}

func (m *Manager) restoreSlot(it models.Item) error {
	var task *models.Task
	switch v := it.(type) {
	case *models.Task:
		task = v
	case *models.Subtask:
		task = &v.Task
	}
	if err := normalize(task); err != nil {
		return fmt.Errorf("restore %s %d: %w", it.ItemKind(), it.ItemID(), err)
	}
	if _, _, ok := it.Window(); !ok {
		return nil
	}
	if err := m.schedule.CheckAndInsert(it); err != nil {
		return fmt.Errorf("restore %s %d: %w", it.ItemKind(), it.ItemID(), err)
	}
	return nil
}
