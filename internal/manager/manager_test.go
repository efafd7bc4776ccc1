package manager

import (
	"sync"
	"testing"
	"time"

	"github.com/fentz26/tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nine = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func at(t models.Task, offset, length time.Duration) models.Task {
	start := nine.Add(offset)
	t.StartTime = &start
	t.Duration = &length
	return t
}

func timedTask(name string, offset, length time.Duration) models.Task {
	return at(models.NewTask(name, ""), offset, length)
}

func timedSubtask(epicID int, offset, length time.Duration) models.Subtask {
	s := models.NewSubtask("sub", "", epicID)
	s.Task = at(s.Task, offset, length)
	return s
}

func itemIDs(items []models.Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.ItemID()
	}
	return out
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	m := New()

	taskID, err := m.CreateTask(models.NewTask("task", "desc"))
	require.NoError(t, err)
	epicID, err := m.CreateEpic(models.NewEpic("epic", "desc"))
	require.NoError(t, err)
	subID, err := m.CreateSubtask(models.NewSubtask("sub", "desc", epicID))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, []int{taskID, epicID, subID})
}

func TestCreateIgnoresCallerID(t *testing.T) {
	m := New()
	first, err := m.CreateTask(models.NewTask("a", ""))
	require.NoError(t, err)

	dup := models.NewTask("b", "")
	dup.ID = first
	second, err := m.CreateTask(dup)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Len(t, m.Tasks(), 2)
}

func TestPrioritizedScenario(t *testing.T) {
	m := New()

	a, err := m.CreateTask(timedTask("A", 0, 30*time.Minute))
	require.NoError(t, err)

	_, err = m.CreateTask(timedTask("B", 0, 3*time.Minute))
	assert.ErrorIs(t, err, ErrSchedulingConflict)

	c, err := m.CreateTask(timedTask("C", 31*time.Minute, 30*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, []int{a, c}, itemIDs(m.Prioritized()))
	assert.Len(t, m.Tasks(), 2)
}

func TestFailedCreateConsumesNoID(t *testing.T) {
	m := New()
	_, err := m.CreateTask(timedTask("A", 0, time.Hour))
	require.NoError(t, err)
	_, err = m.CreateTask(timedTask("B", 0, time.Hour))
	require.Error(t, err)

	id, err := m.CreateTask(models.NewTask("C", ""))
	require.NoError(t, err)
	assert.Equal(t, 2, id)
}

func TestCreateRejectsHalfWindow(t *testing.T) {
	m := New()
	task := models.NewTask("a", "")
	start := nine
	task.StartTime = &start

	_, err := m.CreateTask(task)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, m.Tasks())
}

func TestCreateRejectsUnknownStatus(t *testing.T) {
	m := New()
	task := models.NewTask("a", "")
	task.Status = "BLOCKED"

	_, err := m.CreateTask(task)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDurationMustBeWholeMinutes(t *testing.T) {
	m := New()
	_, err := m.CreateTask(timedTask("a", 0, 90*time.Second))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, m.Tasks())

	id, err := m.CreateTask(timedTask("a", 0, 2*time.Minute))
	require.NoError(t, err)

	err = m.UpdateTask(at(models.Task{ID: id, Name: "a"}, 0, 2*time.Minute+time.Millisecond))
	assert.ErrorIs(t, err, ErrInvalidInput)
	got, _ := m.GetTask(id)
	assert.Equal(t, 2*time.Minute, *got.Duration)
}

func TestUnscheduledTasksStayOutOfPrioritized(t *testing.T) {
	m := New()
	_, err := m.CreateTask(models.NewTask("loose", ""))
	require.NoError(t, err)

	assert.Empty(t, m.Prioritized())
}

func TestCreateSubtaskRequiresEpic(t *testing.T) {
	m := New()
	_, err := m.CreateSubtask(models.NewSubtask("orphan", "", 42))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, m.Subtasks())
}

func TestSubtaskConflictLeavesEpicUntouched(t *testing.T) {
	m := New()
	_, err := m.CreateTask(timedTask("A", 0, time.Hour))
	require.NoError(t, err)
	epicID, err := m.CreateEpic(models.NewEpic("epic", ""))
	require.NoError(t, err)

	_, err = m.CreateSubtask(timedSubtask(epicID, 30*time.Minute, time.Hour))
	assert.ErrorIs(t, err, ErrSchedulingConflict)

	epic, err := m.GetEpic(epicID)
	require.NoError(t, err)
	assert.Empty(t, epic.SubtaskIDs)
	assert.Nil(t, epic.StartTime)
}

func TestGetRecordsHistory(t *testing.T) {
	m := New()
	taskID, _ := m.CreateTask(models.NewTask("task", ""))
	epicID, _ := m.CreateEpic(models.NewEpic("epic", ""))
	subID, _ := m.CreateSubtask(models.NewSubtask("sub", "", epicID))

	_, err := m.GetTask(taskID)
	require.NoError(t, err)
	_, err = m.GetSubtask(subID)
	require.NoError(t, err)
	_, err = m.GetEpic(epicID)
	require.NoError(t, err)
	_, err = m.GetTask(taskID)
	require.NoError(t, err)

	assert.Equal(t, []int{subID, epicID, taskID}, itemIDs(m.History()))
}

func TestListsDoNotRecordHistory(t *testing.T) {
	m := New()
	epicID, _ := m.CreateEpic(models.NewEpic("epic", ""))
	_, _ = m.CreateTask(models.NewTask("task", ""))
	_, _ = m.CreateSubtask(models.NewSubtask("sub", "", epicID))

	m.Tasks()
	m.Epics()
	m.Subtasks()
	_, err := m.EpicSubtasks(epicID)
	require.NoError(t, err)
	m.Prioritized()

	assert.Empty(t, m.History())
}

func TestGetUnknownIsNotFound(t *testing.T) {
	m := New()
	_, err := m.GetTask(1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.GetEpic(1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.GetSubtask(1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, m.History())
}

func TestHistoryReflectsLaterUpdates(t *testing.T) {
	m := New()
	id, _ := m.CreateTask(models.NewTask("before", ""))
	_, err := m.GetTask(id)
	require.NoError(t, err)

	upd := models.NewTask("after", "")
	upd.ID = id
	require.NoError(t, m.UpdateTask(upd))

	hist := m.History()
	require.Len(t, hist, 1)
	assert.Equal(t, "after", hist[0].(*models.Task).Name)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	m := New()
	id, _ := m.CreateTask(timedTask("task", 0, time.Hour))

	got, err := m.GetTask(id)
	require.NoError(t, err)
	got.Name = "mutated"
	*got.StartTime = nine.Add(5 * time.Hour)

	again, err := m.GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, "task", again.Name)
	assert.Equal(t, nine, *again.StartTime)
}

func TestUpdateUnknownIDIsSilentNoop(t *testing.T) {
	m := New()
	ghost := models.NewTask("ghost", "")
	ghost.ID = 99
	assert.NoError(t, m.UpdateTask(ghost))

	ghostSub := models.NewSubtask("ghost", "", 1)
	ghostSub.ID = 99
	assert.NoError(t, m.UpdateSubtask(ghostSub))

	ghostEpic := models.NewEpic("ghost", "")
	ghostEpic.ID = 99
	assert.NoError(t, m.UpdateEpic(ghostEpic))

	assert.Empty(t, m.Tasks())
	assert.Empty(t, m.Subtasks())
	assert.Empty(t, m.Epics())
}

func TestReplaceUnknownIDIsNotFound(t *testing.T) {
	m := New()
	epicID, _ := m.CreateEpic(models.NewEpic("epic", ""))

	ghost := models.NewTask("ghost", "")
	ghost.ID = 99
	assert.ErrorIs(t, m.ReplaceTask(ghost), ErrNotFound)

	ghostSub := models.NewSubtask("ghost", "", epicID)
	ghostSub.ID = 99
	assert.ErrorIs(t, m.ReplaceSubtask(ghostSub), ErrNotFound)

	ghostEpic := models.NewEpic("ghost", "")
	ghostEpic.ID = 99
	assert.ErrorIs(t, m.ReplaceEpic(ghostEpic), ErrNotFound)

	assert.Empty(t, m.Tasks())
	assert.Empty(t, m.Subtasks())
	assert.Len(t, m.Epics(), 1)
}

func TestReplaceAppliesLikeUpdate(t *testing.T) {
	m := New()
	a, _ := m.CreateTask(timedTask("a", 0, time.Hour))
	b, _ := m.CreateTask(timedTask("b", 2*time.Hour, time.Hour))

	moved := timedTask("a2", 3*time.Hour, 30*time.Minute)
	moved.ID = a
	require.NoError(t, m.ReplaceTask(moved))
	assert.Equal(t, []int{b, a}, itemIDs(m.Prioritized()))

	clash := timedTask("a3", 2*time.Hour, time.Hour)
	clash.ID = a
	assert.ErrorIs(t, m.ReplaceTask(clash), ErrSchedulingConflict)

	epicID, _ := m.CreateEpic(models.NewEpic("epic", ""))
	renamed := models.NewEpic("release", "v2")
	renamed.ID = epicID
	require.NoError(t, m.ReplaceEpic(renamed))
	subID, _ := m.CreateSubtask(timedSubtask(epicID, 5*time.Hour, time.Hour))
	sub := timedSubtask(epicID, 6*time.Hour, time.Hour)
	sub.ID = subID
	sub.Status = models.StatusDone
	require.NoError(t, m.ReplaceSubtask(sub))

	epic, err := m.GetEpic(epicID)
	require.NoError(t, err)
	assert.Equal(t, "release", epic.Name)
	assert.Equal(t, models.StatusDone, epic.Status)
	assert.Equal(t, nine.Add(6*time.Hour), *epic.StartTime)
}

func TestUpdateTaskMovesWithinSchedule(t *testing.T) {
	m := New()
	a, _ := m.CreateTask(timedTask("A", 0, 30*time.Minute))
	b, _ := m.CreateTask(timedTask("B", time.Hour, 30*time.Minute))

	// Overlapping only its own previous slot is fine.
	moved := timedTask("A", 10*time.Minute, 30*time.Minute)
	moved.ID = a
	require.NoError(t, m.UpdateTask(moved))

	later := timedTask("A", 2*time.Hour, 30*time.Minute)
	later.ID = a
	require.NoError(t, m.UpdateTask(later))
	assert.Equal(t, []int{b, a}, itemIDs(m.Prioritized()))
}

func TestUpdateTaskConflictLeavesTaskUnchanged(t *testing.T) {
	m := New()
	a, _ := m.CreateTask(timedTask("A", 0, 30*time.Minute))
	b, _ := m.CreateTask(timedTask("B", time.Hour, 30*time.Minute))

	clash := timedTask("A renamed", 70*time.Minute, 10*time.Minute)
	clash.ID = a
	err := m.UpdateTask(clash)
	assert.ErrorIs(t, err, ErrSchedulingConflict)

	got, err := m.GetTask(a)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)
	assert.Equal(t, nine, *got.StartTime)
	assert.Equal(t, []int{a, b}, itemIDs(m.Prioritized()))
}

func TestUpdateTaskClearingScheduleRemovesFromPrioritized(t *testing.T) {
	m := New()
	a, _ := m.CreateTask(timedTask("A", 0, 30*time.Minute))

	plain := models.NewTask("A", "")
	plain.ID = a
	require.NoError(t, m.UpdateTask(plain))

	assert.Empty(t, m.Prioritized())
}

func TestEpicStatusFolding(t *testing.T) {
	tests := []struct {
		name     string
		statuses []models.Status
		want     models.Status
	}{
		{"no subtasks", nil, models.StatusNew},
		{"new new", []models.Status{models.StatusNew, models.StatusNew}, models.StatusNew},
		{"new done", []models.Status{models.StatusNew, models.StatusDone}, models.StatusInProgress},
		{"done done", []models.Status{models.StatusDone, models.StatusDone}, models.StatusDone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			epicID, _ := m.CreateEpic(models.NewEpic("epic", ""))
			for _, st := range tt.statuses {
				s := models.NewSubtask("sub", "", epicID)
				s.Status = st
				_, err := m.CreateSubtask(s)
				require.NoError(t, err)
			}
			epic, err := m.GetEpic(epicID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, epic.Status)
		})
	}
}

func TestEpicTimeFolding(t *testing.T) {
	m := New()
	epicID, _ := m.CreateEpic(models.NewEpic("epic", ""))
	_, err := m.CreateSubtask(timedSubtask(epicID, 0, 30*time.Minute))
	require.NoError(t, err)
	_, err = m.CreateSubtask(timedSubtask(epicID, 40*time.Minute, 30*time.Minute))
	require.NoError(t, err)

	epic, err := m.GetEpic(epicID)
	require.NoError(t, err)
	assert.Equal(t, nine, *epic.StartTime)
	assert.Equal(t, nine.Add(70*time.Minute), *epic.EndTime())
	assert.Equal(t, 60*time.Minute, *epic.Duration)
}

func TestUpdateSubtaskReaggregatesEpic(t *testing.T) {
	m := New()
	epicID, _ := m.CreateEpic(models.NewEpic("epic", ""))
	first, _ := m.CreateSubtask(models.NewSubtask("one", "", epicID))
	second, _ := m.CreateSubtask(models.NewSubtask("two", "", epicID))

	for _, id := range []int{first, second} {
		s := models.NewSubtask("done", "", epicID)
		s.ID = id
		s.Status = models.StatusDone
		require.NoError(t, m.UpdateSubtask(s))
	}
	epic, _ := m.GetEpic(epicID)
	assert.Equal(t, models.StatusDone, epic.Status)

	s := models.NewSubtask("reopened", "", epicID)
	s.ID = first
	s.Status = models.StatusInProgress
	require.NoError(t, m.UpdateSubtask(s))
	epic, _ = m.GetEpic(epicID)
	assert.Equal(t, models.StatusInProgress, epic.Status)
}

func TestUpdateSubtaskCannotReparent(t *testing.T) {
	m := New()
	epicA, _ := m.CreateEpic(models.NewEpic("a", ""))
	epicB, _ := m.CreateEpic(models.NewEpic("b", ""))
	subID, _ := m.CreateSubtask(models.NewSubtask("sub", "", epicA))

	moved := models.NewSubtask("sub", "", epicB)
	moved.ID = subID
	require.NoError(t, m.UpdateSubtask(moved))

	got, _ := m.GetSubtask(subID)
	assert.Equal(t, epicA, got.EpicID)
	subs, _ := m.EpicSubtasks(epicB)
	assert.Empty(t, subs)
}

func TestUpdateEpicTouchesOnlyNameAndDescription(t *testing.T) {
	m := New()
	epicID, _ := m.CreateEpic(models.NewEpic("epic", "desc"))
	sub := models.NewSubtask("sub", "", epicID)
	sub.Status = models.StatusDone
	_, _ = m.CreateSubtask(sub)

	forged := models.NewEpic("renamed", "new desc")
	forged.ID = epicID
	forged.Status = models.StatusNew
	forged.SubtaskIDs = []int{1000}
	require.NoError(t, m.UpdateEpic(forged))

	epic, _ := m.GetEpic(epicID)
	assert.Equal(t, "renamed", epic.Name)
	assert.Equal(t, "new desc", epic.Description)
	assert.Equal(t, models.StatusDone, epic.Status)
	assert.Len(t, epic.SubtaskIDs, 1)
}

func TestCreateEpicIgnoresDerivedFields(t *testing.T) {
	m := New()
	e := models.NewEpic("epic", "")
	e.Status = models.StatusDone
	e.SubtaskIDs = []int{5, 6}

	id, err := m.CreateEpic(e)
	require.NoError(t, err)
	got, _ := m.GetEpic(id)
	assert.Equal(t, models.StatusNew, got.Status)
	assert.Empty(t, got.SubtaskIDs)
}

func TestDeleteSubtaskDetachesFromEpic(t *testing.T) {
	m := New()
	epicID, _ := m.CreateEpic(models.NewEpic("epic", ""))
	keep, _ := m.CreateSubtask(timedSubtask(epicID, 0, 30*time.Minute))
	drop, _ := m.CreateSubtask(timedSubtask(epicID, time.Hour, 30*time.Minute))
	_, _ = m.GetSubtask(drop)

	require.NoError(t, m.DeleteSubtask(drop))

	epic, _ := m.GetEpic(epicID)
	assert.Equal(t, []int{keep}, epic.SubtaskIDs)
	assert.Equal(t, nine.Add(30*time.Minute), *epic.EndTime())
	assert.Equal(t, []int{keep}, itemIDs(m.Prioritized()))
	assert.Equal(t, []int{epicID}, itemIDs(m.History()))
}

func TestDeleteEpicCascades(t *testing.T) {
	m := New()
	epicID, _ := m.CreateEpic(models.NewEpic("epic", ""))
	var subs []int
	for i := 0; i < 3; i++ {
		id, err := m.CreateSubtask(timedSubtask(epicID, time.Duration(i)*time.Hour, 30*time.Minute))
		require.NoError(t, err)
		subs = append(subs, id)
		_, _ = m.GetSubtask(id)
	}
	_, _ = m.GetEpic(epicID)

	require.NoError(t, m.DeleteEpic(epicID))

	for _, id := range subs {
		_, err := m.GetSubtask(id)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Empty(t, m.Subtasks())
	assert.Empty(t, m.Prioritized())
	assert.Empty(t, m.History())
}

func TestDeleteUnknownIsNotFound(t *testing.T) {
	m := New()
	assert.ErrorIs(t, m.DeleteTask(1), ErrNotFound)
	assert.ErrorIs(t, m.DeleteEpic(1), ErrNotFound)
	assert.ErrorIs(t, m.DeleteSubtask(1), ErrNotFound)
}

func TestDeleteTaskCleansEveryStructure(t *testing.T) {
	m := New()
	id, _ := m.CreateTask(timedTask("A", 0, time.Hour))
	_, _ = m.GetTask(id)

	require.NoError(t, m.DeleteTask(id))

	assert.Empty(t, m.Tasks())
	assert.Empty(t, m.Prioritized())
	assert.Empty(t, m.History())
}

func TestDeleteTasks(t *testing.T) {
	m := New()
	for i := 0; i < 3; i++ {
		id, _ := m.CreateTask(timedTask("t", time.Duration(i)*time.Hour, time.Minute))
		_, _ = m.GetTask(id)
	}
	epicID, _ := m.CreateEpic(models.NewEpic("epic", ""))
	_, _ = m.GetEpic(epicID)

	m.DeleteTasks()

	assert.Empty(t, m.Tasks())
	assert.Empty(t, m.Prioritized())
	assert.Equal(t, []int{epicID}, itemIDs(m.History()))
}

func TestDeleteSubtasksResetsEpics(t *testing.T) {
	m := New()
	epicID, _ := m.CreateEpic(models.NewEpic("epic", ""))
	s := timedSubtask(epicID, 0, time.Hour)
	s.Status = models.StatusDone
	_, _ = m.CreateSubtask(s)

	m.DeleteSubtasks()

	epic, _ := m.GetEpic(epicID)
	assert.Equal(t, models.StatusNew, epic.Status)
	assert.Nil(t, epic.StartTime)
	assert.Nil(t, epic.EndTime())
	assert.Zero(t, *epic.Duration)
	assert.Empty(t, epic.SubtaskIDs)
	assert.Empty(t, m.Prioritized())
}

func TestDeleteEpicsRemovesSubtasks(t *testing.T) {
	m := New()
	for i := 0; i < 2; i++ {
		epicID, _ := m.CreateEpic(models.NewEpic("epic", ""))
		_, _ = m.CreateSubtask(timedSubtask(epicID, time.Duration(i)*time.Hour, time.Minute))
	}
	taskID, _ := m.CreateTask(timedTask("keep", 5*time.Hour, time.Minute))

	m.DeleteEpics()

	assert.Empty(t, m.Epics())
	assert.Empty(t, m.Subtasks())
	assert.Equal(t, []int{taskID}, itemIDs(m.Prioritized()))
}

func TestEpicSubtasksInInsertionOrder(t *testing.T) {
	m := New()
	epicID, _ := m.CreateEpic(models.NewEpic("epic", ""))
	var want []int
	for i := 0; i < 4; i++ {
		id, _ := m.CreateSubtask(models.NewSubtask("sub", "", epicID))
		want = append(want, id)
	}

	subs, err := m.EpicSubtasks(epicID)
	require.NoError(t, err)
	var got []int
	for _, s := range subs {
		got = append(got, s.ID)
	}
	assert.Equal(t, want, got)

	_, err = m.EpicSubtasks(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentAccess(t *testing.T) {
	m := New()
	epicID, _ := m.CreateEpic(models.NewEpic("epic", ""))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				offset := time.Duration(w*100+i) * time.Hour
				id, err := m.CreateSubtask(timedSubtask(epicID, offset, time.Minute))
				if err != nil {
					t.Errorf("create: %v", err)
					return
				}
				if _, err := m.GetSubtask(id); err != nil {
					t.Errorf("get: %v", err)
				}
				m.Prioritized()
				m.History()
			}
		}(w)
	}
	wg.Wait()

	epic, _ := m.GetEpic(epicID)
	assert.Len(t, epic.SubtaskIDs, 200)
	assert.Len(t, m.Prioritized(), 200)
	assert.Len(t, m.History(), 201)
}
