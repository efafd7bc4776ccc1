package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fentz26/tracker/internal/manager"
	"github.com/fentz26/tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	s, err := New(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file was not created")
	assert.NoError(t, s.Ping(context.Background()))
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := manager.New()
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	length := 45 * time.Minute

	task := models.NewTask("task", "with description")
	task.StartTime, task.Duration = &start, &length
	_, err := m.CreateTask(task)
	require.NoError(t, err)

	epicID, err := m.CreateEpic(models.NewEpic("epic", ""))
	require.NoError(t, err)
	sub := models.NewSubtask("sub", "", epicID)
	sub.Status = models.StatusInProgress
	_, err = m.CreateSubtask(sub)
	require.NoError(t, err)

	require.NoError(t, s.SaveSnapshot(ctx, m.Export()))

	loaded, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Tasks, 1)
	require.Len(t, loaded.Epics, 1)
	require.Len(t, loaded.Subtasks, 1)

	assert.Equal(t, "with description", loaded.Tasks[0].Description)
	assert.True(t, start.Equal(*loaded.Tasks[0].StartTime))
	assert.Equal(t, length, *loaded.Tasks[0].Duration)
	assert.Equal(t, epicID, loaded.Subtasks[0].EpicID)
	assert.Equal(t, models.StatusInProgress, loaded.Subtasks[0].Status)

	restored := manager.New()
	require.NoError(t, restored.Restore(loaded))
	epic, err := restored.GetEpic(epicID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, epic.Status)
}

func TestSaveSnapshotReplacesPreviousContents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := manager.Snapshot{Tasks: []models.Task{{ID: 1, Name: "a", Status: models.StatusNew}, {ID: 2, Name: "b", Status: models.StatusNew}}}
	require.NoError(t, s.SaveSnapshot(ctx, first))

	second := manager.Snapshot{Tasks: []models.Task{{ID: 2, Name: "b", Status: models.StatusDone}}}
	require.NoError(t, s.SaveSnapshot(ctx, second))

	loaded, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Tasks, 1)
	assert.Equal(t, models.StatusDone, loaded.Tasks[0].Status)
}

func TestLoadEmpty(t *testing.T) {
	s := newTestStore(t)
	snap, err := s.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snap.Len())
}

func TestJournal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry, err := s.WriteJournal(ctx, "task.create", "abc123", "success", 7, "details")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)

	_, err = s.WriteJournal(ctx, "task.delete", "def456", "success", 7, "")
	require.NoError(t, err)

	entries, err := s.ListJournal(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 7, entries[0].ItemID)
}
