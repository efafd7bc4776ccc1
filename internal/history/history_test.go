package history

import (
	"math/rand"
	"testing"

	"github.com/fentz26/tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func task(id int) *models.Task {
	t := models.NewTask("task", "")
	t.ID = id
	return &t
}

func ids(items []models.Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.ItemID()
	}
	return out
}

func TestRecordOrdersLeastRecentFirst(t *testing.T) {
	h := New()
	h.Record(task(1))
	h.Record(task(2))
	h.Record(task(3))

	assert.Equal(t, []int{1, 2, 3}, ids(h.Snapshot()))
}

func TestRecordPromotesWithoutDuplicating(t *testing.T) {
	h := New()
	h.Record(task(1))
	h.Record(task(2))
	h.Record(task(3))
	h.Record(task(1))
	h.Record(task(2))

	assert.Equal(t, []int{3, 1, 2}, ids(h.Snapshot()))
	assert.Equal(t, 3, h.Len())
}

func TestRecordNilIsNoop(t *testing.T) {
	h := New()
	h.Record(nil)
	var missing *models.Task
	h.Record(missing)

	assert.Empty(t, h.Snapshot())
}

func TestRemove(t *testing.T) {
	h := New()
	for id := 1; id <= 5; id++ {
		h.Record(task(id))
	}

	h.Remove(1) // head
	h.Remove(5) // tail
	h.Remove(3) // middle
	h.Remove(42)

	assert.Equal(t, []int{2, 4}, ids(h.Snapshot()))
}

func TestRemoveAfterRepeatedViews(t *testing.T) {
	h := New()
	h.Record(task(7))
	h.Record(task(8))
	h.Record(task(7))
	h.Record(task(7))

	h.Remove(7)

	assert.Equal(t, []int{8}, ids(h.Snapshot()))
}

func TestRemovedSlotsAreReused(t *testing.T) {
	h := New()
	h.Record(task(1))
	h.Record(task(2))
	h.Remove(1)
	h.Record(task(3))

	assert.Len(t, h.nodes, 2)
	assert.Equal(t, []int{2, 3}, ids(h.Snapshot()))
}

func TestSnapshotReflectsCurrentState(t *testing.T) {
	h := New()
	tk := task(1)
	h.Record(tk)

	tk.Name = "renamed"

	snap := h.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "renamed", snap[0].(*models.Task).Name)
}

func TestClear(t *testing.T) {
	h := New()
	h.Record(task(1))
	h.Record(task(2))
	h.Clear()

	assert.Empty(t, h.Snapshot())
	h.Record(task(3))
	assert.Equal(t, []int{3}, ids(h.Snapshot()))
}

func TestRecencyProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	h := New()
	for i := 0; i < 500; i++ {
		id := rng.Intn(20) + 1
		if rng.Intn(5) == 0 {
			h.Remove(id)
			assert.NotContains(t, ids(h.Snapshot()), id)
			continue
		}
		h.Record(task(id))

		snap := ids(h.Snapshot())
		require.NotEmpty(t, snap)
		assert.Equal(t, id, snap[len(snap)-1])

		seen := make(map[int]bool, len(snap))
		for _, got := range snap {
			assert.False(t, seen[got], "id %d appears twice", got)
			seen[got] = true
		}
	}
}
