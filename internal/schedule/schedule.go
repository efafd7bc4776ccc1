// Package schedule keeps time-bearing items ordered by start time and
// rejects overlapping intervals.
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fentz26/tracker/internal/models"
)

var (
	// ErrConflict is returned when an item's interval overlaps another one.
	ErrConflict = errors.New("scheduling conflict")
	// ErrMissingWindow is returned when an overlap check is asked of an item
	// without both a start time and a duration.
	ErrMissingWindow = errors.New("start time and duration are required")
)

// Overlaps reports whether the [start, end) intervals of a and b intersect.
// An interval ending exactly when the other begins does not overlap.
func Overlaps(a, b models.Item) (bool, error) {
	aStart, aEnd, ok := a.Window()
	if !ok {
		return false, fmt.Errorf("item %d: %w", a.ItemID(), ErrMissingWindow)
	}
	bStart, bEnd, ok := b.Window()
	if !ok {
		return false, fmt.Errorf("item %d: %w", b.ItemID(), ErrMissingWindow)
	}
	return intersects(aStart, aEnd, bStart, bEnd), nil
}

func intersects(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aEnd.After(bStart) && aStart.Before(bEnd)
}

// entry pins the interval an item had when it was inserted, so ordering
// never depends on later changes to the referenced item.
type entry struct {
	id         int
	start, end time.Time
	item       models.Item
}

func (e entry) less(o entry) bool {
	if e.start.Equal(o.start) {
		return e.id < o.id
	}
	return e.start.Before(o.start)
}

// Index is the start-time ordered set of scheduled items. It is not safe
// for concurrent use.
type Index struct {
	entries []entry
	byID    map[int]entry
}

// New returns an empty index.
func New() *Index {
	return &Index{byID: make(map[int]entry)}
}

// Check returns ErrConflict if item overlaps any indexed item other than
// itself. It never mutates the index.
func (x *Index) Check(item models.Item) error {
	start, end, ok := item.Window()
	if !ok {
		return fmt.Errorf("item %d: %w", item.ItemID(), ErrMissingWindow)
	}
	for _, e := range x.entries {
		if e.id == item.ItemID() {
			continue
		}
		if !e.start.Before(end) {
			// Entries are ordered by start; nothing later can overlap.
			break
		}
		if intersects(start, end, e.start, e.end) {
			return fmt.Errorf("%w: item %d overlaps item %d", ErrConflict, item.ItemID(), e.id)
		}
	}
	return nil
}

// CheckAndInsert adds item unless it overlaps another indexed item, in which
// case the index is left untouched and ErrConflict is returned.
func (x *Index) CheckAndInsert(item models.Item) error {
	if err := x.Check(item); err != nil {
		return err
	}
	start, end, _ := item.Window()
	x.remove(item.ItemID())
	x.insert(entry{id: item.ItemID(), start: start, end: end, item: item})
	return nil
}

// Remove drops the entry for id. Unknown ids are ignored.
func (x *Index) Remove(id int) {
	x.remove(id)
}

// Update re-validates item against everything else in the index. Its own
// previous slot is vacated first; on conflict that slot is restored. An item
// that no longer carries a window is simply removed.
func (x *Index) Update(item models.Item) error {
	prev, had := x.byID[item.ItemID()]
	x.remove(item.ItemID())
	if _, _, ok := item.Window(); !ok {
		return nil
	}
	if err := x.CheckAndInsert(item); err != nil {
		if had {
			x.insert(prev)
		}
		return err
	}
	return nil
}

// Ordered returns the indexed items ascending by start time, ties by id.
func (x *Index) Ordered() []models.Item {
	out := make([]models.Item, len(x.entries))
	for i, e := range x.entries {
		out[i] = e.item
	}
	return out
}

// Contains reports whether id is indexed.
func (x *Index) Contains(id int) bool {
	_, ok := x.byID[id]
	return ok
}

// Len returns the number of indexed items.
func (x *Index) Len() int {
	return len(x.entries)
}

// Clear empties the index.
func (x *Index) Clear() {
	x.entries = nil
	x.byID = make(map[int]entry)
}

func (x *Index) insert(e entry) {
	i := sort.Search(len(x.entries), func(i int) bool { return e.less(x.entries[i]) })
	x.entries = append(x.entries, entry{})
	copy(x.entries[i+1:], x.entries[i:])
	x.entries[i] = e
	x.byID[e.id] = e
}

func (x *Index) remove(id int) {
	e, ok := x.byID[id]
	if !ok {
		return
	}
	i := sort.Search(len(x.entries), func(i int) bool { return !x.entries[i].less(e) })
	for ; i < len(x.entries); i++ {
		if x.entries[i].id == id {
			x.entries = append(x.entries[:i], x.entries[i+1:]...)
			break
		}
	}
	delete(x.byID, id)
}
