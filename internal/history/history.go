// Package history keeps the recency-ordered log of items viewed by id.
package history

import "github.com/fentz26/tracker/internal/models"

// nilHandle marks the absence of a neighbour.
const nilHandle = -1

type node struct {
	item       models.Item
	prev, next int
}

// Tracker is an ordered set of items with O(1) promote and O(1) remove by
// id. Nodes live in an arena slice and link to each other by index; vacated
// slots are reused through a free list. A Tracker is not safe for concurrent
// use.
type Tracker struct {
	nodes []node
	free  []int
	index map[int]int
	head  int // least recent
	tail  int // most recent
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{
		index: make(map[int]int),
		head:  nilHandle,
		tail:  nilHandle,
	}
}

// Record moves item to the most-recent end, inserting it if absent.
// A nil item is ignored.
func (t *Tracker) Record(item models.Item) {
	if isNil(item) {
		return
	}
	if h, ok := t.index[item.ItemID()]; ok {
		t.unlink(h)
		t.nodes[h].item = item
		t.linkLast(h)
		return
	}
	h := t.alloc(item)
	t.index[item.ItemID()] = h
	t.linkLast(h)
}

// Remove drops the entry for id. Unknown ids are ignored.
func (t *Tracker) Remove(id int) {
	h, ok := t.index[id]
	if !ok {
		return
	}
	t.unlink(h)
	delete(t.index, id)
	t.nodes[h] = node{prev: nilHandle, next: nilHandle}
	t.free = append(t.free, h)
}

// Snapshot returns the tracked items from least to most recently viewed.
func (t *Tracker) Snapshot() []models.Item {
	out := make([]models.Item, 0, len(t.index))
	for h := t.head; h != nilHandle; h = t.nodes[h].next {
		out = append(out, t.nodes[h].item)
	}
	return out
}

// Len returns the number of distinct tracked items.
func (t *Tracker) Len() int {
	return len(t.index)
}

// Clear forgets every entry.
func (t *Tracker) Clear() {
	t.nodes = t.nodes[:0]
	t.free = t.free[:0]
	t.index = make(map[int]int)
	t.head, t.tail = nilHandle, nilHandle
}

func (t *Tracker) alloc(item models.Item) int {
	n := node{item: item, prev: nilHandle, next: nilHandle}
	if last := len(t.free) - 1; last >= 0 {
		h := t.free[last]
		t.free = t.free[:last]
		t.nodes[h] = n
		return h
	}
	t.nodes = append(t.nodes, n)
	return len(t.nodes) - 1
}

func (t *Tracker) linkLast(h int) {
	n := &t.nodes[h]
	n.prev, n.next = t.tail, nilHandle
	if t.tail != nilHandle {
		t.nodes[t.tail].next = h
	} else {
		t.head = h
	}
	t.tail = h
}

func (t *Tracker) unlink(h int) {
	n := &t.nodes[h]
	if n.prev != nilHandle {
		t.nodes[n.prev].next = n.next
	} else {
		t.head = n.next
	}
	if n.next != nilHandle {
		t.nodes[n.next].prev = n.prev
	} else {
		t.tail = n.prev
	}
	n.prev, n.next = nilHandle, nilHandle
}

// isNil catches typed nil pointers wrapped in the interface.
func isNil(item models.Item) bool {
	switch v := item.(type) {
	case nil:
		return true
	case *models.Task:
		return v == nil
	case *models.Epic:
		return v == nil
	case *models.Subtask:
		return v == nil
	}
	return false
}
