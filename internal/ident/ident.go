// Package ident hands out item ids.
package ident

// Allocator is a monotonically increasing id counter. It is not safe for
// concurrent use; the owner serialises access.
type Allocator struct {
	last int
}

// Next increments the counter and returns the new value.
func (a *Allocator) Next() int {
	a.last++
	return a.last
}

// Observe fast-forwards the counter so that ids already in use, such as
// ones restored from disk, are never issued again.
func (a *Allocator) Observe(id int) {
	if id > a.last {
		a.last = id
	}
}

// Current returns the last issued or observed id.
func (a *Allocator) Current() int {
	return a.last
}
