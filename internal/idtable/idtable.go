// Package idtable is the monotonically-indexed node table: component 1 of
// the core ("node arena and id table" in SPEC_FULL.md's component table).
// It is deliberately generic over the stored element so pkg/dag can keep
// its Node type private while still sharing this plumbing — the same
// purely-mechanical role the teacher gives result.Table and the spec
// assigns to the "memory manager wrapper, pointer-hash-table" layer: no
// domain knowledge lives here, just id allocation and hole-tracking.
package idtable

// Table is a positive-integer-indexed slot table. Id 0 is never issued
// (reserved for "invalid" per the core's Node.id convention). Freed slots
// become holes and are not reused, matching the source's id-stability
// guarantee: an id, once issued, is never reassigned to a different node
// while the context lives. The table tracks ids only: pkg/dag recycles
// the Node structs themselves through internal/arena, so a handle kept
// past its release can point at a later node.
type Table[T any] struct {
	slots []T // slots[0] is an unused placeholder so id == index
	live  int
}

// New returns an empty table.
func New[T any]() *Table[T] {
	var zero T
	return &Table[T]{slots: []T{zero}}
}

// Alloc reserves the next sequential id and stores v there, returning the
// new id.
func (t *Table[T]) Alloc(v T) uint32 {
	id := uint32(len(t.slots))
	t.slots = append(t.slots, v)
	t.live++
	return id
}

// Get returns the value stored at id. id must have been returned by Alloc
// and not yet Freed.
func (t *Table[T]) Get(id uint32) T {
	return t.slots[id]
}

// Free clears the slot at id, leaving a hole. The zero value is stored so
// a stray reference into the hole reads as empty rather than stale data.
func (t *Table[T]) Free(id uint32) {
	var zero T
	t.slots[id] = zero
	t.live--
}

// Len returns the number of allocated-but-not-freed slots.
func (t *Table[T]) Len() int {
	return t.live
}

// Cap returns the number of ids ever issued, including holes.
func (t *Table[T]) Cap() int {
	return len(t.slots)
}

// Each walks every live slot in id order, calling fn(id, value). fn must
// not call Alloc or Free on the same table.
func (t *Table[T]) Each(isLive func(T) bool, fn func(id uint32, v T)) {
	for id := uint32(1); id < uint32(len(t.slots)); id++ {
		v := t.slots[id]
		if isLive(v) {
			fn(id, v)
		}
	}
}
