// Package arena is the small free-list node allocator SPEC_FULL.md names
// as the stand-in for the source's "memory manager wrapper": rather than
// letting every deallocated node fall to the garbage collector, pkg/dag
// recycles node structs through a Pool, which matters under the kind of
// sustained copy/release churn spec.md §8's stress invariant drives (a
// long-running context that builds and tears down millions of nodes
// should not hand the GC millions of same-shaped objects to reclaim one
// at a time).
package arena

// Pool is a free-list allocator for *T. Zero value is not usable; use New.
type Pool[T any] struct {
	free []*T
	new  func() *T
}

// New returns an empty pool backed by newFn for the cold-miss path (the
// pool starts with nothing to recycle).
func New[T any](newFn func() *T) *Pool[T] {
	return &Pool[T]{new: newFn}
}

// Alloc returns a zero-valued *T: either a reused slot from the free
// list (explicitly rezeroed, since a freed slot still holds its last
// occupant's fields) or a brand new one from newFn.
func (p *Pool[T]) Alloc() *T {
	if n := len(p.free); n > 0 {
		v := p.free[n-1]
		p.free = p.free[:n-1]
		var zero T
		*v = zero
		return v
	}
	return p.new()
}

// Free returns v to the pool for a future Alloc to reuse. v must not be
// read or written by the caller again until a later Alloc hands it back.
func (p *Pool[T]) Free(v *T) {
	p.free = append(p.free, v)
}

// Len reports how many freed slots are currently available for reuse.
func (p *Pool[T]) Len() int { return len(p.free) }
