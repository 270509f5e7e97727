package arena

import "testing"

func TestAllocReusesFreedSlots(t *testing.T) {
	newCalls := 0
	p := New(func() *int { newCalls++; return new(int) })

	a := p.Alloc()
	*a = 42
	p.Free(a)

	b := p.Alloc()
	if b != a {
		t.Fatal("expected Alloc to hand back the freed slot")
	}
	if *b != 0 {
		t.Fatalf("expected a reused slot to be rezeroed, got %d", *b)
	}
	if newCalls != 1 {
		t.Fatalf("expected exactly 1 call to newFn, got %d", newCalls)
	}
}

func TestAllocGrowsWhenPoolEmpty(t *testing.T) {
	newCalls := 0
	p := New(func() *int { newCalls++; return new(int) })

	p.Alloc()
	p.Alloc()
	if newCalls != 2 {
		t.Fatalf("expected 2 fresh allocations with nothing to reuse, got %d", newCalls)
	}
	if p.Len() != 0 {
		t.Fatalf("expected empty free list, got %d", p.Len())
	}
}
