package dag

import (
	"testing"

	"github.com/ndrewh/exprdag/pkg/bitvec"
	"github.com/ndrewh/exprdag/pkg/btorsort"
)

func newTestContext() *Context {
	return NewContext(btorsort.New(), DefaultOptions(), nil)
}

// TestHashConsingSharesStructurallyEqualNodes covers spec.md §8's "no
// duplicates" population invariant: two structurally identical
// constructions must return the same underlying node.
func TestHashConsingSharesStructurallyEqualNodes(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(8)
	a := c.Var(sort, "a")
	b := c.Var(sort, "b")

	e1 := c.And(a, b)
	e2 := c.And(a, b)
	if Real(e1).Node != Real(e2).Node {
		t.Fatal("two constructions of and(a,b) should hash-cons to the same node")
	}
	if c.Stats().UniqueNodes != 1 { // only and(a,b): variables never enter the unique table
		t.Errorf("unique node count = %d, want 1", c.Stats().UniqueNodes)
	}

	c.Release(e1)
	c.Release(e2)
	c.Release(a)
	c.Release(b)
}

// TestAndCommutativeSortExp exercises invariant 3: with SortExp on, and(a,b)
// and and(b,a) must produce the same node regardless of argument order.
func TestAndCommutativeSortExp(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(4)
	a := c.Var(sort, "a")
	b := c.Var(sort, "b")

	e1 := c.And(a, b)
	e2 := c.And(b, a)
	if Real(e1).Node != Real(e2).Node {
		t.Fatal("and(a,b) and and(b,a) should share a node under SortExp")
	}

	c.Release(e1)
	c.Release(e2)
	c.Release(a)
	c.Release(b)
}

// TestReleaseCascadesToChildren verifies that releasing the last external
// handle to a compound term also releases its children (spec.md §4.4).
func TestReleaseCascadesToChildren(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(8)
	a := c.Var(sort, "a")
	b := c.Var(sort, "b")
	andEdge := c.And(a, b)

	aNode := Real(a).Node
	bNode := Real(b).Node

	// a,b each have: 1 extRef (ours) + 1 refs from the and-node's child
	// edge = 2 refs. Releasing our handles should leave them parented
	// only by the still-live and-node.
	c.Release(a)
	c.Release(b)
	if aNode.Refs() != 1 || bNode.Refs() != 1 {
		t.Fatalf("a/b should have 1 remaining ref (held by and-node), got %d/%d", aNode.Refs(), bNode.Refs())
	}

	c.Release(andEdge)
	if c.ids.Len() != 0 {
		t.Fatalf("releasing the only root should deallocate the whole subtree, %d nodes remain", c.ids.Len())
	}
}

// TestCopyIncrementsBothRefs checks Copy's contract: a fresh independent
// external handle, requiring its own Release.
func TestCopyIncrementsBothRefs(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(8)
	a := c.Var(sort, "a")
	b := c.Copy(a)

	if Real(a).Node.ExtRefs() != 2 {
		t.Fatalf("extRefs = %d, want 2", Real(a).Node.ExtRefs())
	}

	c.Release(a)
	c.Release(b)
	if c.ids.Len() != 0 {
		t.Fatal("both handles released, node should be gone")
	}
}

// TestReleaseOfUnheldHandlePanics enforces §7's contract-violation rule.
func TestReleaseOfUnheldHandlePanics(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(8)
	a := c.Var(sort, "a")
	c.Release(a)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic releasing an already-fully-released handle")
		}
	}()
	c.Release(a)
}

// TestConstantComplementNormalization covers invariant 10: a value whose
// low bit is set is stored under its complement with an inversion bit, so
// v and Not(v) share the same underlying node.
func TestConstantComplementNormalization(t *testing.T) {
	c := newTestContext()
	v := bitvec.FromUint64(8, 0x3D) // low bit set
	e := c.Const(v)
	notE := c.Const(v.Not())

	if Real(e).Node != Real(notE).Node {
		t.Fatal("v and Not(v) constants should share a node via complement normalization")
	}
	if !Real(e).Inverted {
		t.Error("the complement-normalized edge for the low-bit-set value should carry the inversion")
	}

	c.Release(e)
	c.Release(notE)
}

// TestSubOfSelfSharesShape exercises the worked scenario from spec.md §8:
// sub(x,x) expands to add(x, neg(x)) == add(x, add(not(x), 1)); building it
// twice should hash-cons to exactly the same DAG shape rather than two
// independent trees, since neg/sub never touch extRefs on their scratch
// intermediates.
func TestSubOfSelfSharesShape(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(8)
	x := c.Var(sort, "x")

	d1 := c.Sub(x, x)
	d2 := c.Sub(x, x)
	if Real(d1).Node != Real(d2).Node {
		t.Fatal("sub(x,x) built twice should hash-cons to the same node")
	}

	c.Release(d1)
	c.Release(d2)
	c.Release(x)
}

// TestCondEqualArmsCollapses exercises the defaultRuleSet's cond(c,t,t)=t
// rule (spec.md §8).
func TestCondEqualArmsCollapses(t *testing.T) {
	c := newTestContext()
	boolSort := c.Sorts().Bitvec(1)
	sort := c.Sorts().Bitvec(8)
	cond := c.Var(boolSort, "p")
	t8 := c.Var(sort, "t")

	result := c.Cond(cond, t8, t8)
	if Real(result).Node != Real(t8).Node {
		t.Fatal("cond(c,t,t) should collapse to t")
	}

	c.Release(result)
	c.Release(cond)
	c.Release(t8)
}

// TestGCStress drives spec.md §8's "construct and release 10^6 nodes,
// ending with zero live nodes" scenario at a scale a unit test can afford.
func TestGCStress(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(32)
	const n = 20000

	root := c.Var(sort, "seed")
	for i := 0; i < n; i++ {
		next := c.Inc(root)
		c.Release(root)
		root = next
	}
	c.Release(root)

	if c.ids.Len() != 0 {
		t.Fatalf("expected zero live nodes after the chain unwinds, got %d", c.ids.Len())
	}
}

// TestTeardownPanicsOnLeakedExternalRef covers Context.Teardown's documented
// contract-violation behavior.
func TestTeardownPanicsOnLeakedExternalRef(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(8)
	_ = c.Var(sort, "leaked")

	defer func() {
		if recover() == nil {
			t.Fatal("Teardown should panic when an external reference survives")
		}
	}()
	c.Teardown()
}

// TestTeardownClean verifies the non-leaking path: once every external
// handle has been released, Teardown succeeds and empties the id table.
func TestTeardownClean(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(8)
	a := c.Var(sort, "a")
	b := c.Var(sort, "b")
	sum := c.Add(a, b)
	c.Release(a)
	c.Release(b)
	c.Release(sum)

	c.Teardown() // should not panic; nothing left to walk
	if c.ids.Len() != 0 {
		t.Fatal("expected empty id table after a clean teardown")
	}
}
