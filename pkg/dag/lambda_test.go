package dag

import "testing"

// TestLambdaAlphaEquivalence covers spec.md §9: two lambdas built over
// distinct Param nodes, but otherwise structurally identical bodies, must
// hash-cons to the same node.
func TestLambdaAlphaEquivalence(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(8)

	p1 := c.Param(sort, "")
	body1 := c.Add(p1, p1)
	l1 := c.Lambda(p1, body1)

	p2 := c.Param(sort, "")
	body2 := c.Add(p2, p2)
	l2 := c.Lambda(p2, body2)

	if Real(l1).Node != Real(l2).Node {
		t.Fatal("alpha-equivalent lambdas over distinct params should share a node")
	}

	c.Release(l1)
	c.Release(l2)
}

// TestLambdaDoubleBindPanics covers invariant 7: a parameter has at most
// one binder.
func TestLambdaDoubleBindPanics(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(8)
	p := c.Param(sort, "")
	body := c.Add(p, p)
	l1 := c.Lambda(p, body)
	defer c.Release(l1)

	other := c.Var(sort, "other")
	body2 := c.Add(p, other)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic binding an already-bound parameter again")
		}
		c.Release(other)
	}()
	c.Lambda(p, body2)
}

// TestApplyLambdaBetaReduces covers spec.md §9: applying a lambda fully
// substitutes the argument and never leaves a standing apply(lambda(...))
// node behind.
func TestApplyLambdaBetaReduces(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(8)

	p := c.Param(sort, "")
	body := c.Add(p, p) // \p. p + p
	l := c.Lambda(p, body)

	arg := c.Var(sort, "x")
	result := c.ApplyExps(l, arg)

	want := c.Add(arg, arg)
	if Real(result).Node != Real(want).Node {
		t.Fatal("apply(lambda(p, p+p), x) should beta-reduce to x+x")
	}
	if Real(result).Node.Kind() == KindApply {
		t.Fatal("beta reduction should never leave a standing apply-of-lambda node")
	}

	c.Release(result)
	c.Release(want)
	c.Release(l)
	c.Release(arg)
}

// TestApplyLambdaBetaReduceNestedBodyReleasesCleanly covers the refcount
// leak a single-level body (p+p) can't surface: substituting a body more
// than one operator deep must discard() every intermediate subst() result
// once it's wired into its parent, exactly like derived.go's macro
// expansions, or the inner add(x,c1) node ends up with an unpaid scratch
// hold and is never reclaimed.
func TestApplyLambdaBetaReduceNestedBodyReleasesCleanly(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(8)

	p := c.Param(sort, "")
	one := c.Int(1, sort)
	two := c.Int(2, sort)
	inner := c.Add(p, one) // \p. (p + 1) + 2
	body := c.Add(inner, two)
	l := c.Lambda(p, body)

	x := c.Var(sort, "x")
	result := c.ApplyExps(l, x)

	wantInner := c.Add(x, one)
	want := c.Add(wantInner, two)
	if Real(result).Node != Real(want).Node {
		t.Fatal("apply(lambda(p, (p+1)+2), x) should beta-reduce to (x+1)+2")
	}

	c.Release(result)
	c.Release(want)
	c.Release(wantInner)
	c.Release(inner)
	c.Release(body)
	c.Release(l)
	c.Release(p)
	c.Release(x)
	c.Release(one)
	c.Release(two)

	if n := c.Stats().LiveNodes; n != 0 {
		t.Fatalf("expected every node reclaimed after balanced releases, %d still live", n)
	}
}

// TestReadWriteSameIndexReadOverWrite exercises read-over-write on the
// default (KindUpdate) write encoding, which carries no static rho: reading
// back the index just written to an array walks the write chain one step,
// matches the index tuple, and returns exactly the written value.
func TestReadWriteSameIndexReadOverWrite(t *testing.T) {
	c := newTestContext()
	idxSort := c.Sorts().Bitvec(8)
	elemSort := c.Sorts().Bitvec(8)
	arrSort := c.Sorts().ArraySort(idxSort, elemSort)

	arr := c.Array(arrSort, "mem")
	idx := c.Var(idxSort, "i")
	val := c.Var(elemSort, "v")

	written := c.Write(arr, idx, val)
	readBack := c.Read(written, idx)

	if Real(readBack).Node != Real(val).Node {
		t.Fatal("reading the just-written index should return the written value")
	}

	c.Release(readBack)
	c.Release(written)
	c.Release(arr)
	c.Release(idx)
	c.Release(val)
}

// TestWriteAsLambdaEncoding covers the Options.FunStoreLambdas path: with
// lambda-encoded writes forced on, Write should still round-trip through
// Read/rho exactly as the direct-update encoding does.
func TestWriteAsLambdaEncoding(t *testing.T) {
	opts := DefaultOptions()
	opts.FunStoreLambdas = true
	c := NewContext(nil, opts, nil)

	idxSort := c.Sorts().Bitvec(4)
	elemSort := c.Sorts().Bitvec(8)
	arrSort := c.Sorts().ArraySort(idxSort, elemSort)

	arr := c.Array(arrSort, "mem")
	idx := c.Var(idxSort, "i")
	val := c.Var(elemSort, "v")

	written := c.Write(arr, idx, val)
	if Real(written).Node.Kind() != KindLambda {
		t.Fatalf("FunStoreLambdas should encode write as a lambda, got kind %v", Real(written).Node.Kind())
	}

	readBack := c.Read(written, idx)
	if Real(readBack).Node != Real(val).Node {
		t.Fatal("lambda-encoded write should still satisfy read-after-write via rho")
	}

	c.Release(readBack)
	c.Release(written)
	c.Release(arr)
	c.Release(idx)
	c.Release(val)
}
