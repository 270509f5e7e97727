package bitblast

import (
	"testing"

	"github.com/ndrewh/exprdag/pkg/dag"
)

func newCtx() *dag.Context {
	return dag.NewContext(nil, dag.DefaultOptions(), nil)
}

// TestExportTwoRootsWithSharedSubterms bit-blasts two roots that share the
// subterms a and b in one Export call and checks that each root gets its
// own 8-bit output vector.
func TestExportTwoRootsWithSharedSubterms(t *testing.T) {
	c := newCtx()
	sort := c.Sorts().Bitvec(8)
	a := c.Var(sort, "a")
	b := c.Var(sort, "b")
	sum := c.Add(a, b)
	prod := c.Mul(a, b)

	res := Export(c, sum, prod)
	if len(res.Roots) != 2 {
		t.Fatalf("expected 2 root bit-vectors, got %d", len(res.Roots))
	}
	if len(res.Roots[0]) != 8 || len(res.Roots[1]) != 8 {
		t.Fatalf("expected 8-bit outputs, got %d/%d", len(res.Roots[0]), len(res.Roots[1]))
	}

	c.Release(sum)
	c.Release(prod)
	c.Release(a)
	c.Release(b)
}

// TestExportConstZeroIsFalseLiteral checks a zero constant blasts to the
// circuit's constant-false literal on every bit.
func TestExportConstZeroIsFalseLiteral(t *testing.T) {
	c := newCtx()
	sort := c.Sorts().Bitvec(4)
	zero := c.Zero(sort)

	res := Export(c, zero)
	for i, lit := range res.Roots[0] {
		if lit != res.Circuit.F {
			t.Errorf("bit %d of Zero(4) should be the circuit's false literal, got %v", i, lit)
		}
	}

	c.Release(zero)
}

// TestExportPanicsOnArrayTerms documents the package's explicit scope
// limit: array/function terms are not bit-blastable.
func TestExportPanicsOnArrayTerms(t *testing.T) {
	c := newCtx()
	idxSort := c.Sorts().Bitvec(4)
	elemSort := c.Sorts().Bitvec(8)
	arrSort := c.Sorts().ArraySort(idxSort, elemSort)
	arr := c.Array(arrSort, "mem")

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic bit-blasting an array-sorted term")
		}
		c.Release(arr)
	}()
	Export(c, arr)
}
