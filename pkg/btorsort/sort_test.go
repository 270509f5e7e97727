package btorsort

import "testing"

func TestBitvecInterning(t *testing.T) {
	r := New()
	a := r.Bitvec(8)
	b := r.Bitvec(8)
	if a != b {
		t.Error("two requests for the same width should intern to the same id")
	}
	if r.Width(a) != 8 {
		t.Errorf("Width = %d, want 8", r.Width(a))
	}
}

func TestFunAndArraySort(t *testing.T) {
	r := New()
	idx := r.Bitvec(8)
	elem := r.Bitvec(8)
	arr1 := r.ArraySort(idx, elem)
	arr2 := r.ArraySort(idx, elem)
	if arr1 != arr2 {
		t.Error("array sorts over identical index/elem should intern")
	}
	if !r.IsArray(arr1) {
		t.Error("ArraySort should report IsArray")
	}
	if r.Codomain(arr1) != elem {
		t.Error("codomain should be the element sort")
	}
}

func TestTupleArity(t *testing.T) {
	r := New()
	a := r.Bitvec(8)
	b := r.Bitvec(16)
	tup := r.Tuple(a, b)
	if r.Arity(tup) != 2 {
		t.Errorf("Arity = %d, want 2", r.Arity(tup))
	}
}

func TestDistinctWidthsDistinctSorts(t *testing.T) {
	r := New()
	if r.Bitvec(8) == r.Bitvec(16) {
		t.Error("different widths must not intern to the same sort")
	}
}
