package dag

import (
	"math/bits"
	"testing"
)

// evalEdge is a tiny brute-force interpreter over closed (variable-free)
// terms built from constants, used only by these tests: the core itself
// never evaluates a term (spec.md's non-goals explicitly exclude general
// constant folding/model construction), so this is how the tests check
// that a macro expansion in derived.go actually computes what it claims
// to, independent of whatever DAG shape the rewriter collapsed it to.
func evalEdge(t *testing.T, c *Context, e Edge) uint64 {
	t.Helper()
	re := Real(e)
	n := re.Node
	width := c.sorts.Width(n.sort)

	var v uint64
	switch n.kind {
	case KindConst:
		v = n.constBits.Uint64()
	case KindAnd:
		v = evalEdge(t, c, n.e[0]) & evalEdge(t, c, n.e[1])
	case KindAdd:
		v = evalEdge(t, c, n.e[0]) + evalEdge(t, c, n.e[1])
	case KindMul:
		v = evalEdge(t, c, n.e[0]) * evalEdge(t, c, n.e[1])
	case KindBVEq:
		if evalEdge(t, c, n.e[0]) == evalEdge(t, c, n.e[1]) {
			v = 1
		}
	case KindULt:
		if evalEdge(t, c, n.e[0]) < evalEdge(t, c, n.e[1]) {
			v = 1
		}
	case KindSll:
		v = evalEdge(t, c, n.e[0]) << evalEdge(t, c, n.e[1])
	case KindSrl:
		v = evalEdge(t, c, n.e[0]) >> evalEdge(t, c, n.e[1])
	case KindUdiv:
		b := evalEdge(t, c, n.e[1])
		if b == 0 {
			t.Fatal("evalEdge: division by zero")
		}
		v = evalEdge(t, c, n.e[0]) / b
	case KindUrem:
		b := evalEdge(t, c, n.e[1])
		if b == 0 {
			t.Fatal("evalEdge: remainder by zero")
		}
		v = evalEdge(t, c, n.e[0]) % b
	case KindConcat:
		wb := c.sorts.Width(Real(n.e[1]).Node.sort)
		v = (evalEdge(t, c, n.e[0]) << wb) | evalEdge(t, c, n.e[1])
	case KindSlice:
		v = evalEdge(t, c, n.e[0]) >> n.slice.lower
	case KindCond:
		if evalEdge(t, c, n.e[0])&1 == 1 {
			v = evalEdge(t, c, n.e[1])
		} else {
			v = evalEdge(t, c, n.e[2])
		}
	default:
		t.Fatalf("evalEdge: unsupported kind %v in a closed term", n.kind)
	}

	v &= maskWidth(width)
	if re.Inverted {
		v = (^v) & maskWidth(width)
	}
	return v
}

func maskWidth(width uint32) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

func TestNegAndSubOnConstants(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(8)
	a := c.Unsigned(5, sort)
	b := c.Unsigned(3, sort)

	neg := c.Neg(a)
	if got := evalEdge(t, c, neg); got != uint64(256-5) {
		t.Errorf("Neg(5) = %d, want %d", got, 256-5)
	}
	c.Release(neg)

	diff := c.Sub(a, b)
	if got := evalEdge(t, c, diff); got != 2 {
		t.Errorf("Sub(5,3) = %d, want 2", got)
	}
	c.Release(diff)
	c.Release(a)
	c.Release(b)
}

func TestZeroSignExtend(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(4)
	negOne := c.Unsigned(0xF, sort) // -1 in 4-bit two's complement

	ze := c.ZeroExtend(negOne, 4)
	if got := evalEdge(t, c, ze); got != 0x0F {
		t.Errorf("ZeroExtend(0xF,4) = %#x, want 0x0f", got)
	}
	c.Release(ze)

	se := c.SignExtend(negOne, 4)
	if got := evalEdge(t, c, se); got != 0xFF {
		t.Errorf("SignExtend(0xF,4) = %#x, want 0xff", got)
	}
	c.Release(se)
	c.Release(negOne)
}

func TestRolRorRoundTrip(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(8)
	shSort := c.Sorts().Bitvec(3)
	a := c.Unsigned(0xA5, sort)
	amt := c.Unsigned(3, shSort)

	rolled := c.Rol(a, amt)
	want := uint64(bits.RotateLeft8(0xA5, 3))
	if got := evalEdge(t, c, rolled); got != want {
		t.Errorf("Rol(0xA5,3) = %#x, want %#x", got, want)
	}

	unrolled := c.Ror(rolled, amt)
	if got := evalEdge(t, c, unrolled); got != 0xA5 {
		t.Errorf("Ror(Rol(x,3),3) = %#x, want 0xa5", got)
	}

	c.Release(unrolled)
	c.Release(rolled)
	c.Release(a)
	c.Release(amt)
}

func TestSignedComparisons(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(8)
	negOne := c.Int(-1, sort)
	one := c.Int(1, sort)

	slt := c.Slt(negOne, one)
	if got := evalEdge(t, c, slt); got != 1 {
		t.Error("Slt(-1, 1) should be true")
	}
	c.Release(slt)

	ult := c.Ult(negOne, one) // unsigned: 0xFF < 1 is false
	if got := evalEdge(t, c, ult); got != 0 {
		t.Error("Ult(-1, 1) should be false (unsigned 0xff is not < 1)")
	}
	c.Release(ult)

	c.Release(negOne)
	c.Release(one)
}

func TestUaddoDetectsOverflow(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(8)
	max := c.Unsigned(0xFF, sort)
	one := c.One(sort)

	o := c.Uaddo(max, one)
	if got := evalEdge(t, c, o); got != 1 {
		t.Error("Uaddo(0xff, 1) should overflow")
	}
	c.Release(o)

	noOverflow := c.Uaddo(one, one)
	if got := evalEdge(t, c, noOverflow); got != 0 {
		t.Error("Uaddo(1,1) should not overflow")
	}
	c.Release(noOverflow)

	c.Release(max)
	c.Release(one)
}

func TestSmuloWidthsOneToSix(t *testing.T) {
	c := newTestContext()
	for width := uint32(1); width <= 6; width++ {
		sort := c.Sorts().Bitvec(width)
		lo := -(int64(1) << (width - 1))
		hi := (int64(1) << (width - 1)) - 1
		for x := lo; x <= hi; x++ {
			for y := lo; y <= hi; y++ {
				a := c.Int(x, sort)
				b := c.Int(y, sort)
				o := c.Smulo(a, b)
				got := evalEdge(t, c, o)
				want := x*y < lo || x*y > hi
				if (got == 1) != want {
					t.Errorf("width %d: Smulo(%d,%d) = %v, want %v", width, x, y, got == 1, want)
				}
				c.Release(o)
				c.Release(a)
				c.Release(b)
			}
		}
	}
}

func TestRedorRedandRedxor(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(8)

	zero := c.Zero(sort)
	ro0 := c.Redor(zero)
	if got := evalEdge(t, c, ro0); got != 0 {
		t.Error("Redor(0) should be false")
	}
	c.Release(ro0)

	nonzero := c.Unsigned(0x10, sort)
	ro := c.Redor(nonzero)
	if got := evalEdge(t, c, ro); got != 1 {
		t.Error("Redor(nonzero) should be true")
	}
	c.Release(ro)

	ones := c.Ones(sort)
	ra := c.Redand(ones)
	if got := evalEdge(t, c, ra); got != 1 {
		t.Error("Redand(all-ones) should be true")
	}
	c.Release(ra)

	v := c.Unsigned(0x07, sort) // 3 set bits -> odd parity
	rx := c.Redxor(v)
	if got := evalEdge(t, c, rx); got != 1 {
		t.Error("Redxor(0b111) should be true (odd parity)")
	}
	c.Release(rx)
	c.Release(v)
	c.Release(ones)
	c.Release(nonzero)
	c.Release(zero)
}

func TestSdivSremSignCorrection(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(8)
	a := c.Int(-7, sort)
	b := c.Int(2, sort)

	q := c.Sdiv(a, b)
	if got := int8(evalEdge(t, c, q)); got != -3 {
		t.Errorf("Sdiv(-7,2) = %d, want -3", got)
	}
	c.Release(q)

	r := c.Srem(a, b)
	if got := int8(evalEdge(t, c, r)); got != -1 {
		t.Errorf("Srem(-7,2) = %d, want -1", got)
	}
	c.Release(r)

	c.Release(a)
	c.Release(b)
}

func TestNotDoesNotAllocate(t *testing.T) {
	c := newTestContext()
	sort := c.Sorts().Bitvec(8)
	a := c.Var(sort, "a")
	before := c.Stats().LiveNodes

	na := c.Not(a)
	if c.Stats().LiveNodes != before {
		t.Error("Not should never allocate a new node")
	}
	if Real(na).Node != Real(a).Node || !Real(na).Inverted {
		t.Error("Not should return the same node with the inversion bit flipped")
	}

	c.Release(na)
	c.Release(a)
}
