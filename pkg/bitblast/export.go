// Package bitblast is the optional downstream exporter named in spec.md
// §1's purpose statement ("derived encodings ... for downstream
// bit-blasting and SAT solving") and in SPEC_FULL.md's DOMAIN STACK
// section: it walks a dag.Context's reachable bit-vector terms and emits
// an equivalent github.com/irifrance/gini/logic.C and-inverter circuit,
// one bit of circuit per bit of term.
//
// This package is explicitly downstream of pkg/dag — never imported by
// it — and never calls a SAT procedure itself; spec.md's non-goals (no
// model construction, no proof production, no solving loop) still hold
// here. It stops at producing the circuit; converting it to CNF (for
// instance with logic.C's ToCnfFrom) is left to the caller.
package bitblast

import (
	"github.com/irifrance/gini/logic"
	"github.com/irifrance/gini/z"

	"github.com/ndrewh/exprdag/internal/assert"
	"github.com/ndrewh/exprdag/pkg/dag"
)

// Result is the outcome of exporting a set of roots: the circuit plus each
// root's output literal vector, one z.Lit per bit, least-significant bit
// first (matching bitvec.Value's own little-endian word layout).
type Result struct {
	Circuit *logic.C
	Roots   [][]z.Lit
}

// Export bit-blasts every root (and everything reachable from it) into a
// single shared gini circuit, structurally sharing literals across roots
// exactly the way the DAG shares nodes: two roots whose subterms are the
// same dag.Node get the same literals, since the memo is keyed by node id.
func Export(ctx *dag.Context, roots ...dag.Edge) *Result {
	assert.Require(len(roots) > 0, "bitblast: Export requires at least one root")
	b := &blaster{ctx: ctx, circuit: logic.NewC(), memo: make(map[uint32][]z.Lit)}

	out := make([][]z.Lit, len(roots))
	for i, r := range roots {
		out[i] = b.blast(r)
	}
	return &Result{Circuit: b.circuit, Roots: out}
}

type blaster struct {
	ctx     *dag.Context
	circuit *logic.C
	memo    map[uint32][]z.Lit // dag node id (pre-inversion) -> bit literals
}

// blast returns e's bit vector, applying e's own inversion bit on top of
// whatever is memoized for its underlying node.
func (b *blaster) blast(e dag.Edge) []z.Lit {
	re := dag.Real(e)
	n := re.Node
	bits, ok := b.memo[n.Id()]
	if !ok {
		bits = b.blastNode(n)
		b.memo[n.Id()] = bits
	}
	if re.IsInverted() {
		return notAll(b.circuit, bits)
	}
	return bits
}

func (b *blaster) blastNode(n *dag.Node) []z.Lit {
	width := int(b.ctx.Sorts().Width(n.Sort()))
	switch n.Kind() {
	case dag.KindConst:
		return constBits(b.circuit, n, width)
	case dag.KindVar, dag.KindParam, dag.KindUF:
		bits := make([]z.Lit, width)
		for i := range bits {
			bits[i] = b.circuit.Lit()
		}
		return bits
	case dag.KindSlice:
		lower, upper := n.SliceBounds()
		full := b.blast(n.Child(0))
		return append([]z.Lit(nil), full[lower:upper+1]...)
	case dag.KindAnd:
		return zipWith(b.circuit.And, b.blast(n.Child(0)), b.blast(n.Child(1)))
	case dag.KindAdd:
		sum, _ := rippleAdd(b.circuit, b.blast(n.Child(0)), b.blast(n.Child(1)), b.circuit.F)
		return sum
	case dag.KindMul:
		return shiftAddMul(b.circuit, b.blast(n.Child(0)), b.blast(n.Child(1)))
	case dag.KindULt:
		return []z.Lit{unsignedLess(b.circuit, b.blast(n.Child(0)), b.blast(n.Child(1)))}
	case dag.KindBVEq:
		return []z.Lit{bitsEqual(b.circuit, b.blast(n.Child(0)), b.blast(n.Child(1)))}
	case dag.KindSll:
		return barrelShift(b.circuit, b.blast(n.Child(0)), b.blast(n.Child(1)), true)
	case dag.KindSrl:
		return barrelShift(b.circuit, b.blast(n.Child(0)), b.blast(n.Child(1)), false)
	case dag.KindConcat:
		lo := b.blast(n.Child(1))
		hi := b.blast(n.Child(0))
		return append(append([]z.Lit(nil), lo...), hi...)
	case dag.KindCond:
		cond := b.blast(n.Child(0))[0]
		t := b.blast(n.Child(1))
		e := b.blast(n.Child(2))
		out := make([]z.Lit, width)
		for i := range out {
			out[i] = b.circuit.Choice(cond, t[i], e[i])
		}
		return out
	case dag.KindUdiv, dag.KindUrem:
		q, r := restoringDivide(b.circuit, b.blast(n.Child(0)), b.blast(n.Child(1)))
		if n.Kind() == dag.KindUdiv {
			return q
		}
		return r
	default:
		panic("bitblast: " + n.Kind().String() + " is not bit-blastable (array/function/binder terms are out of scope)")
	}
}

func constBits(c *logic.C, n *dag.Node, width int) []z.Lit {
	bits := make([]z.Lit, width)
	for i := 0; i < width; i++ {
		if n.ConstBit(uint32(i)) == 1 {
			bits[i] = c.T
		} else {
			bits[i] = c.F
		}
	}
	return bits
}

func notAll(c *logic.C, bits []z.Lit) []z.Lit {
	out := make([]z.Lit, len(bits))
	for i, l := range bits {
		out[i] = l.Not()
	}
	return out
}

func zipWith(op func(a, b z.Lit) z.Lit, a, b []z.Lit) []z.Lit {
	out := make([]z.Lit, len(a))
	for i := range a {
		out[i] = op(a[i], b[i])
	}
	return out
}

// rippleAdd builds a textbook ripple-carry adder: sum[i] = a[i] xor b[i]
// xor carry; carry' = majority(a[i], b[i], carry).
func rippleAdd(c *logic.C, a, b []z.Lit, carryIn z.Lit) (sum []z.Lit, carryOut z.Lit) {
	sum = make([]z.Lit, len(a))
	carry := carryIn
	for i := range a {
		axb := c.Xor(a[i], b[i])
		sum[i] = c.Xor(axb, carry)
		carry = c.Or(c.And(a[i], b[i]), c.And(axb, carry))
	}
	return sum, carry
}

// shiftAddMul is a naive shift-and-add multiplier: for each set bit
// position of b, conditionally add a shifted by that position. O(width^2)
// gates, fine for the small widths this reference exporter is meant for.
func shiftAddMul(c *logic.C, a, b []z.Lit) []z.Lit {
	width := len(a)
	acc := make([]z.Lit, width)
	for i := range acc {
		acc[i] = c.F
	}
	for shift := 0; shift < width; shift++ {
		shifted := make([]z.Lit, width)
		for i := 0; i < width; i++ {
			if i < shift {
				shifted[i] = c.F
			} else {
				shifted[i] = c.And(a[i-shift], b[shift])
			}
		}
		acc, _ = rippleAdd(c, acc, shifted, c.F)
	}
	return acc
}

// unsignedLess builds a < b via a borrow chain from the least significant
// bit, returning the final borrow-out.
func unsignedLess(c *logic.C, a, b []z.Lit) z.Lit {
	borrow := c.F
	for i := range a {
		notA := a[i].Not()
		borrow = c.Or(c.And(notA, b[i]), c.And(c.Xor(notA, b[i]), borrow))
	}
	return borrow
}

func bitsEqual(c *logic.C, a, b []z.Lit) z.Lit {
	eq := c.T
	for i := range a {
		eq = c.And(eq, c.Xor(a[i], b[i]).Not())
	}
	return eq
}

// barrelShift builds a log-depth shifter: for each bit of the shift amount
// (up to log2(width)), conditionally shift by 2^k.
func barrelShift(c *logic.C, a, shamt []z.Lit, left bool) []z.Lit {
	width := len(a)
	cur := append([]z.Lit(nil), a...)
	for k := 0; k < len(shamt); k++ {
		amount := 1 << k
		shifted := make([]z.Lit, width)
		for i := 0; i < width; i++ {
			var src int
			if left {
				src = i - amount
			} else {
				src = i + amount
			}
			if src < 0 || src >= width {
				shifted[i] = c.F
			} else {
				shifted[i] = cur[src]
			}
		}
		next := make([]z.Lit, width)
		for i := range next {
			next[i] = c.Choice(shamt[k], shifted[i], cur[i])
		}
		cur = next
	}
	return cur
}

// restoringDivide builds a naive bit-serial restoring divider. Out of
// scope for anything but reference use — division networks this way are
// O(width^2) and are never the representation a real bit-blaster would
// ship, but this exporter's job is structural correctness, not gate count.
func restoringDivide(c *logic.C, a, b []z.Lit) (quotient, remainder []z.Lit) {
	width := len(a)
	rem := make([]z.Lit, width)
	for i := range rem {
		rem[i] = c.F
	}
	quotient = make([]z.Lit, width)

	for i := width - 1; i >= 0; i-- {
		// rem = (rem << 1) | a[i]
		shifted := make([]z.Lit, width)
		shifted[0] = a[i]
		copy(shifted[1:], rem[:width-1])
		rem = shifted

		ge := unsignedLess(c, rem, b).Not()
		diff, _ := rippleAdd(c, rem, notAll(c, b), c.T) // rem - b via two's complement
		for j := range rem {
			rem[j] = c.Choice(ge, diff[j], rem[j])
		}
		quotient[i] = ge
	}
	return quotient, rem
}
