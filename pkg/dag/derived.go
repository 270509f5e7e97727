package dag

import (
	"github.com/ndrewh/exprdag/internal/assert"
	"github.com/ndrewh/exprdag/pkg/bitvec"
	"github.com/ndrewh/exprdag/pkg/btorsort"
)

// This file is the macro-expansion layer named in SPEC_FULL.md §4.7/§6:
// every operator here is built purely out of the closed primitive kernel
// in constructors.go, never gets its own Kind, and never appears in the
// unique table under anything but the primitive kind it ultimately
// bottoms out at.
//
// Two conventions run through every function below:
//
//   - Each public (capitalized) wrapper calls its lowercase internal
//     counterpart exactly once and wraps the result in exportEdge — so a
//     macro that itself calls three other macros internally still only
//     marks extRefs once, on the edge it actually hands back.
//   - Every internal helper that constructs an edge purely to wire it as
//     an argument to a further constructor, and does not return that
//     edge directly, must discard() it immediately after that use. This
//     pays back the scratch hold every constructor call leaves on its
//     return value (lifecycle.go's model) without that hold leaking
//     forever. Edge.Not() never needs this — it doesn't allocate.

// Not is the boolean/bitwise complement. It never allocates a new node
// (spec.md §4.7) — only a fresh external handle on the existing one.
func (c *Context) Not(a Edge) Edge {
	copyNode(Real(a).Node)
	return c.exportEdge(Real(a).Not())
}

// And, Add, Mul, Sll, Srl, Udiv, Urem, Concat, Cond are the public,
// rewrite-aware wrappers over the remaining primitive binary/ternary
// kinds (constructors.go builds the internal lowercase halves next to
// their unique-table probes; the exported surface lives here alongside
// the rest of the public operator table, per spec.md §6).
func (c *Context) And(a, b Edge) Edge    { return c.exportEdge(c.andNode(a, b)) }
func (c *Context) Add(a, b Edge) Edge    { return c.exportEdge(c.addNode(a, b)) }
func (c *Context) Mul(a, b Edge) Edge    { return c.exportEdge(c.mulNode(a, b)) }
func (c *Context) Sll(a, b Edge) Edge    { return c.exportEdge(c.sllNode(a, b)) }
func (c *Context) Srl(a, b Edge) Edge    { return c.exportEdge(c.srlNode(a, b)) }
func (c *Context) Udiv(a, b Edge) Edge   { return c.exportEdge(c.udivNode(a, b)) }
func (c *Context) Urem(a, b Edge) Edge   { return c.exportEdge(c.uremNode(a, b)) }
func (c *Context) Concat(a, b Edge) Edge { return c.exportEdge(c.concatNode(a, b)) }
func (c *Context) Cond(cnd, t, e Edge) Edge { return c.exportEdge(c.condNode(cnd, t, e)) }

func (c *Context) orNode(a, b Edge) Edge {
	return c.andNode(a.Not(), b.Not()).Not() // De Morgan
}

func (c *Context) Or(a, b Edge) Edge { return c.exportEdge(c.orNode(a, b)) }

func (c *Context) xorNode(a, b Edge) Edge {
	o := c.orNode(a, b)
	n := c.andNode(a, b)
	result := c.andNode(o, n.Not())
	c.discard(o)
	c.discard(n)
	return result
}

func (c *Context) Xor(a, b Edge) Edge { return c.exportEdge(c.xorNode(a, b)) }

func (c *Context) xnorNode(a, b Edge) Edge { return c.xorNode(a, b).Not() }
func (c *Context) Xnor(a, b Edge) Edge     { return c.exportEdge(c.xnorNode(a, b)) }

func (c *Context) nandNode(a, b Edge) Edge { return c.andNode(a, b).Not() }
func (c *Context) Nand(a, b Edge) Edge     { return c.exportEdge(c.nandNode(a, b)) }

func (c *Context) norNode(a, b Edge) Edge { return c.orNode(a, b).Not() }
func (c *Context) Nor(a, b Edge) Edge     { return c.exportEdge(c.norNode(a, b)) }

func (c *Context) impliesNode(a, b Edge) Edge { return c.orNode(a.Not(), b) }
func (c *Context) Implies(a, b Edge) Edge     { return c.exportEdge(c.impliesNode(a, b)) }

// eqNode dispatches to bv-eq or fun-eq by the operands' sort shape —
// SPEC_FULL.md's resolution of spec.md §9's "array-typed equality: fun-eq
// or bv-eq?" Open Question.
func (c *Context) eqNode(a, b Edge) Edge {
	if c.sorts.KindOf(Real(a).Node.sort) == btorsort.Fun {
		return c.funEqNode(a, b)
	}
	return c.bvEqNode(a, b)
}

func (c *Context) Eq(a, b Edge) Edge { return c.exportEdge(c.eqNode(a, b)) }
func (c *Context) Ne(a, b Edge) Edge { return c.exportEdge(c.eqNode(a, b).Not()) }

// Iff is boolean equivalence — identical to Eq for the 1-bit sort it's
// meant to be called on.
func (c *Context) Iff(a, b Edge) Edge { return c.Eq(a, b) }

func (c *Context) Ult(a, b Edge) Edge { return c.exportEdge(c.ultNode(a, b)) }
func (c *Context) Ule(a, b Edge) Edge { return c.exportEdge(c.ultNode(b, a).Not()) }
func (c *Context) Ugt(a, b Edge) Edge { return c.exportEdge(c.ultNode(b, a)) }
func (c *Context) Uge(a, b Edge) Edge { return c.exportEdge(c.ultNode(a, b).Not()) }

// signBit extracts operand a's most significant bit as a scratch 1-bit
// edge (caller must discard it once done).
func (c *Context) signBit(a Edge) Edge {
	width := c.sorts.Width(Real(a).Node.sort)
	return c.rewriteUnarySlice(a, width-1, width-1)
}

// sltNode implements signed less-than via the sign-bit case split: when
// the operands' signs differ the negative one is smaller outright;
// otherwise it reduces to the unsigned comparison.
func (c *Context) sltNode(a, b Edge) Edge {
	sa := c.signBit(a)
	sb := c.signBit(b)
	diff := c.xorNode(sa, sb)
	u := c.ultNode(a, b)
	result := c.condNode(diff, sa, u)
	c.discard(sa)
	c.discard(sb)
	c.discard(diff)
	c.discard(u)
	return result
}

func (c *Context) Slt(a, b Edge) Edge { return c.exportEdge(c.sltNode(a, b)) }
func (c *Context) Sle(a, b Edge) Edge { return c.exportEdge(c.sltNode(b, a).Not()) }
func (c *Context) Sgt(a, b Edge) Edge { return c.exportEdge(c.sltNode(b, a)) }
func (c *Context) Sge(a, b Edge) Edge { return c.exportEdge(c.sltNode(a, b).Not()) }

// negNode is two's-complement negation: -a = ~a + 1.
func (c *Context) negNode(a Edge) Edge {
	sort := Real(a).Node.sort
	one := c.constNode(sort, bitvec.One(c.sorts.Width(sort)))
	result := c.addNode(a.Not(), one)
	c.discard(one)
	return result
}

func (c *Context) Neg(a Edge) Edge { return c.exportEdge(c.negNode(a)) }

func (c *Context) subNode(a, b Edge) Edge {
	nb := c.negNode(b)
	result := c.addNode(a, nb)
	c.discard(nb)
	return result
}

func (c *Context) Sub(a, b Edge) Edge { return c.exportEdge(c.subNode(a, b)) }

func (c *Context) Inc(a Edge) Edge {
	sort := Real(a).Node.sort
	one := c.constNode(sort, bitvec.One(c.sorts.Width(sort)))
	result := c.addNode(a, one)
	c.discard(one)
	return c.exportEdge(result)
}

func (c *Context) Dec(a Edge) Edge {
	sort := Real(a).Node.sort
	ones := c.constNode(sort, bitvec.Ones(c.sorts.Width(sort))) // all-ones == -1
	result := c.addNode(a, ones)
	c.discard(ones)
	return c.exportEdge(result)
}

// zeroExtendNode widens a by extraBits zero bits at the top.
func (c *Context) zeroExtendNode(a Edge, extraBits uint32) Edge {
	if extraBits == 0 {
		copyNode(Real(a).Node)
		return a
	}
	pad := c.constNode(c.sorts.Bitvec(extraBits), bitvec.Zero(extraBits))
	result := c.concatNode(pad, a)
	c.discard(pad)
	return result
}

func (c *Context) ZeroExtend(a Edge, extraBits uint32) Edge {
	return c.exportEdge(c.zeroExtendNode(a, extraBits))
}

// signExtendNode widens a by extraBits copies of its sign bit.
func (c *Context) signExtendNode(a Edge, extraBits uint32) Edge {
	if extraBits == 0 {
		copyNode(Real(a).Node)
		return a
	}
	sign := c.signBit(a)
	padSort := c.sorts.Bitvec(extraBits)
	ones := c.constNode(padSort, bitvec.Ones(extraBits))
	zero := c.constNode(padSort, bitvec.Zero(extraBits))
	pad := c.condNode(sign, ones, zero)
	c.discard(sign)
	c.discard(ones)
	c.discard(zero)
	result := c.concatNode(pad, a)
	c.discard(pad)
	return result
}

func (c *Context) SignExtend(a Edge, extraBits uint32) Edge {
	return c.exportEdge(c.signExtendNode(a, extraBits))
}

// sraNode is arithmetic shift right: sra(a,b) = sign(a) ? ~(~a >>_l b) : a >>_l b.
func (c *Context) sraNode(a, b Edge) Edge {
	sign := c.signBit(a)
	posBranch := c.srlNode(a, b)
	negShift := c.srlNode(a.Not(), b)
	negBranch := negShift.Not()
	result := c.condNode(sign, negBranch, posBranch)
	c.discard(sign)
	c.discard(posBranch)
	c.discard(negBranch)
	return result
}

func (c *Context) Sra(a, b Edge) Edge { return c.exportEdge(c.sraNode(a, b)) }

func (c *Context) shiftComplement(a, shamt Edge) Edge {
	width := c.sorts.Width(Real(a).Node.sort)
	shamtSort := Real(shamt).Node.sort
	wConst := c.constNode(shamtSort, bitvec.FromUint64(c.sorts.Width(shamtSort), uint64(width)))
	result := c.subNode(wConst, shamt)
	c.discard(wConst)
	return result
}

func (c *Context) rolNode(a, b Edge) Edge {
	comp := c.shiftComplement(a, b)
	left := c.sllNode(a, b)
	right := c.srlNode(a, comp)
	result := c.orNode(left, right)
	c.discard(comp)
	c.discard(left)
	c.discard(right)
	return result
}

func (c *Context) Rol(a, b Edge) Edge { return c.exportEdge(c.rolNode(a, b)) }

func (c *Context) rorNode(a, b Edge) Edge {
	comp := c.shiftComplement(a, b)
	right := c.srlNode(a, b)
	left := c.sllNode(a, comp)
	result := c.orNode(left, right)
	c.discard(comp)
	c.discard(left)
	c.discard(right)
	return result
}

func (c *Context) Ror(a, b Edge) Edge { return c.exportEdge(c.rorNode(a, b)) }

// Uaddo/Saddo/Usubo/Ssubo/Umulo/Smulo/Sdivo are the overflow predicates
// from spec.md §6's operator table. Uaddo, Umulo and Smulo widen into a
// sort where the answer is a simple sign or zero check; Saddo and Ssubo
// compare sign bits, Usubo is ult, and Sdivo tests for min-int / -1.

func (c *Context) uaddoNode(a, b Edge) Edge {
	width := c.sorts.Width(Real(a).Node.sort)
	wa := c.zeroExtendNode(a, 1)
	wb := c.zeroExtendNode(b, 1)
	sum := c.addNode(wa, wb)
	top := c.rewriteUnarySlice(sum, width, width)
	c.discard(wa)
	c.discard(wb)
	c.discard(sum)
	return top
}

func (c *Context) Uaddo(a, b Edge) Edge { return c.exportEdge(c.uaddoNode(a, b)) }

func (c *Context) saddoNode(a, b Edge) Edge {
	sum := c.addNode(a, b)
	sa := c.signBit(a)
	sb := c.signBit(b)
	ss := c.signBit(sum)
	sameSign := c.xnorNode(sa, sb)
	flipped := c.xorNode(sa, ss)
	result := c.andNode(sameSign, flipped)
	c.discard(sum)
	c.discard(sa)
	c.discard(sb)
	c.discard(ss)
	c.discard(sameSign)
	c.discard(flipped)
	return result
}

func (c *Context) Saddo(a, b Edge) Edge { return c.exportEdge(c.saddoNode(a, b)) }

func (c *Context) Usubo(a, b Edge) Edge { return c.exportEdge(c.ultNode(a, b)) }

func (c *Context) ssuboNode(a, b Edge) Edge {
	diff := c.subNode(a, b)
	sa := c.signBit(a)
	sb := c.signBit(b)
	sd := c.signBit(diff)
	signsDiffer := c.xorNode(sa, sb)
	resultDiffers := c.xorNode(sa, sd)
	result := c.andNode(signsDiffer, resultDiffers)
	c.discard(diff)
	c.discard(sa)
	c.discard(sb)
	c.discard(sd)
	c.discard(signsDiffer)
	c.discard(resultDiffers)
	return result
}

func (c *Context) Ssubo(a, b Edge) Edge { return c.exportEdge(c.ssuboNode(a, b)) }

func (c *Context) umuloNode(a, b Edge) Edge {
	width := c.sorts.Width(Real(a).Node.sort)
	wa := c.zeroExtendNode(a, width)
	wb := c.zeroExtendNode(b, width)
	product := c.mulNode(wa, wb)
	hi := c.rewriteUnarySlice(product, 2*width-1, width)
	zero := c.constNode(Real(hi).Node.sort, bitvec.Zero(width))
	result := c.bvEqNode(hi, zero).Not()
	c.discard(wa)
	c.discard(wb)
	c.discard(product)
	c.discard(hi)
	c.discard(zero)
	return result
}

func (c *Context) Umulo(a, b Edge) Edge { return c.exportEdge(c.umuloNode(a, b)) }

func (c *Context) smuloNode(a, b Edge) Edge {
	width := c.sorts.Width(Real(a).Node.sort)
	wa := c.signExtendNode(a, width)
	wb := c.signExtendNode(b, width)
	product := c.mulNode(wa, wb)
	lo := c.rewriteUnarySlice(product, width-1, 0)
	expected := c.signExtendNode(lo, width)
	result := c.bvEqNode(product, expected).Not()
	c.discard(wa)
	c.discard(wb)
	c.discard(product)
	c.discard(lo)
	c.discard(expected)
	return result
}

func (c *Context) Smulo(a, b Edge) Edge { return c.exportEdge(c.smuloNode(a, b)) }

func minSignedValue(width uint32) *bitvec.Value {
	v := bitvec.Zero(width)
	v.SetBit(width-1, 1)
	return v
}

func (c *Context) sdivoNode(a, b Edge) Edge {
	sort := Real(a).Node.sort
	width := c.sorts.Width(sort)
	minInt := c.constNode(sort, minSignedValue(width))
	negOne := c.constNode(Real(b).Node.sort, bitvec.Ones(width))
	aIsMin := c.bvEqNode(a, minInt)
	bIsNegOne := c.bvEqNode(b, negOne)
	result := c.andNode(aIsMin, bIsNegOne)
	c.discard(minInt)
	c.discard(negOne)
	c.discard(aIsMin)
	c.discard(bIsNegOne)
	return result
}

func (c *Context) Sdivo(a, b Edge) Edge { return c.exportEdge(c.sdivoNode(a, b)) }

// absNode returns (|a|, wasNegative) as scratch edges the caller takes
// ownership of (both must eventually be discard()/used-and-discarded by
// the caller, per this file's convention).
func (c *Context) absNode(a Edge) (abs Edge, neg Edge) {
	neg = c.signBit(a)
	negated := c.negNode(a)
	abs = c.condNode(neg, negated, a)
	c.discard(negated)
	return abs, neg
}

// sdivNode is signed division by sign-correcting an unsigned divide of
// the operands' absolute values.
func (c *Context) sdivNode(a, b Edge) Edge {
	absA, negA := c.absNode(a)
	absB, negB := c.absNode(b)
	q := c.udivNode(absA, absB)
	negQ := c.negNode(q)
	signsDiffer := c.xorNode(negA, negB)
	result := c.condNode(signsDiffer, negQ, q)
	c.discard(absA)
	c.discard(negA)
	c.discard(absB)
	c.discard(negB)
	c.discard(q)
	c.discard(negQ)
	c.discard(signsDiffer)
	return result
}

func (c *Context) Sdiv(a, b Edge) Edge { return c.exportEdge(c.sdivNode(a, b)) }

// sremNode is signed remainder: the result takes the dividend's sign.
func (c *Context) sremNode(a, b Edge) Edge {
	absA, negA := c.absNode(a)
	absB, negB := c.absNode(b)
	r := c.uremNode(absA, absB)
	negR := c.negNode(r)
	result := c.condNode(negA, negR, r)
	c.discard(absA)
	c.discard(negA)
	c.discard(absB)
	c.discard(negB)
	c.discard(r)
	c.discard(negR)
	return result
}

func (c *Context) Srem(a, b Edge) Edge { return c.exportEdge(c.sremNode(a, b)) }

// smodNode is floored modulo: like Srem but the result takes the
// divisor's sign, adjusted by adding b when the sign of Srem's result
// disagrees with b's and the remainder is nonzero.
func (c *Context) smodNode(a, b Edge) Edge {
	r := c.sremNode(a, b)
	sort := Real(r).Node.sort
	zero := c.constNode(sort, bitvec.Zero(c.sorts.Width(sort)))
	rNonzero := c.bvEqNode(r, zero).Not()
	rSign := c.signBit(r)
	bSign := c.signBit(b)
	signsDiffer := c.xorNode(rSign, bSign)
	needsAdjust := c.andNode(rNonzero, signsDiffer)
	adjusted := c.addNode(r, b)
	result := c.condNode(needsAdjust, adjusted, r)
	c.discard(r)
	c.discard(zero)
	c.discard(rNonzero)
	c.discard(rSign)
	c.discard(bSign)
	c.discard(signsDiffer)
	c.discard(needsAdjust)
	c.discard(adjusted)
	return result
}

func (c *Context) Smod(a, b Edge) Edge { return c.exportEdge(c.smodNode(a, b)) }

// redorNode/redandNode/redxorNode fold a multi-bit operand's bits through
// a single boolean operator down to one bit.
func (c *Context) redorNode(a Edge) Edge {
	sort := Real(a).Node.sort
	zero := c.constNode(sort, bitvec.Zero(c.sorts.Width(sort)))
	result := c.bvEqNode(a, zero).Not()
	c.discard(zero)
	return result
}

func (c *Context) Redor(a Edge) Edge { return c.exportEdge(c.redorNode(a)) }

func (c *Context) redandNode(a Edge) Edge {
	sort := Real(a).Node.sort
	ones := c.constNode(sort, bitvec.Ones(c.sorts.Width(sort)))
	result := c.bvEqNode(a, ones)
	c.discard(ones)
	return result
}

func (c *Context) Redand(a Edge) Edge { return c.exportEdge(c.redandNode(a)) }

func (c *Context) redxorNode(a Edge) Edge {
	width := c.sorts.Width(Real(a).Node.sort)
	acc := c.rewriteUnarySlice(a, 0, 0)
	for i := uint32(1); i < width; i++ {
		bit := c.rewriteUnarySlice(a, i, i)
		next := c.xorNode(acc, bit)
		c.discard(acc)
		c.discard(bit)
		acc = next
	}
	return acc
}

func (c *Context) Redxor(a Edge) Edge { return c.exportEdge(c.redxorNode(a)) }

// readNode/writeNode are array sugar over Apply/Args and Update.
func (c *Context) readNode(fn, index Edge) Edge {
	idx := c.argsNode([]sortID{Real(index).Node.sort}, []Edge{index})
	result := c.applyNode(fn, idx)
	c.discard(idx)
	return result
}

func (c *Context) Read(fn, index Edge) Edge { return c.exportEdge(c.readNode(fn, index)) }

func (c *Context) writeNode(fn, index, value Edge) Edge {
	idx := c.argsNode([]sortID{Real(index).Node.sort}, []Edge{index})
	result := c.updateNode(fn, idx, value)
	c.discard(idx)
	return result
}

func (c *Context) Write(fn, index, value Edge) Edge {
	return c.exportEdge(c.writeNode(fn, index, value))
}

// ApplyExps applies fn to a flat argument list, building the Args tuple
// itself (sugar over Args + Apply, spec.md §6).
func (c *Context) ApplyExps(fn Edge, elems ...Edge) Edge {
	assert.Require(len(elems) > 0, "dag: ApplyExps requires at least one argument")
	sorts := make([]sortID, len(elems))
	for i, e := range elems {
		sorts[i] = Real(e).Node.sort
	}
	tuple := c.argsNode(sorts, elems)
	result := c.applyNode(fn, tuple)
	c.discard(tuple)
	return c.exportEdge(result)
}

// Fun curries a flat parameter list into nested single-parameter
// lambdas, matching spec.md §6's "`fun` — named multi-parameter lambda
// sugar". Each params[i] must be a still-unbound Param edge.
func (c *Context) Fun(name string, params []Edge, body Edge) Edge {
	assert.Require(len(params) > 0, "dag: Fun requires at least one parameter")
	acc := body
	for i := len(params) - 1; i >= 0; i-- {
		next := c.lambdaNode(params[i], acc)
		if i != len(params)-1 {
			c.discard(acc)
		}
		acc = next
	}
	result := c.exportEdge(acc)
	if name != "" {
		c.sym.bindName(Real(result).Node, name)
	}
	return result
}
