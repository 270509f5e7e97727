package dag

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ndrewh/exprdag/internal/assert"
	"github.com/ndrewh/exprdag/pkg/bitvec"
	"github.com/ndrewh/exprdag/pkg/btorsort"
)

// allocNode reserves an id and returns a fresh, unconnected node of the
// given kind/sort/arity with refs=1 (the hold carried by the edge its
// constructor returns; see lifecycle.go's model). Children are wired
// separately via wireChildren.
func (c *Context) allocNode(kind Kind, sort sortID, arity uint8) *Node {
	n := c.nodes.Alloc()
	n.kind, n.sort, n.arity, n.refs = kind, sort, arity, 1
	n.id = c.ids.Alloc(n)
	return n
}

// wireChildren sets n's child edges and splices n into each child's
// parent list (spec.md §4.2/§4.3), then derives n's transitive flags.
func (c *Context) wireChildren(n *Node, edges ...Edge) {
	assert.Require(len(edges) == int(n.arity), "dag: wireChildren arity mismatch")
	for i, e := range edges {
		n.e[i] = e
		connectChild(n, uint8(i), e.Node)
		e.Node.refs++ // the new parent edge is a new holder (lifecycle.go's model)
	}
	c.deriveFlags(n)
}

func (c *Context) deriveFlags(n *Node) {
	switch n.kind {
	case KindParam:
		n.flags |= flagParameterized
	case KindLambda:
		// overridden precisely by lambda.go once the alpha-invariant
		// hash walk (which also tracks free parameters) has run.
	default:
		for i := 0; i < int(n.arity); i++ {
			child := Real(n.e[i]).Node
			if child.flags.has(flagParameterized) {
				n.flags |= flagParameterized
			}
			if child.flags.has(flagLambdaBelow) || child.kind == KindLambda {
				n.flags |= flagLambdaBelow
			}
			if child.flags.has(flagApplyBelow) || child.kind == KindApply {
				n.flags |= flagApplyBelow
			}
		}
	}
	if n.kind == KindLambda || n.kind == KindApply {
		if n.kind == KindLambda {
			n.flags |= flagLambdaBelow
		} else {
			n.flags |= flagApplyBelow
		}
	}
	if c.sorts.IsArray(n.sort) {
		n.flags |= flagIsArray
	}
}

// installUnique inserts n (already wired) into the unique table and its
// kind-specific side index.
func (c *Context) installUnique(n *Node, hash uint32) {
	c.unique.insert(n, hash)
	c.sym.register(n)
}

// getOrCreateUnary/Binary/Ternary are the primitive-kernel workhorses:
// probe the unique table, bump-and-return on hit, allocate-wire-install
// on miss. None of them touch the caller's argument edges' refcounts —
// see lifecycle.go's model comment.

func (c *Context) getOrCreateUnary(kind Kind, sort sortID, a Edge) Edge {
	a = Real(a) // spec.md §4.6: hash/compare against the canonical chain, never a stale proxy
	h := hashUnary(kind, a)
	if hit := c.unique.find(h, func(n *Node) bool { return matchesChildren(n, kind, a) }); hit != nil {
		copyNode(hit)
		return Edge{Node: hit}
	}
	n := c.allocNode(kind, sort, 1)
	c.wireChildren(n, a)
	c.installUnique(n, h)
	return Edge{Node: n}
}

func (c *Context) getOrCreateBinary(kind Kind, sort sortID, a, b Edge) Edge {
	a, b = Real(a), Real(b)
	if kind.commutative() && c.options.SortExp && a.id() > b.id() {
		a, b = b, a
	}
	h := hashBinary(kind, a, b)
	if hit := c.unique.find(h, func(n *Node) bool { return matchesChildren(n, kind, a, b) }); hit != nil {
		copyNode(hit)
		return Edge{Node: hit}
	}
	n := c.allocNode(kind, sort, 2)
	c.wireChildren(n, a, b)
	c.installUnique(n, h)
	return Edge{Node: n}
}

func (c *Context) getOrCreateTernary(kind Kind, sort sortID, a, b, d Edge) Edge {
	a, b, d = Real(a), Real(b), Real(d)
	h := hashTernary(kind, a, b, d)
	if hit := c.unique.find(h, func(n *Node) bool { return matchesChildren(n, kind, a, b, d) }); hit != nil {
		copyNode(hit)
		return Edge{Node: hit}
	}
	n := c.allocNode(kind, sort, 3)
	c.wireChildren(n, a, b, d)
	c.installUnique(n, h)
	return Edge{Node: n}
}

// ---- primitive constructors (spec.md §4.7's closed kernel) ----

// constNode builds the constant kind. Per invariant 10 ("constant
// normalization"), when the value's low bit is set we probe under its
// bitwise complement instead and re-apply an inversion bit on return —
// halving the constant cache, since bv and !bv would otherwise be two
// separate table entries.
func (c *Context) constNode(sort sortID, v *bitvec.Value) Edge {
	inv := v.Bit(0) == 1
	probe := v
	if inv {
		probe = v.Not()
	}
	h := hashKind(KindConst) + probe.Hash()
	if hit := c.unique.find(h, func(n *Node) bool {
		return n.kind == KindConst && n.sort == sort && bitvec.Equal(n.constBits, probe)
	}); hit != nil {
		copyNode(hit)
		return Edge{Node: hit, Inverted: inv}
	}
	n := c.allocNode(KindConst, sort, 0)
	n.constBits = probe.Copy()
	c.installUnique(n, h)
	return Edge{Node: n, Inverted: inv}
}

// Const builds a bit-vector constant from an explicit value.
func (c *Context) Const(v *bitvec.Value) Edge {
	sort := c.sorts.Bitvec(v.Width())
	return c.exportEdge(c.constNode(sort, v))
}

// Zero, One, Ones, Int, Unsigned build the named constant families from
// spec.md §6's operator table.
func (c *Context) Zero(sort sortID) Edge {
	return c.exportEdge(c.constNode(sort, bitvec.Zero(c.sorts.Width(sort))))
}

func (c *Context) One(sort sortID) Edge {
	return c.exportEdge(c.constNode(sort, bitvec.One(c.sorts.Width(sort))))
}

func (c *Context) Ones(sort sortID) Edge {
	return c.exportEdge(c.constNode(sort, bitvec.Ones(c.sorts.Width(sort))))
}

func (c *Context) Int(i int64, sort sortID) Edge {
	return c.exportEdge(c.constNode(sort, bitvec.FromInt64(c.sorts.Width(sort), i)))
}

func (c *Context) Unsigned(u uint64, sort sortID) Edge {
	return c.exportEdge(c.constNode(sort, bitvec.FromUint64(c.sorts.Width(sort), u)))
}

// trueNode/falseNode are the internal (non-exporting) 1-bit boolean
// constants, used by rewrite rules so a firing rule never inflates
// extRefs on the enclosing public operator's behalf.
func (c *Context) trueNode() Edge  { return c.constNode(c.sorts.Bitvec(1), bitvec.One(1)) }
func (c *Context) falseNode() Edge { return c.constNode(c.sorts.Bitvec(1), bitvec.Zero(1)) }

// True/False are the public 1-bit boolean constants.
func (c *Context) True() Edge  { return c.exportEdge(c.trueNode()) }
func (c *Context) False() Edge { return c.exportEdge(c.falseNode()) }

// varNode/paramNode/ufNode are leaf symbols; each gets a fresh node every
// time (no structural sharing makes sense for a fresh nullary symbol).
// Every var and uf gets an input-id, named or not; a param gets none.
func (c *Context) varNode(sort sortID, name string) Edge {
	n := c.allocNode(KindVar, sort, 0)
	n.symbol = &symbolInfo{name: name, inputID: c.sym.assignInputID()}
	c.deriveFlags(n)
	c.sym.register(n)
	if name != "" {
		c.sym.bindName(n, name)
	}
	return Edge{Node: n}
}

func (c *Context) Var(sort sortID, name string) Edge {
	return c.exportEdge(c.varNode(sort, name))
}

// Array is sugar for a function-sorted variable whose sort IsArray, per
// spec.md §6's `array(sort, name?)`.
func (c *Context) Array(sort sortID, name string) Edge {
	assert.Require(c.sorts.IsArray(sort), "dag: Array requires an array-shaped (unary Fun) sort")
	return c.Var(sort, name)
}

func (c *Context) paramNode(sort sortID, name string) Edge {
	n := c.allocNode(KindParam, sort, 0)
	n.param = &paramInfo{}
	if name != "" {
		n.symbol = &symbolInfo{name: name}
	}
	c.deriveFlags(n)
	c.sym.register(n)
	if name != "" {
		c.sym.bindName(n, name)
	}
	return Edge{Node: n}
}

func (c *Context) Param(sort sortID, name string) Edge {
	return c.exportEdge(c.paramNode(sort, name))
}

// rhoCacheSize bounds a lambda's or uninterpreted function's static rho
// (spec.md §9's "Static rho": a small memo of already-seen argument
// tuples to their values, seeded by array-write encodings). Backed by
// hashicorp/golang-lru rather than an unbounded map so a long sequence of
// distinct writes to the same array can't grow this memo forever.
const rhoCacheSize = 64

func (c *Context) ufNode(sort sortID, name string) Edge {
	assert.Require(c.sorts.KindOf(sort) == btorsort.Fun, "dag: UF requires a function sort")
	n := c.allocNode(KindUF, sort, 0)
	rho, _ := newRhoCache()
	n.uf = &ufInfo{rho: rho}
	n.symbol = &symbolInfo{name: name, inputID: c.sym.assignInputID()}
	c.deriveFlags(n)
	c.sym.register(n)
	if name != "" {
		c.sym.bindName(n, name)
	}
	return Edge{Node: n}
}

func (c *Context) UF(sort sortID, name string) Edge {
	return c.exportEdge(c.ufNode(sort, name))
}

// sliceNode extracts bits [upper:lower] from a.
func (c *Context) sliceNode(a Edge, upper, lower uint32) Edge {
	a = Real(a)
	assert.Require(upper >= lower, "dag: slice upper %d < lower %d", upper, lower)
	width := c.sorts.Width(a.Node.sort)
	assert.Require(upper < width, "dag: slice upper %d out of range for width %d", upper, width)

	h := hashSlice(a, upper, lower)
	if hit := c.unique.find(h, func(n *Node) bool {
		return n.kind == KindSlice && n.arity == 1 && n.e[0] == a && n.slice.upper == upper && n.slice.lower == lower
	}); hit != nil {
		copyNode(hit)
		return Edge{Node: hit}
	}
	sort := c.sorts.Bitvec(upper - lower + 1)
	n := c.allocNode(KindSlice, sort, 1)
	n.slice = &sliceInfo{upper: upper, lower: lower}
	c.wireChildren(n, a)
	c.installUnique(n, h)
	return Edge{Node: n}
}

func (c *Context) Slice(a Edge, upper, lower uint32) Edge {
	return c.exportEdge(c.rewriteUnarySlice(a, upper, lower))
}

// and/bveq/funeq/add/mul/ult/sll/srl/udiv/urem/concat are the remaining
// primitive binary kinds. Each internal helper just validates sorts and
// calls getOrCreateBinary; the exported, rewrite-aware wrapper lives in
// derived.go next to its macro-expanded siblings so all "public surface"
// entry points read together.

func (c *Context) andNode(a, b Edge) Edge {
	assert.Require(Real(a).Node.sort == Real(b).Node.sort, "dag: and sort mismatch")
	sort := Real(a).Node.sort
	return c.rewriteBinary(KindAnd, a, b, func(a, b Edge) Edge {
		return c.getOrCreateBinary(KindAnd, sort, a, b)
	})
}

// bvEqNode canonicalizes `eq(!a,!b)` to `eq(a,b)` before hashing (spec.md
// §4.1's tie-break: "the client's inversions cancel").
func (c *Context) bvEqNode(a, b Edge) Edge {
	sa, sb := Real(a).Node.sort, Real(b).Node.sort
	assert.Require(sa == sb, "dag: bv-eq sort mismatch")
	if a.Inverted && b.Inverted {
		a, b = a.Not(), b.Not()
	}
	boolSort := c.sorts.Bitvec(1)
	return c.rewriteBinary(KindBVEq, a, b, func(a, b Edge) Edge {
		return c.getOrCreateBinary(KindBVEq, boolSort, a, b)
	})
}

// funEqNode is bv-eq's counterpart over function/array-sorted operands —
// spec.md §9's open question ("array-typed equality: fun-eq or bv-eq?")
// is resolved here: the constructor receiving the specific sort decides,
// and any Fun-sorted pair of operands always goes through FunEq (Eq, in
// derived.go, dispatches on sort).
func (c *Context) funEqNode(a, b Edge) Edge {
	sa, sb := Real(a).Node.sort, Real(b).Node.sort
	assert.Require(sa == sb, "dag: fun-eq sort mismatch")
	assert.Require(c.sorts.KindOf(sa) == btorsort.Fun, "dag: fun-eq requires function-sorted operands")
	boolSort := c.sorts.Bitvec(1)
	return c.getOrCreateBinary(KindFunEq, boolSort, a, b)
}

func (c *Context) addNode(a, b Edge) Edge {
	assert.Require(Real(a).Node.sort == Real(b).Node.sort, "dag: add sort mismatch")
	sort := Real(a).Node.sort
	return c.rewriteBinary(KindAdd, a, b, func(a, b Edge) Edge {
		return c.getOrCreateBinary(KindAdd, sort, a, b)
	})
}

func (c *Context) mulNode(a, b Edge) Edge {
	assert.Require(Real(a).Node.sort == Real(b).Node.sort, "dag: mul sort mismatch")
	sort := Real(a).Node.sort
	return c.rewriteBinary(KindMul, a, b, func(a, b Edge) Edge {
		return c.getOrCreateBinary(KindMul, sort, a, b)
	})
}

func (c *Context) ultNode(a, b Edge) Edge {
	assert.Require(Real(a).Node.sort == Real(b).Node.sort, "dag: ult sort mismatch")
	boolSort := c.sorts.Bitvec(1)
	return c.rewriteBinary(KindULt, a, b, func(a, b Edge) Edge {
		return c.getOrCreateBinary(KindULt, boolSort, a, b)
	})
}

// shiftSort validates that the shift amount's width is log2 of the
// shiftee's width, which must itself be a power of two greater than one
// (spec.md §6).
func (c *Context) shiftSort(a, shamt Edge) sortID {
	width := c.sorts.Width(Real(a).Node.sort)
	assert.Require(width > 1 && width&(width-1) == 0, "dag: shift width %d is not a power of two > 1", width)
	log2 := uint32(0)
	for w := width; w > 1; w >>= 1 {
		log2++
	}
	assert.Require(c.sorts.Width(Real(shamt).Node.sort) == log2, "dag: shift amount width must be log2(%d) = %d", width, log2)
	return Real(a).Node.sort
}

func (c *Context) sllNode(a, b Edge) Edge {
	return c.getOrCreateBinary(KindSll, c.shiftSort(a, b), a, b)
}

func (c *Context) srlNode(a, b Edge) Edge {
	return c.getOrCreateBinary(KindSrl, c.shiftSort(a, b), a, b)
}

func (c *Context) udivNode(a, b Edge) Edge {
	assert.Require(Real(a).Node.sort == Real(b).Node.sort, "dag: udiv sort mismatch")
	return c.getOrCreateBinary(KindUdiv, Real(a).Node.sort, a, b)
}

func (c *Context) uremNode(a, b Edge) Edge {
	assert.Require(Real(a).Node.sort == Real(b).Node.sort, "dag: urem sort mismatch")
	return c.getOrCreateBinary(KindUrem, Real(a).Node.sort, a, b)
}

func (c *Context) concatNode(a, b Edge) Edge {
	wa := c.sorts.Width(Real(a).Node.sort)
	wb := c.sorts.Width(Real(b).Node.sort)
	assert.Require(wa+wb > wa, "dag: concat width overflow")
	return c.getOrCreateBinary(KindConcat, c.sorts.Bitvec(wa+wb), a, b)
}

// condNode is the sole primitive ternary kind.
func (c *Context) condNode(cnd, t, e Edge) Edge {
	assert.Require(c.sorts.Width(Real(cnd).Node.sort) == 1, "dag: cond condition must be 1-bit")
	assert.Require(Real(t).Node.sort == Real(e).Node.sort, "dag: cond branch sort mismatch")
	sort := Real(t).Node.sort
	return c.rewriteTernary(KindCond, cnd, t, e, func(cnd, t, e Edge) Edge {
		return c.getOrCreateTernary(KindCond, sort, cnd, t, e)
	})
}

// argsNode builds one spine element of an argument tuple, chaining
// through slot 2 when more than three elements remain (spec.md §6:
// "Argument tuples are built from flat argument lists into a spine of
// argument nodes of maximum arity three").
func (c *Context) argsNode(elemSorts []sortID, elems []Edge) Edge {
	assert.Require(len(elems) > 0, "dag: empty argument tuple")
	canon := make([]Edge, len(elems))
	for i, e := range elems {
		canon[i] = Real(e)
	}
	elems = canon
	n := len(elems)
	take := n
	if take > 3 {
		take = 2 // leave slot 2 for the rest-of-spine tail
	}
	tupleSort := c.sorts.Tuple(elemSorts...)
	switch {
	case n <= 3:
		edges := elems
		var h uint32
		switch len(edges) {
		case 1:
			h = hashUnary(KindArgs, edges[0])
		case 2:
			h = hashBinary(KindArgs, edges[0], edges[1])
		case 3:
			h = hashTernary(KindArgs, edges[0], edges[1], edges[2])
		}
		if hit := c.unique.find(h, func(nd *Node) bool { return matchesChildren(nd, KindArgs, edges...) }); hit != nil {
			copyNode(hit)
			return Edge{Node: hit}
		}
		node := c.allocNode(KindArgs, tupleSort, uint8(len(edges)))
		c.wireChildren(node, edges...)
		c.installUnique(node, h)
		return Edge{Node: node}
	default:
		tail := c.argsNode(elemSorts[take:], elems[take:])
		defer c.discard(tail) // the spine node returned below holds tail as its own child
		edges := append(append([]Edge{}, elems[:take]...), tail)
		h := hashTernary(KindArgs, edges[0], edges[1], edges[2])
		if hit := c.unique.find(h, func(nd *Node) bool { return matchesChildren(nd, KindArgs, edges...) }); hit != nil {
			copyNode(hit)
			return Edge{Node: hit}
		}
		node := c.allocNode(KindArgs, tupleSort, 3)
		c.wireChildren(node, edges...)
		c.installUnique(node, h)
		return Edge{Node: node}
	}
}

// Args builds an argument tuple from a flat, non-empty list of element
// edges.
func (c *Context) Args(elems ...Edge) Edge {
	assert.Require(len(elems) > 0, "dag: Args requires at least one element")
	sorts := make([]sortID, len(elems))
	for i, e := range elems {
		sorts[i] = Real(e).Node.sort
	}
	return c.exportEdge(c.argsNode(sorts, elems))
}

// updateNode is the array/function write constructor. spec.md §4.7 allows
// two encodings for the same semantics: the direct KindUpdate node, or an
// equivalent lambda `\p. cond(p == index, value, fn(p))` — chosen via
// Options.FunStoreLambdas alone. Only the lambda form has the write's
// (index, value) pair seeded into its static rho as a fast-path memo
// (spec.md §9); a KindUpdate node has no rho, and applyNode walks its
// write chain instead.
func (c *Context) updateNode(fn, args, value Edge) Edge {
	var result Edge
	if c.options.FunStoreLambdas {
		result = c.updateAsLambda(fn, args, value)
	} else {
		sort := Real(fn).Node.sort
		n := c.getOrCreateTernary(KindUpdate, sort, fn, args, value)
		if n.Node.update == nil {
			n.Node.update = &updateInfo{indexArity: c.sorts.Arity(Real(args).Node.sort)}
		}
		result = n
	}
	c.seedRho(Real(result).Node, Real(args).Node.id, value)
	return result
}

// updateAsLambda builds the lambda-form array write: a fresh parameter p
// ranging over the index sort, bound over `cond(p == index, value, fn(p))`.
func (c *Context) updateAsLambda(fn, args, value Edge) Edge {
	fnSort := Real(fn).Node.sort
	assert.Require(c.sorts.IsArray(fnSort),
		"dag: lambda-encoded write is only defined for single-index array sorts")
	indexSort := c.sorts.Elems(c.sorts.Domain(fnSort))[0]

	p := c.paramNode(indexSort, "")
	pTuple := c.argsNode([]sortID{indexSort}, []Edge{p})
	indexElem := Real(args).Node.e[0]

	hit := c.bvEqNode(p, indexElem)
	applied := c.applyNode(fn, pTuple)
	body := c.condNode(hit, value, applied)

	result := c.lambdaNode(p, body)
	// p's allocation-time scaffold hold is redundant now that pTuple and
	// hit each independently hold it as a real child (two live parents).
	c.release(p.Node)
	// The intermediates' scratch holds are paid back too; whatever the
	// returned lambda still references stays alive through its child edges.
	c.discard(pTuple)
	c.discard(hit)
	c.discard(applied)
	c.discard(body)
	return result
}

// seedRho records that applying fn's most recent write to index produced
// value, so a later Apply(fn, index) on an unchanged function can return
// value straight from the memo instead of walking a long update/lambda
// chain (spec.md §9's "Static rho").
func (c *Context) seedRho(fn *Node, argsID uint32, value Edge) {
	var rho *lru.Cache[uint32, Edge]
	switch fn.kind {
	case KindUF:
		rho = fn.uf.rho
	case KindLambda:
		rho = fn.lambda.staticRho
	case KindUpdate:
		return // no rho: applyNode walks an update's write chain at read time instead
	default:
		return
	}
	rho.Add(argsID, value)
}

// rhoOf returns fn's static-rho cache, or nil if its kind doesn't carry
// one (variables and plain KindUpdate nodes have none of their own).
func rhoOf(fn *Node) *lru.Cache[uint32, Edge] {
	switch fn.kind {
	case KindUF:
		return fn.uf.rho
	case KindLambda:
		return fn.lambda.staticRho
	default:
		return nil
	}
}

// applyNode builds fn applied to args. Applying a lambda beta-reduces
// immediately (spec.md §9: apply-of-lambda never survives as a standing
// node — it is always fully substituted away on the spot); applying a
// variable or uninterpreted function builds the opaque KindApply node,
// since there is no body to substitute into.
func (c *Context) applyNode(fn, args Edge) Edge {
	sort := c.sorts.Codomain(Real(fn).Node.sort)
	assert.Require(c.sorts.Domain(Real(fn).Node.sort) == Real(args).Node.sort,
		"dag: apply argument-tuple sort does not match function domain")

	fnNode := Real(fn).Node
	if rho := rhoOf(fnNode); rho != nil {
		if v, ok := rho.Get(Real(args).Node.id); ok {
			// v is already kept alive structurally (it's reachable from
			// fn's own subtree); this call's new handle still needs its
			// own hold, exactly like a unique-table hit.
			copyNode(Real(v).Node)
			return v
		}
	}

	if fnNode.kind == KindLambda {
		argsNode := Real(args).Node
		assert.Require(argsNode.kind == KindArgs && argsNode.arity == 1,
			"dag: apply argument tuple shape does not match a single-parameter lambda")
		return c.betaReduce(fnNode, argsNode.e[0])
	}

	// Read-over-write, direct-update encoding: without a standing rho
	// entry (only lambdas/UFs carry one), applying a KindUpdate node has
	// to walk its write chain itself, same as the lambda encoding's
	// cond(p==index, value, apply(innerFn,p)) does structurally.
	if fnNode.kind == KindUpdate {
		if Real(fnNode.e[1]).Node == Real(args).Node {
			v := fnNode.e[2]
			copyNode(Real(v).Node)
			return v
		}
		return c.applyNode(fnNode.e[0], args)
	}

	return c.getOrCreateBinary(KindApply, sort, fn, args)
}
