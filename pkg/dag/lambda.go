package dag

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ndrewh/exprdag/internal/assert"
)

// newRhoCache builds the bounded args->value memo shared by lambdas and
// uninterpreted functions (node.go's lambdaInfo.staticRho / ufInfo.rho).
func newRhoCache() (*lru.Cache[uint32, Edge], error) {
	return lru.New[uint32, Edge](rhoCacheSize)
}

// lambdaNode builds (or finds) a binder over param whose body is bodyEdge,
// per spec.md §4.7's lambda kind and §9's alpha-equivalence requirement:
// two lambdas that differ only in their bound parameter's identity must
// hash and compare equal. structHashLambda walks the body once, treating
// every occurrence of param as an interchangeable placeholder distinct
// from any other parameter, and reports whether any *other*, still-free
// parameter was found along the way — that second result becomes the new
// lambda's own parameterized flag (a lambda is only "parameterized" if a
// param other than the one it just bound remains free in its body).
func (c *Context) lambdaNode(paramEdge, body Edge) Edge {
	p := Real(paramEdge).Node
	if p.kind != KindParam {
		panic("dag: lambda requires a param node as its binder")
	}

	sort := c.sorts.Fun(c.sorts.Tuple(p.sort), Real(body).Node.sort)
	h, freeOther := structHashLambda(p, Real(body))

	if hit := c.unique.find(h, func(n *Node) bool {
		return n.kind == KindLambda && n.sort == sort && compareLambda(n, p, Real(body))
	}); hit != nil {
		copyNode(hit)
		return Edge{Node: hit}
	}

	n := c.allocNode(KindLambda, sort, 1)
	rho, _ := newRhoCache()
	n.lambda = &lambdaInfo{param: p, body: body, structHash: h, staticRho: rho}
	c.wireChildren(n, body)
	if freeOther {
		n.flags |= flagParameterized
	}
	n.flags |= flagLambdaBelow

	// invariant 7: a parameter has at most one binder; claiming it here
	// must not silently steal it from another still-live lambda. The
	// binder relationship isn't wired through e[]/parentLink (a param
	// is not one of the lambda's arity-1 children, the body is), so it
	// needs its own explicit hold to keep the parameter alive exactly as
	// long as some lambda still binds it — paid back in lifecycle.go's
	// deallocate/proxyConvert alongside clearing p.param.binder.
	if p.param.binder != nil && p.param.binder != n {
		panic("dag: parameter already bound by another lambda")
	}
	p.param.binder = n
	copyNode(p)

	c.installUnique(n, h)
	return Edge{Node: n}
}

// Lambda is the public binder constructor. param must be a still-unbound
// Param edge (spec.md §6's `lambda(param, body)`).
func (c *Context) Lambda(param, body Edge) Edge {
	return c.exportEdge(c.lambdaNode(param, body))
}

// structHashLambda computes the alpha-invariant structural hash of a
// lambda binding param over body: every occurrence of param within body
// contributes a fixed sentinel word (not param's own node id, which would
// make two alpha-equivalent lambdas with differently-numbered bound
// parameters hash differently) while every other leaf contributes its
// real id as usual, except another parameter, which contributes only its
// kind. It also reports whether body contains any parameter other than
// param that no lambda inside body binds, still free.
func structHashLambda(param *Node, body Edge) (hash uint32, freeOther bool) {
	const boundSentinel = 0xA17A0000 // recognizably not a real node id*2(+1)

	inner := map[*Node]bool{} // params bound by a nested lambda enclosing the walk
	var walk func(e Edge) uint32
	walk = func(e Edge) uint32 {
		e = Real(e)
		n := e.Node
		if n == param {
			w := boundSentinel
			if e.Inverted {
				w |= 1
			}
			return uint32(w)
		}
		if n.kind == KindParam && !inner[n] {
			freeOther = true
		}
		switch n.kind {
		case KindLambda:
			// a nested lambda's own bound parameter is not free within its
			// body; invariant 7 keeps it distinct from param, so the walk
			// always recurses.
			q := n.lambda.param
			inner[q] = true
			h := hashKind(n.kind)*31 + walk(n.lambda.body)
			delete(inner, q)
			return h
		default:
			if n.arity == 0 && n.kind != KindParam {
				return edgeWord(e)
			}
			h := hashKind(n.kind)
			for i := 0; i < int(n.arity); i++ {
				h = h*31 + walk(n.e[i])
			}
			if e.Inverted {
				h ^= 1
			}
			return h
		}
	}
	hash = hashKind(KindLambda)*31 + walk(body)
	return hash, freeOther
}

// compareLambda reports whether existing lambda node n is alpha-
// equivalent to a fresh (param, body) pair: structurally identical after
// substituting n's own bound parameter for param throughout n's body, with
// the parameters of nested lambdas paired up the same way.
func compareLambda(n *Node, param *Node, body Edge) bool {
	bound := map[*Node]*Node{n.lambda.param: param}
	var eq func(x, y Edge) bool
	eq = func(x, y Edge) bool {
		x, y = Real(x), Real(y)
		xn, yn := x.Node, y.Node
		if x.Inverted != y.Inverted {
			return false
		}
		if m, ok := bound[xn]; ok {
			return m == yn
		}
		if xn == yn {
			return true
		}
		if xn.kind != yn.kind || xn.arity != yn.arity || xn.sort != yn.sort || xn.arity == 0 {
			return false // two distinct leaves are never equal
		}
		if xn.kind == KindLambda {
			bound[xn.lambda.param] = yn.lambda.param
			return eq(xn.lambda.body, yn.lambda.body)
		}
		if xn.kind == KindSlice && (xn.slice.upper != yn.slice.upper || xn.slice.lower != yn.slice.lower) {
			return false
		}
		for i := 0; i < int(xn.arity); i++ {
			if !eq(xn.e[i], yn.e[i]) {
				return false
			}
		}
		return true
	}
	return eq(n.lambda.body, body)
}

// betaReduce implements apply(lambda(p, body), argsTuple)'s single-step
// substitution, per spec.md §9's "assign before, release after"
// discipline: the parameter's scratch slot holds the actual argument for
// the duration of the walk that builds the substituted term, then is
// cleared unconditionally (even if the walk panics, via defer) so a
// failed or nested beta reduction never leaves stale state behind for the
// next one.
func (c *Context) betaReduce(lambda *Node, arg Edge) Edge {
	p := lambda.lambda.param
	assert.Require(p.param.assigned == nil, "dag: nested beta-reduction re-entered an already-assigned parameter")
	p.param.assigned = &arg
	defer func() { p.param.assigned = nil }()

	// subst always returns an edge carrying its own fresh hold — a leaf
	// pass-through (arg itself, or an unrelated const/var/param/uf) is
	// explicitly borrow()'d, exactly like a rewrite rule handing back an
	// edge it didn't construct — so that every call site below can
	// discard() a substituted child the moment it's done wiring it into
	// the next constructor, mirroring derived.go's scratch convention.
	// Only the outermost subst() result (betaReduce's own return value)
	// is left undischarged, since it becomes applyNode's return.
	var subst func(e Edge) Edge
	subst = func(e Edge) Edge {
		e = Real(e)
		n := e.Node
		if n == p {
			if e.Inverted {
				return borrow(arg.Not())
			}
			return borrow(arg)
		}
		if n.arity == 0 {
			return borrow(e) // a different leaf (const/var/param/uf): nothing to substitute
		}

		flip := func(r Edge) Edge {
			if e.Inverted {
				return r.Not()
			}
			return r
		}

		switch n.kind {
		case KindLambda:
			// a nested binder over a distinct parameter: p may still
			// occur free in its body (invariant 7 forbids two lambdas
			// sharing one parameter, so this is never n == lambda).
			body := subst(n.lambda.body)
			result := c.lambdaNode(Edge{Node: n.lambda.param}, body)
			c.discard(body)
			return flip(result)
		case KindSlice:
			a := subst(n.e[0])
			result := c.rewriteUnarySlice(a, n.slice.upper, n.slice.lower)
			c.discard(a)
			return flip(result)
		case KindArgs:
			elems := make([]Edge, n.arity)
			sorts := make([]sortID, n.arity)
			for i := 0; i < int(n.arity); i++ {
				elems[i] = subst(n.e[i])
				sorts[i] = Real(elems[i]).Node.sort
			}
			result := c.argsNode(sorts, elems)
			for _, elem := range elems {
				c.discard(elem)
			}
			return flip(result)
		case KindApply:
			fn := subst(n.e[0])
			args := subst(n.e[1])
			result := c.applyNode(fn, args)
			c.discard(fn)
			c.discard(args)
			return flip(result)
		case KindUpdate:
			fn := subst(n.e[0])
			args := subst(n.e[1])
			val := subst(n.e[2])
			result := c.updateNode(fn, args, val)
			c.discard(fn)
			c.discard(args)
			c.discard(val)
			return flip(result)
		case KindCond:
			cnd := subst(n.e[0])
			t := subst(n.e[1])
			e2 := subst(n.e[2])
			result := c.condNode(cnd, t, e2)
			c.discard(cnd)
			c.discard(t)
			c.discard(e2)
			return flip(result)
		default:
			children := make([]Edge, n.arity)
			for i := 0; i < int(n.arity); i++ {
				children[i] = subst(n.e[i])
			}
			var result Edge
			switch n.arity {
			case 1:
				result = c.getOrCreateUnary(n.kind, n.sort, children[0])
			case 2:
				result = c.getOrCreateBinary(n.kind, n.sort, children[0], children[1])
			case 3:
				result = c.getOrCreateTernary(n.kind, n.sort, children[0], children[1], children[2])
			default:
				assert.Unreachable("dag: betaReduce encountered an unexpected arity %d", n.arity)
			}
			for _, child := range children {
				c.discard(child)
			}
			return flip(result)
		}
	}
	return subst(lambda.lambda.body)
}
