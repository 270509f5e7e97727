package dag

import "github.com/ndrewh/exprdag/internal/btorlog"

// Reference-counting model (spec.md §4.4, invariant 4):
//
//   refs    — total holders of a node: one per live parent edge (a proxy's
//             link to its replacement and a lambda's link to its bound
//             parameter count as one each), plus one per edge a
//             constructor or Copy has handed out and that has not yet
//             been released or discarded. A node's first such hold is the
//             refs=1 it is allocated with; there is no separate
//             allocation-time hold on top of these, so a parentless root
//             held only by client handles has refs == extRefs.
//   extRefs — the subset of those handed-out holds that are client-visible
//             handles.
//
// Constructors never consume the Edge arguments passed to them — the
// caller's own copy remains valid and independently releasable after the
// call, exactly as if every constructor had internally copied each child.
// getOrCreate achieves this without an explicit extra copy/release pair:
// on a unique-table hit it bumps the existing node's refs once (the fresh
// hold returned to this call's caller); on a miss, wireChildren bumps
// each new child's refs once per edge wired in. Either way, the caller's
// original argument handles are untouched. This is a from-scratch design
// decision (the spec only says "release: decrement refs", not how
// constructors interact with argument ownership) — see DESIGN.md.

// copyNode bumps n's internal refcount. Exported as Context.Copy for external
// handles (which also bumps extRefs); used bare internally by getOrCreate.
func copyNode(n *Node) {
	if n.refs == ^uint32(0) {
		panic("dag: refcount overflow")
	}
	n.refs++
}

// exportEdge marks e as an external handle (the extRefs half of a public
// constructor's return) exactly once, at the outermost call — internal/
// derived helpers that build on top of other constructors never call this
// themselves, so a macro expansion like Sub = Add(a, Neg(b)) only pays the
// extRefs bump on the edge it actually hands back to the caller.
func (c *Context) exportEdge(e Edge) Edge {
	e = Real(e) // invariant 6: a proxy is never handed back to a client
	e.Node.extRefs++
	return e
}

// Copy increments e's reference count and returns e unchanged. The
// caller now holds two independent external handles to the same edge,
// each of which must eventually be released (spec.md §6: "the caller
// must eventually release" every handle it holds).
func (c *Context) Copy(e Edge) Edge {
	e = Real(e) // invariant 6: never hand back a proxy, even one the
	// caller's own stale handle has since chased into
	n := e.Node
	copyNode(n)
	n.extRefs++
	return e
}

// Release drops one external reference to e. When the node's total
// refcount reaches zero it is disconnected from the DAG and deallocated
// via the iterative worklist releaser (spec.md §4.4/§9): no call-stack
// recursion over arbitrarily deep terms.
func (c *Context) Release(e Edge) {
	n := Real(e).Node
	if n.extRefs == 0 {
		panic("dag: release of a handle with no external reference")
	}
	n.extRefs--
	c.release(n)
}

// discard releases a scratch edge built purely to be wired into a further
// constructor call (derived.go's macro-expansion convention): it pays back
// exactly the one hold that constructor call's own return left on the
// edge, without touching extRefs, since a scratch edge never becomes an
// external handle.
func (c *Context) discard(e Edge) {
	c.release(Real(e).Node)
}

// release is the internal (refs-only) drop used both by Context.Release
// and by the cascade when a parent lets go of a child.
func (c *Context) release(n *Node) {
	n.refs--
	if n.refs != 0 {
		return
	}

	worklist := []*Node{n}
	for len(worklist) > 0 {
		cur := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if cur.refs != 0 {
			// Reached via more than one edge in this batch (e.g. a
			// diamond sharing pattern); it's no longer actually at zero.
			continue
		}
		c.deallocate(cur, &worklist)
	}
}

// deallocate reclaims a single node whose refcount has reached zero,
// per spec.md §4.4: remove from the unique table, push children (and a
// proxy's simplified successor) onto the worklist, free local payload and
// side-map entries, disconnect every child edge, mark invalid, return the
// id slot.
func (c *Context) deallocate(n *Node, worklist *[]*Node) {
	if n.flags.has(flagUnique) {
		c.unique.remove(n)
	}

	if n.kind == KindLambda && n.lambda != nil {
		// invariant 7: clear the bound parameter's back-pointer (unless
		// some other lambda has since re-claimed it) and pay back the
		// binder hold lambdaNode took out in lambda.go.
		if p := n.lambda.param; p != nil && p.param != nil && p.param.binder == n {
			p.param.binder = nil
			p.refs--
			if p.refs == 0 {
				*worklist = append(*worklist, p)
			}
		}
	}

	if n.kind == KindProxy && n.simplifiedNode != nil {
		succ := n.simplifiedNode
		succ.refs--
		if succ.refs == 0 {
			*worklist = append(*worklist, succ)
		}
		n.simplifiedNode = nil
	}

	n.constBits = nil
	n.slice = nil
	n.lambda = nil
	n.param = nil
	n.uf = nil
	n.update = nil
	n.flags |= flagErased

	c.sym.unregister(n)

	for slot := uint8(0); slot < n.arity; slot++ {
		child := n.e[slot].Node
		disconnectChild(n, slot, child)
		child.refs--
		if child.refs == 0 {
			*worklist = append(*worklist, child)
		}
		n.e[slot] = Edge{}
	}
	n.flags |= flagDisconnected

	c.ids.Free(n.id)
	n.kind = KindInvalid
	n.symbol = nil
	c.nodes.Free(n)
}

// proxyConvert implements spec.md §4.8's in-place state transition:
// disconnected → !unique, the one legal side branch off the main
// lifecycle. n keeps its id (so outstanding external handles stay valid,
// invariant 6's "proxy guarantee") but is removed from the unique table,
// has its children released, and becomes a forwarding pointer to
// replacement. n's own refcount is untouched — existing holders are now
// transparently redirected the next time they call Real.
func (c *Context) proxyConvert(n *Node, replacement Edge) {
	if n == replacement.Node {
		return
	}
	assertRewriterSort(n, replacement)

	if n.flags.has(flagUnique) {
		c.unique.remove(n)
	}
	if n.kind == KindLambda && n.lambda != nil {
		if p := n.lambda.param; p != nil && p.param != nil && p.param.binder == n {
			p.param.binder = nil
			c.release(p)
		}
	}

	n.constBits = nil
	n.slice = nil
	n.lambda = nil
	n.param = nil
	n.uf = nil
	n.update = nil
	n.flags |= flagErased
	c.sym.unregister(n)

	for slot := uint8(0); slot < n.arity; slot++ {
		child := n.e[slot].Node
		disconnectChild(n, slot, child)
		c.release(child)
		n.e[slot] = Edge{}
	}
	n.flags |= flagDisconnected
	n.arity = 0

	// Take the proxy's own hold on the replacement; deallocate() above
	// pays this back when n itself is eventually dropped.
	copyNode(replacement.Node)
	n.kind = KindProxy
	n.simplifiedNode = replacement.Node
	n.simplifiedInverted = replacement.Inverted

	btorlog.Log.Debug().Uint32("id", n.id).Uint32("replacement_id", replacement.Node.id).Msg("proxy conversion")
}

func assertRewriterSort(n *Node, replacement Edge) {
	if n.sort != Real(replacement).Node.sort {
		panic("dag: rewriter returned a node of a different sort than the operator declares")
	}
}
