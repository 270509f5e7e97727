package dag

// Edge is the public handle type: a reference to a Node plus the
// inversion bit that flips its boolean/bit-vector value. spec.md §9 is
// explicit that this should be "a small sum type Edge{node, inverted} at
// the API; internally, packing the bit into the pointer is a performance
// tactic, not a semantic one" — and a performance tactic that doesn't
// transplant to a garbage-collected language without unsafe.Pointer
// games we have no reason to play here. We keep the sum type all the way
// down; see DESIGN.md's Open Question log for that deviation.
//
// The zero Edge (Node == nil) is never a valid handle and is used
// internally as a "no match"/"not built yet" sentinel.
type Edge struct {
	Node     *Node
	Inverted bool
}

// invalidEdge is the sentinel zero value, spelled out for readability at
// call sites that branch on "did the rewriter match".
var invalidEdge = Edge{}

// Valid reports whether e refers to an actual node.
func (e Edge) Valid() bool { return e.Node != nil }

// Not returns the logical/bit-vector complement of e. Per spec.md §4.7,
// `not` never allocates — it only flips the edge's inversion bit, which is
// why it lives here instead of constructors.go.
func (e Edge) Not() Edge {
	return Edge{Node: e.Node, Inverted: !e.Inverted}
}

// IsInverted reports the edge's inversion bit (the public equivalent of
// the source's is_inverted(h)), folded through the simplified chain like
// any other field read (invariant 6).
func (e Edge) IsInverted() bool { return Real(e).Inverted }

// Real returns the canonical, non-proxy node this edge currently points
// at, chasing the simplified chain to its fixed point and folding in every
// inversion bit crossed along the way (spec.md invariant 6: "every query
// chases simplified before reading any field").
func Real(e Edge) Edge {
	for e.Node.kind == KindProxy {
		next := e.Node.simplifiedNode
		inv := e.Inverted != e.Node.simplifiedInverted
		e = Edge{Node: next, Inverted: inv}
	}
	return e
}

// Sort returns the sort id of the node e refers to (inversion does not
// change sort).
func (e Edge) Sort() sortID {
	return Real(e).Node.sort
}

// id is a small helper for debug output and ascending-id commutative sort.
func (e Edge) id() uint32 {
	return Real(e).Node.id
}
