package dag

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ndrewh/exprdag/pkg/bitvec"
	"github.com/ndrewh/exprdag/pkg/btorsort"
)

// sortID aliases the external sort registry's handle type so the rest of
// this package doesn't have to import btorsort everywhere.
type sortID = btorsort.ID

// flags is the bitset of per-node state flags from spec.md's data model.
type flags uint16

const (
	flagUnique flags = 1 << iota
	flagErased
	flagDisconnected
	flagParameterized // transitively under a binder
	flagLambdaBelow
	flagApplyBelow
	flagIsArray
)

func (f flags) has(bit flags) bool { return f&bit != 0 }

// Node is the core's variable-layout record. Field layout follows spec.md
// §3 one-for-one; kind-specific extras live in the payload field rather
// than as a union, since Go has no overlapping-storage unions and a single
// interface{} per node would cost an allocation+indirection on every node
// regardless of kind — payload is instead one pointer-shaped field per
// concern, nil when not applicable to this node's kind.
type Node struct {
	id    uint32
	kind  Kind
	sort  sortID
	arity uint8

	e [3]Edge // child edges; canonical (non-inverted) node + bit

	// parentLink[k] is the list cell this node owns in e[k].Node's parent
	// list — see parentlist.go. firstParent/lastParent anchor the list of
	// *other* nodes that hold this node as a child.
	parentLink             [3]*parentEntry
	firstParent, lastParent *parentEntry
	parentCount            uint32

	refs    uint32 // internal: all holders, including every parent edge
	extRefs uint32 // external: the client-visible subset of refs

	flags flags

	// uniqueHash/uniqueNext back the open-addressing-by-chain unique
	// table (uniquetable.go); meaningful only while flagUnique is set.
	uniqueHash uint32
	uniqueNext *Node

	// simplified* are valid only when kind == KindProxy; see edge.go's
	// Real() and lifecycle.go's proxy conversion.
	simplifiedNode      *Node
	simplifiedInverted bool

	// Kind-specific payload; each field is non-nil only for the kinds
	// noted beside it (a UF carries both uf and symbol, a named param both
	// param and symbol), and none is set for the primitive kinds with no
	// extra state: and/bveq/funeq/add/mul/ult/sll/srl/udiv/urem/concat/
	// apply/cond/proxy.
	constBits *bitvec.Value // KindConst
	slice     *sliceInfo    // KindSlice
	lambda    *lambdaInfo   // KindLambda
	param     *paramInfo    // KindParam
	symbol    *symbolInfo   // KindVar, KindUF, and a named KindParam
	uf        *ufInfo       // KindUF
	update    *updateInfo   // KindUpdate
}

type sliceInfo struct {
	upper, lower uint32
}

// lambdaInfo holds a binder's body, its alpha-invariant structural hash
// (cached at construction per spec.md §9 — "the lambda's structural hash
// is expensive ... cache it at lambda creation"), and its static rho: a
// bounded arg-tuple -> value mini-cache seeded by array-write encodings
// (spec.md §4.7's `write` macro, §9's "Static rho"). Backed by
// hashicorp/golang-lru rather than a bare map — see SPEC_FULL.md's
// DOMAIN STACK section.
type lambdaInfo struct {
	param      *Node // the bound parameter (KindParam node)
	body       Edge
	structHash uint32
	staticRho  *lru.Cache[uint32, Edge] // args-node id -> value edge
}

// paramInfo is a parameter's back-pointer to its binder (spec.md invariant
// 7: a parameter has at most one binding lambda) and its beta-reduction
// scratch slot (spec.md §9's "assign before, release after" discipline).
type paramInfo struct {
	binder   *Node // nil until a lambda claims it
	assigned *Edge // non-nil only mid apply-construction
}

// symbolInfo is the name side-table entry and input-id assignment for
// variables, arrays (funs of array shape), uninterpreted functions, and
// named parameters.
type symbolInfo struct {
	name    string
	inputID uint32 // sequential, distinct from node id; set for every var and uf, named or not; 0 for a param
}

type ufInfo struct {
	rho *lru.Cache[uint32, Edge] // same shape as a lambda's static rho
}

type updateInfo struct {
	indexArity int // number of index arguments the update's args tuple carries
}

// Id returns the node's stable identifier.
func (n *Node) Id() uint32 { return n.id }

// Kind returns the node's kind tag, chasing proxies first so callers never
// observe KindProxy from a live query (invariant 6).
func (n *Node) Kind() Kind { return Real(Edge{Node: n}).Node.kind }

// Sort returns the node's sort id.
func (n *Node) Sort() sortID { return n.sort }

// Arity returns the node's child count (0-3).
func (n *Node) Arity() uint8 { return n.arity }

// Child returns child edge k (0-based), chasing simplified first — per
// invariant 6, a stored child edge can point at a node that has since
// become a proxy, so every read goes through Real.
func (n *Node) Child(k int) Edge { return Real(n.e[k]) }

// ParentCount returns the number of live parents referencing this node as
// a child, summed over all slots (spec.md testable property 4).
func (n *Node) ParentCount() uint32 { return n.parentCount }

// Refs returns the internal reference count.
func (n *Node) Refs() uint32 { return n.refs }

// ExtRefs returns the external (client-visible) reference count.
func (n *Node) ExtRefs() uint32 { return n.extRefs }

// IsParameterized reports whether this subterm transitively contains a
// parameter not yet bound by a lambda within it.
func (n *Node) IsParameterized() bool { return n.flags.has(flagParameterized) }

// SliceBounds returns a KindSlice node's [lower, upper] bit range, for
// downstream consumers (pkg/bitblast) that need to walk a term without
// importing the package's unexported payload types.
func (n *Node) SliceBounds() (lower, upper uint32) {
	return n.slice.lower, n.slice.upper
}

// ConstBit returns bit i of a KindConst node's value (ignoring any edge
// inversion — callers reading through an Edge should use Real(e).Inverted
// themselves, as pkg/bitblast does).
func (n *Node) ConstBit(i uint32) uint8 {
	return n.constBits.Bit(i)
}
