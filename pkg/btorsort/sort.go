// Package btorsort is the opaque sort registry that spec.md §1 lists as an
// external collaborator: "provides opaque sort identifiers plus inspector
// queries: width, domain, codomain, tuple arity." The expression-DAG core
// in pkg/dag never looks inside an ID — it only ever asks this package for
// width/domain/codomain/arity, exactly the narrow interface the spec
// describes.
//
// Three sort shapes exist: bit-vector (a width), function (a domain tuple
// sort plus a codomain — arrays are modeled as functions from a one-wide
// index tuple to an element sort, per spec.md §4.7's read/write-as-apply
// encoding), and tuple (the sort of an argument-tuple node, spec kind
// "args").
package btorsort

import (
	"fmt"

	"github.com/ndrewh/exprdag/internal/assert"
)

// ID is an opaque handle into a Registry. The zero ID is never issued.
type ID uint32

// Kind distinguishes the three sort shapes.
type Kind uint8

const (
	Bitvec Kind = iota
	Fun
	Tuple
)

type sortInfo struct {
	kind      Kind
	width     uint32 // Bitvec
	domain    ID     // Fun: the Tuple sort of its arguments
	codomain  ID     // Fun
	elems     []ID   // Tuple
}

// Registry interns sorts by shape: two requests for the same shape return
// the same ID, so callers can compare sorts with plain ID equality — the
// same reason the DAG's own unique table interns nodes by shape.
type Registry struct {
	sorts []sortInfo // sorts[0] unused, ID 0 invalid
	byKey map[string]ID
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{sorts: []sortInfo{{}}, byKey: make(map[string]ID)}
}

func (r *Registry) intern(key string, info sortInfo) ID {
	if id, ok := r.byKey[key]; ok {
		return id
	}
	id := ID(len(r.sorts))
	r.sorts = append(r.sorts, info)
	r.byKey[key] = id
	return id
}

// Bitvec returns (interning) the sort for a width-bit bit-vector.
func (r *Registry) Bitvec(width uint32) ID {
	assert.Require(width > 0, "btorsort: zero-width bit-vector sort")
	key := fmt.Sprintf("bv:%d", width)
	return r.intern(key, sortInfo{kind: Bitvec, width: width})
}

// Tuple returns (interning) the sort of an argument tuple with the given
// element sorts, in order.
func (r *Registry) Tuple(elems ...ID) ID {
	assert.Require(len(elems) > 0, "btorsort: empty tuple sort")
	key := "tup:"
	for _, e := range elems {
		key += fmt.Sprintf("%d,", e)
	}
	cp := make([]ID, len(elems))
	copy(cp, elems)
	return r.intern(key, sortInfo{kind: Tuple, elems: cp})
}

// Fun returns (interning) the sort of a function/array from domain
// (a Tuple sort) to codomain.
func (r *Registry) Fun(domain, codomain ID) ID {
	key := fmt.Sprintf("fun:%d->%d", domain, codomain)
	return r.intern(key, sortInfo{kind: Fun, domain: domain, codomain: codomain})
}

// ArraySort is a convenience for the common unary-domain case: an array
// from an index sort to an element sort is a Fun over a one-element Tuple.
func (r *Registry) ArraySort(index, elem ID) ID {
	return r.Fun(r.Tuple(index), elem)
}

func (r *Registry) info(id ID) *sortInfo {
	assert.Require(id != 0 && int(id) < len(r.sorts), "btorsort: invalid sort id %d", id)
	return &r.sorts[id]
}

// KindOf returns the shape of id.
func (r *Registry) KindOf(id ID) Kind { return r.info(id).kind }

// Width returns the bit width of a Bitvec sort.
func (r *Registry) Width(id ID) uint32 {
	info := r.info(id)
	assert.Require(info.kind == Bitvec, "btorsort: Width on non-bitvec sort %d", id)
	return info.width
}

// Domain returns the domain (a Tuple sort) of a Fun sort.
func (r *Registry) Domain(id ID) ID {
	info := r.info(id)
	assert.Require(info.kind == Fun, "btorsort: Domain on non-fun sort %d", id)
	return info.domain
}

// Codomain returns the codomain of a Fun sort.
func (r *Registry) Codomain(id ID) ID {
	info := r.info(id)
	assert.Require(info.kind == Fun, "btorsort: Codomain on non-fun sort %d", id)
	return info.codomain
}

// Elems returns the element sorts of a Tuple sort.
func (r *Registry) Elems(id ID) []ID {
	info := r.info(id)
	assert.Require(info.kind == Tuple, "btorsort: Elems on non-tuple sort %d", id)
	return info.elems
}

// Arity returns len(Elems(id)) for a Tuple sort.
func (r *Registry) Arity(id ID) int {
	return len(r.Elems(id))
}

// IsArray reports whether id is a Fun sort whose domain is a one-element
// tuple — the shape spec.md's "is_array" flag is attached to.
func (r *Registry) IsArray(id ID) bool {
	info := r.info(id)
	return info.kind == Fun && r.Arity(info.domain) == 1
}
