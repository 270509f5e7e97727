// Package dag is the core: a hash-consed, reference-counted expression DAG
// for bit-precise bit-vector and array terms, as specified by
// SPEC_FULL.md. It owns the node arena and id table, the unique table, the
// parent-list index, the reference-counted lifecycle manager, the lambda/
// parameter machinery, the symbol side tables, and the constructor
// façade — every component in SPEC_FULL.md's §2/§4 table.
package dag

import (
	"github.com/ndrewh/exprdag/internal/arena"
	"github.com/ndrewh/exprdag/internal/idtable"
	"github.com/ndrewh/exprdag/pkg/btorsort"
)

// Context owns every node in one solver instance. Per spec.md §5, a
// Context is single-threaded and non-reentrant across contexts: two
// Contexts may run concurrently on different goroutines with no shared
// state, but a single Context must only ever be touched from one
// goroutine (or under external synchronization) at a time.
type Context struct {
	ids    *idtable.Table[*Node]
	nodes  *arena.Pool[Node]
	unique *uniqueTable
	sorts  *btorsort.Registry
	sym    *symtab

	options  Options
	rewriter Rewriter
}

// NewContext creates an empty context with the given sort registry (the
// scoped external resource named in spec.md §5 whose lifetime strictly
// contains every node's) and options. A nil rewriter installs the
// built-in identity RuleSet (rewrite.go).
func NewContext(sorts *btorsort.Registry, opts Options, rewriter Rewriter) *Context {
	if sorts == nil {
		sorts = btorsort.New()
	}
	if rewriter == nil {
		rewriter = DefaultRuleSet()
	}
	return &Context{
		ids:      idtable.New[*Node](),
		nodes:    arena.New(func() *Node { return &Node{} }),
		unique:   newUniqueTable(),
		sorts:    sorts,
		sym:      newSymtab(),
		options:  opts,
		rewriter: rewriter,
	}
}

// Sorts exposes the sort registry so callers can build sorts to pass to
// constructors.
func (c *Context) Sorts() *btorsort.Registry { return c.sorts }

// Options returns the context's current option set.
func (c *Context) Options() Options { return c.options }

// SetRewriteLevel adjusts the rewrite-level option after construction
// (e.g. a CLI flag), matching spec.md §6's recognized context options.
func (c *Context) SetRewriteLevel(level int) { c.options.RewriteLevel = level }

// Stats is a snapshot of population counters, used by tests driving
// spec.md §8's quantified invariants and by cmd/exprdag's `build`
// subcommand.
type Stats struct {
	LiveNodes    int
	UniqueNodes  uint32
	UniqueBuckets uint32
}

// Stats returns current population counters.
func (c *Context) Stats() Stats {
	return Stats{
		LiveNodes:     c.ids.Len(),
		UniqueNodes:   c.unique.Count(),
		UniqueBuckets: c.unique.size,
	}
}

// Teardown implements spec.md §5's context-teardown contract: walk the id
// table, force every surviving node's refcount to trigger release, and
// verify ext_refs == 0 beforehand. It panics (a contract violation, per
// §7) if any external reference survives to teardown — that means a
// caller leaked a handle across the C-ABI boundary this core stands in
// for, and forcing the release anyway would hide the bug.
func (c *Context) Teardown() {
	var leakedExt uint32
	c.ids.Each(isLiveNode, func(id uint32, n *Node) { leakedExt += n.extRefs })

	// Surviving nodes may keep each other alive (parent <-> child, or a
	// lambda's param back-pointer); releasing any one of them can cascade
	// into deallocating others, so re-snapshot survivors each round until
	// none remain rather than iterating the id table while mutating it.
	for c.ids.Len() > 0 {
		var survivor *Node
		c.ids.Each(isLiveNode, func(id uint32, n *Node) {
			if survivor == nil {
				survivor = n
			}
		})
		if survivor == nil {
			break
		}
		for survivor.refs > 0 {
			c.release(survivor)
		}
	}

	if leakedExt != 0 {
		panic("dag: teardown found live external references; caller leaked a handle")
	}
}

func isLiveNode(n *Node) bool { return n != nil }
