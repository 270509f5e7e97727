package dag

// Options holds the context options spec.md §6 says the core reads.
type Options struct {
	// SortExp enables ascending-id child sorting for commutative binary
	// kinds (and, add, mul, both equalities) — spec.md invariant 3.
	SortExp bool

	// RewriteLevel enables rewriter callouts when > 0; 0 disables them
	// entirely and every derived constructor falls straight through to
	// its primitive.
	RewriteLevel int

	// FunStoreLambdas encodes every `write` as a lambda (spec.md §4.7).
	// When it is off, every write is a plain KindUpdate node, whether or
	// not its operands are under a binder.
	FunStoreLambdas bool
}

// DefaultOptions matches the source's conservative defaults: sharing
// enabled, rewriting on, plain update nodes for array writes.
func DefaultOptions() Options {
	return Options{SortExp: true, RewriteLevel: 1, FunStoreLambdas: false}
}
