package dag

import "github.com/ndrewh/exprdag/internal/btorlog"

// maxLog2Size caps unique-table growth (spec.md §4.1: "caps out to avoid
// pathological growth"); 2^30 buckets is already a 4GB+ slice, well beyond
// any term count this in-memory core is meant to hold.
const maxLog2Size = 30

// uniqueTable is the open-addressing-by-chain hash table keyed by a
// node's structural fingerprint (spec.md §4.1). Chains are singly linked
// through each Node's own uniqueNext field, so there is no secondary
// allocation per entry — the node IS the chain cell.
type uniqueTable struct {
	buckets []*Node
	size    uint32 // always a power of two
	count   uint32
	log2    uint   // log2(size)
}

func newUniqueTable() *uniqueTable {
	const initialLog2 = 10 // 1024 buckets, matches typical small-context term counts
	t := &uniqueTable{size: 1 << initialLog2, log2: initialLog2}
	t.buckets = make([]*Node, t.size)
	return t
}

func (t *uniqueTable) idx(hash uint32) uint32 {
	return hash & (t.size - 1)
}

// find walks the chain for hash, returning the first node for which eq
// returns true, or nil if there is no match. Lookup and insertion are
// split (find then insert) rather than fused behind a single "pointer to
// chain cell" as in the source, since Go has no address-of-struct-field
// across a slice of pointers to hand back cheaply — the index is enough
// to insert at the right bucket without re-hashing.
func (t *uniqueTable) find(hash uint32, eq func(*Node) bool) *Node {
	for n := t.buckets[t.idx(hash)]; n != nil; n = n.uniqueNext {
		if n.uniqueHash == hash && eq(n) {
			return n
		}
	}
	return nil
}

// insert adds n (already populated, not yet unique) to the table under
// hash, growing first if the load factor has reached 1.
func (t *uniqueTable) insert(n *Node, hash uint32) {
	if t.count >= t.size && t.log2 < maxLog2Size {
		t.grow()
	}
	n.uniqueHash = hash
	idx := t.idx(hash)
	n.uniqueNext = t.buckets[idx]
	t.buckets[idx] = n
	n.flags |= flagUnique
	t.count++
}

// remove unlinks n from its chain. n must currently be unique.
func (t *uniqueTable) remove(n *Node) {
	idx := t.idx(n.uniqueHash)
	cur := t.buckets[idx]
	if cur == n {
		t.buckets[idx] = n.uniqueNext
	} else {
		for cur != nil && cur.uniqueNext != n {
			cur = cur.uniqueNext
		}
		if cur != nil {
			cur.uniqueNext = n.uniqueNext
		}
	}
	n.uniqueNext = nil
	n.flags &^= flagUnique
	t.count--
}

func (t *uniqueTable) grow() {
	newSize := t.size * 2
	newLog2 := t.log2 + 1
	btorlog.Log.Debug().Uint32("old_size", t.size).Uint32("new_size", newSize).Msg("unique table growth")

	newBuckets := make([]*Node, newSize)
	mask := newSize - 1
	// Rehash: walk every existing chain and redistribute against the new
	// size (spec.md §4.1: "rehash walks every chain and redistributes by
	// a freshly computed hash against the new size" — the hash itself,
	// cached on the node, doesn't change; only the bucket it maps to).
	for _, head := range t.buckets {
		for n := head; n != nil; {
			next := n.uniqueNext
			idx := n.uniqueHash & mask
			n.uniqueNext = newBuckets[idx]
			newBuckets[idx] = n
			n = next
		}
	}
	t.buckets = newBuckets
	t.size = newSize
	t.log2 = newLog2
}

// Count returns the number of live entries (used by Context.Stats and the
// spec.md §8 "no duplicates" / population tests).
func (t *uniqueTable) Count() uint32 { return t.count }
