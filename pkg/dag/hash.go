package dag

// Large primes used to combine child ids into a structural fingerprint,
// per spec.md §4.1 ("generic binary/ternary: Σ pᵢ · child_id_i").
const (
	prime0 uint32 = 2654435761 // kind mixer
	prime1 uint32 = 2246822519
	prime2 uint32 = 3266489917
	prime3 uint32 = 668265263
)

func edgeWord(e Edge) uint32 {
	w := e.Node.id * 2
	if e.Inverted {
		w |= 1
	}
	return w
}

func hashKind(k Kind) uint32 {
	return uint32(k) * prime0
}

func hashUnary(k Kind, a Edge) uint32 {
	return hashKind(k) + prime1*edgeWord(a)
}

func hashBinary(k Kind, a, b Edge) uint32 {
	return hashKind(k) + prime1*edgeWord(a) + prime2*edgeWord(b)
}

func hashTernary(k Kind, a, b, c Edge) uint32 {
	return hashKind(k) + prime1*edgeWord(a) + prime2*edgeWord(b) + prime3*edgeWord(c)
}

// hashSlice combines the sliced operand with the upper/lower bounds, per
// spec.md's dedicated slice formula (distinct from the generic binary/
// ternary one since upper/lower are plain integers, not child ids).
func hashSlice(a Edge, upper, lower uint32) uint32 {
	return hashKind(KindSlice) + prime1*edgeWord(a) + prime2*upper + prime3*lower
}

// matchesChildren compares n's exact arity/children against the given
// edges — the equality half of every primitive constructor's unique-table
// probe (hash narrows the chain, this confirms the candidate).
func matchesChildren(n *Node, kind Kind, edges ...Edge) bool {
	if n.kind != kind || int(n.arity) != len(edges) {
		return false
	}
	for i, e := range edges {
		if n.e[i] != e {
			return false
		}
	}
	return true
}
