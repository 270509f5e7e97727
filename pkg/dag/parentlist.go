package dag

// parentEntry is one cell in a child's doubly linked parent list: "node
// owns slot k of edge e[k]" (spec.md §4.3). The source smuggles the slot
// index into the two low bits of the parent pointer itself; we spell that
// out as an explicit field instead (see SPEC_FULL.md / DESIGN.md on tagged
// pointers) — same information, no pointer arithmetic.
type parentEntry struct {
	owner      *Node // the parent node this entry belongs to
	slot       uint8 // which of owner's child slots points at the list's child
	prev, next *parentEntry
}

// connectChild links owner's slot-k edge to child, prepending a new parent
// entry to child's parent list (appending instead for KindApply parents,
// per spec.md §4.3: "apply parents append, so walks discover the function
// before its arguments").
func connectChild(owner *Node, slot uint8, child *Node) {
	entry := &parentEntry{owner: owner, slot: slot}
	owner.parentLink[slot] = entry
	child.parentCount++

	if owner.kind == KindApply {
		appendParent(child, entry)
	} else {
		prependParent(child, entry)
	}
}

func prependParent(child *Node, entry *parentEntry) {
	entry.next = child.firstParent
	entry.prev = nil
	if child.firstParent != nil {
		child.firstParent.prev = entry
	}
	child.firstParent = entry
	if child.lastParent == nil {
		child.lastParent = entry
	}
}

func appendParent(child *Node, entry *parentEntry) {
	entry.prev = child.lastParent
	entry.next = nil
	if child.lastParent != nil {
		child.lastParent.next = entry
	}
	child.lastParent = entry
	if child.firstParent == nil {
		child.firstParent = entry
	}
}

// disconnectChild splices owner's slot-k parent entry out of child's
// parent list. Handles all four splice cases (empty is impossible here
// since entry is known to be in the list; head, tail, interior).
func disconnectChild(owner *Node, slot uint8, child *Node) {
	entry := owner.parentLink[slot]
	if entry == nil {
		return
	}

	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		child.firstParent = entry.next
	}
	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		child.lastParent = entry.prev
	}

	child.parentCount--
	owner.parentLink[slot] = nil
}

// ForEachParent walks child's parent list, calling fn(parentNode, slot).
// fn must not mutate the list being walked (connect/disconnect a parent
// of child) during the walk.
func ForEachParent(child *Node, fn func(parent *Node, slot uint8)) {
	for e := child.firstParent; e != nil; e = e.next {
		fn(e.owner, e.slot)
	}
}
