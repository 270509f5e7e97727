package dag

// symtab is the side-table layer from spec.md §2 component 8: name<->node
// maps plus the kind-specific indices (variables, lambdas, ufs, function
// equalities, parameterized subterms) that §4.2 says every installed node
// of the relevant kind joins, and that lifecycle.go's releaser must strip
// a node back out of on the way to deallocation.
type symtab struct {
	byName map[string]*Node
	byNode map[*Node]string

	vars         map[uint32]*Node
	lambdas      map[uint32]*Node
	ufs          map[uint32]*Node
	funEqs       map[uint32]*Node
	parameterized map[uint32]*Node

	nextInputID uint32
}

func newSymtab() *symtab {
	return &symtab{
		byName:        make(map[string]*Node),
		byNode:        make(map[*Node]string),
		vars:          make(map[uint32]*Node),
		lambdas:       make(map[uint32]*Node),
		ufs:           make(map[uint32]*Node),
		funEqs:        make(map[uint32]*Node),
		parameterized: make(map[uint32]*Node),
	}
}

// bindName registers n under name, if name is non-empty. Names must be
// unique within a context.
func (s *symtab) bindName(n *Node, name string) {
	if name == "" {
		return
	}
	if _, exists := s.byName[name]; exists {
		panic("dag: duplicate symbol name " + name)
	}
	s.byName[name] = n
	s.byNode[n] = name
}

func (s *symtab) lookupName(name string) (*Node, bool) {
	n, ok := s.byName[name]
	return n, ok
}

func (s *symtab) nameOf(n *Node) (string, bool) {
	name, ok := s.byNode[n]
	return name, ok
}

// assignInputID hands out the next sequential input id, used for
// variables/arrays (spec.md §2 component 8: "input-id assignment for
// variables and arrays"), distinct from the node's own id.
func (s *symtab) assignInputID() uint32 {
	s.nextInputID++
	return s.nextInputID
}

// register/unregister add or remove n from the kind-specific index
// appropriate to its kind, called from node installation (§4.2) and
// release (§4.4) respectively.
func (s *symtab) register(n *Node) {
	switch n.kind {
	case KindVar:
		s.vars[n.id] = n
	case KindLambda:
		s.lambdas[n.id] = n
	case KindUF:
		s.ufs[n.id] = n
	case KindFunEq:
		s.funEqs[n.id] = n
	}
	if n.flags.has(flagParameterized) {
		s.parameterized[n.id] = n
	}
}

func (s *symtab) unregister(n *Node) {
	delete(s.vars, n.id)
	delete(s.lambdas, n.id)
	delete(s.ufs, n.id)
	delete(s.funEqs, n.id)
	delete(s.parameterized, n.id)
	if name, ok := s.byNode[n]; ok {
		delete(s.byNode, n)
		delete(s.byName, name)
	}
}
