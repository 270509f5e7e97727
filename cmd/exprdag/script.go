package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ndrewh/exprdag/pkg/dag"
)

// buildScript interprets a tiny batch-script format into the context, one
// operation per line, and returns the last bound name's edge as the root.
// Every built edge is copied into a name table so later lines can refer
// back to it by name; the builder keeps its own external reference to
// each one and releases the lot (except the final root, which the caller
// owns) when the script is done.
//
// Line grammar, whitespace separated, "#" starts a line comment:
//
//	var <name> <width>
//	const <name> <width> <uint-value>
//	not|neg|inc|dec|redor|redand|redxor <name> <a>
//	add|sub|mul|and|or|xor|nand|nor|xnor|concat <name> <a> <b>
//	ult|ule|ugt|uge|slt|sle|sgt|sge|eq|ne <name> <a> <b>
//	sll|srl|sra|rol|ror|udiv|urem|sdiv|srem <name> <a> <b>
//	cond <name> <cnd> <t> <e>
//	slice <name> <a> <upper> <lower>
//
// The name bound by the last non-comment line is the script's root.
func buildScript(c *dag.Context, r io.Reader) (root dag.Edge, rootName string, err error) {
	names := map[string]dag.Edge{}
	defer func() {
		for n, e := range names {
			if n != rootName {
				c.Release(e)
			}
		}
	}()

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		op := fields[0]

		lookup := func(name string) (dag.Edge, error) {
			e, ok := names[name]
			if !ok {
				return dag.Edge{}, fmt.Errorf("line %d: undefined name %q", lineNo, name)
			}
			return e, nil
		}
		width := func(s string) (uint32, error) {
			v, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				return 0, fmt.Errorf("line %d: bad width %q: %w", lineNo, s, err)
			}
			return uint32(v), nil
		}

		var name string
		var e dag.Edge

		switch op {
		case "var":
			if len(fields) != 3 {
				return root, "", fmt.Errorf("line %d: var <name> <width>", lineNo)
			}
			name = fields[1]
			w, werr := width(fields[2])
			if werr != nil {
				return root, "", werr
			}
			e = c.Var(c.Sorts().Bitvec(w), name)

		case "const":
			if len(fields) != 4 {
				return root, "", fmt.Errorf("line %d: const <name> <width> <value>", lineNo)
			}
			name = fields[1]
			w, werr := width(fields[2])
			if werr != nil {
				return root, "", werr
			}
			v, verr := strconv.ParseUint(fields[3], 0, 64)
			if verr != nil {
				return root, "", fmt.Errorf("line %d: bad value %q: %w", lineNo, fields[3], verr)
			}
			e = c.Unsigned(v, c.Sorts().Bitvec(w))

		case "not", "neg", "inc", "dec", "redor", "redand", "redxor":
			if len(fields) != 3 {
				return root, "", fmt.Errorf("line %d: %s <name> <a>", lineNo, op)
			}
			name = fields[1]
			a, aerr := lookup(fields[2])
			if aerr != nil {
				return root, "", aerr
			}
			e = applyUnary(c, op, a)

		case "add", "sub", "mul", "and", "or", "xor", "nand", "nor", "xnor", "concat",
			"ult", "ule", "ugt", "uge", "slt", "sle", "sgt", "sge", "eq", "ne",
			"sll", "srl", "sra", "rol", "ror", "udiv", "urem", "sdiv", "srem", "smod":
			if len(fields) != 4 {
				return root, "", fmt.Errorf("line %d: %s <name> <a> <b>", lineNo, op)
			}
			name = fields[1]
			a, aerr := lookup(fields[2])
			if aerr != nil {
				return root, "", aerr
			}
			b, berr := lookup(fields[3])
			if berr != nil {
				return root, "", berr
			}
			e = applyBinary(c, op, a, b)

		case "cond":
			if len(fields) != 5 {
				return root, "", fmt.Errorf("line %d: cond <name> <cnd> <t> <e>", lineNo)
			}
			name = fields[1]
			cnd, cerr := lookup(fields[2])
			if cerr != nil {
				return root, "", cerr
			}
			t, terr := lookup(fields[3])
			if terr != nil {
				return root, "", terr
			}
			el, eerr := lookup(fields[4])
			if eerr != nil {
				return root, "", eerr
			}
			e = c.Cond(cnd, t, el)

		case "slice":
			if len(fields) != 5 {
				return root, "", fmt.Errorf("line %d: slice <name> <a> <upper> <lower>", lineNo)
			}
			name = fields[1]
			a, aerr := lookup(fields[2])
			if aerr != nil {
				return root, "", aerr
			}
			upper, uerr := width(fields[3])
			if uerr != nil {
				return root, "", uerr
			}
			lower, lerr := width(fields[4])
			if lerr != nil {
				return root, "", lerr
			}
			e = c.Slice(a, upper, lower)

		default:
			return root, "", fmt.Errorf("line %d: unknown op %q", lineNo, op)
		}

		if old, ok := names[name]; ok {
			c.Release(old)
		}
		names[name] = e
		rootName = name
		root = e
	}
	if err := sc.Err(); err != nil {
		return root, "", err
	}
	if rootName == "" {
		return root, "", fmt.Errorf("empty script: no expression built")
	}
	// root keeps the external reference names[rootName] already holds; the
	// deferred cleanup above skips releasing it for exactly this reason.
	return root, rootName, nil
}

func applyUnary(c *dag.Context, op string, a dag.Edge) dag.Edge {
	switch op {
	case "not":
		return c.Not(a)
	case "neg":
		return c.Neg(a)
	case "inc":
		return c.Inc(a)
	case "dec":
		return c.Dec(a)
	case "redor":
		return c.Redor(a)
	case "redand":
		return c.Redand(a)
	case "redxor":
		return c.Redxor(a)
	}
	panic("applyUnary: unreachable op " + op)
}

func applyBinary(c *dag.Context, op string, a, b dag.Edge) dag.Edge {
	switch op {
	case "add":
		return c.Add(a, b)
	case "sub":
		return c.Sub(a, b)
	case "mul":
		return c.Mul(a, b)
	case "and":
		return c.And(a, b)
	case "or":
		return c.Or(a, b)
	case "xor":
		return c.Xor(a, b)
	case "nand":
		return c.Nand(a, b)
	case "nor":
		return c.Nor(a, b)
	case "xnor":
		return c.Xnor(a, b)
	case "concat":
		return c.Concat(a, b)
	case "ult":
		return c.Ult(a, b)
	case "ule":
		return c.Ule(a, b)
	case "ugt":
		return c.Ugt(a, b)
	case "uge":
		return c.Uge(a, b)
	case "slt":
		return c.Slt(a, b)
	case "sle":
		return c.Sle(a, b)
	case "sgt":
		return c.Sgt(a, b)
	case "sge":
		return c.Sge(a, b)
	case "eq":
		return c.Eq(a, b)
	case "ne":
		return c.Ne(a, b)
	case "sll":
		return c.Sll(a, b)
	case "srl":
		return c.Srl(a, b)
	case "sra":
		return c.Sra(a, b)
	case "rol":
		return c.Rol(a, b)
	case "ror":
		return c.Ror(a, b)
	case "udiv":
		return c.Udiv(a, b)
	case "urem":
		return c.Urem(a, b)
	case "sdiv":
		return c.Sdiv(a, b)
	case "srem":
		return c.Srem(a, b)
	case "smod":
		return c.Smod(a, b)
	}
	panic("applyBinary: unreachable op " + op)
}

// writeDot renders the subterm reachable from root as a Graphviz dot graph,
// one node per dag.Node id (not per Edge, so two inverted views of the same
// node share a box, with the inversion noted on the edge instead).
func writeDot(w io.Writer, c *dag.Context, root dag.Edge) {
	fmt.Fprintln(w, "digraph expr {")
	seen := map[uint32]bool{}
	var walk func(e dag.Edge)
	walk = func(e dag.Edge) {
		re := dag.Real(e)
		n := re.Node
		if seen[n.Id()] {
			return
		}
		seen[n.Id()] = true
		fmt.Fprintf(w, "  n%d [label=%q];\n", n.Id(), nodeLabel(n))
		for i := 0; i < int(n.Arity()); i++ {
			child := n.Child(i)
			walk(child)
			style := ""
			if child.IsInverted() {
				style = " [style=dashed,label=\"~\"]"
			}
			fmt.Fprintf(w, "  n%d -> n%d%s;\n", n.Id(), dag.Real(child).Node.Id(), style)
		}
	}
	walk(root)
	fmt.Fprintln(w, "}")
}

func nodeLabel(n *dag.Node) string {
	return fmt.Sprintf("%s\\n#%d", n.Kind(), n.Id())
}
