// Package assert centralizes the core's fatal-contract-violation policy.
//
// Per the core's error taxonomy there are no recoverable errors: a caller
// that violates a precondition (mismatched sorts, releasing a dead handle,
// overflowing a counter) gets a panic naming the violation, never an error
// return. Routing every check through Require keeps that policy grep-able
// at a single seam instead of scattered panic(fmt.Sprintf(...)) call sites.
package assert

import "fmt"

// Require panics with a formatted message if cond is false.
func Require(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// Unreachable panics unconditionally, for switch defaults over closed kinds.
func Unreachable(format string, args ...any) {
	panic(fmt.Sprintf(format, args...))
}
