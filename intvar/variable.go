// Package intvar implements the data model shared by every layer of the
// integer-reasoning core: dense integer-variable identifiers, hole-aware
// domains, and canonicalised integer literals (spec.md §3).
package intvar

import "fmt"

// Variable is a dense integer-variable identifier. For every variable v the
// system reserves two identifiers, v and its negation ¬v = v^1: the upper
// bound of v equals the negation of the lower bound of ¬v. The
// least-significant bit distinguishes a variable from its negation.
// Identifiers are allocated in pairs at model-build time only and are never
// freed.
type Variable int32

// Negation returns ¬v. Negation(Negation(v)) == v always holds.
func (v Variable) Negation() Variable {
	return v ^ 1
}

// IsNegation reports whether v is the "negative view" half of its pair
// (allocated second within the pair).
func (v Variable) IsNegation() bool {
	return v&1 == 1
}

func (v Variable) String() string {
	if v.IsNegation() {
		return fmt.Sprintf("¬x%d", int(v.Negation()))
	}
	return fmt.Sprintf("x%d", int(v))
}
