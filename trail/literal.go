// Package trail implements the process-wide stack of assigned Boolean
// literals that every other layer of the core is built on: decision levels,
// per-assignment reasons, and the two-watched-literal clause database that
// keeps the SAT side propagating to quiescence.
package trail

import "fmt"

// Literal represents a Boolean literal, i.e. a variable or its negation.
// Literals are dense: for a variable with id v, PositiveLiteral(v) and
// NegativeLiteral(v) are adjacent integers differing only in their low bit.
type Literal int32

// PositiveLiteral returns the positive literal of variable v.
func PositiveLiteral(v int) Literal {
	return Literal(v * 2)
}

// NegativeLiteral returns the negative literal of variable v.
func NegativeLiteral(v int) Literal {
	return Literal(v*2 + 1)
}

// VarID returns the id of the literal's variable.
func (l Literal) VarID() int {
	return int(l) / 2
}

// IsPositive returns true iff l is the positive literal of its variable.
func (l Literal) IsPositive() bool {
	return l&1 == 0
}

// Opposite returns the negation of l.
func (l Literal) Opposite() Literal {
	return l ^ 1
}

func (l Literal) String() string {
	if l.IsPositive() {
		return fmt.Sprintf("%d", l.VarID())
	}
	return fmt.Sprintf("!%d", l.VarID())
}

// NoLiteral is a sentinel used where a Literal field means "no literal",
// e.g. the conflict pseudo-literal passed to Explain during analysis.
const NoLiteral Literal = -1
