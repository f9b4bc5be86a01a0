package intvar

import "fmt"

// constVar is the reserved variable id used by the AlwaysTrue/AlwaysFalse
// sentinel literals. It is never allocated by a real model.
const constVar Variable = -1

// Literal is the atom `[Var >= Bound]`.
type Literal struct {
	Var   Variable
	Bound int64
}

// AlwaysTrue and AlwaysFalse are sentinel literals recognised and
// short-circuited by every API in this package and in inttrail/intencoder,
// per spec.md §3.
var (
	AlwaysTrue  = Literal{Var: constVar, Bound: 0}
	AlwaysFalse = Literal{Var: constVar, Bound: 1}
)

// IsAlwaysTrue reports whether l is the AlwaysTrue sentinel.
func (l Literal) IsAlwaysTrue() bool { return l == AlwaysTrue }

// IsAlwaysFalse reports whether l is the AlwaysFalse sentinel.
func (l Literal) IsAlwaysFalse() bool { return l == AlwaysFalse }

// GE returns the literal `[v >= k]`.
func GE(v Variable, k int64) Literal {
	return Literal{Var: v, Bound: k}
}

// LE returns the literal `[v <= k]`, expressed as `[¬v >= -k]`.
func LE(v Variable, k int64) Literal {
	return Literal{Var: v.Negation(), Bound: -k}
}

// Negation returns the negation of l: `[v >= k]` negates to `[v <= k-1]`
// which is `[¬v >= -k+1]`.
func (l Literal) Negation() Literal {
	if l.IsAlwaysTrue() {
		return AlwaysFalse
	}
	if l.IsAlwaysFalse() {
		return AlwaysTrue
	}
	return Literal{Var: l.Var.Negation(), Bound: -l.Bound + 1}
}

// Canonicalize rounds the literal's bound up to the nearest in-domain value
// of l.Var according to d (the domain of l.Var), and collapses to the
// AlwaysTrue/AlwaysFalse sentinels when the bound falls outside the domain.
// Canonicalize is idempotent: Canonicalize(Canonicalize(l, d), d) == Canonicalize(l, d).
func (l Literal) Canonicalize(d Domain) Literal {
	if l.IsAlwaysTrue() || l.IsAlwaysFalse() {
		return l
	}
	if d.IsEmpty() {
		return AlwaysFalse
	}
	if l.Bound <= d.Min() {
		return AlwaysTrue
	}
	if l.Bound > d.Max() {
		return AlwaysFalse
	}
	snapped, ok := d.ValueAtOrAfter(l.Bound)
	if !ok {
		return AlwaysFalse
	}
	return Literal{Var: l.Var, Bound: snapped}
}

func (l Literal) String() string {
	if l.IsAlwaysTrue() {
		return "true"
	}
	if l.IsAlwaysFalse() {
		return "false"
	}
	return fmt.Sprintf("[%s >= %d]", l.Var, l.Bound)
}
