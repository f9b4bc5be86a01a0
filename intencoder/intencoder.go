// Package intencoder implements the IntegerEncoder (ENC): a bidirectional
// map between Boolean literals on the Trail and integer-literal predicates
// `[v >= k]` / `[v = k]`, chained together with binary implication clauses
// so that the SAT unit propagator alone keeps the chain monotone, per
// spec.md §4.2.
package intencoder

import (
	"sort"

	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/trail"
)

// IntegerTrail is the narrow surface of inttrail.IntegerTrail that the
// encoder needs: reading bounds and domains, and pushing integer literals
// that follow from a Boolean literal becoming true.
type IntegerTrail interface {
	LowerBound(v intvar.Variable) int64
	UpperBound(v intvar.Variable) int64
	Domain(v intvar.Variable) intvar.Domain
	Enqueue(lit intvar.Literal, literalReason []trail.Literal, integerReason []intvar.Literal) bool
}

// boundLit is one entry of a variable's sorted bound -> literal map.
type boundLit struct {
	bound int64
	lit   trail.Literal
}

// IntegerEncoder is Component 3 of the design.
type IntegerEncoder struct {
	sat *trail.Trail
	it  IntegerTrail

	// geLits[v] is the sorted (by bound) list of literals associated to
	// `[v >= k]` for some k, for the positive view of v.
	geLits [][]boundLit

	// eqLits[v] maps a domain value k to the literal associated with
	// `[v = k]`.
	eqLits []map[int64]trail.Literal

	// impliedBy[L] lists the integer literals implied by Boolean literal L
	// being true, supporting GetLiteralView and reason reconstruction.
	impliedBy map[trail.Literal][]intvar.Literal

	fullyEncoded []bool

	trueLit       trail.Literal
	falseLit      trail.Literal
	constantsInit bool
}

// New returns an empty IntegerEncoder layered on top of sat and it.
func New(sat *trail.Trail, it IntegerTrail) *IntegerEncoder {
	return &IntegerEncoder{
		sat:       sat,
		it:        it,
		impliedBy: map[trail.Literal][]intvar.Literal{},
	}
}

// growTo ensures the per-variable slices are large enough to index v.
func (e *IntegerEncoder) growTo(v intvar.Variable) {
	for intvar.Variable(len(e.geLits)) <= v {
		e.geLits = append(e.geLits, nil)
		e.eqLits = append(e.eqLits, nil)
		e.fullyEncoded = append(e.fullyEncoded, false)
	}
}

func (e *IntegerEncoder) canonical(v intvar.Variable) intvar.Variable {
	if v.IsNegation() {
		return v.Negation()
	}
	return v
}

// GetOrCreateAssociatedLiteral returns the Boolean literal associated to
// `[lit.Var >= lit.Bound]`, creating one (and the chaining implications to
// its immediate sorted neighbours) if absent.
func (e *IntegerEncoder) GetOrCreateAssociatedLiteral(lit intvar.Literal) trail.Literal {
	canon := lit.Canonicalize(e.it.Domain(lit.Var))
	return e.getOrCreateGE(canon)
}

func (e *IntegerEncoder) getOrCreateGE(canon intvar.Literal) trail.Literal {
	if canon.IsAlwaysTrue() {
		return e.constTrue()
	}
	if canon.IsAlwaysFalse() {
		return e.constFalse()
	}

	v, k := canon.Var, canon.Bound
	e.growTo(v)
	list := e.geLits[v]

	idx := sort.Search(len(list), func(i int) bool { return list[i].bound >= k })
	if idx < len(list) && list[idx].bound == k {
		return list[idx].lit
	}

	newVar := e.sat.AddVariable()
	l := trail.PositiveLiteral(newVar)
	e.impliedBy[l] = append(e.impliedBy[l], canon)
	e.impliedBy[l.Opposite()] = append(e.impliedBy[l.Opposite()], canon.Negation())

	// Chain: the stronger (larger-k) neighbour implies the weaker one, so
	// l implies its weaker predecessor, and its stronger successor implies l.
	if idx > 0 {
		e.sat.AddBinaryImplication(l, list[idx-1].lit)
	}
	if idx < len(list) {
		e.sat.AddBinaryImplication(list[idx].lit, l)
	}

	inserted := make([]boundLit, 0, len(list)+1)
	inserted = append(inserted, list[:idx]...)
	inserted = append(inserted, boundLit{bound: k, lit: l})
	inserted = append(inserted, list[idx:]...)
	e.geLits[v] = inserted

	return l
}

// constTrue and constFalse lazily allocate (once per encoder) the solver's
// permanent true/false literals, fixed at decision level 0.
func (e *IntegerEncoder) constTrue() trail.Literal {
	e.ensureConstants()
	return e.trueLit
}

func (e *IntegerEncoder) constFalse() trail.Literal {
	e.ensureConstants()
	return e.falseLit
}

func (e *IntegerEncoder) ensureConstants() {
	if e.constantsInit {
		return
	}
	v := e.sat.AddVariable()
	e.trueLit = trail.PositiveLiteral(v)
	e.falseLit = e.trueLit.Opposite()
	e.sat.AddClause([]trail.Literal{e.trueLit})
	e.constantsInit = true
}

// GetOrCreateLiteralAssociatedToEquality returns the literal for `[v = k]`,
// posting the three-clause encoding `eq = a and b` where a = [v >= k],
// b = [v <= k], the first time it is requested.
func (e *IntegerEncoder) GetOrCreateLiteralAssociatedToEquality(v intvar.Variable, k int64) trail.Literal {
	canon := e.canonical(v)
	e.growTo(canon)
	if e.eqLits[canon] == nil {
		e.eqLits[canon] = map[int64]trail.Literal{}
	}
	if l, ok := e.eqLits[canon][k]; ok {
		return l
	}

	d := e.it.Domain(canon)
	if !d.Contains(k) {
		return e.constFalse()
	}

	a := e.getOrCreateGE(intvar.GE(canon, k))
	b := e.getOrCreateGE(intvar.LE(canon, k))

	eqVar := e.sat.AddVariable()
	eq := trail.PositiveLiteral(eqVar)

	// eq => a, eq => b, (a and b) => eq  i.e.  (!a or !b or eq)
	e.sat.AddBinaryImplication(eq, a)
	e.sat.AddBinaryImplication(eq, b)
	e.sat.AddClause([]trail.Literal{a.Opposite(), b.Opposite(), eq})

	e.eqLits[canon][k] = eq
	e.impliedBy[eq] = append(e.impliedBy[eq], intvar.GE(canon, k), intvar.LE(canon, k))

	return eq
}

// FullyEncodeVariable eagerly creates `[v = d]` literals for every value d
// in v's current domain.
func (e *IntegerEncoder) FullyEncodeVariable(v intvar.Variable) {
	canon := e.canonical(v)
	d := e.it.Domain(canon)
	for _, iv := range d.Intervals() {
		for k := iv.Min; k <= iv.Max; k++ {
			e.GetOrCreateLiteralAssociatedToEquality(canon, k)
		}
	}
	e.growTo(canon)
	e.fullyEncoded[canon] = true
}

// VariableIsFullyEncoded reports whether every current domain value of v
// has an associated equality literal.
func (e *IntegerEncoder) VariableIsFullyEncoded(v intvar.Variable) bool {
	canon := e.canonical(v)
	if int(canon) >= len(e.fullyEncoded) {
		return false
	}
	if e.fullyEncoded[canon] {
		return true
	}
	if e.eqLits[canon] == nil {
		return false
	}
	d := e.it.Domain(canon)
	for _, iv := range d.Intervals() {
		for k := iv.Min; k <= iv.Max; k++ {
			if _, ok := e.eqLits[canon][k]; !ok {
				return false
			}
		}
	}
	e.fullyEncoded[canon] = true
	return true
}

// SearchForLiteralAtOrBefore implements inttrail.Encoder: it returns the
// strongest already-associated Boolean literal L such that L is equivalent
// to `[lit.Var >= bound]` for some bound <= lit.Bound.
func (e *IntegerEncoder) SearchForLiteralAtOrBefore(lit intvar.Literal) (trail.Literal, intvar.Literal, bool) {
	v := lit.Var
	if int(v) >= len(e.geLits) {
		return trail.NoLiteral, intvar.Literal{}, false
	}
	list := e.geLits[v]
	idx := sort.Search(len(list), func(i int) bool { return list[i].bound > lit.Bound })
	if idx == 0 {
		return trail.NoLiteral, intvar.Literal{}, false
	}
	bl := list[idx-1]
	return bl.lit, intvar.GE(v, bl.bound), true
}

// AssociateToIntegerLiteral records that l is equivalent to lit in both
// directions. If l's polarity is already fixed on the Trail, the implied
// integer bound is propagated immediately.
func (e *IntegerEncoder) AssociateToIntegerLiteral(l trail.Literal, lit intvar.Literal) {
	e.impliedBy[l] = append(e.impliedBy[l], lit)
	e.impliedBy[l.Opposite()] = append(e.impliedBy[l.Opposite()], lit.Negation())

	switch e.sat.LitValue(l) {
	case trail.True:
		e.it.Enqueue(lit, []trail.Literal{l.Opposite()}, nil)
	case trail.False:
		e.it.Enqueue(lit.Negation(), []trail.Literal{l}, nil)
	}
}

// GetLiteralView returns v such that l is exactly `[v = 1]` for a 0/1
// variable, if AssociateToIntegerLiteral or GetOrCreateLiteralAssociatedToEquality
// established such a mapping.
func (e *IntegerEncoder) GetLiteralView(l trail.Literal) (intvar.Variable, bool) {
	for _, lit := range e.impliedBy[l] {
		if lit.Bound == 1 {
			d := e.it.Domain(lit.Var)
			if d.Min() == 0 && d.Max() == 1 {
				return lit.Var, true
			}
		}
	}
	return 0, false
}
