package optimize

import (
	"sort"

	"github.com/rhartert/yasscp/intvar"
)

// ObjectiveTerm is one weighted term of the linear objective being
// minimised, per spec.md §4.5: `depth` starts at 0 and increases every time
// learnCore introduces a fresh summary variable that replaces a core.
type ObjectiveTerm struct {
	Var     intvar.Variable
	Weight  int64
	Depth   int
	CoverUB int64
}

// Objective holds the state CoreBasedOptimizer's outer loop and
// LinearScanMinimize both mutate: the term list, a constant offset (folded
// in by the at-most-one presolve), and the best proven lower/upper bounds.
type Objective struct {
	Terms  []ObjectiveTerm
	Offset int64

	LB int64

	UB    int64
	HasUB bool
}

// AddTerm appends a fresh depth-0 term to the objective.
func (o *Objective) AddTerm(v intvar.Variable, weight int64) {
	o.Terms = append(o.Terms, ObjectiveTerm{Var: v, Weight: weight})
}

// SetUpperBound records ub as the objective's incumbent upper bound if it
// improves on (or is the first) known bound.
func (o *Objective) SetUpperBound(ub int64) {
	if !o.HasUB || ub < o.UB {
		o.UB = ub
		o.HasUB = true
	}
}

func (o *Objective) maxDepth() int {
	d := 0
	for _, t := range o.Terms {
		if t.Depth > d {
			d = t.Depth
		}
	}
	return d
}

// Value returns the objective's value at the current (necessarily fixed,
// for a solution) bounds.
func (o *Objective) Value(it IntegerTrail) int64 {
	v := o.Offset
	for _, t := range o.Terms {
		v += t.Weight * it.LowerBound(t.Var)
	}
	return v
}

// PropagateObjectiveBounds implements spec.md §4.5 step 1: assuming every
// term at its current lower bound gives an implied objective lower bound;
// once an upper bound is known, the gap between the two bounds lets every
// term's own upper bound be hardened (`var <= lb + gap/weight`), repeated
// to a fixed point. It returns whether anything changed, and false (as the
// second, "ok", value) iff hardening produced a conflict.
func (o *Objective) PropagateObjectiveBounds(it IntegerTrail) (changed bool, ok bool) {
	for {
		implied := o.Offset
		for _, t := range o.Terms {
			implied += t.Weight * it.LowerBound(t.Var)
		}
		if implied > o.LB {
			o.LB = implied
			changed = true
		}

		if !o.HasUB {
			return changed, true
		}
		gap := o.UB - o.LB
		if gap < 0 {
			return changed, false
		}

		fixedPoint := true
		for i, t := range o.Terms {
			if t.Weight <= 0 {
				continue
			}
			lb := it.LowerBound(t.Var)
			newUB := lb + gap/t.Weight
			if newUB < it.UpperBound(t.Var) {
				if !it.Enqueue(intvar.LE(t.Var, newUB), nil, o.hardeningReason(it, i)) {
					return changed, false
				}
				fixedPoint = false
				changed = true
			}
		}
		if fixedPoint {
			return changed, true
		}
	}
}

// hardeningReason explains why term i's upper bound can be tightened: every
// other term sitting at its current lower bound, which is what makes the
// gap this tight.
func (o *Objective) hardeningReason(it IntegerTrail, exclude int) []intvar.Literal {
	reason := make([]intvar.Literal, 0, len(o.Terms))
	for i, t := range o.Terms {
		if i == exclude {
			continue
		}
		reason = append(reason, intvar.GE(t.Var, it.LowerBound(t.Var)))
	}
	return reason
}

// PresolveAtMostOne implements spec.md §4.5's at-most-one objective
// presolve for one maximal group of term indices already known (typically
// by the modelling layer, from the binary-implication graph, which is out
// of this package's scope) to be in a pairwise at-most-one relation: at
// least len(groupIdx)-1 of them are true in every feasible assignment, so
// the sum of all but the heaviest weight can be folded into the objective
// offset. The group is then represented by its heaviest term alone, kept on
// that term's own variable and weight; no fresh variable is created.
func (o *Objective) PresolveAtMostOne(groupIdx []int) {
	if len(groupIdx) < 2 {
		return
	}
	idx := append([]int(nil), groupIdx...)
	sort.Slice(idx, func(i, j int) bool { return o.Terms[idx[i]].Weight < o.Terms[idx[j]].Weight })

	var sumLowWeights int64
	for _, i := range idx[:len(idx)-1] {
		sumLowWeights += o.Terms[i].Weight
	}
	heaviest := idx[len(idx)-1]
	o.Offset += sumLowWeights

	drop := make(map[int]bool, len(idx)-1)
	for _, i := range idx[:len(idx)-1] {
		drop[i] = true
	}
	kept := make([]ObjectiveTerm, 0, len(o.Terms)-len(drop))
	for i, t := range o.Terms {
		if drop[i] {
			continue
		}
		if i == heaviest {
			t = ObjectiveTerm{Var: t.Var, Weight: o.Terms[heaviest].Weight, Depth: t.Depth}
		}
		kept = append(kept, t)
	}
	o.Terms = kept
}
