package inttrail

import (
	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/trail"
)

// Enqueue is the fundamental push described in spec.md §4.1: it attempts to
// tighten lit.Var's lower bound to lit.Bound (after canonicalisation),
// recording literalReason/integerReason as the justification. It returns
// false iff a conflict was produced, in which case Conflict() returns the
// derived SAT clause.
func (it *IntegerTrail) Enqueue(lit intvar.Literal, literalReason []trail.Literal, integerReason []intvar.Literal) bool {
	return it.enqueueImpl(lit, literalReason, integerReason, nil)
}

// EnqueueLazy is the lazy-reason counterpart of Enqueue: the reason is
// reconstructed only if conflict analysis needs it.
func (it *IntegerTrail) EnqueueLazy(lit intvar.Literal, lazy LazyReasonInterface) bool {
	return it.enqueueImpl(lit, nil, nil, lazy)
}

// EnqueueLiteral is a convenience wrapper around Enqueue that builds the
// `[v >= k]` literal for the caller.
func (it *IntegerTrail) EnqueueLiteral(v intvar.Variable, k int64, literalReason []trail.Literal, integerReason []intvar.Literal) bool {
	return it.Enqueue(intvar.GE(v, k), literalReason, integerReason)
}

func (it *IntegerTrail) enqueueImpl(lit intvar.Literal, literalReason []trail.Literal, integerReason []intvar.Literal, lazy LazyReasonInterface) bool {
	it.ensureLevel()
	it.conflict = nil

	// Step 1: canonicalise.
	if lit.IsAlwaysTrue() {
		return true
	}
	if lit.IsAlwaysFalse() {
		it.conflict = append([]trail.Literal(nil), literalReason...)
		return false
	}
	canon := lit.Canonicalize(it.domains[lit.Var])
	if canon.IsAlwaysTrue() {
		return true
	}
	if canon.IsAlwaysFalse() {
		it.conflict = append([]trail.Literal(nil), literalReason...)
		return false
	}
	v, k := canon.Var, canon.Bound

	// Step 2: already satisfied.
	if k <= it.currentLB[v] {
		return true
	}

	// Step 3: crosses the upper bound -> conflict.
	if k > it.UpperBound(v) {
		ubReason := intvar.GE(v.Negation(), it.currentLB[v.Negation()])
		mergedInt := append(append([]intvar.Literal(nil), integerReason...), ubReason)
		it.conflict = it.mergeReasonIntoInternal(literalReason, mergedInt)
		return false
	}

	// Step 4: decision-loop heuristic (documented in spec.md §4.1 and
	// SPEC_FULL.md as a heuristic, not a contract; disabled by default).
	if it.decisionLoopShouldDefer(v, k) {
		it.markNotFullyPropagated()
		return true
	}

	reasonID := it.storeReason(literalReason, integerReason, lazy)

	// Step 5: reuse the strongest already-associated Boolean literal, if an
	// encoder is registered.
	if it.enc != nil {
		if assoc, bound, ok := it.enc.SearchForLiteralAtOrBefore(canon); ok {
			if it.sat.LitValue(assoc) == trail.False {
				it.conflict = it.mergeReasonIntoInternal(literalReason, integerReason)
				return false
			}
			if bound.Bound == k && it.sat.LitValue(assoc) != trail.True {
				it.sat.Enqueue(assoc, nil)
				reasonID = it.storeReason([]trail.Literal{assoc}, nil, nil)
			}
		}
	}

	it.pushEntry(v, k, reasonID)
	return true
}

func (it *IntegerTrail) pushEntry(v intvar.Variable, k int64, reason reasonID) {
	prev := it.lastOfVar[v]
	it.entries = append(it.entries, boundEntry{
		bound:          k,
		varID:          v,
		prevTrailIndex: prev,
		reason:         reason,
		level:          int32(it.sat.DecisionLevel()),
	})
	it.lastOfVar[v] = int32(len(it.entries) - 1)
	it.currentLB[v] = k
	it.markModified(v)

	if it.sat.DecisionLevel() == 0 {
		// Level-0 bound tightenings are permanent: bake them into the
		// declared domain so future canonicalisations see the narrower
		// domain, per spec.md §4.1 step 6.
		nd := it.domains[v].IntersectionWith(intvar.New(k, it.domains[v].Max()))
		it.domains[v] = nd
		it.domains[v.Negation()] = nd.Negation()
	}
}

func (it *IntegerTrail) storeReason(litReason []trail.Literal, intReason []intvar.Literal, lazy LazyReasonInterface) reasonID {
	if lazy != nil {
		return it.reasons.addLazy(lazy)
	}
	if len(litReason) == 0 && len(intReason) == 0 {
		return noReason
	}
	return it.reasons.addEager(litReason, intReason)
}

func (it *IntegerTrail) decisionLoopShouldDefer(v intvar.Variable, k int64) bool {
	if it.opts.DecisionLoopFactor == 0 && it.opts.DecisionLoopMin == 0 {
		return false
	}
	threshold := it.opts.DecisionLoopMin
	if alt := it.opts.DecisionLoopFactor * it.NumVariables(); alt > threshold {
		threshold = alt
	}
	if it.pushesAtLevelIdx != it.sat.DecisionLevel() {
		it.pushesAtLevelIdx = it.sat.DecisionLevel()
		it.pushesAtLevel = 0
	}
	it.pushesAtLevel++
	if it.pushesAtLevel <= threshold {
		return false
	}
	gap := it.UpperBound(v) - it.currentLB[v]
	return k-it.currentLB[v] <= gap/2
}

func (it *IntegerTrail) markNotFullyPropagated() {
	lvl := it.sat.DecisionLevel()
	for len(it.notFullyPropagated) <= lvl {
		it.notFullyPropagated = append(it.notFullyPropagated, false)
	}
	it.notFullyPropagated[lvl] = true
}

// IsLevelFullyPropagated reports whether level was ever flagged incomplete
// by the decision-loop heuristic or by a time-limited WATCH.Propagate call.
func (it *IntegerTrail) IsLevelFullyPropagated(level int) bool {
	if level >= len(it.notFullyPropagated) {
		return true
	}
	return !it.notFullyPropagated[level]
}

// MarkNotFullyPropagated flags the current decision level as incomplete, for
// use by WATCH when a time or iteration limit interrupts Propagate.
func (it *IntegerTrail) MarkNotFullyPropagated() {
	it.markNotFullyPropagated()
}

// SafeEnqueue is like Enqueue but first filters trivially true/false
// literals against lit.Var's *current* bounds rather than its declared
// domain, avoiding a reason allocation for no-ops.
func (it *IntegerTrail) SafeEnqueue(lit intvar.Literal, literalReason []trail.Literal, integerReason []intvar.Literal) bool {
	if lit.IsAlwaysTrue() || (!lit.IsAlwaysFalse() && lit.Bound <= it.currentLB[lit.Var]) {
		return true
	}
	return it.Enqueue(lit, literalReason, integerReason)
}

// ConditionalEnqueue only pushes lit if cond currently evaluates to true on
// the SAT trail; otherwise it is a no-op returning true.
func (it *IntegerTrail) ConditionalEnqueue(cond trail.Literal, lit intvar.Literal, literalReason []trail.Literal, integerReason []intvar.Literal) bool {
	if it.sat.LitValue(cond) != trail.True {
		return true
	}
	return it.Enqueue(lit, append(append([]trail.Literal(nil), literalReason...), cond.Opposite()), integerReason)
}

// ReportConflict builds and records a conflict clause directly from the
// given reasons, without attempting any push. It always returns false.
func (it *IntegerTrail) ReportConflict(literalReason []trail.Literal, integerReason []intvar.Literal) bool {
	it.conflict = it.mergeReasonIntoInternal(literalReason, integerReason)
	return false
}

// RelaxLinearReason takes the reason for a linear-constraint inference of
// the form `sum(coeffs[i] * lits[i].Bound for true lits[i]) <= slack` and
// relaxes each integer literal to the weakest earlier bound on the same
// variable that still keeps the sum within slack, shrinking the resulting
// learned clause. coeffs and lits must have the same length.
func (it *IntegerTrail) RelaxLinearReason(slack int64, coeffs []int64, lits []intvar.Literal) []intvar.Literal {
	relaxed := make([]intvar.Literal, len(lits))
	copy(relaxed, lits)

	// Relax the literals in order of decreasing coefficient: each unit of
	// relaxation on a larger coefficient uses up more of the slack.
	order := make([]int, len(lits))
	for i := range order {
		order[i] = i
	}
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && coeffs[order[j]] > coeffs[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	for _, i := range order {
		c := coeffs[i]
		if c <= 0 {
			continue
		}
		v := relaxed[i].Var
		room := slack / c
		if room <= 0 {
			continue
		}
		weaker := relaxed[i].Bound - room
		floorBound := it.LevelZeroLowerBound(v)
		if weaker < floorBound {
			weaker = floorBound
		}
		if weaker >= relaxed[i].Bound {
			continue
		}
		used := (relaxed[i].Bound - weaker) * c
		if used > slack {
			continue
		}
		slack -= used
		relaxed[i] = intvar.GE(v, weaker)
	}
	return relaxed
}
