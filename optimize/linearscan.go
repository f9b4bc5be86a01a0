package optimize

// LinearScanMinimize repeatedly solves the full problem under no
// assumptions and tightens the objective's upper bound to one less than
// each solution found, until a further solve proves infeasible (meaning
// the last solution found was optimal) or the search gives up unknown.
// This is the fallback CoreBasedOptimizer.Solve switches to once few
// enough objective terms remain for core extraction to stop paying for
// itself, matching original_source/ortools/sat/optimization.cc's
// MinimizeWithCoreAndLazyEncoding, which falls back to exactly this loop
// in the analogous regime.
func LinearScanMinimize(sat SatTrail, it IntegerTrail, w Watcher, enc Encoder, decide DecisionHeuristic, obj *Objective, opts SearchOptions) SearchStatus {
	foundSolution := false

	for {
		res := solveUnderAssumptionsWithObjective(sat, it, w, enc, nil, decide, obj, opts)
		switch res.Status {
		case StatusUnknown:
			if foundSolution {
				return StatusFeasible
			}
			return StatusUnknown
		case StatusInfeasible:
			if foundSolution {
				return StatusFeasible
			}
			return StatusInfeasible
		case StatusFeasible:
			foundSolution = true
			value := obj.Value(it)
			obj.SetUpperBound(value - 1)
			// Hardening each term's own upper bound here (rather than
			// posting a fresh Σ weight*var <= ub linear constraint) is
			// enough to keep the next solveUnderAssumptions call from
			// repeating a solution at least this bad, since
			// PropagateObjectiveBounds tightens every term directly at
			// the IntegerTrail level.
			if _, ok := obj.PropagateObjectiveBounds(it); !ok {
				return StatusFeasible
			}
		}
	}
}
