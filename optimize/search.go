package optimize

import "github.com/rhartert/yasscp/trail"

// SearchStatus is the outcome of a bounded search under assumptions.
type SearchStatus int

const (
	StatusUnknown SearchStatus = iota
	StatusFeasible
	StatusInfeasible
)

// SearchResult is what FindCores gets back from one bounded search.
type SearchResult struct {
	Status SearchStatus
	// Core holds the subset of the original assumptions that were jointly
	// inconsistent, populated only when Status == StatusInfeasible.
	Core []trail.Literal
}

// SearchOptions bounds one call to solveUnderAssumptions.
type SearchOptions struct {
	// MaxConflicts caps how many conflicts the post-assumption decision
	// loop may absorb before giving up with StatusUnknown. Zero means
	// unbounded (decide until a full solution or a root-level conflict).
	MaxConflicts int64
}

// ObjectiveAwareDecisionHeuristic is an optional extension of
// DecisionHeuristic for heuristics (pseudocosts.PseudoCosts) that want to
// observe the objective's lower bound immediately before and after each
// decision they make, typically to maintain running cost averages.
// solveUnderAssumptions calls these around every post-assumption decision
// when both decide implements this interface and obj is non-nil.
type ObjectiveAwareDecisionHeuristic interface {
	DecisionHeuristic
	BeforeDecision(objLB int64)
	AfterDecision(objLB int64)
}

// solveUnderAssumptions is the search engine spec.md §4.5's FindCores and
// the linear-scan fallback both drive: push every assumption as its own
// decision level, propagate between each, and if all are accepted without
// conflict, keep branching with decide until a full solution is found, the
// conflict budget runs out, or a root-level conflict proves the whole
// problem (not just the assumptions) unsatisfiable.
//
// Core extraction here is deliberately conservative rather than minimal: on
// a conflict while assumptions are still being pushed, the reported core is
// every assumption pushed so far (including the one that triggered the
// conflict), not the possibly-smaller subset MiniSat's analyzeFinal would
// isolate by walking the conflict graph for assumption-literals
// specifically. spec.md §4.5 only requires "jointly inconsistent", and
// OPT-core's outer loop is already sound against an over-large core (it
// just introduces a summary variable covering a few more terms than
// strictly necessary); see DESIGN.md.
func solveUnderAssumptions(sat SatTrail, it IntegerTrail, w Watcher, enc Encoder, assumptions []trail.Literal, decide DecisionHeuristic, opts SearchOptions) SearchResult {
	return solveUnderAssumptionsWithObjective(sat, it, w, enc, assumptions, decide, nil, opts)
}

// solveUnderAssumptionsWithObjective is solveUnderAssumptions with an
// optional Objective threaded through so an ObjectiveAwareDecisionHeuristic
// can be driven with BeforeDecision/AfterDecision around every
// post-assumption decision.
func solveUnderAssumptionsWithObjective(sat SatTrail, it IntegerTrail, w Watcher, enc Encoder, assumptions []trail.Literal, decide DecisionHeuristic, obj *Objective, opts SearchOptions) SearchResult {
	aware, _ := decide.(ObjectiveAwareDecisionHeuristic)
	base := sat.DecisionLevel()

	pushed := 0
	for pushed < len(assumptions) {
		a := assumptions[pushed]
		if sat.LitValue(a) == trail.False {
			sat.CancelUntil(base)
			return SearchResult{
				Status: StatusInfeasible,
				Core:   append([]trail.Literal(nil), assumptions[:pushed+1]...),
			}
		}
		if sat.LitValue(a) != trail.True {
			sat.Assume(a)
		}
		pushed++

		if c := fixpoint(sat, it, w); c.isConflict() {
			learnt, backtrackLevel := c.analyze(sat)
			if backtrackLevel < base {
				backtrackLevel = base
			}
			sat.CancelUntil(backtrackLevel)
			sat.Record(learnt)
			sat.CancelUntil(base)
			return SearchResult{
				Status: StatusInfeasible,
				Core:   append([]trail.Literal(nil), assumptions[:pushed]...),
			}
		}
	}

	var conflicts int64
	for {
		if opts.MaxConflicts > 0 && conflicts >= opts.MaxConflicts {
			sat.CancelUntil(base)
			return SearchResult{Status: StatusUnknown}
		}

		lit, ok := decide.NextDecision(it)
		if !ok {
			return SearchResult{Status: StatusFeasible}
		}
		if aware != nil && obj != nil {
			aware.BeforeDecision(obj.LB)
		}
		sat.Assume(enc.GetOrCreateAssociatedLiteral(lit))

		c := fixpoint(sat, it, w)
		if aware != nil && obj != nil {
			obj.PropagateObjectiveBounds(it)
			aware.AfterDecision(obj.LB)
		}
		if !c.isConflict() {
			continue
		}
		conflicts++

		if sat.DecisionLevel() <= base {
			sat.CancelUntil(base)
			return SearchResult{
				Status: StatusInfeasible,
				Core:   append([]trail.Literal(nil), assumptions...),
			}
		}

		learnt, backtrackLevel := c.analyze(sat)
		if backtrackLevel < base {
			backtrackLevel = base
		}
		sat.CancelUntil(backtrackLevel)
		sat.Record(learnt)
	}
}
