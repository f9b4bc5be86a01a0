// Package optimize implements the two optimisation drivers specified in
// full: CoreBasedOptimizer (OPT-core), an unsat-core-based lower-bound
// raising loop with stratification, and LbTreeSearch (OPT-tree), a binary
// decision-tree search that exploits LP reduced costs and saved LP bases,
// per spec.md §4.5-4.6. It also carries the linear-scan fallback minimizer
// recovered from original_source/ortools/sat/optimization.cc.
package optimize

import (
	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/trail"
)

// IntegerTrail is the narrow surface both drivers need from
// inttrail.IntegerTrail: everything PROP already needs, plus Conflict (to
// read back a reported conflict's reason after a failed Propagate) and
// AddIntegerVariable (OPT-core introduces a fresh summary variable per
// core).
type IntegerTrail interface {
	LowerBound(v intvar.Variable) int64
	UpperBound(v intvar.Variable) int64
	IsFixed(v intvar.Variable) bool
	Domain(v intvar.Variable) intvar.Domain
	Enqueue(lit intvar.Literal, literalReason []trail.Literal, integerReason []intvar.Literal) bool
	ReportConflict(literalReason []trail.Literal, integerReason []intvar.Literal) bool
	Conflict() []trail.Literal
	AddIntegerVariable(d intvar.Domain) (intvar.Variable, error)
}

// SatTrail is the narrow surface needed to run a CDCL search loop: decide,
// propagate, analyze, backtrack.
type SatTrail interface {
	LitValue(l trail.Literal) trail.LBool
	DecisionLevel() int
	Len() int
	Assume(l trail.Literal) bool
	Propagate() *trail.Clause
	Analyze(confl *trail.Clause) ([]trail.Literal, int)
	AnalyzeReason(reason []trail.Literal) ([]trail.Literal, int)
	Record(clause []trail.Literal)
	CancelUntil(level int)
}

// Watcher is the narrow surface needed to run integer propagation to a
// fixed point alongside SAT unit propagation.
type Watcher interface {
	Propagate() bool
}

// Encoder is the narrow surface needed to turn an integer-literal objective
// assumption into a Boolean literal the SAT side can assume.
type Encoder interface {
	GetOrCreateAssociatedLiteral(lit intvar.Literal) trail.Literal
}

// DecisionHeuristic supplies the branching decisions both search drivers
// need when they are not otherwise constrained by assumptions or LP
// guidance. pseudocosts.PseudoCosts is the grounded default implementation.
type DecisionHeuristic interface {
	// NextDecision returns the literal to branch on next, or ok=false if
	// every relevant variable is already fixed.
	NextDecision(it IntegerTrail) (intvar.Literal, bool)
}

// conflict carries whichever form a failure took: a SAT clause (from unit
// propagation) or a flattened reason (from an integer propagator's
// ReportConflict, via IntegerTrail.Conflict). Exactly one is set when a
// conflict occurred; both are nil/empty at a genuine fixed point.
type conflict struct {
	clause *trail.Clause
	reason []trail.Literal
}

func (c conflict) isConflict() bool { return c.clause != nil || c.reason != nil }

// analyze runs first-UIP conflict analysis on whichever form c holds.
func (c conflict) analyze(sat SatTrail) ([]trail.Literal, int) {
	if c.clause != nil {
		return sat.Analyze(c.clause)
	}
	return sat.AnalyzeReason(c.reason)
}

// fixpoint alternates SAT unit propagation and integer propagation to a
// local fixed point, per the ordering guarantee in spec.md §5: the SAT
// unit propagator always runs to quiescence before any integer propagator
// resumes, and a propagator-enqueued Boolean literal hands control back to
// the SAT side immediately.
func fixpoint(sat SatTrail, it IntegerTrail, w Watcher) conflict {
	for {
		if confl := sat.Propagate(); confl != nil {
			return conflict{clause: confl}
		}

		lenBefore := sat.Len()
		if ok := w.Propagate(); !ok {
			reason := it.Conflict()
			if reason == nil {
				reason = []trail.Literal{}
			}
			return conflict{reason: reason}
		}
		if sat.Len() == lenBefore {
			// WATCH reached a genuine fixed point: no propagator produced
			// a new Boolean literal, so there is nothing left for unit
			// propagation to chase.
			return conflict{}
		}
		// Otherwise WATCH handed control back early because the trail
		// grew; loop to let unit propagation run to quiescence before
		// resuming integer propagation.
	}
}
