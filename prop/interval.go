// Package prop implements the constraint propagators specified in full:
// AllDifferentAC, AllDifferentOnBounds, Disjunctive, and
// HorizontallyElasticOverloadChecker, each registered with a watch.Watcher
// and reasoning in terms of an inttrail.IntegerTrail, per spec.md §4.4.
package prop

import (
	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/trail"
)

// IntegerTrail is the narrow surface every propagator in this package needs
// from inttrail.IntegerTrail.
type IntegerTrail interface {
	LowerBound(v intvar.Variable) int64
	UpperBound(v intvar.Variable) int64
	IsFixed(v intvar.Variable) bool
	Domain(v intvar.Variable) intvar.Domain
	Enqueue(lit intvar.Literal, literalReason []trail.Literal, integerReason []intvar.Literal) bool
	ReportConflict(literalReason []trail.Literal, integerReason []intvar.Literal) bool

	// ReasonFor flattens an already-established integer-bound fact down to
	// the Boolean literals that justify it, the same way a conflict's
	// integerReason is expanded internally. Propagators use it when a
	// conclusion has to be pushed through a Boolean literal rather than
	// through Enqueue, so the bound reasoning behind it is not lost.
	ReasonFor(lit intvar.Literal) []trail.Literal
}

// SatTrail is the narrow surface needed to read a presence literal's value
// and to force a Boolean decision literal with a clause-level reason.
type SatTrail interface {
	LitValue(l trail.Literal) trail.LBool
	EnqueuePropagated(l trail.Literal, trueReasons []trail.Literal) bool
}

// Interval is an interval variable: present iff Presence (trail.NoLiteral
// means "always present") is true on the Trail. End is exclusive of
// duration accounting: a present interval occupies [Start, End).
type Interval struct {
	Start    intvar.Variable
	End      intvar.Variable
	Presence trail.Literal
}

// IsPresent reports whether iv is known to be present on sat.
func (iv Interval) IsPresent(sat SatTrail) bool {
	return iv.Presence == trail.NoLiteral || sat.LitValue(iv.Presence) == trail.True
}

// IsAbsent reports whether iv is known to be absent on sat.
func (iv Interval) IsAbsent(sat SatTrail) bool {
	return iv.Presence != trail.NoLiteral && sat.LitValue(iv.Presence) == trail.False
}

func minStart(it IntegerTrail, iv Interval) int64 { return it.LowerBound(iv.Start) }
func maxStart(it IntegerTrail, iv Interval) int64 { return it.UpperBound(iv.Start) }
func minEnd(it IntegerTrail, iv Interval) int64   { return it.LowerBound(iv.End) }
func maxEnd(it IntegerTrail, iv Interval) int64   { return it.UpperBound(iv.End) }
