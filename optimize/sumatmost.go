package optimize

import (
	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/watch"
)

// sumAtMost enforces Σ (vars[i] - offsets[i]) <= target using the same
// bounds-consistency style as prop.AllDifferentOnBounds: target's lower
// bound is pushed up to the sum of the terms' current lower bounds, and
// each term's upper bound is tightened given target's upper bound and
// every other term's current lower bound. learnCore posts one of these per
// core it introduces a summary variable for, with offsets fixed at the
// terms' lower bounds at the moment the core was found (so the sum is over
// each term's excess above where it stood then, matching the 0/1-literal
// "at most k of these may be true" constraint OLL posts when every term is
// a Boolean with offset 0).
type sumAtMost struct {
	it      IntegerTrail
	vars    []intvar.Variable
	offsets []int64
	target  intvar.Variable
}

func newSumAtMost(it IntegerTrail, vars []intvar.Variable, offsets []int64, target intvar.Variable) *sumAtMost {
	return &sumAtMost{
		it:      it,
		vars:    append([]intvar.Variable(nil), vars...),
		offsets: append([]int64(nil), offsets...),
		target:  target,
	}
}

func (s *sumAtMost) RegisterWith(w *watch.Watcher) {
	id := w.Register(s)
	for _, v := range s.vars {
		w.WatchLowerBound(v, id, -1)
		w.WatchUpperBound(v, id, -1)
	}
	w.WatchUpperBound(s.target, id, -1)
}

func (s *sumAtMost) IncrementalPropagate(_ []int) bool { return s.Propagate() }

func (s *sumAtMost) Propagate() bool {
	sumLB := int64(0)
	for i, v := range s.vars {
		sumLB += s.it.LowerBound(v) - s.offsets[i]
	}
	if sumLB > s.it.LowerBound(s.target) {
		if !s.it.Enqueue(intvar.GE(s.target, sumLB), nil, s.sumReason(-1)) {
			return false
		}
	}

	ubTarget := s.it.UpperBound(s.target)
	for i, v := range s.vars {
		othersLB := int64(0)
		for j := range s.vars {
			if j == i {
				continue
			}
			othersLB += s.it.LowerBound(s.vars[j]) - s.offsets[j]
		}
		slack := ubTarget - othersLB + s.offsets[i]
		if slack < s.it.UpperBound(v) {
			if !s.it.Enqueue(intvar.LE(v, slack), nil, s.sumReason(i)) {
				return false
			}
		}
	}
	return true
}

// sumReason explains a bound raise: every other term's current lower
// bound, plus (for a term upper-bound tightening) target's current upper
// bound.
func (s *sumAtMost) sumReason(exclude int) []intvar.Literal {
	reason := make([]intvar.Literal, 0, len(s.vars)+1)
	for i, v := range s.vars {
		if i == exclude {
			continue
		}
		reason = append(reason, intvar.GE(v, s.it.LowerBound(v)))
	}
	if exclude != -1 {
		reason = append(reason, intvar.LE(s.target, s.it.UpperBound(s.target)))
	}
	return reason
}
