package inttrail

import (
	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/trail"
)

// mergeReasonIntoInternal expands a (literalReason, integerReason) pair into
// a flat slice of SAT literals suitable for use as a conflict clause: each
// integer-literal reason [v >= k] is itself explained recursively (its own
// reason, whether eager or lazy) until every dependency bottoms out at
// either a decision-level-0 fact or an already-associated Boolean literal.
//
// The scratch heap/addedLit/maxQueuedLB fields exist so that repeated
// integer-literal reasons on the same variable collapse to the single
// strongest one actually needed: the heap is a max-heap over the requested
// bound (negated priority, the same trick used to turn yagh's min-heap into
// a max-heap elsewhere in this module), and it is always fully drained by
// the end of the call, so no explicit reset between calls is needed.
func (it *IntegerTrail) mergeReasonIntoInternal(literalReason []trail.Literal, integerReason []intvar.Literal) []trail.Literal {
	it.scratchOut = it.scratchOut[:0]
	for k := range it.addedLit {
		delete(it.addedLit, k)
	}
	for k := range it.maxQueuedLB {
		delete(it.maxQueuedLB, k)
	}

	for _, l := range literalReason {
		it.appendLit(l.Opposite())
	}
	for _, il := range integerReason {
		it.queueIntLiteral(il)
	}

	for {
		e, ok := it.heap.Pop()
		if !ok {
			break
		}
		v := intvar.Variable(e.Elem)
		k, queued := it.maxQueuedLB[v]
		delete(it.maxQueuedLB, v)
		if !queued {
			continue
		}
		it.expandBoundReason(v, k)
	}

	out := make([]trail.Literal, len(it.scratchOut))
	copy(out, it.scratchOut)
	return out
}

func (it *IntegerTrail) appendLit(l trail.Literal) {
	if it.addedLit[l] {
		return
	}
	it.addedLit[l] = true
	it.scratchOut = append(it.scratchOut, l)
}

// queueIntLiteral records that v must be explained as being >= k, keeping
// only the strongest (largest) k requested for v.
func (it *IntegerTrail) queueIntLiteral(lit intvar.Literal) {
	if lit.IsAlwaysTrue() {
		return
	}
	v, k := lit.Var, lit.Bound
	if prev, ok := it.maxQueuedLB[v]; ok && k <= prev {
		return
	}
	it.maxQueuedLB[v] = k
	it.heap.Put(int(v), -k)
}

// expandBoundReason finds the earliest trail entry for v that already
// satisfies >= k and explains it, recursing into its own reason.
func (it *IntegerTrail) expandBoundReason(v intvar.Variable, k int64) {
	idx := it.lastOfVar[v]
	var found int32 = -1
	for idx >= 0 {
		e := it.entries[idx]
		if e.bound >= k {
			found = idx
			idx = e.prevTrailIndex
			continue
		}
		break
	}
	if found < 0 {
		// Bound held since the variable's declared domain: no reason needed.
		return
	}
	e := it.entries[found]

	if e.reason == noReason {
		return
	}
	if isLazy(e.reason) {
		lazy := it.reasons.lazy[lazyIndex(e.reason)]
		litR, intR := lazy.Explain(intvar.GE(v, e.bound), int(found))
		for _, l := range litR {
			it.appendLit(l.Opposite())
		}
		for _, il := range intR {
			it.queueIntLiteral(il)
		}
		return
	}
	for _, l := range it.reasons.eagerLits(e.reason) {
		it.appendLit(l.Opposite())
	}
	for _, il := range it.reasons.eagerInts(e.reason) {
		it.queueIntLiteral(il)
	}
}

// ReasonFor returns the flattened SAT-literal explanation for why lit
// currently holds, recursing through reasons the same way
// mergeReasonIntoInternal does for conflicts. It is exported for use by
// propagators and by WATCH's lazy-explanation callback when a learnt clause
// references an integer-derived literal directly.
func (it *IntegerTrail) ReasonFor(lit intvar.Literal) []trail.Literal {
	return it.mergeReasonIntoInternal(nil, []intvar.Literal{lit})
}
