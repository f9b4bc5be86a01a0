package inttrail

import (
	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/trail"
)

// reasonID indexes into the trail's reason pools. -1 means "no reason"
// (decision-level-0 fact); any value <= noReason-1 marks a lazy reason,
// per spec.md §3's "sentinel negative reason_index marks lazy entries".
type reasonID int32

const noReason reasonID = -1

func isLazy(id reasonID) bool   { return id <= noReason-1 }
func lazyIndex(id reasonID) int { return int(noReason - 1 - id) }
func lazyID(idx int) reasonID   { return noReason - 1 - reasonID(idx) }

// LazyReasonInterface lets a propagator defer building a bound's
// explanation until conflict analysis actually needs it, per spec.md §3's
// "Reason" data model.
type LazyReasonInterface interface {
	// Explain returns the literal and integer-literal reasons that imply
	// lit, as it stood when it was pushed at trailIndex.
	Explain(lit intvar.Literal, trailIndex int) (litReason []trail.Literal, intReason []intvar.Literal)
}

// eagerReason is a CSR-style span into the shared literal/integer-literal
// pools, mirroring spec.md §3's "two parallel byte arrays ... plus per-reason
// start offsets".
type eagerReason struct {
	litStart, litEnd int32
	intStart, intEnd int32
}

// reasonPool stores every eager reason ever pushed, plus the registered lazy
// reason callbacks.
type reasonPool struct {
	lits  []trail.Literal
	ints  []intvar.Literal
	spans []eagerReason
	lazy  []LazyReasonInterface
}

// addEager stores a new eager reason and returns its id.
func (p *reasonPool) addEager(litReason []trail.Literal, intReason []intvar.Literal) reasonID {
	sp := eagerReason{
		litStart: int32(len(p.lits)),
		intStart: int32(len(p.ints)),
	}
	p.lits = append(p.lits, litReason...)
	p.ints = append(p.ints, intReason...)
	sp.litEnd = int32(len(p.lits))
	sp.intEnd = int32(len(p.ints))
	p.spans = append(p.spans, sp)
	return reasonID(len(p.spans) - 1)
}

// addLazy registers a lazy reason and returns its id.
func (p *reasonPool) addLazy(l LazyReasonInterface) reasonID {
	p.lazy = append(p.lazy, l)
	return lazyID(len(p.lazy) - 1)
}

func (p *reasonPool) eagerLits(id reasonID) []trail.Literal {
	sp := p.spans[id]
	return p.lits[sp.litStart:sp.litEnd]
}

func (p *reasonPool) eagerInts(id reasonID) []intvar.Literal {
	sp := p.spans[id]
	return p.ints[sp.intStart:sp.intEnd]
}
