package prop

import (
	"sort"

	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/watch"
)

// AllDifferentOnBounds enforces bound consistency (not full arc consistency)
// over a set of variables: it tightens each variable's [min, max] so that no
// Hall interval is violated, using the classic union-find "next free slot"
// technique, run forward for lower bounds and mirrored for upper bounds.
type AllDifferentOnBounds struct {
	it  IntegerTrail
	sat SatTrail

	vars []intvar.Variable

	order []int // scratch: variable indices sorted by bound
	dsu   []int // scratch: union-find parent array over compressed slots
}

// NewAllDifferentOnBounds builds a bound-consistency all-different
// propagator over vars.
func NewAllDifferentOnBounds(it IntegerTrail, sat SatTrail, vars []intvar.Variable) *AllDifferentOnBounds {
	return &AllDifferentOnBounds{
		it:    it,
		sat:   sat,
		vars:  append([]intvar.Variable(nil), vars...),
		order: make([]int, len(vars)),
	}
}

func (b *AllDifferentOnBounds) RegisterWith(w *watch.Watcher) {
	id := w.Register(b)
	for _, v := range b.vars {
		w.WatchLowerBound(v, id, -1)
		w.WatchUpperBound(v, id, -1)
	}
}

func (b *AllDifferentOnBounds) IncrementalPropagate(_ []int) bool { return b.Propagate() }

func (b *AllDifferentOnBounds) find(slot int) int {
	for b.dsu[slot] != slot {
		b.dsu[slot] = b.dsu[b.dsu[slot]]
		slot = b.dsu[slot]
	}
	return slot
}

func (b *AllDifferentOnBounds) union(slot int) {
	b.dsu[slot] = slot + 1
}

func (b *AllDifferentOnBounds) Propagate() bool {
	n := len(b.vars)
	if n <= 1 {
		return true
	}

	if !b.sweep(false) {
		return false
	}
	if !b.sweep(true) {
		return false
	}
	return true
}

// sweep runs one direction of the bound-consistency filter. descending=false
// tightens lower bounds (earliest-deadline-first over max); descending=true
// tightens upper bounds (the mirrored pass), implemented by negating every
// bound so the same earliest-deadline-first logic applies.
func (b *AllDifferentOnBounds) sweep(descending bool) bool {
	n := len(b.vars)
	lo := make([]int64, n)
	hi := make([]int64, n)
	for i, v := range b.vars {
		if descending {
			lo[i] = -b.it.UpperBound(v)
			hi[i] = -b.it.LowerBound(v)
		} else {
			lo[i] = b.it.LowerBound(v)
			hi[i] = b.it.UpperBound(v)
		}
	}

	// Process in order of increasing deadline (max): the classic
	// earliest-deadline-first greedy, which is exact for this feasibility
	// check regardless of how ties on equal deadlines are broken.
	for i := range b.order {
		b.order[i] = i
	}
	sort.Slice(b.order, func(x, y int) bool { return hi[b.order[x]] < hi[b.order[y]] })

	// Critical values: every lo[i] and every hi[i]+1, compressed to dense
	// slot indices, plus one sentinel slot past the end to detect overflow.
	critical := make([]int64, 0, 2*n)
	for i := 0; i < n; i++ {
		critical = append(critical, lo[i], hi[i]+1)
	}
	sort.Slice(critical, func(x, y int) bool { return critical[x] < critical[y] })
	uniq := critical[:0]
	for _, c := range critical {
		if len(uniq) == 0 || uniq[len(uniq)-1] != c {
			uniq = append(uniq, c)
		}
	}
	slotOf := func(value int64) int {
		return sort.Search(len(uniq), func(i int) bool { return uniq[i] >= value })
	}

	b.dsu = make([]int, len(uniq)+1)
	for i := range b.dsu {
		b.dsu[i] = i
	}

	assigned := make([]int64, n)
	for _, i := range b.order {
		startSlot := slotOf(lo[i])
		slot := b.find(startSlot)
		if slot >= len(uniq) {
			return b.reportBoundsConflict(descending, lo, hi, i)
		}
		value := uniq[slot]
		if value > hi[i] {
			return b.reportBoundsConflict(descending, lo, hi, i)
		}
		assigned[i] = value
		b.union(slot)
	}

	for i, v := range b.vars {
		if assigned[i] <= lo[i] {
			continue
		}
		newBound := assigned[i]
		reason := b.hallReason(descending, lo, hi, i, newBound)
		var lit intvar.Literal
		if descending {
			lit = intvar.LE(v, -newBound)
		} else {
			lit = intvar.GE(v, newBound)
		}
		if !b.it.Enqueue(lit, nil, reason) {
			return false
		}
	}
	return true
}

// hallReason collects the bound literals of every variable whose domain is
// contained in the Hall interval that forced i's new bound, a sufficient
// (if not minimal) explanation.
func (b *AllDifferentOnBounds) hallReason(descending bool, lo, hi []int64, i int, newBound int64) []intvar.Literal {
	var reason []intvar.Literal
	for j, v := range b.vars {
		if j == i {
			continue
		}
		if lo[j] >= lo[i] && hi[j] < newBound {
			if descending {
				reason = append(reason, intvar.GE(v, -hi[j]), intvar.LE(v, -lo[j]))
			} else {
				reason = append(reason, intvar.GE(v, lo[j]), intvar.LE(v, hi[j]))
			}
		}
	}
	return reason
}

func (b *AllDifferentOnBounds) reportBoundsConflict(descending bool, lo, hi []int64, i int) bool {
	var reason []intvar.Literal
	for j, v := range b.vars {
		if lo[j] >= lo[i] {
			if descending {
				reason = append(reason, intvar.GE(v, -hi[j]), intvar.LE(v, -lo[j]))
			} else {
				reason = append(reason, intvar.GE(v, lo[j]), intvar.LE(v, hi[j]))
			}
		}
	}
	return b.it.ReportConflict(nil, reason)
}
