// Package inttrail implements the IntegerTrail (INT): a monotone
// lower-bound trail for integer variables with hole-aware domains and
// explanation reconstruction, per spec.md §4.1.
package inttrail

import (
	"fmt"

	"github.com/rhartert/yagh"
	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/trail"
)

// Encoder is the narrow callback surface IntegerTrail needs from an
// IntegerEncoder to implement Enqueue's step 5 (reuse the strongest already
// associated Boolean literal). IntegerEncoder implements this; the two
// packages are wired together with SetEncoder rather than inttrail
// importing intencoder, keeping the dependency pointing the direction the
// component table (spec.md §2) says it should: ENC depends on INT, not the
// other way around.
type Encoder interface {
	// SearchForLiteralAtOrBefore returns the strongest known Boolean literal
	// L such that L is equivalent to `[lit.Var >= bound]` for some
	// bound <= lit.Bound, if one has been associated.
	SearchForLiteralAtOrBefore(lit intvar.Literal) (l trail.Literal, bound intvar.Literal, ok bool)
}

// boundEntry is the five-field trail entry from spec.md §3: "(bound, var,
// prev_trail_index, reason_index)" plus the decision level it was pushed
// at (needed for Untrail and for ReasonFor's trail-index bookkeeping).
type boundEntry struct {
	bound          int64
	varID          intvar.Variable
	prevTrailIndex int32 // index of the previous entry for the same variable, or -1
	reason         reasonID
	level          int32
}

// Options configures the decision-loop heuristic from spec.md §4.1 step 4.
type Options struct {
	// DecisionLoopFactor and DecisionLoopMin together define the
	// "max(10_000, factor * num_vars)" pushes-per-level threshold beyond
	// which IntegerTrail starts flagging levels as not fully propagated
	// instead of continuing to push deep into the remaining gap. This is
	// documented in spec.md as a heuristic, not a contract: a zero value
	// disables the heuristic (never defers), which is the default.
	DecisionLoopFactor int
	DecisionLoopMin    int
}

var DefaultOptions = Options{}

// IntegerTrail is Component 2 of the design.
type IntegerTrail struct {
	sat *trail.Trail
	enc Encoder

	opts Options

	// domains[v] is the declared (hole-aware) domain of variable v, mutated
	// only by AddIntegerVariable and level-0 UpdateInitialDomain calls.
	domains []intvar.Domain

	// currentLB[v] is the dense, O(1)-readable current lower bound of v.
	currentLB []int64

	entries    []boundEntry
	lastOfVar  []int32 // lastOfVar[v] = index of v's most recent trail entry, or -1
	levelStart []int   // levelStart[d] = len(entries) when decision level d was entered

	reasons reasonPool

	conflict []trail.Literal

	modified      []bool
	modifiedOrder []intvar.Variable

	notFullyPropagated []bool

	pushesAtLevel    int
	pushesAtLevelIdx int

	// scratch state for ReasonFor / MergeReasonIntoInternal.
	heap        *yagh.IntMap[int64]
	addedLit    map[trail.Literal]bool
	maxQueuedLB map[intvar.Variable]int64
	scratchOut  []trail.Literal
}

// New returns an empty IntegerTrail layered on top of sat.
func New(sat *trail.Trail, opts Options) *IntegerTrail {
	it := &IntegerTrail{
		sat:         sat,
		opts:        opts,
		levelStart:  []int{0},
		heap:        yagh.New[int64](0),
		addedLit:    map[trail.Literal]bool{},
		maxQueuedLB: map[intvar.Variable]int64{},
	}
	sat.Register(it)
	return it
}

// SetEncoder wires the IntegerEncoder that backs Enqueue's literal-reuse
// step. It is optional: with no encoder registered, Enqueue simply skips
// that optimisation.
func (it *IntegerTrail) SetEncoder(e Encoder) {
	it.enc = e
}

// NumVariables returns the number of variable pairs allocated so far.
func (it *IntegerTrail) NumVariables() int {
	return len(it.domains) / 2
}

// AddIntegerVariable allocates the pair (v, ¬v), records the initial
// domain, and seeds the trail with the level-0 bound entries.
func (it *IntegerTrail) AddIntegerVariable(d intvar.Domain) (intvar.Variable, error) {
	if d.IsEmpty() {
		return 0, fmt.Errorf("inttrail: AddIntegerVariable called with an empty domain")
	}
	v := intvar.Variable(len(it.domains))
	neg := intvar.Variable(len(it.domains) + 1)

	it.domains = append(it.domains, d, d.Negation())
	it.currentLB = append(it.currentLB, d.Min(), -d.Max())
	it.lastOfVar = append(it.lastOfVar, -1, -1)
	it.modified = append(it.modified, false, false)

	it.entries = append(it.entries,
		boundEntry{bound: d.Min(), varID: v, prevTrailIndex: -1, reason: noReason, level: 0},
		boundEntry{bound: -d.Max(), varID: neg, prevTrailIndex: -1, reason: noReason, level: 0},
	)
	it.lastOfVar[v] = int32(len(it.entries) - 2)
	it.lastOfVar[neg] = int32(len(it.entries) - 1)
	it.levelStart[0] = len(it.entries)
	it.heap.GrowBy(2)

	return v, nil
}

// LowerBound returns the current lower bound of v in O(1).
func (it *IntegerTrail) LowerBound(v intvar.Variable) int64 {
	return it.currentLB[v]
}

// UpperBound returns the current upper bound of v in O(1): ub(v) = -lb(¬v).
func (it *IntegerTrail) UpperBound(v intvar.Variable) int64 {
	return -it.currentLB[v.Negation()]
}

// IsFixed reports whether v's bounds have converged to a single value.
func (it *IntegerTrail) IsFixed(v intvar.Variable) bool {
	return it.LowerBound(v) == it.UpperBound(v)
}

// LevelZeroLowerBound and LevelZeroUpperBound return the bounds as they
// stood (or stand) at decision level 0: the tightest bound ever pushed with
// a level-0 trail entry.
func (it *IntegerTrail) LevelZeroLowerBound(v intvar.Variable) int64 {
	idx := it.lastOfVar[v]
	for idx >= 0 && it.entries[idx].level != 0 {
		idx = it.entries[idx].prevTrailIndex
	}
	if idx < 0 {
		return it.domains[v].Min()
	}
	return it.entries[idx].bound
}

func (it *IntegerTrail) LevelZeroUpperBound(v intvar.Variable) int64 {
	return -it.LevelZeroLowerBound(v.Negation())
}

// Domain returns the declared (hole-aware) domain of v, as last narrowed by
// UpdateInitialDomain. This is distinct from [LowerBound(v), UpperBound(v)]:
// the domain may have holes within that range.
func (it *IntegerTrail) Domain(v intvar.Variable) intvar.Domain {
	return it.domains[v]
}

// Unsat reports whether the model has been proven infeasible at level 0.
func (it *IntegerTrail) Unsat() bool {
	return it.sat.Unsat()
}

// Conflict returns the SAT literals of the most recently produced conflict
// clause (valid only immediately after an Enqueue call returned false).
func (it *IntegerTrail) Conflict() []trail.Literal {
	return it.conflict
}

// UpdateInitialDomain intersects v's initial domain with d, failing if the
// result is empty. It must only be called at decision level 0.
func (it *IntegerTrail) UpdateInitialDomain(v intvar.Variable, d intvar.Domain) error {
	if it.sat.DecisionLevel() != 0 {
		return fmt.Errorf("inttrail: UpdateInitialDomain called at decision level %d, want 0", it.sat.DecisionLevel())
	}
	newDomain := it.domains[v].IntersectionWith(d)
	if newDomain.IsEmpty() {
		it.sat.AddClause(nil) // force unsat: empty root clause
		return fmt.Errorf("inttrail: UpdateInitialDomain(%s) results in an empty domain", v)
	}
	it.domains[v] = newDomain
	it.domains[v.Negation()] = newDomain.Negation()

	if newDomain.Min() > it.currentLB[v] {
		it.Enqueue(intvar.GE(v, newDomain.Min()), nil, nil)
	}
	if -newDomain.Max() > it.currentLB[v.Negation()] {
		it.Enqueue(intvar.GE(v.Negation(), -newDomain.Max()), nil, nil)
	}
	return nil
}

func (it *IntegerTrail) markModified(v intvar.Variable) {
	pos := v
	if pos.IsNegation() {
		pos = v.Negation()
	}
	if !it.modified[pos] {
		it.modified[pos] = true
		it.modifiedOrder = append(it.modifiedOrder, pos)
	}
}

// AppendNewBounds appends to out, for each variable modified since the last
// call, both its current lower bound and the current lower bound of its
// negation (its upper bound), and resets the modified set.
func (it *IntegerTrail) AppendNewBounds(out *[]intvar.Literal) {
	for _, v := range it.modifiedOrder {
		*out = append(*out, intvar.GE(v, it.LowerBound(v)))
		*out = append(*out, intvar.GE(v.Negation(), it.LowerBound(v.Negation())))
		it.modified[v] = false
	}
	it.modifiedOrder = it.modifiedOrder[:0]
}

// ModifiedVariables returns (without clearing) the set of variables
// modified since the last AppendNewBounds call. This is the bitset that
// spec.md §4.3 says WATCH reads directly to know which lower bounds woke
// which propagators.
func (it *IntegerTrail) ModifiedVariables() []intvar.Variable {
	return it.modifiedOrder
}

// SetLevel implements trail.ReversibleInterface: it is called by the SAT
// trail on backtrack, after the SAT assignments have already been undone,
// with the new decision level.
func (it *IntegerTrail) SetLevel(level int) {
	it.Untrail(level)
}

// Untrail truncates the integer trail to the given decision level,
// restoring each variable's current lower bound to what it was when that
// level was entered.
func (it *IntegerTrail) Untrail(level int) {
	for len(it.levelStart)-1 > level {
		start := it.levelStart[len(it.levelStart)-1]
		for i := len(it.entries) - 1; i >= start; i-- {
			e := it.entries[i]
			if it.lastOfVar[e.varID] == int32(i) {
				it.lastOfVar[e.varID] = e.prevTrailIndex
			}
			if e.prevTrailIndex >= 0 {
				it.currentLB[e.varID] = it.entries[e.prevTrailIndex].bound
			} else {
				it.currentLB[e.varID] = it.domains[e.varID].Min()
			}
		}
		it.entries = it.entries[:start]
		it.levelStart = it.levelStart[:len(it.levelStart)-1]
	}
	if level >= len(it.levelStart) {
		for len(it.levelStart) <= level {
			it.levelStart = append(it.levelStart, len(it.entries))
		}
	}
}

// ensureLevel extends levelStart so that it has an entry for the current
// decision level, in case a decision was assumed on the SAT trail without
// IntegerTrail having pushed anything yet at that level.
func (it *IntegerTrail) ensureLevel() {
	lvl := it.sat.DecisionLevel()
	for len(it.levelStart) <= lvl {
		it.levelStart = append(it.levelStart, len(it.entries))
	}
}
