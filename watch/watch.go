// Package watch implements the GenericLiteralWatcher (WATCH): a
// single-threaded cooperative scheduler that calls registered propagators in
// priority order whenever a watched Boolean literal or integer lower bound
// changes, per spec.md §4.3.
package watch

import (
	"github.com/rhartert/yagh"
	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/trail"
)

// Propagator is the interface every constraint in the prop package
// implements.
type Propagator interface {
	// Propagate runs the propagator to a local fixed point. Returns false on
	// conflict (the caller finds the explanation via the owning IntegerTrail's
	// conflict vector, already populated by the time this returns false).
	Propagate() bool

	// IncrementalPropagate is like Propagate but restricted to the given
	// watch indices, for propagators that registered WatchIndex hints. A
	// propagator that doesn't benefit from incrementality can alias this to
	// Propagate.
	IncrementalPropagate(watchIndices []int) bool

	// RegisterWith installs the propagator's watches on w, typically via
	// WatchLiteral/WatchLowerBound/WatchUpperBound/WatchAffineExpression.
	RegisterWith(w *Watcher)
}

// ReversibleInt is a reversible integer whose value depends on the decision
// level at the moment a propagator is called, saved into a shared repository
// across calls so a propagator can resume incremental state across levels.
type ReversibleInt interface {
	SetLevel(level int)
}

type literalWatch struct {
	id         int
	watchIndex int
}

type varWatch struct {
	id         int
	watchIndex int
}

// Watcher is Component 4 of the design.
type Watcher struct {
	sat *trail.Trail
	it  IntegerTrail

	props []Propagator

	priority    []int
	idempotent  []bool
	alwaysZero  []bool
	lastLevel   []int
	reversibles [][]trail.ReversibleInterface

	literalWatchers map[trail.Literal][]literalWatch
	lbWatchers      map[intvar.Variable][]varWatch

	// pendingWatchIndices[id] accumulates the watch indices that triggered id
	// since it was last called, for IncrementalPropagate.
	pendingWatchIndices map[int][]int

	inQueue        []bool
	queues         map[int]*trail.Queue[int]
	activeSet      *yagh.IntMap[int]
	activePriority map[int]bool

	trailPos  int
	iterLimit int
	iterCount int

	levelZeroModifiedCallback func([]intvar.Variable)
	levelZeroSeen             map[intvar.Variable]bool

	stopPropagationCallback func() bool
}

// IntegerTrail is the narrow surface of inttrail.IntegerTrail the watcher
// needs: reading which variables were modified since the last drain, and
// flagging a level incomplete when a limit interrupts propagation.
type IntegerTrail interface {
	ModifiedVariables() []intvar.Variable
	AppendNewBounds(out *[]intvar.Literal)
	MarkNotFullyPropagated()
}

// New returns an empty Watcher layered on sat and it.
func New(sat *trail.Trail, it IntegerTrail) *Watcher {
	w := &Watcher{
		sat:                 sat,
		it:                  it,
		literalWatchers:     map[trail.Literal][]literalWatch{},
		lbWatchers:          map[intvar.Variable][]varWatch{},
		pendingWatchIndices: map[int][]int{},
		queues:              map[int]*trail.Queue[int]{},
		activeSet:           yagh.New[int](0),
		activePriority:      map[int]bool{},
		levelZeroSeen:       map[intvar.Variable]bool{},
	}
	sat.Register(w)
	return w
}

// SetLevel implements trail.ReversibleInterface: it clamps the trail-literal
// read cursor so it never points past the (possibly shrunk) trail.
func (w *Watcher) SetLevel(level int) {
	if w.trailPos > w.sat.Len() {
		w.trailPos = w.sat.Len()
	}
}

// SetIterationLimit bounds the number of propagator calls made within a
// single Propagate invocation; 0 (the default) means unlimited.
func (w *Watcher) SetIterationLimit(n int) {
	w.iterLimit = n
}

// Register appends propagator p to the propagator list, returning its dense
// id, and queues it with priority 1 for the next Propagate call.
func (w *Watcher) Register(p Propagator) int {
	id := len(w.props)
	w.props = append(w.props, p)
	w.priority = append(w.priority, 1)
	w.idempotent = append(w.idempotent, true)
	w.alwaysZero = append(w.alwaysZero, false)
	w.lastLevel = append(w.lastLevel, 0)
	w.reversibles = append(w.reversibles, nil)
	w.inQueue = append(w.inQueue, false)

	p.RegisterWith(w)
	w.enqueue(id, -1)
	return id
}

// WatchLiteral makes propagator id fire when L becomes true.
func (w *Watcher) WatchLiteral(l trail.Literal, id int, watchIndex int) {
	w.literalWatchers[l] = append(w.literalWatchers[l], literalWatch{id: id, watchIndex: watchIndex})
}

// WatchLowerBound makes propagator id fire when v's lower bound tightens.
func (w *Watcher) WatchLowerBound(v intvar.Variable, id int, watchIndex int) {
	w.lbWatchers[v] = append(w.lbWatchers[v], varWatch{id: id, watchIndex: watchIndex})
}

// WatchUpperBound makes propagator id fire when v's upper bound tightens,
// i.e. when ¬v's lower bound tightens (ub(v) = -lb(¬v)).
func (w *Watcher) WatchUpperBound(v intvar.Variable, id int, watchIndex int) {
	w.WatchLowerBound(v.Negation(), id, watchIndex)
}

// WatchAffineExpression registers id against every variable appearing in a
// linear expression, so any of their bound changes wakes the propagator.
func (w *Watcher) WatchAffineExpression(vars []intvar.Variable, id int) {
	for _, v := range vars {
		w.WatchLowerBound(v, id, -1)
		w.WatchUpperBound(v, id, -1)
	}
}

// SetPropagatorPriority sets id's scheduling priority (lower runs earlier).
func (w *Watcher) SetPropagatorPriority(id int, p int) {
	w.priority[id] = p
}

// NotifyThatPropagatorMayNotReachFixedPointInOnePass marks id as
// non-idempotent: its in-queue flag is cleared before the literal and bound
// changes it made are absorbed, so it can re-enqueue itself.
func (w *Watcher) NotifyThatPropagatorMayNotReachFixedPointInOnePass(id int) {
	w.idempotent[id] = false
}

// AlwaysCallAtLevelZero marks id to be scheduled at the start of every
// Propagate call made while at decision level 0.
func (w *Watcher) AlwaysCallAtLevelZero(id int) {
	w.alwaysZero[id] = true
}

// RegisterReversible attaches reversible state to propagator id, replayed
// (SetLevel(lo) then SetLevel(level)) across decision-level jumps whenever
// id is called.
func (w *Watcher) RegisterReversible(id int, r trail.ReversibleInterface) {
	w.reversibles[id] = append(w.reversibles[id], r)
}

// SetLevelZeroModifiedVariableCallback installs the callback invoked with
// the set of variables tightened since the previous level-0 fixed point,
// each time Propagate reaches one.
func (w *Watcher) SetLevelZeroModifiedVariableCallback(f func([]intvar.Variable)) {
	w.levelZeroModifiedCallback = f
}

// SetStopPropagationCallback installs a user hook polled periodically during
// Propagate; if it returns true, propagation stops early and the level is
// marked not fully propagated.
func (w *Watcher) SetStopPropagationCallback(f func() bool) {
	w.stopPropagationCallback = f
}

func (w *Watcher) enqueue(id int, watchIndex int) {
	if watchIndex >= 0 {
		w.pendingWatchIndices[id] = append(w.pendingWatchIndices[id], watchIndex)
	}
	if w.inQueue[id] {
		return
	}
	w.inQueue[id] = true
	p := w.priority[id]
	q, ok := w.queues[p]
	if !ok {
		q = trail.NewQueue[int](8)
		w.queues[p] = q
		w.activeSet.Put(p, p)
	}
	q.Push(id)
}
