package trail

import (
	"fmt"
	"sort"
)

// watcher is a clause attached to the watch list of a literal.
type watcher struct {
	clause *Clause
	// guard is one of the clause's other literals; if it is true there is
	// no need to load/propagate the clause.
	guard Literal
}

// ReversibleInterface is implemented by state that must be restored when the
// trail backtracks. SetLevel(i) is called with the new decision level after
// the trail's own bounds/assignments have already been restored to that
// level, so implementations observe a consistent Trail.
type ReversibleInterface interface {
	SetLevel(level int)
}

// Trail is the process-wide stack of assigned Boolean literals together with
// the two-watched-literal SAT clause database. It is Component 1 of the
// design: every other layer (IntegerTrail, IntegerEncoder, the watcher
// scheduler, the propagators) either sits on top of it or is registered with
// it as a ReversibleInterface.
type Trail struct {
	constraints []*Clause
	learnts     []*Clause
	clauseInc   float64
	clauseDecay float64

	watchers  [][]watcher
	propQueue *Queue[Literal]

	assigns []LBool

	trail    []Literal
	trailLim []int
	reason   []*Clause
	level    []int

	unsat bool

	reversibles []ReversibleInterface

	tmpWatchers []watcher
	tmpLearnts  []Literal
	tmpReason   []Literal
	seenGen     uint32
	seenAt      []uint32
}

// Options configures clause-activity decay, mirroring the teacher's
// Options/DefaultOptions split.
type Options struct {
	ClauseDecay float64
}

var DefaultOptions = Options{ClauseDecay: 0.999}

// New returns an empty Trail configured with opts.
func New(opts Options) *Trail {
	return &Trail{
		clauseDecay: opts.ClauseDecay,
		clauseInc:   1,
		propQueue:   NewQueue[Literal](128),
	}
}

func (t *Trail) NumVariables() int { return len(t.assigns) / 2 }
func (t *Trail) NumAssigns() int   { return len(t.trail) }

func (t *Trail) VarValue(v int) LBool       { return t.assigns[PositiveLiteral(v)] }
func (t *Trail) LitValue(l Literal) LBool   { return t.assigns[l] }
func (t *Trail) DecisionLevel() int         { return len(t.trailLim) }
func (t *Trail) Unsat() bool                { return t.unsat }
func (t *Trail) ReasonOf(v int) *Clause     { return t.reason[v] }
func (t *Trail) LevelOf(v int) int          { return t.level[v] }
func (t *Trail) TrailLiteral(i int) Literal { return t.trail[i] }
func (t *Trail) Len() int                   { return len(t.trail) }

// AddVariable allocates a fresh Boolean variable and returns its id.
func (t *Trail) AddVariable() int {
	v := t.NumVariables()
	t.watchers = append(t.watchers, nil, nil)
	t.reason = append(t.reason, nil)
	t.assigns = append(t.assigns, Unknown, Unknown)
	t.level = append(t.level, -1)
	t.seenAt = append(t.seenAt, 0)
	return v
}

// Register adds r to the set of reversible structures notified on every
// backtrack, after the trail's own state has been restored.
func (t *Trail) Register(r ReversibleInterface) {
	t.reversibles = append(t.reversibles, r)
}

func (t *Trail) watch(c *Clause, on Literal, guard Literal) {
	t.watchers[on] = append(t.watchers[on], watcher{clause: c, guard: guard})
}

func (t *Trail) unwatch(c *Clause, on Literal) {
	ws := t.watchers[on]
	j := 0
	for i := range ws {
		if ws[i].clause != c {
			ws[j] = ws[i]
			j++
		}
	}
	t.watchers[on] = ws[:j]
}

// AddClause adds a root-level clause. It must only be called at decision
// level 0.
func (t *Trail) AddClause(lits []Literal) error {
	if t.DecisionLevel() != 0 {
		return fmt.Errorf("trail: AddClause called at decision level %d, want 0", t.DecisionLevel())
	}
	c, ok := NewClause(t, append([]Literal(nil), lits...), false)
	if c != nil {
		t.constraints = append(t.constraints, c)
	}
	if !ok {
		t.unsat = true
	}
	return nil
}

// AddBinaryImplication posts the clause (¬a ∨ b), i.e. a ⇒ b. This is the
// primitive IntegerEncoder uses to chain `[v ≥ k]` literals together.
func (t *Trail) AddBinaryImplication(a, b Literal) error {
	return t.AddClause([]Literal{a.Opposite(), b})
}

func (t *Trail) enqueue(l Literal, from *Clause) bool {
	switch t.LitValue(l) {
	case False:
		return false
	case True:
		return true
	default:
		v := l.VarID()
		t.assigns[l] = True
		t.assigns[l.Opposite()] = False
		t.level[v] = t.DecisionLevel()
		t.reason[v] = from
		t.trail = append(t.trail, l)
		t.propQueue.Push(l)
		return true
	}
}

// Enqueue forces literal l to true with the given reason clause (nil for a
// decision or an externally-supplied fact). It returns false if l is already
// false (a conflict the caller must handle).
func (t *Trail) Enqueue(l Literal, from *Clause) bool {
	return t.enqueue(l, from)
}

// Assume pushes a new decision level and enqueues l as a decision.
func (t *Trail) Assume(l Literal) bool {
	t.trailLim = append(t.trailLim, len(t.trail))
	return t.enqueue(l, nil)
}

// EnqueuePropagated forces l true because every literal in trueReasons is
// currently true, attaching a reason clause (¬r1 ∨ ¬r2 ∨ ... ∨ l) so
// conflict analysis can later explain the inference. Propagators outside
// this package (the constraint family in prop) use this to push a Boolean
// decision variable rather than an integer bound.
func (t *Trail) EnqueuePropagated(l Literal, trueReasons []Literal) bool {
	lits := make([]Literal, 0, len(trueReasons)+1)
	lits = append(lits, l)
	for _, r := range trueReasons {
		lits = append(lits, r.Opposite())
	}
	if len(lits) == 1 {
		return t.enqueue(lits[0], nil)
	}
	c, ok := NewClause(t, lits, true)
	if !ok {
		return false
	}
	if c == nil {
		return t.LitValue(l) != False
	}
	return t.enqueue(l, c)
}

// Propagate runs the SAT unit propagator to quiescence, returning the
// conflicting clause, or nil if a fixed point was reached without conflict.
// Per the design's ordering guarantees, this must run to quiescence before
// any integer propagator resumes.
func (t *Trail) Propagate() *Clause {
	for t.propQueue.Size() > 0 {
		l := t.propQueue.Pop()

		t.tmpWatchers = append(t.tmpWatchers[:0], t.watchers[l]...)
		t.watchers[l] = t.watchers[l][:0]

		for i, w := range t.tmpWatchers {
			if t.LitValue(w.guard) == True {
				t.watchers[l] = append(t.watchers[l], w)
				continue
			}
			if w.clause.Propagate(t, l) {
				continue
			}
			t.watchers[l] = append(t.watchers[l], t.tmpWatchers[i+1:]...)
			t.propQueue.Clear()
			return t.tmpWatchers[i].clause
		}
	}
	return nil
}

// Explain returns the reason literals for the trail entry at pseudoLit: if
// pseudoLit is NoLiteral, confl is an empty (failed) clause and the reason
// explains the failure; otherwise it explains why confl forced pseudoLit.
func (t *Trail) explain(confl *Clause, pseudoLit Literal) []Literal {
	if pseudoLit == NoLiteral {
		return confl.ExplainFailure(t)
	}
	return confl.ExplainAssign(t)
}

func (t *Trail) clearSeen() {
	t.seenGen++
	if t.seenGen == 0 {
		t.seenGen = 1
		for i := range t.seenAt {
			t.seenAt[i] = 0
		}
	}
}

func (t *Trail) markSeen(v int)     { t.seenAt[v] = t.seenGen }
func (t *Trail) isSeen(v int) bool  { return t.seenAt[v] == t.seenGen }

// Analyze performs first-UIP conflict analysis on confl, returning the
// learnt clause (with the asserting literal in position 0) and the decision
// level to backtrack to.
func (t *Trail) Analyze(confl *Clause) ([]Literal, int) {
	return t.analyzeFrom(confl.ExplainFailure(t))
}

// AnalyzeReason performs the same first-UIP analysis as Analyze, but starts
// from an explicit reason (the negated antecedents of a conflict) rather
// than a *Clause. Integer propagators report conflicts through
// IntegerTrail.ReportConflict, which has no clause to point to — only the
// flattened reason literals inttrail already reconstructed — so this is the
// entry point the search loop uses for those.
func (t *Trail) AnalyzeReason(reason []Literal) ([]Literal, int) {
	return t.analyzeFrom(reason)
}

func (t *Trail) analyzeFrom(initialReason []Literal) ([]Literal, int) {
	nImplicationPoints := 0
	t.tmpLearnts = append(t.tmpLearnts[:0], NoLiteral)

	nextLiteral := len(t.trail) - 1
	l := NoLiteral
	t.clearSeen()
	backtrackLevel := 0

	reason := initialReason
	for {
		for _, q := range reason {
			v := q.VarID()
			if t.isSeen(v) {
				continue
			}
			t.markSeen(v)
			if t.level[v] == t.DecisionLevel() {
				nImplicationPoints++
				continue
			}
			t.tmpLearnts = append(t.tmpLearnts, q.Opposite())
			if lvl := t.level[v]; lvl > backtrackLevel {
				backtrackLevel = lvl
			}
		}

		var confl *Clause
		for {
			l = t.trail[nextLiteral]
			nextLiteral--
			v := l.VarID()
			confl = t.reason[v]
			if t.isSeen(v) {
				break
			}
		}

		nImplicationPoints--
		if nImplicationPoints <= 0 {
			break
		}
		reason = t.explain(confl, l)
	}

	t.tmpLearnts[0] = l.Opposite()
	out := make([]Literal, len(t.tmpLearnts))
	copy(out, t.tmpLearnts)
	return out, backtrackLevel
}

// Record adds a learnt clause and enqueues its asserting (first) literal.
func (t *Trail) Record(clause []Literal) {
	c, _ := NewClause(t, clause, true)
	t.enqueue(clause[0], c)
	if c != nil {
		t.learnts = append(t.learnts, c)
	}
}

func (t *Trail) undoOne() {
	l := t.trail[len(t.trail)-1]
	v := l.VarID()
	t.assigns[l] = Unknown
	t.assigns[l.Opposite()] = Unknown
	t.reason[v] = nil
	t.level[v] = -1
	t.trail = t.trail[:len(t.trail)-1]
}

// CancelUntil backtracks the trail to the given decision level, restoring
// assignments and notifying every registered ReversibleInterface.
func (t *Trail) CancelUntil(level int) {
	for t.DecisionLevel() > level {
		c := len(t.trail) - t.trailLim[len(t.trailLim)-1]
		for ; c != 0; c-- {
			t.undoOne()
		}
		t.trailLim = t.trailLim[:len(t.trailLim)-1]
	}
	t.propQueue.Clear()
	for _, r := range t.reversibles {
		r.SetLevel(level)
	}
}

// BumpClauseActivity increases c's activity, rescaling the whole learnt
// database if it would otherwise overflow.
func (t *Trail) BumpClauseActivity(c *Clause) {
	c.activity += t.clauseInc
	if c.activity > 1e100 {
		t.clauseInc *= 1e-100
		for _, l := range t.learnts {
			l.activity *= 1e-100
		}
	}
}

func (t *Trail) DecayClauseActivity() {
	t.clauseInc *= t.clauseDecay
}

// Simplify removes root-level-satisfied clauses from the constraint and
// learnt databases. It must be called at decision level 0 with an empty
// propagation queue.
func (t *Trail) Simplify() bool {
	if t.DecisionLevel() != 0 {
		panic("trail: Simplify called on non root-level")
	}
	if t.propQueue.Size() != 0 {
		panic("trail: Simplify called with pending propagations")
	}
	if t.unsat || t.Propagate() != nil {
		t.unsat = true
		return false
	}
	t.simplifyPtr(&t.learnts)
	t.simplifyPtr(&t.constraints)
	return true
}

func (t *Trail) simplifyPtr(clausesPtr *[]*Clause) {
	clauses := *clausesPtr
	j := 0
	for i := range clauses {
		if clauses[i].Simplify(t) {
			clauses[i].Remove(t)
		} else {
			clauses[j] = clauses[i]
			j++
		}
	}
	*clausesPtr = clauses[:j]
}

// ReduceDB halves the learnt clause database, keeping locked clauses and the
// highest-activity half.
func (t *Trail) ReduceDB() {
	if len(t.learnts) == 0 {
		return
	}
	lim := t.clauseInc / float64(len(t.learnts))

	sort.Slice(t.learnts, func(i, j int) bool {
		return t.learnts[i].activity < t.learnts[j].activity
	})

	i, j := 0, 0
	for ; i < len(t.learnts)/2; i++ {
		if t.learnts[i].locked(t) {
			t.learnts[j] = t.learnts[i]
			j++
		} else {
			t.learnts[i].Remove(t)
		}
	}
	for ; i < len(t.learnts); i++ {
		if !t.learnts[i].locked(t) && t.learnts[i].activity < lim {
			t.learnts[i].Remove(t)
		} else {
			t.learnts[j] = t.learnts[i]
			j++
		}
	}
	t.learnts = t.learnts[:j]
}

func (t *Trail) NumConstraints() int { return len(t.constraints) }
func (t *Trail) NumLearnts() int     { return len(t.learnts) }
