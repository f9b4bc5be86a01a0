package optimize

import (
	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/trail"
	"github.com/rhartert/yasscp/watch"
)

// CoreOptions tunes CoreBasedOptimizer's outer loop, per spec.md §4.5.
type CoreOptions struct {
	// StratificationThreshold is the starting minimum term weight assumed
	// at once; 0 means "start from the heaviest weight present".
	StratificationThreshold int64

	// FindMultipleCores lets one round of FindCores keep searching for
	// additional cores after the first is found, instead of stopping at one:
	// each found core's last literal is removed from the remaining
	// assumptions before the next solve, so later cores may share literals
	// with earlier ones.
	FindMultipleCores bool

	// CoverOptimizationBudget is the conflict budget granted to each
	// per-term sub-solve in CoverOptimization; 0 disables it entirely.
	CoverOptimizationBudget int64

	// LinearScanThreshold is the number of remaining non-fixed objective
	// terms at or below which Solve switches to LinearScanMinimize.
	LinearScanThreshold int

	// MaxCoreSearchConflicts bounds every FindCores sub-solve.
	MaxCoreSearchConflicts int64
}

// DefaultCoreOptions matches the stratified, multi-core OLL variant spec.md
// §4.5 describes.
var DefaultCoreOptions = CoreOptions{
	StratificationThreshold: 1,
	FindMultipleCores:       true,
	CoverOptimizationBudget: 0,
	LinearScanThreshold:     2,
	MaxCoreSearchConflicts:  1000,
}

// Outcome is what CoreBasedOptimizer.Solve concluded.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeOptimal
	OutcomeInfeasible
)

// CoreBasedOptimizer is OPT-core: it repeatedly assumes every objective term
// stays at its current lower bound, extracts an unsatisfiable core when
// that is impossible, and folds the core into a fresh summary term, raising
// the proven objective lower bound a little on every round.
type CoreBasedOptimizer struct {
	sat    SatTrail
	it     IntegerTrail
	w      *watch.Watcher
	enc    Encoder
	decide DecisionHeuristic
	opts   CoreOptions

	Objective *Objective

	NumCoresFound   int
	NumCoverCalls   int
	NumFreshSummary int

	sumConstraints []*sumAtMost
}

// NewCoreBasedOptimizer builds an optimizer over an initially empty
// objective; callers add terms via Objective.AddTerm before calling Solve.
func NewCoreBasedOptimizer(sat SatTrail, it IntegerTrail, w *watch.Watcher, enc Encoder, decide DecisionHeuristic, opts CoreOptions) *CoreBasedOptimizer {
	return &CoreBasedOptimizer{
		sat:       sat,
		it:        it,
		w:         w,
		enc:       enc,
		decide:    decide,
		opts:      opts,
		Objective: &Objective{},
	}
}

// Solve runs the stratified core-search loop until the objective is proven
// optimal, the problem is proven infeasible, too few terms remain (handed
// off to LinearScanMinimize), or maxRounds rounds have run (0 means
// unbounded).
func (c *CoreBasedOptimizer) Solve(maxRounds int) (Outcome, error) {
	threshold := c.opts.StratificationThreshold
	if threshold <= 0 {
		threshold = c.maxWeight()
	}

	for round := 0; maxRounds <= 0 || round < maxRounds; round++ {
		if _, ok := c.Objective.PropagateObjectiveBounds(c.it); !ok {
			return OutcomeInfeasible, nil
		}

		if c.nonFixed() <= c.opts.LinearScanThreshold {
			return c.solveLinearScanRemainder()
		}

		if c.opts.CoverOptimizationBudget > 0 {
			if !c.CoverOptimization() {
				return OutcomeInfeasible, nil
			}
		}

		assumptions, litToTerm := c.buildAssumptions(threshold)
		if len(assumptions) == 0 {
			next := c.nextThreshold(threshold)
			if next == 0 {
				return OutcomeOptimal, nil
			}
			threshold = next
			continue
		}

		cores, status := c.FindCores(assumptions)
		switch status {
		case StatusFeasible:
			next := c.nextThreshold(threshold)
			if next == 0 {
				return OutcomeOptimal, nil
			}
			threshold = next
		case StatusUnknown:
			return OutcomeUnknown, nil
		case StatusInfeasible:
			for _, core := range cores {
				if !c.learnCore(core, litToTerm) {
					return OutcomeInfeasible, nil
				}
			}
		}
	}
	return OutcomeUnknown, nil
}

func (c *CoreBasedOptimizer) maxWeight() int64 {
	var m int64
	for _, t := range c.Objective.Terms {
		if t.Weight > m {
			m = t.Weight
		}
	}
	return m
}

func (c *CoreBasedOptimizer) nonFixed() int {
	n := 0
	for _, t := range c.Objective.Terms {
		if !c.it.IsFixed(t.Var) {
			n++
		}
	}
	return n
}

// buildAssumptions returns the "stay at your current lower bound" literal
// for every non-fixed term whose weight is at least threshold, alongside a
// map back from literal to term index so learnCore can find which terms a
// reported core implicates.
func (c *CoreBasedOptimizer) buildAssumptions(threshold int64) ([]trail.Literal, map[trail.Literal]int) {
	lits := make([]trail.Literal, 0, len(c.Objective.Terms))
	litToTerm := map[trail.Literal]int{}
	for i, t := range c.Objective.Terms {
		if t.Weight < threshold || c.it.IsFixed(t.Var) {
			continue
		}
		l := c.enc.GetOrCreateAssociatedLiteral(intvar.LE(t.Var, c.it.LowerBound(t.Var)))
		lits = append(lits, l)
		litToTerm[l] = i
	}
	return lits, litToTerm
}

// nextThreshold finds the largest weight strictly below threshold among
// remaining non-fixed terms, or 0 if none remain (meaning every term is
// fixed: the objective is proven optimal).
func (c *CoreBasedOptimizer) nextThreshold(threshold int64) int64 {
	var next int64
	for _, t := range c.Objective.Terms {
		if c.it.IsFixed(t.Var) {
			continue
		}
		if t.Weight < threshold && t.Weight > next {
			next = t.Weight
		}
	}
	return next
}

func removeOne(lits []trail.Literal, drop trail.Literal) []trail.Literal {
	out := make([]trail.Literal, 0, len(lits))
	removed := false
	for _, l := range lits {
		if !removed && l == drop {
			removed = true
			continue
		}
		out = append(out, l)
	}
	return out
}

// FindCores runs solveUnderAssumptions over assumptions and, when
// FindMultipleCores is set, keeps retrying with the last literal of each
// found core dropped from the remaining assumptions, collecting further
// cores within the same round until a solve no longer proves infeasible or
// no assumptions remain.
func (c *CoreBasedOptimizer) FindCores(assumptions []trail.Literal) ([][]trail.Literal, SearchStatus) {
	var cores [][]trail.Literal
	remaining := append([]trail.Literal(nil), assumptions...)

	for {
		res := solveUnderAssumptionsWithObjective(c.sat, c.it, c.w, c.enc, remaining, c.decide, c.Objective, SearchOptions{MaxConflicts: c.opts.MaxCoreSearchConflicts})
		switch res.Status {
		case StatusFeasible:
			if len(cores) == 0 {
				return nil, StatusFeasible
			}
			return cores, StatusInfeasible
		case StatusUnknown:
			if len(cores) == 0 {
				return nil, StatusUnknown
			}
			return cores, StatusInfeasible
		case StatusInfeasible:
			cores = append(cores, res.Core)
			c.NumCoresFound++
			if !c.opts.FindMultipleCores || len(res.Core) == 0 {
				return cores, StatusInfeasible
			}
			remaining = removeOne(remaining, res.Core[len(res.Core)-1])
			if len(remaining) == 0 {
				return cores, StatusInfeasible
			}
		}
	}
}

// learnCore folds one reported core into the objective: a singleton core
// means that one term's current lower bound must rise immediately; a
// larger core introduces a fresh summary variable bounding how many of the
// core's terms may simultaneously sit above their current lower bound, per
// spec.md §4.5 step 5.
func (c *CoreBasedOptimizer) learnCore(core []trail.Literal, litToTerm map[trail.Literal]int) bool {
	idxs := make([]int, 0, len(core))
	for _, l := range core {
		if i, ok := litToTerm[l]; ok {
			idxs = append(idxs, i)
		}
	}
	if len(idxs) == 0 {
		return true
	}
	if len(idxs) == 1 {
		t := c.Objective.Terms[idxs[0]]
		return c.it.Enqueue(intvar.GE(t.Var, c.it.LowerBound(t.Var)+1), nil, nil)
	}

	minWeight := c.Objective.Terms[idxs[0]].Weight
	coreVars := make([]intvar.Variable, 0, len(idxs))
	offsets := make([]int64, 0, len(idxs))
	var ubSum int64
	for _, i := range idxs {
		t := c.Objective.Terms[i]
		if t.Weight < minWeight {
			minWeight = t.Weight
		}
		lb := c.it.LowerBound(t.Var)
		coreVars = append(coreVars, t.Var)
		offsets = append(offsets, lb)
		ubSum += c.it.UpperBound(t.Var) - lb
	}
	if ubSum < 1 {
		ubSum = 1
	}

	s, err := c.it.AddIntegerVariable(intvar.New(1, ubSum))
	if err != nil {
		return false
	}

	sum := newSumAtMost(c.it, coreVars, offsets, s)
	sum.RegisterWith(c.w)
	c.sumConstraints = append(c.sumConstraints, sum)

	maxDepth := c.Objective.maxDepth()
	c.Objective.Terms = append(c.Objective.Terms, ObjectiveTerm{Var: s, Weight: minWeight, Depth: maxDepth + 1})
	for _, i := range idxs {
		c.Objective.Terms[i].Weight -= minWeight
	}
	c.NumFreshSummary++
	return true
}

// CoverOptimization implements spec.md §4.5's cover strengthening: for each
// summary term already introduced by a previous core, try to push its
// current upper bound down by one with a small, bounded sub-solve, raising
// the term's proven lower bound whenever that sub-solve proves infeasible.
// Real engines gate this on a wall-clock budget; this module has no
// wall-clock time-limit plumbing, so CoreOptions.CoverOptimizationBudget is
// a conflict count instead (see DESIGN.md).
func (c *CoreBasedOptimizer) CoverOptimization() bool {
	for _, t := range c.Objective.Terms {
		if t.Depth < 1 || c.it.IsFixed(t.Var) {
			continue
		}
		target := c.it.UpperBound(t.Var) - 1
		if target < c.it.LowerBound(t.Var) {
			continue
		}
		assumeLit := c.enc.GetOrCreateAssociatedLiteral(intvar.LE(t.Var, target))
		res := solveUnderAssumptionsWithObjective(c.sat, c.it, c.w, c.enc, []trail.Literal{assumeLit}, c.decide, c.Objective, SearchOptions{MaxConflicts: c.opts.CoverOptimizationBudget})
		c.NumCoverCalls++
		if res.Status == StatusInfeasible {
			if !c.it.Enqueue(intvar.GE(t.Var, target+1), nil, nil) {
				return false
			}
		}
	}
	return true
}

func (c *CoreBasedOptimizer) solveLinearScanRemainder() (Outcome, error) {
	status := LinearScanMinimize(c.sat, c.it, c.w, c.enc, c.decide, c.Objective, SearchOptions{MaxConflicts: c.opts.MaxCoreSearchConflicts})
	switch status {
	case StatusFeasible:
		return OutcomeOptimal, nil
	case StatusInfeasible:
		return OutcomeInfeasible, nil
	default:
		return OutcomeUnknown, nil
	}
}
