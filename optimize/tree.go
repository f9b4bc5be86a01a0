package optimize

import (
	"context"
	"math"

	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/lprelax"
	"github.com/rhartert/yasscp/trail"
)

// infeasibleBound marks a branch proven infeasible by propagation: high
// enough that dive never chooses it again over any live sibling, which is
// how "deleted children are not revisited" is realized without actually
// removing the node from the dense slice.
const infeasibleBound int64 = math.MaxInt64

// NodeIndex addresses one node of LbTreeSearch's explicit binary decision
// tree, dense and never reused once allocated (the tree only ever grows
// within one restart epoch).
type NodeIndex int32

const noNode NodeIndex = -1

// treeNode is one node of the tree: the literal branched on to reach it,
// the two children (noNode if unexplored), and the per-branch objective
// lower bounds spec.md §4.6 requires to be kept monotone-increasing as
// propagation tightens them.
type treeNode struct {
	parent                NodeIndex
	lit                   trail.Literal // true branch literal; false branch is lit.Opposite()
	trueChild, falseChild NodeIndex
	trueBound, falseBound int64
	polarity              bool // which branch this node dove into last, for tie-breaking
	hasBasis              bool
	basisTimestamp        int64
	basis                 lprelax.Basis
}

func (n *treeNode) bound() int64 {
	if n.trueBound < n.falseBound {
		return n.trueBound
	}
	return n.falseBound
}

// TreeOptions tunes LbTreeSearch's restart and dive heuristics, per
// spec.md §4.6.
type TreeOptions struct {
	// MaxNumInitialRestarts bounds how many times FullRestart may fire
	// purely because of NumDecisionsBeforeInitialRestarts; once exhausted,
	// only the "half the live nodes are stale" trigger remains active.
	MaxNumInitialRestarts int

	// NumDecisionsBeforeInitialRestarts is how many decisions one restart
	// epoch runs before forcing a fresh FullRestart.
	NumDecisionsBeforeInitialRestarts int

	// MaxDecisions bounds the whole Solve call; 0 means unbounded.
	MaxDecisions int64
}

// DefaultTreeOptions matches the restart cadence spec.md §4.6 describes.
var DefaultTreeOptions = TreeOptions{
	MaxNumInitialRestarts:             10,
	NumDecisionsBeforeInitialRestarts: 100,
}

// LbTreeSearch is OPT-tree: an alternative to CoreBasedOptimizer that
// raises the objective lower bound by diving an explicit decision tree
// guided by an LP relaxation's reduced costs, per spec.md §4.6.
type LbTreeSearch struct {
	sat    SatTrail
	it     IntegerTrail
	w      Watcher
	enc    Encoder
	decide DecisionHeuristic
	lp     lprelax.LPRelaxation

	Objective *Objective
	opts      TreeOptions

	nodes []treeNode
	root  NodeIndex
	// path holds the dive path from root (path[0]) to the current leaf
	// (inclusive); path[i] sits at decision level baseLevel+i+1.
	path []NodeIndex

	baseLevel int
	baseSet   bool

	numRestarts              int
	numDecisionsSinceRestart int
}

// NewLbTreeSearch builds a tree search over an initially empty objective;
// callers add terms via Objective.AddTerm before calling Solve.
func NewLbTreeSearch(sat SatTrail, it IntegerTrail, w Watcher, enc Encoder, decide DecisionHeuristic, lp lprelax.LPRelaxation, opts TreeOptions) *LbTreeSearch {
	return &LbTreeSearch{
		sat:       sat,
		it:        it,
		w:         w,
		enc:       enc,
		decide:    decide,
		lp:        lp,
		Objective: &Objective{},
		opts:      opts,
		root:      noNode,
	}
}

func (s *LbTreeSearch) newNode(parent NodeIndex, lit trail.Literal, bound int64) NodeIndex {
	s.nodes = append(s.nodes, treeNode{
		parent:     parent,
		lit:        lit,
		trueChild:  noNode,
		falseChild: noNode,
		trueBound:  bound,
		falseBound: bound,
	})
	return NodeIndex(len(s.nodes) - 1)
}

// fullRestart implements step 3: forget the whole tree and start diving
// fresh from a single root, carrying over nothing but the objective's
// already-proven bounds.
func (s *LbTreeSearch) fullRestart() {
	s.sat.CancelUntil(s.baseLevel)
	s.nodes = s.nodes[:0]
	s.path = s.path[:0]
	s.root = noNode
	s.numDecisionsSinceRestart = 0
	s.numRestarts++
}

// shouldRestart implements step 3's two triggers: the decision-count
// cadence (capped at MaxNumInitialRestarts) and the "more than half the
// live nodes are already stale" check.
func (s *LbTreeSearch) shouldRestart() bool {
	if s.numRestarts < s.opts.MaxNumInitialRestarts &&
		s.numDecisionsSinceRestart >= s.opts.NumDecisionsBeforeInitialRestarts {
		return true
	}
	if len(s.nodes) == 0 {
		return false
	}
	stale := 0
	for i := range s.nodes {
		if s.nodes[i].bound() < s.Objective.LB {
			stale++
		}
	}
	return 2*stale > len(s.nodes)
}

// propagateBoundsUp implements step 2: refresh every ancestor's per-branch
// bound from its children, from the current leaf back up to the root.
func (s *LbTreeSearch) propagateBoundsUp() {
	for i := len(s.path) - 1; i > 0; i-- {
		child := s.path[i]
		parent := s.path[i-1]
		n := &s.nodes[parent]
		childBound := s.nodes[child].bound()
		if n.trueChild == child && childBound > n.trueBound {
			n.trueBound = childBound
		}
		if n.falseChild == child && childBound > n.falseBound {
			n.falseBound = childBound
		}
	}
}

// backtrackToFrontier implements step 4: unwind the dive path up to the
// shallowest node whose bound still equals the global objective lower
// bound (deeper nodes only reflect local, not yet globally-tight, bounds).
func (s *LbTreeSearch) backtrackToFrontier() {
	cut := 0
	for i, idx := range s.path {
		if s.nodes[idx].bound() == s.Objective.LB {
			cut = i
			break
		}
	}
	s.sat.CancelUntil(s.baseLevel + cut + 1)
	s.path = s.path[:cut+1]
}

// exploitReducedCosts implements step 5's ExploitReducedCosts: for the
// variable the branch just taken constrains, read the LP's reduced cost
// at the optimum and tighten both of the node's conditional bounds by the
// amount the objective would have to rise to move that variable off its
// LP-optimal value, the standard reduced-cost bounding argument.
func (s *LbTreeSearch) exploitReducedCosts(node NodeIndex, v intvar.Variable) {
	n := &s.nodes[node]
	rc := s.lp.ReducedCost(v)
	if rc <= 0 {
		return
	}
	implied := int64(s.lp.ObjectiveLowerBound() + rc)
	if implied > n.trueBound {
		n.trueBound = implied
	}
	if implied > n.falseBound {
		n.falseBound = implied
	}
}

// dive implements step 5's descent: pick whichever child has the lower
// bound, breaking ties toward the node's last polarity, push its literal,
// and allocate a fresh node (solving the LP first to seed its bound and
// basis) if that child has never been explored.
func (s *LbTreeSearch) dive(ctx context.Context, leaf NodeIndex) (child NodeIndex, isNew bool, err error) {
	n := &s.nodes[leaf]
	wantTrue := n.trueBound < n.falseBound || (n.trueBound == n.falseBound && n.polarity)
	n.polarity = wantTrue

	child = n.falseChild
	lit := n.lit.Opposite()
	if wantTrue {
		child = n.trueChild
		lit = n.lit
	}

	if child != noNode {
		s.path = append(s.path, child)
		s.sat.Assume(lit)
		return child, false, nil
	}

	s.loadBestBasis()
	if _, err := s.lp.Solve(ctx); err != nil {
		return noNode, false, err
	}
	bound := int64(s.lp.ObjectiveLowerBound())
	if bound < s.Objective.LB {
		bound = s.Objective.LB
	}

	newIdx := s.newNode(leaf, lit, bound)
	s.nodes[newIdx].hasBasis = true
	s.nodes[newIdx].basisTimestamp = s.lp.ChangeCounter()
	s.nodes[newIdx].basis = s.lp.Basis()
	if wantTrue {
		s.nodes[leaf].trueChild = newIdx
	} else {
		s.nodes[leaf].falseChild = newIdx
	}

	s.path = append(s.path, newIdx)
	s.sat.Assume(lit)
	return newIdx, true, nil
}

// loadBestBasis walks the current dive path from leaf to root looking for
// the closest ancestor with a basis still valid under the relaxation's
// current ChangeCounter, and warm-starts the LP from it. Mirrors
// EnableLpAndLoadBestBasis/NodeHasUpToDateBasis: a stale basis (captured
// before the relaxation's constraints last changed) is skipped rather than
// loaded, since warm-starting from it could mislead the simplex.
func (s *LbTreeSearch) loadBestBasis() {
	counter := s.lp.ChangeCounter()
	for i := len(s.path) - 1; i >= 0; i-- {
		n := &s.nodes[s.path[i]]
		if n.hasBasis && n.basisTimestamp == counter {
			s.lp.LoadBasis(n.basis)
			return
		}
	}
}

// literalViewer is the subset of Encoder that ExploitReducedCosts needs to
// recover which integer variable a decision literal constrains; not every
// Encoder need support it, so it is an optional capability checked with a
// type assertion rather than added to the Encoder interface itself.
type literalViewer interface {
	GetLiteralView(l trail.Literal) (intvar.Variable, bool)
}

// markChildInfeasible records that child can never be dived into again
// (its branch was just proven infeasible by propagation), and bubbles
// that fact up through ancestors whenever it leaves both of a node's
// branches infeasible, all the way to the root if the whole tree dies.
// Returns true iff the root itself ends up fully infeasible, meaning the
// problem as a whole has no solution.
func (s *LbTreeSearch) markChildInfeasible(parent, child NodeIndex) bool {
	for parent != noNode {
		p := &s.nodes[parent]
		if p.trueChild == child {
			p.trueBound = infeasibleBound
		}
		if p.falseChild == child {
			p.falseBound = infeasibleBound
		}
		if p.bound() < infeasibleBound {
			return false
		}
		child = parent
		parent = p.parent
	}
	return true
}

// learnChain implements step 6: on a conflict, run conflict analysis and
// fold the resulting backjump into the tree by truncating the dive path to
// the surviving prefix rather than unwinding it node-by-node — the same
// outcome a first-UIP walk over per-literal decision levels would produce,
// since every node below the truncation point is simply abandoned and
// re-dived from the fresh decision level. Returns true if the conflict
// could not be resolved above baseLevel, meaning the whole tree (not just
// the current branch) is infeasible.
func (s *LbTreeSearch) learnChain(c conflict) bool {
	learnt, backtrackLevel := c.analyze(s.sat)
	if backtrackLevel < s.baseLevel {
		backtrackLevel = s.baseLevel
	}
	s.sat.CancelUntil(backtrackLevel)
	s.sat.Record(learnt)
	if backtrackLevel <= s.baseLevel {
		s.path = s.path[:0]
		s.root = noNode
		return true
	}
	cut := backtrackLevel - s.baseLevel - 1
	if cut >= len(s.path) {
		cut = len(s.path) - 1
	}
	s.path = s.path[:cut+1]
	return false
}

// Solve runs LbTreeSearch's main loop until the objective's lower bound
// meets its upper bound (optimal), propagation proves infeasibility, or
// maxDecisions decisions have been made (0 means unbounded).
func (s *LbTreeSearch) Solve(ctx context.Context) (Outcome, error) {
	if !s.baseSet {
		s.baseLevel = s.sat.DecisionLevel()
		s.baseSet = true
	}

	var decisions int64
	for {
		if s.opts.MaxDecisions > 0 && decisions >= s.opts.MaxDecisions {
			return OutcomeUnknown, nil
		}
		if s.Objective.HasUB && s.Objective.LB >= s.Objective.UB {
			return OutcomeOptimal, nil
		}

		if s.root != noNode && s.shouldRestart() {
			s.fullRestart()
		}
		if s.root == noNode {
			lit, ok := s.decide.NextDecision(s.it)
			if !ok {
				return OutcomeOptimal, nil
			}
			if _, err := s.lp.Solve(ctx); err != nil {
				return OutcomeUnknown, err
			}
			bound := int64(s.lp.ObjectiveLowerBound())
			if bound < s.Objective.LB {
				bound = s.Objective.LB
			}
			s.root = s.newNode(noNode, s.enc.GetOrCreateAssociatedLiteral(lit), bound)
			s.nodes[s.root].hasBasis = true
			s.nodes[s.root].basisTimestamp = s.lp.ChangeCounter()
			s.nodes[s.root].basis = s.lp.Basis()
			s.path = append(s.path[:0], s.root)
		}

		s.propagateBoundsUp()
		s.backtrackToFrontier()

		leaf := s.path[len(s.path)-1]
		if s.nodes[leaf].bound() > s.Objective.LB {
			s.Objective.LB = s.nodes[leaf].bound()
			if s.Objective.HasUB && s.Objective.LB >= s.Objective.UB {
				return OutcomeOptimal, nil
			}
		}

		next, isNew, err := s.dive(ctx, leaf)
		if err != nil {
			return OutcomeUnknown, err
		}
		decisions++
		s.numDecisionsSinceRestart++

		c := fixpoint(s.sat, s.it, s.w)
		if c.isConflict() {
			if isNew && s.markChildInfeasible(leaf, next) {
				s.sat.CancelUntil(s.baseLevel)
				return OutcomeInfeasible, nil
			}
			if s.learnChain(c) {
				return OutcomeInfeasible, nil
			}
			continue
		}

		if isNew {
			if lv, ok := s.enc.(literalViewer); ok {
				if v, has := lv.GetLiteralView(s.nodes[next].lit); has {
					s.exploitReducedCosts(next, v)
				}
			}
		}
	}
}
