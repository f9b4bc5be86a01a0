// Package pseudocosts implements PseudoCosts, the branching heuristic
// spec.md §4.7 describes: running per-variable, per-direction averages of
// how much a decision raised the objective lower bound, used both to pick
// which variable to branch on and which side to try first. It implements
// optimize.DecisionHeuristic so it can be handed directly to
// CoreBasedOptimizer and LbTreeSearch, grounded on
// original_source/ortools/sat/pseudo_costs.h's BeforeDecision/AfterDecision
// pairing.
package pseudocosts

import (
	"github.com/rhartert/yagh"
	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/optimize"
)

const (
	down = 0
	up   = 1
)

// PseudoCosts tracks running cost averages for a pool of variables
// registered via Track, and implements optimize.DecisionHeuristic over
// them.
type PseudoCosts struct {
	threshold int
	epsilon   float64

	pool []intvar.Variable

	sumDelta [2]map[intvar.Variable]float64
	numRec   [2]map[intvar.Variable]int

	pending    bool
	pendingVar intvar.Variable
	pendingDir int
	beforeLB   int64
}

// New returns a PseudoCosts that treats a variable as "relevant" (eligible
// for score-based selection rather than pure exploration) once it has
// accumulated at least threshold total records across both directions.
// epsilon is the floor applied to a direction with no records yet, so a
// variable with data on only one side still gets a finite score.
func New(threshold int, epsilon float64) *PseudoCosts {
	return &PseudoCosts{
		threshold: threshold,
		epsilon:   epsilon,
		sumDelta:  [2]map[intvar.Variable]float64{{}, {}},
		numRec:    [2]map[intvar.Variable]int{{}, {}},
	}
}

// Track adds vars to the candidate pool NextDecision selects from.
func (p *PseudoCosts) Track(vars ...intvar.Variable) {
	p.pool = append(p.pool, vars...)
}

func (p *PseudoCosts) expectedCost(v intvar.Variable, dir int) float64 {
	n := p.numRec[dir][v]
	if n == 0 {
		return p.epsilon
	}
	avg := p.sumDelta[dir][v] / float64(n)
	if avg < p.epsilon {
		return p.epsilon
	}
	return avg
}

func (p *PseudoCosts) score(v intvar.Variable) float64 {
	return p.expectedCost(v, down) * p.expectedCost(v, up)
}

// NextDecision implements optimize.DecisionHeuristic: it picks the first
// not-yet-relevant variable in the pool to keep gathering statistics on,
// and otherwise the relevant variable with the highest
// max(epsilon,cost+)*max(epsilon,cost-) score, branching toward whichever
// side has the smaller expected cost.
func (p *PseudoCosts) NextDecision(it optimize.IntegerTrail) (intvar.Literal, bool) {
	sel := yagh.New[float64](len(p.pool))
	hasCandidate := false

	var exploreVar intvar.Variable
	hasExplore := false

	for i, v := range p.pool {
		if it.IsFixed(v) {
			continue
		}
		total := p.numRec[down][v] + p.numRec[up][v]
		if total < p.threshold {
			if !hasExplore {
				exploreVar = v
				hasExplore = true
			}
			continue
		}
		sel.Put(i, -p.score(v))
		hasCandidate = true
	}

	var v intvar.Variable
	switch {
	case hasExplore:
		v = exploreVar
	case hasCandidate:
		e, ok := sel.Pop()
		if !ok {
			return intvar.Literal{}, false
		}
		v = p.pool[e.Elem]
	default:
		return intvar.Literal{}, false
	}

	lo, hi := it.LowerBound(v), it.UpperBound(v)
	mid := lo + (hi-lo)/2

	p.pendingVar = v
	p.pending = true

	if p.expectedCost(v, down) <= p.expectedCost(v, up) {
		p.pendingDir = down
		return intvar.LE(v, mid), true
	}
	p.pendingDir = up
	return intvar.GE(v, mid+1), true
}

// BeforeDecision snapshots the objective lower bound just before a
// decision is assumed; the caller (CoreBasedOptimizer or LbTreeSearch) is
// responsible for calling this immediately before propagating the literal
// NextDecision returned.
func (p *PseudoCosts) BeforeDecision(objLB int64) {
	p.beforeLB = objLB
}

// AfterDecision records how much the objective lower bound rose since the
// matching BeforeDecision call, crediting the variable and direction
// NextDecision last chose.
func (p *PseudoCosts) AfterDecision(newObjLB int64) {
	if !p.pending {
		return
	}
	p.pending = false

	delta := newObjLB - p.beforeLB
	if delta <= 0 {
		return
	}
	p.sumDelta[p.pendingDir][p.pendingVar] += float64(delta)
	p.numRec[p.pendingDir][p.pendingVar]++
}
