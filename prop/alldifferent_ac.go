package prop

import (
	"sort"

	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/trail"
	"github.com/rhartert/yasscp/watch"
)

type acEdge struct {
	valIdx int
	lit    trail.Literal
}

// AllDifferentAC enforces arc-consistent all-different over a set of
// variables via bipartite matching and strongly-connected-component
// analysis on the residual graph.
type AllDifferentAC struct {
	it  IntegerTrail
	sat SatTrail

	vars []intvar.Variable

	valueOf []int64
	indexOf map[int64]int

	edges [][]acEdge

	matchVarToVal []int // edge index into edges[v], or -1
	matchValToVar []int // variable index, or -1

	// scratch state, reused across calls.
	visitedVar  []bool
	visitedVal  []bool
	sccIndex    []int
	sccLow      []int
	sccID       []int
	sccStack   []int
	sccOnStack []bool
	sccCounter int
	sccNext    int

	// NumFailures counts how many times Propagate detected a Hall-set
	// violation, NumPropagations how many edges it pruned via the SCC pass.
	NumFailures     int
	NumPropagations int
}

// NewAllDifferentAC builds an AllDifferentAC propagator over vars, with
// valueOf(v) -> domain value translation handled internally from each
// variable's declared domain.
func NewAllDifferentAC(it IntegerTrail, sat SatTrail, vars []intvar.Variable, edgeLiteral func(intvar.Variable, int64) trail.Literal) *AllDifferentAC {
	ac := &AllDifferentAC{
		it:      it,
		sat:     sat,
		vars:    append([]intvar.Variable(nil), vars...),
		indexOf: map[int64]int{},
	}

	valueSet := map[int64]bool{}
	for _, v := range vars {
		for _, iv := range it.Domain(v).Intervals() {
			for k := iv.Min; k <= iv.Max; k++ {
				valueSet[k] = true
			}
		}
	}
	values := make([]int64, 0, len(valueSet))
	for k := range valueSet {
		values = append(values, k)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	ac.valueOf = values
	for i, k := range values {
		ac.indexOf[k] = i
	}

	ac.edges = make([][]acEdge, len(vars))
	for i, v := range vars {
		d := it.Domain(v)
		for _, iv := range d.Intervals() {
			for k := iv.Min; k <= iv.Max; k++ {
				ac.edges[i] = append(ac.edges[i], acEdge{valIdx: ac.indexOf[k], lit: edgeLiteral(v, k)})
			}
		}
	}

	n := len(vars)
	ac.matchVarToVal = make([]int, n)
	for i := range ac.matchVarToVal {
		ac.matchVarToVal[i] = -1
	}
	ac.matchValToVar = make([]int, len(values))
	for i := range ac.matchValToVar {
		ac.matchValToVar[i] = -1
	}
	ac.visitedVar = make([]bool, n)
	ac.visitedVal = make([]bool, len(values))
	ac.sccIndex = make([]int, n+len(values))
	ac.sccLow = make([]int, n+len(values))
	ac.sccID = make([]int, n+len(values))
	ac.sccOnStack = make([]bool, n+len(values))

	return ac
}

func (ac *AllDifferentAC) RegisterWith(w *watch.Watcher) {
	id := w.Register(ac)
	for i := range ac.vars {
		for _, e := range ac.edges[i] {
			if e.lit != trail.NoLiteral {
				w.WatchLiteral(e.lit, id, -1)
				w.WatchLiteral(e.lit.Opposite(), id, -1)
			}
		}
	}
}

func (ac *AllDifferentAC) IncrementalPropagate(_ []int) bool { return ac.Propagate() }

// activeEdges returns i's edges whose literal is not currently false.
func (ac *AllDifferentAC) activeEdges(i int) []acEdge {
	out := ac.edges[i][:0:0]
	for _, e := range ac.edges[i] {
		if e.lit == trail.NoLiteral || ac.sat.LitValue(e.lit) != trail.False {
			out = append(out, e)
		}
	}
	return out
}

func (ac *AllDifferentAC) Propagate() bool {
	n := len(ac.vars)
	if n <= 1 {
		return true
	}

	active := make([][]acEdge, n)
	for i := range ac.vars {
		active[i] = ac.activeEdges(i)
	}

	// Drop stale matches whose edge is no longer active.
	for i := range ac.matchVarToVal {
		if ac.matchVarToVal[i] < 0 {
			continue
		}
		valid := false
		for _, e := range active[i] {
			if e.valIdx == ac.matchVarToVal[i] {
				valid = true
				break
			}
		}
		if !valid {
			ac.matchValToVar[ac.matchVarToVal[i]] = -1
			ac.matchVarToVal[i] = -1
		}
	}

	for i := range ac.vars {
		if ac.matchVarToVal[i] >= 0 {
			continue
		}
		for j := range ac.visitedVar {
			ac.visitedVar[j] = false
		}
		for j := range ac.visitedVal {
			ac.visitedVal[j] = false
		}
		if !ac.augment(i, active) {
			ac.NumFailures++
			return ac.reportHallFailure()
		}
	}

	return ac.pruneViaSCC(active)
}

// augment tries to find an augmenting path from variable i using DFS.
func (ac *AllDifferentAC) augment(i int, active [][]acEdge) bool {
	ac.visitedVar[i] = true
	for _, e := range active[i] {
		if ac.visitedVal[e.valIdx] {
			continue
		}
		ac.visitedVal[e.valIdx] = true
		owner := ac.matchValToVar[e.valIdx]
		if owner < 0 || ac.augment(owner, active) {
			ac.matchVarToVal[i] = e.valIdx
			ac.matchValToVar[e.valIdx] = i
			return true
		}
	}
	return false
}

// excludedEdgesReason collects, over every variable i for which include(i)
// is true, the edges that are no longer part of the residual graph (their
// literal is currently false). Each is already false, so it can be used
// directly as a literalReason: had any of them not been excluded, the
// structural argument that follows would not hold.
func (ac *AllDifferentAC) excludedEdgesReason(include func(i int) bool) []trail.Literal {
	var litReason []trail.Literal
	for i, edges := range ac.edges {
		if !include(i) {
			continue
		}
		for _, e := range edges {
			if e.lit == trail.NoLiteral {
				continue
			}
			if ac.sat.LitValue(e.lit) == trail.False {
				litReason = append(litReason, e.lit)
			}
		}
	}
	return litReason
}

// reportHallFailure builds a conflict clause out of every edge excluded from
// the set of variables reached during the last failed augmenting search:
// that reached set could only ever expand into the values it visited, so if
// any of its excluded edges had not been ruled out, the augmenting search
// would have had another value to try.
func (ac *AllDifferentAC) reportHallFailure() bool {
	litReason := ac.excludedEdgesReason(func(i int) bool { return ac.visitedVar[i] })
	return ac.it.ReportConflict(litReason, nil)
}

// pruneViaSCC removes, for every variable x and possible value not in the
// same strongly connected component of the residual graph as x's matched
// edge, the edge between x and that value (forcing [x != val]).
func (ac *AllDifferentAC) pruneViaSCC(active [][]acEdge) bool {
	n := len(ac.vars)
	total := n + len(ac.valueOf)
	for i := 0; i < total; i++ {
		ac.sccIndex[i] = -1
		ac.sccID[i] = -1
		ac.sccOnStack[i] = false
	}
	ac.sccStack = ac.sccStack[:0]
	ac.sccCounter = 0
	ac.sccNext = 0

	// Node ids: [0, n) are variables, [n, n+numValues) are values.
	adj := func(node int) []int {
		if node < n {
			// variable -> matched value only (matched edge is the residual
			// "forward" arc out of a variable).
			if ac.matchVarToVal[node] >= 0 {
				return []int{n + ac.matchVarToVal[node]}
			}
			return nil
		}
		valIdx := node - n
		var out []int
		for i := range ac.vars {
			for _, e := range active[i] {
				if e.valIdx == valIdx && ac.matchVarToVal[i] != valIdx {
					out = append(out, i)
				}
			}
		}
		if ac.matchValToVar[valIdx] >= 0 {
			// A matched value links to every free value: its owner can be
			// rematched along an alternating path that ends in a free value.
			for f, owner := range ac.matchValToVar {
				if owner < 0 {
					out = append(out, n+f)
				}
			}
		}
		return out
	}

	var strongconnect func(v int)
	strongconnect = func(v int) {
		ac.sccIndex[v] = ac.sccCounter
		ac.sccLow[v] = ac.sccCounter
		ac.sccCounter++
		ac.sccStack = append(ac.sccStack, v)
		ac.sccOnStack[v] = true

		for _, w := range adj(v) {
			if ac.sccIndex[w] == -1 {
				strongconnect(w)
				if ac.sccLow[w] < ac.sccLow[v] {
					ac.sccLow[v] = ac.sccLow[w]
				}
			} else if ac.sccOnStack[w] {
				if ac.sccIndex[w] < ac.sccLow[v] {
					ac.sccLow[v] = ac.sccIndex[w]
				}
			}
		}

		if ac.sccLow[v] == ac.sccIndex[v] {
			for {
				w := ac.sccStack[len(ac.sccStack)-1]
				ac.sccStack = ac.sccStack[:len(ac.sccStack)-1]
				ac.sccOnStack[w] = false
				ac.sccID[w] = ac.sccNext
				if w == v {
					break
				}
			}
			ac.sccNext++
		}
	}

	for v := 0; v < total; v++ {
		if ac.sccIndex[v] == -1 {
			strongconnect(v)
		}
	}

	for i := range ac.vars {
		for _, e := range active[i] {
			if e.valIdx == ac.matchVarToVal[i] {
				continue
			}
			if ac.matchValToVar[e.valIdx] < 0 {
				// A free value is always reachable: i could be rematched to
				// it directly without disturbing any other variable.
				continue
			}
			if ac.sccID[i] == ac.sccID[n+e.valIdx] {
				continue
			}
			// x and this value are no longer arc-consistent: x != val.
			if e.lit == trail.NoLiteral {
				continue
			}
			var litReason []trail.Literal
			if ac.matchVarToVal[i] >= 0 {
				// x's own matched edge certifies x is already assigned
				// elsewhere, but only if that edge is actually true: AC
				// pruning routinely fires before any edge is assigned, so
				// the match itself is frequently just bookkeeping, not a
				// fact on the trail yet.
				if matchedLit := ac.findLit(i, ac.matchVarToVal[i]); matchedLit != trail.NoLiteral && ac.sat.LitValue(matchedLit) == trail.True {
					litReason = append(litReason, matchedLit.Opposite())
				}
			}
			if litReason == nil {
				// Fall back to the same structural argument as a Hall
				// failure, scoped to x's own strongly connected component:
				// the component is sealed off from val's component because
				// every edge that would have let it reach further is false.
				compID := ac.sccID[i]
				litReason = ac.excludedEdgesReason(func(j int) bool { return ac.sccID[j] == compID })
			}
			if ac.sat.LitValue(e.lit) == trail.True {
				return ac.it.ReportConflict(litReason, nil)
			}
			if !ac.sat.EnqueuePropagated(e.lit.Opposite(), litReason) {
				return false
			}
			ac.NumPropagations++
		}
	}
	return true
}

func (ac *AllDifferentAC) findLit(varIdx, valIdx int) trail.Literal {
	for _, e := range ac.edges[varIdx] {
		if e.valIdx == valIdx {
			return e.lit
		}
	}
	return trail.NoLiteral
}
