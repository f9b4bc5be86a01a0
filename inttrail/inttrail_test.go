package inttrail

import (
	"testing"

	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/trail"
)

func newTestSetup() (*trail.Trail, *IntegerTrail) {
	sat := trail.New(trail.DefaultOptions)
	it := New(sat, DefaultOptions)
	return sat, it
}

func TestIntegerTrail_AddIntegerVariable_SeedsBounds(t *testing.T) {
	_, it := newTestSetup()
	v, err := it.AddIntegerVariable(intvar.New(3, 9))
	if err != nil {
		t.Fatalf("AddIntegerVariable: %v", err)
	}
	if got := it.LowerBound(v); got != 3 {
		t.Errorf("LowerBound = %d, want 3", got)
	}
	if got := it.UpperBound(v); got != 9 {
		t.Errorf("UpperBound = %d, want 9", got)
	}
	if it.IsFixed(v) {
		t.Errorf("IsFixed = true, want false")
	}
}

func TestIntegerTrail_AddIntegerVariable_EmptyDomainErrors(t *testing.T) {
	_, it := newTestSetup()
	if _, err := it.AddIntegerVariable(intvar.Empty()); err == nil {
		t.Errorf("AddIntegerVariable(Empty()) = nil error, want error")
	}
}

// TestIntegerTrail_EnqueueAndBacktrack exercises the push-then-backtrack
// lifecycle: a bound pushed at decision level 1 is visible until the trail
// is unwound back to level 0, at which point it reverts.
func TestIntegerTrail_EnqueueAndBacktrack(t *testing.T) {
	sat, it := newTestSetup()
	v, err := it.AddIntegerVariable(intvar.New(0, 10))
	if err != nil {
		t.Fatalf("AddIntegerVariable: %v", err)
	}

	d := sat.AddVariable()
	sat.Assume(trail.PositiveLiteral(d))

	if ok := it.Enqueue(intvar.GE(v, 5), nil, nil); !ok {
		t.Fatalf("Enqueue([v>=5]) = false, want true")
	}
	if got := it.LowerBound(v); got != 5 {
		t.Errorf("LowerBound after push = %d, want 5", got)
	}

	sat.CancelUntil(0)
	if got := it.LowerBound(v); got != 0 {
		t.Errorf("LowerBound after backtrack = %d, want 0", got)
	}
}

// TestIntegerTrail_Enqueue_AlreadySatisfied checks step 2 of the Enqueue
// algorithm: pushing a weaker bound than the current one is a no-op.
func TestIntegerTrail_Enqueue_AlreadySatisfied(t *testing.T) {
	sat, it := newTestSetup()
	v, _ := it.AddIntegerVariable(intvar.New(0, 10))
	sat.Assume(trail.PositiveLiteral(sat.AddVariable()))

	if !it.Enqueue(intvar.GE(v, 6), nil, nil) {
		t.Fatalf("first Enqueue failed")
	}
	if !it.Enqueue(intvar.GE(v, 4), nil, nil) {
		t.Fatalf("Enqueue with weaker bound should be a no-op success")
	}
	if got := it.LowerBound(v); got != 6 {
		t.Errorf("LowerBound = %d, want 6 (unchanged)", got)
	}
}

// TestIntegerTrail_Enqueue_CanonicalizesIntoHole exercises step 1 (canonical
// form): pushing into the middle of a hole snaps to the next in-domain
// value.
func TestIntegerTrail_Enqueue_CanonicalizesIntoHole(t *testing.T) {
	sat, it := newTestSetup()
	v, err := it.AddIntegerVariable(intvar.FromIntervals([]intvar.Interval{{Min: 0, Max: 4}, {Min: 8, Max: 12}}))
	if err != nil {
		t.Fatalf("AddIntegerVariable: %v", err)
	}
	sat.Assume(trail.PositiveLiteral(sat.AddVariable()))

	if !it.Enqueue(intvar.GE(v, 6), nil, nil) {
		t.Fatalf("Enqueue([v>=6]) should succeed by snapping to 8")
	}
	if got := it.LowerBound(v); got != 8 {
		t.Errorf("LowerBound = %d, want 8 (snapped out of hole)", got)
	}
}

// TestIntegerTrail_Enqueue_CrossingUpperBoundConflicts exercises step 3: a
// push beyond the current upper bound reports a conflict and populates
// Conflict().
func TestIntegerTrail_Enqueue_CrossingUpperBoundConflicts(t *testing.T) {
	sat, it := newTestSetup()
	v, _ := it.AddIntegerVariable(intvar.New(0, 5))
	d := sat.AddVariable()
	sat.Assume(trail.PositiveLiteral(d))
	guard := trail.PositiveLiteral(sat.AddVariable())

	if it.Enqueue(intvar.GE(v, 6), []trail.Literal{guard}, nil) {
		t.Fatalf("Enqueue([v>=6]) should conflict when ub(v) = 5")
	}
	if it.Conflict() == nil {
		t.Errorf("Conflict() = nil after a failed Enqueue")
	}
}

// TestIntegerTrail_AppendNewBounds_ReportsModifiedVariables exercises
// AppendNewBounds and ModifiedVariables together.
func TestIntegerTrail_AppendNewBounds_ReportsModifiedVariables(t *testing.T) {
	sat, it := newTestSetup()
	v1, _ := it.AddIntegerVariable(intvar.New(0, 10))
	v2, _ := it.AddIntegerVariable(intvar.New(0, 10))
	sat.Assume(trail.PositiveLiteral(sat.AddVariable()))

	it.Enqueue(intvar.GE(v1, 3), nil, nil)

	mods := it.ModifiedVariables()
	if len(mods) != 1 || mods[0] != v1 {
		t.Errorf("ModifiedVariables() = %v, want [%v]", mods, v1)
	}

	var out []intvar.Literal
	it.AppendNewBounds(&out)
	if len(out) != 2 {
		t.Fatalf("AppendNewBounds appended %d literals, want 2", len(out))
	}

	it.Enqueue(intvar.GE(v2, 1), nil, nil)
	if got := it.ModifiedVariables(); len(got) != 1 || got[0] != v2 {
		t.Errorf("ModifiedVariables() after consuming = %v, want [%v]", got, v2)
	}
}

// TestIntegerTrail_ReasonFor_RecoversEagerChain builds a short chain of
// pushes where each bound's reason cites the previous one, and checks that
// ReasonFor flattens the whole chain down to the original decision literal.
func TestIntegerTrail_ReasonFor_RecoversEagerChain(t *testing.T) {
	sat, it := newTestSetup()
	v1, _ := it.AddIntegerVariable(intvar.New(0, 10))
	v2, _ := it.AddIntegerVariable(intvar.New(0, 10))

	dVar := sat.AddVariable()
	decision := trail.PositiveLiteral(dVar)
	sat.Assume(decision)

	if !it.Enqueue(intvar.GE(v1, 4), []trail.Literal{decision.Opposite()}, nil) {
		t.Fatalf("Enqueue(v1>=4) failed")
	}
	if !it.Enqueue(intvar.GE(v2, 4), nil, []intvar.Literal{intvar.GE(v1, 4)}) {
		t.Fatalf("Enqueue(v2>=4) failed")
	}

	got := it.ReasonFor(intvar.GE(v2, 4))
	found := false
	for _, l := range got {
		if l == decision {
			found = true
		}
	}
	if !found {
		t.Errorf("ReasonFor(v2>=4) = %v, want to include the original decision literal %v", got, decision)
	}
}

// TestIntegerTrail_Untrail_RestoresLevelZeroBounds checks multi-level
// backtracking restores intermediate bounds correctly.
func TestIntegerTrail_Untrail_RestoresLevelZeroBounds(t *testing.T) {
	sat, it := newTestSetup()
	v, _ := it.AddIntegerVariable(intvar.New(0, 20))

	sat.Assume(trail.PositiveLiteral(sat.AddVariable()))
	it.Enqueue(intvar.GE(v, 5), nil, nil)

	sat.Assume(trail.PositiveLiteral(sat.AddVariable()))
	it.Enqueue(intvar.GE(v, 10), nil, nil)

	sat.CancelUntil(1)
	if got := it.LowerBound(v); got != 5 {
		t.Errorf("LowerBound after partial backtrack = %d, want 5", got)
	}

	sat.CancelUntil(0)
	if got := it.LowerBound(v); got != 0 {
		t.Errorf("LowerBound after full backtrack = %d, want 0", got)
	}
}

func TestIntegerTrail_UpdateInitialDomain_Tightens(t *testing.T) {
	_, it := newTestSetup()
	v, _ := it.AddIntegerVariable(intvar.New(0, 10))

	if err := it.UpdateInitialDomain(v, intvar.New(3, 7)); err != nil {
		t.Fatalf("UpdateInitialDomain: %v", err)
	}
	if got := it.LowerBound(v); got != 3 {
		t.Errorf("LowerBound = %d, want 3", got)
	}
	if got := it.UpperBound(v); got != 7 {
		t.Errorf("UpperBound = %d, want 7", got)
	}
}

func TestIntegerTrail_UpdateInitialDomain_EmptyResultMarksUnsat(t *testing.T) {
	sat, it := newTestSetup()
	v, _ := it.AddIntegerVariable(intvar.New(0, 10))

	if err := it.UpdateInitialDomain(v, intvar.New(20, 30)); err == nil {
		t.Fatalf("UpdateInitialDomain should fail on an empty result")
	}
	if !sat.Unsat() {
		t.Errorf("sat.Unsat() = false, want true after an empty UpdateInitialDomain")
	}
}

func TestIntegerTrail_RelaxLinearReason_WeakensWithinSlack(t *testing.T) {
	_, it := newTestSetup()
	v, _ := it.AddIntegerVariable(intvar.New(0, 100))

	lits := []intvar.Literal{intvar.GE(v, 50)}
	coeffs := []int64{2}
	relaxed := it.RelaxLinearReason(10, coeffs, lits)

	if len(relaxed) != 1 {
		t.Fatalf("RelaxLinearReason returned %d literals, want 1", len(relaxed))
	}
	if relaxed[0].Bound >= lits[0].Bound {
		t.Errorf("RelaxLinearReason did not weaken the bound: got %v, original %v", relaxed[0], lits[0])
	}
	if relaxed[0].Bound < 0 {
		t.Errorf("RelaxLinearReason weakened below the level-zero floor: %v", relaxed[0])
	}
}
