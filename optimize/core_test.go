package optimize

import (
	"testing"

	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/trail"
)

func newTestCoreOptimizer(it *objFakeTrail) *CoreBasedOptimizer {
	sat := newSearchFakeSat()
	enc := newSearchFakeEncoder()
	decide := &searchFakeDecide{}
	return NewCoreBasedOptimizer(sat, it, nil, enc, decide, DefaultCoreOptions)
}

func TestCoreBasedOptimizer_MaxWeight(t *testing.T) {
	it := newObjFakeTrail()
	v0, _ := it.AddIntegerVariable(intvar.New(0, 10))
	v1, _ := it.AddIntegerVariable(intvar.New(0, 10))

	c := newTestCoreOptimizer(it)
	c.Objective.AddTerm(v0, 3)
	c.Objective.AddTerm(v1, 7)

	if got := c.maxWeight(); got != 7 {
		t.Errorf("maxWeight() = %d, want 7", got)
	}
}

func TestCoreBasedOptimizer_NonFixed_CountsOnlyUnfixedTerms(t *testing.T) {
	it := newObjFakeTrail()
	v0, _ := it.AddIntegerVariable(intvar.New(5, 5))
	v1, _ := it.AddIntegerVariable(intvar.New(0, 10))

	c := newTestCoreOptimizer(it)
	c.Objective.AddTerm(v0, 1)
	c.Objective.AddTerm(v1, 1)

	if got := c.nonFixed(); got != 1 {
		t.Errorf("nonFixed() = %d, want 1", got)
	}
}

func TestCoreBasedOptimizer_BuildAssumptions_SkipsFixedAndLightTerms(t *testing.T) {
	it := newObjFakeTrail()
	v0, _ := it.AddIntegerVariable(intvar.New(3, 3)) // fixed, excluded regardless of weight
	v1, _ := it.AddIntegerVariable(intvar.New(0, 10))
	v2, _ := it.AddIntegerVariable(intvar.New(0, 10))

	c := newTestCoreOptimizer(it)
	c.Objective.AddTerm(v0, 10)
	c.Objective.AddTerm(v1, 1) // below threshold, excluded
	c.Objective.AddTerm(v2, 5)

	lits, litToTerm := c.buildAssumptions(5)
	if len(lits) != 1 {
		t.Fatalf("len(lits) = %d, want 1", len(lits))
	}
	if idx, ok := litToTerm[lits[0]]; !ok || idx != 2 {
		t.Errorf("litToTerm[lits[0]] = (%d, %v), want (2, true)", idx, ok)
	}
}

func TestCoreBasedOptimizer_NextThreshold_FindsNextLowerWeight(t *testing.T) {
	it := newObjFakeTrail()
	v0, _ := it.AddIntegerVariable(intvar.New(0, 10))
	v1, _ := it.AddIntegerVariable(intvar.New(0, 10))

	c := newTestCoreOptimizer(it)
	c.Objective.AddTerm(v0, 8)
	c.Objective.AddTerm(v1, 3)

	if got := c.nextThreshold(8); got != 3 {
		t.Errorf("nextThreshold(8) = %d, want 3", got)
	}
}

func TestCoreBasedOptimizer_NextThreshold_ZeroWhenEverythingFixed(t *testing.T) {
	it := newObjFakeTrail()
	v0, _ := it.AddIntegerVariable(intvar.New(4, 4))

	c := newTestCoreOptimizer(it)
	c.Objective.AddTerm(v0, 8)

	if got := c.nextThreshold(8); got != 0 {
		t.Errorf("nextThreshold(8) = %d, want 0", got)
	}
}

func TestRemoveOne_DropsFirstMatchOnly(t *testing.T) {
	a := trail.PositiveLiteral(1)
	b := trail.PositiveLiteral(2)
	got := removeOne([]trail.Literal{a, b, a}, a)
	if len(got) != 2 || got[0] != b || got[1] != a {
		t.Errorf("removeOne() = %v, want [%v %v]", got, b, a)
	}
}

func TestCoreBasedOptimizer_LearnCore_SingletonRaisesLowerBound(t *testing.T) {
	it := newObjFakeTrail()
	v0, _ := it.AddIntegerVariable(intvar.New(0, 10))

	c := newTestCoreOptimizer(it)
	c.Objective.AddTerm(v0, 1)

	l := trail.PositiveLiteral(99)
	ok := c.learnCore([]trail.Literal{l}, map[trail.Literal]int{l: 0})
	if !ok {
		t.Fatalf("learnCore() = false, want true")
	}
	if got := it.LowerBound(v0); got != 1 {
		t.Errorf("LowerBound(v0) = %d, want 1", got)
	}
}

func TestCoreBasedOptimizer_LearnCore_UnrecognizedLiteralsAreNoOp(t *testing.T) {
	it := newObjFakeTrail()
	v0, _ := it.AddIntegerVariable(intvar.New(0, 10))

	c := newTestCoreOptimizer(it)
	c.Objective.AddTerm(v0, 1)

	l := trail.PositiveLiteral(42)
	ok := c.learnCore([]trail.Literal{l}, map[trail.Literal]int{})
	if !ok {
		t.Fatalf("learnCore() = false, want true")
	}
	if got := it.LowerBound(v0); got != 0 {
		t.Errorf("LowerBound(v0) = %d, want unchanged at 0", got)
	}
}
