package trail

import "testing"

func newTestTrail(nVars int) *Trail {
	tr := New(DefaultOptions)
	for i := 0; i < nVars; i++ {
		tr.AddVariable()
	}
	return tr
}

func TestTrail_UnitPropagation(t *testing.T) {
	tr := newTestTrail(2)
	// (x0 v x1), x0 = false => x1 forced true.
	if err := tr.AddClause([]Literal{PositiveLiteral(0), PositiveLiteral(1)}); err != nil {
		t.Fatal(err)
	}
	tr.Assume(NegativeLiteral(0))
	if c := tr.Propagate(); c != nil {
		t.Fatalf("unexpected conflict: %v", c)
	}
	if got := tr.VarValue(1); got != True {
		t.Errorf("VarValue(1) = %v, want True", got)
	}
}

func TestTrail_ConflictAndBacktrack(t *testing.T) {
	tr := newTestTrail(4)
	// (x0 v x1), (!x1 v !x2 v x3), (!x1 v !x2 v !x3)
	must(t, tr.AddClause([]Literal{PositiveLiteral(0), PositiveLiteral(1)}))
	must(t, tr.AddClause([]Literal{NegativeLiteral(1), NegativeLiteral(2), PositiveLiteral(3)}))
	must(t, tr.AddClause([]Literal{NegativeLiteral(1), NegativeLiteral(2), NegativeLiteral(3)}))

	tr.Assume(NegativeLiteral(0)) // level 1: x0 = false => x1 = true (from clause 1)
	if c := tr.Propagate(); c != nil {
		t.Fatalf("unexpected conflict: %v", c)
	}
	tr.Assume(PositiveLiteral(2)) // level 2: x2 = true, with x1 = true clause 2 forces x3 and clause 3 forces !x3
	conf := tr.Propagate()
	if conf == nil {
		t.Fatalf("expected conflict, got none")
	}

	learnt, level := tr.Analyze(conf)
	if len(learnt) == 0 {
		t.Fatalf("Analyze returned an empty clause")
	}
	if level >= tr.DecisionLevel() {
		t.Fatalf("backtrack level %d should be below current level %d", level, tr.DecisionLevel())
	}

	tr.CancelUntil(level)
	if tr.DecisionLevel() != level {
		t.Fatalf("DecisionLevel() = %d, want %d", tr.DecisionLevel(), level)
	}
	tr.Record(learnt)
	if c := tr.Propagate(); c != nil {
		t.Fatalf("unexpected conflict after recording learnt clause: %v", c)
	}
}

func TestTrail_CancelUntil_RestoresAssignments(t *testing.T) {
	tr := newTestTrail(2)
	tr.Assume(PositiveLiteral(0))
	tr.Assume(PositiveLiteral(1))
	if tr.DecisionLevel() != 2 {
		t.Fatalf("DecisionLevel() = %d, want 2", tr.DecisionLevel())
	}
	tr.CancelUntil(0)
	if tr.DecisionLevel() != 0 {
		t.Fatalf("DecisionLevel() = %d, want 0", tr.DecisionLevel())
	}
	if tr.VarValue(0) != Unknown || tr.VarValue(1) != Unknown {
		t.Fatalf("expected both variables unassigned after CancelUntil(0)")
	}
}

func TestTrail_ReversibleInterface_NotifiedOnBacktrack(t *testing.T) {
	tr := newTestTrail(1)
	levels := []int{}
	tr.Register(reversibleFunc(func(level int) {
		levels = append(levels, level)
	}))
	tr.Assume(PositiveLiteral(0))
	tr.CancelUntil(0)
	if len(levels) != 1 || levels[0] != 0 {
		t.Fatalf("levels = %v, want [0]", levels)
	}
}

type reversibleFunc func(level int)

func (f reversibleFunc) SetLevel(level int) { f(level) }

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
