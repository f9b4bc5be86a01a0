package optimize

import (
	"testing"

	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/trail"
)

// objFakeTrail is a minimal optimize.IntegerTrail stand-in, keyed only by
// each variable's canonical (non-negated) id: every query and push is
// translated through the negation the same way inttrail.IntegerTrail
// relates ub(v) to lb(not v), so a test can push bounds on either view and
// see it reflected consistently on the other.
type objFakeTrail struct {
	domains map[intvar.Variable]intvar.Domain
	failed  bool
}

func newObjFakeTrail() *objFakeTrail {
	return &objFakeTrail{domains: map[intvar.Variable]intvar.Domain{}}
}

func (f *objFakeTrail) canon(v intvar.Variable) intvar.Variable {
	if v.IsNegation() {
		return v.Negation()
	}
	return v
}

func (f *objFakeTrail) LowerBound(v intvar.Variable) int64 {
	d := f.domains[f.canon(v)]
	if v.IsNegation() {
		return -d.Max()
	}
	return d.Min()
}

func (f *objFakeTrail) UpperBound(v intvar.Variable) int64 {
	d := f.domains[f.canon(v)]
	if v.IsNegation() {
		return -d.Min()
	}
	return d.Max()
}

func (f *objFakeTrail) IsFixed(v intvar.Variable) bool { return f.domains[f.canon(v)].IsFixed() }

func (f *objFakeTrail) Domain(v intvar.Variable) intvar.Domain {
	d := f.domains[f.canon(v)]
	if v.IsNegation() {
		return d.Negation()
	}
	return d
}

func (f *objFakeTrail) Conflict() []trail.Literal { return nil }

func (f *objFakeTrail) Enqueue(lit intvar.Literal, _ []trail.Literal, _ []intvar.Literal) bool {
	c := f.canon(lit.Var)
	d := f.domains[c]
	newLo, newHi := d.Min(), d.Max()
	if lit.Var.IsNegation() {
		newHi = -lit.Bound
	} else {
		newLo = lit.Bound
	}
	if newLo > newHi {
		f.failed = true
		return false
	}
	nd := intvar.New(newLo, newHi)
	if nd.IsEmpty() {
		f.failed = true
		return false
	}
	f.domains[c] = nd
	return true
}

func (f *objFakeTrail) ReportConflict(_ []trail.Literal, _ []intvar.Literal) bool {
	f.failed = true
	return false
}

func (f *objFakeTrail) AddIntegerVariable(d intvar.Domain) (intvar.Variable, error) {
	v := intvar.Variable(2 * len(f.domains))
	f.domains[v] = d
	return v, nil
}

func TestObjective_PropagateObjectiveBounds_RaisesLowerBound(t *testing.T) {
	it := newObjFakeTrail()
	v0, _ := it.AddIntegerVariable(intvar.New(2, 10))
	v1, _ := it.AddIntegerVariable(intvar.New(3, 10))

	o := &Objective{}
	o.AddTerm(v0, 2)
	o.AddTerm(v1, 5)

	changed, ok := o.PropagateObjectiveBounds(it)
	if !ok {
		t.Fatalf("PropagateObjectiveBounds() ok = false, want true")
	}
	if !changed {
		t.Errorf("PropagateObjectiveBounds() changed = false, want true")
	}
	if want := int64(2*2 + 5*3); o.LB != want {
		t.Errorf("LB = %d, want %d", o.LB, want)
	}
}

func TestObjective_PropagateObjectiveBounds_HardensUpperBounds(t *testing.T) {
	it := newObjFakeTrail()
	v0, _ := it.AddIntegerVariable(intvar.New(0, 10))
	v1, _ := it.AddIntegerVariable(intvar.New(0, 10))

	o := &Objective{}
	o.AddTerm(v0, 1)
	o.AddTerm(v1, 1)
	o.SetUpperBound(5) // total value must stay <= 5

	if _, ok := o.PropagateObjectiveBounds(it); !ok {
		t.Fatalf("PropagateObjectiveBounds() ok = false, want true")
	}
	// Each term, with the other pinned at lb 0, may rise at most to the
	// gap (5) above its own lb.
	if got := it.UpperBound(v0); got != 5 {
		t.Errorf("UpperBound(v0) = %d, want 5", got)
	}
	if got := it.UpperBound(v1); got != 5 {
		t.Errorf("UpperBound(v1) = %d, want 5", got)
	}
}

func TestObjective_PropagateObjectiveBounds_ConflictWhenGapNegative(t *testing.T) {
	it := newObjFakeTrail()
	v0, _ := it.AddIntegerVariable(intvar.New(10, 20))

	o := &Objective{}
	o.AddTerm(v0, 1)
	o.SetUpperBound(5) // lb is already 10 > ub 5

	if _, ok := o.PropagateObjectiveBounds(it); ok {
		t.Errorf("PropagateObjectiveBounds() ok = true, want false (gap < 0)")
	}
}

func TestObjective_PresolveAtMostOne_FoldsLowerWeightsIntoOffset(t *testing.T) {
	it := newObjFakeTrail()
	v0, _ := it.AddIntegerVariable(intvar.New(0, 1))
	v1, _ := it.AddIntegerVariable(intvar.New(0, 1))
	v2, _ := it.AddIntegerVariable(intvar.New(0, 1))

	o := &Objective{}
	o.AddTerm(v0, 3)
	o.AddTerm(v1, 7)
	o.AddTerm(v2, 5)

	o.PresolveAtMostOne([]int{0, 1, 2})

	if len(o.Terms) != 1 {
		t.Fatalf("len(Terms) = %d, want 1", len(o.Terms))
	}
	if o.Terms[0].Var != v1 || o.Terms[0].Weight != 7 {
		t.Errorf("surviving term = %+v, want {Var: %v, Weight: 7}", o.Terms[0], v1)
	}
	if o.Offset != 3+5 {
		t.Errorf("Offset = %d, want %d", o.Offset, 3+5)
	}
}
