package prop

import (
	"testing"

	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/trail"
)

type disjFakeTrail struct {
	domains map[intvar.Variable]intvar.Domain
	failed  bool
}

func (f *disjFakeTrail) LowerBound(v intvar.Variable) int64     { return f.domains[v].Min() }
func (f *disjFakeTrail) UpperBound(v intvar.Variable) int64     { return f.domains[v].Max() }
func (f *disjFakeTrail) IsFixed(v intvar.Variable) bool          { return f.domains[v].IsFixed() }
func (f *disjFakeTrail) Domain(v intvar.Variable) intvar.Domain { return f.domains[v] }

func (f *disjFakeTrail) Enqueue(lit intvar.Literal, _ []trail.Literal, _ []intvar.Literal) bool {
	d := f.domains[lit.Var]
	nd := d
	if lit.Bound > d.Min() {
		nd = intvar.New(lit.Bound, d.Max())
	}
	if nd.IsEmpty() {
		f.failed = true
		return false
	}
	f.domains[lit.Var] = nd
	return true
}

func (f *disjFakeTrail) ReportConflict(_ []trail.Literal, _ []intvar.Literal) bool {
	f.failed = true
	return false
}

func (f *disjFakeTrail) ReasonFor(lit intvar.Literal) []trail.Literal { return nil }

type disjFakeSat struct {
	values map[trail.Literal]trail.LBool
}

func newDisjFakeSat() *disjFakeSat {
	return &disjFakeSat{values: map[trail.Literal]trail.LBool{}}
}

func (s *disjFakeSat) LitValue(l trail.Literal) trail.LBool {
	if v, ok := s.values[l]; ok {
		return v
	}
	return trail.Unknown
}

func (s *disjFakeSat) EnqueuePropagated(l trail.Literal, _ []trail.Literal) bool {
	if s.values[l.Opposite()] == trail.True {
		return false
	}
	s.values[l] = trail.True
	s.values[l.Opposite()] = trail.False
	return true
}

func TestDisjunctive_OverloadDetectsInfeasibility(t *testing.T) {
	// Task 0 occupies [0,3); task 1 starts by 1 and ends at 3 or later, so
	// it needs at least 2 units. Both must fit within [0,4): 3 + 2 > 4,
	// impossible.
	it := &disjFakeTrail{domains: map[intvar.Variable]intvar.Domain{
		0: intvar.New(0, 0), // start0
		1: intvar.New(3, 3), // end0 (fixed length 3)
		2: intvar.New(0, 1), // start1
		3: intvar.New(3, 4), // end1
	}}
	sat := newDisjFakeSat()
	tasks := []Interval{
		{Start: 0, End: 1, Presence: trail.NoLiteral},
		{Start: 2, End: 3, Presence: trail.NoLiteral},
	}
	d := NewDisjunctive(it, sat, tasks)

	if ok := d.Propagate(); ok {
		t.Fatalf("Propagate() = true, want false (overloaded window)")
	}
	if !it.failed {
		t.Errorf("ReportConflict was not called")
	}
}

func TestDisjunctive_DetectablePrecedencePushesEst(t *testing.T) {
	// Task 0 occupies [0,3); task 1 has est 0 but ends at 3 or later, so any
	// start before 3 would overlap task 0: its start must be pushed to 3.
	it := &disjFakeTrail{domains: map[intvar.Variable]intvar.Domain{
		0: intvar.New(0, 0),
		1: intvar.New(3, 3),
		2: intvar.New(0, 7),
		3: intvar.New(3, 10),
	}}
	sat := newDisjFakeSat()
	tasks := []Interval{
		{Start: 0, End: 1, Presence: trail.NoLiteral},
		{Start: 2, End: 3, Presence: trail.NoLiteral},
	}
	d := NewDisjunctive(it, sat, tasks)

	if ok := d.Propagate(); !ok {
		t.Fatalf("Propagate() = false, want true")
	}
	if got := it.LowerBound(2); got < 3 {
		t.Errorf("LowerBound(start1) = %d, want >= 3", got)
	}
}

func TestDisjunctive_NoConflictWithAmpleRoom(t *testing.T) {
	it := &disjFakeTrail{domains: map[intvar.Variable]intvar.Domain{
		0: intvar.New(0, 100),
		1: intvar.New(3, 103),
		2: intvar.New(0, 100),
		3: intvar.New(3, 103),
	}}
	sat := newDisjFakeSat()
	tasks := []Interval{
		{Start: 0, End: 1, Presence: trail.NoLiteral},
		{Start: 2, End: 3, Presence: trail.NoLiteral},
	}
	d := NewDisjunctive(it, sat, tasks)

	if ok := d.Propagate(); !ok {
		t.Fatalf("Propagate() = false, want true")
	}
}
