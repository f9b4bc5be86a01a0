package prop

import (
	"testing"

	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/trail"
)

type cumFakeTrail struct {
	domains map[intvar.Variable]intvar.Domain
	failed  bool
}

func (f *cumFakeTrail) LowerBound(v intvar.Variable) int64     { return f.domains[v].Min() }
func (f *cumFakeTrail) UpperBound(v intvar.Variable) int64     { return f.domains[v].Max() }
func (f *cumFakeTrail) IsFixed(v intvar.Variable) bool          { return f.domains[v].IsFixed() }
func (f *cumFakeTrail) Domain(v intvar.Variable) intvar.Domain { return f.domains[v] }

func (f *cumFakeTrail) Enqueue(lit intvar.Literal, _ []trail.Literal, _ []intvar.Literal) bool {
	return true
}

func (f *cumFakeTrail) ReportConflict(_ []trail.Literal, _ []intvar.Literal) bool {
	f.failed = true
	return false
}

func (f *cumFakeTrail) ReasonFor(lit intvar.Literal) []trail.Literal { return nil }

type cumFakeSat struct{}

func (cumFakeSat) LitValue(l trail.Literal) trail.LBool { return trail.Unknown }
func (cumFakeSat) EnqueuePropagated(l trail.Literal, _ []trail.Literal) bool { return true }

func TestHorizontallyElasticOverloadChecker_DetectsOverload(t *testing.T) {
	// Three tasks of demand 2 each all fixed to run in [0,2): total demand 6
	// over a window of length 2 needs capacity 3; capacity 2 overloads it.
	it := &cumFakeTrail{domains: map[intvar.Variable]intvar.Domain{
		0: intvar.New(0, 0), 1: intvar.New(2, 2),
		2: intvar.New(0, 0), 3: intvar.New(2, 2),
		4: intvar.New(0, 0), 5: intvar.New(2, 2),
	}}
	sat := cumFakeSat{}
	tasks := []CumulativeTask{
		{Interval: Interval{Start: 0, End: 1, Presence: trail.NoLiteral}, Demand: 2},
		{Interval: Interval{Start: 2, End: 3, Presence: trail.NoLiteral}, Demand: 2},
		{Interval: Interval{Start: 4, End: 5, Presence: trail.NoLiteral}, Demand: 2},
	}
	c := NewHorizontallyElasticOverloadChecker(it, sat, tasks, 2)

	if ok := c.Propagate(); ok {
		t.Fatalf("Propagate() = true, want false (demand 6 > capacity*span 4)")
	}
	if !it.failed {
		t.Errorf("ReportConflict was not called")
	}
}

func TestHorizontallyElasticOverloadChecker_NoOverloadWithCapacity(t *testing.T) {
	it := &cumFakeTrail{domains: map[intvar.Variable]intvar.Domain{
		0: intvar.New(0, 0), 1: intvar.New(2, 2),
		2: intvar.New(3, 3), 3: intvar.New(5, 5),
	}}
	sat := cumFakeSat{}
	tasks := []CumulativeTask{
		{Interval: Interval{Start: 0, End: 1, Presence: trail.NoLiteral}, Demand: 2},
		{Interval: Interval{Start: 2, End: 3, Presence: trail.NoLiteral}, Demand: 2},
	}
	c := NewHorizontallyElasticOverloadChecker(it, sat, tasks, 2)

	if ok := c.Propagate(); !ok {
		t.Fatalf("Propagate() = false, want true (disjoint windows, capacity suffices)")
	}
}
