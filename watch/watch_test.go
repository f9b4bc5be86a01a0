package watch

import (
	"testing"

	"github.com/rhartert/yasscp/inttrail"
	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/trail"
)

// boundBumper is a minimal test propagator: each call it pushes v's lower
// bound up by one, until it reaches limit, then does nothing further.
type boundBumper struct {
	it    *inttrail.IntegerTrail
	v     intvar.Variable
	limit int64
	calls int
}

func (b *boundBumper) Propagate() bool {
	b.calls++
	if b.it.LowerBound(b.v) >= b.limit {
		return true
	}
	return b.it.Enqueue(intvar.GE(b.v, b.it.LowerBound(b.v)+1), nil, nil)
}

func (b *boundBumper) IncrementalPropagate(_ []int) bool { return b.Propagate() }

func (b *boundBumper) RegisterWith(w *Watcher) {}

func newTestSetup() (*trail.Trail, *inttrail.IntegerTrail, *Watcher) {
	sat := trail.New(trail.DefaultOptions)
	it := inttrail.New(sat, inttrail.DefaultOptions)
	w := New(sat, it)
	return sat, it, w
}

func TestWatcher_Register_SchedulesOnce(t *testing.T) {
	_, it, w := newTestSetup()
	v, _ := it.AddIntegerVariable(intvar.New(0, 10))
	b := &boundBumper{it: it, v: v, limit: 1}

	w.Register(b)
	if ok := w.Propagate(); !ok {
		t.Fatalf("Propagate() = false, want true")
	}
	if b.calls == 0 {
		t.Errorf("registered propagator was never called")
	}
	if got := it.LowerBound(v); got != 1 {
		t.Errorf("LowerBound = %d, want 1", got)
	}
}

func TestWatcher_WatchLowerBound_WakesOnBoundChange(t *testing.T) {
	sat, it, w := newTestSetup()
	src, _ := it.AddIntegerVariable(intvar.New(0, 10))

	calls := 0
	id := w.Register(&countingPropagator{fn: func() { calls++ }})
	w.WatchLowerBound(src, id, 0)

	if ok := w.Propagate(); !ok {
		t.Fatalf("Propagate() = false, want true")
	}
	before := calls

	sat.Assume(trail.PositiveLiteral(sat.AddVariable()))
	if !it.Enqueue(intvar.GE(src, 5), nil, nil) {
		t.Fatalf("Enqueue(src>=5) failed")
	}
	if ok := w.Propagate(); !ok {
		t.Fatalf("Propagate() = false, want true")
	}
	if calls <= before {
		t.Errorf("propagator was not re-triggered after src's lower bound changed")
	}
}

type countingPropagator struct {
	fn func()
}

func (c *countingPropagator) Propagate() bool {
	c.fn()
	return true
}
func (c *countingPropagator) IncrementalPropagate(_ []int) bool { return c.Propagate() }
func (c *countingPropagator) RegisterWith(w *Watcher)           {}

func TestWatcher_Propagate_ReturnsImmediatelyWhenTrailGrows(t *testing.T) {
	sat, it, w := newTestSetup()
	v, _ := it.AddIntegerVariable(intvar.New(0, 1))
	_ = v

	growsTrail := &trailGrower{sat: sat}
	w.Register(growsTrail)

	if ok := w.Propagate(); !ok {
		t.Fatalf("Propagate() = false, want true")
	}
	if !growsTrail.called {
		t.Errorf("propagator was never called")
	}
}

type trailGrower struct {
	sat    *trail.Trail
	called bool
}

func (g *trailGrower) Propagate() bool {
	if g.called {
		return true
	}
	g.called = true
	v := g.sat.AddVariable()
	return g.sat.Enqueue(trail.PositiveLiteral(v), nil)
}

func (g *trailGrower) IncrementalPropagate(_ []int) bool { return g.Propagate() }
func (g *trailGrower) RegisterWith(w *Watcher)           {}

func TestWatcher_Priority_LowerRunsFirst(t *testing.T) {
	_, it, w := newTestSetup()
	v, _ := it.AddIntegerVariable(intvar.New(0, 10))

	var order []string
	first := &recorder{name: "first", order: &order}
	second := &recorder{name: "second", order: &order}

	idSecond := w.Register(second)
	idFirst := w.Register(first)
	w.SetPropagatorPriority(idFirst, 0)
	w.SetPropagatorPriority(idSecond, 5)
	w.WatchLowerBound(v, idFirst, -1)
	w.WatchLowerBound(v, idSecond, -1)

	// Drain the initial Register-time scheduling (both default priority 1,
	// queued before the priorities above took effect) before asserting
	// anything about ordering.
	if ok := w.Propagate(); !ok {
		t.Fatalf("Propagate() = false, want true")
	}

	// Re-trigger both at their now-configured priorities.
	order = nil
	w.enqueue(idSecond, -1)
	w.enqueue(idFirst, -1)
	if ok := w.Propagate(); !ok {
		t.Fatalf("Propagate() = false, want true")
	}
	if len(order) < 2 || order[0] != "first" {
		t.Errorf("priority order = %v, want \"first\" called before \"second\"", order)
	}
}

type recorder struct {
	name  string
	order *[]string
}

func (r *recorder) Propagate() bool {
	*r.order = append(*r.order, r.name)
	return true
}
func (r *recorder) IncrementalPropagate(_ []int) bool { return r.Propagate() }
func (r *recorder) RegisterWith(w *Watcher)           {}
