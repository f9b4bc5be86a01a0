package intvar

import "testing"

func TestDomain_FromIntervals_MergesAdjacentAndOverlapping(t *testing.T) {
	d := FromIntervals([]Interval{{5, 7}, {1, 3}, {4, 4}, {9, 10}, {8, 8}})
	want := Domain{intervals: []Interval{{1, 10}}}
	if !d.Equal(want) {
		t.Errorf("FromIntervals() = %v, want %v", d, want)
	}
}

func TestDomain_RoundTrip(t *testing.T) {
	d := FromIntervals([]Interval{{1, 4}, {7, 9}})
	rt := FromIntervals(d.Intervals())
	if !d.Equal(rt) {
		t.Errorf("round trip mismatch: %v != %v", d, rt)
	}
}

func TestDomain_Contains_Holes(t *testing.T) {
	d := FromIntervals([]Interval{{1, 4}, {7, 9}})
	for _, v := range []int64{1, 2, 4, 7, 9} {
		if !d.Contains(v) {
			t.Errorf("Contains(%d) = false, want true", v)
		}
	}
	for _, v := range []int64{0, 5, 6, 10} {
		if d.Contains(v) {
			t.Errorf("Contains(%d) = true, want false", v)
		}
	}
}

func TestDomain_ValueAtOrAfter_SnapsOutOfHole(t *testing.T) {
	d := FromIntervals([]Interval{{1, 4}, {7, 9}})
	got, ok := d.ValueAtOrAfter(5)
	if !ok || got != 7 {
		t.Errorf("ValueAtOrAfter(5) = (%d, %v), want (7, true)", got, ok)
	}
	if _, ok := d.ValueAtOrAfter(10); ok {
		t.Errorf("ValueAtOrAfter(10) should report no value")
	}
}

func TestDomain_ValueAtOrBefore_SnapsOutOfHole(t *testing.T) {
	d := FromIntervals([]Interval{{1, 4}, {7, 9}})
	got, ok := d.ValueAtOrBefore(5)
	if !ok || got != 4 {
		t.Errorf("ValueAtOrBefore(5) = (%d, %v), want (4, true)", got, ok)
	}
	if _, ok := d.ValueAtOrBefore(0); ok {
		t.Errorf("ValueAtOrBefore(0) should report no value")
	}
}

func TestDomain_IntersectionWith(t *testing.T) {
	a := New(0, 10)
	b := FromIntervals([]Interval{{3, 5}, {8, 12}})
	got := a.IntersectionWith(b)
	want := FromIntervals([]Interval{{3, 5}, {8, 10}})
	if !got.Equal(want) {
		t.Errorf("IntersectionWith() = %v, want %v", got, want)
	}
}

func TestDomain_Negation(t *testing.T) {
	d := FromIntervals([]Interval{{1, 4}, {7, 9}})
	got := d.Negation()
	want := FromIntervals([]Interval{{-9, -7}, {-4, -1}})
	if !got.Equal(want) {
		t.Errorf("Negation() = %v, want %v", got, want)
	}
}

func TestDomain_IsFixed(t *testing.T) {
	if !New(5, 5).IsFixed() {
		t.Errorf("New(5,5).IsFixed() = false, want true")
	}
	if New(5, 6).IsFixed() {
		t.Errorf("New(5,6).IsFixed() = true, want false")
	}
}
