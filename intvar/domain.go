package intvar

import (
	"fmt"
	"sort"
)

// Interval is a closed integer interval [Min, Max].
type Interval struct {
	Min, Max int64
}

// Domain is a sorted, disjoint union of closed integer intervals. Holes are
// first class: any bound push must snap to the next in-domain value. The
// zero value is the empty domain.
type Domain struct {
	intervals []Interval
}

// New returns the domain of every integer in [lo, hi]. It panics if lo > hi;
// callers at the API boundary should reject that as InvalidInput instead of
// calling New (see inttrail.AddIntegerVariable).
func New(lo, hi int64) Domain {
	if lo > hi {
		panic(fmt.Sprintf("intvar: empty domain [%d, %d]", lo, hi))
	}
	return Domain{intervals: []Interval{{lo, hi}}}
}

// FromIntervals builds a Domain from an arbitrary (possibly unsorted,
// possibly overlapping or adjacent) set of closed intervals, normalising it
// into the canonical sorted, disjoint, non-adjacent form.
func FromIntervals(ivs []Interval) Domain {
	if len(ivs) == 0 {
		return Domain{}
	}
	sorted := append([]Interval(nil), ivs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })

	out := make([]Interval, 0, len(sorted))
	cur := sorted[0]
	for _, iv := range sorted[1:] {
		if iv.Min <= cur.Max+1 {
			if iv.Max > cur.Max {
				cur.Max = iv.Max
			}
			continue
		}
		out = append(out, cur)
		cur = iv
	}
	out = append(out, cur)
	return Domain{intervals: out}
}

// Empty returns the empty domain.
func Empty() Domain { return Domain{} }

// IsEmpty reports whether d contains no values.
func (d Domain) IsEmpty() bool { return len(d.intervals) == 0 }

// Min returns the smallest value in d. Panics if d is empty.
func (d Domain) Min() int64 {
	if d.IsEmpty() {
		panic("intvar: Min of empty domain")
	}
	return d.intervals[0].Min
}

// Max returns the largest value in d. Panics if d is empty.
func (d Domain) Max() int64 {
	if d.IsEmpty() {
		panic("intvar: Max of empty domain")
	}
	return d.intervals[len(d.intervals)-1].Max
}

// IsFixed reports whether d contains exactly one value.
func (d Domain) IsFixed() bool {
	return len(d.intervals) == 1 && d.intervals[0].Min == d.intervals[0].Max
}

// Contains reports whether i lies in d.
func (d Domain) Contains(i int64) bool {
	lo, hi := 0, len(d.intervals)
	for lo < hi {
		mid := (lo + hi) / 2
		iv := d.intervals[mid]
		switch {
		case i < iv.Min:
			hi = mid
		case i > iv.Max:
			lo = mid + 1
		default:
			return true
		}
	}
	return false
}

// Intervals returns the canonical sorted, disjoint list of intervals
// comprising d. The caller must not mutate the returned slice.
func (d Domain) Intervals() []Interval {
	return d.intervals
}

// Equal reports whether d and other contain exactly the same values.
func (d Domain) Equal(other Domain) bool {
	if len(d.intervals) != len(other.intervals) {
		return false
	}
	for i := range d.intervals {
		if d.intervals[i] != other.intervals[i] {
			return false
		}
	}
	return true
}

// IntersectionWith returns the intersection of d and other.
func (d Domain) IntersectionWith(other Domain) Domain {
	out := make([]Interval, 0, len(d.intervals)+len(other.intervals))
	i, j := 0, 0
	for i < len(d.intervals) && j < len(other.intervals) {
		a, b := d.intervals[i], other.intervals[j]
		lo := max64(a.Min, b.Min)
		hi := min64(a.Max, b.Max)
		if lo <= hi {
			out = append(out, Interval{lo, hi})
		}
		if a.Max < b.Max {
			i++
		} else {
			j++
		}
	}
	if len(out) == 0 {
		return Domain{}
	}
	return Domain{intervals: out}
}

// Negation returns the domain of -x for x in d.
func (d Domain) Negation() Domain {
	out := make([]Interval, len(d.intervals))
	for i, iv := range d.intervals {
		out[len(out)-1-i] = Interval{-iv.Max, -iv.Min}
	}
	return Domain{intervals: out}
}

// ValueAtOrAfter returns the smallest in-domain value that is >= k, and
// whether such a value exists (false iff k > d.Max()).
func (d Domain) ValueAtOrAfter(k int64) (int64, bool) {
	for _, iv := range d.intervals {
		if k <= iv.Max {
			if k < iv.Min {
				return iv.Min, true
			}
			return k, true
		}
	}
	return 0, false
}

// ValueAtOrBefore returns the largest in-domain value that is <= k, and
// whether such a value exists (false iff k < d.Min()).
func (d Domain) ValueAtOrBefore(k int64) (int64, bool) {
	for i := len(d.intervals) - 1; i >= 0; i-- {
		iv := d.intervals[i]
		if k >= iv.Min {
			if k > iv.Max {
				return iv.Max, true
			}
			return k, true
		}
	}
	return 0, false
}

func (d Domain) String() string {
	s := "{"
	for i, iv := range d.intervals {
		if i > 0 {
			s += " u "
		}
		if iv.Min == iv.Max {
			s += fmt.Sprintf("%d", iv.Min)
		} else {
			s += fmt.Sprintf("[%d,%d]", iv.Min, iv.Max)
		}
	}
	return s + "}"
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
