package prop

import (
	"sort"

	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/trail"
	"github.com/rhartert/yasscp/watch"
)

// CumulativeTask is one task on a cumulative resource: it occupies
// [Start, End) and consumes Demand units of capacity while present.
type CumulativeTask struct {
	Interval
	Demand int64
}

// profileEventKind classifies a task for the purposes of the
// horizontally-elastic overload sweep: Full tasks always run at their full
// demand within the sweep window, FixedPart tasks contribute only the
// demand that provably overlaps every point of the window (the "mandatory
// part"), and Ignore tasks contribute nothing because their whole possible
// span [minStart, maxEnd) lies outside the window.
type profileEventKind int

const (
	taskIgnore profileEventKind = iota
	taskFixedPart
	taskFull
)

// HorizontallyElasticOverloadChecker checks a cumulative resource window by
// window: every window is bounded by one task's earliest start and one
// task's latest end, and a conflict is flagged when the energy counted for
// the tasks in that window exceeds capacity times the window's length.
type HorizontallyElasticOverloadChecker struct {
	it       IntegerTrail
	sat      SatTrail
	tasks    []CumulativeTask
	capacity int64
}

// NewHorizontallyElasticOverloadChecker builds an overload checker for
// tasks sharing a resource of the given capacity.
func NewHorizontallyElasticOverloadChecker(it IntegerTrail, sat SatTrail, tasks []CumulativeTask, capacity int64) *HorizontallyElasticOverloadChecker {
	return &HorizontallyElasticOverloadChecker{
		it:       it,
		sat:      sat,
		tasks:    append([]CumulativeTask(nil), tasks...),
		capacity: capacity,
	}
}

func (c *HorizontallyElasticOverloadChecker) RegisterWith(w *watch.Watcher) {
	id := w.Register(c)
	for _, task := range c.tasks {
		w.WatchLowerBound(task.Start, id, -1)
		w.WatchUpperBound(task.Start, id, -1)
		w.WatchLowerBound(task.End, id, -1)
		w.WatchUpperBound(task.End, id, -1)
		if task.Presence != trail.NoLiteral {
			w.WatchLiteral(task.Presence, id, -1)
		}
	}
}

func (c *HorizontallyElasticOverloadChecker) IncrementalPropagate(_ []int) bool {
	return c.Propagate()
}

func (c *HorizontallyElasticOverloadChecker) classify(task CumulativeTask, windowStart, windowEnd int64) (profileEventKind, int64, int64) {
	lo := minStart(c.it, task.Interval)
	hi := maxEnd(c.it, task.Interval)
	if hi <= windowStart || lo >= windowEnd {
		return taskIgnore, 0, 0
	}
	ls := maxStart(c.it, task.Interval)
	ee := minEnd(c.it, task.Interval)
	if ls < ee {
		// Mandatory part [ls, ee) is the slice of time this task must
		// occupy regardless of how its remaining slack resolves.
		start := ls
		if start < windowStart {
			start = windowStart
		}
		end := ee
		if end > windowEnd {
			end = windowEnd
		}
		if end > start {
			return taskFixedPart, start, end
		}
	}
	return taskFull, lo, hi
}

// Propagate sweeps every present task's earliest-start/latest-end pairing
// as a candidate window and checks total demand against capacity.
func (c *HorizontallyElasticOverloadChecker) Propagate() bool {
	present := make([]int, 0, len(c.tasks))
	for i, task := range c.tasks {
		if task.IsPresent(c.sat) {
			present = append(present, i)
		}
	}
	if len(present) == 0 {
		return true
	}

	windows := make([]int64, 0, 2*len(present))
	for _, i := range present {
		task := c.tasks[i]
		windows = append(windows, minStart(c.it, task.Interval), maxEnd(c.it, task.Interval))
	}
	sort.Slice(windows, func(x, y int) bool { return windows[x] < windows[y] })

	for wi := 0; wi < len(windows); wi++ {
		for wj := wi + 1; wj < len(windows); wj++ {
			ws, we := windows[wi], windows[wj]
			if we <= ws {
				continue
			}
			var energy int64
			var participants []int
			for _, i := range present {
				kind, a, b := c.classify(c.tasks[i], ws, we)
				switch kind {
				case taskFull:
					if a < ws {
						a = ws
					}
					if b > we {
						b = we
					}
					if b > a {
						energy += c.tasks[i].Demand * (b - a)
						participants = append(participants, i)
					}
				case taskFixedPart:
					energy += c.tasks[i].Demand * (b - a)
					participants = append(participants, i)
				}
			}
			if energy > c.capacity*(we-ws) {
				return c.it.ReportConflict(nil, c.boundsReason(participants))
			}
		}
	}
	return true
}

func (c *HorizontallyElasticOverloadChecker) boundsReason(taskIdx []int) []intvar.Literal {
	var reason []intvar.Literal
	for _, i := range taskIdx {
		task := c.tasks[i]
		reason = append(reason,
			intvar.GE(task.Start, c.it.LowerBound(task.Start)),
			intvar.LE(task.End, c.it.UpperBound(task.End)),
		)
	}
	return reason
}
