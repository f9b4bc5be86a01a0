package prop

import (
	"sort"

	"github.com/rhartert/yasscp/intvar"
	"github.com/rhartert/yasscp/trail"
	"github.com/rhartert/yasscp/watch"
)

// Disjunctive enforces that a set of optional tasks occupying [Start, End)
// never overlap on a single resource. Each Propagate call runs five passes
// once, in this order: an overload check, detectable precedences, not-last
// and edge-finding (with the grey-task relaxation), each forward and then
// mirrored (time-reversed), and finally an optional-task presence pass,
// which is not mirrored. A call does not repeat the passes until nothing
// changes; it is registered as a propagator that may need further calls.
type Disjunctive struct {
	it  IntegerTrail
	sat SatTrail

	tasks []Interval

	// Lifted counts how many optional tasks this propagator has forced
	// absent because they could never fit without violating the resource.
	Lifted int
}

// NewDisjunctive builds a Disjunctive resource propagator over tasks.
func NewDisjunctive(it IntegerTrail, sat SatTrail, tasks []Interval) *Disjunctive {
	return &Disjunctive{
		it:    it,
		sat:   sat,
		tasks: append([]Interval(nil), tasks...),
	}
}

func (d *Disjunctive) RegisterWith(w *watch.Watcher) {
	id := w.Register(d)
	w.NotifyThatPropagatorMayNotReachFixedPointInOnePass(id)
	for _, task := range d.tasks {
		w.WatchLowerBound(task.Start, id, -1)
		w.WatchUpperBound(task.Start, id, -1)
		w.WatchLowerBound(task.End, id, -1)
		w.WatchUpperBound(task.End, id, -1)
		if task.Presence != trail.NoLiteral {
			w.WatchLiteral(task.Presence, id, -1)
		}
	}
}

func (d *Disjunctive) IncrementalPropagate(_ []int) bool { return d.Propagate() }

// minDuration derives a task's minimum processing time from its current
// Start/End bounds: the span can never be shorter than minEnd - maxStart.
func (d *Disjunctive) minDuration(iv Interval) int64 {
	dur := minEnd(d.it, iv) - maxStart(d.it, iv)
	if dur < 0 {
		return 0
	}
	return dur
}

func (d *Disjunctive) presentTasks() []int {
	var out []int
	for i, task := range d.tasks {
		if task.IsPresent(d.sat) {
			out = append(out, i)
		}
	}
	return out
}

func (d *Disjunctive) Propagate() bool {
	if !d.overloadCheck(false) || !d.overloadCheck(true) {
		return false
	}
	if !d.detectablePrecedences(false) || !d.detectablePrecedences(true) {
		return false
	}
	if !d.notLast(false) || !d.notLast(true) {
		return false
	}
	if !d.edgeFinding(false) || !d.edgeFinding(true) {
		return false
	}
	if !d.optionalPrecedence() {
		return false
	}
	return true
}

// est/lct/lst below are time-reversed when mirror is true: the whole
// timeline is negated, so "latest completion" becomes "earliest start" and
// vice versa, letting every pass be written once and mirrored for free.
func (d *Disjunctive) est(iv Interval, mirror bool) int64 {
	if mirror {
		return -maxEnd(d.it, iv)
	}
	return minStart(d.it, iv)
}

func (d *Disjunctive) lct(iv Interval, mirror bool) int64 {
	if mirror {
		return -minStart(d.it, iv)
	}
	return maxEnd(d.it, iv)
}

// overloadCheck sweeps present tasks by est and verifies that, for every
// deadline lct reached so far, the total minimum duration of tasks with
// deadline <= lct does not exceed lct - (earliest est among them).
func (d *Disjunctive) overloadCheck(mirror bool) bool {
	present := d.presentTasks()
	sort.Slice(present, func(x, y int) bool { return d.est(d.tasks[present[x]], mirror) < d.est(d.tasks[present[y]], mirror) })

	for end := range present {
		windowLct := d.lct(d.tasks[present[end]], mirror)
		windowEst := int64(1) << 62
		var energy int64
		var participants []int
		for _, i := range present {
			task := d.tasks[i]
			if d.lct(task, mirror) > windowLct {
				continue
			}
			if e := d.est(task, mirror); e < windowEst {
				windowEst = e
			}
			energy += d.minDuration(task)
			participants = append(participants, i)
		}
		if windowEst+energy > windowLct {
			return d.it.ReportConflict(nil, d.boundsReason(participants))
		}
	}
	return true
}

// detectablePrecedences pushes j's est forward past every task i that is
// detectably before j: i must entirely fit before j starts in any
// feasible schedule, because j cannot start early enough to overlap i
// without violating i's deadline.
func (d *Disjunctive) detectablePrecedences(mirror bool) bool {
	present := d.presentTasks()
	for _, j := range present {
		taskJ := d.tasks[j]
		var newEst int64 = d.est(taskJ, mirror)
		var reasonTasks []int
		for _, i := range present {
			if i == j {
				continue
			}
			taskI := d.tasks[i]
			if d.est(taskI, mirror)+d.minDuration(taskI) <= d.est(taskJ, mirror) {
				continue // already ordered, nothing to detect
			}
			if d.est(taskI, mirror)+d.minDuration(taskI)+d.minDuration(taskJ) <= d.lct(taskI, mirror) {
				cand := d.est(taskI, mirror) + d.minDuration(taskI)
				if cand > newEst {
					newEst = cand
				}
				reasonTasks = append(reasonTasks, i)
			}
		}
		if newEst > d.est(taskJ, mirror) {
			if !d.pushEst(j, newEst, mirror, reasonTasks) {
				return false
			}
		}
	}
	return true
}

// notLast detects that task j cannot be the last task to run among a set,
// and tightens its lct (deadline) accordingly.
func (d *Disjunctive) notLast(mirror bool) bool {
	present := d.presentTasks()
	for _, j := range present {
		taskJ := d.tasks[j]
		newLct := d.lct(taskJ, mirror)
		var reasonTasks []int
		for _, i := range present {
			if i == j {
				continue
			}
			taskI := d.tasks[i]
			if d.lct(taskI, mirror) >= d.lct(taskJ, mirror) {
				continue
			}
			if d.est(taskJ, mirror)+d.minDuration(taskJ) > d.lct(taskI, mirror) {
				continue
			}
			if d.lct(taskI, mirror)-d.minDuration(taskI) < newLct {
				newLct = d.lct(taskI, mirror) - d.minDuration(taskI)
			}
			reasonTasks = append(reasonTasks, i)
		}
		if newLct < d.lct(taskJ, mirror) {
			if !d.pushLct(j, newLct, mirror, reasonTasks) {
				return false
			}
		}
	}
	return true
}

// edgeFinding uses the grey-task relaxation: for every subset represented
// here (in this simplified O(n^2) form) by a single candidate task j acting
// as the "grey" task, check whether j must be scheduled after every task in
// a competing set Ω, and if so push j's est past the whole set's energy.
func (d *Disjunctive) edgeFinding(mirror bool) bool {
	present := d.presentTasks()
	for _, j := range present {
		taskJ := d.tasks[j]
		var omega []int
		var energy int64
		minOmegaEst := int64(1) << 62
		for _, i := range present {
			if i == j {
				continue
			}
			taskI := d.tasks[i]
			if d.lct(taskI, mirror) > d.lct(taskJ, mirror) {
				continue
			}
			omega = append(omega, i)
			energy += d.minDuration(taskI)
			if e := d.est(taskI, mirror); e < minOmegaEst {
				minOmegaEst = e
			}
		}
		if len(omega) == 0 {
			continue
		}
		if minOmegaEst+energy+d.minDuration(taskJ) > d.lct(taskJ, mirror) {
			return d.it.ReportConflict(nil, d.boundsReason(append(append([]int(nil), omega...), j)))
		}
		if minOmegaEst+energy > d.est(taskJ, mirror) {
			if !d.pushEst(j, minOmegaEst+energy, mirror, omega) {
				return false
			}
		}
	}
	return true
}

// optionalPrecedence forces an optional task's presence literal false when
// it cannot fit anywhere without overloading the resource, using the same
// overload-window test as overloadCheck but evaluated with the optional
// task hypothetically present.
func (d *Disjunctive) optionalPrecedence() bool {
	for _, task := range d.tasks {
		if task.Presence == trail.NoLiteral || task.IsAbsent(d.sat) || task.IsPresent(d.sat) {
			continue
		}
		mandatory := d.presentTasks()
		windowEst := minStart(d.it, task)
		windowLct := maxEnd(d.it, task)
		energy := d.minDuration(task)
		var contributing []int
		for _, i := range mandatory {
			other := d.tasks[i]
			if maxEnd(d.it, other) <= windowLct && minStart(d.it, other) >= windowEst {
				energy += d.minDuration(other)
				contributing = append(contributing, i)
			}
		}
		if energy > windowLct-windowEst {
			intReason := append([]intvar.Literal{
				intvar.GE(task.Start, d.it.LowerBound(task.Start)),
				intvar.LE(task.End, d.it.UpperBound(task.End)),
			}, d.boundsReason(contributing)...)
			var litReason []trail.Literal
			for _, r := range intReason {
				litReason = append(litReason, d.it.ReasonFor(r)...)
			}
			if !d.sat.EnqueuePropagated(task.Presence.Opposite(), litReason) {
				return false
			}
			d.Lifted++
		}
	}
	return true
}

func (d *Disjunctive) pushEst(i int, newEst int64, mirror bool, reasonTasks []int) bool {
	reason := d.boundsReason(reasonTasks)
	task := d.tasks[i]
	if mirror {
		return d.it.Enqueue(intvar.LE(task.End, -newEst), nil, reason)
	}
	return d.it.Enqueue(intvar.GE(task.Start, newEst), nil, reason)
}

func (d *Disjunctive) pushLct(i int, newLct int64, mirror bool, reasonTasks []int) bool {
	reason := d.boundsReason(reasonTasks)
	task := d.tasks[i]
	if mirror {
		return d.it.Enqueue(intvar.GE(task.Start, -newLct), nil, reason)
	}
	return d.it.Enqueue(intvar.LE(task.End, newLct), nil, reason)
}

func (d *Disjunctive) boundsReason(taskIdx []int) []intvar.Literal {
	var reason []intvar.Literal
	for _, i := range taskIdx {
		task := d.tasks[i]
		reason = append(reason,
			intvar.GE(task.Start, d.it.LowerBound(task.Start)),
			intvar.LE(task.End, d.it.UpperBound(task.End)),
		)
	}
	return reason
}
