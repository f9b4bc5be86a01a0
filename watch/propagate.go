package watch

import "github.com/rhartert/yasscp/intvar"

// Propagate is the main loop described in spec.md §4.3: it runs registered
// propagators to a fixed point (or conflict), always resuming from the
// lowest active priority, and returns control to the caller the moment the
// SAT trail grows so unit propagation can run first.
func (w *Watcher) Propagate() bool {
	if w.sat.DecisionLevel() == 0 {
		for id, az := range w.alwaysZero {
			if az {
				w.enqueue(id, -1)
			}
		}
	}

	w.absorbLiteralChanges()
	w.absorbBoundChanges()

	for {
		id, widx, ok := w.popNext()
		if !ok {
			break
		}

		trailLenBefore := w.sat.Len()
		w.replayReversibles(id)

		var success bool
		if len(widx) > 0 {
			success = w.props[id].IncrementalPropagate(widx)
		} else {
			success = w.props[id].Propagate()
		}

		if !success {
			w.inQueue[id] = false
			delete(w.pendingWatchIndices, id)
			return false
		}

		if w.idempotent[id] {
			w.absorbLiteralChanges()
			w.absorbBoundChanges()
			w.inQueue[id] = false
		} else {
			w.inQueue[id] = false
			w.absorbLiteralChanges()
			w.absorbBoundChanges()
		}

		if w.sat.Len() > trailLenBefore {
			// The SAT unit propagator must run to quiescence before any
			// further integer propagation, per the design's layering.
			return true
		}

		w.iterCount++
		if w.iterLimit > 0 && w.iterCount >= w.iterLimit {
			w.it.MarkNotFullyPropagated()
			return true
		}
		if w.stopPropagationCallback != nil && w.stopPropagationCallback() {
			w.it.MarkNotFullyPropagated()
			return true
		}
	}

	if w.sat.DecisionLevel() == 0 {
		w.fireLevelZeroCallback()
	}
	return true
}

func (w *Watcher) popNext() (int, []int, bool) {
	for {
		e, ok := w.activeSet.Pop()
		if !ok {
			return 0, nil, false
		}
		p := e.Elem
		w.activePriority[p] = false

		q, ok := w.queues[p]
		if !ok || q.IsEmpty() {
			continue
		}
		id := q.Pop()
		if !q.IsEmpty() {
			w.activePriority[p] = true
			w.activeSet.Put(p, p)
		}
		widx := w.pendingWatchIndices[id]
		delete(w.pendingWatchIndices, id)
		return id, widx, true
	}
}

func (w *Watcher) absorbLiteralChanges() {
	for w.trailPos < w.sat.Len() {
		l := w.sat.TrailLiteral(w.trailPos)
		w.trailPos++
		for _, lw := range w.literalWatchers[l] {
			w.enqueue(lw.id, lw.watchIndex)
		}
	}
}

func (w *Watcher) absorbBoundChanges() {
	mods := w.it.ModifiedVariables()
	if len(mods) == 0 {
		return
	}
	levelZero := w.sat.DecisionLevel() == 0
	for _, v := range mods {
		for _, vw := range w.lbWatchers[v] {
			w.enqueue(vw.id, vw.watchIndex)
		}
		for _, vw := range w.lbWatchers[v.Negation()] {
			w.enqueue(vw.id, vw.watchIndex)
		}
		if levelZero {
			w.levelZeroSeen[v] = true
		}
	}
	var scratch []intvar.Literal
	w.it.AppendNewBounds(&scratch)
}

func (w *Watcher) replayReversibles(id int) {
	level := w.sat.DecisionLevel()
	if len(w.reversibles[id]) == 0 {
		w.lastLevel[id] = level
		return
	}
	lo := level
	if w.lastLevel[id] < lo {
		lo = w.lastLevel[id]
	}
	for _, r := range w.reversibles[id] {
		r.SetLevel(lo)
		r.SetLevel(level)
	}
	w.lastLevel[id] = level
}

func (w *Watcher) fireLevelZeroCallback() {
	if w.levelZeroModifiedCallback == nil || len(w.levelZeroSeen) == 0 {
		return
	}
	vars := make([]intvar.Variable, 0, len(w.levelZeroSeen))
	for v := range w.levelZeroSeen {
		vars = append(vars, v)
		delete(w.levelZeroSeen, v)
	}
	w.levelZeroModifiedCallback(vars)
}
