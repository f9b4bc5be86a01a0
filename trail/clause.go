package trail

import "strings"

// Clause is a disjunction of at least two literals, watched on its first two
// literals (the standard two-watched-literal scheme). Clauses of size one
// never materialize: NewClause enqueues them directly and returns a nil
// *Clause.
type Clause struct {
	activity float64

	// literals always has len >= 2 while the clause is attached.
	literals []Literal

	learnt bool
	lbd    int

	// isProtected clauses are never removed by a clause-database cleanup,
	// even if their activity has decayed below the removal threshold.
	isProtected bool
}

// NewClause creates and attaches a clause from tmpLiterals, which is
// mutated in place by the simplification pass below. If the returned bool is
// false, the clause caused a root-level conflict; if the returned *Clause is
// nil with a true bool, the clause was trivially satisfied, subsumed into a
// unit enqueue, or (see learnt) degenerates into nothing to watch.
func NewClause(t *Trail, tmpLiterals []Literal, learnt bool) (*Clause, bool) {
	size := len(tmpLiterals)

	if !learnt {
		seen := map[Literal]struct{}{}
		for i := size - 1; i >= 0; i-- {
			if _, ok := seen[tmpLiterals[i].Opposite()]; ok {
				return nil, true // clause is a tautology
			}
			if _, ok := seen[tmpLiterals[i]]; ok {
				size--
				tmpLiterals[i], tmpLiterals[size] = tmpLiterals[size], tmpLiterals[i]
				continue
			}
			seen[tmpLiterals[i]] = struct{}{}

			switch t.LitValue(tmpLiterals[i]) {
			case True:
				return nil, true // clause already satisfied
			case False:
				size--
				tmpLiterals[i], tmpLiterals[size] = tmpLiterals[size], tmpLiterals[i]
			}
		}
		tmpLiterals = tmpLiterals[:size]
	}

	switch size {
	case 0:
		return nil, false // empty clause: root-level conflict
	case 1:
		return nil, t.enqueue(tmpLiterals[0], nil)
	default:
		c := &Clause{learnt: learnt}
		c.literals = append(c.literals, tmpLiterals...)

		if learnt {
			// Put the literal with the highest decision level in position 1
			// so that backtracking to the clause's backtrack level always
			// leaves it watchable.
			maxLevel := -1
			wl := -1
			for i := 1; i < len(c.literals); i++ {
				if lvl := t.level[c.literals[i].VarID()]; lvl > maxLevel {
					maxLevel = lvl
					wl = i
				}
			}
			c.literals[wl], c.literals[1] = c.literals[1], c.literals[wl]
		}

		t.watch(c, c.literals[0].Opposite(), c.literals[1])
		t.watch(c, c.literals[1].Opposite(), c.literals[0])
		return c, true
	}
}

func (c *Clause) locked(t *Trail) bool {
	return t.reason[c.literals[0].VarID()] == c
}

// Remove detaches the clause from the trail's watch lists. The clause must
// not be locked (i.e. must not currently be any variable's assignment
// reason).
func (c *Clause) Remove(t *Trail) {
	t.unwatch(c, c.literals[0].Opposite())
	t.unwatch(c, c.literals[1].Opposite())
}

// Simplify removes literals that are false at the root level and reports
// whether the clause is satisfied at the root level (and can thus be
// dropped entirely).
func (c *Clause) Simplify(t *Trail) bool {
	j := 0
	for _, l := range c.literals {
		switch t.LitValue(l) {
		case True:
			return true
		case False:
			// discard
		case Unknown:
			c.literals[j] = l
			j++
		}
	}
	c.literals = c.literals[:j]
	return false
}

// Propagate is called when the watched literal matching watched has just
// become true (so c.literals[?] == watched.Opposite() is now false). It
// returns false iff the clause became empty (conflict).
func (c *Clause) Propagate(t *Trail, watched Literal) bool {
	opp := watched.Opposite()
	if c.literals[0] == opp {
		c.literals[0] = c.literals[1]
		c.literals[1] = opp
	}

	if t.LitValue(c.literals[0]) == True {
		t.watch(c, watched, c.literals[0])
		return true
	}

	for i := 2; i < len(c.literals); i++ {
		if t.LitValue(c.literals[i]) != False {
			c.literals[1] = c.literals[i]
			c.literals[i] = watched.Opposite()
			t.watch(c, c.literals[1].Opposite(), c.literals[0])
			return true
		}
	}

	t.watch(c, watched, c.literals[0])
	return t.enqueue(c.literals[0], c)
}

// ExplainFailure returns the reason for the clause being empty: the
// negation of every literal in it.
func (c *Clause) ExplainFailure(t *Trail) []Literal {
	t.tmpReason = t.tmpReason[:0]
	for _, l := range c.literals {
		t.tmpReason = append(t.tmpReason, l.Opposite())
	}
	if c.learnt {
		t.BumpClauseActivity(c)
	}
	return t.tmpReason
}

// ExplainAssign returns the reason for c.literals[0] being forced true: the
// negation of every other literal.
func (c *Clause) ExplainAssign(t *Trail) []Literal {
	t.tmpReason = t.tmpReason[:0]
	for _, l := range c.literals[1:] {
		t.tmpReason = append(t.tmpReason, l.Opposite())
	}
	if c.learnt {
		t.BumpClauseActivity(c)
	}
	return t.tmpReason
}

func (c *Clause) String() string {
	if len(c.literals) == 0 {
		return "Clause[]"
	}
	sb := strings.Builder{}
	sb.WriteString("Clause[")
	sb.WriteString(c.literals[0].String())
	for _, l := range c.literals[1:] {
		sb.WriteByte(' ')
		sb.WriteString(l.String())
	}
	sb.WriteByte(']')
	return sb.String()
}
