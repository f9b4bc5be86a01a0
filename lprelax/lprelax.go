// Package lprelax declares the narrow boundary between the integer-reasoning
// core and an external linear-relaxation solver, per spec.md §6: "the
// arithmetic LP relaxation solver itself ... used only via a narrow
// interface that returns reduced-cost certificates". It contains no simplex
// implementation; that is an explicit non-goal. The interface exists so
// optimize.LbTreeSearch can be built, type-checked, and unit tested against
// the in-package fakeLPRelaxation test double without depending on a real
// LP engine.
package lprelax

import (
	"context"

	"github.com/rhartert/yasscp/intvar"
)

// Status is the outcome of one LPRelaxation.Solve call.
type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	default:
		return "unknown"
	}
}

// Basis is an opaque snapshot of the simplex basis at the moment it was
// captured. LbTreeSearch never inspects its contents; it only compares
// basis identity across nodes by way of ChangeCounter timestamps and hands
// the value back to a future Solve call so the relaxation can warm-start
// from it.
type Basis struct {
	opaque any
}

// NewBasis wraps an LP-engine-specific basis value so it can travel through
// the tree search without optimize depending on the engine's own type.
func NewBasis(opaque any) Basis { return Basis{opaque: opaque} }

// Unwrap returns the engine-specific value passed to NewBasis.
func (b Basis) Unwrap() any { return b.opaque }

// LPRelaxation is the external interface spec.md §6 describes: a linear
// relaxation over the same integer variables as the core, solved once per
// call and queried for the certificates OPT-tree needs to push bounds.
type LPRelaxation interface {
	// Solve resolves the relaxation under the variables' current bounds.
	Solve(ctx context.Context) (Status, error)

	// ObjectiveLowerBound is the relaxation's optimal objective value,
	// valid only after a Solve call returned StatusOptimal.
	ObjectiveLowerBound() float64

	// ReducedCost returns v's reduced cost at the last optimal solution.
	ReducedCost(v intvar.Variable) float64

	// ValueAt returns v's value at the last optimal solution.
	ValueAt(v intvar.Variable) float64

	// Basis captures the current simplex basis for later reuse.
	Basis() Basis

	// LoadBasis warm-starts the relaxation from a previously captured Basis.
	// It is a hint: implementations that cannot warm-start may treat this as
	// a no-op. The next Solve call is expected to use it if supported.
	LoadBasis(b Basis)

	// ChangeCounter increases every time the relaxation's constraint set or
	// variable bounds change in a way that could invalidate a previously
	// captured Basis. LbTreeSearch compares this against the counter value
	// recorded alongside a saved basis to decide whether it is still fresh.
	ChangeCounter() int64
}
