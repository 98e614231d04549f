// Package therm defines the calculation gateway: the contract through which
// the topology engine requests equilibrium calculations from an external
// thermodynamic engine, the typed results coming back, and a driver for
// THERMOCALC-style interactive executables. The engine core never retries a
// failed calculation; retry policy belongs to the caller.
package therm

import (
	"context"
	"errors"
	"fmt"

	"github.com/petrolab/psengine/internal/geom"
	"github.com/petrolab/psengine/internal/phase"
)

// ErrKind classifies a calculation failure.
type ErrKind string

const (
	// NoConvergence means the engine ran but found no equilibrium in the window.
	NoConvergence ErrKind = "no_convergence"
	// InvalidWindow means the requested window is outside the engine's valid range.
	InvalidWindow ErrKind = "invalid_window"
	// EngineUnavailable means the external executable could not be started.
	EngineUnavailable ErrKind = "engine_unavailable"
	// Timeout means the calculation exceeded its deadline.
	Timeout ErrKind = "timeout"
)

// CalcError is a typed engine-side failure. It is recoverable: callers may
// retry with an adjusted window or better guesses.
type CalcError struct {
	Kind   ErrKind
	Msg    string
	Output string // raw engine output, when any was produced
}

// Error implements the error interface.
func (e *CalcError) Error() string {
	return fmt.Sprintf("calc %s: %s", e.Kind, e.Msg)
}

// KindOf extracts the CalcError kind from err, if err wraps one.
func KindOf(err error) (ErrKind, bool) {
	var ce *CalcError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

// Gateway is the calculation contract consumed by the topology engine.
// Implementations block for the duration of the calculation; long sweeps are
// cancelled cooperatively through ctx between individual calls.
type Gateway interface {
	// SolvePoint solves one equilibrium with one or two zero-mode phases
	// inside the window. Two zero phases locate an invariant point.
	SolvePoint(ctx context.Context, phases, zero phase.Assemblage, win geom.Rect) (Result, error)

	// SolveLine samples a univariant curve (one zero-mode phase) across the
	// window in the given number of steps.
	SolveLine(ctx context.Context, phases phase.Assemblage, zero phase.Phase, win geom.Rect, steps int) (ResultSet, error)

	// Minimize runs a multi-assemblage free-energy minimization at the
	// window's midpoint over subsets of the superset, up to maxVariance.
	Minimize(ctx context.Context, superset phase.Assemblage, win geom.Rect, maxVariance int) (Dogmin, error)
}
