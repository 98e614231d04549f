package connect

import (
	"context"
	"fmt"
	"sort"

	"github.com/petrolab/psengine/internal/geom"
	"github.com/petrolab/psengine/internal/phase"
	"github.com/petrolab/psengine/internal/section"
	"github.com/petrolab/psengine/internal/therm"
)

// Probe is one invariant point located by an exploratory sweep.
type Probe struct {
	Pos    geom.Point
	Phases phase.Assemblage
	Out    phase.Assemblage
	// Registered holds the id of an already-known point with the same
	// topological key, or section.None.
	Registered int
}

// Explore probes every plausible second zero phase of an unconnected line:
// each phase of the line not already out (excess excluded), then each phase
// of the universe the line lacks. Probes that do not converge are skipped;
// cancellation and engine failures return the probes gathered so far.
// Results are ordered by descending temperature-axis position.
func Explore(ctx context.Context, gw therm.Gateway, s *section.Section, lineID int, opts Options) ([]Probe, error) {
	ul := s.UniLine(lineID)
	if ul == nil {
		return nil, fmt.Errorf("%w: univariant line #%d", section.ErrNotFound, lineID)
	}
	win := extendRect(s.Range, opts.Extend)
	outSet := ul.OutSet()

	var probes []Probe
	try := func(phases, out phase.Assemblage) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := gw.SolvePoint(ctx, phases, out, win)
		if err != nil {
			if recoverable(err) {
				return nil
			}
			return err
		}
		p := Probe{Pos: res.Pos, Phases: phases, Out: out}
		if id, ok := s.FindInv(phases, out); ok {
			p.Registered = id
		}
		probes = append(probes, p)
		return nil
	}

	for _, op := range ul.Phases.Diff(outSet).Diff(s.Excess).Phases() {
		if err := try(ul.Phases, outSet.With(op)); err != nil {
			return probes, err
		}
	}
	for _, op := range s.Universe.Diff(s.Excess).Diff(ul.Phases).Phases() {
		if err := try(ul.Phases.With(op), outSet.With(op)); err != nil {
			return probes, err
		}
	}
	sort.SliceStable(probes, func(i, j int) bool { return probes[i].Pos.X > probes[j].Pos.X })
	return probes, nil
}

// recoverable reports failures a sweep may skip over: the probed key simply
// has no solution here. Engine loss, timeouts and cancellation are not.
func recoverable(err error) bool {
	kind, ok := therm.KindOf(err)
	return ok && (kind == therm.NoConvergence || kind == therm.InvalidWindow)
}

func extendRect(r geom.Rect, frac float64) geom.Rect {
	dx := frac * r.Width()
	dy := frac * r.Height()
	return geom.Rect{X0: r.X0 - dx, Y0: r.Y0 - dy, X1: r.X1 + dx, Y1: r.Y1 + dy}
}
